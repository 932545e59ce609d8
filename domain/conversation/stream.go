package conversation

import (
	"bytes"
	"encoding/json"
)

// Accumulator reassembles a chunked completion stream into message
// snapshots. The backend writes cumulative JSON snapshots of the in-progress
// bot message, each terminated by a NUL byte; the NUL is the signal that the
// buffered bytes form a parseable snapshot, so consumers are not flooded
// with every raw byte chunk. Accumulator is not safe for concurrent use.
type Accumulator struct {
	buf  bytes.Buffer
	last Message
	seen bool
}

// Feed appends one raw chunk and returns the latest complete snapshot, if
// the chunk completed one. A snapshot that fails to parse is skipped; the
// bytes stay buffered for the final pass.
func (a *Accumulator) Feed(chunk []byte) (Message, bool) {
	a.buf.Write(chunk)

	updated := false
	for {
		data := a.buf.Bytes()
		i := bytes.IndexByte(data, 0)
		if i < 0 {
			break
		}
		segment := make([]byte, i)
		copy(segment, data[:i])
		a.buf.Next(i + 1)

		var msg Message
		if err := json.Unmarshal(segment, &msg); err != nil {
			continue
		}
		a.last = msg
		a.seen = true
		updated = true
	}
	if !updated {
		return Message{}, false
	}
	return a.last, true
}

// Finish runs the final parse once the stream ends. Trailing bytes after the
// last NUL take precedence over earlier snapshots; when there are none (or
// they do not parse) the last complete snapshot stands.
func (a *Accumulator) Finish() (Message, bool) {
	tail := bytes.TrimRight(a.buf.Bytes(), "\x00")
	if len(bytes.TrimSpace(tail)) > 0 {
		var msg Message
		if err := json.Unmarshal(tail, &msg); err == nil {
			a.last = msg
			a.seen = true
		}
	}
	a.buf.Reset()
	return a.last, a.seen
}
