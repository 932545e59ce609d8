// Package sse decodes server-sent-event style streams into discrete data
// payloads. The backend frames every message as a single line prefixed
// "data:" followed by a JSON document; no other SSE features (ids, retry
// hints) are used, so the decoder handles exactly that subset.
package sse

import (
	"bytes"
	"context"
	"io"
	"strings"
)

const dataPrefix = "data:"

// Reader turns a streamed response body into a sequence of event payloads.
// A payload split across multiple reads is buffered until its terminating
// newline arrives. Reader is not safe for concurrent use.
type Reader struct {
	body   io.ReadCloser
	buf    bytes.Buffer
	chunk  []byte
	closed bool
}

// NewReader wraps a streamed body. The caller owns body until Close is
// called; Close must be called exactly once when the consumer unsubscribes.
func NewReader(body io.ReadCloser) *Reader {
	return &Reader{
		body:  body,
		chunk: make([]byte, 4096),
	}
}

// Next returns the next decoded payload. It returns io.EOF when the stream
// ends and the context error if ctx is done. Read errors are terminal: the
// reader returns the same error for every subsequent call.
func (r *Reader) Next(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if payload, ok := r.takeLine(); ok {
			if payload == "" {
				continue
			}
			return payload, nil
		}
		if r.closed {
			return "", io.EOF
		}

		n, err := r.body.Read(r.chunk)
		if n > 0 {
			r.buf.Write(r.chunk[:n])
		}
		if err == io.EOF {
			// Flush a trailing payload that arrived without a final newline.
			r.closed = true
			continue
		}
		if err != nil {
			r.closed = true
			return "", err
		}
	}
}

// takeLine consumes one complete line from the buffer. The second return is
// false when no full line is buffered yet (or, once the stream is closed,
// when the remainder holds no newline and is drained as a final line).
func (r *Reader) takeLine() (string, bool) {
	data := r.buf.Bytes()
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		if r.closed && len(data) > 0 {
			line := string(data)
			r.buf.Reset()
			return decodeLine(line), true
		}
		return "", false
	}
	line := string(data[:i])
	r.buf.Next(i + 1)
	return decodeLine(line), true
}

// decodeLine strips the framing. Lines without the data prefix (comments,
// blank keep-alives) decode to the empty string and are skipped by Next.
func decodeLine(line string) string {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
}

// Close releases the underlying stream. Safe to call while a Next is blocked
// in a read; the blocked read fails and Next returns its error.
func (r *Reader) Close() error {
	r.closed = true
	return r.body.Close()
}
