package sse

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader yields its chunks one Read call at a time, regardless of the
// destination buffer size, to simulate arbitrary network fragmentation.
type chunkedReader struct {
	chunks []string
	closed bool
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *chunkedReader) Close() error {
	c.closed = true
	return nil
}

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	for {
		payload, err := r.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, payload)
	}
}

func TestReaderSingleEvent(t *testing.T) {
	r := NewReader(io.NopCloser(strings.NewReader("data: {\"a\":1}\n")))
	assert.Equal(t, []string{`{"a":1}`}, readAll(t, r))
}

func TestReaderPayloadSplitAcrossChunks(t *testing.T) {
	// The payload boundary falls in the middle of the JSON document.
	r := NewReader(&chunkedReader{chunks: []string{"data: {\"a\"", ":1}\n"}})
	assert.Equal(t, []string{`{"a":1}`}, readAll(t, r))
}

func TestReaderPrefixSplitAcrossChunks(t *testing.T) {
	r := NewReader(&chunkedReader{chunks: []string{"da", "ta", ": {\"a\":1}", "\n"}})
	assert.Equal(t, []string{`{"a":1}`}, readAll(t, r))
}

func TestReaderMultipleEventsOneChunk(t *testing.T) {
	r := NewReader(io.NopCloser(strings.NewReader("data: 1\ndata: 2\ndata: 3\n")))
	assert.Equal(t, []string{"1", "2", "3"}, readAll(t, r))
}

func TestReaderIgnoresNonDataLines(t *testing.T) {
	r := NewReader(io.NopCloser(strings.NewReader(": keep-alive\n\ndata: {\"x\":2}\n")))
	assert.Equal(t, []string{`{"x":2}`}, readAll(t, r))
}

func TestReaderCRLF(t *testing.T) {
	r := NewReader(io.NopCloser(strings.NewReader("data: first\r\ndata: second\r\n")))
	assert.Equal(t, []string{"first", "second"}, readAll(t, r))
}

func TestReaderTrailingPayloadWithoutNewline(t *testing.T) {
	r := NewReader(io.NopCloser(strings.NewReader("data: tail")))
	assert.Equal(t, []string{"tail"}, readAll(t, r))
}

func TestReaderContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReader(io.NopCloser(strings.NewReader("data: x\n")))
	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaderCloseReleasesBody(t *testing.T) {
	body := &chunkedReader{chunks: []string{"data: 1\n"}}
	r := NewReader(body)
	require.NoError(t, r.Close())
	assert.True(t, body.closed)
}
