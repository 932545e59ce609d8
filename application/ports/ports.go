// Package ports declares the capabilities the effect pipelines need from
// the infrastructure layer.
package ports

import (
	"context"
	"io"

	"mindmesh/application/intents"
)

// Request describes one executed backend call. Optimistic actions are
// dispatched synchronously before the network call; Success and Failure
// after the outcome is known. Process translates a 2xx body into further
// actions and runs after the response ETag is stored but before Success.
type Request struct {
	Method  string
	Path    string
	Body    interface{}
	Headers map[string]string

	Optimistic []intents.Intent
	Success    []intents.Intent
	Failure    []intents.Intent
	Process    func(body []byte) ([]intents.Intent, error)
}

// Executor runs requests with the conflict-retry and error-classification
// policy. Do never returns an error: every outcome is absorbed into
// dispatched intents.
type Executor interface {
	Do(ctx context.Context, req Request)
}

// Stream is a cancellable sequence of decoded SSE payloads. Next returns
// io.EOF at natural end; Close must be called exactly once on teardown.
type Stream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// StreamOpener starts server streams.
type StreamOpener interface {
	// Stream opens an SSE subscription.
	Stream(ctx context.Context, method, path string, body interface{}) (Stream, error)
	// RawStream opens a chunked body the caller consumes directly (the
	// completion stream).
	RawStream(ctx context.Context, method, path string, body interface{}) (io.ReadCloser, error)
}

// ErrorClassifier is the cross-cutting auth/offline stage. Intercept
// reports true when the error was consumed (terminal auth redirect); a
// network error flips the offline flag and reports false so the caller's
// own failure path still runs.
type ErrorClassifier interface {
	Intercept(err error) bool
}
