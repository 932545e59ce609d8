package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/application/ports"
	"mindmesh/pkg/errors"
	"mindmesh/pkg/metrics"
)

// Dispatcher is the write capability the executor needs.
type Dispatcher interface {
	Dispatch(ints ...intents.Intent)
}

// EtagSource is the read capability for the concurrency token. Each retry
// re-reads it, which is what keeps retried writes correct when another
// request stored a fresher token in between.
type EtagSource interface {
	Etag() string
}

// Executor runs ports.Requests with the full conflict-retry and
// classification policy. Failures never escape: every outcome is absorbed
// into dispatched intents, so call sites need no error handling of their
// own.
type Executor struct {
	client      *Client
	etags       EtagSource
	dispatcher  Dispatcher
	interceptor *Interceptor
	logger      *zap.Logger
	metrics     *metrics.Metrics

	maxRetries int
	retryDelay time.Duration
}

// NewExecutor creates an executor. maxRetries bounds the 412 retries (the
// initial attempt is not counted).
func NewExecutor(client *Client, etags EtagSource, dispatcher Dispatcher, interceptor *Interceptor, logger *zap.Logger, m *metrics.Metrics, maxRetries int, retryDelay time.Duration) *Executor {
	return &Executor{
		client:      client,
		etags:       etags,
		dispatcher:  dispatcher,
		interceptor: interceptor,
		logger:      logger,
		metrics:     m,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
	}
}

// Do executes req to completion. It blocks until the outcome is dispatched;
// epics call it from their own tasks.
func (e *Executor) Do(ctx context.Context, req ports.Request) {
	e.dispatcher.Dispatch(req.Optimistic...)
	e.dispatcher.Dispatch(intents.RequestStarted{})
	e.metrics.RequestsInFlight.Inc()
	defer func() {
		e.metrics.RequestsInFlight.Dec()
		e.dispatcher.Dispatch(intents.RequestFinished{})
	}()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			e.metrics.ConflictRetries.Inc()
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				e.finish("canceled")
				return
			}
		}

		resp, sendErr := e.client.Send(ctx, req.Method, req.Path, req.Body, req.Headers, e.etags.Etag())

		var outcome *errors.AppError
		if sendErr != nil {
			outcome = errors.Classify(sendErr)
		} else if !resp.OK() {
			outcome = errors.FromStatus(resp.Status, string(resp.Body))
		}

		if outcome == nil {
			if resp.Etag != "" {
				// Stored before any response-derived action so a concurrent
				// request reads a consistent token.
				e.dispatcher.Dispatch(intents.SetEtag{Etag: resp.Etag})
			}
			e.process(req, resp.Body)
			e.dispatcher.Dispatch(req.Success...)
			e.finish("success")
			return
		}

		if errors.IsCanceled(outcome) {
			// User-initiated teardown: no failure actions, no toast.
			e.finish("canceled")
			return
		}
		if e.interceptor.Intercept(outcome) {
			// Auth errors are terminal and fully consumed upstream.
			e.finish("auth")
			return
		}
		if errors.IsConflict(outcome) {
			if attempt < e.maxRetries {
				continue
			}
			// Retries exhausted: degrades to a plain failure, never a
			// distinct user-visible error.
			e.logger.Warn("ETag conflict retries exhausted",
				zap.String("path", req.Path),
				zap.Int("attempts", attempt+1),
			)
			e.fail(req)
			return
		}

		e.logger.Warn("Request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(outcome),
		)
		e.fail(req)
		return
	}
}

// process runs the response processor, guarded: a processor error degrades
// to a log line, never to a dropped success path or a panic at a call site.
func (e *Executor) process(req ports.Request, body []byte) {
	if req.Process == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Response processor panicked",
				zap.String("path", req.Path),
				zap.Any("panic", r),
			)
		}
	}()
	acts, err := req.Process(body)
	if err != nil {
		e.logger.Warn("Response processor failed",
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return
	}
	e.dispatcher.Dispatch(acts...)
}

func (e *Executor) fail(req ports.Request) {
	e.dispatcher.Dispatch(req.Failure...)
	e.finish("failure")
}

func (e *Executor) finish(outcome string) {
	e.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
}
