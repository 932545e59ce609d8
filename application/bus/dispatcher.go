// Package bus dispatches intents. State actions are reduced synchronously on
// the dispatching goroutine, which is what guarantees optimistic local
// mutations land before any network call is issued. Effect handlers (epics)
// consume the same intents asynchronously from an unbounded mailbox, so a
// handler may itself dispatch without deadlocking.
package bus

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mindmesh/application/intents"
)

// Reducer applies state actions. Reduction must be synchronous and must not
// perform I/O.
type Reducer interface {
	Reduce(intent intents.Intent)
}

// Handler reacts to intents with asynchronous work.
type Handler interface {
	HandleIntent(ctx context.Context, intent intents.Intent)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, intent intents.Intent)

// HandleIntent implements Handler.
func (f HandlerFunc) HandleIntent(ctx context.Context, intent intents.Intent) {
	f(ctx, intent)
}

// Dispatcher is the single entry point for all state mutation.
type Dispatcher struct {
	reducer  Reducer
	logger   *zap.Logger
	handlers []Handler

	mu      sync.Mutex
	cond    *sync.Cond
	mailbox []intents.Intent
	closed  bool
}

// NewDispatcher creates a dispatcher. The reducer may be nil in tests that
// only observe the mailbox.
func NewDispatcher(reducer Reducer, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{reducer: reducer, logger: logger}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Register adds an effect handler. Handlers receive every dispatched intent
// in dispatch order, one at a time.
func (d *Dispatcher) Register(h Handler) {
	d.handlers = append(d.handlers, h)
}

// Dispatch validates, reduces, and enqueues each intent in order. An intent
// failing validation is logged and skipped; dispatch never fails the caller.
func (d *Dispatcher) Dispatch(ints ...intents.Intent) {
	for _, intent := range ints {
		if err := intent.Validate(); err != nil {
			d.logger.Warn("Dropping invalid intent",
				zap.String("intent", fmt.Sprintf("%T", intent)),
				zap.Error(err),
			)
			continue
		}
		if d.reducer != nil {
			d.reducer.Reduce(intent)
		}
		d.enqueue(intent)
	}
}

func (d *Dispatcher) enqueue(intent intents.Intent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.mailbox = append(d.mailbox, intent)
	d.cond.Signal()
}

// Run drains the mailbox until ctx is done or Close is called, invoking
// every registered handler for each intent. Call it on its own goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		d.Close()
	}()

	for {
		intent, ok := d.take()
		if !ok {
			return
		}
		for _, h := range d.handlers {
			h.HandleIntent(ctx, intent)
		}
	}
}

func (d *Dispatcher) take() (intents.Intent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for len(d.mailbox) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.mailbox) == 0 {
		return nil, false
	}
	intent := d.mailbox[0]
	d.mailbox = d.mailbox[1:]
	return intent, true
}

// Close stops Run after the mailbox drains. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.cond.Broadcast()
}
