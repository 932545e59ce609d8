package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmesh/application/intents"
)

type recordingReducer struct {
	mu      sync.Mutex
	reduced []intents.Intent
}

func (r *recordingReducer) Reduce(intent intents.Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reduced = append(r.reduced, intent)
}

func TestDispatchReducesSynchronously(t *testing.T) {
	red := &recordingReducer{}
	d := NewDispatcher(red, zap.NewNop())

	d.Dispatch(intents.SetEtag{Etag: "v1"}, intents.SetOffline{Offline: true})

	// No Run loop started: reduction already happened on this goroutine.
	require.Len(t, red.reduced, 2)
	assert.Equal(t, intents.SetEtag{Etag: "v1"}, red.reduced[0])
}

func TestDispatchDropsInvalidIntent(t *testing.T) {
	red := &recordingReducer{}
	d := NewDispatcher(red, zap.NewNop())

	d.Dispatch(intents.ShowToast{Text: ""})
	assert.Empty(t, red.reduced)
}

func TestHandlersReceiveIntentsInOrder(t *testing.T) {
	d := NewDispatcher(nil, zap.NewNop())

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})
	d.Register(HandlerFunc(func(_ context.Context, intent intents.Intent) {
		mu.Lock()
		defer mu.Unlock()
		if e, ok := intent.(intents.SetEtag); ok {
			seen = append(seen, e.Etag)
			if len(seen) == 3 {
				close(done)
			}
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Dispatch(intents.SetEtag{Etag: "1"}, intents.SetEtag{Etag: "2"}, intents.SetEtag{Etag: "3"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not drain the mailbox")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2", "3"}, seen)
}

func TestHandlerMayDispatchWithoutDeadlock(t *testing.T) {
	d := NewDispatcher(nil, zap.NewNop())

	done := make(chan struct{})
	d.Register(HandlerFunc(func(_ context.Context, intent intents.Intent) {
		switch e := intent.(type) {
		case intents.FetchGraph:
			d.Dispatch(intents.SetEtag{Etag: "follow-up"})
		case intents.SetEtag:
			if e.Etag == "follow-up" {
				close(done)
			}
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Dispatch(intents.FetchGraph{})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("re-entrant dispatch deadlocked")
	}
}

func TestCloseStopsRun(t *testing.T) {
	d := NewDispatcher(nil, zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(stopped)
	}()

	d.Close()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after Close")
	}
}
