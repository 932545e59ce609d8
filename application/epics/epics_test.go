package epics

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/application/ports"
	"mindmesh/application/store"
	"mindmesh/pkg/errors"
	"mindmesh/pkg/metrics"
)

// captureDispatcher reduces into a real store and records every intent, so
// epic tests can assert both resulting state and intent sequencing.
type captureDispatcher struct {
	mu    sync.Mutex
	store *store.Store
	seen  []intents.Intent
}

func (d *captureDispatcher) Dispatch(ints ...intents.Intent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, intent := range ints {
		d.store.Reduce(intent)
		d.seen = append(d.seen, intent)
	}
}

func (d *captureDispatcher) intentsOf() []intents.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]intents.Intent(nil), d.seen...)
}

func (d *captureDispatcher) has(match func(intents.Intent) bool) bool {
	for _, intent := range d.intentsOf() {
		if match(intent) {
			return true
		}
	}
	return false
}

func (d *captureDispatcher) count(match func(intents.Intent) bool) int {
	n := 0
	for _, intent := range d.intentsOf() {
		if match(intent) {
			n++
		}
	}
	return n
}

type fakeResponse struct {
	status int
	body   string
}

// fakeExecutor mimics the request executor's dispatch contract without a
// network: optimistic first, then processor actions and Success on 2xx, or
// Failure otherwise.
type fakeExecutor struct {
	mu       sync.Mutex
	dispatch Dispatcher
	respond  func(req ports.Request) fakeResponse
	requests []ports.Request
}

func (f *fakeExecutor) Do(ctx context.Context, req ports.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()

	f.dispatch.Dispatch(req.Optimistic...)

	resp := fakeResponse{status: 200, body: "{}"}
	if respond != nil {
		resp = respond(req)
	}
	if resp.status >= 200 && resp.status < 300 {
		if req.Process != nil {
			if acts, err := req.Process([]byte(resp.body)); err == nil {
				f.dispatch.Dispatch(acts...)
			}
		}
		f.dispatch.Dispatch(req.Success...)
		return
	}
	f.dispatch.Dispatch(req.Failure...)
}

func (f *fakeExecutor) sent() []ports.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.Request(nil), f.requests...)
}

// fakeStream feeds scripted payloads and honors context cancellation the
// way a live SSE reader does.
type fakeStream struct {
	events    chan string
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeStream(events ...string) *fakeStream {
	s := &fakeStream{events: make(chan string, len(events)+1), closed: make(chan struct{})}
	for _, ev := range events {
		s.events <- ev
	}
	return s
}

func (s *fakeStream) Next(ctx context.Context) (string, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.closed:
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// end marks the scripted stream finished after its queued events drain.
func (s *fakeStream) end() {
	go func() {
		for {
			if len(s.events) == 0 {
				s.Close()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
}

// ctxReader is a raw completion body whose Read obeys the request context,
// like a real HTTP response body does.
type ctxReader struct {
	ctx  context.Context
	data chan []byte
}

func (r *ctxReader) Read(p []byte) (int, error) {
	select {
	case chunk, ok := <-r.data:
		if !ok {
			return 0, io.EOF
		}
		n := copy(p, chunk)
		return n, nil
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	}
}

func (r *ctxReader) Close() error { return nil }

// fakeStreams hands out scripted streams by path. A path with no script
// fails the handshake, which exercises the reconnect paths.
type fakeStreams struct {
	mu       sync.Mutex
	streams  map[string]*fakeStream
	raw      chan []byte
	rawQueue []chan []byte
	opened   []string
}

func newFakeStreams() *fakeStreams {
	return &fakeStreams{streams: make(map[string]*fakeStream)}
}

func (f *fakeStreams) script(path string, s *fakeStream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[path] = s
}

// scriptRaw queues a dedicated body for one RawStream open, so tests with
// overlapping completion turns can script each turn separately.
func (f *fakeStreams) scriptRaw(ch chan []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawQueue = append(f.rawQueue, ch)
}

func (f *fakeStreams) Stream(ctx context.Context, method, path string, body interface{}) (ports.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, path)
	s, ok := f.streams[path]
	if !ok {
		return nil, errors.NewNetworkError(io.ErrUnexpectedEOF)
	}
	delete(f.streams, path)
	return s, nil
}

func (f *fakeStreams) RawStream(ctx context.Context, method, path string, body interface{}) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, path)
	if len(f.rawQueue) > 0 {
		ch := f.rawQueue[0]
		f.rawQueue = f.rawQueue[1:]
		return &ctxReader{ctx: ctx, data: ch}, nil
	}
	if f.raw == nil {
		return nil, errors.NewNetworkError(io.ErrUnexpectedEOF)
	}
	return &ctxReader{ctx: ctx, data: f.raw}, nil
}

func testCtx() context.Context { return context.Background() }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SourceTimeLimit = 100 * time.Millisecond
	cfg.GenerationStale = 60 * time.Millisecond
	cfg.CompletionTimeout = 80 * time.Millisecond
	cfg.SettingsDebounce = 15 * time.Millisecond
	cfg.PlaybackTick = 5 * time.Millisecond
	cfg.StreamRetry = 5 * time.Millisecond
	return cfg
}

func newTestEpics() (*Epics, *captureDispatcher, *fakeExecutor, *fakeStreams) {
	st := store.New(zap.NewNop())
	disp := &captureDispatcher{store: st}
	exec := &fakeExecutor{dispatch: disp}
	streams := newFakeStreams()
	e := New(Params{
		Executor:     exec,
		Streams:      streams,
		Routes:       ports.Routes{App: "demo"},
		Dispatcher:   disp,
		Session:      st,
		Graph:        st,
		Sources:      st,
		Conversation: st,
		Settings:     st,
		Logger:       zap.NewNop(),
		Metrics:      metrics.New(prometheus.NewRegistry()),
		Config:       testConfig(),
	})
	return e, disp, exec, streams
}
