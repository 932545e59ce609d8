// Package epics hosts the effect pipelines: handlers that react to
// dispatched intents with asynchronous work (requests, subscriptions,
// debounced pushes, playback ticking) and feed the outcomes back into the
// bus as further intents. State changes never happen here directly.
package epics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/application/playback"
	"mindmesh/application/ports"
	"mindmesh/application/store"
	"mindmesh/pkg/metrics"
)

// Dispatcher is the write capability epics use to feed outcomes back.
type Dispatcher interface {
	Dispatch(ints ...intents.Intent)
}

// Config carries the tunable delays and limits.
type Config struct {
	// SourceTimeLimit bounds how long one document version may stay
	// INPROGRESS before it is locally marked FAILED.
	SourceTimeLimit time.Duration
	// GenerationStale is the silence threshold on the build-status stream
	// after which the build is treated as stalled.
	GenerationStale time.Duration
	// CompletionTimeout bounds one chat completion turn end to end.
	CompletionTimeout time.Duration
	// SettingsDebounce is the quiesce interval before a settings edit is
	// pushed to the server.
	SettingsDebounce time.Duration
	// PlaybackTick is the simulated-streaming cadence during replay.
	PlaybackTick time.Duration
	// StreamRetry is the delay before a dropped standing subscription is
	// reopened.
	StreamRetry time.Duration
}

// DefaultConfig returns the stock intervals.
func DefaultConfig() Config {
	return Config{
		SourceTimeLimit:   5 * time.Minute,
		GenerationStale:   3 * time.Minute,
		CompletionTimeout: 120 * time.Second,
		SettingsDebounce:  500 * time.Millisecond,
		PlaybackTick:      100 * time.Millisecond,
		StreamRetry:       5 * time.Second,
	}
}

// Params bundles the dependencies of the epic layer.
type Params struct {
	Executor     ports.Executor
	Streams      ports.StreamOpener
	Routes       ports.Routes
	Classifier   ports.ErrorClassifier
	Dispatcher   Dispatcher
	Session      store.SessionView
	Graph        store.GraphView
	Sources      store.SourceView
	Conversation store.ConversationView
	Settings     store.SettingsView
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Config       Config
}

// Epics reacts to effect intents. Register it on the bus; HandleIntent
// returns quickly, delegating blocking work to runner tasks so the bus
// drain loop is never held up by network calls.
type Epics struct {
	exec      ports.Executor
	streams   ports.StreamOpener
	routes    ports.Routes
	classify  ports.ErrorClassifier
	dispatch  Dispatcher
	session   store.SessionView
	graph     store.GraphView
	sources   store.SourceView
	conv      store.ConversationView
	settings  store.SettingsView
	runner    *Runner
	debouncer *Debouncer
	logger    *zap.Logger
	metrics   *metrics.Metrics

	cfgMu sync.RWMutex
	cfg   Config

	pbMu sync.Mutex
	pb   *playback.Engine
}

// New creates the epic layer.
func New(p Params) *Epics {
	return &Epics{
		exec:      p.Executor,
		streams:   p.Streams,
		routes:    p.Routes,
		classify:  p.Classifier,
		dispatch:  p.Dispatcher,
		session:   p.Session,
		graph:     p.Graph,
		sources:   p.Sources,
		conv:      p.Conversation,
		settings:  p.Settings,
		runner:    NewRunner(p.Logger),
		debouncer: NewDebouncer(p.Config.SettingsDebounce),
		logger:    p.Logger,
		metrics:   p.Metrics,
		cfg:       p.Config,
	}
}

// HandleIntent routes one intent to its pipeline. Unknown intents (the
// plain state actions) fall through untouched.
func (e *Epics) HandleIntent(ctx context.Context, intent intents.Intent) {
	switch a := intent.(type) {
	case intents.LoadApp:
		e.handleLoadApp(ctx)
	case intents.FetchGraph:
		e.runner.Spawn(ctx, func(ctx context.Context) { e.fetchGraph(ctx, a.Reveal) })
	case intents.FetchSources:
		e.runner.Spawn(ctx, func(ctx context.Context) { e.fetchSources(ctx) })
	case intents.FetchUndoRedo:
		e.runner.Spawn(ctx, func(ctx context.Context) { e.fetchUndoRedo(ctx) })
	case intents.RefreshFromEtag:
		e.handleRefreshFromEtag(ctx, a)

	case intents.CreateNode:
		e.handleCreateNode(ctx, a)
	case intents.CreateEdge:
		e.handleCreateEdge(ctx, a)
	case intents.UpdateNodeData:
		e.handleUpdateNodeData(ctx, a)
	case intents.DeleteElement:
		e.handleDeleteElement(ctx, a)
	case intents.Undo:
		e.handleHistory(ctx, "undo")
	case intents.Redo:
		e.handleHistory(ctx, "redo")

	case intents.Regenerate:
		e.handleRegenerate(ctx)
	case intents.DeleteSource:
		e.handleDeleteSource(ctx, a)
	case intents.SubscribeSourceEvents:
		e.handleSubscribeSourceEvents(ctx, a)
	case intents.SubscribeGenerationStatus:
		e.handleSubscribeGenerationStatus(ctx)
	case intents.GenerationFinished:
		e.handleGenerationFinished(ctx, a)

	case intents.SubscribeEtagPush:
		e.handleSubscribeEtagPush(ctx)
	case intents.SubscribeTheme:
		e.handleSubscribeTheme(ctx, a)
	case intents.UpdateThemeConfig:
		e.handleUpdateThemeConfig(ctx, a)
	case intents.UpdateGenerateParams:
		e.handleUpdateGenerateParams(ctx, a)

	case intents.SendMessage:
		e.handleSendMessage(ctx, a)
	case intents.StopCompletion:
		e.runner.Cancel(keyCompletion)

	case intents.PlaybackInit:
		e.handlePlaybackInit(ctx, a)
	case intents.PlaybackNext:
		e.handlePlaybackNext(ctx)
	case intents.PlaybackPrevious:
		e.handlePlaybackPrevious()

	case intents.StopSubscriptions:
		e.debouncer.Stop()
		e.runner.CancelAll()
	}
}

// config returns the current intervals. Tasks read them per use, so a hot
// reload applies to the next timeout or reconnect without a restart.
func (e *Epics) config() Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// UpdateConfig swaps the pipeline intervals, typically from a config-file
// watcher. Running tasks pick the new values up on their next use.
func (e *Epics) UpdateConfig(cfg Config) {
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()
	e.debouncer.SetDelay(cfg.SettingsDebounce)
}

// consumed routes a stream error through the auth classifier. A true
// return means the error already triggered a terminal redirect and needs
// no further handling.
func (e *Epics) consumed(err error) bool {
	return e.classify != nil && e.classify.Intercept(err)
}

// Stop tears down every running task and waits for them to drain.
func (e *Epics) Stop() {
	e.debouncer.Stop()
	e.runner.CancelAll()
	e.runner.Wait()
}

// handleLoadApp runs the initial-load sequence, then opens the standing
// subscriptions.
func (e *Epics) handleLoadApp(ctx context.Context) {
	e.runner.Spawn(ctx, func(ctx context.Context) {
		e.fetchGraph(ctx, false)
		e.fetchSources(ctx)
		e.fetchUndoRedo(ctx)
		e.dispatch.Dispatch(intents.SubscribeEtagPush{})
		if theme := e.settings.Theme(); theme != "" {
			e.dispatch.Dispatch(intents.SubscribeTheme{Theme: theme})
		}
	})
}

// handleRefreshFromEtag adopts an externally pushed token and re-reads
// everything derived from server state.
func (e *Epics) handleRefreshFromEtag(ctx context.Context, a intents.RefreshFromEtag) {
	e.dispatch.Dispatch(intents.SetEtag{Etag: a.Etag})
	e.runner.Spawn(ctx, func(ctx context.Context) {
		e.fetchGraph(ctx, false)
		e.fetchSources(ctx)
		e.fetchUndoRedo(ctx)
	})
}
