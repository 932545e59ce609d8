package di

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mindmesh/application/bus"
	"mindmesh/application/epics"
	"mindmesh/application/ports"
	"mindmesh/application/store"
	"mindmesh/infrastructure/api"
	"mindmesh/infrastructure/config"
	"mindmesh/pkg/metrics"
)

// ProvideLogger creates the logger for the configured environment.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// ProvideRegistry creates the metrics registry.
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics creates and registers the instrument set.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

// ProvideStore creates the state store.
func ProvideStore(logger *zap.Logger) *store.Store {
	return store.New(logger)
}

// ProvideDispatcher creates the intent bus reducing into the store.
func ProvideDispatcher(st *store.Store, logger *zap.Logger) *bus.Dispatcher {
	return bus.NewDispatcher(st, logger)
}

// ProvideHTTPClient creates the REST transport.
func ProvideHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RequestTimeout}
}

// ProvideAPIClient creates the backend client.
func ProvideAPIClient(cfg *config.Config, httpClient *http.Client, logger *zap.Logger) *api.Client {
	return api.NewClient(cfg.BaseURL, cfg.App, cfg.APIKey, httpClient, logger)
}

// ProvideInterceptor creates the auth/offline classifier stage.
func ProvideInterceptor(dispatcher *bus.Dispatcher, logger *zap.Logger) *api.Interceptor {
	return api.NewInterceptor(dispatcher, logger)
}

// ProvideExecutor creates the request executor with the configured conflict
// retry policy.
func ProvideExecutor(
	client *api.Client,
	st *store.Store,
	dispatcher *bus.Dispatcher,
	interceptor *api.Interceptor,
	logger *zap.Logger,
	m *metrics.Metrics,
	cfg *config.Config,
) *api.Executor {
	return api.NewExecutor(client, st, dispatcher, interceptor, logger, m, cfg.ConflictRetry, cfg.RetryDelay)
}

// ProvideRoutes scopes the REST paths to the configured app.
func ProvideRoutes(cfg *config.Config) ports.Routes {
	return ports.Routes{App: cfg.App}
}

// ProvideEpicsConfig maps daemon configuration onto the pipeline knobs.
func ProvideEpicsConfig(cfg *config.Config) epics.Config {
	ec := epics.DefaultConfig()
	ec.SourceTimeLimit = cfg.SourceTimeLimit
	ec.GenerationStale = cfg.GenerationStale
	ec.CompletionTimeout = cfg.CompletionTimeout
	ec.SettingsDebounce = cfg.SettingsDebounce
	ec.StreamRetry = cfg.StreamRetry
	return ec
}

// ProvideEpics creates the effect pipelines. The caller registers them on
// the dispatcher.
func ProvideEpics(
	executor *api.Executor,
	client *api.Client,
	routes ports.Routes,
	interceptor *api.Interceptor,
	dispatcher *bus.Dispatcher,
	st *store.Store,
	logger *zap.Logger,
	m *metrics.Metrics,
	ec epics.Config,
) *epics.Epics {
	return epics.New(epics.Params{
		Executor:     executor,
		Streams:      client,
		Routes:       routes,
		Classifier:   interceptor,
		Dispatcher:   dispatcher,
		Session:      st,
		Graph:        st,
		Sources:      st,
		Conversation: st,
		Settings:     st,
		Logger:       logger,
		Metrics:      m,
		Config:       ec,
	})
}
