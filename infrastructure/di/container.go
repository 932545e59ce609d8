// Package di wires the daemon's dependency graph with google/wire.
package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mindmesh/application/bus"
	"mindmesh/application/epics"
	"mindmesh/application/store"
	"mindmesh/infrastructure/api"
	"mindmesh/infrastructure/config"
	"mindmesh/pkg/metrics"
)

// Container holds all application dependencies.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Store      *store.Store
	Dispatcher *bus.Dispatcher
	Client     *api.Client
	Executor   *api.Executor
	Epics      *epics.Epics
}
