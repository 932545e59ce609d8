package epics

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/application/ports"
	"mindmesh/pkg/errors"
)

const (
	keyThemeStream   = "theme-stream"
	keyThemePush     = "theme-push"
	keyGenParamsPush = "generate-params-push"
)

// handleSubscribeTheme follows live edits to one theme's configuration.
// Empty payloads and payloads equal to the local config are skipped, which
// keeps this client's own debounced pushes from echoing back as renders.
func (e *Epics) handleSubscribeTheme(ctx context.Context, a intents.SubscribeTheme) {
	e.runner.Switch(ctx, keyThemeStream, func(ctx context.Context) {
		for {
			err := e.consumeTheme(ctx, a.Theme)
			if errors.IsCanceled(errors.Classify(err)) || e.consumed(err) {
				return
			}
			e.logger.Warn("Theme stream dropped, reconnecting",
				zap.String("theme", a.Theme),
				zap.Error(err),
			)
			select {
			case <-time.After(e.config().StreamRetry):
			case <-ctx.Done():
				return
			}
		}
	})
}

func (e *Epics) consumeTheme(ctx context.Context, theme string) error {
	stream, err := e.streams.Stream(ctx, http.MethodGet, e.routes.ThemeEvents(theme), nil)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		payload, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		var config map[string]interface{}
		if err := json.Unmarshal([]byte(payload), &config); err != nil {
			e.logger.Warn("Unparseable theme event", zap.Error(err))
			continue
		}
		if len(config) == 0 || reflect.DeepEqual(config, e.settings.ThemeConfig()) {
			e.metrics.SSEEvents.WithLabelValues("theme_skipped").Inc()
			continue
		}
		e.metrics.SSEEvents.WithLabelValues("theme").Inc()
		e.dispatch.Dispatch(intents.SetThemeConfig{Theme: theme, Config: config})
	}
}

// handleUpdateThemeConfig applies the edit locally at once and pushes it to
// the server only after the edits quiesce, so slider-style UI doesn't turn
// into a request per pixel.
func (e *Epics) handleUpdateThemeConfig(ctx context.Context, a intents.UpdateThemeConfig) {
	e.dispatch.Dispatch(intents.SetThemeConfig{Theme: a.Theme, Config: a.Config})
	e.debouncer.Call(keyThemePush, func() {
		e.runner.Spawn(ctx, func(ctx context.Context) {
			e.exec.Do(ctx, ports.Request{
				Method: http.MethodPut,
				Path:   e.routes.Theme(a.Theme),
				Body:   e.settings.ThemeConfig(),
				Failure: []intents.Intent{
					intents.ShowToast{Level: intents.ToastError, Text: "Couldn't save the theme"},
				},
			})
		})
	})
}

// handleUpdateGenerateParams is the settings counterpart for generation
// parameters, same immediate-local, debounced-push shape.
func (e *Epics) handleUpdateGenerateParams(ctx context.Context, a intents.UpdateGenerateParams) {
	e.dispatch.Dispatch(intents.SetGenerateParams{Params: a.Params})
	e.debouncer.Call(keyGenParamsPush, func() {
		e.runner.Spawn(ctx, func(ctx context.Context) {
			e.exec.Do(ctx, ports.Request{
				Method: http.MethodPut,
				Path:   e.routes.GenerateParams(),
				Body:   e.settings.GenerateParams(),
				Failure: []intents.Intent{
					intents.ShowToast{Level: intents.ToastError, Text: "Couldn't save generation settings"},
				},
			})
		})
	})
}
