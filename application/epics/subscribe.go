package epics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/pkg/errors"
)

const keyEtagPush = "etag-push"

// handleSubscribeEtagPush opens the standing stream that announces external
// mindmap changes by their token. A pushed token matching the local one is
// an echo of this client's own write; a push arriving while requests are in
// flight is skipped too, since the responses about to land carry fresher
// state than a refetch started now would. The stream reconnects with a
// fixed delay until the context ends.
func (e *Epics) handleSubscribeEtagPush(ctx context.Context) {
	e.runner.Switch(ctx, keyEtagPush, func(ctx context.Context) {
		for {
			err := e.consumeEtagPush(ctx)
			if errors.IsCanceled(errors.Classify(err)) || e.consumed(err) {
				return
			}
			e.logger.Warn("ETag push stream dropped, reconnecting", zap.Error(err))
			select {
			case <-time.After(e.config().StreamRetry):
			case <-ctx.Done():
				return
			}
		}
	})
}

func (e *Epics) consumeEtagPush(ctx context.Context) error {
	stream, err := e.streams.Stream(ctx, http.MethodPost, e.routes.Subscribe(), nil)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		payload, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		var event struct {
			Etag string `json:"etag"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			e.logger.Warn("Unparseable push event", zap.Error(err))
			continue
		}
		if event.Etag == "" || event.Etag == e.session.Etag() || e.session.InFlight() > 0 {
			e.metrics.SSEEvents.WithLabelValues("etag_push_skipped").Inc()
			continue
		}
		e.metrics.SSEEvents.WithLabelValues("etag_push").Inc()
		e.dispatch.Dispatch(intents.RefreshFromEtag{Etag: event.Etag})
	}
}
