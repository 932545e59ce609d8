package epics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/application/ports"
	"mindmesh/domain/source"
	"mindmesh/pkg/errors"
)

// fetchSources re-reads the document listing. The reconciliation is
// idempotent: an unchanged listing dispatches nothing, so polling or
// redundant refreshes never cause render churn or duplicate subscriptions.
func (e *Epics) fetchSources(ctx context.Context) {
	e.exec.Do(ctx, ports.Request{
		Method: http.MethodGet,
		Path:   e.routes.Documents(),
		Process: func(body []byte) ([]intents.Intent, error) {
			var resp source.ListResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			cs := source.MergeSourcesResponse(resp, e.sources.Sources(), e.sources.GenerationStatus())
			if !cs.Changed {
				return nil, nil
			}
			acts := []intents.Intent{
				intents.SetSources{
					Sources:   cs.Sources,
					Names:     cs.Names,
					Status:    cs.Status,
					Generated: cs.Generated,
				},
			}
			for _, ref := range cs.SubscribeVersions {
				acts = append(acts, intents.SubscribeSourceEvents{ID: ref.ID, Version: ref.Version})
			}
			if cs.SubscribeGeneration {
				acts = append(acts, intents.SubscribeGenerationStatus{})
			}
			return acts, nil
		},
	})
}

// handleDeleteSource applies the deletion policy locally before the DELETE
// goes out, and restores the previous collection if the server refuses.
func (e *Epics) handleDeleteSource(ctx context.Context, a intents.DeleteSource) {
	prior := e.sources.Sources()
	remaining, changed := source.HandleSourceDelete(prior, a.ID)
	if !changed {
		return
	}
	priorNames := e.sources.SourceNames()
	status := e.sources.GenerationStatus()
	generated := e.sources.Generated()

	e.runner.Spawn(ctx, func(ctx context.Context) {
		e.exec.Do(ctx, ports.Request{
			Method: http.MethodDelete,
			Path:   e.routes.Document(a.ID),
			Optimistic: []intents.Intent{
				intents.SetSources{
					Sources:   remaining,
					Names:     source.Names(remaining),
					Status:    status,
					Generated: generated,
				},
			},
			Failure: []intents.Intent{
				intents.SetSources{
					Sources:   prior,
					Names:     priorNames,
					Status:    status,
					Generated: generated,
				},
				intents.ShowToast{Level: intents.ToastError, Text: "Couldn't delete the document"},
			},
		})
	})
}

// handleSubscribeSourceEvents follows one document version through
// indexing. Re-subscribing to the same (id, version) replaces the running
// task, so repeated listings cost nothing. The stream normally ends when a
// terminal status arrives; a version that stays INPROGRESS past the time
// limit is marked FAILED locally.
func (e *Epics) handleSubscribeSourceEvents(ctx context.Context, a intents.SubscribeSourceEvents) {
	key := fmt.Sprintf("source:%s:%d", a.ID, a.Version)
	e.runner.Switch(ctx, key, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, e.config().SourceTimeLimit)
		defer cancel()

		stream, err := e.streams.Stream(ctx, http.MethodGet, e.routes.DocumentVersionEvents(a.ID, a.Version), nil)
		if err != nil {
			e.sourceStreamDown(a, err)
			return
		}
		defer stream.Close()

		for {
			payload, err := stream.Next(ctx)
			if err != nil {
				if err != io.EOF {
					e.sourceStreamDown(a, err)
				}
				return
			}
			var event struct {
				Status source.Status `json:"status"`
			}
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				e.logger.Warn("Unparseable source event", zap.String("id", a.ID), zap.Error(err))
				continue
			}
			e.dispatch.Dispatch(intents.SetSourceStatus{ID: a.ID, Version: a.Version, Status: event.Status})
			if event.Status.Terminal() {
				return
			}
		}
	})
}

// sourceStreamDown resolves a broken or expired indexing stream. Expiry of
// the local time limit means the version is stuck; both cases degrade to a
// locally FAILED status so the document list stops showing perpetual
// progress.
func (e *Epics) sourceStreamDown(a intents.SubscribeSourceEvents, cause error) {
	// Parent cancellation is teardown, not failure. The local deadline
	// classifies as a timeout and falls through.
	if errors.IsCanceled(errors.Classify(cause)) {
		return
	}
	if e.consumed(cause) {
		return
	}
	name := e.sources.SourceNames()[a.ID]
	if name == "" {
		name = a.ID
	}
	e.logger.Warn("Indexing subscription ended without a terminal status",
		zap.String("id", a.ID),
		zap.Int("version", a.Version),
		zap.Error(cause),
	)
	e.dispatch.Dispatch(
		intents.SetSourceStatus{ID: a.ID, Version: a.Version, Status: source.StatusFailed},
		intents.ShowToast{Level: intents.ToastError, Text: fmt.Sprintf("Indexing of %q did not finish", name)},
	)
}
