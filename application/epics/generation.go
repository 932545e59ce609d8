package epics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/application/ports"
	"mindmesh/domain/generation"
	"mindmesh/pkg/errors"
)

const keyGenerationStatus = "generation-status"

// generationEvent is one payload on a build event stream. Progress events
// carry status text; the terminal event carries the token the completed
// build produced.
type generationEvent struct {
	Time         int64  `json:"time"`
	Error        string `json:"error"`
	UserFriendly string `json:"user_friendly"`
	Etag         string `json:"etag"`
}

// handleRegenerate starts a mindmap build. The generate endpoint answers
// with an event stream of the same shape as the status subscription, ending
// with the terminal event; consuming it replaces any status stream already
// following the build. A refused request restores whatever the status was.
func (e *Epics) handleRegenerate(ctx context.Context) {
	prior := e.sources.GenerationStatus()
	e.runner.Switch(ctx, keyGenerationStatus, func(ctx context.Context) {
		e.dispatch.Dispatch(intents.SetGenerationStatus{Status: generation.StatusInProgress})

		body := map[string]interface{}{"params": e.settings.GenerateParams()}
		stream, err := e.streams.Stream(ctx, http.MethodPost, e.routes.Generate(), body)
		if err != nil {
			if errors.IsCanceled(errors.Classify(err)) || e.consumed(err) {
				return
			}
			e.logger.Warn("Generation request refused", zap.Error(err))
			e.dispatch.Dispatch(
				intents.SetGenerationStatus{Status: prior},
				intents.ShowToast{Level: intents.ToastError, Text: "Couldn't start generation"},
			)
			return
		}
		defer stream.Close()
		e.consumeGenerationEvents(ctx, stream)
	})
}

// handleSubscribeGenerationStatus follows a build that is already running,
// discovered on initial load or via the document listing. At most one
// stream follows the build; resubscribing, or a regenerate, replaces it.
func (e *Epics) handleSubscribeGenerationStatus(ctx context.Context) {
	e.runner.Switch(ctx, keyGenerationStatus, func(ctx context.Context) {
		stream, err := e.streams.Stream(ctx, http.MethodPost, e.routes.GenerationStatus(), nil)
		if err != nil {
			e.generationDown(err)
			return
		}
		defer stream.Close()
		e.consumeGenerationEvents(ctx, stream)
	})
}

// consumeGenerationEvents runs the shared event loop. Every read resets the
// staleness clock; a stream silent past the threshold, or actively pushing
// events whose own timestamp is older than the threshold, is treated as a
// terminal error rather than waited on forever.
func (e *Epics) consumeGenerationEvents(ctx context.Context, stream ports.Stream) {
	for {
		eventCtx, cancel := context.WithTimeout(ctx, e.config().GenerationStale)
		payload, err := stream.Next(eventCtx)
		cancel()
		if err != nil {
			if err == io.EOF {
				return
			}
			if eventCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				e.generationStalled()
				return
			}
			e.generationDown(err)
			return
		}

		var event generationEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			e.logger.Warn("Unparseable generation event", zap.Error(err))
			continue
		}
		switch {
		case event.Etag != "":
			e.dispatch.Dispatch(intents.GenerationFinished{Etag: event.Etag})
			return
		case event.Error != "" || e.staleEvent(event):
			text := event.UserFriendly
			if text == "" {
				text = "Generation failed"
			}
			e.generationTerminal(text)
			return
		default:
			e.dispatch.Dispatch(intents.SetGeneratingStatus{Text: event.UserFriendly})
		}
	}
}

// staleEvent reports whether the event's own timestamp is older than the
// staleness threshold. Events without a timestamp are never stale.
func (e *Epics) staleEvent(event generationEvent) bool {
	if event.Time == 0 {
		return false
	}
	return time.Since(time.Unix(event.Time, 0)) > e.config().GenerationStale
}

// generationTerminal runs the error tail of a build: the toast, then the
// same completion fan-out a successful build runs, so the graph reflects
// whatever the job managed to produce before failing.
func (e *Epics) generationTerminal(text string) {
	e.dispatch.Dispatch(
		intents.ShowToast{Level: intents.ToastError, Text: text},
		intents.GenerationFinished{},
	)
}

func (e *Epics) generationStalled() {
	e.logger.Warn("Generation event stream went quiet past the staleness threshold")
	e.generationTerminal("Generation appears to be stuck")
}

func (e *Epics) generationDown(cause error) {
	if errors.IsCanceled(errors.Classify(cause)) || e.consumed(cause) {
		return
	}
	e.logger.Warn("Generation event stream failed", zap.Error(cause))
	e.generationTerminal("Lost track of the running generation")
}

// handleGenerationFinished runs the ordered tail of a completed build: the
// renderer is gated first, then graph, documents and history availability
// are re-read in sequence, and only then does the visible status flip to
// FINISHED.
func (e *Epics) handleGenerationFinished(ctx context.Context, a intents.GenerationFinished) {
	e.runner.Spawn(ctx, func(ctx context.Context) {
		if a.Etag != "" {
			e.dispatch.Dispatch(intents.SetEtag{Etag: a.Etag})
		}
		e.dispatch.Dispatch(intents.SetGraphReady{Ready: false})
		e.fetchGraph(ctx, true)
		e.fetchSources(ctx)
		e.fetchUndoRedo(ctx)
		e.dispatch.Dispatch(
			intents.SetGeneratingStatus{Text: ""},
			intents.SetGenerationStatus{Status: generation.StatusFinished},
		)
	})
}
