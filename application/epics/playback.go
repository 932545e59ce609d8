package epics

import (
	"context"
	"time"

	"mindmesh/application/intents"
	"mindmesh/application/playback"
	"mindmesh/domain/graph"
)

const keyPlaybackStream = "playback-stream"

// handlePlaybackInit seeds the replay engine and projects its initial state
// into the store. Replay shares the live state slices; the caller is
// expected to have stopped the standing subscriptions first.
func (e *Epics) handlePlaybackInit(ctx context.Context, a intents.PlaybackInit) {
	e.runner.Cancel(keyPlaybackStream)

	e.pbMu.Lock()
	e.pb = playback.NewEngine(a.Record)
	unavailable := e.pb.Unavailable()
	e.pbMu.Unlock()

	if unavailable {
		e.logger.Info("Playback record holds no actions")
		e.dispatch.Dispatch(intents.ShowToast{Level: intents.ToastInfo, Text: "Nothing to play back"})
		return
	}
	e.projectPlayback(graph.UpdateRelayout)
}

func (e *Epics) handlePlaybackNext(ctx context.Context) {
	e.pbMu.Lock()
	if e.pb == nil || e.pb.Unavailable() {
		e.pbMu.Unlock()
		return
	}
	e.pb.Next()
	streaming := e.pb.Streaming()
	e.pbMu.Unlock()

	e.projectPlayback(graph.UpdateRelayout)
	if streaming {
		e.startPlaybackStream(ctx)
	}
}

func (e *Epics) handlePlaybackPrevious() {
	e.runner.Cancel(keyPlaybackStream)

	e.pbMu.Lock()
	if e.pb == nil || e.pb.Unavailable() {
		e.pbMu.Unlock()
		return
	}
	e.pb.Previous()
	e.pbMu.Unlock()

	e.projectPlayback(graph.UpdateRelayout)
}

// startPlaybackStream drives the simulated bot stream, one chunk per tick,
// until the recorded message is fully typed out.
func (e *Epics) startPlaybackStream(ctx context.Context) {
	e.runner.Switch(ctx, keyPlaybackStream, func(ctx context.Context) {
		ticker := time.NewTicker(e.config().PlaybackTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.pbMu.Lock()
				done := e.pb.StreamTick()
				msgs := e.pb.Conversation()
				e.pbMu.Unlock()

				e.dispatch.Dispatch(intents.SetConversation{Messages: msgs})
				if done {
					e.dispatch.Dispatch(intents.SetStreaming{Streaming: false})
					return
				}
			}
		}
	})
}

// projectPlayback mirrors the engine's reconstructed state into the store.
func (e *Epics) projectPlayback(mode graph.UpdateMode) {
	e.pbMu.Lock()
	snap := e.pb.Graph()
	msgs := e.pb.Conversation()
	input := e.pb.InputText()
	streaming := e.pb.Streaming()
	e.pbMu.Unlock()

	e.dispatch.Dispatch(
		intents.SetElements{Elements: snap.Elements, Mode: mode},
		intents.SetVisited{Visited: snap.Visited},
		intents.SetFocusNode{ID: snap.FocusNodeID},
		intents.SetDepth{Depth: snap.Depth},
		intents.SetConversation{Messages: msgs},
		intents.SetInputText{Text: input},
		intents.SetStreaming{Streaming: streaming},
	)
}
