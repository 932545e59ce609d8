package epics

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/domain/conversation"
	"mindmesh/domain/graph"
	"mindmesh/pkg/errors"
)

const keyCompletion = "completion"

type completionRequest struct {
	Messages      []conversation.Message `json:"messages"`
	AttachedNodes []string               `json:"attached_nodes,omitempty"`
}

// completionTurn is one chat turn's stream state. tailID tracks the id of
// the conversation's last message as long as it belongs to this turn; every
// teardown and replace checks it first, so a turn that was superseded by a
// newer SendMessage can no longer touch the conversation.
type completionTurn struct {
	e        *Epics
	question string
	tailID   string
}

// handleSendMessage runs one chat turn. The user message and an empty bot
// placeholder land in the conversation before the request goes out; the
// placeholder is then overwritten by each streamed snapshot. A new turn
// while one is streaming replaces the running one.
func (e *Epics) handleSendMessage(ctx context.Context, a intents.SendMessage) {
	history := e.conv.Messages()
	user := conversation.Message{
		ID:             uuid.New().String(),
		Role:           conversation.RoleUser,
		Content:        a.Text,
		AvailableNodes: a.AttachedNodes,
	}
	pending := conversation.Message{
		ID:   uuid.New().String(),
		Role: conversation.RoleBot,
	}
	e.dispatch.Dispatch(
		intents.SetInputText{Text: ""},
		intents.AppendMessage{Message: user},
		intents.AppendMessage{Message: pending},
		intents.SetStreaming{Streaming: true},
	)

	body := completionRequest{
		Messages:      append(history, user),
		AttachedNodes: a.AttachedNodes,
	}
	turn := &completionTurn{e: e, question: a.Text, tailID: pending.ID}

	e.runner.Switch(ctx, keyCompletion, func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, e.config().CompletionTimeout)
		defer cancel()
		turn.stream(ctx, body)
	})
}

// owns reports whether the conversation tail still belongs to this turn.
func (t *completionTurn) owns() bool {
	msgs := t.e.conv.Messages()
	n := len(msgs)
	return n > 0 && msgs[n-1].ID == t.tailID
}

// replace overwrites the tail with a streamed snapshot and follows the
// server-assigned message id from then on.
func (t *completionTurn) replace(msg conversation.Message) {
	if !t.owns() {
		return
	}
	t.e.dispatch.Dispatch(intents.ReplaceLastMessage{Message: msg})
	t.tailID = msg.ID
}

func (t *completionTurn) stream(ctx context.Context, body completionRequest) {
	rc, err := t.e.streams.RawStream(ctx, http.MethodPost, t.e.routes.Completion(), body)
	if err != nil {
		t.ended(ctx, err)
		return
	}
	defer rc.Close()

	var acc conversation.Accumulator
	buf := make([]byte, 4096)
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			if msg, ok := acc.Feed(buf[:n]); ok {
				t.replace(msg)
			}
		}
		if err == io.EOF {
			t.finished(&acc)
			return
		}
		if err != nil {
			t.ended(ctx, err)
			return
		}
	}
}

// finished runs the final parse and, when the bot message carries a graph
// fragment, merges it into the map with the duplicate toast enabled.
func (t *completionTurn) finished(acc *conversation.Accumulator) {
	if !t.owns() {
		return
	}
	e := t.e
	final, ok := acc.Finish()
	if !ok {
		e.dispatch.Dispatch(intents.SetStreaming{Streaming: false})
		t.dropEmptyTurn()
		return
	}
	t.replace(final)

	if final.HasElementsAttachment() {
		els, err := conversation.ExtractElements(final, t.question)
		if err != nil {
			e.logger.Warn("Discarding malformed elements attachment", zap.Error(err))
		} else if len(els) > 0 {
			res := graph.AddOrUpdateElements(e.graph.Elements(), els, e.graph.FocusNodeID())
			e.dispatch.Dispatch(e.mergeActions(res, graph.UpdateRelayout, true)...)
		}
	}
	e.dispatch.Dispatch(intents.SetStreaming{Streaming: false})
	e.metrics.RequestsTotal.WithLabelValues("completion").Inc()
}

// ended resolves a turn that did not reach a natural end. A turn already
// superseded by a newer SendMessage emits nothing, so its teardown cannot
// delete the replacing turn's messages or clear its streaming flag. A
// user-initiated stop keeps whatever partial content arrived and says
// nothing; a timeout and a transport failure both surface a toast, and a
// turn that never produced content is removed entirely so the conversation
// doesn't keep an empty bot bubble.
func (t *completionTurn) ended(ctx context.Context, cause error) {
	if !t.owns() {
		return
	}
	e := t.e
	e.dispatch.Dispatch(intents.SetStreaming{Streaming: false})

	classified := errors.Classify(cause)
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		e.metrics.CompletionTimeouts.Inc()
		t.dropEmptyTurn()
		e.dispatch.Dispatch(intents.ShowToast{
			Level: intents.ToastError,
			Text:  "The assistant took too long to respond",
		})
	case errors.IsCanceled(classified):
		t.dropEmptyTurn()
	case e.consumed(cause):
		t.dropEmptyTurn()
	default:
		e.logger.Warn("Completion stream failed", zap.Error(cause))
		e.dispatch.Dispatch(
			intents.DropLastMessages{Count: 2},
			intents.ShowToast{Level: intents.ToastError, Text: "Couldn't get a response"},
		)
	}
}

// dropEmptyTurn removes the trailing user+bot pair when the bot placeholder
// never received content.
func (t *completionTurn) dropEmptyTurn() {
	msgs := t.e.conv.Messages()
	n := len(msgs)
	if n >= 2 && msgs[n-1].ID == t.tailID && msgs[n-1].Content == "" {
		t.e.dispatch.Dispatch(intents.DropLastMessages{Count: 2})
	}
}
