package playback

import (
	"github.com/google/uuid"

	"mindmesh/domain/conversation"
	"mindmesh/domain/graph"
)

// StreamChunkSize is how many characters of the recorded bot message one
// simulated streaming tick appends.
const StreamChunkSize = 8

// Engine is the step-indexed replay state machine. It is not safe for
// concurrent use; the playback epic serializes access.
type Engine struct {
	record Record

	step         int
	unavailable  bool
	conv         []conversation.Message
	inputText    string
	current      Snapshot
	streaming    bool
	streamTarget string
	streamPos    int
	finalNodes   []string
}

// NewEngine seeds an engine with a recorded session. An empty action list
// marks playback unavailable.
func NewEngine(record Record) *Engine {
	e := &Engine{record: record}
	if len(record.Actions) == 0 {
		e.unavailable = true
		return e
	}
	for i, m := range record.Messages {
		if i >= 2 {
			break
		}
		e.conv = append(e.conv, m)
	}
	e.current = cloneSnapshot(record.Actions[0].Snapshot)
	return e
}

// Unavailable reports whether the record held no actions.
func (e *Engine) Unavailable() bool { return e.unavailable }

// Step returns the current index into the recorded action list.
func (e *Engine) Step() int { return e.step }

// Conversation returns the reconstructed message list.
func (e *Engine) Conversation() []conversation.Message { return e.conv }

// InputText returns the chat-input content surfaced by FillInput steps.
func (e *Engine) InputText() string { return e.inputText }

// Graph returns the reconstructed graph state at the current step.
func (e *Engine) Graph() Snapshot { return e.current }

// Streaming reports whether a simulated bot stream is in progress.
func (e *Engine) Streaming() bool { return e.streaming }

// Next advances one step. Beyond the end of the recording it is a no-op.
func (e *Engine) Next() {
	if e.unavailable || e.step+1 >= len(e.record.Actions) {
		return
	}
	e.step++
	action := e.record.Actions[e.step]

	switch action.Type {
	case ActionFillInput:
		// The recorded message whose id matches the focused node holds the
		// text the user was typing; a miss shows an empty input box.
		e.inputText = ""
		for _, m := range e.record.Messages {
			if m.ID == action.Snapshot.FocusNodeID {
				e.inputText = m.Content
				break
			}
		}
	case ActionUpdateConversation:
		e.applyConversationStep(action)
	case ActionChangeFocusNode, ActionChangeDepth:
		e.current = cloneSnapshot(action.Snapshot)
	case ActionInit:
		e.current = cloneSnapshot(action.Snapshot)
	}
}

// Previous rewinds one step. The restored elements, visited map, depth and
// focus come from the action before the one being undone. An Init restore
// target recorded without a focus carries no explicit previous node, so in
// that one case the focus is derived from the undone step's own visited-node
// map instead.
func (e *Engine) Previous() {
	if e.unavailable || e.step <= 0 {
		return
	}
	undone := e.record.Actions[e.step]
	before := e.record.Actions[e.step-1]

	switch undone.Type {
	case ActionUpdateConversation:
		e.cancelStream()
		if n := len(e.conv); n >= 2 {
			e.conv = e.conv[:n-2]
		}
	case ActionFillInput:
		e.inputText = ""
	}

	focus := before.Snapshot.FocusNodeID
	if focus == "" && before.Type == ActionInit {
		focus = undone.Snapshot.Visited[undone.Snapshot.FocusNodeID]
	}

	restored := cloneSnapshot(before.Snapshot)
	restored.FocusNodeID = focus
	e.current = restored
	e.step--
}

// applyConversationStep appends the next recorded user+bot pair. A bot
// message carrying a graph-elements attachment replays as an AI-generated
// node: a placeholder node and edge are synthesized, focus navigates to the
// placeholder, and the bot message starts empty and streams in.
func (e *Engine) applyConversationStep(action Action) {
	i := len(e.conv)
	if i+1 >= len(e.record.Messages) {
		return
	}
	user := e.record.Messages[i]
	bot := e.record.Messages[i+1]

	if !bot.HasElementsAttachment() {
		e.conv = append(e.conv, user, bot)
		e.current = cloneSnapshot(action.Snapshot)
		return
	}

	placeholder := graph.Element{
		ID:   uuid.New().String(),
		Kind: graph.KindNode,
		Node: graph.NodeData{Label: graph.PlaceholderLabel, Questions: []string{user.Content}},
	}
	link := graph.NewManualEdge(e.current.FocusNodeID, placeholder.ID)

	next := cloneSnapshot(e.current)
	next.Elements = append(next.Elements, placeholder, link)
	next.Visited[placeholder.ID] = e.current.FocusNodeID
	next.FocusNodeID = placeholder.ID
	e.current = next

	pending := bot
	pending.Content = ""
	pending.AvailableNodes = nil
	e.conv = append(e.conv, user, pending)

	e.streaming = true
	e.streamTarget = bot.Content
	e.streamPos = 0
	e.finalNodes = bot.AvailableNodes
}

// StreamTick appends the next chunk of the simulated bot stream to the last
// playback message. It reports true when the stream finished (or none was in
// progress).
func (e *Engine) StreamTick() bool {
	if !e.streaming {
		return true
	}
	end := e.streamPos + StreamChunkSize
	if end > len(e.streamTarget) {
		end = len(e.streamTarget)
	}
	last := len(e.conv) - 1
	e.conv[last].Content += e.streamTarget[e.streamPos:end]
	e.streamPos = end

	if e.streamPos >= len(e.streamTarget) {
		e.conv[last].AvailableNodes = e.finalNodes
		e.cancelStream()
		return true
	}
	return false
}

// StreamedContent returns the partially streamed bot message.
func (e *Engine) StreamedContent() string {
	if len(e.conv) == 0 {
		return ""
	}
	return e.conv[len(e.conv)-1].Content
}

func (e *Engine) cancelStream() {
	e.streaming = false
	e.streamTarget = ""
	e.streamPos = 0
	e.finalNodes = nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := Snapshot{
		Elements:    graph.Clone(s.Elements),
		Visited:     make(map[string]string, len(s.Visited)),
		FocusNodeID: s.FocusNodeID,
		Depth:       s.Depth,
	}
	for k, v := range s.Visited {
		out.Visited[k] = v
	}
	return out
}
