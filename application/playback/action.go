// Package playback replays a previously recorded conversation and
// graph-navigation session step by step. Replay is a pure function of the
// recorded action list and the current step index; the only side-effecting
// part is the timer-driven simulated token streaming, which the epic layer
// drives through StreamTick.
package playback

import (
	"mindmesh/domain/conversation"
	"mindmesh/domain/graph"
)

// ActionType tags one recorded step.
type ActionType string

const (
	ActionInit               ActionType = "Init"
	ActionFillInput          ActionType = "FillInput"
	ActionUpdateConversation ActionType = "UpdateConversation"
	ActionChangeFocusNode    ActionType = "ChangeFocusNode"
	ActionChangeDepth        ActionType = "ChangeDepth"
)

// Snapshot is the graph state captured with every recorded action.
type Snapshot struct {
	Elements    []graph.Element   `json:"elements"`
	Visited     map[string]string `json:"visited"`
	FocusNodeID string            `json:"focus_node_id"`
	Depth       int               `json:"depth"`
}

// Action is one recorded step.
type Action struct {
	Type     ActionType `json:"type"`
	Snapshot Snapshot   `json:"snapshot"`
}

// Record is a full recorded session: the ordered action list plus the
// conversation it produced.
type Record struct {
	Actions  []Action               `json:"actions"`
	Messages []conversation.Message `json:"messages"`
}
