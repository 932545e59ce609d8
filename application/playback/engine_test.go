package playback

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh/domain/conversation"
	"mindmesh/domain/graph"
)

func pbNode(id, label string) graph.Element {
	return graph.Element{ID: id, Kind: graph.KindNode, Node: graph.NodeData{Label: label}}
}

func pbEdge(id, source, target string) graph.Element {
	return graph.Element{ID: id, Kind: graph.KindEdge, Edge: graph.EdgeData{Source: source, Target: target, Type: graph.EdgeGenerated}}
}

// testRecord builds a consistent recorded session:
//
//	step 0  Init               focus root
//	step 1  ChangeFocusNode    focus n1 (visited n1 -> root)
//	step 2  ChangeFocusNode    focus n2 (visited n2 -> n1)
//	step 3  ChangeDepth        depth 3
//	step 4  FillInput          input text is the message whose id is n2
//	step 5  UpdateConversation plain user+bot pair
func testRecord() Record {
	elements := []graph.Element{
		pbNode("root", "Root"),
		pbNode("n1", "First"),
		pbNode("n2", "Second"),
		pbEdge("e1", "root", "n1"),
		pbEdge("e2", "n1", "n2"),
	}
	return Record{
		Actions: []Action{
			{Type: ActionInit, Snapshot: Snapshot{Elements: elements, Visited: map[string]string{}, FocusNodeID: "root", Depth: 2}},
			{Type: ActionChangeFocusNode, Snapshot: Snapshot{Elements: elements, Visited: map[string]string{"n1": "root"}, FocusNodeID: "n1", Depth: 2}},
			{Type: ActionChangeFocusNode, Snapshot: Snapshot{Elements: elements, Visited: map[string]string{"n1": "root", "n2": "n1"}, FocusNodeID: "n2", Depth: 2}},
			{Type: ActionChangeDepth, Snapshot: Snapshot{Elements: elements, Visited: map[string]string{"n1": "root", "n2": "n1"}, FocusNodeID: "n2", Depth: 3}},
			{Type: ActionFillInput, Snapshot: Snapshot{Elements: elements, Visited: map[string]string{"n1": "root", "n2": "n1"}, FocusNodeID: "n2", Depth: 3}},
			{Type: ActionUpdateConversation, Snapshot: Snapshot{Elements: elements, Visited: map[string]string{"n1": "root", "n2": "n1"}, FocusNodeID: "n2", Depth: 3}},
		},
		Messages: []conversation.Message{
			{ID: "m1", Role: conversation.RoleUser, Content: "Hello"},
			{ID: "m2", Role: conversation.RoleBot, Content: "Hi, ask me about the map."},
			{ID: "n2", Role: conversation.RoleUser, Content: "Tell me about the second topic"},
			{ID: "m4", Role: conversation.RoleBot, Content: "The second topic is covered here."},
		},
	}
}

func TestEngineInit(t *testing.T) {
	e := NewEngine(testRecord())
	assert.False(t, e.Unavailable())
	assert.Equal(t, 0, e.Step())
	require.Len(t, e.Conversation(), 2)
	assert.Equal(t, "root", e.Graph().FocusNodeID)
	assert.Equal(t, 2, e.Graph().Depth)
}

func TestEngineInitEmptyRecord(t *testing.T) {
	e := NewEngine(Record{})
	assert.True(t, e.Unavailable())
	e.Next() // must not panic
	e.Previous()
	assert.Equal(t, 0, e.Step())
}

func TestEngineNextAppliesSnapshots(t *testing.T) {
	e := NewEngine(testRecord())

	e.Next()
	assert.Equal(t, "n1", e.Graph().FocusNodeID)

	e.Next()
	assert.Equal(t, "n2", e.Graph().FocusNodeID)
	assert.Equal(t, map[string]string{"n1": "root", "n2": "n1"}, e.Graph().Visited)

	e.Next()
	assert.Equal(t, 3, e.Graph().Depth)
}

func TestEngineFillInputLooksUpMessage(t *testing.T) {
	e := NewEngine(testRecord())
	for i := 0; i < 4; i++ {
		e.Next()
	}
	assert.Equal(t, 4, e.Step())
	assert.Equal(t, "Tell me about the second topic", e.InputText())
}

func TestEngineFillInputMissingMessageShowsEmpty(t *testing.T) {
	rec := testRecord()
	rec.Actions[4].Snapshot.FocusNodeID = "unknown"
	e := NewEngine(rec)
	for i := 0; i < 4; i++ {
		e.Next()
	}
	assert.Equal(t, "", e.InputText())
}

func TestEngineUpdateConversationAppendsPair(t *testing.T) {
	e := NewEngine(testRecord())
	for i := 0; i < 5; i++ {
		e.Next()
	}
	conv := e.Conversation()
	require.Len(t, conv, 4)
	assert.Equal(t, "n2", conv[2].ID)
	assert.Equal(t, "m4", conv[3].ID)
	assert.False(t, e.Streaming())
}

func TestEngineNextBeyondEndIsNoOp(t *testing.T) {
	e := NewEngine(testRecord())
	for i := 0; i < 10; i++ {
		e.Next()
	}
	assert.Equal(t, 5, e.Step())
}

func TestEngineNextThenPreviousRestoresState(t *testing.T) {
	e := NewEngine(testRecord())
	e.Next() // step 1

	beforeFocus := e.Graph().FocusNodeID
	beforeVisited := e.Graph().Visited
	beforeElements := e.Graph().Elements
	beforeDepth := e.Graph().Depth

	e.Next()
	e.Previous()

	assert.Equal(t, 1, e.Step())
	assert.Equal(t, beforeFocus, e.Graph().FocusNodeID)
	assert.Equal(t, beforeVisited, e.Graph().Visited)
	assert.Equal(t, beforeElements, e.Graph().Elements)
	assert.Equal(t, beforeDepth, e.Graph().Depth)
}

func TestEnginePreviousToUnfocusedInitUsesVisitedMap(t *testing.T) {
	rec := testRecord()
	rec.Actions[0].Snapshot.FocusNodeID = ""
	e := NewEngine(rec)
	e.Next() // step 1, focus n1

	// The Init step recorded no focus, so the restored focus comes from the
	// undone step's own visited map: n1 -> root.
	e.Previous()
	assert.Equal(t, 0, e.Step())
	assert.Equal(t, "root", e.Graph().FocusNodeID)
}

func TestEnginePreviousConversationStepKeepsFocus(t *testing.T) {
	rec := testRecord()
	// Init -> ChangeFocusNode -> UpdateConversation, mirroring a session
	// where the conversation step directly follows the first navigation.
	rec.Actions = []Action{
		rec.Actions[0],
		rec.Actions[1],
		{Type: ActionUpdateConversation, Snapshot: rec.Actions[1].Snapshot},
	}
	e := NewEngine(rec)
	e.Next() // focus n1
	e.Next() // conversation pair

	// Undoing the conversation step restores the focus recorded before it,
	// not a visited-map derivation.
	e.Previous()
	assert.Equal(t, 1, e.Step())
	assert.Equal(t, "n1", e.Graph().FocusNodeID)
	assert.Len(t, e.Conversation(), 2)
}

func TestEnginePreviousRevertsConversation(t *testing.T) {
	e := NewEngine(testRecord())
	for i := 0; i < 5; i++ {
		e.Next()
	}
	require.Len(t, e.Conversation(), 4)

	e.Previous()
	assert.Len(t, e.Conversation(), 2)
	assert.Equal(t, 4, e.Step())
}

func TestEnginePreviousAtStartIsNoOp(t *testing.T) {
	e := NewEngine(testRecord())
	e.Previous()
	assert.Equal(t, 0, e.Step())
	assert.Equal(t, "root", e.Graph().FocusNodeID)
}

func aiRecord(t *testing.T) Record {
	t.Helper()
	fragment, err := json.Marshal([]graph.Element{pbNode("gen1", "Generated answer")})
	require.NoError(t, err)

	rec := testRecord()
	rec.Messages = append(rec.Messages[:2],
		conversation.Message{ID: "m3", Role: conversation.RoleUser, Content: "Generate a node about X"},
		conversation.Message{
			ID:             "m4",
			Role:           conversation.RoleBot,
			Content:        "Here is what I know about X, summarized for you.",
			AvailableNodes: []string{"gen1"},
			Attachments:    []conversation.Attachment{{Type: conversation.ElementsAttachmentType, Content: string(fragment)}},
		},
	)
	rec.Actions = rec.Actions[:3]
	rec.Actions = append(rec.Actions, Action{Type: ActionUpdateConversation, Snapshot: rec.Actions[2].Snapshot})
	return rec
}

func TestEngineAIGeneratedNodeStreaming(t *testing.T) {
	e := NewEngine(aiRecord(t))
	e.Next()
	e.Next()
	e.Next() // UpdateConversation with elements attachment

	require.True(t, e.Streaming())
	conv := e.Conversation()
	require.Len(t, conv, 4)
	assert.Equal(t, "", conv[3].Content, "bot placeholder starts empty")
	assert.Empty(t, conv[3].AvailableNodes)

	// Focus navigated to a synthesized placeholder node linked to n2.
	g := e.Graph()
	focus := g.FocusNodeID
	require.NotEmpty(t, focus)
	idx := graph.IndexByID(g.Elements, focus)
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, graph.PlaceholderLabel, g.Elements[idx].Node.Label)
	assert.True(t, graph.HasEdgeBetween(g.Elements, "n2", focus))
	assert.Equal(t, "n2", g.Visited[focus])

	// Tokens stream in fixed-size chunks.
	done := e.StreamTick()
	assert.False(t, done)
	assert.Equal(t, "Here is ", e.StreamedContent())

	for !done {
		done = e.StreamTick()
	}
	final := e.Conversation()[3]
	assert.Equal(t, "Here is what I know about X, summarized for you.", final.Content)
	assert.Equal(t, []string{"gen1"}, final.AvailableNodes)
	assert.False(t, e.Streaming())
}

func TestEngineStreamDeterministicChunking(t *testing.T) {
	e := NewEngine(aiRecord(t))
	e.Next()
	e.Next()
	e.Next()

	total := "Here is what I know about X, summarized for you."
	var got string
	for !e.StreamTick() {
	}
	got = e.Conversation()[3].Content
	assert.Equal(t, total, got)
}
