package epics

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh/application/intents"
	"mindmesh/application/ports"
	"mindmesh/domain/graph"
)

func graphBody(t *testing.T, payload graphPayload) string {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(data)
}

func TestFetchGraphMergesAndSetsRoot(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	exec.respond = func(req ports.Request) fakeResponse {
		return fakeResponse{status: 200, body: graphBody(t, graphPayload{
			Elements: []graph.Element{replayNode("root", "Root"), replayNode("n1", "First")},
			RootID:   "root",
		})}
	}

	e.fetchGraph(context.Background(), false)

	assert.Len(t, disp.store.Elements(), 2)
	assert.Equal(t, "root", disp.store.RootNodeID())
	assert.False(t, disp.store.GraphReady())
}

func TestFetchGraphRevealReopensRenderer(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	exec.respond = func(req ports.Request) fakeResponse {
		return fakeResponse{status: 200, body: graphBody(t, graphPayload{RootID: "root"})}
	}

	e.fetchGraph(context.Background(), true)

	assert.True(t, disp.has(func(i intents.Intent) bool {
		_, ok := i.(intents.RevealGeneratedEdges)
		return ok
	}))
	assert.True(t, disp.store.GraphReady())
}

func TestCreateNodeLinksUnderParent(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	exec.respond = func(req ports.Request) fakeResponse {
		// Echo the submitted elements back as the authoritative collection.
		body, _ := req.Body.(graphPayload)
		return fakeResponse{status: 200, body: graphBody(t, graphPayload{Elements: body.Elements})}
	}

	disp.Dispatch(intents.SetElements{Elements: []graph.Element{replayNode("root", "Root")}})
	e.handleCreateNode(context.Background(), intents.CreateNode{Label: "Child", ParentID: "root"})
	e.runner.Wait()

	sent := exec.sent()
	require.Len(t, sent, 1)
	body := sent[0].Body.(graphPayload)
	require.Len(t, body.Elements, 2)
	assert.Equal(t, graph.KindNode, body.Elements[0].Kind)
	assert.Equal(t, graph.KindEdge, body.Elements[1].Kind)
	assert.Equal(t, "root", body.Elements[1].Edge.Source)

	assert.Equal(t, body.Elements[0].ID, disp.store.FocusNodeID())
	assert.True(t, disp.store.NodeEditorOpen())
}

func TestCreateEdgeSkipsExistingConnection(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	disp.Dispatch(intents.SetElements{Elements: []graph.Element{
		replayNode("a", "A"),
		replayNode("b", "B"),
		{ID: "e1", Kind: graph.KindEdge, Edge: graph.EdgeData{Source: "a", Target: "b", Type: graph.EdgeManual}},
	}})

	e.handleCreateEdge(context.Background(), intents.CreateEdge{Source: "b", Target: "a"})
	e.runner.Wait()

	assert.Empty(t, exec.sent())
	assert.True(t, disp.has(func(i intents.Intent) bool {
		toast, ok := i.(intents.ShowToast)
		return ok && toast.Level == intents.ToastInfo
	}))
}

func TestDeleteElementRevertsOnFailure(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	elements := []graph.Element{
		replayNode("a", "A"),
		replayNode("b", "B"),
		{ID: "e1", Kind: graph.KindEdge, Edge: graph.EdgeData{Source: "a", Target: "b", Type: graph.EdgeManual}},
	}
	disp.Dispatch(intents.SetElements{Elements: elements}, intents.SetFocusNode{ID: "a"}, intents.SetNodeEditorOpen{Open: true})

	exec.respond = func(req ports.Request) fakeResponse {
		return fakeResponse{status: 500, body: "boom"}
	}
	e.handleDeleteElement(context.Background(), intents.DeleteElement{ID: "a"})
	e.runner.Wait()

	// Optimistic removal cascaded to the incident edge and dropped focus,
	// then the failed DELETE restored the collection.
	assert.True(t, disp.has(func(i intents.Intent) bool {
		set, ok := i.(intents.SetElements)
		return ok && len(set.Elements) == 1
	}))
	assert.Len(t, disp.store.Elements(), 3)
	assert.True(t, disp.has(func(i intents.Intent) bool {
		toast, ok := i.(intents.ShowToast)
		return ok && toast.Level == intents.ToastError
	}))
}

func TestUndoAdjustsEditorForSingleNodeDiff(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	current := []graph.Element{replayNode("a", "A")}
	disp.Dispatch(intents.SetElements{Elements: current})

	restored := append(graph.Clone(current), replayNode("b", "B"))
	exec.respond = func(req ports.Request) fakeResponse {
		assert.Equal(t, http.MethodPost, req.Method)
		return fakeResponse{status: 200, body: graphBody(t, graphPayload{Elements: restored})}
	}

	e.handleHistory(context.Background(), "undo")
	e.runner.Wait()

	// One node reappeared: the editor opens on it.
	assert.True(t, disp.store.NodeEditorOpen())
	assert.Equal(t, "b", disp.store.FocusNodeID())
	assert.Len(t, disp.store.Elements(), 2)
}

func TestUpdateNodeDataOptimisticOverlay(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	disp.Dispatch(intents.SetElements{Elements: []graph.Element{replayNode("a", "Old")}})
	exec.respond = func(req ports.Request) fakeResponse {
		return fakeResponse{status: 200, body: "{}"}
	}

	e.handleUpdateNodeData(context.Background(), intents.UpdateNodeData{
		ID:   "a",
		Data: graph.NodeData{Label: "New", Icon: "star"},
	})
	e.runner.Wait()

	els := disp.store.Elements()
	require.Len(t, els, 1)
	assert.Equal(t, "New", els[0].Node.Label)
	assert.Equal(t, "star", els[0].Node.Icon)
}
