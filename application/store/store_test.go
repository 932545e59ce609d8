package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/domain/conversation"
	"mindmesh/domain/generation"
	"mindmesh/domain/graph"
	"mindmesh/domain/source"
)

func msg(id, content string) conversation.Message {
	return conversation.Message{ID: id, Role: conversation.RoleUser, Content: content}
}

func TestStoreSessionSlice(t *testing.T) {
	s := New(zap.NewNop())

	s.Reduce(intents.SetEtag{Etag: "v1"})
	assert.Equal(t, "v1", s.Etag())

	s.Reduce(intents.RequestStarted{})
	s.Reduce(intents.RequestStarted{})
	assert.Equal(t, 2, s.InFlight())
	s.Reduce(intents.RequestFinished{})
	assert.Equal(t, 1, s.InFlight())

	s.Reduce(intents.SetOffline{Offline: true})
	assert.True(t, s.Offline())

	s.Reduce(intents.RedirectToSignIn{})
	assert.Equal(t, RedirectSignIn, s.Redirect())
}

func TestStoreInFlightNeverNegative(t *testing.T) {
	s := New(zap.NewNop())
	s.Reduce(intents.RequestFinished{})
	assert.Equal(t, 0, s.InFlight())
}

func TestStoreToastsDrain(t *testing.T) {
	s := New(zap.NewNop())
	s.Reduce(intents.ShowToast{Level: intents.ToastError, Text: "failed"})

	toasts := s.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "failed", toasts[0].Text)
	assert.Empty(t, s.Toasts())
}

func TestStoreElementsUpdateSignal(t *testing.T) {
	s := New(zap.NewNop())
	sig0, _ := s.UpdateSignal()

	s.Reduce(intents.SetElements{
		Elements: []graph.Element{{ID: "n1", Kind: graph.KindNode, Node: graph.NodeData{Label: "root"}}},
		Mode:     graph.UpdateRelayout,
	})
	sig1, mode := s.UpdateSignal()
	assert.Greater(t, sig1, sig0)
	assert.Equal(t, graph.UpdateRelayout, mode)

	s.Reduce(intents.SetFocusNode{ID: "n1"})
	sig2, mode := s.UpdateSignal()
	assert.Greater(t, sig2, sig1)
	assert.Equal(t, graph.UpdateRefresh, mode)
}

func TestStoreNavigateRecordsVisitedAndSynthesizesEdge(t *testing.T) {
	s := New(zap.NewNop())
	s.Reduce(intents.SetElements{
		Elements: []graph.Element{
			{ID: "a", Kind: graph.KindNode, Node: graph.NodeData{Label: "A"}},
			{ID: "b", Kind: graph.KindNode, Node: graph.NodeData{Label: "B"}},
		},
		Mode: graph.UpdateRelayout,
	})
	s.Reduce(intents.SetFocusNode{ID: "a"})
	s.Reduce(intents.NavigateToNode{ID: "b"})

	assert.Equal(t, "b", s.FocusNodeID())
	assert.Equal(t, map[string]string{"b": "a"}, s.Visited())
	assert.True(t, graph.HasEdgeBetween(s.Elements(), "a", "b"), "manual edge synthesized")
	_, mode := s.UpdateSignal()
	assert.Equal(t, graph.UpdateRelayout, mode)

	// Navigating back over an existing edge adds nothing.
	before := len(s.Elements())
	s.Reduce(intents.NavigateToNode{ID: "a"})
	assert.Len(t, s.Elements(), before)
}

func TestStoreSourceStatusPatch(t *testing.T) {
	s := New(zap.NewNop())
	s.Reduce(intents.SetSources{
		Sources: []source.Source{
			{ID: "s1", Version: 1, Status: source.StatusInProgress},
			{ID: "s1", Version: 2, Status: source.StatusInProgress},
		},
		Status: generation.StatusNotStarted,
	})
	s.Reduce(intents.SetSourceStatus{ID: "s1", Version: 2, Status: source.StatusFailed})

	sources := s.Sources()
	assert.Equal(t, source.StatusInProgress, sources[0].Status)
	assert.Equal(t, source.StatusFailed, sources[1].Status)
}

func TestStoreConversationSlice(t *testing.T) {
	s := New(zap.NewNop())
	s.Reduce(intents.AppendMessage{Message: msg("m1", "hi")})
	s.Reduce(intents.AppendMessage{Message: msg("m2", "partial")})
	s.Reduce(intents.ReplaceLastMessage{Message: msg("m2", "complete")})

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "complete", msgs[1].Content)

	s.Reduce(intents.DropLastMessages{Count: 2})
	assert.Empty(t, s.Messages())
}

func TestStoreGenerationSlice(t *testing.T) {
	s := New(zap.NewNop())
	assert.Equal(t, generation.StatusNotStarted, s.GenerationStatus())

	s.Reduce(intents.SetGenerationStatus{Status: generation.StatusInProgress})
	s.Reduce(intents.SetGeneratingStatus{Text: "analyzing sources"})
	assert.Equal(t, generation.StatusInProgress, s.GenerationStatus())
	assert.Equal(t, "analyzing sources", s.GeneratingStatus())
}
