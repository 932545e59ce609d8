// Package store owns the application state. All mutation flows through
// Reduce, invoked synchronously by the dispatcher on the dispatching
// goroutine; everything else reads through the view interfaces. The store is
// the single writer for every slice.
package store

import (
	"sync"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/domain/conversation"
	"mindmesh/domain/generation"
	"mindmesh/domain/graph"
	"mindmesh/domain/source"
)

// Redirect is the global session disposition produced by auth errors.
type Redirect string

const (
	RedirectNone      Redirect = ""
	RedirectSignIn    Redirect = "signin"
	RedirectForbidden Redirect = "forbidden"
)

// Toast is one queued user notification.
type Toast struct {
	Level intents.ToastLevel
	Text  string
}

type sessionState struct {
	etag     string
	inFlight int
	offline  bool
	redirect Redirect
	toasts   []Toast
}

type graphState struct {
	elements       []graph.Element
	rootNodeID     string
	focusNodeID    string
	focusEdgeID    string
	highlighted    []string
	visited        map[string]string
	depth          int
	updateSignal   int
	updateMode     graph.UpdateMode
	nodeEditorOpen bool
	graphReady     bool
	revealedEdges  bool
	canUndo        bool
	canRedo        bool
}

type sourceState struct {
	sources          []source.Source
	names            map[string]string
	generationStatus generation.Status
	generatingStatus string
	generated        bool
}

type conversationState struct {
	messages  []conversation.Message
	streaming bool
	inputText string
}

type settingsState struct {
	theme          string
	themeConfig    map[string]interface{}
	generateParams map[string]interface{}
}

// Store holds every state slice behind one mutex.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger

	session      sessionState
	graph        graphState
	sources      sourceState
	conversation conversationState
	settings     settingsState
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		graph: graphState{
			visited:    make(map[string]string),
			updateMode: graph.UpdateNone,
		},
		sources: sourceState{
			generationStatus: generation.StatusNotStarted,
		},
	}
}

// Reduce applies a state action. Effect intents fall through untouched.
func (s *Store) Reduce(intent intents.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch a := intent.(type) {
	case intents.SetEtag:
		s.session.etag = a.Etag
	case intents.RequestStarted:
		s.session.inFlight++
	case intents.RequestFinished:
		if s.session.inFlight > 0 {
			s.session.inFlight--
		}
	case intents.SetOffline:
		s.session.offline = a.Offline
	case intents.RedirectToSignIn:
		s.session.redirect = RedirectSignIn
	case intents.RedirectToForbidden:
		s.session.redirect = RedirectForbidden
	case intents.ShowToast:
		s.session.toasts = append(s.session.toasts, Toast{Level: a.Level, Text: a.Text})

	case intents.SetSources:
		s.sources.sources = a.Sources
		s.sources.names = a.Names
		s.sources.generationStatus = a.Status
		s.sources.generated = a.Generated
	case intents.SetSourceStatus:
		s.applySourceStatus(a)
	case intents.SetGenerationStatus:
		s.sources.generationStatus = a.Status
	case intents.SetGeneratingStatus:
		s.sources.generatingStatus = a.Text
	case intents.SetGenerated:
		s.sources.generated = a.Generated

	case intents.SetElements:
		s.graph.elements = a.Elements
		s.bumpSignal(a.Mode)
	case intents.SetRootNode:
		s.graph.rootNodeID = a.ID
	case intents.SetFocusNode:
		s.graph.focusNodeID = a.ID
		s.bumpSignal(graph.UpdateRefresh)
	case intents.SetFocusEdge:
		s.graph.focusEdgeID = a.ID
		s.bumpSignal(graph.UpdateRefresh)
	case intents.SetHighlighted:
		s.graph.highlighted = a.IDs
		s.bumpSignal(graph.UpdateRefresh)
	case intents.SetNodeEditorOpen:
		s.graph.nodeEditorOpen = a.Open
	case intents.SetGraphReady:
		s.graph.graphReady = a.Ready
	case intents.RevealGeneratedEdges:
		s.graph.revealedEdges = true
		s.bumpSignal(graph.UpdateRelayout)
	case intents.SetUndoRedo:
		s.graph.canUndo = a.CanUndo
		s.graph.canRedo = a.CanRedo
	case intents.SetDepth:
		s.graph.depth = a.Depth
	case intents.SetVisited:
		s.graph.visited = a.Visited
	case intents.NavigateToNode:
		s.applyNavigate(a.ID)

	case intents.SetConversation:
		s.conversation.messages = append([]conversation.Message(nil), a.Messages...)
	case intents.AppendMessage:
		s.conversation.messages = append(s.conversation.messages, a.Message)
	case intents.ReplaceLastMessage:
		if n := len(s.conversation.messages); n > 0 {
			s.conversation.messages[n-1] = a.Message
		}
	case intents.DropLastMessages:
		if n := len(s.conversation.messages); a.Count <= n {
			s.conversation.messages = s.conversation.messages[:n-a.Count]
		} else {
			s.conversation.messages = nil
		}
	case intents.SetStreaming:
		s.conversation.streaming = a.Streaming
	case intents.SetInputText:
		s.conversation.inputText = a.Text

	case intents.SetThemeConfig:
		s.settings.theme = a.Theme
		s.settings.themeConfig = a.Config
	case intents.SetGenerateParams:
		s.settings.generateParams = a.Params
	}
}

// applyNavigate moves node focus, records the predecessor in the visited
// map, and synthesizes a manual edge between the two when the graph holds
// none.
func (s *Store) applyNavigate(id string) {
	prev := s.graph.focusNodeID
	if prev != "" && prev != id {
		s.graph.visited[id] = prev
		if !graph.HasEdgeBetween(s.graph.elements, prev, id) {
			s.graph.elements = append(s.graph.elements, graph.NewManualEdge(prev, id))
			s.graph.focusNodeID = id
			s.bumpSignal(graph.UpdateRelayout)
			return
		}
	}
	s.graph.focusNodeID = id
	s.bumpSignal(graph.UpdateRefresh)
}

func (s *Store) applySourceStatus(a intents.SetSourceStatus) {
	for i := range s.sources.sources {
		if s.sources.sources[i].ID == a.ID && s.sources.sources[i].Version == a.Version {
			s.sources.sources[i].Status = a.Status
			return
		}
	}
}

func (s *Store) bumpSignal(mode graph.UpdateMode) {
	s.graph.updateSignal++
	s.graph.updateMode = mode
}
