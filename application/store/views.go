package store

import (
	"mindmesh/domain/conversation"
	"mindmesh/domain/generation"
	"mindmesh/domain/graph"
	"mindmesh/domain/source"
)

// The view interfaces are the read-only capabilities handed to epics and the
// request executor. Components depend on the narrowest view they need, never
// on the whole store.

// SessionView exposes the concurrency-control slice.
type SessionView interface {
	Etag() string
	InFlight() int
	Offline() bool
	Redirect() Redirect
}

// GraphView exposes current graph state.
type GraphView interface {
	Elements() []graph.Element
	FocusNodeID() string
	FocusEdgeID() string
	NodeEditorOpen() bool
	Depth() int
}

// SourceView exposes the document slice.
type SourceView interface {
	Sources() []source.Source
	SourceNames() map[string]string
	GenerationStatus() generation.Status
	Generated() bool
}

// ConversationView exposes the chat slice.
type ConversationView interface {
	Messages() []conversation.Message
	Streaming() bool
}

// SettingsView exposes theme and generation settings.
type SettingsView interface {
	Theme() string
	ThemeConfig() map[string]interface{}
	GenerateParams() map[string]interface{}
}

func (s *Store) Etag() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.etag
}

func (s *Store) InFlight() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.inFlight
}

func (s *Store) Offline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.offline
}

func (s *Store) Redirect() Redirect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.redirect
}

// Toasts drains and returns the queued notifications.
func (s *Store) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.session.toasts
	s.session.toasts = nil
	return out
}

func (s *Store) Elements() []graph.Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return graph.Clone(s.graph.elements)
}

func (s *Store) RootNodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.rootNodeID
}

func (s *Store) FocusNodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.focusNodeID
}

func (s *Store) FocusEdgeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.focusEdgeID
}

func (s *Store) Highlighted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.graph.highlighted...)
}

func (s *Store) Visited() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.graph.visited))
	for k, v := range s.graph.visited {
		out[k] = v
	}
	return out
}

func (s *Store) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.depth
}

func (s *Store) UpdateSignal() (int, graph.UpdateMode) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.updateSignal, s.graph.updateMode
}

func (s *Store) NodeEditorOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.nodeEditorOpen
}

func (s *Store) GraphReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.graphReady
}

func (s *Store) UndoRedo() (canUndo, canRedo bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.canUndo, s.graph.canRedo
}

func (s *Store) Sources() []source.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]source.Source(nil), s.sources.sources...)
}

func (s *Store) SourceNames() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources.names
}

func (s *Store) GenerationStatus() generation.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources.generationStatus
}

func (s *Store) GeneratingStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources.generatingStatus
}

func (s *Store) Generated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources.generated
}

func (s *Store) Messages() []conversation.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]conversation.Message(nil), s.conversation.messages...)
}

func (s *Store) Streaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversation.streaming
}

func (s *Store) InputText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversation.inputText
}

func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.theme
}

func (s *Store) ThemeConfig() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.themeConfig
}

func (s *Store) GenerateParams() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.generateParams
}
