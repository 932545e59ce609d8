package intents

import (
	"mindmesh/domain/conversation"
	"mindmesh/domain/generation"
	"mindmesh/domain/graph"
	"mindmesh/domain/source"
)

// State actions. Each is reduced synchronously on dispatch; none performs
// I/O. Validation is a formality for most of them.

// SetEtag stores the optimistic-concurrency token. Always dispatched before
// any response-derived action of the same request.
type SetEtag struct {
	Etag string
}

func (SetEtag) Validate() error { return nil }

// RequestStarted increments the in-flight counter.
type RequestStarted struct{}

func (RequestStarted) Validate() error { return nil }

// RequestFinished decrements the in-flight counter.
type RequestFinished struct{}

func (RequestFinished) Validate() error { return nil }

// SetOffline flips the global offline flag.
type SetOffline struct {
	Offline bool
}

func (SetOffline) Validate() error { return nil }

// RedirectToSignIn is the terminal reaction to HTTP 401.
type RedirectToSignIn struct{}

func (RedirectToSignIn) Validate() error { return nil }

// RedirectToForbidden is the terminal reaction to HTTP 403.
type RedirectToForbidden struct{}

func (RedirectToForbidden) Validate() error { return nil }

// ShowToast surfaces a user-visible notification. This is the only channel
// user-facing failures travel on.
type ShowToast struct {
	Level ToastLevel
	Text  string
}

func (t ShowToast) Validate() error {
	if t.Text == "" {
		return errEmpty("toast text")
	}
	return nil
}

// SetSources replaces the source collection and its derived maps.
type SetSources struct {
	Sources   []source.Source
	Names     map[string]string
	Status    generation.Status
	Generated bool
}

func (SetSources) Validate() error { return nil }

// SetSourceStatus adjusts one (id, version) pair, used by the indexing
// subscription and its local timeout.
type SetSourceStatus struct {
	ID      string `validate:"required"`
	Version int    `validate:"min=0"`
	Status  source.Status
}

func (s SetSourceStatus) Validate() error { return validate.Struct(s) }

// SetGenerationStatus moves the build-job state machine.
type SetGenerationStatus struct {
	Status generation.Status
}

func (s SetGenerationStatus) Validate() error {
	if !s.Status.Valid() {
		return errEmpty("generation status")
	}
	return nil
}

// SetGeneratingStatus carries the verbatim status text forwarded from the
// generation-status stream to the UI.
type SetGeneratingStatus struct {
	Text string
}

func (SetGeneratingStatus) Validate() error { return nil }

// SetGenerated flips the "a mindmap exists" flag.
type SetGenerated struct {
	Generated bool
}

func (SetGenerated) Validate() error { return nil }

// SetElements replaces the element collection wholesale.
type SetElements struct {
	Elements []graph.Element
	Mode     graph.UpdateMode
}

func (SetElements) Validate() error { return nil }

// SetRootNode records the root node id.
type SetRootNode struct {
	ID string
}

func (SetRootNode) Validate() error { return nil }

// SetFocusNode moves node focus.
type SetFocusNode struct {
	ID string
}

func (SetFocusNode) Validate() error { return nil }

// SetFocusEdge moves edge focus.
type SetFocusEdge struct {
	ID string
}

func (SetFocusEdge) Validate() error { return nil }

// SetHighlighted replaces the highlighted-node set.
type SetHighlighted struct {
	IDs []string
}

func (SetHighlighted) Validate() error { return nil }

// SetNodeEditorOpen toggles the node editor.
type SetNodeEditorOpen struct {
	Open bool
}

func (SetNodeEditorOpen) Validate() error { return nil }

// SetGraphReady gates the renderer while a rebuild is pending.
type SetGraphReady struct {
	Ready bool
}

func (SetGraphReady) Validate() error { return nil }

// RevealGeneratedEdges marks generated edges visible after a build.
type RevealGeneratedEdges struct{}

func (RevealGeneratedEdges) Validate() error { return nil }

// SetUndoRedo records history availability.
type SetUndoRedo struct {
	CanUndo bool
	CanRedo bool
}

func (SetUndoRedo) Validate() error { return nil }

// SetDepth sets the visible graph depth.
type SetDepth struct {
	Depth int
}

func (SetDepth) Validate() error { return nil }

// SetVisited replaces the visited-node map (playback restore path).
type SetVisited struct {
	Visited map[string]string
}

func (SetVisited) Validate() error { return nil }

// NavigateToNode moves focus and records the predecessor in the visited
// map, synthesizing a manual edge between the two when the server knows of
// none.
type NavigateToNode struct {
	ID string `validate:"required"`
}

func (n NavigateToNode) Validate() error { return validate.Struct(n) }

// SetConversation replaces the message list wholesale (playback
// projection).
type SetConversation struct {
	Messages []conversation.Message
}

func (SetConversation) Validate() error { return nil }

// AppendMessage appends one conversation turn.
type AppendMessage struct {
	Message conversation.Message
}

func (AppendMessage) Validate() error { return nil }

// ReplaceLastMessage overwrites the trailing conversation turn, used for
// partial completion snapshots.
type ReplaceLastMessage struct {
	Message conversation.Message
}

func (ReplaceLastMessage) Validate() error { return nil }

// DropLastMessages removes the trailing n turns (playback revert).
type DropLastMessages struct {
	Count int `validate:"min=1"`
}

func (d DropLastMessages) Validate() error { return validate.Struct(d) }

// SetStreaming flips the completion-in-progress flag.
type SetStreaming struct {
	Streaming bool
}

func (SetStreaming) Validate() error { return nil }

// SetInputText fills the chat input box (playback FillInput).
type SetInputText struct {
	Text string
}

func (SetInputText) Validate() error { return nil }

// SetThemeConfig applies a theme configuration locally.
type SetThemeConfig struct {
	Theme  string
	Config map[string]interface{}
}

func (SetThemeConfig) Validate() error { return nil }

// SetGenerateParams applies generation settings locally.
type SetGenerateParams struct {
	Params map[string]interface{}
}

func (SetGenerateParams) Validate() error { return nil }

type emptyFieldError string

func (e emptyFieldError) Error() string { return string(e) + " must not be empty" }

func errEmpty(field string) error { return emptyFieldError(field) }
