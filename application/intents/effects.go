package intents

import (
	"mindmesh/application/playback"
	"mindmesh/domain/graph"
)

// Effect intents. The store ignores these; epics react to them with
// asynchronous work and dispatch further intents.

// LoadApp is the initial-load intent: fetch graph, sources and history
// availability, then open the standing subscriptions.
type LoadApp struct{}

func (LoadApp) Validate() error { return nil }

// FetchGraph refreshes the element collection from the server. Reveal makes
// the success path additionally reveal generated edges and mark the graph
// ready (the tail of the generation-finished sequence).
type FetchGraph struct {
	Reveal bool
}

func (FetchGraph) Validate() error { return nil }

// FetchSources refreshes the document collection.
type FetchSources struct{}

func (FetchSources) Validate() error { return nil }

// FetchUndoRedo refreshes history availability.
type FetchUndoRedo struct{}

func (FetchUndoRedo) Validate() error { return nil }

// CreateNode adds a node, optionally linked under a parent.
type CreateNode struct {
	Label    string `validate:"required"`
	ParentID string
}

func (c CreateNode) Validate() error { return validate.Struct(c) }

// CreateEdge links two existing nodes.
type CreateEdge struct {
	Source string `validate:"required"`
	Target string `validate:"required,nefield=Source"`
}

func (c CreateEdge) Validate() error { return validate.Struct(c) }

// UpdateNodeData patches one node's payload.
type UpdateNodeData struct {
	ID   string `validate:"required"`
	Data graph.NodeData
}

func (u UpdateNodeData) Validate() error { return validate.Struct(u) }

// DeleteElement removes an element; node deletion cascades to incident
// edges.
type DeleteElement struct {
	ID string `validate:"required"`
}

func (d DeleteElement) Validate() error { return validate.Struct(d) }

// Undo reverts the last graph mutation.
type Undo struct{}

func (Undo) Validate() error { return nil }

// Redo reapplies the last undone mutation.
type Redo struct{}

func (Redo) Validate() error { return nil }

// Regenerate starts a mindmap build from the current sources.
type Regenerate struct{}

func (Regenerate) Validate() error { return nil }

// DeleteSource removes a document per the deletion policy.
type DeleteSource struct {
	ID string `validate:"required"`
}

func (d DeleteSource) Validate() error { return validate.Struct(d) }

// SubscribeSourceEvents opens the per-version indexing stream.
type SubscribeSourceEvents struct {
	ID      string `validate:"required"`
	Version int    `validate:"min=0"`
}

func (s SubscribeSourceEvents) Validate() error { return validate.Struct(s) }

// SubscribeGenerationStatus opens the build-status stream.
type SubscribeGenerationStatus struct{}

func (SubscribeGenerationStatus) Validate() error { return nil }

// SubscribeEtagPush opens the ETag push stream notifying external changes.
type SubscribeEtagPush struct{}

func (SubscribeEtagPush) Validate() error { return nil }

// SubscribeTheme opens the live theme-config stream.
type SubscribeTheme struct {
	Theme string `validate:"required"`
}

func (s SubscribeTheme) Validate() error { return validate.Struct(s) }

// GenerationFinished signals build completion, carrying the ETag the
// completed job produced. Reduced (status moves to FINISHED at the end of
// the fan-out) and handled (ordered follow-up fetches).
type GenerationFinished struct {
	Etag string
}

func (GenerationFinished) Validate() error { return nil }

// RefreshFromEtag is the generic update intent dispatched when the push
// stream reports an ETag differing from the local one.
type RefreshFromEtag struct {
	Etag string `validate:"required"`
}

func (r RefreshFromEtag) Validate() error { return validate.Struct(r) }

// UpdateThemeConfig applies a theme edit locally at once and pushes it to
// the server after the debounce quiesce.
type UpdateThemeConfig struct {
	Theme  string `validate:"required"`
	Config map[string]interface{}
}

func (u UpdateThemeConfig) Validate() error { return validate.Struct(u) }

// UpdateGenerateParams is the debounced settings counterpart for generation
// parameters.
type UpdateGenerateParams struct {
	Params map[string]interface{}
}

func (UpdateGenerateParams) Validate() error { return nil }

// SendMessage starts a chat completion turn.
type SendMessage struct {
	Text          string `validate:"required"`
	AttachedNodes []string
}

func (s SendMessage) Validate() error { return validate.Struct(s) }

// StopCompletion aborts the in-flight completion stream. User-initiated:
// never surfaces an error toast.
type StopCompletion struct{}

func (StopCompletion) Validate() error { return nil }

// StopSubscriptions tears down every standing stream (navigation away).
type StopSubscriptions struct{}

func (StopSubscriptions) Validate() error { return nil }

// PlaybackInit seeds the replay engine with a recorded session.
type PlaybackInit struct {
	Record playback.Record
}

func (PlaybackInit) Validate() error { return nil }

// PlaybackNext advances replay one step.
type PlaybackNext struct{}

func (PlaybackNext) Validate() error { return nil }

// PlaybackPrevious rewinds replay one step.
type PlaybackPrevious struct{}

func (PlaybackPrevious) Validate() error { return nil }
