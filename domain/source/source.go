// Package source models uploaded documents ("sources") and the pure
// reconciliation rules that merge server-reported source collections with
// local optimistic state.
package source

// Status is the indexing lifecycle of one source version.
type Status string

const (
	StatusInProgress Status = "INPROGRESS"
	StatusIndexed    Status = "INDEXED"
	StatusFailed     Status = "FAILED"
	StatusRemoved    Status = "REMOVED"
)

// Type distinguishes uploaded files from linked URLs.
type Type string

const (
	TypeFile Type = "FILE"
	TypeLink Type = "LINK"
)

// Source is one version of one document. Versions are monotonic per id; at
// steady state exactly one version per id is Active. InGraph records whether
// content from this version has been merged into the generated mindmap.
type Source struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	Type    Type   `json:"type,omitempty"`
	Status  Status `json:"status"`
	Active  bool   `json:"active,omitempty"`
	InGraph bool   `json:"in_graph,omitempty"`
}

// VersionRef identifies one (id, version) pair, the unit the per-version
// indexing subscription operates on.
type VersionRef struct {
	ID      string
	Version int
}

// Terminal reports whether the status ends the indexing subscription.
func (s Status) Terminal() bool {
	return s == StatusIndexed || s == StatusFailed || s == StatusRemoved
}

// versionsOf collects all versions sharing id, preserving order.
func versionsOf(sources []Source, id string) []Source {
	var out []Source
	for _, s := range sources {
		if s.ID == id {
			out = append(out, s)
		}
	}
	return out
}
