package source

import (
	"reflect"

	"mindmesh/domain/generation"
)

// ListResponse is the document-collection payload the backend returns.
type ListResponse struct {
	Sources          []Source          `json:"sources"`
	GenerationStatus generation.Status `json:"generation_status"`
	Generated        bool              `json:"generated"`
}

// Changeset is the outcome of MergeSourcesResponse. Changed=false means the
// response matched local state exactly and the caller must emit nothing, so
// redundant renders and redundant SSE resubscriptions are avoided.
type Changeset struct {
	Changed bool

	Sources   []Source
	Names     map[string]string
	Status    generation.Status
	Generated bool

	// SubscribeVersions lists every INPROGRESS (id, version) pair whose
	// indexing subscription should be (re)opened.
	SubscribeVersions []VersionRef
	// SubscribeGeneration is set when the status transitioned into
	// IN_PROGRESS from something else.
	SubscribeGeneration bool
}

// MergeSourcesResponse reconciles a server document listing with previous
// local state. Calling it twice with identical unchanged input yields
// Changed=false the second time.
func MergeSourcesResponse(resp ListResponse, prevSources []Source, prevStatus generation.Status) Changeset {
	if reflect.DeepEqual(resp.Sources, prevSources) && resp.GenerationStatus == prevStatus {
		return Changeset{}
	}

	cs := Changeset{
		Changed:   true,
		Sources:   resp.Sources,
		Names:     nameMap(resp.Sources),
		Status:    resp.GenerationStatus,
		Generated: resp.Generated,
	}
	for _, s := range resp.Sources {
		if s.Status == StatusInProgress {
			cs.SubscribeVersions = append(cs.SubscribeVersions, VersionRef{ID: s.ID, Version: s.Version})
		}
	}
	if resp.GenerationStatus == generation.StatusInProgress && prevStatus != generation.StatusInProgress {
		cs.SubscribeGeneration = true
	}
	return cs
}

// Names maps source ids to display names, skipping unnamed entries.
func Names(sources []Source) map[string]string {
	return nameMap(sources)
}

func nameMap(sources []Source) map[string]string {
	names := make(map[string]string, len(sources))
	for _, s := range sources {
		if s.Name != "" {
			names[s.ID] = s.Name
		}
	}
	return names
}
