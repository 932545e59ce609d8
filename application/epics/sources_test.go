package epics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmesh/application/intents"
	"mindmesh/application/ports"
	"mindmesh/domain/generation"
	"mindmesh/domain/source"
)

func listingBody(t *testing.T, resp source.ListResponse) string {
	t.Helper()
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func TestFetchSourcesDispatchesChangeset(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	exec.respond = func(req ports.Request) fakeResponse {
		return fakeResponse{status: 200, body: listingBody(t, source.ListResponse{
			Sources: []source.Source{
				{ID: "s1", Version: 2, Name: "notes.pdf", Status: source.StatusInProgress, Active: true},
				{ID: "s2", Version: 1, Name: "brief.txt", Status: source.StatusIndexed, Active: true, InGraph: true},
			},
			GenerationStatus: generation.StatusInProgress,
			Generated:        true,
		})}
	}

	e.fetchSources(context.Background())

	assert.True(t, disp.has(func(i intents.Intent) bool {
		set, ok := i.(intents.SetSources)
		return ok && len(set.Sources) == 2 && set.Generated
	}))
	assert.True(t, disp.has(func(i intents.Intent) bool {
		sub, ok := i.(intents.SubscribeSourceEvents)
		return ok && sub.ID == "s1" && sub.Version == 2
	}))
	assert.True(t, disp.has(func(i intents.Intent) bool {
		_, ok := i.(intents.SubscribeGenerationStatus)
		return ok
	}))
	assert.Equal(t, "notes.pdf", disp.store.SourceNames()["s1"])
}

func TestFetchSourcesUnchangedIsSilent(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	sources := []source.Source{
		{ID: "s1", Version: 1, Name: "notes.pdf", Status: source.StatusIndexed, Active: true},
	}
	disp.Dispatch(intents.SetSources{
		Sources: sources,
		Names:   source.Names(sources),
		Status:  generation.StatusFinished,
	})
	before := len(disp.intentsOf())

	exec.respond = func(req ports.Request) fakeResponse {
		return fakeResponse{status: 200, body: listingBody(t, source.ListResponse{
			Sources:          sources,
			GenerationStatus: generation.StatusFinished,
		})}
	}
	e.fetchSources(context.Background())

	assert.Len(t, disp.intentsOf(), before)
}

func TestDeleteSourceRevertsOnFailure(t *testing.T) {
	e, disp, exec, _ := newTestEpics()

	sources := []source.Source{
		{ID: "s1", Version: 1, Name: "notes.pdf", Status: source.StatusIndexed, Active: true},
		{ID: "s2", Version: 1, Name: "brief.txt", Status: source.StatusIndexed, Active: true},
	}
	disp.Dispatch(intents.SetSources{Sources: sources, Names: source.Names(sources)})

	exec.respond = func(req ports.Request) fakeResponse {
		return fakeResponse{status: 500, body: "boom"}
	}
	e.handleDeleteSource(context.Background(), intents.DeleteSource{ID: "s1"})
	e.runner.Wait()

	// Optimistic removal happened, then the failed DELETE restored it.
	assert.True(t, disp.has(func(i intents.Intent) bool {
		set, ok := i.(intents.SetSources)
		return ok && len(set.Sources) == 1
	}))
	assert.Len(t, disp.store.Sources(), 2)
	assert.True(t, disp.has(func(i intents.Intent) bool {
		toast, ok := i.(intents.ShowToast)
		return ok && toast.Level == intents.ToastError
	}))
}

func TestDeleteSourceUnknownIDIsNoop(t *testing.T) {
	e, _, exec, _ := newTestEpics()

	e.handleDeleteSource(context.Background(), intents.DeleteSource{ID: "ghost"})
	e.runner.Wait()

	assert.Empty(t, exec.sent())
}

func TestSubscribeSourceEventsUntilTerminal(t *testing.T) {
	e, disp, _, streams := newTestEpics()
	defer e.Stop()

	stream := newFakeStream(`{"status":"INPROGRESS"}`, `{"status":"INDEXED"}`)
	streams.script(ports.Routes{App: "demo"}.DocumentVersionEvents("s1", 2), stream)

	e.handleSubscribeSourceEvents(context.Background(), intents.SubscribeSourceEvents{ID: "s1", Version: 2})

	require.Eventually(t, func() bool {
		return disp.has(func(i intents.Intent) bool {
			set, ok := i.(intents.SetSourceStatus)
			return ok && set.ID == "s1" && set.Version == 2 && set.Status == source.StatusIndexed
		})
	}, time.Second, 5*time.Millisecond)

	// Terminal status ends the task without a failure mark.
	e.runner.Wait()
	assert.False(t, disp.has(func(i intents.Intent) bool {
		set, ok := i.(intents.SetSourceStatus)
		return ok && set.Status == source.StatusFailed
	}))
}

func TestSubscribeSourceEventsTimesOutToFailed(t *testing.T) {
	e, disp, _, streams := newTestEpics()
	defer e.Stop()

	// A stream that never produces a terminal status.
	streams.script(ports.Routes{App: "demo"}.DocumentVersionEvents("s1", 1), newFakeStream())

	e.handleSubscribeSourceEvents(context.Background(), intents.SubscribeSourceEvents{ID: "s1", Version: 1})

	require.Eventually(t, func() bool {
		return disp.has(func(i intents.Intent) bool {
			set, ok := i.(intents.SetSourceStatus)
			return ok && set.Status == source.StatusFailed
		})
	}, time.Second, 5*time.Millisecond)
	assert.True(t, disp.has(func(i intents.Intent) bool {
		toast, ok := i.(intents.ShowToast)
		return ok && toast.Level == intents.ToastError
	}))
}
