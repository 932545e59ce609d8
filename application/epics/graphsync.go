package epics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"mindmesh/application/intents"
	"mindmesh/application/ports"
	"mindmesh/domain/graph"
)

type graphPayload struct {
	Elements []graph.Element `json:"elements"`
	RootID   string          `json:"root_id"`
}

type historyPayload struct {
	Elements []graph.Element `json:"elements"`
	CanUndo  bool            `json:"can_undo"`
	CanRedo  bool            `json:"can_redo"`
}

// fetchGraph re-reads the element collection and reconciles it into local
// state. reveal additionally uncovers generated edges and reopens the
// renderer, the tail of a finished build.
func (e *Epics) fetchGraph(ctx context.Context, reveal bool) {
	req := ports.Request{
		Method: http.MethodGet,
		Path:   e.routes.Graph(),
		Process: func(body []byte) ([]intents.Intent, error) {
			var payload graphPayload
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, err
			}
			res := graph.AddOrUpdateElements(e.graph.Elements(), payload.Elements, e.graph.FocusNodeID())
			acts := e.mergeActions(res, graph.UpdateRelayout, false)
			if payload.RootID != "" {
				acts = append(acts, intents.SetRootNode{ID: payload.RootID})
			}
			return acts, nil
		},
	}
	if reveal {
		req.Success = []intents.Intent{
			intents.RevealGeneratedEdges{},
			intents.SetGraphReady{Ready: true},
		}
	}
	e.exec.Do(ctx, req)
}

// mergeActions translates a reconciliation outcome into state actions.
func (e *Epics) mergeActions(res graph.MergeResult, mode graph.UpdateMode, toastDuplicate bool) []intents.Intent {
	var acts []intents.Intent
	if res.Changed {
		acts = append(acts, intents.SetElements{Elements: res.Elements, Mode: mode})
	}
	if res.FocusChanged {
		acts = append(acts, intents.SetFocusNode{ID: res.FocusNodeID})
	}
	if res.Duplicate && toastDuplicate {
		acts = append(acts,
			intents.SetHighlighted{IDs: []string{res.DuplicateID}},
			intents.ShowToast{
				Level: intents.ToastInfo,
				Text:  fmt.Sprintf("%q is already on the map", res.DuplicateLabel),
			},
		)
	}
	return acts
}

func (e *Epics) fetchUndoRedo(ctx context.Context) {
	e.exec.Do(ctx, ports.Request{
		Method: http.MethodGet,
		Path:   e.routes.HistoryAvailability(),
		Process: func(body []byte) ([]intents.Intent, error) {
			var payload historyPayload
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, err
			}
			return []intents.Intent{intents.SetUndoRedo{CanUndo: payload.CanUndo, CanRedo: payload.CanRedo}}, nil
		},
	})
}

func (e *Epics) handleCreateNode(ctx context.Context, a intents.CreateNode) {
	node := graph.NewNode(graph.NodeData{Label: a.Label})
	els := []graph.Element{node}
	if a.ParentID != "" {
		els = append(els, graph.NewManualEdge(a.ParentID, node.ID))
	}
	e.runner.Spawn(ctx, func(ctx context.Context) {
		e.exec.Do(ctx, ports.Request{
			Method:  http.MethodPost,
			Path:    e.routes.GraphElements(),
			Body:    graphPayload{Elements: els},
			Process: e.replaceElements(graph.UpdateRelayout),
			Success: []intents.Intent{
				intents.SetFocusNode{ID: node.ID},
				intents.SetNodeEditorOpen{Open: true},
				intents.FetchUndoRedo{},
			},
			Failure: []intents.Intent{
				intents.ShowToast{Level: intents.ToastError, Text: "Couldn't create the node"},
			},
		})
	})
}

func (e *Epics) handleCreateEdge(ctx context.Context, a intents.CreateEdge) {
	if graph.HasEdgeBetween(e.graph.Elements(), a.Source, a.Target) {
		e.dispatch.Dispatch(intents.ShowToast{Level: intents.ToastInfo, Text: "These nodes are already connected"})
		return
	}
	edge := graph.NewManualEdge(a.Source, a.Target)
	e.runner.Spawn(ctx, func(ctx context.Context) {
		e.exec.Do(ctx, ports.Request{
			Method:  http.MethodPost,
			Path:    e.routes.GraphElements(),
			Body:    graphPayload{Elements: []graph.Element{edge}},
			Process: e.replaceElements(graph.UpdateRefresh),
			Success: []intents.Intent{
				intents.SetFocusEdge{ID: edge.ID},
				intents.FetchUndoRedo{},
			},
			Failure: []intents.Intent{
				intents.ShowToast{Level: intents.ToastError, Text: "Couldn't connect the nodes"},
			},
		})
	})
}

// handleUpdateNodeData writes the edit locally first so the editor feels
// immediate; a failed PATCH restores the previous collection.
func (e *Epics) handleUpdateNodeData(ctx context.Context, a intents.UpdateNodeData) {
	prior := e.graph.Elements()
	updated := graph.Clone(prior)
	found := false
	for i := range updated {
		if updated[i].ID == a.ID && updated[i].Kind == graph.KindNode {
			updated[i].Node = a.Data
			found = true
			break
		}
	}
	if !found {
		e.logger.Warn("Node edit targets unknown element", zap.String("id", a.ID))
		return
	}

	e.runner.Spawn(ctx, func(ctx context.Context) {
		e.exec.Do(ctx, ports.Request{
			Method: http.MethodPatch,
			Path:   e.routes.GraphElement(a.ID),
			Body:   a.Data,
			Optimistic: []intents.Intent{
				intents.SetElements{Elements: updated, Mode: graph.UpdateRefresh},
			},
			Success: []intents.Intent{intents.FetchUndoRedo{}},
			Failure: []intents.Intent{
				intents.SetElements{Elements: prior, Mode: graph.UpdateRefresh},
				intents.ShowToast{Level: intents.ToastError, Text: "Couldn't save the node"},
			},
		})
	})
}

// handleDeleteElement removes optimistically; node deletion cascades to the
// incident edges on both sides of the call.
func (e *Epics) handleDeleteElement(ctx context.Context, a intents.DeleteElement) {
	prior := e.graph.Elements()
	remaining, _ := graph.RemoveElement(prior, a.ID)
	optimistic := []intents.Intent{
		intents.SetElements{Elements: remaining, Mode: graph.UpdateRelayout},
	}
	if e.graph.FocusNodeID() == a.ID {
		optimistic = append(optimistic,
			intents.SetFocusNode{ID: ""},
			intents.SetNodeEditorOpen{Open: false},
		)
	}
	if e.graph.FocusEdgeID() == a.ID {
		optimistic = append(optimistic, intents.SetFocusEdge{ID: ""})
	}

	e.runner.Spawn(ctx, func(ctx context.Context) {
		e.exec.Do(ctx, ports.Request{
			Method:     http.MethodDelete,
			Path:       e.routes.GraphElement(a.ID),
			Optimistic: optimistic,
			Success:    []intents.Intent{intents.FetchUndoRedo{}},
			Failure: []intents.Intent{
				intents.SetElements{Elements: prior, Mode: graph.UpdateRelayout},
				intents.ShowToast{Level: intents.ToastError, Text: "Couldn't delete the element"},
			},
		})
	})
}

// handleHistory runs an undo or redo. The single-element diff against the
// pre-request collection decides whether the editor follows the change: one
// reappearing node reopens it focused, one disappearing node closes it.
func (e *Epics) handleHistory(ctx context.Context, action string) {
	current := e.graph.Elements()
	e.runner.Spawn(ctx, func(ctx context.Context) {
		e.exec.Do(ctx, ports.Request{
			Method: http.MethodPost,
			Path:   e.routes.History(action),
			Process: func(body []byte) ([]intents.Intent, error) {
				var payload historyPayload
				if err := json.Unmarshal(body, &payload); err != nil {
					return nil, err
				}
				var acts []intents.Intent
				if adj := graph.SingleNodeDiff(current, payload.Elements); adj.Apply {
					acts = append(acts,
						intents.SetNodeEditorOpen{Open: adj.Open},
						intents.SetFocusNode{ID: adj.FocusID},
					)
				} else if adj := graph.SingleEdgeDiff(current, payload.Elements); adj.Apply {
					acts = append(acts, intents.SetFocusEdge{ID: adj.FocusID})
				}
				acts = append(acts,
					intents.SetElements{Elements: payload.Elements, Mode: graph.UpdateRelayout},
					intents.SetUndoRedo{CanUndo: payload.CanUndo, CanRedo: payload.CanRedo},
				)
				return acts, nil
			},
			Failure: []intents.Intent{
				intents.ShowToast{Level: intents.ToastError, Text: fmt.Sprintf("Couldn't %s", action)},
			},
		})
	})
}

// replaceElements is the processor for mutations whose response carries the
// authoritative collection.
func (e *Epics) replaceElements(mode graph.UpdateMode) func([]byte) ([]intents.Intent, error) {
	return func(body []byte) ([]intents.Intent, error) {
		var payload graphPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
		return []intents.Intent{intents.SetElements{Elements: payload.Elements, Mode: mode}}, nil
	}
}
