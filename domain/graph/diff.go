package graph

// EditorAdjustment is the outcome of the single-element diff heuristic.
// Apply=false means the heuristic declined (zero or more than one element
// differed) and the caller must leave editor and focus state alone.
type EditorAdjustment struct {
	Apply   bool
	Open    bool
	FocusID string
}

// SingleNodeDiff compares the node sets of current and incoming by id. When
// exactly one node was added or removed, that node is taken to be the one the
// last undo/redo step touched: an added node opens the editor focused on it,
// a removed node closes the editor and clears focus. Any other difference
// count yields no adjustment; the heuristic is deliberately scoped to
// single-element steps.
func SingleNodeDiff(current, incoming []Element) EditorAdjustment {
	return singleDiff(Nodes(current), Nodes(incoming))
}

// SingleEdgeDiff is the edge-set counterpart of SingleNodeDiff, targeting the
// focused-edge id instead of the focused node.
func SingleEdgeDiff(current, incoming []Element) EditorAdjustment {
	return singleDiff(Edges(current), Edges(incoming))
}

func singleDiff(current, incoming []Element) EditorAdjustment {
	currentIDs := idSet(current)
	incomingIDs := idSet(incoming)

	var added, removed []string
	for id := range incomingIDs {
		if !currentIDs[id] {
			added = append(added, id)
		}
	}
	for id := range currentIDs {
		if !incomingIDs[id] {
			removed = append(removed, id)
		}
	}

	switch {
	case len(added) == 1 && len(removed) == 0:
		return EditorAdjustment{Apply: true, Open: true, FocusID: added[0]}
	case len(removed) == 1 && len(added) == 0:
		return EditorAdjustment{Apply: true, Open: false, FocusID: ""}
	default:
		return EditorAdjustment{}
	}
}

func idSet(els []Element) map[string]bool {
	set := make(map[string]bool, len(els))
	for _, e := range els {
		set[e.ID] = true
	}
	return set
}
