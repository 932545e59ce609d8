package graph

import "reflect"

// MergeResult describes the outcome of AddOrUpdateElements. The caller turns
// the flags into state actions: Changed drives a relayout, Duplicate drives
// the informational "question already asked" toast, FocusChanged moves the
// focus to the resolved node.
type MergeResult struct {
	Elements []Element
	Changed  bool

	FocusNodeID  string
	FocusChanged bool

	Duplicate      bool
	DuplicateID    string
	DuplicateLabel string
}

// AddOrUpdateElements merges incoming elements into current. Elements with a
// known id have their payload deep-merged (incoming non-empty fields win); a
// merge that changes nothing signals that the node already exists with
// identical content, which surfaces the duplicate toast when that node is not
// the current focus. Unknown ids are appended. A transient placeholder node
// still holding focus is dropped once the merge resolves, and focus moves to
// the last incoming node that matched an existing id.
func AddOrUpdateElements(current []Element, incoming []Element, focusNodeID string) MergeResult {
	res := MergeResult{Elements: Clone(current)}
	resolved := ""

	for _, in := range incoming {
		idx := IndexByID(res.Elements, in.ID)
		if idx < 0 {
			res.Elements = append(res.Elements, in)
			res.Changed = true
			continue
		}

		merged := mergeElement(res.Elements[idx], in)
		if in.Kind == KindNode {
			resolved = in.ID
		}
		if reflect.DeepEqual(merged, res.Elements[idx]) {
			if in.Kind == KindNode && in.ID != focusNodeID {
				res.Duplicate = true
				res.DuplicateID = in.ID
				res.DuplicateLabel = res.Elements[idx].Node.Label
			}
			continue
		}
		res.Elements[idx] = merged
		res.Changed = true
	}

	if resolved != "" {
		if idx := IndexByID(res.Elements, focusNodeID); idx >= 0 &&
			res.Elements[idx].Kind == KindNode &&
			res.Elements[idx].Node.Label == PlaceholderLabel {
			res.Elements, _ = RemoveElement(res.Elements, focusNodeID)
			res.Changed = true
		}
		if resolved != focusNodeID {
			res.FocusNodeID = resolved
			res.FocusChanged = true
		}
	}

	return res
}

// mergeElement overlays the incoming payload onto the existing one. Existing
// values survive where the incoming field is empty.
func mergeElement(existing, in Element) Element {
	out := existing
	switch in.Kind {
	case KindNode:
		if in.Node.Label != "" {
			out.Node.Label = in.Node.Label
		}
		if in.Node.Icon != "" {
			out.Node.Icon = in.Node.Icon
		}
		if in.Node.Status != "" {
			out.Node.Status = in.Node.Status
		}
		if len(in.Node.Questions) > 0 {
			out.Node.Questions = mergeQuestions(existing.Node.Questions, in.Node.Questions)
		}
	case KindEdge:
		if in.Edge.Source != "" {
			out.Edge.Source = in.Edge.Source
		}
		if in.Edge.Target != "" {
			out.Edge.Target = in.Edge.Target
		}
		if in.Edge.Type != "" {
			out.Edge.Type = in.Edge.Type
		}
	}
	return out
}

func mergeQuestions(existing, incoming []string) []string {
	out := make([]string, len(existing))
	copy(out, existing)
	for _, q := range incoming {
		seen := false
		for _, have := range out {
			if have == q {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, q)
		}
	}
	return out
}
