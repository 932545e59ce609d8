// Package graph holds the client-side mindmap model and the pure
// reconciliation functions that merge server-reported element collections
// into local state. Both the polling and the SSE push paths feed the same
// functions so that the two converge to the same state shape.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind discriminates the element union.
type Kind string

const (
	KindNode Kind = "node"
	KindEdge Kind = "edge"
)

// EdgeType records edge provenance.
type EdgeType string

const (
	EdgeManual    EdgeType = "Manual"
	EdgeGenerated EdgeType = "Generated"
)

// UpdateMode tells the renderer how much work a state change requires.
type UpdateMode string

const (
	UpdateNone     UpdateMode = "None"
	UpdateRefresh  UpdateMode = "Refresh"
	UpdateRelayout UpdateMode = "Relayout"
)

// PlaceholderLabel marks a transient client-synthesized node that stands in
// for a generated answer until the server responds.
const PlaceholderLabel = "..."

// NodeData is the payload of a node element.
type NodeData struct {
	Label     string   `json:"label,omitempty"`
	Icon      string   `json:"icon,omitempty"`
	Status    string   `json:"status,omitempty"`
	Questions []string `json:"questions,omitempty"`
}

// EdgeData is the payload of an edge element. Source and Target reference
// node ids; reconciliation does not validate that the referenced nodes exist.
type EdgeData struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   EdgeType `json:"type,omitempty"`
}

// Element is a tagged union of Node and Edge. Exactly the payload selected
// by Kind is meaningful.
type Element struct {
	ID   string
	Kind Kind
	Node NodeData
	Edge EdgeData
}

// NewNode mints a node element with a fresh id.
func NewNode(data NodeData) Element {
	return Element{ID: uuid.New().String(), Kind: KindNode, Node: data}
}

// NewManualEdge mints a user-provenance edge between two node ids.
func NewManualEdge(source, target string) Element {
	return Element{
		ID:   uuid.New().String(),
		Kind: KindEdge,
		Edge: EdgeData{Source: source, Target: target, Type: EdgeManual},
	}
}

type wireElement struct {
	ID   string          `json:"id"`
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes the element as {id, kind, data}.
func (e Element) MarshalJSON() ([]byte, error) {
	var data interface{}
	switch e.Kind {
	case KindNode:
		data = e.Node
	case KindEdge:
		data = e.Edge
	default:
		return nil, fmt.Errorf("unknown element kind %q", e.Kind)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireElement{ID: e.ID, Kind: e.Kind, Data: raw})
}

// UnmarshalJSON decodes {id, kind, data}.
func (e *Element) UnmarshalJSON(b []byte) error {
	var w wireElement
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	e.ID = w.ID
	e.Kind = w.Kind
	e.Node = NodeData{}
	e.Edge = EdgeData{}
	switch w.Kind {
	case KindNode:
		return json.Unmarshal(w.Data, &e.Node)
	case KindEdge:
		return json.Unmarshal(w.Data, &e.Edge)
	default:
		return fmt.Errorf("unknown element kind %q", w.Kind)
	}
}

// IndexByID returns the position of id in els, or -1.
func IndexByID(els []Element, id string) int {
	for i := range els {
		if els[i].ID == id {
			return i
		}
	}
	return -1
}

// Nodes filters els to node elements.
func Nodes(els []Element) []Element {
	var out []Element
	for _, e := range els {
		if e.Kind == KindNode {
			out = append(out, e)
		}
	}
	return out
}

// Edges filters els to edge elements.
func Edges(els []Element) []Element {
	var out []Element
	for _, e := range els {
		if e.Kind == KindEdge {
			out = append(out, e)
		}
	}
	return out
}

// HasEdgeBetween reports whether any edge connects a and b, in either
// direction.
func HasEdgeBetween(els []Element, a, b string) bool {
	for _, e := range els {
		if e.Kind != KindEdge {
			continue
		}
		if (e.Edge.Source == a && e.Edge.Target == b) || (e.Edge.Source == b && e.Edge.Target == a) {
			return true
		}
	}
	return false
}

// RemoveElement deletes the element with the given id. Deleting a node also
// deletes its incident edges. The second return reports whether anything was
// removed.
func RemoveElement(els []Element, id string) ([]Element, bool) {
	idx := IndexByID(els, id)
	if idx < 0 {
		return els, false
	}
	removed := els[idx]
	out := make([]Element, 0, len(els)-1)
	for _, e := range els {
		if e.ID == id {
			continue
		}
		if removed.Kind == KindNode && e.Kind == KindEdge &&
			(e.Edge.Source == id || e.Edge.Target == id) {
			continue
		}
		out = append(out, e)
	}
	return out, true
}

// Clone copies an element slice. Question slices are copied too so merges
// never alias the previous snapshot.
func Clone(els []Element) []Element {
	out := make([]Element, len(els))
	copy(out, els)
	for i := range out {
		if out[i].Node.Questions != nil {
			q := make([]string, len(out[i].Node.Questions))
			copy(q, out[i].Node.Questions)
			out[i].Node.Questions = q
		}
	}
	return out
}
