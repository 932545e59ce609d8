// Package conversation models chat messages exchanged with the mindmap
// assistant, including the graph-element attachments embedded in completed
// bot turns.
package conversation

import (
	"encoding/json"
	"fmt"

	"mindmesh/domain/graph"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// ElementsAttachmentType marks an attachment whose content is a JSON graph
// fragment produced by the assistant.
const ElementsAttachmentType = "application/vnd.mindmesh.elements+json"

// Attachment is an opaque payload attached to a message, discriminated by
// its declared type.
type Attachment struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Message is one conversation turn.
type Message struct {
	ID             string       `json:"id"`
	Role           Role         `json:"role"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	AvailableNodes []string     `json:"available_nodes,omitempty"`
}

// HasElementsAttachment reports whether the message carries a graph fragment
// (the marker playback uses to detect AI-generated-node turns).
func (m Message) HasElementsAttachment() bool {
	for _, a := range m.Attachments {
		if a.Type == ElementsAttachmentType {
			return true
		}
	}
	return false
}

// ExtractElements parses every graph-element attachment on m into elements.
// Nodes arriving without recorded questions are tagged with the triggering
// user message as their first question.
func ExtractElements(m Message, triggeringQuestion string) ([]graph.Element, error) {
	var out []graph.Element
	for _, a := range m.Attachments {
		if a.Type != ElementsAttachmentType {
			continue
		}
		var els []graph.Element
		if err := json.Unmarshal([]byte(a.Content), &els); err != nil {
			return nil, fmt.Errorf("parse elements attachment: %w", err)
		}
		for i := range els {
			if els[i].Kind == graph.KindNode && len(els[i].Node.Questions) == 0 && triggeringQuestion != "" {
				els[i].Node.Questions = []string{triggeringQuestion}
			}
		}
		out = append(out, els...)
	}
	return out, nil
}
