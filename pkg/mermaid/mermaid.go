// Package mermaid renders a diagram document into Mermaid flowchart text.
//
// Generation is pure and deterministic: equal documents always produce
// identical text, and stored node/edge order is the emission order. The
// output is the derived artifact cached next to each document and
// regenerated on every edit.
package mermaid

import (
	"fmt"
	"strings"

	"github.com/matzehuels/diagramflow/pkg/document"
)

// unknownID substitutes for node and edge endpoints that are empty after
// trimming.
const unknownID = "unknown"

// Generate converts a diagram document into a Mermaid graph definition.
//
// The output starts with a "graph TD" header, preceded by a "%% title"
// comment when the document has a title. Each node emits one declaration
// line and each edge one arrow line, both indented four spaces. Lines are
// joined with newlines and carry no trailing newline.
//
// An empty relation renders the arrow with no label segment; the label
// segment, when present, sits between the arrow and the target. A document
// with no nodes and no edges yields just the header, which is valid Mermaid.
func Generate(doc document.Document) string {
	lines := []string{"graph TD"}

	if doc.Title != "" {
		lines = append([]string{fmt.Sprintf("%%%% %s", doc.Title)}, lines...)
	}

	for _, n := range doc.Nodes {
		id := strings.TrimSpace(n.ID)
		if id == "" {
			id = unknownID
		}
		label := strings.TrimSpace(n.Label)
		if label == "" {
			label = id
		}
		lines = append(lines, fmt.Sprintf("    %s[%s]", id, label))
	}

	for _, e := range doc.Edges {
		from := strings.TrimSpace(e.From)
		if from == "" {
			from = unknownID
		}
		to := strings.TrimSpace(e.To)
		if to == "" {
			to = unknownID
		}
		relation := strings.TrimSpace(e.Relation)
		segment := ""
		if relation != "" {
			segment = fmt.Sprintf("|%s| ", relation)
		}
		lines = append(lines, fmt.Sprintf("    %s -->%s%s", from, segment, to))
	}

	return strings.Join(lines, "\n")
}
