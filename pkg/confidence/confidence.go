// Package confidence ranks diagram nodes by extraction certainty.
//
// Lower scores mean the extraction service was less sure about a node, so
// ascending order puts the nodes most in need of human review first. Both
// queries are pure functions of the input document.
package confidence

import (
	"sort"

	"github.com/matzehuels/diagramflow/pkg/document"
)

// DefaultThreshold is the score at or below which a node is flagged for
// review.
const DefaultThreshold = 0.85

// Entry pairs a node id with its confidence score.
type Entry struct {
	NodeID string  `json:"node_id"`
	Score  float64 `json:"score"`
}

// Ranked returns every node of the document with its confidence score,
// sorted ascending. Nodes missing from the confidence map score 0.0. The
// sort is stable: nodes with equal scores keep their stored order.
func Ranked(doc document.Document) []Entry {
	entries := make([]Entry, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		entries = append(entries, Entry{NodeID: n.ID, Score: doc.Score(n.ID)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
	return entries
}

// BelowThreshold returns the nodes whose score is at or below threshold,
// sorted ascending with the same stability guarantee as [Ranked].
func BelowThreshold(doc document.Document, threshold float64) []Entry {
	entries := make([]Entry, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if score := doc.Score(n.ID); score <= threshold {
			entries = append(entries, Entry{NodeID: n.ID, Score: score})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
	return entries
}
