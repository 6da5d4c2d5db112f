package confidence

import (
	"testing"

	"github.com/matzehuels/diagramflow/pkg/document"
)

func doc(conf map[string]float64, ids ...string) document.Document {
	d := document.Document{Confidence: conf}
	for _, id := range ids {
		d.Nodes = append(d.Nodes, document.Node{ID: id, Label: id})
	}
	return d
}

func TestRanked_Ascending(t *testing.T) {
	d := doc(map[string]float64{"a": 0.9, "b": 0.2, "c": 0.5}, "a", "b", "c")
	got := Ranked(d)
	want := []Entry{{"b", 0.2}, {"c", 0.5}, {"a", 0.9}}
	if len(got) != len(want) {
		t.Fatalf("Ranked() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ranked()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRanked_MissingScoresDefaultToZero(t *testing.T) {
	d := doc(map[string]float64{"b": 0.3}, "a", "b")
	got := Ranked(d)
	if got[0].NodeID != "a" || got[0].Score != 0 {
		t.Errorf("node without score should rank first at 0.0, got %+v", got[0])
	}
}

func TestRanked_StableOnTies(t *testing.T) {
	// All nodes tie at 0.5; stored order must survive the sort.
	d := doc(map[string]float64{"x": 0.5, "y": 0.5, "z": 0.5}, "z", "x", "y")
	got := Ranked(d)
	if got[0].NodeID != "z" || got[1].NodeID != "x" || got[2].NodeID != "y" {
		t.Errorf("tie order not preserved: %+v", got)
	}
}

func TestRanked_EmptyDocument(t *testing.T) {
	if got := Ranked(document.Document{}); len(got) != 0 {
		t.Errorf("Ranked(empty) = %+v, want empty", got)
	}
}

func TestBelowThreshold_Filters(t *testing.T) {
	d := doc(map[string]float64{"a": 0.95, "b": 0.85, "c": 0.1}, "a", "b", "c")
	got := BelowThreshold(d, DefaultThreshold)
	if len(got) != 2 {
		t.Fatalf("BelowThreshold() len = %d, want 2: %+v", len(got), got)
	}
	// Boundary score 0.85 is included (<=), and the result is ascending.
	if got[0].NodeID != "c" || got[1].NodeID != "b" {
		t.Errorf("BelowThreshold() = %+v", got)
	}
}

func TestBelowThreshold_SubsetOfRanked(t *testing.T) {
	d := doc(map[string]float64{"a": 0.9, "b": 0.1, "c": 0.6, "d": 0.6}, "a", "b", "c", "d")
	ranked := Ranked(d)
	below := BelowThreshold(d, 0.7)

	inRanked := make(map[Entry]bool, len(ranked))
	for _, e := range ranked {
		inRanked[e] = true
	}
	prev := -1.0
	for _, e := range below {
		if !inRanked[e] {
			t.Errorf("entry %+v not present in Ranked()", e)
		}
		if e.Score > 0.7 {
			t.Errorf("entry %+v above threshold", e)
		}
		if e.Score < prev {
			t.Errorf("result not ascending: %+v", below)
		}
		prev = e.Score
	}
}

func TestBelowThreshold_InertConfidenceEntries(t *testing.T) {
	// Confidence entries for ids not in Nodes never appear in results.
	d := doc(map[string]float64{"ghost": 0.1, "a": 0.2}, "a")
	got := BelowThreshold(d, 1.0)
	if len(got) != 1 || got[0].NodeID != "a" {
		t.Errorf("inert entries leaked into results: %+v", got)
	}
}
