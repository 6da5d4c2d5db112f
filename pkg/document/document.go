// Package document defines the structured node/edge representation of a
// diagram and its JSON codec.
//
// A Document is the unit of work for the whole service: the extraction
// service produces one, reviewers edit it, the mermaid generator renders it,
// and approvals snapshot it. Both node and edge order are significant and are
// preserved through every round trip.
//
// Extraction providers attach fields the service does not model (source
// previews, prompt echoes). Those travel in Extra so that a document read
// from storage serializes back byte-compatible with what the provider sent.
package document

import (
	"encoding/json"
	"strings"
)

// Node is a single diagram node.
type Node struct {
	ID    string `json:"id" bson:"id"`
	Label string `json:"label" bson:"label"`
}

// Edge is a directed connection between two node ids. Referential integrity
// is not enforced: From and To may name nodes that do not exist, and such
// edges still render using the literal id.
type Edge struct {
	From     string `json:"from" bson:"from"`
	To       string `json:"to" bson:"to"`
	// Relation never omits on serialization: clearing it to "" must
	// round-trip as a value change, not a key removal.
	Relation string `json:"relation" bson:"relation"`
}

// Document is the structured representation of one diagram.
//
// Nodes and Edges are order-preserving. Confidence maps node ids to
// extraction certainty scores; ids absent from the map score 0.0, and
// entries for ids not present in Nodes are inert.
type Document struct {
	Title      string             `json:"title,omitempty" bson:"title,omitempty"`
	Nodes      []Node             `json:"nodes" bson:"nodes"`
	Edges      []Edge             `json:"edges" bson:"edges"`
	Confidence map[string]float64 `json:"confidence,omitempty" bson:"confidence,omitempty"`

	// Extra holds provider fields the service does not model. Inlined on
	// JSON serialization, nested under "extra" in BSON.
	Extra map[string]any `json:"-" bson:"extra,omitempty"`
}

// modeled JSON keys; everything else lands in Extra.
var modeledKeys = map[string]bool{
	"title":      true,
	"nodes":      true,
	"edges":      true,
	"confidence": true,
}

// docAlias avoids MarshalJSON/UnmarshalJSON recursion.
type docAlias Document

// UnmarshalJSON decodes a document, routing unmodeled keys into Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	var alias docAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		if modeledKeys[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(val, &v); err != nil {
			return err
		}
		if alias.Extra == nil {
			alias.Extra = make(map[string]any)
		}
		alias.Extra[key] = v
	}

	*d = Document(alias)
	return nil
}

// MarshalJSON encodes a document with Extra fields inlined at the top level.
func (d Document) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(docAlias(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, val := range d.Extra {
		if !modeledKeys[key] {
			merged[key] = val
		}
	}
	return json.Marshal(merged)
}

// Decode parses a JSON document.
func Decode(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, err
	}
	return d, nil
}

// Encode serializes a document as indented JSON, matching the on-disk format.
func Encode(d Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// IsZero reports whether the document carries no content at all. An
// extraction result for which this is true is treated as empty.
func (d Document) IsZero() bool {
	return d.Title == "" &&
		len(d.Nodes) == 0 &&
		len(d.Edges) == 0 &&
		len(d.Confidence) == 0 &&
		len(d.Extra) == 0
}

// Score returns the confidence score for a node id, defaulting to 0.0 for
// ids absent from the confidence map.
func (d Document) Score(nodeID string) float64 {
	return d.Confidence[nodeID]
}

// FindNode returns a pointer to the first node with the given id, or nil.
func (d *Document) FindNode(nodeID string) *Node {
	for i := range d.Nodes {
		if d.Nodes[i].ID == nodeID {
			return &d.Nodes[i]
		}
	}
	return nil
}

// FindEdge returns a pointer to the first edge matching both endpoints in
// stored order, or nil.
func (d *Document) FindEdge(from, to string) *Edge {
	for i := range d.Edges {
		if d.Edges[i].From == from && d.Edges[i].To == to {
			return &d.Edges[i]
		}
	}
	return nil
}

// SetConfidence writes a confidence entry, allocating the map if needed.
// The entry is written whether or not a node with that id exists.
func (d *Document) SetConfidence(nodeID string, score float64) {
	if d.Confidence == nil {
		d.Confidence = make(map[string]float64)
	}
	d.Confidence[nodeID] = score
}

// Clone returns a deep copy. Snapshots and in-memory storage use this to
// keep handed-out documents isolated from later edits.
func (d Document) Clone() Document {
	out := d
	if d.Nodes != nil {
		out.Nodes = make([]Node, len(d.Nodes))
		copy(out.Nodes, d.Nodes)
	}
	if d.Edges != nil {
		out.Edges = make([]Edge, len(d.Edges))
		copy(out.Edges, d.Edges)
	}
	if d.Confidence != nil {
		out.Confidence = make(map[string]float64, len(d.Confidence))
		for k, v := range d.Confidence {
			out.Confidence[k] = v
		}
	}
	if d.Extra != nil {
		out.Extra = cloneValue(d.Extra).(map[string]any)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, e := range val {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, e := range val {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return val
	}
}

// TitleFromFilename derives a fallback document title from an uploaded
// filename by stripping the extension.
func TitleFromFilename(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
