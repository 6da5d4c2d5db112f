package server

import (
	_ "embed"
	"html/template"

	"github.com/matzehuels/diagramflow/pkg/confidence"
)

//go:embed review.html
var reviewHTML string

var reviewTemplate = template.Must(template.New("review").Parse(reviewHTML))

// reviewPageData feeds the review template.
type reviewPageData struct {
	DiagramID      string
	DocumentJSON   string
	Mermaid        string
	Ranked         []confidence.Entry
	BelowThreshold []confidence.Entry
	Versions       []string
}
