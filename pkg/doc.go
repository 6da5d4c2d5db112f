// Package pkg provides the core libraries for Diagramflow structure review.
//
// # Overview
//
// Diagramflow turns diagram images into editable node-edge documents. The
// pkg directory is organized around the review workflow:
//
//  1. [extract] - Structure extraction via OpenAI/Gemini with an offline
//     placeholder fallback
//  2. [document] - The node/edge/confidence document model
//  3. [mermaid] - Mermaid flowchart text generation
//  4. [confidence] - Confidence ranking and threshold filtering
//  5. [store] - Persistence backends (file, memory, redis, mongo)
//  6. [review] - Workflow orchestration (edits, approvals, diffs)
//  7. [render] - Graphviz DOT and SVG previews
//
// # Architecture
//
// The typical data flow:
//
//	Diagram image upload
//	         ↓
//	    [extract] package (structure API or placeholder)
//	         ↓
//	    [document] package (node/edge/confidence model)
//	         ↓
//	    [mermaid] / [render] packages (artifacts)
//	         ↓
//	    [review] package (edits, approval snapshots, diffs)
//
// # Quick Start
//
// Extract a document and generate its mermaid artifact:
//
//	st, _ := store.NewFileStore("data")
//	svc := review.NewService(review.Config{
//	    Store:     st,
//	    Extractor: extract.NewClient(extract.Config{}),
//	})
//
//	id := uuid.NewString()
//	st.RegisterUpload(ctx, id, "chart.png", imageBytes)
//	doc, _ := svc.Extract(ctx, id, "", "")
//	fmt.Println(mermaid.Generate(doc))
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...          # All tests
//	go test ./pkg/review/...   # Specific package
//
// [extract]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/extract
// [document]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/document
// [mermaid]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/mermaid
// [confidence]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/confidence
// [store]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/store
// [review]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/review
// [render]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/render
package pkg
