package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDocJSON = `{
  "title": "Flow",
  "nodes": [
    {"id": "A", "label": "Start"},
    {"id": "B", "label": "End"}
  ],
  "edges": [
    {"from": "A", "to": "B", "relation": "next"}
  ],
  "confidence": {"A": 0.9, "B": 0.4}
}`

func writeSampleDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(sampleDocJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGenerate_Stdout(t *testing.T) {
	path := writeSampleDoc(t)

	out, err := runCommand(t, "generate", path)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	want := "%% Flow\ngraph TD\n    A[Start]\n    B[End]\n    A -->|next| B\n"
	if out != want {
		t.Errorf("generate output = %q, want %q", out, want)
	}
}

func TestGenerate_OutputFile(t *testing.T) {
	path := writeSampleDoc(t)
	dest := filepath.Join(t.TempDir(), "out.mmd")

	if _, err := runCommand(t, "generate", path, "-o", dest); err != nil {
		t.Fatalf("generate error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "graph TD") {
		t.Errorf("written mermaid = %q", data)
	}
}

func TestGenerate_MissingFile(t *testing.T) {
	if _, err := runCommand(t, "generate", filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("generate should fail for a missing input")
	}
}

func TestGenerate_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCommand(t, "generate", path); err == nil {
		t.Error("generate should fail for invalid JSON")
	}
}
