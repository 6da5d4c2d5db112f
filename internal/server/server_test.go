package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/diagramflow/pkg/extract"
	"github.com/matzehuels/diagramflow/pkg/review"
	"github.com/matzehuels/diagramflow/pkg/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	svc := review.NewService(review.Config{
		Store: ms,
		// No API keys configured, so extraction falls back to the
		// offline placeholder document.
		Extractor: extract.NewClient(extract.Config{}),
	})
	ts := httptest.NewServer(New(Config{Service: svc, Store: ms}).Handler())
	t.Cleanup(ts.Close)
	return ts, ms
}

func uploadDiagram(t *testing.T, ts *httptest.Server, filename string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("fake image bytes")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var out struct {
		DiagramID string `json:"diagram_id"`
		Filename  string `json:"filename"`
		SavedPath string `json:"saved_path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.DiagramID == "" || out.Filename != filename || out.SavedPath == "" {
		t.Fatalf("upload response = %+v", out)
	}
	return out.DiagramID
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func putJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatal(err)
	}
}

func TestRoot(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]string
	decodeBody(t, resp, &out)
	if out["upload_endpoint"] != "/upload" {
		t.Errorf("root response = %v", out)
	}
}

func TestWorkflow_EndToEnd(t *testing.T) {
	ts, ms := newTestServer(t)
	id := uploadDiagram(t, ts, "flow.png")

	// Convert: offline placeholder extraction.
	resp := postJSON(t, ts.URL+"/convert", map[string]string{"diagram_id": id})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("convert status = %d", resp.StatusCode)
	}
	var conv struct {
		DiagramID string `json:"diagram_id"`
		JSON      struct {
			Nodes []struct {
				ID    string `json:"id"`
				Label string `json:"label"`
			} `json:"nodes"`
		} `json:"json"`
	}
	decodeBody(t, resp, &conv)
	if conv.DiagramID != id || len(conv.JSON.Nodes) != 2 {
		t.Fatalf("convert response = %+v", conv)
	}

	// Regenerate the artifact explicitly.
	resp = postJSON(t, ts.URL+"/generate_mermaid", map[string]string{"diagram_id": id})
	var gen struct {
		Mermaid string `json:"mermaid"`
	}
	decodeBody(t, resp, &gen)
	if !strings.Contains(gen.Mermaid, "graph TD") {
		t.Fatalf("mermaid = %q", gen.Mermaid)
	}

	// Review page.
	resp, err := http.Get(ts.URL + "/review/" + id)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("review status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), id) || !strings.Contains(string(body), "graph TD") {
		t.Error("review page missing diagram id or mermaid source")
	}

	// Edit a node label.
	resp = putJSON(t, ts.URL+"/update_node", map[string]any{
		"diagram_id": id,
		"node_id":    "A",
		"label":      "Start",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update_node status = %d", resp.StatusCode)
	}
	var upd struct {
		Status  string `json:"status"`
		Mermaid string `json:"mermaid"`
	}
	decodeBody(t, resp, &upd)
	if upd.Status != "ok" || !strings.Contains(upd.Mermaid, "A[Start]") {
		t.Fatalf("update_node response = %+v", upd)
	}

	// Approve, then edit, then diff.
	resp = postJSON(t, ts.URL+"/approve/"+id, nil)
	var appr struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	decodeBody(t, resp, &appr)
	if appr.Status != "ok" || appr.Version == "" {
		t.Fatalf("approve response = %+v", appr)
	}

	resp = putJSON(t, ts.URL+"/update_edge", map[string]any{
		"diagram_id": id,
		"from_id":    "A",
		"to_id":      "B",
		"relation":   "updated",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update_edge status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/diff/" + id)
	if err != nil {
		t.Fatal(err)
	}
	var diff struct {
		Status  string          `json:"status"`
		Diff    json.RawMessage `json:"diff"`
		Message string          `json:"message"`
	}
	decodeBody(t, resp, &diff)
	if diff.Status != "ok" || diff.Message != "" {
		t.Fatalf("diff response = %+v", diff)
	}
	if string(diff.Diff) == "[]" {
		t.Error("diff after an edit should not be empty")
	}

	// The background artifact kicked off by convert must have landed.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := ms.GetArtifact(t.Context(), id); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("background artifact never persisted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConvert_UnknownDiagram(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/convert", map[string]string{"diagram_id": "missing"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("convert(missing) status = %d, want 404", resp.StatusCode)
	}
}

func TestConvert_MissingDiagramID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/convert", map[string]string{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("convert(no id) status = %d, want 400", resp.StatusCode)
	}
}

func TestUpdateNode_ConfidenceOnlyForUnknownNode(t *testing.T) {
	ts, _ := newTestServer(t)
	id := uploadDiagram(t, ts, "flow.png")
	postJSON(t, ts.URL+"/convert", map[string]string{"diagram_id": id}).Body.Close()

	resp := putJSON(t, ts.URL+"/update_node", map[string]any{
		"diagram_id": id,
		"node_id":    "ghost",
		"confidence": 0.1,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("confidence-only update for unknown node status = %d, want 200", resp.StatusCode)
	}
}

func TestUpdateNode_UnknownNode(t *testing.T) {
	ts, _ := newTestServer(t)
	id := uploadDiagram(t, ts, "flow.png")
	postJSON(t, ts.URL+"/convert", map[string]string{"diagram_id": id}).Body.Close()

	resp := putJSON(t, ts.URL+"/update_node", map[string]any{
		"diagram_id": id,
		"node_id":    "ghost",
		"label":      "x",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("label update for unknown node status = %d, want 404", resp.StatusCode)
	}
}

func TestUpdateJSON_ReplacesDocument(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := putJSON(t, ts.URL+"/update_json", map[string]any{
		"diagram_id": "fresh",
		"payload": map[string]any{
			"title": "Manual",
			"nodes": []map[string]string{{"id": "X", "label": "Only"}},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update_json status = %d", resp.StatusCode)
	}
	var out struct {
		Status  string `json:"status"`
		Mermaid string `json:"mermaid"`
	}
	decodeBody(t, resp, &out)
	want := "%% Manual\ngraph TD\n    X[Only]"
	if out.Mermaid != want {
		t.Errorf("mermaid = %q, want %q", out.Mermaid, want)
	}
}

func TestDiff_NoVersions(t *testing.T) {
	ts, _ := newTestServer(t)
	id := uploadDiagram(t, ts, "flow.png")
	postJSON(t, ts.URL+"/convert", map[string]string{"diagram_id": id}).Body.Close()

	resp, err := http.Get(fmt.Sprintf("%s/diff/%s", ts.URL, id))
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &out)
	if out.Message != "No previous versions" {
		t.Errorf("diff message = %q", out.Message)
	}
}

func TestApprove_UnknownDiagram(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/approve/absent", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("approve(missing) status = %d, want 404", resp.StatusCode)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	ts, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("upload without file status = %d, want 400", resp.StatusCode)
	}
}
