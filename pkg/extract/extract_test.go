package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/store"
)

func upload() store.Upload {
	return store.Upload{
		Filename: "chart.png",
		Location: "/data/input/abc_chart.png",
		Data:     []byte("image-bytes"),
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want Provider
	}{
		{"gemini", ProviderGemini},
		{" GEMINI ", ProviderGemini},
		{"openai", ProviderOpenAI},
		{"", ProviderOpenAI},
		{"anything-else", ProviderOpenAI},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtract_PlaceholderWithoutCredentials(t *testing.T) {
	c := NewClient(Config{})
	doc, err := c.Extract(context.Background(), upload(), ProviderOpenAI, "my prompt")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if doc.Title != "abc_chart" {
		t.Errorf("Title = %q, want stem of stored input name", doc.Title)
	}
	if len(doc.Nodes) != 2 || doc.Nodes[0].ID != "A" || doc.Nodes[1].ID != "B" {
		t.Errorf("Nodes = %+v", doc.Nodes)
	}
	if len(doc.Edges) != 1 || doc.Edges[0].Relation != "フロー" {
		t.Errorf("Edges = %+v", doc.Edges)
	}
	if doc.Confidence["A"] != 0.7 || doc.Confidence["B"] != 0.6 {
		t.Errorf("Confidence = %+v", doc.Confidence)
	}
	if doc.Extra["provider"] != "openai" || doc.Extra["prompt"] != "my prompt" {
		t.Errorf("Extra = %+v", doc.Extra)
	}
	if doc.Extra["source_preview"] == "" {
		t.Error("source_preview should carry the encoded input")
	}
}

func TestExtract_PlaceholderEchoesNullPrompt(t *testing.T) {
	c := NewClient(Config{})
	doc, err := c.Extract(context.Background(), upload(), ProviderOpenAI, "")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	// The key is always present; without an override it carries null.
	val, ok := doc.Extra["prompt"]
	if !ok {
		t.Fatal("prompt key missing from placeholder extras")
	}
	if val != nil {
		t.Errorf("prompt = %v, want nil", val)
	}
}

func TestExtract_PlaceholderDeterministic(t *testing.T) {
	c := NewClient(Config{})
	first, _ := c.Extract(context.Background(), upload(), ProviderGemini, "")
	second, _ := c.Extract(context.Background(), upload(), ProviderGemini, "")
	if first.Title != second.Title || first.Nodes[0] != second.Nodes[0] {
		t.Error("placeholder document should be deterministic")
	}
}

func TestExtract_DecodesWholeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"title":"From API","nodes":[{"id":"X","label":"x"}],"edges":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{OpenAIKey: "k", OpenAIEndpoint: srv.URL})
	doc, err := c.Extract(context.Background(), upload(), ProviderOpenAI, "")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if doc.Title != "From API" || len(doc.Nodes) != 1 {
		t.Errorf("doc = %+v", doc)
	}
}

func TestExtract_DecodesOutputMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":{"title":"Nested","nodes":[],"edges":[]},"usage":{"tokens":12}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{OpenAIKey: "k", OpenAIEndpoint: srv.URL})
	doc, err := c.Extract(context.Background(), upload(), ProviderOpenAI, "")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if doc.Title != "Nested" {
		t.Errorf("Title = %q, want the output member's document", doc.Title)
	}
}

func TestExtract_UpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{OpenAIKey: "k", OpenAIEndpoint: srv.URL})
	_, err := c.Extract(context.Background(), upload(), ProviderOpenAI, "")
	if !errors.Is(err, errors.ErrCodeUpstream) {
		t.Errorf("Extract(5xx) = %v, want UPSTREAM_ERROR", err)
	}
}

func TestExtract_UpstreamGarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(Config{OpenAIKey: "k", OpenAIEndpoint: srv.URL})
	_, err := c.Extract(context.Background(), upload(), ProviderOpenAI, "")
	if !errors.Is(err, errors.ErrCodeUpstream) {
		t.Errorf("Extract(garbage) = %v, want UPSTREAM_ERROR", err)
	}
}

func TestExtract_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{OpenAIKey: "k", OpenAIEndpoint: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Extract(context.Background(), upload(), ProviderOpenAI, "")
	if !errors.Is(err, errors.ErrCodeUpstream) {
		t.Errorf("Extract(timeout) = %v, want UPSTREAM_ERROR", err)
	}
}

func TestExtract_GeminiSelectsOwnCredential(t *testing.T) {
	// Gemini has no key configured, so even though OpenAI has one the call
	// must fall back to the placeholder.
	c := NewClient(Config{OpenAIKey: "k"})
	doc, err := c.Extract(context.Background(), upload(), ProviderGemini, "")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if doc.Extra["provider"] != "gemini" {
		t.Errorf("Extra[provider] = %v, want gemini", doc.Extra["provider"])
	}
}
