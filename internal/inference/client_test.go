package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/example/signature-verify/internal/imaging"
)

func buildTestImage(t *testing.T) *imaging.Image {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	for x := 0; x < 6; x++ {
		for y := 0; y < 6; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), A: 255})
		}
	}
	return &imaging.Image{Pixels: img, Format: "png"}
}

func TestCleanerClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/clean" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}

		var req cleanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Image == "" {
			t.Error("expected image payload in request")
		}
		_ = json.NewEncoder(w).Encode(cleanResponse{Image: req.Image})
	}))
	defer server.Close()

	client := NewCleanerClient(Config{BaseURL: server.URL}, zap.NewNop())
	src := buildTestImage(t)

	cleaned, err := client.Clean(context.Background(), src)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !bytes.Equal(imaging.Digest(src), imaging.Digest(cleaned)) {
		t.Fatal("expected identical pixels from echo server")
	}
}

func TestCleanerClientSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewCleanerClient(Config{BaseURL: server.URL}, zap.NewNop())
	if _, err := client.Clean(context.Background(), buildTestImage(t)); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestCleanerClientRejectsCorruptResponsePayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(cleanResponse{Image: "%%not-base64%%"})
	}))
	defer server.Close()

	client := NewCleanerClient(Config{BaseURL: server.URL}, zap.NewNop())
	if _, err := client.Clean(context.Background(), buildTestImage(t)); err == nil {
		t.Fatal("expected error for corrupt cleaned payload")
	}
}

func TestMatcherClientParsesScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/compare" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req compareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Image1 == "" || req.Image2 == "" {
			t.Error("expected both image payloads in request")
		}
		_ = json.NewEncoder(w).Encode(compareResponse{Score: 0.42})
	}))
	defer server.Close()

	client := NewMatcherClient(Config{BaseURL: server.URL}, zap.NewNop())
	img := buildTestImage(t)

	score, err := client.Compare(context.Background(), img, img)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if score != 0.42 {
		t.Fatalf("expected score 0.42, got %g", score)
	}
}

func TestMatcherClientSurfacesTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewMatcherClient(Config{BaseURL: server.URL}, zap.NewNop())
	img := buildTestImage(t)
	if _, err := client.Compare(context.Background(), img, img); err == nil {
		t.Fatal("expected error for unreachable service")
	}
}

func TestPingSucceedsOnHealthyService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewCleanerClient(Config{BaseURL: server.URL}, zap.NewNop())
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("expected healthy probe, got %v", err)
	}
}

func TestPingFailsOnUnhealthyService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewMatcherClient(Config{BaseURL: server.URL}, zap.NewNop())
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected probe failure for 503 response")
	}
}
