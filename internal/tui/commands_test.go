package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nkamath/docstudio/internal/api"
	"github.com/nkamath/docstudio/internal/config"
	"github.com/nkamath/docstudio/internal/docfile"
	"github.com/nkamath/docstudio/internal/query"
)

func testMutation(t *testing.T, invalidates ...query.Key) *query.Mutation {
	t.Helper()
	return query.NewMutation(query.NewStore(2*time.Second), invalidates...)
}

func TestQuestionJobDeliversAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/query" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer":"The total revenue is $1.2M","sources":[],"confidence":0.9,"processing_time":1.3}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil, nil)
	msg, err := questionJob(testMutation(t), client, "req-1", "what is the total revenue?")(context.Background())
	if err != nil {
		t.Fatalf("question job failed: %v", err)
	}
	result, ok := msg.(answerResultMsg)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}
	if result.replyTo != "req-1" {
		t.Fatalf("replyTo = %q, want req-1", result.replyTo)
	}
	if result.answer.Answer != "The total revenue is $1.2M" {
		t.Fatalf("answer = %q", result.answer.Answer)
	}
}

func TestQuestionJobSurfacesBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":"index unavailable"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil, nil)
	msg, err := questionJob(testMutation(t), client, "req-2", "anything")(context.Background())
	if err == nil {
		t.Fatal("expected an error from the failing backend")
	}
	result, ok := msg.(answerResultMsg)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}
	var backendErr *api.BackendError
	if !errors.As(result.err, &backendErr) {
		t.Fatalf("err = %v, want BackendError", result.err)
	}
	if backendErr.Message != "index unavailable" {
		t.Fatalf("detail not extracted, got %q", backendErr.Message)
	}
}

func TestParseJobUploadsInspectedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte("quarterly numbers"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := docfile.Inspect(path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("bad multipart request: %v", err)
		}
		if _, header, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		} else if header.Filename != "report.txt" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"file_id":"f-1","filename":"report.txt","content":"quarterly numbers","metadata":{}}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil, nil)
	msg, err := parseJob(testMutation(t, statsKey()), client, 0, info)(context.Background())
	if err != nil {
		t.Fatalf("parse job failed: %v", err)
	}
	result, ok := msg.(parseResultMsg)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}
	if result.doc.FileID != "f-1" {
		t.Fatalf("doc = %+v", result.doc)
	}
}

func TestTranscribeJobRemovesAudioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("bad multipart request: %v", err)
		}
		if got := r.FormValue("language"); got != "en-US" {
			t.Errorf("language = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transcript":"show revenue by quarter","confidence":0.92,"language":"en-US"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, nil, nil)
	msg, err := transcribeJob(testMutation(t), client, path, "en-US")(context.Background())
	if err != nil {
		t.Fatalf("transcribe job failed: %v", err)
	}
	result, ok := msg.(transcriptResultMsg)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}
	if result.result.Transcript != "show revenue by quarter" {
		t.Fatalf("transcript = %q", result.result.Transcript)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("audio file should be removed after upload")
	}
}

func TestSaveSettingsJobWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.Config{}
	cfg.API.BaseURL = "http://localhost:8000"
	cfg.Keys.GraniteAPIKey = "granite-key"

	msg, err := saveSettingsJob(path, cfg)(context.Background())
	if err != nil {
		t.Fatalf("save job failed: %v", err)
	}
	if saved, ok := msg.(settingsSavedMsg); !ok || saved.err != nil {
		t.Fatalf("unexpected result %T %+v", msg, msg)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Keys.GraniteAPIKey != "granite-key" {
		t.Fatalf("key not persisted, got %q", loaded.Keys.GraniteAPIKey)
	}
}
