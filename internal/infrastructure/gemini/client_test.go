package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-insights/internal/platform/resilience"
	"github.com/riskibarqy/sports-insights/internal/usecase"
)

func newTestClient(srv *httptest.Server, mutate func(*ClientConfig)) *Client {
	cfg := ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		APIKey:         "secret-key",
		PollInterval:   time.Millisecond,
		Retry:          resilience.RetryConfig{MaxRetries: 2, Backoff: time.Millisecond},
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg)
}

func TestClientUploadFile_ResumableProtocol(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "secret-key" {
			t.Errorf("unexpected api key header: %q", got)
		}
		switch r.URL.Path {
		case "/upload/v1beta/files":
			if got := r.Header.Get("X-Goog-Upload-Command"); got != "start" {
				t.Errorf("unexpected start command: %q", got)
			}
			if got := r.Header.Get("X-Goog-Upload-Header-Content-Length"); got != "11" {
				t.Errorf("unexpected content length header: %q", got)
			}
			if got := r.Header.Get("X-Goog-Upload-Header-Content-Type"); got != "text/csv" {
				t.Errorf("unexpected content type header: %q", got)
			}
			var start map[string]map[string]string
			if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&start); err != nil {
				t.Errorf("decode start body: %v", err)
			}
			if start["file"]["display_name"] != "nba_players.csv" {
				t.Errorf("unexpected display name: %v", start)
			}
			w.Header().Set("X-Goog-Upload-URL", srv.URL+"/resumable/abc")
			w.WriteHeader(http.StatusOK)
		case "/resumable/abc":
			if got := r.Header.Get("X-Goog-Upload-Command"); got != "upload, finalize" {
				t.Errorf("unexpected finalize command: %q", got)
			}
			raw, _ := io.ReadAll(r.Body)
			if string(raw) != "name,team\nx" {
				t.Errorf("unexpected upload body: %q", raw)
			}
			_, _ = io.WriteString(w, `{"file":{"name":"files/abc","displayName":"nba_players.csv","mimeType":"text/csv","state":"PROCESSING","uri":"https://files/abc"}}`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	file, err := newTestClient(srv, nil).UploadFile(context.Background(), "nba_players.csv", "text/csv", []byte("name,team\nx"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if file.Name != "files/abc" || file.State != FileStateProcessing {
		t.Fatalf("unexpected file: %+v", file)
	}
	if ref := file.Ref(); ref.URI != "https://files/abc" || ref.MimeType != "text/csv" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}

func TestClientUploadFile_RejectsEmptyData(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{APIKey: "k"})
	if _, err := client.UploadFile(context.Background(), "empty.csv", "text/csv", nil); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClientWaitActive_PollsUntilActive(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/files/abc" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		state := FileStateProcessing
		if polls.Add(1) >= 2 {
			state = FileStateActive
		}
		_, _ = fmt.Fprintf(w, `{"name":"files/abc","state":%q,"uri":"https://files/abc"}`, state)
	}))
	defer srv.Close()

	files, err := newTestClient(srv, nil).WaitActive(context.Background(), []File{{Name: "files/abc", State: FileStateProcessing}})
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if len(files) != 1 || files[0].State != FileStateActive {
		t.Fatalf("unexpected files: %+v", files)
	}
	if got := polls.Load(); got != 2 {
		t.Fatalf("polled %d times, want 2", got)
	}
}

func TestClientWaitActive_FailedFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name":"files/abc","state":"FAILED"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).WaitActive(context.Background(), []File{{Name: "files/abc", State: FileStateProcessing}})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestClientStreamGenerate_YieldsTextFragments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash:streamGenerateContent" || r.URL.Query().Get("alt") != "sse" {
			t.Errorf("unexpected url: %s", r.URL.String())
		}

		var req generateRequest
		if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[0].FileData == nil || parts[0].FileData.FileURI != "https://files/abc" || parts[1].Text != "prompt" {
			t.Errorf("unexpected parts: %+v", parts)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" || req.GenerationConfig.TopK != 40 {
			t.Errorf("unexpected generation config: %+v", req.GenerationConfig)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"{\\\"players\\\":\"}]}}]}\r\n\r\n")
		_, _ = io.WriteString(w, "data: {\"usageMetadata\":{\"totalTokenCount\":12}}\n\n")
		_, _ = io.WriteString(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"thinking\",\"thought\":true},{\"text\":\"{}}\"}]}}]}\n\n")
	}))
	defer srv.Close()

	stream, err := newTestClient(srv, nil).StreamGenerate(context.Background(), "prompt", []usecase.RemoteFile{{URI: "https://files/abc", MimeType: "text/csv"}})
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()

	var got []string
	for {
		text, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		got = append(got, text)
	}
	if strings.Join(got, "") != `{"players":{}}` || len(got) != 2 {
		t.Fatalf("unexpected fragments: %q", got)
	}
}

func TestClientStreamGenerate_UpstreamErrorEvent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "data: {\"error\":{\"code\":500,\"message\":\"overloaded\",\"status\":\"INTERNAL\"}}\n\n")
	}))
	defer srv.Close()

	stream, err := newTestClient(srv, nil).StreamGenerate(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()

	if _, err := stream.Next(); !errors.Is(err, ErrRejected) || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected rejected error, got %v", err)
	}
}

func TestClientGenerate_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":"busy"}`)
			return
		}
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"players\":{}}"}]}}]}`)
	}))
	defer srv.Close()

	text, err := newTestClient(srv, nil).Generate(context.Background(), "prompt", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != `{"players":{}}` {
		t.Fatalf("unexpected text: %q", text)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestClientGenerate_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"bad key=secret-key"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).Generate(context.Background(), "prompt", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Fatalf("api key leaked in error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestClientGenerate_CircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv, func(cfg *ClientConfig) {
		cfg.Retry = resilience.RetryConfig{}
		cfg.CircuitBreaker = resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute}
	})

	if _, err := client.Generate(context.Background(), "prompt", nil); err == nil {
		t.Fatalf("expected first call to fail")
	}
	if _, err := client.Generate(context.Background(), "prompt", nil); !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:0"})
	if _, err := client.Generate(context.Background(), "prompt", nil); !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}
