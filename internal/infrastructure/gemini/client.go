package gemini

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/sports-insights/internal/decoder"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
	"github.com/riskibarqy/sports-insights/internal/platform/resilience"
	"github.com/riskibarqy/sports-insights/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL      = "https://generativelanguage.googleapis.com"
	defaultModel        = "gemini-2.5-flash"
	defaultPollInterval = 2 * time.Second
	defaultTimeout      = 60 * time.Second
	maxResponseBytes    = 8 << 20
)

var apiKeyParamRegex = regexp.MustCompile(`key=[^&\s"']+`)

var (
	errGeminiTransient = crerr.New("gemini transient failure")

	// ErrRejected marks requests the provider refused to answer, such as
	// blocked prompts or failed file processing.
	ErrRejected = crerr.New("gemini rejected the request")
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Model          string
	Generation     GenerationConfig
	Timeout        time.Duration
	PollInterval   time.Duration
	Retry          resilience.RetryConfig
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the Gemini REST API: the Files API for data uploads and
// generateContent for insight documents.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
	model        string
	generation   GenerationConfig
	pollInterval time.Duration
	retry        resilience.RetryConfig
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	files        resilience.Group[File]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	// Streams outlive any fixed client timeout; their context bounds them.
	streamClient := *httpClient
	streamClient.Timeout = 0

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	generation := cfg.Generation
	if generation == (GenerationConfig{}) {
		generation = DefaultGenerationConfig()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Client{
		httpClient:   httpClient,
		streamClient: &streamClient,
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        model,
		generation:   generation,
		pollInterval: pollInterval,
		retry:        cfg.Retry,
		logger:       logger,
		breaker:      resilience.NewCircuitBreaker(cfg.CircuitBreaker),
	}
}

// Breaker exposes the client's circuit breaker for state hooks.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

// UploadFile stores data with the Files API using the resumable protocol:
// a start request that returns an upload URL, then a single upload+finalize.
func (c *Client) UploadFile(ctx context.Context, displayName, mimeType string, data []byte) (File, error) {
	if len(data) == 0 {
		return File{}, fmt.Errorf("%w: file %q is empty", usecase.ErrInvalidInput, displayName)
	}

	var start uploadStartRequest
	start.File.DisplayName = displayName
	startBody, err := sonic.Marshal(start)
	if err != nil {
		return File{}, fmt.Errorf("encode upload start: %w", err)
	}

	var uploaded uploadEnvelope
	err = c.guard(ctx, "upload", func() error {
		resp, err := c.execute(ctx, c.httpClient, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/v1beta/files", bytes.NewReader(startBody))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Goog-Upload-Protocol", "resumable")
			req.Header.Set("X-Goog-Upload-Command", "start")
			req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.Itoa(len(data)))
			req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
			return req, nil
		})
		if err != nil {
			return crerr.Wrapf(err, "start upload %s", displayName)
		}
		_ = resp.Body.Close()

		uploadURL := resp.Header.Get("X-Goog-Upload-URL")
		if uploadURL == "" {
			return crerr.Newf("start upload %s: response carried no upload url", displayName)
		}

		resp, err = c.execute(ctx, c.httpClient, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
			req.ContentLength = int64(len(data))
			req.Header.Set("X-Goog-Upload-Offset", "0")
			req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
			return req, nil
		})
		if err != nil {
			return crerr.Wrapf(err, "finalize upload %s", displayName)
		}
		return decodeBody(resp, &uploaded)
	})
	if err != nil {
		return File{}, err
	}

	c.logger.InfoContext(ctx, "gemini file uploaded", "display_name", displayName, "name", uploaded.File.Name, "state", uploaded.File.State)
	return uploaded.File, nil
}

// GetFile fetches the metadata of an uploaded file by its resource name.
func (c *Client) GetFile(ctx context.Context, name string) (File, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return File{}, fmt.Errorf("%w: file name is required", usecase.ErrInvalidInput)
	}

	var file File
	err := c.guard(ctx, "get_file", func() error {
		resp, err := c.execute(ctx, c.httpClient, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1beta/"+name, nil)
		})
		if err != nil {
			return crerr.Wrapf(err, "get file %s", name)
		}
		return decodeBody(resp, &file)
	})
	return file, err
}

// WaitActive polls every file until the provider reports it ACTIVE.
// Concurrent waits for the same file share one poll loop.
func (c *Client) WaitActive(ctx context.Context, files []File) ([]File, error) {
	out := make([]File, len(files))
	for i, f := range files {
		active, err, _ := c.files.Do(f.Name, func() (File, error) {
			return c.waitFile(ctx, f)
		})
		if err != nil {
			return nil, err
		}
		out[i] = active
	}
	return out, nil
}

func (c *Client) waitFile(ctx context.Context, f File) (File, error) {
	for {
		switch f.State {
		case FileStateActive:
			return f, nil
		case FileStateFailed:
			return File{}, fmt.Errorf("%w: file %s failed processing", ErrRejected, f.Name)
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return File{}, fmt.Errorf("wait for file %s: %w", f.Name, ctx.Err())
		case <-timer.C:
		}

		next, err := c.GetFile(ctx, f.Name)
		if err != nil {
			return File{}, err
		}
		c.logger.DebugContext(ctx, "gemini file state polled", "name", f.Name, "state", next.State)
		f = next
	}
}

// StreamGenerate opens a server-sent event stream of generation chunks.
func (c *Client) StreamGenerate(ctx context.Context, prompt string, files []usecase.RemoteFile) (usecase.TextStream, error) {
	body, err := sonic.Marshal(buildGenerateRequest(prompt, files, c.generation))
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, url.PathEscape(c.model))
	var resp *http.Response
	err = c.guard(ctx, "stream_generate", func() error {
		var openErr error
		resp, openErr = c.execute(ctx, c.streamClient, func() (*http.Request, error) {
			return c.newJSONRequest(ctx, endpoint, body)
		})
		if openErr != nil {
			return crerr.Wrap(openErr, "open generate stream")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reader := decoder.NewReader(resp.Body)
	reader.Watch(ctx)
	c.logger.InfoContext(ctx, "gemini stream opened", "model", c.model, "files", len(files), "prompt_bytes", len(prompt))
	return &Stream{reader: reader, logger: c.logger}, nil
}

// Generate runs a unary generateContent call and returns the reply text.
func (c *Client) Generate(ctx context.Context, prompt string, files []usecase.RemoteFile) (string, error) {
	body, err := sonic.Marshal(buildGenerateRequest(prompt, files, c.generation))
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	var out generateResponse
	err = c.guard(ctx, "generate", func() error {
		resp, err := c.execute(ctx, c.httpClient, func() (*http.Request, error) {
			return c.newJSONRequest(ctx, endpoint, body)
		})
		if err != nil {
			return crerr.Wrap(err, "generate content")
		}
		return decodeBody(resp, &out)
	})
	if err != nil {
		return "", err
	}

	if reason := out.blockReason(); reason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrRejected, reason)
	}
	return out.text(), nil
}

func (c *Client) newJSONRequest(ctx context.Context, endpoint string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// guard runs fn behind the circuit breaker. Only transient failures count
// against the provider.
func (c *Client) guard(ctx context.Context, op string, fn func() error) error {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "gemini circuit breaker rejected request", "op", op, "state", c.breaker.State())
		return fmt.Errorf("%w: model provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	err := fn()
	c.breaker.Record(err, isGeminiCircuitFailure)
	return err
}

// execute sends the request built by build, retrying transient failures with
// linear backoff. A 2xx response is returned with its body unread.
func (c *Client) execute(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is not configured", usecase.ErrDependencyUnavailable)
	}

	var out *http.Response
	err := resilience.Retry(ctx, c.retry, isGeminiCircuitFailure, func(attempt int) error {
		req, err := build()
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("x-goog-api-key", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: send request: %s", errGeminiTransient, c.sanitize(err.Error()))
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			out = resp
			return nil
		}

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		if isRetryableStatus(resp.StatusCode) {
			c.logger.WarnContext(ctx, "gemini request will be retried", "status", resp.StatusCode, "attempt", attempt, "url", redactAPIURL(req.URL.String()))
			return fmt.Errorf("%w: provider status=%d body=%s", errGeminiTransient, resp.StatusCode, c.sanitize(abbreviateBody(raw)))
		}
		return fmt.Errorf("provider status=%d body=%s", resp.StatusCode, c.sanitize(abbreviateBody(raw)))
	})
	if err != nil {
		c.logger.WarnContext(ctx, "gemini request failed", "error", err)
		return nil, err
	}
	return out, nil
}

func decodeBody(resp *http.Response, target any) error {
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response body: %v", errGeminiTransient, err)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if c.apiKey != "" {
		value = strings.ReplaceAll(value, c.apiKey, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "key=REDACTED")
}

func isGeminiCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errGeminiTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("key") {
		query.Set("key", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
