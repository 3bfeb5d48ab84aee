package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meetingintel/internal/services"
)

const (
	serviceName        = "asr"
	defaultHTTPTimeout = 120 * time.Second
)

// Config describes the remote service.
type Config struct {
	// URL is the transcription endpoint that accepts the upload.
	URL            string
	APIKey         string
	Model          string
	Language       string
	TimeoutSeconds int
	// MaxElapsedSeconds bounds the whole retry loop.
	MaxElapsedSeconds int
}

// Word is one timed token.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcription is the service reply.
type Transcription struct {
	Text       string   `json:"text"`
	Language   string   `json:"language"`
	Confidence *float64 `json:"confidence"`
	Words      []Word   `json:"words"`
}

// Client uploads audio to the service.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      services.RetryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry policy derived from Config.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) { c.retry = policy }
}

// NewClient constructs a client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Language = strings.TrimSpace(cfg.Language)
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	policy := services.DefaultRetryPolicy()
	if cfg.MaxElapsedSeconds > 0 {
		policy.MaxElapsed = time.Duration(cfg.MaxElapsedSeconds) * time.Second
	}
	c := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}, retry: policy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool { return c != nil && c.cfg.URL != "" }

// Transcribe uploads wav under filename and returns the decoded reply.
func (c *Client) Transcribe(ctx context.Context, filename string, wav []byte) (Transcription, error) {
	if !c.Configured() {
		return Transcription{}, services.Wrap(services.ErrConfiguration, serviceName, "transcribe", "asr url is not configured", nil)
	}
	if len(wav) == 0 {
		return Transcription{}, services.Wrap(services.ErrValidation, serviceName, "transcribe", "audio is empty", nil)
	}
	body, contentType, err := c.encodeForm(filename, wav)
	if err != nil {
		return Transcription{}, services.Wrap(services.ErrValidation, serviceName, "encode form", "", err)
	}
	return services.Retry(ctx, c.retry, func() (Transcription, error) {
		return c.send(ctx, body, contentType)
	}, nil)
}

// HealthCheck probes <scheme>://<host>/health on the configured endpoint's host.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, serviceName, "health", "asr url is not configured", nil)
	}
	endpoint, err := url.Parse(c.cfg.URL)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, serviceName, "health", "invalid asr url", err)
	}
	probe := endpoint.ResolveReference(&url.URL{Path: "/health"})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe.String(), nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, serviceName, "health", "build request", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.TransportError(ctx, serviceName, "health", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &services.HTTPStatusError{Service: serviceName, StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) encodeForm(filename string, wav []byte) ([]byte, string, error) {
	if filename = strings.TrimSpace(filename); filename == "" {
		filename = "audio.wav"
	}
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}
	for field, value := range map[string]string{"language": c.cfg.Language, "model": c.cfg.Model} {
		if value == "" {
			continue
		}
		if err := form.WriteField(field, value); err != nil {
			return nil, "", err
		}
	}
	if err := form.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), form.FormDataContentType(), nil
}

func (c *Client) send(ctx context.Context, body []byte, contentType string) (Transcription, error) {
	var out Transcription
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return out, services.Wrap(services.ErrConfiguration, serviceName, "new request", "invalid asr url", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, services.TransportError(ctx, serviceName, "upload", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, services.TransportError(ctx, serviceName, "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return out, &services.HTTPStatusError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(payload)}
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, services.Wrap(services.ErrExternalTool, serviceName, "decode response", "", err)
	}
	if out.Words == nil {
		out.Words = []Word{}
	}
	if out.Confidence != nil && (*out.Confidence < 0 || *out.Confidence > 1) {
		return out, services.Wrap(services.ErrExternalTool, serviceName, "decode response", fmt.Sprintf("confidence %v outside [0, 1]", *out.Confidence), nil)
	}
	return out, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}
