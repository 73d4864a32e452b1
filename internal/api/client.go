package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout  = 10 * time.Second
	errorBodyLimit      = 512
	defaultContextLimit = 5
	defaultAlertLimit   = 10
	defaultASRLanguage  = "en-US"
)

// TokenSource supplies the bearer token attached to outgoing requests.
// An empty token means the Authorization header is omitted entirely.
type TokenSource interface {
	Token() string
}

// Client talks to the document-intelligence backend. It is stateless between
// calls apart from the token lookup.
type Client struct {
	base   string
	tokens TokenSource
	client *http.Client
}

// NewClient builds a Client for the given base URL. A nil httpClient gets a
// default with a bounded timeout so no call can hang past the retry budget.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		tokens: tokens,
		client: httpClient,
	}
}

// ParseDocument uploads a file for parsing. The reader is consumed fully.
func (c *Client) ParseDocument(ctx context.Context, filename string, file io.Reader) (ParsedDocument, error) {
	var doc ParsedDocument
	err := c.postMultipart(ctx, "/api/parse", []multipartFile{{field: "file", name: filename, body: file}}, nil, &doc)
	return doc, err
}

// SpeechToText submits recorded audio for transcription. An empty language
// falls back to en-US, matching the backend default.
func (c *Client) SpeechToText(ctx context.Context, filename string, audio io.Reader, language string) (TranscriptResult, error) {
	if language == "" {
		language = defaultASRLanguage
	}
	var result TranscriptResult
	err := c.postMultipart(ctx, "/api/asr",
		[]multipartFile{{field: "audio_file", name: filename, body: audio}},
		map[string]string{"language": language},
		&result)
	return result, err
}

// QueryDocuments asks a question over the uploaded corpus. contextLimit is a
// hint bounding how many citations the backend may return; zero or negative
// means the backend default of 5.
func (c *Client) QueryDocuments(ctx context.Context, question string, contextLimit int, includeSources bool) (QueryAnswer, error) {
	if contextLimit <= 0 {
		contextLimit = defaultContextLimit
	}
	payload := map[string]any{
		"question":        question,
		"context_limit":   contextLimit,
		"include_sources": includeSources,
	}
	var answer QueryAnswer
	err := c.postJSON(ctx, "/api/query", payload, &answer)
	return answer, err
}

// GetAlerts fetches recent anomaly alerts. A zero limit means the backend
// default of 10. An empty severity leaves the filter off the request rather
// than sending an empty parameter.
func (c *Client) GetAlerts(ctx context.Context, limit int, severity string) ([]AnomalyAlert, error) {
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if severity != "" {
		params.Set("severity", severity)
	}
	var alerts []AnomalyAlert
	err := c.getJSON(ctx, "/api/alerts", params, &alerts)
	return alerts, err
}

// GetDashboardStats fetches the aggregate dashboard snapshot.
func (c *Client) GetDashboardStats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	err := c.getJSON(ctx, "/api/dashboard/stats", nil, &stats)
	return stats, err
}

// HealthCheck probes the backend's health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (HealthStatus, error) {
	var status HealthStatus
	err := c.getJSON(ctx, "/health", nil, &status)
	return status, err
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	target := c.base + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

type multipartFile struct {
	field string
	name  string
	body  io.Reader
}

func (c *Client) postMultipart(ctx context.Context, path string, files []multipartFile, fields map[string]string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.body); err != nil {
			return fmt.Errorf("read %s: %w", f.name, err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return backendErrorFrom(resp)
	}

	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

func backendErrorFrom(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	message := strings.TrimSpace(string(body))

	// FastAPI-style error envelope.
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != "" {
		message = envelope.Detail
	}
	return &BackendError{Status: resp.StatusCode, Message: message}
}
