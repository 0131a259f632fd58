// Package blogger wraps the blog publishing API. Uploads are multipart
// photo posts; failures are classified into stable kinds so the pipeline
// and the history ledger can report them consistently.
package blogger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shutterpost/internal/config"
	"shutterpost/internal/services"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	userAgent          = "Shutterpost/0.1.0"
)

// Client publishes photo posts to the configured blog.
type Client struct {
	apiKey     string
	baseURL    string
	blogName   string
	postState  string
	httpClient *http.Client
}

// Option customizes the blog client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs a blog API client from the blog configuration section.
func NewClient(cfg config.Blog, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		blogName:   strings.TrimSpace(cfg.Name),
		postState:  strings.TrimSpace(cfg.PostState),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// UploadRequest describes one photo post. Tags are ordered: category first,
// then the configured common tags.
type UploadRequest struct {
	FilePath  string
	Category  string
	Tags      []string
	Caption   string
	PostState string
}

// UploadResult reports the outcome of one publish attempt. Attempted is
// true once the request reached the network, whatever the outcome; callers
// use it to decide whether the attempt consumed a rate-limit slot.
type UploadResult struct {
	Success      bool
	Attempted    bool
	PostID       string
	ErrorMessage string
	ErrorKind    services.Kind
	Elapsed      time.Duration
}

type postResponse struct {
	Meta struct {
		Status  int    `json:"status"`
		Message string `json:"msg"`
	} `json:"meta"`
	Response struct {
		ID       json.Number `json:"id"`
		IDString string      `json:"id_string"`
	} `json:"response"`
}

// Publish uploads the file as a photo post. The returned result always
// carries the elapsed time; on failure the error wraps the classification
// sentinel and the result mirrors its kind and message.
func (c *Client) Publish(ctx context.Context, req UploadRequest) (UploadResult, error) {
	start := time.Now()
	result := UploadResult{}

	fail := func(marker error, operation, message string, cause error) (UploadResult, error) {
		err := services.Wrap(marker, "blogger", operation, message, cause)
		result.Elapsed = time.Since(start)
		result.ErrorKind = services.Classify(err)
		result.ErrorMessage = err.Error()
		return result, err
	}

	if strings.TrimSpace(req.FilePath) == "" {
		return fail(services.ErrValidation, "publish", "file path required", nil)
	}
	if c.apiKey == "" {
		return fail(services.ErrAuth, "publish", "api key required", nil)
	}
	if c.blogName == "" {
		return fail(services.ErrValidation, "publish", "blog name required", nil)
	}

	body, contentType, err := c.buildPostBody(req)
	if err != nil {
		return fail(services.ErrValidation, "publish", "build request body", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "v2/blog", c.blogName, "post")
	if err != nil {
		return fail(services.ErrValidation, "publish", "build url", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fail(services.ErrValidation, "publish", "build request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("User-Agent", userAgent)

	result.Attempted = true
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(services.ErrNetwork, "publish", "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fail(services.ErrNetwork, "publish", "read response", err)
	}

	if resp.StatusCode >= 400 {
		marker := services.ClassifyStatus(resp.StatusCode)
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return fail(marker, "publish", detail, nil)
	}

	var parsed postResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fail(services.ErrUnknown, "publish", "decode response", err)
	}

	result.Success = true
	result.PostID = strings.TrimSpace(parsed.Response.IDString)
	if result.PostID == "" {
		result.PostID = parsed.Response.ID.String()
	}
	result.Elapsed = time.Since(start)
	return result, nil
}

// TestConnection verifies credentials by fetching the blog's info endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	if c.apiKey == "" {
		return services.Wrap(services.ErrAuth, "blogger", "test connection", "api key required", nil)
	}
	if c.blogName == "" {
		return services.Wrap(services.ErrValidation, "blogger", "test connection", "blog name required", nil)
	}

	endpoint, err := url.JoinPath(c.baseURL, "v2/blog", c.blogName, "info")
	if err != nil {
		return services.Wrap(services.ErrValidation, "blogger", "test connection", "build url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "blogger", "test connection", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrNetwork, "blogger", "test connection", "request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 400 {
		marker := services.ClassifyStatus(resp.StatusCode)
		return services.Wrap(marker, "blogger", "test connection", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) buildPostBody(req UploadRequest) (io.Reader, string, error) {
	file, err := os.Open(req.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	state := strings.TrimSpace(req.PostState)
	if state == "" {
		state = c.postState
	}
	if state == "" {
		state = "published"
	}

	fields := map[string]string{
		"type":  "photo",
		"state": state,
	}
	if caption := strings.TrimSpace(req.Caption); caption != "" {
		fields["caption"] = caption
	}
	if len(req.Tags) > 0 {
		fields["tags"] = strings.Join(req.Tags, ",")
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	part, err := writer.CreateFormFile("data", filepath.Base(req.FilePath))
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
