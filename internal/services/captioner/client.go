// Package captioner asks a vision model to describe an image before it is
// published. Failures are reported in-band on the Analysis value rather
// than as Go errors: a missing caption must never fail an upload.
package captioner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shutterpost/internal/config"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultPrompt  = "Describe this photograph in one or two sentences suitable as a blog caption."
	defaultTimeout = 30 * time.Second
	maxImageBytes  = 20 << 20
)

// Analysis carries the model's description or an in-band failure reason.
// Exactly one of Description and Err is non-empty.
type Analysis struct {
	Description string
	Err         string
}

// Client wraps the vision chat-completions API.
type Client struct {
	enabled    bool
	apiKey     string
	baseURL    string
	model      string
	prompt     string
	appendText string
	httpClient *http.Client
}

// Option customizes the captioner client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs a captioner from the captioning configuration section.
func NewClient(cfg config.Captioning, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		enabled:    cfg.Enabled,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    defaultBaseURL,
		model:      strings.TrimSpace(cfg.Model),
		prompt:     strings.TrimSpace(cfg.Prompt),
		appendText: strings.TrimSpace(cfg.AppendText),
		httpClient: &http.Client{Timeout: timeout},
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		client.baseURL = strings.TrimRight(base, "/")
	}
	if client.model == "" {
		client.model = defaultModel
	}
	if client.prompt == "" {
		client.prompt = defaultPrompt
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// Enabled reports whether captioning is configured to run.
func (c *Client) Enabled() bool {
	return c.enabled && c.apiKey != ""
}

// Analyze describes the image at path. The configured append text, if any,
// is attached after the model's description. All failures are reported on
// the returned Analysis.
func (c *Client) Analyze(ctx context.Context, path string) Analysis {
	if !c.Enabled() {
		return Analysis{Err: "captioning disabled"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Analysis{Err: fmt.Sprintf("read image: %v", err)}
	}
	if len(data) > maxImageBytes {
		return Analysis{Err: fmt.Sprintf("image too large for captioning: %d bytes", len(data))}
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}
	imageURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	request := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: c.prompt},
					{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
				},
			},
		},
		MaxTokens: 300,
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return Analysis{Err: fmt.Sprintf("encode request: %v", err)}
	}

	endpoint, err := url.JoinPath(c.baseURL, "chat/completions")
	if err != nil {
		return Analysis{Err: fmt.Sprintf("build url: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return Analysis{Err: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Analysis{Err: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Analysis{Err: fmt.Sprintf("read response: %v", err)}
	}
	if resp.StatusCode >= 300 {
		return Analysis{Err: fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return Analysis{Err: fmt.Sprintf("decode response: %v", err)}
	}
	if completion.Error != nil {
		return Analysis{Err: fmt.Sprintf("api error: %s", strings.TrimSpace(completion.Error.Message))}
	}
	if len(completion.Choices) == 0 {
		return Analysis{Err: "empty choices"}
	}

	description := strings.TrimSpace(completion.Choices[0].Message.Content)
	if description == "" {
		return Analysis{Err: "empty caption"}
	}
	if c.appendText != "" {
		description = description + "\n\n" + c.appendText
	}
	return Analysis{Description: description}
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}
