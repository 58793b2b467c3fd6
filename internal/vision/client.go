package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scantocookbook/internal/logging"
	"scantocookbook/internal/services"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultHTTPTimeout = 3000 * time.Second
	defaultMaxTokens   = 4096
	completionsPath    = "/chat/completions"
)

// Config captures the runtime settings required to talk to the model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxTokens      int
}

// Client wraps the chat completions API for image analysis.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
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

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "vision")
	}
}

// NewClient constructs a vision client. A missing API key is a configuration
// error.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "vision", "init", "api key required (set OPENAI_API_KEY)", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	endpoint := cfg.BaseURL
	if !strings.HasSuffix(endpoint, completionsPath) {
		endpoint += completionsPath
	}

	client := &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(nil, "vision"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Model reports the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// MimeType maps an image file name to the media type placed in the data URL.
// Unknown extensions fall back to image/jpeg.
func MimeType(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Analyze sends the image at imagePath with the given prompts and returns the
// first non-empty completion text. An empty systemPrompt omits the system
// message.
func (c *Client) Analyze(ctx context.Context, imagePath, systemPrompt, userPrompt string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "analyze", "read image", imagePath, err)
	}
	dataURL := "data:" + MimeType(imagePath) + ";base64," + base64.StdEncoding.EncodeToString(data)

	messages := make([]chatMessage, 0, 2)
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: prompt})
	}
	messages = append(messages, chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: userPrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		},
	})

	start := time.Now()
	content, err := c.complete(ctx, chatRequest{
		Model:     c.cfg.Model,
		Messages:  messages,
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		logging.ErrorWithContext(c.logger, "image analysis failed", "vision_analyze_failed",
			logging.String(logging.FieldImage, imagePath),
			logging.String("model", c.cfg.Model),
			logging.String(logging.FieldErrorHint, "check OPENAI_BASE_URL, OPENAI_API_KEY and LLM_MODEL"),
			logging.Error(err),
		)
		return "", services.Wrap(services.ErrModel, "analyze", "chat completion", imagePath, err)
	}
	c.logger.Info("image analyzed",
		logging.String(logging.FieldImage, imagePath),
		logging.String("model", c.cfg.Model),
		logging.Int("chars", len(content)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return content, nil
}

// HealthCheck issues a tiny text-only request to verify credentials and model.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.complete(ctx, chatRequest{
		Model:     c.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: "Reply with OK."}},
		MaxTokens: 5,
	})
	if err != nil {
		return services.Wrap(services.ErrModel, "health", "chat completion", c.cfg.Model, err)
	}
	return nil
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Refusal string          `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, summarize(e.Body))
}

func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("decode response: %w (body: %s)", err, summarize(string(body)))
	}
	if completion.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	for _, choice := range completion.Choices {
		if text := contentText(choice.Message.Content); strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	first := completion.Choices[0]
	return "", fmt.Errorf("empty content (finish_reason=%q, refusal=%q)", first.FinishReason, first.Message.Refusal)
}

// contentText accepts either a plain string or an array of typed parts. The
// text is returned verbatim.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	var b strings.Builder
	for _, part := range parts {
		if part.Type == "text" || part.Type == "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func summarize(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
