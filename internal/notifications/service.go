package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scantocookbook/internal/config"
)

const userAgent = "scantocookbook/0.1.0"

// RunSummary describes a finished batch.
type RunSummary struct {
	Mode      string
	RunID     string
	Processed int
	Failed    int
	Duration  time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether svc actually delivers messages.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, s RunSummary) error {
	duration := s.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	data := payload{tags: []string{"scantocookbook", s.Mode}}
	switch {
	case s.Processed+s.Failed == 0:
		data.title = "Recipes - Nothing To Do"
		data.message = "No images found"
		data.priority = "low"
	case s.Failed == 0:
		data.title = "Recipes - Run Complete"
		data.message = fmt.Sprintf("📖 %d recipes added in %s", s.Processed, duration)
		data.tags = append(data.tags, "completed")
	case s.Processed == 0:
		data.title = "Recipes - Run Failed"
		data.message = fmt.Sprintf("❌ All %d images failed in %s", s.Failed, duration)
		data.tags = append(data.tags, "failed")
		data.priority = "high"
	default:
		data.title = "Recipes - Run Complete (with errors)"
		data.message = fmt.Sprintf("📖 %d recipes added, %d images failed in %s", s.Processed, s.Failed, duration)
		data.tags = append(data.tags, "completed", "warning")
	}
	if s.RunID != "" {
		data.message += "\nRun: " + s.RunID
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "Recipes - Error",
		message:  builder.String(),
		tags:     []string{"scantocookbook", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Recipes - Test",
		message:  "🧪 Notification test",
		tags:     []string{"scantocookbook", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error     { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
