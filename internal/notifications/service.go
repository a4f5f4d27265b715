package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"recoder/internal/config"
)

const userAgent = "recoder/1.0"

// Event identifies a notification kind.
type Event string

const (
	EventTaskCompleted Event = "task_completed"
	EventTaskFailed    Event = "task_failed"
	EventManualFix     Event = "manual_fix"
	EventRunCompleted  Event = "run_completed"
	EventTest          Event = "test"
)

// Payload carries template variables for an event.
type Payload map[string]any

// Service defines the notification surface exposed to batch components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		taskEnabled:  cfg.Notifications.Task,
		runEnabled:   cfg.Notifications.Run,
		taskTemplate: cfg.Notifications.TaskTemplate,
		runTemplate:  cfg.Notifications.RunTemplate,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	taskEnabled  bool
	runEnabled   bool
	taskTemplate string
	runTemplate  string
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.build(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) build(event Event, payload Payload) (message, bool) {
	switch event {
	case EventTaskCompleted:
		if !n.taskEnabled {
			return message{}, false
		}
		return message{
			title: "recoder - Encoded",
			body:  Render(n.taskTemplate, payload),
			tags:  []string{"recoder", "encode", "completed"},
		}, true
	case EventRunCompleted:
		if !n.runEnabled {
			return message{}, false
		}
		return message{
			title: "recoder - Batch Complete",
			body:  Render(n.runTemplate, payload),
			tags:  []string{"recoder", "batch", "completed"},
		}, true
	case EventTaskFailed:
		if !n.taskEnabled {
			return message{}, false
		}
		return message{
			title:    "recoder - Encode Failed",
			body:     Render("{{file}} failed on {{encoder}}: {{error}}", payload),
			tags:     []string{"recoder", "encode", "failed"},
			priority: "high",
		}, true
	case EventManualFix:
		return message{
			title:    "recoder - Manual Fix Required",
			body:     Render("Could not replace {{file}} with {{encoded}}: {{error}}", payload),
			tags:     []string{"recoder", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "recoder - Test",
			body:     "Notification system test",
			tags:     []string{"recoder", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
