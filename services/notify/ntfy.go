package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"stock-alerts/models"
)

// Client pushes notifications to an ntfy server/topic.
type Client struct {
	server     string
	topic      string
	markdown   bool
	dryRun     bool
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// NewClient creates an ntfy client. With dryRun set, Send performs no
// network I/O and only logs what would have been delivered.
func NewClient(server, topic string, markdown, dryRun bool, log *zap.SugaredLogger) *Client {
	return &Client{
		server:   strings.TrimRight(server, "/"),
		topic:    topic,
		markdown: markdown,
		dryRun:   dryRun,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		log: log,
	}
}

// Send delivers one fully assembled notification. The body is posted
// as-is; formatting is the caller's responsibility.
func (c *Client) Send(ctx context.Context, n models.Notification) error {
	if c == nil {
		return fmt.Errorf("ntfy client is nil")
	}
	if c.server == "" || c.topic == "" {
		return fmt.Errorf("ntfy server or topic missing")
	}

	if c.dryRun {
		c.log.Infow("DRY-RUN ntfy",
			"server", c.server,
			"topic", MaskSecret(c.topic),
			"title", n.Title,
			"body", n.Body,
			"click", n.ClickURL,
			"markdown", c.markdown,
		)
		return nil
	}

	endpoint := c.server + "/" + c.topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(n.Body))
	if err != nil {
		return err
	}
	req.Header.Set("Title", n.Title)
	req.Header.Set("Priority", "high")
	if c.markdown {
		req.Header.Set("Markdown", "yes")
	}
	if n.ClickURL != "" {
		req.Header.Set("Click", n.ClickURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ntfy post failed status=%d body=%s", resp.StatusCode, string(raw))
	}
	c.log.Debugw("ntfy delivered", "topic", MaskSecret(c.topic), "status", resp.StatusCode)
	return nil
}

// MaskSecret shortens sensitive strings for log output, keeping only
// the first and last character.
func MaskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	runes := []rune(s)
	if len(runes) == 1 {
		return s
	}
	return string(runes[0]) + "..." + string(runes[len(runes)-1])
}
