// Package afterhours forwards out-of-hours events to an external workflow
// that may take over the reply. When it declines or fails, the regular
// pipeline continues.
package afterhours

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

const defaultTimeout = 5 * time.Second

// Event is the payload forwarded to the after-hours workflow.
type Event struct {
	Phone       string `json:"phone"`
	ContactName string `json:"contactName,omitempty"`
	Message     string `json:"message"`
	InstanceID  string `json:"instanceId,omitempty"`
	ReceivedAt  string `json:"receivedAt"`
}

// Interception is the workflow's verdict. Handled is true only when the
// workflow produced a reply the pipeline should deliver instead of its own.
type Interception struct {
	Handled bool
	Message string
}

type webhookResponse struct {
	Success      bool   `json:"success"`
	Action       string `json:"action"`
	Message      string `json:"message"`
	ReplyMessage string `json:"replyMessage"`
}

// Client calls the after-hours webhook.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
	logger     *logging.Logger
}

// NewClient creates an after-hours client. An empty URL disables interception.
func NewClient(url, token string, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		token:      token,
		logger:     logger,
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c.url != ""
}

// Intercept forwards the event and interprets the verdict. Any transport or
// decoding failure results in a non-handled verdict so the contact still gets
// an answer from the local pipeline.
func (c *Client) Intercept(ctx context.Context, ev Event) Interception {
	if !c.Enabled() {
		return Interception{}
	}

	body, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("after-hours payload encode failed", "error", err)
		return Interception{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("after-hours request build failed", "error", err)
		return Interception{}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("after-hours webhook unreachable", "error", err)
		return Interception{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("after-hours webhook rejected event", "status", resp.StatusCode)
		return Interception{}
	}

	var verdict webhookResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&verdict); err != nil {
		c.logger.Warn("after-hours response decode failed", "error", err)
		return Interception{}
	}

	return interpret(verdict)
}

// interpret accepts both response shapes the workflow has used over time:
// {success, action: "AUTO_REPLY", message} and {success, replyMessage}.
func interpret(v webhookResponse) Interception {
	if !v.Success {
		return Interception{}
	}
	if strings.EqualFold(v.Action, "AUTO_REPLY") && strings.TrimSpace(v.Message) != "" {
		return Interception{Handled: true, Message: strings.TrimSpace(v.Message)}
	}
	if strings.TrimSpace(v.ReplyMessage) != "" {
		return Interception{Handled: true, Message: strings.TrimSpace(v.ReplyMessage)}
	}
	return Interception{}
}

// FormatReceivedAt renders the timestamp the workflow expects.
func FormatReceivedAt(t time.Time) string {
	return t.Format(time.RFC3339)
}
