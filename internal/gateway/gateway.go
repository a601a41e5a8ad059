// Package gateway delivers WhatsApp messages through the provider's HTTP API.
// The provider has shipped several shapes of the send endpoint over time, so
// delivery walks an ordered list of request variants until one is accepted.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

const defaultTimeout = 10 * time.Second

var gatewayTracer = otel.Tracer("clinic.internal.gateway")

// Config controls how the delivery client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	AccountID  string
	PhoneID    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client sends messages through the provider API.
type Client struct {
	baseURL    string
	apiKey     string
	accountID  string
	phoneID    string
	httpClient *http.Client
	logger     *logging.Logger
	now        func() time.Time
}

// Message is one outbound text for a contact.
type Message struct {
	ChatNumber string
	Text       string
}

// AttemptRecord captures one variant attempt for diagnostics. The credential
// never appears in it.
type AttemptRecord struct {
	Variant    string `json:"variant"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
	Accepted   bool   `json:"accepted"`
	Error      string `json:"error,omitempty"`
}

// Delivery is the outcome of a send, including every attempt made.
type Delivery struct {
	Sent     bool
	Variant  string
	Attempts []AttemptRecord
}

// variant describes one shape of the provider's send endpoint.
type variant struct {
	name      string
	method    string
	suffix    string
	credParam string
}

// Ordered by historical acceptance rate. 404 and 405 responses fall through
// to the next variant; any other rejection is treated as the provider's
// answer and stops the walk.
var sendVariants = []variant{
	{name: "post-key", method: http.MethodPost, suffix: "", credParam: "key"},
	{name: "post-api-key", method: http.MethodPost, suffix: "", credParam: "api_key"},
	{name: "get-key", method: http.MethodGet, suffix: "", credParam: "key"},
	{name: "post-v1-key", method: http.MethodPost, suffix: "/api/v1", credParam: "key"},
}

// New creates a delivery client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gateway: API key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     cfg.APIKey,
		accountID:  cfg.AccountID,
		phoneID:    cfg.PhoneID,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Send delivers one message, trying each endpoint variant in order.
func (c *Client) Send(ctx context.Context, msg Message) (Delivery, error) {
	ctx, span := gatewayTracer.Start(ctx, "gateway.send")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.chat_number", msg.ChatNumber))

	if strings.TrimSpace(msg.ChatNumber) == "" {
		return Delivery{}, errors.New("gateway: chat number is required")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return Delivery{}, errors.New("gateway: text is required")
	}

	var delivery Delivery
	for _, v := range sendVariants {
		rec := c.attempt(ctx, v, msg)
		delivery.Attempts = append(delivery.Attempts, rec)

		if rec.Accepted {
			delivery.Sent = true
			delivery.Variant = v.name
			span.SetAttributes(attribute.String("clinic.gateway_variant", v.name))
			return delivery, nil
		}
		if rec.StatusCode == http.StatusNotFound || rec.StatusCode == http.StatusMethodNotAllowed {
			c.logger.Debug("gateway variant not supported, trying next", "variant", v.name, "status", rec.StatusCode)
			continue
		}
		if rec.StatusCode != 0 {
			// The endpoint exists and said no; further variants would
			// carry the same payload to the same provider.
			break
		}
		// Transport failure: the next variant reuses the same host, so
		// retrying another shape rarely helps, but it is cheap.
	}

	span.SetAttributes(attribute.Bool("clinic.gateway_sent", false))
	return delivery, fmt.Errorf("gateway: all send variants rejected for %s", msg.ChatNumber)
}

func (c *Client) attempt(ctx context.Context, v variant, msg Message) AttemptRecord {
	fullURL := c.buildURL(v, msg)
	rec := AttemptRecord{Variant: v.name, Method: v.method, URL: maskCredential(fullURL, c.apiKey)}

	req, err := http.NewRequestWithContext(ctx, v.method, fullURL, nil)
	if err != nil {
		rec.Error = err.Error()
		return rec
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		rec.Error = err.Error()
		c.logger.Warn("gateway attempt failed", "variant", v.name, "error", err)
		return rec
	}
	defer resp.Body.Close()

	rec.StatusCode = resp.StatusCode
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	rec.Accepted = accepted(resp.StatusCode, body)
	if !rec.Accepted && resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		c.logger.Warn("gateway rejected message",
			"variant", v.name,
			"status", resp.StatusCode,
			"chat_number", msg.ChatNumber,
		)
	}
	return rec
}

// buildURL assembles the query-string request the provider expects. The
// provider reads everything from the query even on POST.
func (c *Client) buildURL(v variant, msg Message) string {
	q := url.Values{}
	q.Set(v.credParam, c.apiKey)
	q.Set("account_id", c.accountID)
	q.Set("phone_id", c.phoneID)
	q.Set("action", "message_send")
	q.Set("send_date", c.now().Format("2006-01-02 15:04"))
	q.Set("text", msg.Text)
	q.Set("chat_number", msg.ChatNumber)
	return c.baseURL + v.suffix + "?" + q.Encode()
}

// accepted applies the provider's inconsistent success signals: an HTTP 2xx,
// a body code of 201, or result "success".
func accepted(status int, body []byte) bool {
	if status >= 200 && status < 300 {
		return true
	}
	var parsed struct {
		Code   json.Number `json:"code"`
		Result string      `json:"result"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false
	}
	if parsed.Code.String() == "201" {
		return true
	}
	return strings.EqualFold(parsed.Result, "success")
}

func maskCredential(fullURL, key string) string {
	if key == "" {
		return fullURL
	}
	masked := "****"
	if len(key) > 6 {
		masked = key[:4] + "****"
	}
	return strings.ReplaceAll(fullURL, url.QueryEscape(key), masked)
}
