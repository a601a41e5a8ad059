package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

var webhookTracer = otel.Tracer("clinic.internal.webhook")

// Result is what processing one event produced, echoed back to the provider.
type Result struct {
	Action         string `json:"action"`
	Reason         string `json:"reason,omitempty"`
	ReplySent      bool   `json:"replySent"`
	HandoffToHuman bool   `json:"handoffToHuman"`
	Persona        string `json:"persona,omitempty"`
	Intent         string `json:"intent,omitempty"`
}

// Processor handles a normalized inbound event.
type Processor interface {
	Process(ctx context.Context, ev Event) (Result, error)
}

// HandlerConfig configures the inbound webhook handler.
type HandlerConfig struct {
	// Token guards the endpoint; empty disables the check.
	Token string
	// AllowedPhone restricts processing to a single contact, for staging.
	AllowedPhone string
}

// Handler is the HTTP entry point for provider callbacks.
type Handler struct {
	normalizer *Normalizer
	processor  Processor
	cfg        HandlerConfig
	logger     *logging.Logger
}

// NewHandler creates the inbound webhook handler.
func NewHandler(normalizer *Normalizer, processor Processor, cfg HandlerConfig, logger *logging.Logger) *Handler {
	if normalizer == nil {
		panic("webhook: normalizer is required")
	}
	if processor == nil {
		panic("webhook: processor is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{normalizer: normalizer, processor: processor, cfg: cfg, logger: logger}
}

type envelope struct {
	Success bool    `json:"success"`
	Ignored bool    `json:"ignored,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Result  *Result `json:"result,omitempty"`
}

// ServeHTTP accepts one provider callback. Rejected and ignored events still
// answer 200 so the provider does not retry them; only authentication
// failures and internal faults use other status codes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "webhook.inbound")
	defer span.End()

	body := h.readBody(r)

	if !h.authorized(r, body) {
		h.logger.Warn("webhook rejected: bad token", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, envelope{Reason: "INVALID_TOKEN"})
		return
	}

	ev, ignoreReason := h.normalizer.Normalize(Payload{Body: body, Query: r.URL.Query()})
	if ignoreReason != "" {
		span.SetAttributes(attribute.String("clinic.ignore_reason", ignoreReason))
		writeJSON(w, http.StatusOK, envelope{Success: true, Ignored: true, Reason: ignoreReason})
		return
	}

	if h.cfg.AllowedPhone != "" && ev.Phone != h.cfg.AllowedPhone {
		h.logger.Info("webhook ignored: phone not in allow list", "phone", ev.Phone)
		writeJSON(w, http.StatusOK, envelope{Success: true, Ignored: true, Reason: IgnorePhoneNotAllowed})
		return
	}

	span.SetAttributes(
		attribute.String("clinic.instance_id", ev.InstanceID),
		attribute.String("clinic.origin", ev.Origin),
	)

	result, err := h.processor.Process(ctx, ev)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("webhook processing failed", "error", err, "phone", ev.Phone)
		writeJSON(w, http.StatusInternalServerError, envelope{Reason: "INTERNAL_ERROR"})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Result: &result})
}

// readBody parses the JSON body when present. Malformed or absent bodies are
// tolerated; payloads may arrive entirely in the query string.
func (h *Handler) readBody(r *http.Request) map[string]any {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || len(data) == 0 {
		return nil
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		h.logger.Debug("webhook body is not JSON, falling back to query", "error", err)
		return nil
	}
	return body
}

// authorized checks the shared token across the places integrations have put
// it: a header, the query string, or the body.
func (h *Handler) authorized(r *http.Request, body map[string]any) bool {
	if h.cfg.Token == "" {
		return true
	}
	candidates := []string{
		r.Header.Get("X-Chatguru-Token"),
		r.Header.Get("X-Webhook-Token"),
		r.URL.Query().Get("token"),
		stringValue(body["token"]),
	}
	for _, c := range candidates {
		if c != "" && strings.TrimSpace(c) == h.cfg.Token {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
