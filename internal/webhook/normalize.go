// Package webhook receives provider callbacks and turns their loosely
// specified payloads into normalized inbound events.
package webhook

import (
	"net/url"
	"strings"
	"time"
)

// Ignore reasons returned to the provider inside a 200 envelope. The provider
// retries non-2xx responses, so rejections must still acknowledge.
const (
	IgnoreMissingFields   = "MISSING_REQUIRED_FIELDS"
	IgnorePhoneNotAllowed = "PHONE_NOT_ALLOWED"
)

// Event is a normalized inbound message.
type Event struct {
	// Phone holds digits only; DisplayPhone keeps the sender's formatting.
	Phone        string
	DisplayPhone string
	ContactName  string
	Message      string
	Origin       string
	// ContextKey is an explicit scenario key attached by provider flows.
	ContextKey string
	InstanceID string
	ReceivedAt time.Time
}

// Payload is the union of body and query parameters of one callback. Body
// values win over query values for the same alias.
type Payload struct {
	Body  map[string]any
	Query url.Values
}

// Provider integrations have renamed these fields repeatedly; each list is
// ordered by how current the alias is.
var (
	phoneAliases    = []string{"celular", "telefone", "phone", "chat_number", "numero"}
	messageAliases  = []string{"msg", "texto_mensagem", "text", "message", "mensagem"}
	nameAliases     = []string{"nome", "name", "sender_name", "username"}
	originAliases   = []string{"origem", "origin", "source"}
	contextAliases  = []string{"contexto", "context", "cenario", "scenario"}
	instanceAliases = []string{"instancia", "instance_id", "instanceId"}
	linkAliases     = []string{"link_chat", "chat_link"}
)

// Normalizer turns raw payloads into Events.
type Normalizer struct {
	defaultInstanceID string
	now               func() time.Time
}

// NewNormalizer creates a normalizer. defaultInstanceID is used when neither
// an explicit instance field nor a chat link identifies the instance.
func NewNormalizer(defaultInstanceID string) *Normalizer {
	return &Normalizer{defaultInstanceID: defaultInstanceID, now: time.Now}
}

// Normalize extracts an Event from the payload. The second return is an
// ignore reason; when non-empty the event must be acknowledged but not
// processed. Phone and instance are required; the message text may be empty
// (stickers and media arrive without text).
func (n *Normalizer) Normalize(p Payload) (Event, string) {
	phone := lookup(p, phoneAliases)

	digits := digitsOnly(phone)
	if digits == "" {
		return Event{}, IgnoreMissingFields
	}

	instanceID := n.resolveInstanceID(p)
	if instanceID == "" {
		return Event{}, IgnoreMissingFields
	}

	origin := strings.ToLower(lookup(p, originAliases))
	if origin == "" {
		origin = "whatsapp"
	}

	return Event{
		Phone:        digits,
		DisplayPhone: strings.TrimSpace(phone),
		ContactName:  strings.TrimSpace(lookup(p, nameAliases)),
		Message:      strings.TrimSpace(lookup(p, messageAliases)),
		Origin:       origin,
		ContextKey:   strings.TrimSpace(lookup(p, contextAliases)),
		InstanceID:   instanceID,
		ReceivedAt:   n.now(),
	}, ""
}

// resolveInstanceID prefers an explicit instance field, then the first DNS
// label of the chat link's host, then the configured default.
func (n *Normalizer) resolveInstanceID(p Payload) string {
	if id := strings.TrimSpace(lookup(p, instanceAliases)); id != "" {
		return id
	}
	if link := strings.TrimSpace(lookup(p, linkAliases)); link != "" {
		if id := firstHostLabel(link); id != "" {
			return id
		}
	}
	return n.defaultInstanceID
}

func firstHostLabel(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return ""
}

// lookup resolves the first alias present with a non-empty value, checking
// the body before the query.
func lookup(p Payload, aliases []string) string {
	for _, alias := range aliases {
		if p.Body != nil {
			if v, ok := p.Body[alias]; ok {
				if s := stringValue(v); strings.TrimSpace(s) != "" {
					return s
				}
			}
		}
	}
	for _, alias := range aliases {
		if v := p.Query.Get(alias); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
