package webhook

import (
	"net/url"
	"testing"
)

func TestNormalizeFieldAliases(t *testing.T) {
	n := NewNormalizer("default-inst")

	tests := []struct {
		name      string
		body      map[string]any
		query     url.Values
		wantPhone string
		wantMsg   string
		wantName  string
	}{
		{
			name:      "current aliases",
			body:      map[string]any{"celular": "+55 (62) 99999-0001", "msg": "oi", "nome": "Maria"},
			wantPhone: "5562999990001",
			wantMsg:   "oi",
			wantName:  "Maria",
		},
		{
			name:      "legacy aliases",
			body:      map[string]any{"telefone": "5562999990002", "texto_mensagem": "bom dia"},
			wantPhone: "5562999990002",
			wantMsg:   "bom dia",
		},
		{
			name:      "english aliases",
			body:      map[string]any{"phone": "5562999990003", "text": "hello", "sender_name": "Jo"},
			wantPhone: "5562999990003",
			wantMsg:   "hello",
			wantName:  "Jo",
		},
		{
			name:      "body wins over query",
			body:      map[string]any{"celular": "5562999990004", "msg": "do corpo"},
			query:     url.Values{"celular": {"5562000000000"}, "msg": {"da query"}},
			wantPhone: "5562999990004",
			wantMsg:   "do corpo",
		},
		{
			name:      "query only payload",
			query:     url.Values{"chat_number": {"5562999990005"}, "message": {"via query"}},
			wantPhone: "5562999990005",
			wantMsg:   "via query",
		},
		{
			name:      "empty body value falls through to later alias",
			body:      map[string]any{"celular": "  ", "telefone": "5562999990006", "msg": "oi"},
			wantPhone: "5562999990006",
			wantMsg:   "oi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ignore := n.Normalize(Payload{Body: tt.body, Query: tt.query})
			if ignore != "" {
				t.Fatalf("unexpected ignore reason %q", ignore)
			}
			if ev.Phone != tt.wantPhone {
				t.Errorf("Phone = %q, want %q", ev.Phone, tt.wantPhone)
			}
			if ev.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", ev.Message, tt.wantMsg)
			}
			if ev.ContactName != tt.wantName {
				t.Errorf("ContactName = %q, want %q", ev.ContactName, tt.wantName)
			}
		})
	}
}

func TestNormalizeMissingFields(t *testing.T) {
	n := NewNormalizer("default-inst")

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "no phone", body: map[string]any{"msg": "oi"}},
		{name: "phone without digits", body: map[string]any{"celular": "abc", "msg": "oi"}},
		{name: "empty payload", body: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ignore := n.Normalize(Payload{Body: tt.body})
			if ignore != IgnoreMissingFields {
				t.Errorf("ignore = %q, want %q", ignore, IgnoreMissingFields)
			}
		})
	}
}

func TestNormalizeAllowsEmptyMessage(t *testing.T) {
	n := NewNormalizer("default-inst")

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "absent message", body: map[string]any{"celular": "5562999990001"}},
		{name: "blank message", body: map[string]any{"celular": "5562999990001", "msg": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ignore := n.Normalize(Payload{Body: tt.body})
			if ignore != "" {
				t.Fatalf("unexpected ignore reason %q", ignore)
			}
			if ev.Message != "" {
				t.Errorf("Message = %q, want empty", ev.Message)
			}
			if ev.Phone != "5562999990001" {
				t.Errorf("Phone = %q", ev.Phone)
			}
		})
	}
}

func TestNormalizeNoInstanceIsIgnored(t *testing.T) {
	n := NewNormalizer("")

	_, ignore := n.Normalize(Payload{Body: map[string]any{"celular": "5562999990001", "msg": "oi"}})
	if ignore != IgnoreMissingFields {
		t.Errorf("ignore = %q, want %q", ignore, IgnoreMissingFields)
	}
}

func TestNormalizeInstanceID(t *testing.T) {
	n := NewNormalizer("default-inst")

	tests := []struct {
		name string
		body map[string]any
		want string
	}{
		{
			name: "explicit field wins",
			body: map[string]any{"instancia": "s7", "link_chat": "https://s13.provider.app/chats/1"},
			want: "s7",
		},
		{
			name: "derived from chat link",
			body: map[string]any{"link_chat": "https://s13.provider.app/chats/1"},
			want: "s13",
		},
		{
			name: "default when link is unparseable",
			body: map[string]any{"link_chat": "not a url"},
			want: "default-inst",
		},
		{
			name: "default when nothing identifies the instance",
			body: map[string]any{},
			want: "default-inst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.body["celular"] = "5562999990001"
			tt.body["msg"] = "oi"
			ev, ignore := n.Normalize(Payload{Body: tt.body})
			if ignore != "" {
				t.Fatalf("unexpected ignore reason %q", ignore)
			}
			if ev.InstanceID != tt.want {
				t.Errorf("InstanceID = %q, want %q", ev.InstanceID, tt.want)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	n := NewNormalizer("inst")
	ev, _ := n.Normalize(Payload{Body: map[string]any{"celular": "55 62 9999-0001", "msg": "oi"}})

	if ev.Origin != "whatsapp" {
		t.Errorf("Origin = %q, want whatsapp", ev.Origin)
	}
	if ev.DisplayPhone != "55 62 9999-0001" {
		t.Errorf("DisplayPhone = %q", ev.DisplayPhone)
	}
	if ev.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestNormalizeOriginAndContext(t *testing.T) {
	n := NewNormalizer("inst")
	ev, _ := n.Normalize(Payload{Body: map[string]any{
		"celular":  "5562999990001",
		"msg":      "oi",
		"origem":   "Instagram",
		"contexto": "ORCAMENTO_REMOVER_TATUAGEM",
	}})

	if ev.Origin != "instagram" {
		t.Errorf("Origin = %q, want instagram", ev.Origin)
	}
	if ev.ContextKey != "ORCAMENTO_REMOVER_TATUAGEM" {
		t.Errorf("ContextKey = %q", ev.ContextKey)
	}
}
