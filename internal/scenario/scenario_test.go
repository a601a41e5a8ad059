package scenario

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"oi", IntentSaudacao},
		{"Bom dia, tudo bem?", IntentSaudacao},
		{"quero remover uma tatuagem", IntentOrcamentoTatuagem},
		{"quanto custa tirar micropigmentação?", IntentOrcamentoMicro},
		{"tenho medo que dói muito", IntentDorMedo},
		{"como funciona o tratamento?", IntentInfoProcedimento},
		{"xyz abc", IntentFallback},
		{"", IntentFallback},
		{"   ", IntentFallback},
	}
	for _, tc := range tests {
		if got := ClassifyIntent(tc.text); got.Name != tc.want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", tc.text, got.Name, tc.want)
		}
	}
}

func TestClassifyIntentStripsDiacritics(t *testing.T) {
	if got := ClassifyIntent("dói demais?"); got.Name != IntentDorMedo {
		t.Fatalf("accented text classified as %s, want %s", got.Name, IntentDorMedo)
	}
	if got := ClassifyIntent("Olá!"); got.Name != IntentSaudacao {
		t.Fatalf("Olá classified as %s, want %s", got.Name, IntentSaudacao)
	}
}

func TestIsGreeting(t *testing.T) {
	for _, text := range []string{"oi", "Olá", "oi pessoal", "boa noite"} {
		if !IsGreeting(text) {
			t.Errorf("IsGreeting(%q) = false, want true", text)
		}
	}
	for _, text := range []string{"preciso de orçamento", ""} {
		if IsGreeting(text) {
			t.Errorf("IsGreeting(%q) = true, want false", text)
		}
	}
}

func TestResolveExplicitContextKey(t *testing.T) {
	store := NewMemoryStore(Definition{
		Key:            "POS_SESSAO",
		Active:         true,
		Description:    "Cuidados pós-sessão",
		AIInstructions: "Explique os cuidados após o laser.",
		NextKey:        "DEFAULT",
	})
	r := NewResolver(store)

	res, err := r.Resolve(context.Background(), "POS_SESSAO", "oi")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.Found {
		t.Fatal("expected scenario to be found")
	}
	if res.Key != "POS_SESSAO" {
		t.Fatalf("key = %s", res.Key)
	}
	if res.NextKey != "DEFAULT" {
		t.Fatalf("next key = %s", res.NextKey)
	}
	if !strings.Contains(res.PromptContext, "POS_SESSAO") || !strings.Contains(res.PromptContext, "cuidados após o laser") {
		t.Fatalf("prompt context missing scenario data: %q", res.PromptContext)
	}
	// Unknown explicit keys stay human-routed in mixed mode.
	if res.AllowAutoInMisto {
		t.Fatal("unknown explicit key should not auto-answer in MISTO")
	}
}

func TestResolveGreetingFallsBackToSaudacao(t *testing.T) {
	store := NewMemoryStore(Definition{Key: IntentSaudacao, Active: true, AIInstructions: "Cumprimente."})
	r := NewResolver(store)

	res, err := r.Resolve(context.Background(), "", "oi, tudo bem?")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.Found || res.Key != IntentSaudacao {
		t.Fatalf("resolution = %+v, want found SAUDACAO", res)
	}
	if !res.AllowAutoInMisto {
		t.Fatal("greetings may auto-answer in MISTO")
	}
}

func TestResolveMissingScenarioIsNotAnError(t *testing.T) {
	r := NewResolver(NewMemoryStore())

	res, err := r.Resolve(context.Background(), "", "qualquer coisa")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Found {
		t.Fatal("expected Found=false")
	}
	if res.Key != DefaultScenarioKey {
		t.Fatalf("key = %s, want DEFAULT", res.Key)
	}
	if res.FallbackMessage != HandoffMessage {
		t.Fatalf("fallback message = %q", res.FallbackMessage)
	}
}

func TestResolveInactiveScenarioBehavesAsMissing(t *testing.T) {
	store := NewMemoryStore(Definition{Key: "SAUDACAO", Active: false, AIInstructions: "x"})
	r := NewResolver(store)

	res, err := r.Resolve(context.Background(), "SAUDACAO", "oi")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Found {
		t.Fatal("inactive scenario must resolve as not found")
	}
}

type failingStore struct{}

func (failingStore) GetByKey(context.Context, string) (Definition, error) {
	return Definition{}, errors.New("connection refused")
}

func TestResolveStoreFailureSurfaces(t *testing.T) {
	r := NewResolver(failingStore{})
	if _, err := r.Resolve(context.Background(), "SAUDACAO", "oi"); err == nil {
		t.Fatal("store infrastructure failures must surface")
	}
}
