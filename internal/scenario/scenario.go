// Package scenario resolves which conversation scenario governs a reply:
// explicit context key first, keyword intent second, neutral fallback last.
package scenario

import (
	"context"
	"errors"
	"strings"
)

// Definition is an admin-managed scenario. Read-only to the pipeline.
type Definition struct {
	Key            string
	Active         bool
	Description    string
	AIInstructions string
	NextKey        string
}

// ErrNotFound is returned by stores when no scenario exists for a key.
var ErrNotFound = errors.New("scenario: not found")

// Store looks scenarios up by key.
type Store interface {
	GetByKey(ctx context.Context, key string) (Definition, error)
}

// HandoffMessage is the fixed reply used when no active scenario covers the
// resolved key. This is expected behavior, not an error.
const HandoffMessage = "Recebi sua mensagem e vou encaminhar para a equipe responder com calma no horário de atendimento, tudo bem? 💚"

// Resolution is the outcome of scenario resolution.
type Resolution struct {
	Found bool
	Key   string
	// Intent carries the classifier result when the key came from keyword
	// classification rather than an explicit context key.
	Intent IntentConfig
	// PromptContext is the scenario's instructions formatted for the
	// generation step. Empty when Found is false.
	PromptContext string
	// FallbackMessage is set when Found is false; the pipeline sends it
	// verbatim instead of generating a reply.
	FallbackMessage  string
	NextKey          string
	AllowAutoInMisto bool
}

// MemoryStore is a map-backed Store for tests and development.
type MemoryStore struct {
	byKey map[string]Definition
}

// NewMemoryStore builds a store from the given definitions.
func NewMemoryStore(defs ...Definition) *MemoryStore {
	m := &MemoryStore{byKey: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		m.byKey[d.Key] = d
	}
	return m
}

func (m *MemoryStore) GetByKey(_ context.Context, key string) (Definition, error) {
	d, ok := m.byKey[key]
	if !ok {
		return Definition{}, ErrNotFound
	}
	return d, nil
}

// Resolver resolves scenarios against a store.
type Resolver struct {
	store Store
}

// NewResolver creates a scenario resolver.
func NewResolver(store Store) *Resolver {
	if store == nil {
		panic("scenario: store cannot be nil")
	}
	return &Resolver{store: store}
}

// Resolve picks the scenario key for an event and looks it up. A missing or
// inactive scenario yields Found=false with the fixed handoff message; only
// store infrastructure failures surface as errors.
func (r *Resolver) Resolve(ctx context.Context, contextKey, text string) (Resolution, error) {
	key := strings.TrimSpace(contextKey)
	var intent IntentConfig
	explicit := key != ""
	if !explicit {
		intent = ClassifyIntent(text)
		if IsGreeting(text) {
			key = IntentSaudacao
		} else {
			key = DefaultScenarioKey
		}
	}

	def, err := r.store.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFoundResolution(key, intent), nil
		}
		return Resolution{}, err
	}
	if !def.Active {
		return notFoundResolution(key, intent), nil
	}

	allowInMisto := intent.AllowAutoInMisto
	if explicit {
		// Explicit context keys reuse the intent table when the key names a
		// known intent; unknown keys stay human-routed in mixed mode.
		allowInMisto = IntentConfigFor(key).AllowAutoInMisto
	}

	return Resolution{
		Found:            true,
		Key:              key,
		Intent:           intent,
		PromptContext:    buildPromptContext(def),
		NextKey:          def.NextKey,
		AllowAutoInMisto: allowInMisto,
	}, nil
}

func notFoundResolution(key string, intent IntentConfig) Resolution {
	return Resolution{
		Found:           false,
		Key:             key,
		Intent:          intent,
		FallbackMessage: HandoffMessage,
	}
}

func buildPromptContext(def Definition) string {
	lines := []string{"CENÁRIO: " + def.Key}
	if def.Description != "" {
		lines = append(lines, "Descrição: "+def.Description)
	} else {
		lines = append(lines, "Descrição: (não informada)")
	}
	lines = append(lines, "", "INSTRUÇÕES ESPECÍFICAS PARA ESTE CONTEXTO:", def.AIInstructions)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
