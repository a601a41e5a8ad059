// Package robot holds the operator-controlled runtime configuration of the
// assistant: whether it is enabled, the attendance mode, and business hours.
package robot

import (
	"strings"
	"sync"
)

// Mode is the attendance mode chosen by the clinic operator.
type Mode string

const (
	// ModeAuto answers every eligible message automatically.
	ModeAuto Mode = "AUTO"
	// ModeMisto automates only scenarios flagged safe for it; everything
	// else goes to a human.
	ModeMisto Mode = "MISTO"
	// ModeHumano routes every message to a human.
	ModeHumano Mode = "HUMANO"
)

// ParseMode sanitizes a stored mode value, falling back when invalid.
func ParseMode(v string, fallback Mode) Mode {
	switch Mode(strings.ToUpper(strings.TrimSpace(v))) {
	case ModeAuto:
		return ModeAuto
	case ModeMisto:
		return ModeMisto
	case ModeHumano:
		return ModeHumano
	default:
		return fallback
	}
}

// Config is the singleton robot configuration. Mutated only via the admin
// surface; the pipeline reads a snapshot once per event.
type Config struct {
	RobotEnabled       bool   `json:"robotEnabled"`
	Mode               Mode   `json:"atendimentoMode"`
	BusinessHoursStart string `json:"horarioInicio"`
	BusinessHoursEnd   string `json:"horarioFim"`
	Timezone           string `json:"timezone"`
	FallbackToHuman    bool   `json:"fallbackToHuman"`
}

// DefaultConfig returns the configuration used until the operator saves one.
func DefaultConfig() Config {
	return Config{
		RobotEnabled:       true,
		Mode:               ModeMisto,
		BusinessHoursStart: "08:00",
		BusinessHoursEnd:   "20:00",
		Timezone:           "America/Sao_Paulo",
		FallbackToHuman:    true,
	}
}

// State is a thread-safe holder for the current Config. It is injected into
// the pipeline instead of living as a package-level singleton so tests run
// isolated and multiple instances can share an external source of truth.
type State struct {
	mu  sync.RWMutex
	cfg Config
}

// NewState creates a state holder seeded with the given config.
func NewState(cfg Config) *State {
	return &State{cfg: cfg}
}

// Get returns a snapshot of the current configuration.
func (s *State) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the current configuration.
func (s *State) Set(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}
