// Package admin exposes the operator surface: robot configuration, scenario
// management and outcome auditing. Every route requires an HMAC-signed JWT.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rtlaser/clinic-assistant/internal/outcome"
	"github.com/rtlaser/clinic-assistant/internal/persona"
	"github.com/rtlaser/clinic-assistant/internal/robot"
	"github.com/rtlaser/clinic-assistant/internal/scenario"
	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

// RobotStore persists the operator configuration.
type RobotStore interface {
	Save(ctx context.Context, cfg robot.Config) error
}

// ScenarioStore manages conversation scenarios.
type ScenarioStore interface {
	List(ctx context.Context) ([]scenario.Definition, error)
	Upsert(ctx context.Context, def scenario.Definition) error
}

// OutcomeLister reads recent pipeline outcomes.
type OutcomeLister interface {
	Recent(ctx context.Context, limit int) ([]outcome.Record, error)
}

// GatewayInfo is the provider connection summary shown to operators. The key
// is masked before it reaches this struct.
type GatewayInfo struct {
	BaseURL   string `json:"baseUrl"`
	AccountID string `json:"accountId"`
	PhoneID   string `json:"phoneId"`
	MaskedKey string `json:"maskedKey"`
}

// Handler serves the admin routes.
type Handler struct {
	state       *robot.State
	robotStore  RobotStore
	scenarios   ScenarioStore
	outcomes    OutcomeLister
	gatewayInfo GatewayInfo
	logger      *logging.Logger
}

// NewHandler creates the admin handler. Stores may be nil when a deployment
// runs without a database; the affected routes answer 503.
func NewHandler(state *robot.State, robotStore RobotStore, scenarios ScenarioStore, outcomes OutcomeLister, info GatewayInfo, logger *logging.Logger) *Handler {
	if state == nil {
		panic("admin: robot state is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		state:       state,
		robotStore:  robotStore,
		scenarios:   scenarios,
		outcomes:    outcomes,
		gatewayInfo: info,
		logger:      logger,
	}
}

// Routes mounts the admin endpoints on a fresh router. The caller applies
// authentication.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/robot-config", h.getRobotConfig)
	r.Put("/robot-config", h.putRobotConfig)
	r.Get("/scenarios", h.listScenarios)
	r.Post("/scenarios", h.upsertScenario)
	r.Get("/outcomes", h.listOutcomes)
	r.Get("/gateway/info", h.getGatewayInfo)
	return r
}

func (h *Handler) getRobotConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Get())
}

func (h *Handler) putRobotConfig(w http.ResponseWriter, r *http.Request) {
	var cfg robot.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := validateRobotConfig(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg.Mode = robot.ParseMode(string(cfg.Mode), robot.ModeMisto)

	if h.robotStore != nil {
		if err := h.robotStore.Save(r.Context(), cfg); err != nil {
			h.logger.Error("robot config save failed", "error", err)
			writeError(w, http.StatusInternalServerError, "save failed")
			return
		}
	}
	h.state.Set(cfg)
	h.logger.Info("robot config updated",
		"mode", cfg.Mode,
		"robot_enabled", cfg.RobotEnabled,
	)
	writeJSON(w, http.StatusOK, cfg)
}

func validateRobotConfig(cfg robot.Config) error {
	if _, err := persona.ParseClock(cfg.BusinessHoursStart); err != nil {
		return errors.New("invalid horarioInicio")
	}
	if _, err := persona.ParseClock(cfg.BusinessHoursEnd); err != nil {
		return errors.New("invalid horarioFim")
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		return errors.New("timezone is required")
	}
	return nil
}

func (h *Handler) listScenarios(w http.ResponseWriter, r *http.Request) {
	if h.scenarios == nil {
		writeError(w, http.StatusServiceUnavailable, "scenario store not configured")
		return
	}
	defs, err := h.scenarios.List(r.Context())
	if err != nil {
		h.logger.Error("scenario list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if defs == nil {
		defs = []scenario.Definition{}
	}
	writeJSON(w, http.StatusOK, defs)
}

func (h *Handler) upsertScenario(w http.ResponseWriter, r *http.Request) {
	if h.scenarios == nil {
		writeError(w, http.StatusServiceUnavailable, "scenario store not configured")
		return
	}
	var def scenario.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	def.Key = strings.ToUpper(strings.TrimSpace(def.Key))
	if def.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	if err := h.scenarios.Upsert(r.Context(), def); err != nil {
		h.logger.Error("scenario upsert failed", "error", err, "key", def.Key)
		writeError(w, http.StatusInternalServerError, "upsert failed")
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *Handler) listOutcomes(w http.ResponseWriter, r *http.Request) {
	if h.outcomes == nil {
		writeError(w, http.StatusServiceUnavailable, "outcome store not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.outcomes.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("outcome list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if records == nil {
		records = []outcome.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) getGatewayInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gatewayInfo)
}

// MaskKey renders a credential for display, keeping only a short prefix.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 6 {
		return "****"
	}
	return key[:4] + "****"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
