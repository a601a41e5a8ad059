// Package outcome persists what happened to each inbound event so operators
// can audit the assistant's decisions.
package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

// previewLimit caps the stored reply text. Full replies live only in the
// provider's chat history.
const previewLimit = 120

// Action values recorded per event.
const (
	ActionAutoReply  = "AUTO_REPLY"
	ActionHandoff    = "HANDOFF"
	ActionAfterHours = "AFTER_HOURS"
)

// Record is one processed inbound event.
type Record struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone"`
	ContactName  string    `json:"contactName,omitempty"`
	InstanceID   string    `json:"instanceId,omitempty"`
	Intent       string    `json:"intent,omitempty"`
	ScenarioKey  string    `json:"scenarioKey,omitempty"`
	Action       string    `json:"action"`
	Reason       string    `json:"reason,omitempty"`
	Persona      string    `json:"persona,omitempty"`
	ReplyPreview string    `json:"replyPreview,omitempty"`
	ReplySent    bool      `json:"replySent"`
	// HandoffToHuman marks conversations a person still needs to pick up,
	// either because the gate refused or because delivery failed.
	HandoffToHuman bool      `json:"handoffToHuman"`
	Variant        string    `json:"variant,omitempty"`
	Fallback       bool      `json:"fallback"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PgxPool is the subset of *pgxpool.Pool the recorder uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Recorder writes outcome rows. Recording is best effort: a storage failure
// is logged and swallowed so it never breaks the reply that already went out.
type Recorder struct {
	db     PgxPool
	logger *logging.Logger
}

// NewRecorder creates a recorder backed by the given pool.
func NewRecorder(db PgxPool, logger *logging.Logger) *Recorder {
	if db == nil {
		panic("outcome: db is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{db: db, logger: logger}
}

// Record persists one outcome.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ReplyPreview = Preview(rec.ReplyPreview)

	_, err := r.db.Exec(ctx, `
		INSERT INTO outcomes (id, phone, contact_name, instance_id, intent, scenario_key, action, reason, persona, reply_preview, reply_sent, handoff_to_human, variant, fallback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		rec.ID, rec.Phone, rec.ContactName, rec.InstanceID, rec.Intent, rec.ScenarioKey,
		rec.Action, rec.Reason, rec.Persona, rec.ReplyPreview, rec.ReplySent, rec.HandoffToHuman,
		rec.Variant, rec.Fallback, rec.CreatedAt,
	)
	if err != nil {
		r.logger.Error("outcome record failed", "error", err, "phone", rec.Phone, "action", rec.Action)
	}
}

// Recent returns the latest outcomes, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, phone, contact_name, instance_id, intent, scenario_key, action, reason, persona, reply_preview, reply_sent, handoff_to_human, variant, fallback, created_at
		FROM outcomes
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("outcome: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.Phone, &rec.ContactName, &rec.InstanceID, &rec.Intent,
			&rec.ScenarioKey, &rec.Action, &rec.Reason, &rec.Persona, &rec.ReplyPreview,
			&rec.ReplySent, &rec.HandoffToHuman, &rec.Variant, &rec.Fallback, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("outcome: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outcome: rows: %w", err)
	}
	return out, nil
}

// Preview truncates text to the stored preview length, counting runes so a
// multibyte reply is never cut mid-character.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit-1]) + "…"
}
