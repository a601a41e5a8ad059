package persona

import (
	"fmt"
	"time"

	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

// ScheduleWindow assigns a persona to a set of weekdays and an inclusive
// clock range. A window that should wrap past midnight is expressed as two
// non-overlapping windows instead.
type ScheduleWindow struct {
	ID           string
	Label        string
	PersonaID    string
	DaysOfWeek   []time.Weekday
	StartMinutes int
	EndMinutes   int
	Enabled      bool
}

// HolidayOverride pins a persona for a whole calendar date, taking precedence
// over every weekly window.
type HolidayOverride struct {
	Date      string // "2006-01-02"
	PersonaID string
	Label     string
}

// ParseClock converts "HH:MM" to minutes since midnight.
func ParseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("persona: parse clock %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Resolver picks the active persona for a timestamp. The caller supplies the
// clock.
type Resolver struct {
	personas  map[string]Definition
	windows   []ScheduleWindow
	holidays  []HolidayOverride
	defaultID string
	location  *time.Location
	logger    *logging.Logger
}

// ResolverConfig configures a schedule resolver.
type ResolverConfig struct {
	Personas  map[string]Definition
	Windows   []ScheduleWindow
	Holidays  []HolidayOverride
	DefaultID string
	Timezone  string
}

// NewResolver builds a resolver. An unknown timezone falls back to UTC rather
// than failing; schedule coverage must degrade, never crash.
func NewResolver(cfg ResolverConfig, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	personas := cfg.Personas
	if len(personas) == 0 {
		personas = DefaultPersonas()
	}
	defaultID := cfg.DefaultID
	if defaultID == "" {
		defaultID = "julia"
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		parsed, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			logger.Warn("unknown schedule timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		} else {
			loc = parsed
		}
	}
	return &Resolver{
		personas:  personas,
		windows:   cfg.Windows,
		holidays:  cfg.Holidays,
		defaultID: defaultID,
		location:  loc,
		logger:    logger,
	}
}

// Resolve returns the active persona for the given moment plus whether the
// clinic is inside business hours. It never fails: when no window covers the
// moment the default persona is returned.
func (r *Resolver) Resolve(now time.Time) (Definition, bool) {
	local := now.In(r.location)
	today := local.Format("2006-01-02")

	for _, h := range r.holidays {
		if h.Date != today {
			continue
		}
		if def, ok := r.personas[h.PersonaID]; ok {
			return def, def.IsBusinessHours()
		}
		r.logger.Warn("holiday override references unknown persona", "date", h.Date, "persona_id", h.PersonaID)
	}

	weekday := local.Weekday()
	minutes := local.Hour()*60 + local.Minute()

	// First match in declared order wins when windows overlap.
	for _, w := range r.windows {
		if !w.Enabled {
			continue
		}
		if !containsWeekday(w.DaysOfWeek, weekday) {
			continue
		}
		if minutes < w.StartMinutes || minutes > w.EndMinutes {
			continue
		}
		def, ok := r.personas[w.PersonaID]
		if !ok {
			r.logger.Warn("schedule window references unknown persona", "window_id", w.ID, "persona_id", w.PersonaID)
			continue
		}
		return def, def.IsBusinessHours()
	}

	def := r.personas[r.defaultID]
	return def, def.IsBusinessHours()
}

func containsWeekday(days []time.Weekday, day time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// DefaultSchedule mirrors the clinic's standing roster: Júlia weekdays
// 07:00-19:59 and Saturday 07:00-16:59, Laura everywhere else.
func DefaultSchedule() []ScheduleWindow {
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	return []ScheduleWindow{
		{ID: "weekday_business_julia", Label: "Segunda a sexta – expediente", PersonaID: "julia", DaysOfWeek: weekdays, StartMinutes: 7 * 60, EndMinutes: 19*60 + 59, Enabled: true},
		{ID: "weekday_early_laura", Label: "Segunda a sexta – madrugada", PersonaID: "laura", DaysOfWeek: weekdays, StartMinutes: 0, EndMinutes: 6*60 + 59, Enabled: true},
		{ID: "weekday_night_laura", Label: "Segunda a sexta – noite", PersonaID: "laura", DaysOfWeek: weekdays, StartMinutes: 20 * 60, EndMinutes: 23*60 + 59, Enabled: true},
		{ID: "saturday_business_julia", Label: "Sábado – expediente", PersonaID: "julia", DaysOfWeek: []time.Weekday{time.Saturday}, StartMinutes: 7 * 60, EndMinutes: 16*60 + 59, Enabled: true},
		{ID: "saturday_night_laura", Label: "Sábado – noite", PersonaID: "laura", DaysOfWeek: []time.Weekday{time.Saturday}, StartMinutes: 17 * 60, EndMinutes: 23*60 + 59, Enabled: true},
		{ID: "sunday_all_laura", Label: "Domingo – 24h", PersonaID: "laura", DaysOfWeek: []time.Weekday{time.Sunday}, StartMinutes: 0, EndMinutes: 23*60 + 59, Enabled: true},
	}
}
