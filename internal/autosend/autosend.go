// Package autosend decides whether the assistant may answer an inbound
// message automatically. The decision is pure: every input is resolved by the
// caller and the same input always yields the same verdict.
package autosend

import "github.com/rtlaser/clinic-assistant/internal/robot"

// Reason explains a negative (or positive) verdict. Stable values, recorded
// with the outcome and exposed to operators.
type Reason string

const (
	ReasonAllowed             Reason = "ALLOWED"
	ReasonOriginNotWhatsApp   Reason = "ORIGIN_NOT_WHATSAPP"
	ReasonAPIDisabled         Reason = "API_DISABLED"
	ReasonAutoSendDisabled    Reason = "AUTO_SEND_DISABLED"
	ReasonRobotDisabled       Reason = "ROBOT_DISABLED"
	ReasonOutsideHours        Reason = "OUTSIDE_BUSINESS_HOURS"
	ReasonModeHumano          Reason = "MODE_HUMANO"
	ReasonIntentRequiresHuman Reason = "INTENT_REQUIRES_HUMAN"
	ReasonRateLimited         Reason = "RATE_LIMITED"
)

// Input gathers everything the gate inspects.
type Input struct {
	// Origin is the channel the event arrived on, e.g. "whatsapp".
	Origin string
	// APIEnabled and AutoSendEnabled are the deployment-level switches.
	APIEnabled      bool
	AutoSendEnabled bool
	// Robot is the operator-controlled runtime configuration.
	Robot robot.Config
	// OutsideBusinessHours is true when the event arrived outside the
	// attendance window and no out-of-hours workflow took it over.
	OutsideBusinessHours bool
	// AllowAutoInMisto is the resolved scenario's flag for MISTO mode.
	AllowAutoInMisto bool
	// UnderDailyLimit is false when the contact exhausted today's quota.
	UnderDailyLimit bool
}

// Decision is the gate's verdict.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Decide applies the gate checks in order of authority: channel and
// deployment switches first, then operator configuration, then per-contact
// quota. The first failing check names the reason.
func Decide(in Input) Decision {
	if in.Origin != "whatsapp" {
		return Decision{Reason: ReasonOriginNotWhatsApp}
	}
	if !in.APIEnabled {
		return Decision{Reason: ReasonAPIDisabled}
	}
	if !in.AutoSendEnabled {
		return Decision{Reason: ReasonAutoSendDisabled}
	}
	if !in.Robot.RobotEnabled {
		return Decision{Reason: ReasonRobotDisabled}
	}
	if in.OutsideBusinessHours {
		return Decision{Reason: ReasonOutsideHours}
	}
	switch in.Robot.Mode {
	case robot.ModeHumano:
		return Decision{Reason: ReasonModeHumano}
	case robot.ModeMisto:
		if !in.AllowAutoInMisto {
			return Decision{Reason: ReasonIntentRequiresHuman}
		}
	}
	if !in.UnderDailyLimit {
		return Decision{Reason: ReasonRateLimited}
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}
