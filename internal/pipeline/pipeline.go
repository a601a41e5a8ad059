// Package pipeline orchestrates one inbound message end to end: persona
// resolution, after-hours interception, scenario resolution, the auto-send
// gate, reply generation, delivery and outcome recording.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rtlaser/clinic-assistant/internal/afterhours"
	"github.com/rtlaser/clinic-assistant/internal/autosend"
	"github.com/rtlaser/clinic-assistant/internal/gateway"
	"github.com/rtlaser/clinic-assistant/internal/observability/metrics"
	"github.com/rtlaser/clinic-assistant/internal/outcome"
	"github.com/rtlaser/clinic-assistant/internal/persona"
	"github.com/rtlaser/clinic-assistant/internal/ratelimit"
	"github.com/rtlaser/clinic-assistant/internal/reply"
	"github.com/rtlaser/clinic-assistant/internal/robot"
	"github.com/rtlaser/clinic-assistant/internal/scenario"
	"github.com/rtlaser/clinic-assistant/internal/webhook"
	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

var pipelineTracer = otel.Tracer("clinic.internal.pipeline")

// afterHoursIntent labels outcomes produced by the external workflow.
const afterHoursIntent = "FORA_EXPEDIENTE"

// Sender delivers one outbound message.
type Sender interface {
	Send(ctx context.Context, msg gateway.Message) (gateway.Delivery, error)
}

// Replier generates the assistant's reply text.
type Replier interface {
	Generate(ctx context.Context, req reply.Request) reply.Result
}

// Interceptor lets an external workflow take over out-of-hours events.
type Interceptor interface {
	Enabled() bool
	Intercept(ctx context.Context, ev afterhours.Event) afterhours.Interception
}

// ScenarioResolver maps a message to a conversation scenario.
type ScenarioResolver interface {
	Resolve(ctx context.Context, contextKey, text string) (scenario.Resolution, error)
}

// PersonaResolver picks the active attendant identity for a moment.
type PersonaResolver interface {
	Resolve(now time.Time) (persona.Definition, bool)
}

// OutcomeRecorder persists what happened to the event.
type OutcomeRecorder interface {
	Record(ctx context.Context, rec outcome.Record)
}

// Config carries the deployment-level switches the gate inspects.
type Config struct {
	APIEnabled      bool
	AutoSendEnabled bool
}

// Pipeline processes normalized inbound events.
type Pipeline struct {
	cfg        Config
	state      *robot.State
	personas   PersonaResolver
	scenarios  ScenarioResolver
	limiter    ratelimit.Limiter
	replier    Replier
	sender     Sender
	afterHours Interceptor
	outcomes   OutcomeRecorder
	metrics    *metrics.PipelineMetrics
	logger     *logging.Logger
}

// Deps bundles the pipeline's collaborators.
type Deps struct {
	Config     Config
	State      *robot.State
	Personas   PersonaResolver
	Scenarios  ScenarioResolver
	Limiter    ratelimit.Limiter
	Replier    Replier
	Sender     Sender
	AfterHours Interceptor
	Outcomes   OutcomeRecorder
	Metrics    *metrics.PipelineMetrics
	Logger     *logging.Logger
}

// New creates a pipeline. AfterHours, Outcomes and Metrics are optional.
func New(d Deps) *Pipeline {
	if d.State == nil {
		panic("pipeline: robot state is required")
	}
	if d.Personas == nil {
		panic("pipeline: persona resolver is required")
	}
	if d.Scenarios == nil {
		panic("pipeline: scenario resolver is required")
	}
	if d.Limiter == nil {
		panic("pipeline: rate limiter is required")
	}
	if d.Replier == nil {
		panic("pipeline: replier is required")
	}
	if d.Sender == nil {
		panic("pipeline: sender is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		cfg:        d.Config,
		state:      d.State,
		personas:   d.Personas,
		scenarios:  d.Scenarios,
		limiter:    d.Limiter,
		replier:    d.Replier,
		sender:     d.Sender,
		afterHours: d.AfterHours,
		outcomes:   d.Outcomes,
		metrics:    d.Metrics,
		logger:     logger,
	}
}

// Process handles one inbound event and reports what was done with it.
func (p *Pipeline) Process(ctx context.Context, ev webhook.Event) (webhook.Result, error) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.origin", ev.Origin),
		attribute.String("clinic.instance_id", ev.InstanceID),
	)

	robotCfg := p.state.Get()
	personaDef, inHours := p.personas.Resolve(ev.ReceivedAt)
	span.SetAttributes(
		attribute.String("clinic.persona", personaDef.ID),
		attribute.Bool("clinic.business_hours", inHours),
	)

	// Out-of-hours events go to the external workflow first. When it takes
	// over, its text replaces both scenario resolution and generation; the
	// gate and the daily cap still apply to the actual send.
	var intercept afterhours.Interception
	if !inHours && p.afterHours != nil && p.afterHours.Enabled() {
		intercept = p.afterHours.Intercept(ctx, afterhours.Event{
			Phone:       ev.Phone,
			ContactName: ev.ContactName,
			Message:     ev.Message,
			InstanceID:  ev.InstanceID,
			ReceivedAt:  afterhours.FormatReceivedAt(ev.ReceivedAt),
		})
	}

	var res scenario.Resolution
	if intercept.Handled {
		res = scenario.Resolution{
			Found:            true,
			Key:              afterHoursIntent,
			Intent:           scenario.IntentConfig{Name: afterHoursIntent},
			AllowAutoInMisto: true,
		}
	} else {
		var err error
		res, err = p.scenarios.Resolve(ctx, ev.ContextKey, ev.Message)
		if err != nil {
			p.metrics.ObserveInbound("error")
			return webhook.Result{}, fmt.Errorf("pipeline: resolve scenario: %w", err)
		}
	}

	limit, err := p.limiter.Evaluate(ctx, ev.Phone)
	if err != nil {
		// Same stance as a limiter backend outage: let the reply through.
		p.logger.Warn("rate limit evaluation failed", "error", err, "phone", ev.Phone)
		limit = ratelimit.Decision{Allowed: true}
	}

	gate := autosend.Decide(autosend.Input{
		Origin:               ev.Origin,
		APIEnabled:           p.cfg.APIEnabled,
		AutoSendEnabled:      p.cfg.AutoSendEnabled,
		Robot:                robotCfg,
		OutsideBusinessHours: !inHours && !intercept.Handled,
		AllowAutoInMisto:     res.AllowAutoInMisto,
		UnderDailyLimit:      limit.Allowed,
	})
	p.metrics.ObserveAutoSend(string(gate.Reason))
	span.SetAttributes(attribute.String("clinic.autosend_reason", string(gate.Reason)))

	if !gate.Allowed {
		return p.denied(ctx, ev, res, personaDef, gate)
	}

	action := outcome.ActionAutoReply
	var text string
	var genResult reply.Result
	switch {
	case intercept.Handled:
		action = outcome.ActionAfterHours
		text = intercept.Message
	case !res.Found:
		// No active scenario covers the message; hand off instead of
		// letting the model improvise.
		action = outcome.ActionHandoff
		text = res.FallbackMessage
	default:
		genResult = p.replier.Generate(ctx, reply.Request{
			ContactName:   ev.ContactName,
			Message:       ev.Message,
			Persona:       personaDef,
			PromptContext: res.PromptContext,
		})
		text = genResult.Text
		p.metrics.ObserveReplyLatency(genResult.Fallback, genResult.Duration.Seconds())
	}

	sent, variant := p.deliver(ctx, ev.Phone, text)
	// A reply that never reached the contact needs a human to follow up.
	handoff := !sent || action == outcome.ActionHandoff

	p.record(ctx, ev, res, personaDef, outcome.Record{
		Action:         action,
		Reason:         string(gate.Reason),
		ReplyPreview:   text,
		ReplySent:      sent,
		HandoffToHuman: handoff,
		Variant:        variant,
		Fallback:       genResult.Fallback,
	})
	p.metrics.ObserveInbound("processed")

	return webhook.Result{
		Action:         action,
		Reason:         string(gate.Reason),
		ReplySent:      sent,
		HandoffToHuman: handoff,
		Persona:        personaDef.ID,
		Intent:         intentName(res),
	}, nil
}

// denied handles events the gate refused. Nothing is sent to the contact:
// the conversation is flagged for a human and only the outcome is recorded.
func (p *Pipeline) denied(ctx context.Context, ev webhook.Event, res scenario.Resolution, personaDef persona.Definition, gate autosend.Decision) (webhook.Result, error) {
	p.record(ctx, ev, res, personaDef, outcome.Record{
		Action:         outcome.ActionHandoff,
		Reason:         string(gate.Reason),
		HandoffToHuman: true,
	})
	p.metrics.ObserveInbound("processed")

	return webhook.Result{
		Action:         outcome.ActionHandoff,
		Reason:         string(gate.Reason),
		HandoffToHuman: true,
		Persona:        personaDef.ID,
		Intent:         intentName(res),
	}, nil
}

// deliver sends the text and consumes quota. Quota is registered after the
// attempt regardless of the provider's verdict: the provider may have
// accepted a message it failed to acknowledge.
func (p *Pipeline) deliver(ctx context.Context, phone, text string) (bool, string) {
	delivery, err := p.sender.Send(ctx, gateway.Message{ChatNumber: phone, Text: text})
	for _, attempt := range delivery.Attempts {
		status := "rejected"
		if attempt.Accepted {
			status = "accepted"
		}
		p.metrics.ObserveDelivery(attempt.Variant, status)
	}
	if err != nil {
		p.logger.Error("delivery failed", "error", err, "phone", phone)
	}

	if regErr := p.limiter.Register(ctx, phone); regErr != nil {
		p.logger.Warn("rate limit register failed", "error", regErr, "phone", phone)
	}
	return delivery.Sent, delivery.Variant
}

func (p *Pipeline) record(ctx context.Context, ev webhook.Event, res scenario.Resolution, personaDef persona.Definition, rec outcome.Record) {
	if p.outcomes == nil {
		return
	}
	rec.Phone = ev.Phone
	rec.ContactName = ev.ContactName
	rec.InstanceID = ev.InstanceID
	rec.Intent = intentName(res)
	rec.ScenarioKey = res.Key
	rec.Persona = personaDef.ID
	p.outcomes.Record(ctx, rec)
}

func intentName(res scenario.Resolution) string {
	if res.Intent.Name != "" {
		return res.Intent.Name
	}
	return res.Key
}
