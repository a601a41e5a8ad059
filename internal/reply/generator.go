// Package reply produces the assistant's outgoing text using OpenAI, grounded
// on the clinic knowledge document and the resolved scenario context.
package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rtlaser/clinic-assistant/internal/persona"
	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

// FallbackMessage is sent when generation fails for any reason. The contact
// always gets an answer, even if it is only an apology.
const FallbackMessage = "Desculpe, tive um problema para processar sua mensagem agora. Pode repetir, por favor? Se preferir, nossa equipe te responde em instantes. 💚"

const generationTimeout = 20 * time.Second

var replyTracer = otel.Tracer("clinic.internal.reply")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request carries everything the generator needs to produce one reply.
type Request struct {
	ContactName   string
	Message       string
	Persona       persona.Definition
	PromptContext string
}

// Result is the generated reply. Fallback is true when the fixed apology was
// used instead of a model completion.
type Result struct {
	Text     string
	Fallback bool
	Duration time.Duration
}

// Generator turns inbound messages into persona-voiced replies.
type Generator struct {
	client chatClient
	brain  *Brain
	model  string
	logger *logging.Logger
}

// NewGenerator creates a reply generator. An empty model selects gpt-4.1-mini.
func NewGenerator(client chatClient, brain *Brain, model string, logger *logging.Logger) *Generator {
	if client == nil {
		panic("reply: chat client cannot be nil")
	}
	if brain == nil {
		panic("reply: brain cannot be nil")
	}
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{client: client, brain: brain, model: model, logger: logger}
}

// Generate produces a reply for the given request. It never returns an error:
// any failure yields the fixed fallback text so delivery can proceed.
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	ctx, span := replyTracer.Start(ctx, "reply.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.persona", req.Persona.ID),
		attribute.String("clinic.model", g.model),
	)

	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.4,
		MaxTokens:   300,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: g.userMessage(req)},
		},
	})
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		g.logger.Error("reply generation failed", "error", err, "persona", req.Persona.ID)
		return Result{Text: FallbackMessage, Fallback: true, Duration: elapsed}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		g.logger.Warn("reply generation returned no content", "persona", req.Persona.ID)
		return Result{Text: FallbackMessage, Fallback: true, Duration: elapsed}
	}

	return Result{Text: strings.TrimSpace(resp.Choices[0].Message.Content), Duration: elapsed}
}

func (g *Generator) systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(g.brain.Document())
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Você está respondendo como %s (%s).\n", req.Persona.DisplayName, req.Persona.Label)
	if req.PromptContext != "" {
		b.WriteString("\n")
		b.WriteString(req.PromptContext)
		b.WriteString("\n")
	}
	b.WriteString("\nResponda em português do Brasil, em tom acolhedor e objetivo. ")
	b.WriteString("Mantenha a resposta curta, adequada para WhatsApp. ")
	b.WriteString("Nunca invente preços ou promessas de resultado.")
	return b.String()
}

func (g *Generator) userMessage(req Request) string {
	name := strings.TrimSpace(req.ContactName)
	if name == "" {
		return req.Message
	}
	return fmt.Sprintf("Mensagem de %s: %s", name, req.Message)
}
