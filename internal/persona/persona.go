// Package persona resolves which virtual attendant identity is active for a
// given moment, using a weekly schedule table with holiday overrides.
package persona

// Role distinguishes the in-hours attendant from the after-hours one.
type Role string

const (
	RoleBusinessHours Role = "expediente"
	RoleAfterHours    Role = "fora-expediente"
)

// Definition is a named virtual agent identity. Selected by the schedule
// resolver, never mutated by the pipeline.
type Definition struct {
	ID          string
	DisplayName string
	// Label is the prefix shown in outgoing messages, e.g. "**Júlia:**".
	Label string
	Role  Role

	EmojiAllowed         bool
	CanSendPricing       bool
	CanRequestPhotos     bool
	CanExplainProcedures bool
	CanConvertLead       bool

	InitialGreetings []string
	ClosingMessages  []string
}

// IsBusinessHours reports whether this persona handles the in-hours flow.
func (d Definition) IsBusinessHours() bool {
	return d.Role == RoleBusinessHours
}

// DefaultPersonas returns the built-in attendant identities. Júlia covers the
// clinic's business hours, Laura takes everything else.
func DefaultPersonas() map[string]Definition {
	return map[string]Definition{
		"julia": {
			ID:                   "julia",
			DisplayName:          "Júlia",
			Label:                "**Júlia:**",
			Role:                 RoleBusinessHours,
			EmojiAllowed:         true,
			CanSendPricing:       true,
			CanRequestPhotos:     true,
			CanExplainProcedures: true,
			CanConvertLead:       true,
			InitialGreetings: []string{
				"Oi! Aqui é a **Júlia** da RT Laser 😊 Como posso te ajudar hoje?",
				"Olá! Aqui é a **Júlia**, da equipe RT Laser. Me conta o que você precisa?",
				"Bom dia! Aqui é a **Júlia**. Como posso te orientar?",
			},
			ClosingMessages: []string{
				"**Júlia:** Qualquer coisa me chama ❤️",
				"**Júlia:** Fico à disposição sempre 💛",
				"**Júlia:** Pode contar comigo!",
			},
		},
		"laura": {
			ID:          "laura",
			DisplayName: "Laura",
			Label:       "**Laura:**",
			Role:        RoleAfterHours,
			InitialGreetings: []string{
				"Oi! Aqui é a **Laura**. Nosso horário de atendimento é das 07h às 20h, mas já deixei tudo separadinho aqui pra te responder direitinho assim que abrirmos, tudo bem?",
				"Olá! Aqui é a **Laura**. Estamos fora do horário, mas deixei sua mensagem organizadinha pra te responder certinho no próximo período de atendimento.",
			},
			ClosingMessages: []string{
				"**Laura:** Assim que abrirmos, te respondemos certinho.",
				"**Laura:** Já deixei sua mensagem organizada para responder às 07h.",
			},
		},
	}
}
