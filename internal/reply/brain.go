package reply

import (
	"os"
	"strings"
	"sync"

	"github.com/rtlaser/clinic-assistant/pkg/logging"
)

// fallbackBrain is used when the knowledge document cannot be read from disk.
// It keeps the assistant coherent instead of answering with no context at all.
const fallbackBrain = `Você é a assistente virtual da RT Laser, clínica especializada em remoção de tatuagem e de micropigmentação a laser em Goiânia.
Atenda com empatia e objetividade, em português do Brasil.
Para orçamentos, peça uma foto da tatuagem ou micropigmentação e informe que a avaliação é gratuita.
Nunca prometa resultados nem invente preços; em caso de dúvida, encaminhe para a equipe humana.`

// Brain loads the clinic knowledge document once and serves it for every
// prompt. The document rarely changes and a restart picks up edits.
type Brain struct {
	path   string
	logger *logging.Logger

	once sync.Once
	doc  string
}

// NewBrain creates a Brain that reads the document at path on first use.
func NewBrain(path string, logger *logging.Logger) *Brain {
	if logger == nil {
		logger = logging.Default()
	}
	return &Brain{path: path, logger: logger}
}

// Document returns the knowledge document, loading it on the first call.
func (b *Brain) Document() string {
	b.once.Do(func() {
		data, err := os.ReadFile(b.path)
		if err != nil {
			b.logger.Warn("brain document unavailable, using built-in fallback", "path", b.path, "error", err)
			b.doc = fallbackBrain
			return
		}
		doc := strings.TrimSpace(string(data))
		if doc == "" {
			b.logger.Warn("brain document empty, using built-in fallback", "path", b.path)
			b.doc = fallbackBrain
			return
		}
		b.doc = doc
	})
	return b.doc
}
