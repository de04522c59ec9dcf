package normalizer

import (
	"context"
	"unicode"

	"github.com/jwalitptl/intake-api/internal/ai/translate"
	"github.com/jwalitptl/intake-api/pkg/logger"
)

const (
	// Thresholds for the script-ratio heuristic: skip translation when the
	// text is clearly in the processing language already.
	latinFractionThreshold = 0.7
	otherFractionThreshold = 0.2
)

// Result carries the normalized text plus what was detected.
type Result struct {
	Text       string
	Original   string
	Translated bool
	Language   string
}

type Service struct {
	translator translate.Client
	logger     *logger.Logger
}

func NewService(translator translate.Client, log *logger.Logger) *Service {
	return &Service{translator: translator, logger: log}
}

// Normalize brings patient text into the processing language. A translation
// failure never aborts the turn: the original text is used instead.
func (s *Service) Normalize(ctx context.Context, text string) *Result {
	if IsProcessingLanguage(text) {
		return &Result{Text: text, Original: text, Language: "en"}
	}

	translated, err := s.translator.Translate(ctx, text)
	if err != nil || translated == "" {
		s.logger.WithStage("normalizer").Warn("translation failed, using original text",
			"error", err)
		return &Result{Text: text, Original: text, Language: "unknown"}
	}

	return &Result{Text: translated, Original: text, Translated: true, Language: "unknown"}
}

// IsProcessingLanguage classifies text by the ratio of target-alphabet letters
// to other-script letters.
func IsProcessingLanguage(text string) bool {
	var latin, other int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if r < 128 || unicode.Is(unicode.Latin, r) {
			latin++
		} else {
			other++
		}
	}

	total := latin + other
	if total == 0 {
		return true
	}

	latinFraction := float64(latin) / float64(total)
	otherFraction := float64(other) / float64(total)
	return latinFraction > latinFractionThreshold && otherFraction < otherFractionThreshold
}
