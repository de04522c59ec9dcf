package normalizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/intake-api/pkg/logger"
)

type fakeTranslator struct {
	out   string
	err   error
	calls int
}

func (f *fakeTranslator) Translate(ctx context.Context, text string) (string, error) {
	f.calls++
	return f.out, f.err
}

func TestNormalizeSkipsTranslationForProcessingLanguage(t *testing.T) {
	tr := &fakeTranslator{out: "should not be used"}
	svc := NewService(tr, logger.NewLogger(nil))

	result := svc.Normalize(context.Background(), "I have a headache")

	assert.Equal(t, "I have a headache", result.Text)
	assert.False(t, result.Translated)
	assert.Equal(t, "en", result.Language)
	assert.Zero(t, tr.calls)
}

func TestNormalizeTranslatesForeignText(t *testing.T) {
	tr := &fakeTranslator{out: "I have a stomach ache"}
	svc := NewService(tr, logger.NewLogger(nil))

	result := svc.Normalize(context.Background(), "мне болит живот")

	assert.Equal(t, "I have a stomach ache", result.Text)
	assert.Equal(t, "мне болит живот", result.Original)
	assert.True(t, result.Translated)
	assert.Equal(t, 1, tr.calls)
}

func TestNormalizeFallsBackOnTranslationFailure(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("translation service down")}
	svc := NewService(tr, logger.NewLogger(nil))

	result := svc.Normalize(context.Background(), "мне болит живот")

	// The original text flows on; the turn must not fail here.
	assert.Equal(t, "мне болит живот", result.Text)
	assert.False(t, result.Translated)
}

func TestNormalizeFallsBackOnEmptyTranslation(t *testing.T) {
	tr := &fakeTranslator{out: ""}
	svc := NewService(tr, logger.NewLogger(nil))

	result := svc.Normalize(context.Background(), "мне болит живот")
	assert.Equal(t, "мне болит живот", result.Text)
}

func TestIsProcessingLanguage(t *testing.T) {
	assert.True(t, IsProcessingLanguage("I have a fever and chills"))
	assert.True(t, IsProcessingLanguage("123 !?"))
	assert.True(t, IsProcessingLanguage(""))
	assert.False(t, IsProcessingLanguage("мне болит живот"))
	assert.False(t, IsProcessingLanguage("頭が痛いです"))
	// Mixed text with a heavy foreign share is sent to translation.
	assert.False(t, IsProcessingLanguage("pain in живот и голова кружится"))
}
