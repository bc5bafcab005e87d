package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fursa-app/opportunity-cli/internal/llm"
	"github.com/fursa-app/opportunity-cli/internal/model"
)

// Target languages for record translation.
const (
	LanguageEnglish = "en"
	LanguageArabic  = "ar"
)

const translatorSystemPrompt = "You are a professional translator. Respond with valid JSON only."

const translateToEnglishInstruction = `Translate the values in this JSON to English.
STRICT RULES:
1. Translate ALL string values.
2. If a value is snake_case, translate to normal text.
3. DO NOT translate JSON keys.
4. DO NOT translate: numeric strings, URLs, Emails, ISO dates.
5. Return ONLY valid JSON.`

const translateToArabicInstruction = `Translate the values in this JSON to Egyptian Arabic with a friendly tone.
STRICT RULES:
1. Translate ALL string values to Arabic.
2. If a value is snake_case, translate to its Arabic equivalent.
3. DO NOT translate JSON keys.
4. DO NOT translate: numeric strings, URLs, Emails, ISO dates.
5. Return ONLY valid JSON.`

// TranslationResult carries the produced variant and whether it is a genuine
// translation or a copy of the original after a failure.
type TranslationResult struct {
	Record   model.Record
	Fallback bool
}

// Translator produces the second language variant of a record. Identity
// fields (id, source-file tag) never pass through the model; they are
// carried over verbatim.
type Translator struct {
	invoker llm.Invoker
}

// NewTranslator builds a translator over the given LLM pool.
func NewTranslator(invoker llm.Invoker) *Translator {
	return &Translator{invoker: invoker}
}

// Translate converts the record's string values to the target language. Any
// failure degrades to a copy of the original record with Fallback set; a
// missing translation is preferred over a missing opportunity.
func (t *Translator) Translate(ctx context.Context, rec model.Record, target string) TranslationResult {
	translated, err := t.translate(ctx, rec, target)
	if err != nil {
		zap.L().Warn("translate: falling back to original",
			zap.String("target", target),
			zap.String("id", rec.ID()),
			zap.Error(err),
		)
		return TranslationResult{Record: rec.Clone(), Fallback: true}
	}
	return TranslationResult{Record: translated}
}

func (t *Translator) translate(ctx context.Context, rec model.Record, target string) (model.Record, error) {
	preserved := make(model.Record)
	payload := make(model.Record, len(rec))
	for k, v := range rec {
		if k == model.FieldID || k == model.FieldSourceFile {
			preserved[k] = v
			continue
		}
		payload[k] = v
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "translate: marshal record")
	}

	instruction := translateToArabicInstruction
	if target == LanguageEnglish {
		instruction = translateToEnglishInstruction
	}

	raw, err := t.invoker.Invoke(ctx, llm.Request{
		System:      translatorSystemPrompt,
		User:        instruction + "\n\n" + string(body),
		Temperature: 0.3,
		MaxTokens:   5000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "translate: llm call")
	}

	var translated model.Record
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &translated); err != nil {
		return nil, eris.Wrap(err, "translate: unmarshal response")
	}

	for k, v := range preserved {
		translated[k] = v
	}
	return translated, nil
}
