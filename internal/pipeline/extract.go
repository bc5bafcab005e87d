package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fursa-app/opportunity-cli/internal/countries"
	"github.com/fursa-app/opportunity-cli/internal/llm"
	"github.com/fursa-app/opportunity-cli/internal/model"
)

const extractionSystemPrompt = `You are an information extraction system for scholarships and opportunities.

You will receive a markdown document describing one or more opportunities.

Your task is to extract structured information for EACH opportunity in valid JSON format.

IMPORTANT: Extract the data in the language it appears. We will handle translation separately.

RULES:

* If a field is not mentioned in the text, DO NOT include it in the output JSON.
* Do NOT hallucinate or infer missing information.
* If a date is unclear or missing, omit that field entirely.
* For benefits, extract as a list of strings.

* For country AND eligible_nationalities — COUNTRY NAME NORMALIZATION IS CRITICAL:
  - ALWAYS use the standard short English name for every country. Examples:
    ✓ "USA"  (NOT "United States", "United States of America", "U.S.", "America")
    ✓ "UK"   (NOT "United Kingdom", "Great Britain", "England")
    ✓ "UAE"  (NOT "United Arab Emirates", "Emirates")
    ✓ "South Korea"  (NOT "Korea", "Republic of Korea")
    ✓ "Saudi Arabia"  (NOT "Kingdom of Saudi Arabia", "KSA")
    ✓ "Czech Republic"  (NOT "Czechia")
    ✓ "Netherlands"  (NOT "Holland", "The Netherlands")
    ✓ "Turkey"  (NOT "Türkiye")
  - For all other countries use the common short name: "Germany", "France", "Japan", "Egypt", "Canada", etc.
  - NEVER use formal/official names like "Federal Republic of Germany" or "Arab Republic of Egypt"
  - NEVER prefix with "The" (e.g., use "Philippines" not "The Philippines")
  - This rule applies to BOTH the "country" field AND every entry in "eligible_nationalities"

* For eligible_nationalities:
  - If explicitly stated as unrestricted, return "all".
  - Otherwise, return a list of countries using the normalized short names above.
  - If not mentioned, omit the field.

* For type.subtype, return an ARRAY of applicable subtypes
  (e.g., ["masters", "bachelor", "phd"]). An opportunity can be for multiple degree types.
  - program is considered academic only if it gives a degree (bachelor, master, phd). If it doesn't explicitly give a degree then it's non-academic even if it's educational in nature (e.g., a conference or exchange program).

* For target_segment:
  - Extract eligibility levels: "high school", "undergraduate", "graduate"
  - target_segment is for those who can apply, for example a bachelor's scholarship is open to high school and undergraduate students
  - Return as an array if multiple segments are eligible
  - target_segment can't be null if not clear then add the three segments as eligible

* For documents_required:
  - Extract any mentioned required documents: "cv", "transcript", "motivation letter", "cover letter", "portfolio", etc.
  - mention only major documents and Only include if documents are actually required by the opportunity
  - Return as an array of document types
  - resume and any form of cv should be written as "cv"

* For language_requirements:
  - If no language requirement is mentioned, DO NOT include this field at all.
  - If language tests are required, return an object where each key is the exam name and the value is the score.
    Example: { "IELTS": "6.5", "TOEFL": "90" }
  - If an exam is mentioned but NO score is specified, return an empty string as its value.

* For application_fee:
  - If the text doesn't clearly state a fee, OMIT the field entirely.
  - Only include application_fee if a specific non-zero amount is stated.

* type must not be null, if it is not a degree then it's non-academic
* if program is not funded or doesn't state fund type then omit it
* if program has several fund types add them to the array

Return one JSON object per opportunity.
If there are multiple opportunities in one document, return a JSON array with multiple objects.

Allowed top-level fields (only include those that actually appear in the text):

{
  "title": "opportunity title in original language",
  "description": "main description in original language",
  "eligibility": "eligibility criteria in original language",
  "country": "[normalized short country names: USA, UK, Germany, etc.]",
  "location": "",
  "start_date": "YYYY-MM-DD",
  "end_date": "YYYY-MM-DD",
  "duration": "",
  "fund_type": "[\"fully_funded\", \"partially_funded\"]",
  "benefits": ["list of bullet points in original language"],
  "deadline": "YYYY-MM-DD",
  "gpa": "float",
  "min_age": "",
  "max_age": "",
  "type": {
    "category": "academic | non_academic",
    "subtype": ["masters", "bachelor", "phd", "conference", "exchange", "prize", "internship", "camp", "volunteering", "workshop"]
  },
  "application_fee": "only include if a specific non-zero amount is stated",
  "application_link": "",
  "official_website": "",
  "target_segment": ["high school", "undergraduate", "graduate"],
  "language_requirements": {
    "exam_name": "score or empty string"
  },
  "eligible_nationalities": "all | [list of normalized short country names]",
  "documents_required": [],
  "is_remote": false
}`

const extractionUserPromptFormat = `Extract structured information from the following markdown document about an opportunity:

---MARKDOWN START---
%s
---MARKDOWN END---

Output rules:
- Return ONLY valid JSON (no explanations, no comments, no markdown)
- Return a single JSON object
- If a field is not explicitly mentioned in the text, OMIT IT ENTIRELY
- Do NOT guess, infer, or add missing information
- Preserve the original language of the document exactly
- Follow the schema strictly`

// Extractor turns one markdown document into zero or more opportunity
// records via a pooled LLM call.
type Extractor struct {
	invoker llm.Invoker
}

// NewExtractor builds an extractor over the given LLM pool.
func NewExtractor(invoker llm.Invoker) *Extractor {
	return &Extractor{invoker: invoker}
}

// Extract sends the document to the LLM and parses its JSON answer. Each
// extracted record is minted a fresh id and tagged with the originating
// filename. A single object and an array of objects are both accepted.
func (e *Extractor) Extract(ctx context.Context, markdown, filename string) ([]model.Record, error) {
	raw, err := e.invoker.Invoke(ctx, llm.Request{
		System:      extractionSystemPrompt,
		User:        fmt.Sprintf(extractionUserPromptFormat, markdown),
		Temperature: 0.3,
		MaxTokens:   5000,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: llm call for %s", filename)
	}

	records, err := parseRecords(llm.ExtractJSON(raw))
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse response for %s", filename)
	}

	for _, rec := range records {
		rec.SetID(uuid.NewString())
		rec.SetSourceFile(filename)
	}
	return records, nil
}

// parseRecords decodes a sanitized LLM response as either one record or an
// array of records.
func parseRecords(payload string) ([]model.Record, error) {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "[") {
		var records []model.Record
		if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
			return nil, eris.Wrap(err, "unmarshal record array")
		}
		return records, nil
	}
	var rec model.Record
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return nil, eris.Wrap(err, "unmarshal record")
	}
	return []model.Record{rec}, nil
}

// NormalizeRecord applies deterministic post-extraction cleanup: canonical
// country names, a closed category vocabulary, and uniform list fields. It
// is idempotent, so re-normalizing already-clean records is harmless.
func NormalizeRecord(rec model.Record) {
	if _, ok := rec[model.FieldCountry]; ok {
		rec[model.FieldCountry] = countries.NormalizeAll(rec.StringList(model.FieldCountry))
	}
	if raw, ok := rec[model.FieldNationalities]; ok {
		switch v := raw.(type) {
		case string:
			if !strings.EqualFold(strings.TrimSpace(v), model.NationalitiesAll) {
				rec[model.FieldNationalities] = []string{countries.Normalize(v)}
			} else {
				rec[model.FieldNationalities] = model.NationalitiesAll
			}
		default:
			rec[model.FieldNationalities] = countries.NormalizeAll(rec.StringList(model.FieldNationalities))
		}
	}

	if info := rec.TypeInfo(); info != nil {
		if cat, _ := info[model.FieldCategory].(string); cat != model.CategoryAcademic {
			info[model.FieldCategory] = model.CategoryNonAcademic
		}
		model.Record(info).EnsureList(model.FieldSubtype)
	}

	rec.EnsureList(model.FieldFundType, model.FieldTargetSegment, model.FieldDocuments)
}

// ExtractStage runs the extraction engine over every staged document:
// extract, normalize, drop records without an application link, translate,
// persist, and stage the English variants for indexing.
type ExtractStage struct {
	extractor  *Extractor
	translator *Translator
	docs       *DocStore
	store      Upserter
	pacer      *Pacer
	sourceLang string
}

// Upserter is the slice of the store the extract stage needs.
type Upserter interface {
	UpsertOpportunity(ctx context.Context, row model.OpportunityRow) error
}

// NewExtractStage wires the extraction engine into a pipeline stage.
func NewExtractStage(extractor *Extractor, translator *Translator, docs *DocStore, st Upserter, pacer *Pacer, sourceLang string) *ExtractStage {
	return &ExtractStage{
		extractor:  extractor,
		translator: translator,
		docs:       docs,
		store:      st,
		pacer:      pacer,
		sourceLang: sourceLang,
	}
}

// Run processes every staged document in filename order. A failed document
// is logged and skipped; only infrastructure errors abort the stage. It
// reports whether any record reached the store.
func (s *ExtractStage) Run(ctx context.Context) (bool, error) {
	log := zap.L()

	docs, err := s.docs.ListDocs()
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		log.Warn("extract: no documents staged, run fetch first")
		return false, nil
	}
	log.Info("extract: processing documents", zap.Int("count", len(docs)))

	type pending struct {
		rec model.Record
		doc model.RawDocument
	}

	var extracted []pending
	failed := 0
	skippedNoLink := 0

	for i, doc := range docs {
		log.Info("extract: document",
			zap.Int("index", i+1),
			zap.Int("total", len(docs)),
			zap.String("file", doc.Filename),
		)

		records, err := s.extractor.Extract(ctx, doc.Markdown, doc.Filename)
		if err != nil {
			log.Error("extract: document failed", zap.String("file", doc.Filename), zap.Error(err))
			failed++
			continue
		}

		kept := 0
		for _, rec := range records {
			if link, _ := rec.String(model.FieldApplicationLink); link == "" {
				skippedNoLink++
				continue
			}
			NormalizeRecord(rec)
			extracted = append(extracted, pending{rec: rec, doc: doc})
			kept++
		}
		if kept == 0 {
			log.Info("extract: no records with application link", zap.String("file", doc.Filename))
		}

		s.pacer.Wait(ctx)
		if err := ctx.Err(); err != nil {
			return false, eris.Wrap(err, "extract: canceled")
		}
	}

	log.Info("extract: extraction done",
		zap.Int("records", len(extracted)),
		zap.Int("failed_docs", failed),
		zap.Int("skipped_no_link", skippedNoLink),
	)
	if len(extracted) == 0 {
		return false, nil
	}

	var stagedEN []model.Record
	saved := 0

	for i, p := range extracted {
		title, _ := p.rec.String(model.FieldTitle)
		log.Info("extract: translating and saving",
			zap.Int("index", i+1),
			zap.Int("total", len(extracted)),
			zap.String("title", title),
		)

		var en, ar model.Record
		if s.sourceLang == "ar" {
			ar = p.rec
			res := s.translator.Translate(ctx, p.rec, LanguageEnglish)
			en = res.Record
		} else {
			en = p.rec
			res := s.translator.Translate(ctx, p.rec, LanguageArabic)
			ar = res.Record
		}

		en.StripSourceFile()
		ar.StripSourceFile()

		// The indexed columns derive from the English variant, which on the
		// Arabic-source path comes back from the model unnormalized.
		NormalizeRecord(en)

		row := model.BuildRow(en, ar, p.doc.Source, p.doc.SourceURL, p.doc.Markdown)
		if err := s.store.UpsertOpportunity(ctx, row); err != nil {
			log.Error("extract: save failed", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		saved++
		stagedEN = append(stagedEN, en)

		s.pacer.Wait(ctx)
		if err := ctx.Err(); err != nil {
			return saved > 0, eris.Wrap(err, "extract: canceled")
		}
	}

	if err := s.docs.WriteStaged(stagedEN); err != nil {
		return saved > 0, err
	}
	log.Info("extract: complete", zap.Int("saved", saved))
	return saved > 0, nil
}
