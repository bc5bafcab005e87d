package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fursa-app/opportunity-cli/internal/model"
	"github.com/fursa-app/opportunity-cli/pkg/jina"
	"github.com/fursa-app/opportunity-cli/pkg/qdrant"
)

// Indexer embeds the staged English records and upserts them to the vector
// collection with a structured filter payload.
type Indexer struct {
	embedder   jina.Client
	vectors    qdrant.Client
	docs       *DocStore
	collection string
	embedBatch int
	upsertBat  int
}

// NewIndexer wires the index stage. Batch sizes below 1 fall back to
// single-item batches.
func NewIndexer(embedder jina.Client, vectors qdrant.Client, docs *DocStore, collection string, embedBatch, upsertBatch int) *Indexer {
	if embedBatch < 1 {
		embedBatch = 1
	}
	if upsertBatch < 1 {
		upsertBatch = 1
	}
	return &Indexer{
		embedder:   embedder,
		vectors:    vectors,
		docs:       docs,
		collection: collection,
		embedBatch: embedBatch,
		upsertBat:  upsertBatch,
	}
}

// Run loads the staged records, embeds their searchable text in batches, and
// upserts one point per record keyed by the record id. It reports whether
// any point was written.
func (x *Indexer) Run(ctx context.Context) (bool, error) {
	log := zap.L()

	records, err := x.docs.ReadStaged()
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		log.Warn("index: no staged records, run extract first")
		return false, nil
	}
	log.Info("index: loaded staged records", zap.Int("count", len(records)))

	// Records staged by older runs may predate normalization; re-applying
	// is idempotent.
	texts := make([]string, len(records))
	for i, rec := range records {
		NormalizeRecord(rec)
		texts[i] = richText(rec)
	}

	var vectors [][]float32
	for start := 0; start < len(texts); start += x.embedBatch {
		end := start + x.embedBatch
		if end > len(texts) {
			end = len(texts)
		}
		log.Info("index: embedding batch", zap.Int("from", start), zap.Int("to", end), zap.Int("total", len(texts)))
		batch, err := x.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return false, err
		}
		vectors = append(vectors, batch...)
	}
	log.Info("index: embeddings generated", zap.Int("count", len(vectors)))

	points := make([]qdrant.Point, len(records))
	for i, rec := range records {
		points[i] = qdrant.Point{
			ID:      rec.ID(),
			Vector:  vectors[i],
			Payload: buildPayload(rec),
		}
	}

	for start := 0; start < len(points); start += x.upsertBat {
		end := start + x.upsertBat
		if end > len(points) {
			end = len(points)
		}
		if err := x.vectors.UpsertPoints(ctx, x.collection, points[start:end]); err != nil {
			return false, err
		}
	}

	log.Info("index: complete", zap.Int("points", len(points)), zap.String("collection", x.collection))
	return true, nil
}

// richText builds the text that gets embedded: title, description, and
// eligibility criteria.
func richText(rec model.Record) string {
	title, _ := rec.String(model.FieldTitle)
	description, _ := rec.String(model.FieldDescription)
	eligibility, _ := rec.String(model.FieldEligibility)
	return fmt.Sprintf("%s\n%s\nEligibility: %s\n", title, description, eligibility)
}

// listOrEmpty is like Record.StringList but yields an empty slice instead of
// nil, so payload fields are always arrays.
func listOrEmpty(rec model.Record, key string) []string {
	if vals := rec.StringList(key); vals != nil {
		return vals
	}
	return []string{}
}

// buildPayload assembles the filterable point payload from one English
// record.
func buildPayload(rec model.Record) map[string]any {
	examScores := rec.ExamScores()
	if examScores == nil {
		examScores = []model.ExamScore{}
	}
	documents := listOrEmpty(rec, model.FieldDocuments)

	subtype := rec.Subtype()
	if subtype == nil {
		subtype = []string{}
	}

	nationalities := rec.StringList(model.FieldNationalities)
	if nationalities == nil {
		nationalities = []string{model.NationalitiesAll}
	}

	title, _ := rec.String(model.FieldTitle)
	deadline, _ := rec.String(model.FieldDeadline)

	return map[string]any{
		"program_id":                rec.ID(),
		"title":                     title,
		"country":                   listOrEmpty(rec, model.FieldCountry),
		"fund_type":                 listOrEmpty(rec, model.FieldFundType),
		"category":                  rec.Category(),
		"subtype":                   subtype,
		"documents_required":        documents,
		"exam_scores":               examScores,
		"is_remote":                 rec.Bool(model.FieldIsRemote),
		"eligible_nationalities":    nationalities,
		"target_segment":            listOrEmpty(rec, model.FieldTargetSegment),
		"deadline":                  deadline,
		"min_age":                   intOrNull(rec, model.FieldMinAge),
		"max_age":                   intOrNull(rec, model.FieldMaxAge),
		"gpa":                       floatOrNull(rec, model.FieldGPA),
		"has_language_requirements": len(examScores) > 0,
		"has_fee":                   feeStated(rec),
		"has_document_requirements": len(documents) > 0,
	}
}

// feeStated reports whether the record states a real application fee. An
// empty string or zero amount counts as no fee.
func feeStated(rec model.Record) bool {
	v, ok := rec[model.FieldApplicationFee]
	if !ok || v == nil {
		return false
	}
	switch fee := v.(type) {
	case string:
		return fee != ""
	case float64:
		return fee != 0
	case bool:
		return fee
	}
	return true
}

// intOrNull returns the field as an int, or an explicit null so the payload
// key is always present for index-side null filters.
func intOrNull(rec model.Record, key string) any {
	if v, ok := rec.Int(key); ok {
		return v
	}
	return nil
}

func floatOrNull(rec model.Record, key string) any {
	if v, ok := rec.Float(key); ok {
		return v
	}
	return nil
}
