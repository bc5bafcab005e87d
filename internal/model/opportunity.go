// Package model defines the opportunity record types shared across the
// ingestion pipeline.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Well-known record fields. The extraction schema is open-ended: any field
// the model did not state is simply absent from the map.
const (
	FieldID              = "id"
	FieldSourceFile      = "_source_file"
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldEligibility     = "eligibility"
	FieldCountry         = "country"
	FieldDeadline        = "deadline"
	FieldGPA             = "gpa"
	FieldMinAge          = "min_age"
	FieldMaxAge          = "max_age"
	FieldType            = "type"
	FieldCategory        = "category"
	FieldSubtype         = "subtype"
	FieldFundType        = "fund_type"
	FieldApplicationFee  = "application_fee"
	FieldApplicationLink = "application_link"
	FieldTargetSegment   = "target_segment"
	FieldLanguageReqs    = "language_requirements"
	FieldNationalities   = "eligible_nationalities"
	FieldDocuments       = "documents_required"
	FieldIsRemote        = "is_remote"
)

// CategoryAcademic and CategoryNonAcademic are the only valid values for the
// type.category field. Anything else is coerced to non_academic.
const (
	CategoryAcademic    = "academic"
	CategoryNonAcademic = "non_academic"
)

// NationalitiesAll marks an opportunity open to applicants of any nationality.
const NationalitiesAll = "all"

// Record is one language variant of an opportunity. Key presence means the
// source document stated the field; absence means "not stated", never
// "empty". The two language variants of one opportunity share the same id.
type Record map[string]any

// ID returns the record identifier, or "" if not yet assigned.
func (r Record) ID() string {
	s, _ := r.String(FieldID)
	return s
}

// SetID assigns the record identifier. It is minted once at extraction and
// never regenerated.
func (r Record) SetID(id string) {
	r[FieldID] = id
}

// SourceFile returns the transient source-file tag.
func (r Record) SourceFile() string {
	s, _ := r.String(FieldSourceFile)
	return s
}

// SetSourceFile tags the record with its originating document filename.
func (r Record) SetSourceFile(name string) {
	r[FieldSourceFile] = name
}

// StripSourceFile removes the transient source-file tag before persistence.
func (r Record) StripSourceFile() {
	delete(r, FieldSourceFile)
}

// String returns the field as a string. The second return reports presence.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns the field as a float64, accepting JSON numbers and numeric
// strings (the model frequently quotes numerics).
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns the field as an int via Float.
func (r Record) Int(key string) (int, bool) {
	f, ok := r.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Bool returns the field as a bool, defaulting to false when absent or of
// the wrong type.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// StringList coerces a field to a uniform list representation: a bare string
// becomes a one-element list, a JSON array keeps its string elements, and an
// absent field yields nil.
func (r Record) StringList(key string) []string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// EnsureList rewrites each named field in place to the uniform list
// representation. Absent fields stay absent.
func (r Record) EnsureList(keys ...string) {
	for _, key := range keys {
		if _, ok := r[key]; ok {
			r[key] = r.StringList(key)
		}
	}
}

// TypeInfo returns the nested type classification map, creating nothing.
func (r Record) TypeInfo() map[string]any {
	m, _ := r[FieldType].(map[string]any)
	return m
}

// Category returns type.category, or "" if unclassified.
func (r Record) Category() string {
	if m := r.TypeInfo(); m != nil {
		s, _ := m[FieldCategory].(string)
		return s
	}
	return ""
}

// Subtype returns type.subtype as a uniform list.
func (r Record) Subtype() []string {
	m := r.TypeInfo()
	if m == nil {
		return nil
	}
	return Record(m).StringList(FieldSubtype)
}

// DeadlineDate parses the deadline field as an ISO date. Anything that is
// not a bare YYYY-MM-DD string is treated as not stated.
func (r Record) DeadlineDate() *time.Time {
	s, ok := r.String(FieldDeadline)
	if !ok {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// Clone returns a deep copy of the record via a JSON round trip, so the
// translation engine can degrade to the original without aliasing.
func (r Record) Clone() Record {
	data, err := json.Marshal(r)
	if err != nil {
		out := make(Record, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return r
	}
	return out
}

// ExamScore is a language-exam requirement derived from the
// language_requirements mapping.
type ExamScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ExamScores builds the exam-score list from the language_requirements
// field. Exam names are lowercased; entries whose score does not parse as a
// number are dropped silently rather than failing the record.
func (r Record) ExamScores() []ExamScore {
	reqs, ok := r[FieldLanguageReqs].(map[string]any)
	if !ok {
		return nil
	}
	scores := make([]ExamScore, 0, len(reqs))
	for name, raw := range reqs {
		var score float64
		switch v := raw.(type) {
		case float64:
			score = v
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue
			}
			score = f
		default:
			continue
		}
		scores = append(scores, ExamScore{
			Name:  strings.ToLower(strings.TrimSpace(name)),
			Score: score,
		})
	}
	if len(scores) == 0 {
		return nil
	}
	return scores
}

// OpportunityRow is the persistence shape of one opportunity: both language
// variants as opaque payloads plus the indexed columns used for filtering
// without deserializing the payloads.
type OpportunityRow struct {
	ID             string
	Source         string
	SourceURL      string
	SourceMarkdown string
	DataEN         Record
	DataAR         Record
	Category       string
	Subtype        []string
	Country        []string
	FundType       []string
	TargetSegment  []string
	Deadline       *time.Time
	IsRemote       bool
}

// BuildRow derives the indexed columns from the English variant. Both
// variants must already carry the same id.
func BuildRow(en, ar Record, source, sourceURL, sourceMD string) OpportunityRow {
	return OpportunityRow{
		ID:             en.ID(),
		Source:         source,
		SourceURL:      sourceURL,
		SourceMarkdown: sourceMD,
		DataEN:         en,
		DataAR:         ar,
		Category:       en.Category(),
		Subtype:        en.Subtype(),
		Country:        en.StringList(FieldCountry),
		FundType:       en.StringList(FieldFundType),
		TargetSegment:  en.StringList(FieldTargetSegment),
		Deadline:       en.DeadlineDate(),
		IsRemote:       en.Bool(FieldIsRemote),
	}
}

// RawDocument is one scraped markdown document plus provenance. Produced by
// the fetch stage, consumed once by extraction.
type RawDocument struct {
	Filename  string `json:"filename"`
	Markdown  string `json:"-"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url"`
}
