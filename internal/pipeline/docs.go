package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/fursa-app/opportunity-cli/internal/model"
)

// Filenames used for the filesystem handoff between stages.
const (
	sourceMetaFile = "source_metadata.json"
	stagedENFile   = "opportunities_en.json"
)

// DocStore is the filesystem handoff between pipeline stages: markdown
// documents plus provenance metadata written by fetch, consumed by extract,
// and the staged English records consumed by index.
type DocStore struct {
	dir string
}

// NewDocStore creates the docs directory if needed.
func NewDocStore(dir string) (*DocStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "docs: create dir %s", dir)
	}
	return &DocStore{dir: dir}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename converts an opportunity title to a safe markdown filename.
func SanitizeFilename(title string) string {
	sanitized := strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(title, ""))
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	if sanitized == "" {
		sanitized = "opportunity"
	}
	return sanitized + ".md"
}

// Clear removes all markdown documents, preparing for a fresh batch.
func (d *DocStore) Clear() error {
	matches, err := filepath.Glob(filepath.Join(d.dir, "*.md"))
	if err != nil {
		return eris.Wrap(err, "docs: glob")
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return eris.Wrapf(err, "docs: remove %s", m)
		}
	}
	return nil
}

// WriteDoc stores one markdown document.
func (d *DocStore) WriteDoc(filename, markdown string) error {
	path := filepath.Join(d.dir, filename)
	return eris.Wrapf(os.WriteFile(path, []byte(markdown), 0o644), "docs: write %s", filename)
}

// ListDocs returns the stored documents sorted by filename, with markdown
// content and provenance attached from the metadata file.
func (d *DocStore) ListDocs() ([]model.RawDocument, error) {
	meta, err := d.readMeta()
	if err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(d.dir, "*.md"))
	if err != nil {
		return nil, eris.Wrap(err, "docs: glob")
	}
	sort.Strings(matches)

	docs := make([]model.RawDocument, 0, len(matches))
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "docs: read %s", path)
		}
		name := filepath.Base(path)
		doc := model.RawDocument{Filename: name, Markdown: string(content)}
		if m, ok := meta[name]; ok {
			doc.Source = m.Source
			doc.SourceURL = m.SourceURL
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// WriteMeta stores the provenance map keyed by document filename.
func (d *DocStore) WriteMeta(meta map[string]model.RawDocument) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return eris.Wrap(err, "docs: marshal metadata")
	}
	path := filepath.Join(d.dir, sourceMetaFile)
	return eris.Wrap(os.WriteFile(path, data, 0o644), "docs: write metadata")
}

func (d *DocStore) readMeta() (map[string]model.RawDocument, error) {
	path := filepath.Join(d.dir, sourceMetaFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]model.RawDocument{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "docs: read metadata")
	}
	var meta map[string]model.RawDocument
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, eris.Wrap(err, "docs: unmarshal metadata")
	}
	return meta, nil
}

// WriteStaged stores the English records awaiting embedding.
func (d *DocStore) WriteStaged(records []model.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "docs: marshal staged records")
	}
	path := filepath.Join(d.dir, stagedENFile)
	return eris.Wrap(os.WriteFile(path, data, 0o644), "docs: write staged records")
}

// ReadStaged loads the English records awaiting embedding. A missing file
// yields an empty slice: the extract stage has simply not produced anything.
func (d *DocStore) ReadStaged() ([]model.Record, error) {
	path := filepath.Join(d.dir, stagedENFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "docs: read staged records")
	}
	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "docs: unmarshal staged records")
	}
	return records, nil
}
