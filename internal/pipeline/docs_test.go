package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fursa-app/opportunity-cli/internal/model"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "DAAD Scholarship 2026.md", SanitizeFilename(`DAAD Scholarship 2026`))
	assert.Equal(t, "Study in Germany Fully Funded.md", SanitizeFilename(`Study in Germany: "Fully Funded"?`))
	assert.Equal(t, "opportunity.md", SanitizeFilename("<>:*?"))

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, SanitizeFilename(string(long)), 103)
}

func TestDocStoreRoundTrip(t *testing.T) {
	docs, err := NewDocStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, docs.WriteDoc("b.md", "# Second"))
	require.NoError(t, docs.WriteDoc("a.md", "# First"))
	require.NoError(t, docs.WriteMeta(map[string]model.RawDocument{
		"a.md": {Filename: "a.md", Source: "opportunitiescorners", SourceURL: "https://example.org/a"},
	}))

	listed, err := docs.ListDocs()
	require.NoError(t, err)
	require.Len(t, listed, 2)

	assert.Equal(t, "a.md", listed[0].Filename)
	assert.Equal(t, "# First", listed[0].Markdown)
	assert.Equal(t, "opportunitiescorners", listed[0].Source)
	assert.Equal(t, "https://example.org/a", listed[0].SourceURL)

	assert.Equal(t, "b.md", listed[1].Filename)
	assert.Empty(t, listed[1].Source, "documents without metadata keep empty provenance")

	require.NoError(t, docs.Clear())
	listed, err = docs.ListDocs()
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDocStoreStagedRecords(t *testing.T) {
	docs, err := NewDocStore(t.TempDir())
	require.NoError(t, err)

	// Missing staged file is "nothing extracted yet", not an error.
	records, err := docs.ReadStaged()
	require.NoError(t, err)
	assert.Empty(t, records)

	in := []model.Record{
		{model.FieldID: "id-1", model.FieldTitle: "Scholarship"},
		{model.FieldID: "id-2", model.FieldTitle: "Internship"},
	}
	require.NoError(t, docs.WriteStaged(in))

	out, err := docs.ReadStaged()
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "id-1", out[0].ID())
	assert.Equal(t, "id-2", out[1].ID())
}

func TestDocStoreClearKeepsMetadata(t *testing.T) {
	dir := t.TempDir()
	docs, err := NewDocStore(dir)
	require.NoError(t, err)

	require.NoError(t, docs.WriteDoc("a.md", "# A"))
	require.NoError(t, docs.WriteMeta(map[string]model.RawDocument{"a.md": {Filename: "a.md"}}))
	require.NoError(t, docs.WriteStaged([]model.Record{{model.FieldID: "x"}}))

	require.NoError(t, docs.Clear())

	assert.NoFileExists(t, filepath.Join(dir, "a.md"))
	assert.FileExists(t, filepath.Join(dir, sourceMetaFile))
	assert.FileExists(t, filepath.Join(dir, stagedENFile))
}
