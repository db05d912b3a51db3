package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/askdocs/askdocs/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_ReadsSupportedTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guide.md", "# Guide\n\nSome text.")
	writeFile(t, dir, "notes.txt", "plain notes")
	writeFile(t, dir, "table.csv", "a,b\n1,2\n")
	writeFile(t, dir, "data.json", `{"name":"pool","lanes":8}`)
	writeFile(t, dir, "image.png", "\x89PNG")

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 4, "png must be skipped")

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.SourceID
	}
	assert.Equal(t, []string{"data.json", "guide.md", "notes.txt", "table.csv"}, ids,
		"documents must come back in sorted path order")
}

func TestLoad_PrettyPrintsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.json", `{"lanes":8}`)

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Text, "\"lanes\": 8")
}

func TestLoad_SkipsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{"lanes":`)
	writeFile(t, dir, "ok.txt", "fine")

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "ok.txt", docs[0].SourceID)
}

func TestLoad_RecursesSubdirectoriesSkipsHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("sub", "deep.md"), "deep content")
	writeFile(t, dir, filepath.Join(".git", "config.txt"), "not a document")

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, filepath.Join("sub", "deep.md"), docs[0].SourceID)
}

func TestLoad_MissingDirIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetCode(err))
}

func TestLoad_EmptyDirReturnsNoDocuments(t *testing.T) {
	docs, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}
