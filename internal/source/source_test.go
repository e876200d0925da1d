package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFeedSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "feed.json", `[
		{"id":"a1","title":"First Story","content":"Body of the first story.","url":"https://example.org/a1","publishDate":"2026-08-30T10:00:00Z","source":"wire"},
		{"id":"a2","title":"Second Story","content":"Body of the second story.","url":"https://example.org/a2","publishDate":"2026-08-30","source":"wire"}
	]`)

	docs, err := Load([]string{path})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a1", docs[0].ID)
	assert.Equal(t, "First Story", docs[0].Title)
	assert.Equal(t, "Body of the first story.", docs[0].Body)
	assert.Equal(t, "https://example.org/a1", docs[0].URL)
	assert.Equal(t, "wire", docs[0].SourceTag)
	assert.Equal(t, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), docs[0].PublishedAt)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), docs[1].PublishedAt)
}

func TestLoadArticleSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "archive.json", `[
		{"guid":"g1","headline":"Archived Headline","body":"Archived body text.","link":"https://example.org/g1","published_at":"2026-07-01 08:30:00","feed":"archive"}
	]`)

	docs, err := Load([]string{path})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "g1", docs[0].ID)
	assert.Equal(t, "Archived Headline", docs[0].Title)
	assert.Equal(t, "archive", docs[0].SourceTag)
	assert.Equal(t, time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC), docs[0].PublishedAt)
}

func TestLoadTextFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "Plain text article body.")

	docs, err := Load([]string{path})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes", docs[0].ID)
	assert.Equal(t, "notes", docs[0].Title)
	assert.Equal(t, "Plain text article body.", docs[0].Body)
	assert.Equal(t, "file", docs[0].SourceTag)
}

func TestLoadGlobExpansion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.json", `[{"id":"1","title":"t","content":"c one"}]`)
	writeFile(t, dir, "two.json", `[{"id":"2","title":"t","content":"c two"}]`)

	docs, err := Load([]string{filepath.Join(dir, "*.json")})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestLoadRejectsEmptyContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.json", `[
		{"id":"ok","title":"t","content":"has content"},
		{"id":"empty","title":"t","content":"   "}
	]`)

	_, err := Load([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty content")
}

func TestLoadRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "noid.json", `[{"title":"t","content":"has content"}]`)

	_, err := Load([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
}

func TestLoadRejectsUnknownSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "weird.json", `[{"foo":"bar"}]`)

	_, err := Load([]string{path})
	require.Error(t, err)
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "table.csv", "id,content\n1,hello")

	_, err := Load([]string{path})
	require.Error(t, err)
}

func TestLoadNoDocuments(t *testing.T) {
	_, err := Load(nil)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load([]string{filepath.Join(t.TempDir(), "absent.json")})
	require.Error(t, err)
}
