package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWalkFiles_DepthBound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jsonl"), "{}")
	writeFile(t, filepath.Join(dir, "sub", "b.jsonl"), "{}")
	writeFile(t, filepath.Join(dir, "sub", "deep", "c.jsonl"), "{}")

	jsonl := func(name string) bool { return HasExt(name, ".jsonl") }

	shallow := WalkFiles(dir, 0, jsonl)
	assert.Len(t, shallow, 1)

	one := WalkFiles(dir, 1, jsonl)
	assert.Len(t, one, 2)

	all := WalkFiles(dir, 3, jsonl)
	assert.Len(t, all, 3)
}

func TestWalkFiles_MissingRoot(t *testing.T) {
	files := WalkFiles("/nonexistent/path/12345", 3, func(string) bool { return true })
	assert.Empty(t, files)
}

func TestReadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	writeFile(t, path, `{"id":"abc","directory":"/home/joe/repo"}`)

	m, ok := ReadJSONFile(path)
	require.True(t, ok)
	id, _ := StringField(m, "id")
	assert.Equal(t, "abc", id)

	_, ok = ReadJSONFile(filepath.Join(dir, "missing.json"))
	assert.False(t, ok)

	writeFile(t, path, "not json")
	_, ok = ReadJSONFile(path)
	assert.False(t, ok)
}

func TestEachJSONLine_SkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h.jsonl")
	writeFile(t, path, `{"n":1}
garbage line

{"n":2}
`)

	var count int
	EachJSONLine(path, func(m map[string]any) bool {
		count++
		return true
	})
	assert.Equal(t, 2, count)
}

func TestEachJSONLine_EarlyStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h.jsonl")
	writeFile(t, path, `{"n":1}
{"n":2}
{"n":3}
`)

	var count int
	EachJSONLine(path, func(m map[string]any) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID("01234567-89ab-cdef-0123-456789abcdef"))
	assert.False(t, IsUUID("not-a-uuid"))
	assert.False(t, IsUUID(""))
	// Braced/urn forms parse with the uuid package but are not canonical
	assert.False(t, IsUUID("{01234567-89ab-cdef-0123-456789abcdef}"))
}

func TestStringField_Probing(t *testing.T) {
	m := map[string]any{"sessionId": "  abc  ", "other": 42, "empty": ""}

	v, ok := StringField(m, "id", "sessionId")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	_, ok = StringField(m, "empty", "other", "missing")
	assert.False(t, ok)
}

func TestSamePath(t *testing.T) {
	assert.True(t, SamePath("/home/joe/repo", "/home/joe/repo/"))
	assert.True(t, SamePath("/home/joe/./repo", "/home/joe/repo"))
	assert.False(t, SamePath("/home/joe/repo", "/home/joe/other"))
	assert.False(t, SamePath("", "/home/joe/repo"))
}

func TestStem(t *testing.T) {
	assert.Equal(t, "session-1", Stem("/a/b/session-1.jsonl"))
	assert.Equal(t, "checkpoint", Stem("checkpoint.json"))
	assert.Equal(t, "noext", Stem("noext"))
}
