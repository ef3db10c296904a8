// Package scan provides best-effort filesystem helpers shared by the session
// resolver strategies. Every function here treats I/O errors and malformed
// content as "no result" — the resolver folds those into "no candidate" and
// keeps searching.
package scan

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileEntry is a file found by WalkFiles with its modification time.
type FileEntry struct {
	Path    string
	ModTime time.Time
}

// WalkFiles walks root up to maxDepth directories deep and returns files for
// which pred returns true. Unreadable directories are skipped silently. Depth 0
// means only root's direct entries.
func WalkFiles(root string, maxDepth int, pred func(name string) bool) []FileEntry {
	var files []FileEntry

	type frame struct {
		dir   string
		depth int
	}
	stack := []frame{{root, 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(f.dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			path := filepath.Join(f.dir, entry.Name())
			if entry.IsDir() {
				if f.depth < maxDepth {
					stack = append(stack, frame{path, f.depth + 1})
				}
				continue
			}
			if !pred(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, FileEntry{Path: path, ModTime: info.ModTime()})
		}
	}
	return files
}

// WalkDirs returns root's immediate subdirectories. A missing or unreadable
// root yields nil.
func WalkDirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	return dirs
}

// ReadJSONFile parses path as a single JSON object. Returns ok=false for any
// read or parse failure.
func ReadJSONFile(path string) (map[string]any, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, false
	}
	return m, true
}

// maxLineBytes bounds scanner buffers; agent transcripts can carry large
// base64 payloads in a single line.
const maxLineBytes = 4 * 1024 * 1024

// EachJSONLine reads path as line-delimited JSON and calls fn for each line
// that parses as an object, skipping blank and malformed lines. fn returning
// false stops the scan early.
func EachJSONLine(path string, fn func(map[string]any) bool) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue
		}
		if !fn(m) {
			return
		}
	}
}

// IsUUID reports whether s is a canonical UUID.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// StringField returns the first non-empty string value found under any of the
// given keys.
func StringField(m map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					return s, true
				}
			}
		}
	}
	return "", false
}

// SamePath reports whether two paths refer to the same directory after
// cleaning and trailing-slash normalization. Comparison is case-sensitive;
// the agent tools record the cwd verbatim.
func SamePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// HasExt reports whether name carries one of the given extensions
// (e.g. ".json", ".jsonl").
func HasExt(name string, exts ...string) bool {
	for _, ext := range exts {
		if strings.EqualFold(filepath.Ext(name), ext) {
			return true
		}
	}
	return false
}

// Stem returns the file name without its extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
