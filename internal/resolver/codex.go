package resolver

import (
	"path/filepath"
	"strings"

	"github.com/joescharf/awt/internal/scan"
)

// codexSearchDepth bounds the recursive walk of the Codex sessions tree,
// which shards rollout files into year/month/day directories.
const codexSearchDepth = 6

// codexStrategy searches the Codex CLI session store: a single flat (but
// date-sharded) tree under ~/.codex/sessions with no per-project scoping, so
// matching is purely by recency plus the caller's time window. Session ids
// are UUIDs, carried in the rollout filename suffix or inside the file.
type codexStrategy struct {
	r *Resolver
}

func (s *codexStrategy) root() string {
	return filepath.Join(s.r.Home, ".codex", "sessions")
}

func (s *codexStrategy) findLatest(opts Options) *SessionInfo {
	var candidates []SessionInfo
	for _, f := range scan.WalkFiles(s.root(), codexSearchDepth, func(name string) bool {
		return scan.HasExt(name, ".jsonl", ".json")
	}) {
		id, ok := codexSessionID(f.Path)
		if !ok {
			continue
		}
		candidates = append(candidates, SessionInfo{ID: id, ModTime: f.ModTime})
	}
	return rank(candidates, opts)
}

// codexSessionID extracts the session UUID for a rollout file, preferring the
// filename (rollout-<date>-<uuid>.jsonl) and falling back to id fields inside
// the file.
func codexSessionID(path string) (string, bool) {
	stem := scan.Stem(path)
	if scan.IsUUID(stem) {
		return stem, true
	}
	// Rollout filenames end in the session UUID after the last date segment.
	if len(stem) > 36 {
		tail := stem[len(stem)-36:]
		if scan.IsUUID(tail) {
			return tail, true
		}
	}

	var id string
	scan.EachJSONLine(path, func(m map[string]any) bool {
		if v, ok := scan.StringField(m, "session_id", "sessionId", "id"); ok && scan.IsUUID(v) {
			id = v
			return false
		}
		if payload, ok := m["payload"].(map[string]any); ok {
			if v, ok := scan.StringField(payload, "id", "session_id"); ok && scan.IsUUID(v) {
				id = v
				return false
			}
		}
		return true
	})
	return id, id != ""
}

func (s *codexStrategy) sessionFileExists(id, _ string) bool {
	if !scan.IsUUID(id) {
		return false
	}
	for _, f := range scan.WalkFiles(s.root(), codexSearchDepth, func(name string) bool {
		return scan.HasExt(name, ".jsonl", ".json")
	}) {
		// Filename check first; reading every rollout would be wasteful.
		if strings.Contains(filepath.Base(f.Path), id) {
			return true
		}
	}
	for _, f := range scan.WalkFiles(s.root(), codexSearchDepth, func(name string) bool {
		return scan.HasExt(name, ".jsonl", ".json")
	}) {
		if found, ok := codexSessionID(f.Path); ok && found == id {
			return true
		}
	}
	return false
}
