package resolver

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/joescharf/awt/internal/scan"
)

// claudeStrategy searches the Claude Code session store. The layout has
// changed across releases, so several roots and several encodings of the same
// cwd are tried in priority order; the first root that produces candidates
// wins.
//
// Layout: <root>/projects/<encoded-cwd>/*.jsonl, older releases nest a
// sessions/ directory below the project dir. Session ids are the UUID file
// stems. When no project directory matches, <root>/history.jsonl is consulted
// as a last resort.
type claudeStrategy struct {
	r *Resolver
}

func (s *claudeStrategy) roots() []string {
	var roots []string
	if s.r.LookupEnv != nil {
		if dir, ok := s.r.LookupEnv("CLAUDE_CONFIG_DIR"); ok && dir != "" {
			roots = append(roots, dir)
		}
	}
	roots = append(roots,
		filepath.Join(s.r.Home, ".claude"),
		filepath.Join(s.r.Home, ".config", "claude"),
	)
	return roots
}

// encodeCwd returns the known encodings of cwd used for project directory
// names, newest layout first: slash, underscore, and dot all map to dash;
// older releases additionally collapsed runs of dashes.
func encodeCwd(cwd string) []string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '_', '.':
			return '-'
		}
		return r
	}, cwd)

	collapsed := collapseDashes(mapped)

	encodings := []string{mapped}
	if collapsed != mapped {
		encodings = append(encodings, collapsed)
	}
	return encodings
}

func collapseDashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevDash := false
	for _, r := range s {
		if r == '-' {
			if prevDash {
				continue
			}
			prevDash = true
		} else {
			prevDash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// projectDirs lists candidate session directories for cwd under root, in
// priority order.
func (s *claudeStrategy) projectDirs(root, cwd string) []string {
	var dirs []string
	for _, enc := range encodeCwd(cwd) {
		base := filepath.Join(root, "projects", enc)
		dirs = append(dirs, base, filepath.Join(base, "sessions"))
	}
	return dirs
}

func (s *claudeStrategy) findLatest(opts Options) *SessionInfo {
	for _, root := range s.roots() {
		var candidates []SessionInfo
		for _, dir := range s.projectDirs(root, opts.Cwd) {
			for _, f := range scan.WalkFiles(dir, 0, func(name string) bool {
				return scan.HasExt(name, ".jsonl")
			}) {
				id := scan.Stem(f.Path)
				if !scan.IsUUID(id) {
					continue
				}
				candidates = append(candidates, SessionInfo{ID: id, ModTime: f.ModTime})
			}
		}
		if len(candidates) == 0 {
			candidates = s.historyCandidates(root, opts.Cwd)
		}
		if best := rank(candidates, opts); best != nil {
			return best
		}
	}
	return nil
}

// historyCandidates scans <root>/history.jsonl for entries recorded against
// cwd. The history file carries per-entry timestamps rather than file mtimes.
func (s *claudeStrategy) historyCandidates(root, cwd string) []SessionInfo {
	var candidates []SessionInfo
	scan.EachJSONLine(filepath.Join(root, "history.jsonl"), func(m map[string]any) bool {
		entryCwd, ok := scan.StringField(m, "cwd", "project", "projectPath")
		if !ok || !scan.SamePath(entryCwd, cwd) {
			return true
		}
		id, ok := scan.StringField(m, "sessionId", "session_id", "id")
		if !ok || !scan.IsUUID(id) {
			return true
		}
		candidates = append(candidates, SessionInfo{
			ID:      id,
			ModTime: historyTimestamp(m),
		})
		return true
	})
	return candidates
}

// historyTimestamp extracts an entry's timestamp, accepting RFC 3339 strings
// and unix epoch numbers in seconds or milliseconds.
func historyTimestamp(m map[string]any) time.Time {
	if s, ok := scan.StringField(m, "timestamp", "time", "createdAt"); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	for _, key := range []string{"timestamp", "time", "mtime"} {
		if v, ok := m[key].(float64); ok && v > 0 {
			// Millisecond epochs are unambiguously larger than any
			// plausible second epoch.
			if v > 1e12 {
				return time.UnixMilli(int64(v))
			}
			return time.Unix(int64(v), 0)
		}
	}
	return time.Time{}
}

func (s *claudeStrategy) sessionFileExists(id, worktreePath string) bool {
	if !scan.IsUUID(id) {
		return false
	}
	for _, root := range s.roots() {
		for _, dir := range s.projectDirs(root, worktreePath) {
			for _, f := range scan.WalkFiles(dir, 0, func(name string) bool {
				return scan.HasExt(name, ".jsonl")
			}) {
				if scan.Stem(f.Path) == id {
					return true
				}
			}
		}
	}
	return false
}
