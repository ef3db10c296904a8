package resolver

import (
	"path/filepath"

	"github.com/joescharf/awt/internal/scan"
)

// geminiStrategy searches the Gemini CLI store: ~/.gemini/tmp/<hash>/, where
// <hash> is an opaque per-project digest. The cwd cannot be recovered from
// the directory name, so every candidate file's content is read to extract
// and match the recorded working directory.
type geminiStrategy struct {
	r *Resolver
}

func (s *geminiStrategy) root() string {
	return filepath.Join(s.r.Home, ".gemini", "tmp")
}

func (s *geminiStrategy) findLatest(opts Options) *SessionInfo {
	var candidates []SessionInfo
	for _, f := range scan.WalkFiles(s.root(), 2, func(name string) bool {
		return scan.HasExt(name, ".json", ".jsonl")
	}) {
		info, ok := geminiSession(f.Path, opts.Cwd)
		if !ok {
			continue
		}
		info.ModTime = f.ModTime
		candidates = append(candidates, info)
	}
	return rank(candidates, opts)
}

// geminiSession reads a candidate file and returns its session id when the
// recorded cwd matches. An empty wantCwd matches any project.
func geminiSession(path, wantCwd string) (SessionInfo, bool) {
	if m, ok := scan.ReadJSONFile(path); ok {
		return geminiFromObject(m, wantCwd)
	}

	// Line-delimited transcript: the opening lines carry the metadata.
	var info SessionInfo
	found := false
	scan.EachJSONLine(path, func(m map[string]any) bool {
		if got, ok := geminiFromObject(m, wantCwd); ok {
			info = got
			found = true
			return false
		}
		return true
	})
	return info, found
}

func geminiFromObject(m map[string]any, wantCwd string) (SessionInfo, bool) {
	cwd, ok := scan.StringField(m, "cwd", "projectPath", "project_path", "workingDirectory", "directory")
	if !ok {
		return SessionInfo{}, false
	}
	if wantCwd != "" && !scan.SamePath(cwd, wantCwd) {
		return SessionInfo{}, false
	}
	id, ok := scan.StringField(m, "sessionId", "session_id", "id")
	if !ok || !scan.IsUUID(id) {
		return SessionInfo{}, false
	}
	return SessionInfo{ID: id}, true
}

func (s *geminiStrategy) sessionFileExists(id, worktreePath string) bool {
	if !scan.IsUUID(id) {
		return false
	}
	for _, f := range scan.WalkFiles(s.root(), 2, func(name string) bool {
		return scan.HasExt(name, ".json", ".jsonl")
	}) {
		if scan.Stem(f.Path) == id {
			return true
		}
		if info, ok := geminiSession(f.Path, worktreePath); ok && info.ID == id {
			return true
		}
	}
	return false
}
