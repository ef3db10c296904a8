package resolver

import (
	"path/filepath"

	"github.com/joescharf/awt/internal/scan"
)

// openCodeStrategy searches the OpenCode store:
// <data>/opencode/storage/session/<projectID>/<sessionID>.json. Project ids
// are content-addressed, so every session file's "directory" field is read to
// match the cwd. Session ids are the file stems, not UUIDs.
type openCodeStrategy struct {
	r *Resolver
}

func (s *openCodeStrategy) root() string {
	dataHome := filepath.Join(s.r.Home, ".local", "share")
	if s.r.LookupEnv != nil {
		if v, ok := s.r.LookupEnv("XDG_DATA_HOME"); ok && v != "" {
			dataHome = v
		}
	}
	return filepath.Join(dataHome, "opencode", "storage", "session")
}

func (s *openCodeStrategy) findLatest(opts Options) *SessionInfo {
	var candidates []SessionInfo
	for _, f := range scan.WalkFiles(s.root(), 1, func(name string) bool {
		return scan.HasExt(name, ".json")
	}) {
		m, ok := scan.ReadJSONFile(f.Path)
		if !ok {
			continue
		}
		dir, ok := scan.StringField(m, "directory", "cwd")
		if !ok || (opts.Cwd != "" && !scan.SamePath(dir, opts.Cwd)) {
			continue
		}
		id, ok := scan.StringField(m, "id")
		if !ok {
			id = scan.Stem(f.Path)
		}
		if id == "" {
			continue
		}
		candidates = append(candidates, SessionInfo{ID: id, ModTime: f.ModTime})
	}
	return rank(candidates, opts)
}

func (s *openCodeStrategy) sessionFileExists(id, _ string) bool {
	for _, f := range scan.WalkFiles(s.root(), 1, func(name string) bool {
		return scan.HasExt(name, ".json")
	}) {
		if scan.Stem(f.Path) == id {
			return true
		}
	}
	return false
}
