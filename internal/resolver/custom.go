package resolver

import (
	"path/filepath"
	"strings"

	"github.com/joescharf/awt/internal/agents"
	"github.com/joescharf/awt/internal/scan"
)

// customStrategy searches a user-defined agent's session directory using the
// field names declared in its registry entry. With no id_field configured the
// file stem is the session tag; with no cwd_field configured every file in
// the directory is a candidate.
type customStrategy struct {
	r     *Resolver
	agent agents.Agent
}

func (s *customStrategy) root() string {
	dir := s.agent.SessionsDir
	if strings.HasPrefix(dir, "~/") {
		dir = filepath.Join(s.r.Home, dir[2:])
	}
	return dir
}

func (s *customStrategy) findLatest(opts Options) *SessionInfo {
	var candidates []SessionInfo
	for _, f := range scan.WalkFiles(s.root(), 2, func(name string) bool {
		return scan.HasExt(name, ".json", ".jsonl")
	}) {
		id, ok := s.sessionID(f.Path, opts.Cwd)
		if !ok {
			continue
		}
		candidates = append(candidates, SessionInfo{ID: id, ModTime: f.ModTime})
	}
	return rank(candidates, opts)
}

func (s *customStrategy) sessionID(path, wantCwd string) (string, bool) {
	var m map[string]any
	if s.agent.IDField != "" || s.agent.CwdField != "" {
		m, _ = scan.ReadJSONFile(path)
	}

	if s.agent.CwdField != "" && wantCwd != "" {
		cwd, ok := scan.StringField(m, s.agent.CwdField)
		if !ok || !scan.SamePath(cwd, wantCwd) {
			return "", false
		}
	}

	if s.agent.IDField != "" {
		if id, ok := scan.StringField(m, s.agent.IDField); ok {
			return id, true
		}
	}
	return scan.Stem(path), true
}

func (s *customStrategy) sessionFileExists(id, worktreePath string) bool {
	for _, f := range scan.WalkFiles(s.root(), 2, func(name string) bool {
		return scan.HasExt(name, ".json", ".jsonl")
	}) {
		if got, ok := s.sessionID(f.Path, worktreePath); ok && got == id {
			return true
		}
	}
	return false
}
