package resolver

import (
	"path/filepath"

	"github.com/joescharf/awt/internal/scan"
)

// qwenStrategy searches the Qwen Code checkpoint store: ~/.qwen/tmp/<hash>/
// first, then the nested checkpoints/ directory. Checkpoint files carry no
// reliable structured session id, so when none is found inside a file its
// name minus the extension becomes the session tag. That fallback is
// deliberate, not a parse failure.
type qwenStrategy struct {
	r *Resolver
}

func (s *qwenStrategy) root() string {
	return filepath.Join(s.r.Home, ".qwen", "tmp")
}

// searchDirs lists the per-project dirs in priority order: the hash dir
// itself, then its checkpoints/ subdirectory.
func (s *qwenStrategy) searchDirs() []string {
	var dirs []string
	for _, d := range scan.WalkDirs(s.root()) {
		dirs = append(dirs, d, filepath.Join(d, "checkpoints"))
	}
	return dirs
}

func (s *qwenStrategy) findLatest(opts Options) *SessionInfo {
	for _, dir := range s.searchDirs() {
		var candidates []SessionInfo
		for _, f := range scan.WalkFiles(dir, 0, func(name string) bool {
			return scan.HasExt(name, ".json", ".jsonl")
		}) {
			candidates = append(candidates, SessionInfo{
				ID:      qwenSessionTag(f.Path),
				ModTime: f.ModTime,
			})
		}
		if best := rank(candidates, opts); best != nil {
			return best
		}
	}
	return nil
}

// qwenSessionTag extracts a session id from the checkpoint content, falling
// back to the filename stem.
func qwenSessionTag(path string) string {
	if m, ok := scan.ReadJSONFile(path); ok {
		if id, ok := scan.StringField(m, "sessionId", "session_id", "id"); ok {
			return id
		}
	}
	return scan.Stem(path)
}

func (s *qwenStrategy) sessionFileExists(id, _ string) bool {
	for _, dir := range s.searchDirs() {
		for _, f := range scan.WalkFiles(dir, 0, func(name string) bool {
			return scan.HasExt(name, ".json", ".jsonl")
		}) {
			if qwenSessionTag(f.Path) == id {
				return true
			}
		}
	}
	return false
}
