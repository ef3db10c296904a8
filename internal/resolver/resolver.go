// Package resolver locates the session identifier a coding-agent process
// wrote to its own on-disk store. Each supported tool has its own storage
// layout; the per-tool strategies share one contract: given search options,
// return the single most plausible session, or nothing.
//
// The whole package is best-effort by design. Missing directories, unreadable
// files, and malformed JSON are all folded into "no candidate from this
// source" — a search never fails hard, it only comes back empty.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/joescharf/awt/internal/agents"
	"github.com/joescharf/awt/internal/git"
	"github.com/joescharf/awt/internal/logger"
)

// Tool identifies a coding-agent tool with a known session store layout.
type Tool string

const (
	ToolClaude   Tool = "claude"
	ToolCodex    Tool = "codex"
	ToolGemini   Tool = "gemini"
	ToolOpenCode Tool = "opencode"
	ToolQwen     Tool = "qwen"
)

// DefaultWindow bounds how far a candidate may sit from PreferClosestTo
// before closest-first ranking is abandoned for newest-first. The value is a
// tunable heuristic, not an invariant.
const DefaultWindow = 30 * time.Minute

// SessionInfo is a located session: its identifier and the modification time
// of the file it was found in.
type SessionInfo struct {
	ID      string
	ModTime time.Time
}

// Options are the query parameters for a session search.
type Options struct {
	// Cwd is the working directory whose session is sought.
	Cwd string

	// Branch, when set, is resolved to the worktrees currently tracking it;
	// each worktree path is searched and the results are unioned. Worktrees
	// may be supplied directly to skip the git lookup.
	Branch    string
	Worktrees []git.WorktreeInfo

	// Since/Until are inclusive bounds on file modification time.
	Since *time.Time
	Until *time.Time

	// PreferClosestTo ranks candidates within Window of this timestamp by
	// closeness instead of recency.
	PreferClosestTo *time.Time
	Window          time.Duration
}

// WaitOptions configures WaitForSessionID.
type WaitOptions struct {
	Timeout      time.Duration // default 2m
	PollInterval time.Duration // default 2s
	Options
}

// strategy is the per-tool search contract. Implementations never return
// errors; any failure is an empty result.
type strategy interface {
	findLatest(opts Options) *SessionInfo
	sessionFileExists(id, worktreePath string) bool
}

// Resolver searches the per-tool session stores.
type Resolver struct {
	Home      string
	Git       git.Client
	Registry  *agents.Registry
	LookupEnv func(string) (string, bool)

	log *slog.Logger
}

// New returns a Resolver rooted at the user's home directory. registry may be
// nil if custom agents are not needed.
func New(gitClient git.Client, registry *agents.Registry) *Resolver {
	home, _ := os.UserHomeDir()
	return &Resolver{
		Home:      home,
		Git:       gitClient,
		Registry:  registry,
		LookupEnv: os.LookupEnv,
		log:       logger.WithComponent("resolver"),
	}
}

func (r *Resolver) logger() *slog.Logger {
	if r.log == nil {
		r.log = logger.WithComponent("resolver")
	}
	return r.log
}

func (r *Resolver) strategyFor(tool Tool) (strategy, error) {
	switch tool {
	case ToolClaude:
		return &claudeStrategy{r: r}, nil
	case ToolCodex:
		return &codexStrategy{r: r}, nil
	case ToolGemini:
		return &geminiStrategy{r: r}, nil
	case ToolOpenCode:
		return &openCodeStrategy{r: r}, nil
	case ToolQwen:
		return &qwenStrategy{r: r}, nil
	}
	if r.Registry != nil {
		if agent, ok := r.Registry.Get(string(tool)); ok && agent.Custom {
			return &customStrategy{r: r, agent: agent}, nil
		}
	}
	return nil, fmt.Errorf("unknown tool %q", tool)
}

// FindLatestSession returns the most plausible session for tool, or nil if
// none was located. The only error returned is programmer-error-class misuse
// (unknown tool); I/O problems never surface here.
func (r *Resolver) FindLatestSession(tool Tool, opts Options) (*SessionInfo, error) {
	s, err := r.strategyFor(tool)
	if err != nil {
		return nil, err
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}

	if opts.Branch == "" {
		return s.findLatest(opts), nil
	}

	// Branch-scoped search: resolve the branch to its worktree paths and
	// union results across them. No matching worktree means no session —
	// never fall back to an unrelated cwd.
	paths := r.worktreePathsForBranch(opts)
	if len(paths) == 0 {
		return nil, nil
	}

	var candidates []SessionInfo
	for _, path := range paths {
		scoped := opts
		scoped.Branch = ""
		scoped.Worktrees = nil
		scoped.Cwd = path
		if info := s.findLatest(scoped); info != nil {
			candidates = append(candidates, *info)
		}
	}
	return rank(candidates, opts), nil
}

// FindLatestSessionID is a convenience wrapper returning only the id.
func (r *Resolver) FindLatestSessionID(tool Tool, opts Options) (string, error) {
	info, err := r.FindLatestSession(tool, opts)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", nil
	}
	return info.ID, nil
}

// WaitForSessionID polls FindLatestSession until a session appears, the
// timeout elapses, or ctx is cancelled. An elapsed timeout returns "" without
// error — "not found" is an ordinary outcome.
func (r *Resolver) WaitForSessionID(ctx context.Context, tool Tool, cwd string, opts WaitOptions) (string, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	opts.Options.Cwd = cwd

	log := r.logger()
	deadline := time.Now().Add(opts.Timeout)

	for {
		id, err := r.FindLatestSessionID(tool, opts.Options)
		if err != nil {
			return "", err
		}
		if id != "" {
			log.Debug("session located", "tool", tool, "sessionID", id)
			return id, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Debug("session wait timed out", "tool", tool, "cwd", cwd)
			return "", nil
		}
		wait := opts.PollInterval
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}

// SessionFileExists reports whether tool still has a session file for id
// under worktreePath. Used to validate a persisted id before a resume.
func (r *Resolver) SessionFileExists(tool Tool, id, worktreePath string) bool {
	if id == "" {
		return false
	}
	s, err := r.strategyFor(tool)
	if err != nil {
		return false
	}
	return s.sessionFileExists(id, worktreePath)
}

// worktreePathsForBranch resolves opts.Branch to worktree paths, consulting
// git only when the caller did not supply a worktree list.
func (r *Resolver) worktreePathsForBranch(opts Options) []string {
	worktrees := opts.Worktrees
	if len(worktrees) == 0 && r.Git != nil {
		repoContext := opts.Cwd
		if repoContext == "" {
			repoContext = "."
		}
		listed, err := r.Git.WorktreeList(repoContext)
		if err != nil {
			r.logger().Debug("worktree list failed", "error", err)
			return nil
		}
		worktrees = listed
	}

	var paths []string
	for _, wt := range worktrees {
		if wt.Branch == opts.Branch {
			paths = append(paths, wt.Path)
		}
	}
	return paths
}

// rank orders candidates and returns the winner, applying the time-window
// heuristic: closest-to-timestamp ordering only wins when at least one
// candidate actually falls within the window; otherwise newest-first, so a
// stale session is never picked just for being numerically nearest.
func rank(candidates []SessionInfo, opts Options) *SessionInfo {
	filtered := candidates[:0:0]
	for _, c := range candidates {
		if opts.Since != nil && c.ModTime.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && c.ModTime.After(*opts.Until) {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		return nil
	}

	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}

	useClosest := false
	if opts.PreferClosestTo != nil {
		for _, c := range filtered {
			if absDuration(c.ModTime.Sub(*opts.PreferClosestTo)) <= window {
				useClosest = true
				break
			}
		}
	}

	if useClosest {
		target := *opts.PreferClosestTo
		sort.SliceStable(filtered, func(i, j int) bool {
			di := absDuration(filtered[i].ModTime.Sub(target))
			dj := absDuration(filtered[j].ModTime.Sub(target))
			if di != dj {
				return di < dj
			}
			return filtered[i].ModTime.After(filtered[j].ModTime)
		})
	} else {
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].ModTime.After(filtered[j].ModTime)
		})
	}

	best := filtered[0]
	return &best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
