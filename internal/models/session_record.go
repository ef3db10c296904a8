package models

import "time"

// SessionRecord is a resolved coding-agent session persisted to history so it
// can be resumed later. The resolver produces the SessionID; the caller
// supplies the binding context (tool, branch, worktree).
type SessionRecord struct {
	ID           string
	SessionID    string
	Tool         string
	Branch       string
	WorktreePath string
	RecordedAt   time.Time
}
