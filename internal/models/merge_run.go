package models

import "time"

// MergeRun is one recorded batch merge invocation.
type MergeRun struct {
	ID           string
	SourceBranch string
	DryRun       bool
	AutoPush     bool
	Remote       string
	Cancelled    bool
	TotalCount   int
	SuccessCount int
	SkippedCount int
	FailedCount  int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// MergeLogEntry is the per-branch outcome line of a merge run.
type MergeLogEntry struct {
	ID              string
	RunID           string
	Branch          string
	Status          string
	PushStatus      string
	WorktreeCreated bool
	Error           string
}
