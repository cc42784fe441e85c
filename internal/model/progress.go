package model

import "time"

// ReleaseProgress is one associated release inside a snapshot. Status is
// derived from the milestone state: "shipped" once the milestone is
// closed, "pending" before that.
type ReleaseProgress struct {
	ReleaseID int64  `json:"release_id"`
	Tag       string `json:"tag"`
	Status    string `json:"status"` // pending / shipped
}

// ProgressSnapshot is derived on demand and cached; it is never the
// source of truth and may be served slightly stale.
type ProgressSnapshot struct {
	MilestoneID      int64             `json:"milestone_id"`
	CompletedIssues  int               `json:"completed_issues"`
	TotalIssues      int               `json:"total_issues"`
	ProgressPercent  float64           `json:"progress_percent"`
	WeightedProgress *float64          `json:"weighted_progress,omitempty"`
	DaysElapsed      int               `json:"days_elapsed"`
	TotalDays        int               `json:"total_days"`
	Releases         []ReleaseProgress `json:"releases"`
	ComputedAt       time.Time         `json:"computed_at"`
}
