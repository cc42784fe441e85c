package model

import "time"

type Release struct {
	ID          int64     `json:"id"`
	Tag         string    `json:"tag"`
	Description string    `json:"description,omitempty"`
	ProjectID   int64     `json:"project_id"`
	MilestoneID *int64    `json:"milestone_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Issue is the slice of an issue the progress math needs. Issues live in
// an external issue store; only completion and optional weight cross the
// boundary.
type Issue struct {
	Completed bool
	Weight    *int
}
