package model

import (
	"strconv"
	"time"
)

type MilestoneState string

const (
	MilestoneActive MilestoneState = "active"
	MilestoneClosed MilestoneState = "closed"
)

type ScopeKind string

const (
	ScopeProject ScopeKind = "project"
	ScopeGroup   ScopeKind = "group"
)

// Scope is the owning context of a milestone: a project or a group,
// never both. Construct via ProjectScope/GroupScope so an empty or
// double-owned scope cannot be built.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   int64     `json:"id"`
}

func ProjectScope(id int64) Scope {
	return Scope{Kind: ScopeProject, ID: id}
}

func GroupScope(id int64) Scope {
	return Scope{Kind: ScopeGroup, ID: id}
}

func (s Scope) IsZero() bool {
	return s.Kind == "" && s.ID == 0
}

// Key renders the scope as "project:1" / "group:7", used for cache keys
// and log fields.
func (s Scope) Key() string {
	return string(s.Kind) + ":" + strconv.FormatInt(s.ID, 10)
}

type Milestone struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	StartDate   time.Time      `json:"start_date"`
	DueDate     time.Time      `json:"due_date"`
	State       MilestoneState `json:"state"` // active / closed
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	Scope       Scope          `json:"scope"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Actor is the authenticated caller, extracted from the gateway token.
type Actor struct {
	ID   int64
	Role string
}
