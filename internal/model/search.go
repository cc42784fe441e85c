package model

import "time"

// SearchScopeKind extends ScopeKind with "personal": milestones in any
// project or group the requesting actor can access.
type SearchScopeKind string

const (
	SearchScopeProject  SearchScopeKind = "project"
	SearchScopeGroup    SearchScopeKind = "group"
	SearchScopePersonal SearchScopeKind = "personal"
)

type SearchQuery struct {
	Text     string         // case-insensitive substring over title and description
	State    MilestoneState // empty = any
	From     time.Time      // zero = unbounded
	To       time.Time      // zero = unbounded
	Scope    SearchScopeKind
	ScopeID  int64  // required for project/group, ignored for personal
	SortBy   string // one of SortFields
	SortDesc bool
	Page     int // 1-based
	Size     int
}

// SearchResult is one page plus the total match count for the filters.
type SearchResult struct {
	Items []Milestone `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// SortFields maps accepted sort names to store columns. Anything else is
// rejected, not ignored.
var SortFields = map[string]string{
	"title":      "title",
	"start_date": "start_date",
	"due_date":   "due_date",
	"created_at": "created_at",
}

const (
	DefaultSortField = "due_date"
	MaxPageSize      = 100
)
