package mq

import "time"

// Routing keys for notification events. Delivery is fire-and-forget:
// a failed publish is logged and counted, never surfaced to the client.
const (
	RoutingMilestoneCreated  = "milestone.created"
	RoutingMilestoneClosed   = "milestone.closed"
	RoutingReleaseAssociated = "release.milestone_associated"
)

type MilestoneCreatedEvent struct {
	MilestoneID int64     `json:"milestone_id"`
	Title       string    `json:"title"`
	ScopeKind   string    `json:"scope_kind"`
	ScopeID     int64     `json:"scope_id"`
	ActorID     int64     `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type MilestoneClosedEvent struct {
	MilestoneID int64     `json:"milestone_id"`
	Title       string    `json:"title"`
	ScopeKind   string    `json:"scope_kind"`
	ScopeID     int64     `json:"scope_id"`
	ActorID     int64     `json:"actor_id"`
	ClosedAt    time.Time `json:"closed_at"`
}

type ReleaseAssociatedEvent struct {
	ReleaseID   int64     `json:"release_id"`
	Tag         string    `json:"tag"`
	MilestoneID int64     `json:"milestone_id"`
	ActorID     int64     `json:"actor_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}
