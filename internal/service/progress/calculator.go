// Package progress derives completion metrics for a milestone from its
// issues and associated releases. Snapshots are cached, never persisted
// as source of truth, and computing one mutates nothing.
package progress

import (
	"context"
	"time"

	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/pkg/rbac"
)

type MilestoneStore interface {
	FindByID(ctx context.Context, id int64) (*model.Milestone, error)
}

type ReleaseStore interface {
	FindByMilestoneID(ctx context.Context, milestoneID int64) ([]model.Release, error)
}

// IssueSource is the external issue tracker boundary.
type IssueSource interface {
	IssuesForMilestone(ctx context.Context, milestoneID int64) ([]model.Issue, error)
}

type SnapshotCache interface {
	GetProgress(ctx context.Context, milestoneID int64) (*model.ProgressSnapshot, bool)
	PutProgress(ctx context.Context, snap *model.ProgressSnapshot)
}

type Calculator struct {
	milestones MilestoneStore
	releases   ReleaseStore
	issues     IssueSource
	cache      SnapshotCache
	logger     *zap.Logger
	now        func() time.Time
}

func NewCalculator(milestones MilestoneStore, releases ReleaseStore, issues IssueSource, cache SnapshotCache, logger *zap.Logger) *Calculator {
	return &Calculator{
		milestones: milestones,
		releases:   releases,
		issues:     issues,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Compute returns the snapshot for a milestone, serving a cached one
// when present. On a cache miss the issue source must answer; its
// outage surfaces as DEPENDENCY_FAILURE rather than silently serving
// stale numbers.
func (c *Calculator) Compute(ctx context.Context, actor model.Actor, milestoneID int64) (*model.ProgressSnapshot, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionReadMilestone); err != nil {
		return nil, apperr.Wrap(apperr.CodeForbidden, "not allowed to read milestones", err)
	}

	ms, err := c.milestones.FindByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	if snap, ok := c.cache.GetProgress(ctx, milestoneID); ok {
		return snap, nil
	}

	issues, err := c.issues.IssuesForMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	releases, err := c.releases.FindByMilestoneID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	snap := c.build(ms, issues, releases)
	c.cache.PutProgress(ctx, snap)
	return snap, nil
}

func (c *Calculator) build(ms *model.Milestone, issues []model.Issue, releases []model.Release) *model.ProgressSnapshot {
	completed := 0
	weightTotal := 0
	weightDone := 0
	weighted := false
	for _, issue := range issues {
		if issue.Completed {
			completed++
		}
		if issue.Weight != nil {
			weighted = true
			weightTotal += *issue.Weight
			if issue.Completed {
				weightDone += *issue.Weight
			}
		}
	}

	snap := &model.ProgressSnapshot{
		MilestoneID:     ms.ID,
		CompletedIssues: completed,
		TotalIssues:     len(issues),
		Releases:        releaseProgress(ms, releases),
		ComputedAt:      c.now(),
	}

	// 0, not NaN, when there is nothing to count
	if len(issues) > 0 {
		snap.ProgressPercent = float64(completed) / float64(len(issues)) * 100
	}
	if weighted && weightTotal > 0 {
		wp := float64(weightDone) / float64(weightTotal) * 100
		snap.WeightedProgress = &wp
	}

	total := wholeDays(ms.StartDate, ms.DueDate)
	if total < 0 {
		total = 0
	}
	snap.TotalDays = total
	snap.DaysElapsed = clamp(wholeDays(ms.StartDate, c.now()), 0, snap.TotalDays)

	return snap
}

func releaseProgress(ms *model.Milestone, releases []model.Release) []model.ReleaseProgress {
	status := "pending"
	if ms.State == model.MilestoneClosed {
		status = "shipped"
	}
	out := make([]model.ReleaseProgress, 0, len(releases))
	for _, rel := range releases {
		out = append(out, model.ReleaseProgress{
			ReleaseID: rel.ID,
			Tag:       rel.Tag,
			Status:    status,
		})
	}
	return out
}

func wholeDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
