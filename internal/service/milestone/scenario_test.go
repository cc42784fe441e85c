package milestone

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/internal/service/progress"
	"milestonesvc/internal/service/release"
)

type scenarioReleases struct {
	releases map[int64]*model.Release
	nextID   int64
}

func (f *scenarioReleases) Insert(_ context.Context, rel *model.Release) (*model.Release, error) {
	created := *rel
	created.ID = f.nextID
	f.nextID++
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.releases[created.ID] = &created
	out := created
	return &out, nil
}

func (f *scenarioReleases) FindByID(_ context.Context, id int64) (*model.Release, error) {
	rel, ok := f.releases[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeReleaseNotFound, "release %d not found", id)
	}
	out := *rel
	return &out, nil
}

func (f *scenarioReleases) ClaimMilestone(_ context.Context, releaseID, milestoneID int64) (bool, error) {
	rel, ok := f.releases[releaseID]
	if !ok || rel.MilestoneID != nil {
		return false, nil
	}
	id := milestoneID
	rel.MilestoneID = &id
	rel.UpdatedAt = time.Now()
	return true, nil
}

func (f *scenarioReleases) FindByMilestoneID(_ context.Context, milestoneID int64) ([]model.Release, error) {
	out := []model.Release{}
	for _, rel := range f.releases {
		if rel.MilestoneID != nil && *rel.MilestoneID == milestoneID {
			out = append(out, *rel)
		}
	}
	return out, nil
}

type scenarioIssues struct{}

func (scenarioIssues) IssuesForMilestone(_ context.Context, _ int64) ([]model.Issue, error) {
	return []model.Issue{}, nil
}

type scenarioSnapshots struct {
	snap *model.ProgressSnapshot
}

func (f *scenarioSnapshots) GetProgress(_ context.Context, _ int64) (*model.ProgressSnapshot, bool) {
	if f.snap == nil {
		return nil, false
	}
	return f.snap, true
}

func (f *scenarioSnapshots) PutProgress(_ context.Context, snap *model.ProgressSnapshot) {
	f.snap = snap
}

// TestMilestoneReleaseLifecycle walks the full happy path: create a
// milestone, cut a release, bind it, close the milestone, verify the
// close is terminal, and read progress with the release listed.
func TestMilestoneReleaseLifecycle(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	milestones := newFakeStore()
	releases := &scenarioReleases{releases: map[int64]*model.Release{}, nextID: 1}
	cache := &fakeCache{}
	pub := &fakePublisher{}

	milestoneSvc := NewService(milestones, cache, pub, logger)
	releaseSvc := release.NewService(releases, milestones, cache, pub, logger)
	calculator := progress.NewCalculator(milestones, releases, scenarioIssues{}, &scenarioSnapshots{}, logger)

	// create milestone v1 for project 1
	ms, err := milestoneSvc.Create(ctx, admin, CreateInput{
		Title:     "v1",
		StartDate: date("2024-01-01"),
		DueDate:   date("2024-01-31"),
		Scope:     model.ProjectScope(1),
	})
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}
	if ms.State != model.MilestoneActive {
		t.Fatalf("state = %s, want active", ms.State)
	}

	// cut and bind release v1.0.0
	rel, err := releaseSvc.Create(ctx, admin, release.CreateInput{Tag: "v1.0.0", ProjectID: 1})
	if err != nil {
		t.Fatalf("create release: %v", err)
	}
	if _, err := releaseSvc.Associate(ctx, admin, rel.ID, ms.ID); err != nil {
		t.Fatalf("associate: %v", err)
	}

	// close once, then verify the transition is terminal
	closed, err := milestoneSvc.Close(ctx, admin, ms.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.State != model.MilestoneClosed {
		t.Fatalf("state = %s, want closed", closed.State)
	}
	if _, err := milestoneSvc.Close(ctx, admin, ms.ID); apperr.CodeOf(err) != apperr.CodeAlreadyClosed {
		t.Fatalf("re-close: got %v, want ALREADY_CLOSED", err)
	}

	// progress lists the associated release
	snap, err := calculator.Compute(ctx, admin, ms.ID)
	if err != nil {
		t.Fatalf("compute progress: %v", err)
	}
	if snap.ProgressPercent != 0 {
		t.Errorf("progress with no issues = %v, want 0", snap.ProgressPercent)
	}
	if len(snap.Releases) != 1 || snap.Releases[0].Tag != "v1.0.0" {
		t.Fatalf("snapshot releases = %v, want v1.0.0", snap.Releases)
	}
	if snap.Releases[0].Status != "shipped" {
		t.Errorf("release status after close = %s, want shipped", snap.Releases[0].Status)
	}
}
