package release

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/pkg/rbac"
)

type fakeReleaseStore struct {
	releases map[int64]*model.Release
	nextID   int64
}

func newFakeReleaseStore() *fakeReleaseStore {
	return &fakeReleaseStore{releases: map[int64]*model.Release{}, nextID: 1}
}

func (f *fakeReleaseStore) Insert(_ context.Context, rel *model.Release) (*model.Release, error) {
	for _, existing := range f.releases {
		if existing.ProjectID == rel.ProjectID && existing.Tag == rel.Tag {
			return nil, apperr.New(apperr.CodeDuplicateTag, "conflicts with an existing record")
		}
	}
	created := *rel
	created.ID = f.nextID
	f.nextID++
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.releases[created.ID] = &created
	out := created
	return &out, nil
}

func (f *fakeReleaseStore) FindByID(_ context.Context, id int64) (*model.Release, error) {
	rel, ok := f.releases[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeReleaseNotFound, "release %d not found", id)
	}
	out := *rel
	return &out, nil
}

// ClaimMilestone mirrors the store's conditional update: the claim only
// succeeds while the reference is unset.
func (f *fakeReleaseStore) ClaimMilestone(_ context.Context, releaseID, milestoneID int64) (bool, error) {
	rel, ok := f.releases[releaseID]
	if !ok || rel.MilestoneID != nil {
		return false, nil
	}
	id := milestoneID
	rel.MilestoneID = &id
	rel.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeReleaseStore) FindByMilestoneID(_ context.Context, milestoneID int64) ([]model.Release, error) {
	out := []model.Release{}
	for _, rel := range f.releases {
		if rel.MilestoneID != nil && *rel.MilestoneID == milestoneID {
			out = append(out, *rel)
		}
	}
	return out, nil
}

type fakeMilestoneStore struct {
	milestones map[int64]*model.Milestone
}

func (f *fakeMilestoneStore) FindByID(_ context.Context, id int64) (*model.Milestone, error) {
	m, ok := f.milestones[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeMilestoneNotFound, "milestone %d not found", id)
	}
	out := *m
	return &out, nil
}

type fakeInvalidator struct {
	invalidated []int64
}

func (f *fakeInvalidator) InvalidateMilestone(_ context.Context, id int64, _ model.Scope) {
	f.invalidated = append(f.invalidated, id)
}

type fakePublisher struct {
	published []string
}

func (f *fakePublisher) Publish(routingKey string, _ any) error {
	f.published = append(f.published, routingKey)
	return nil
}

var admin = model.Actor{ID: 1, Role: rbac.RoleAdmin}

func newTestService(milestones ...*model.Milestone) (*Service, *fakeReleaseStore, *fakeInvalidator, *fakePublisher) {
	store := newFakeReleaseStore()
	msStore := &fakeMilestoneStore{milestones: map[int64]*model.Milestone{}}
	for _, m := range milestones {
		msStore.milestones[m.ID] = m
	}
	inv := &fakeInvalidator{}
	pub := &fakePublisher{}
	return NewService(store, msStore, inv, pub, zap.NewNop()), store, inv, pub
}

func activeMilestone(id int64) *model.Milestone {
	return &model.Milestone{
		ID:    id,
		Title: "v1",
		State: model.MilestoneActive,
		Scope: model.ProjectScope(1),
	}
}

func TestCreateRelease(t *testing.T) {
	svc, _, _, _ := newTestService()

	created, err := svc.Create(context.Background(), admin, CreateInput{Tag: "v1.0.0", ProjectID: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.MilestoneID != nil {
		t.Error("new release should have no milestone reference")
	}

	// duplicate tag in the same project
	_, err = svc.Create(context.Background(), admin, CreateInput{Tag: "v1.0.0", ProjectID: 1})
	if apperr.CodeOf(err) != apperr.CodeDuplicateTag {
		t.Errorf("got %v, want DUPLICATE_TAG", err)
	}

	// same tag in another project is fine
	if _, err := svc.Create(context.Background(), admin, CreateInput{Tag: "v1.0.0", ProjectID: 2}); err != nil {
		t.Errorf("same tag in another project should succeed: %v", err)
	}
}

func TestAssociate(t *testing.T) {
	svc, _, inv, pub := newTestService(activeMilestone(10))

	rel, err := svc.Create(context.Background(), admin, CreateInput{Tag: "v1.0.0", ProjectID: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	bound, err := svc.Associate(context.Background(), admin, rel.ID, 10)
	if err != nil {
		t.Fatalf("Associate failed: %v", err)
	}
	if bound.MilestoneID == nil || *bound.MilestoneID != 10 {
		t.Errorf("milestone reference = %v, want 10", bound.MilestoneID)
	}
	if len(inv.invalidated) != 1 || inv.invalidated[0] != 10 {
		t.Errorf("associate should invalidate milestone 10, got %v", inv.invalidated)
	}
	if len(pub.published) != 1 || pub.published[0] != "release.milestone_associated" {
		t.Errorf("expected release.milestone_associated event, got %v", pub.published)
	}
}

func TestAssociateAlreadyAssociated(t *testing.T) {
	svc, _, _, _ := newTestService(activeMilestone(10), activeMilestone(11))

	rel, err := svc.Create(context.Background(), admin, CreateInput{Tag: "v1.0.0", ProjectID: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Associate(context.Background(), admin, rel.ID, 10); err != nil {
		t.Fatalf("first Associate failed: %v", err)
	}

	// rebinding to a different milestone fails
	_, err = svc.Associate(context.Background(), admin, rel.ID, 11)
	if apperr.CodeOf(err) != apperr.CodeAlreadyAssociated {
		t.Errorf("different milestone: got %v, want ALREADY_ASSOCIATED", err)
	}

	// so does rebinding to the same one
	_, err = svc.Associate(context.Background(), admin, rel.ID, 10)
	if apperr.CodeOf(err) != apperr.CodeAlreadyAssociated {
		t.Errorf("same milestone: got %v, want ALREADY_ASSOCIATED", err)
	}
}

func TestAssociateNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(activeMilestone(10))

	_, err := svc.Associate(context.Background(), admin, 999, 10)
	if apperr.CodeOf(err) != apperr.CodeReleaseNotFound {
		t.Errorf("unknown release: got %v, want RELEASE_NOT_FOUND", err)
	}

	rel, err := svc.Create(context.Background(), admin, CreateInput{Tag: "v1.0.0", ProjectID: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err = svc.Associate(context.Background(), admin, rel.ID, 999)
	if apperr.CodeOf(err) != apperr.CodeMilestoneNotFound {
		t.Errorf("unknown milestone: got %v, want MILESTONE_NOT_FOUND", err)
	}
}

func TestListForMilestone(t *testing.T) {
	svc, _, _, _ := newTestService(activeMilestone(10))

	rel, err := svc.Create(context.Background(), admin, CreateInput{Tag: "v1.0.0", ProjectID: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Associate(context.Background(), admin, rel.ID, 10); err != nil {
		t.Fatalf("Associate failed: %v", err)
	}

	releases, err := svc.ListForMilestone(context.Background(), admin, 10)
	if err != nil {
		t.Fatalf("ListForMilestone failed: %v", err)
	}
	if len(releases) != 1 || releases[0].Tag != "v1.0.0" {
		t.Errorf("releases = %v, want one with tag v1.0.0", releases)
	}

	_, err = svc.ListForMilestone(context.Background(), admin, 999)
	if apperr.CodeOf(err) != apperr.CodeMilestoneNotFound {
		t.Errorf("got %v, want MILESTONE_NOT_FOUND", err)
	}
}
