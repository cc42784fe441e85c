package milestone

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/pkg/rbac"
)

// fakeStore mimics the store guards: the title uniqueness check inside
// Insert stands in for the unique index, CloseActive for the
// conditional update.
type fakeStore struct {
	milestones map[int64]*model.Milestone
	nextID     int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{milestones: map[int64]*model.Milestone{}, nextID: 1}
}

func (f *fakeStore) Insert(_ context.Context, m *model.Milestone) (*model.Milestone, error) {
	for _, existing := range f.milestones {
		if existing.Scope == m.Scope && strings.EqualFold(existing.Title, m.Title) {
			return nil, apperr.New(apperr.CodeDuplicateTitle, "conflicts with an existing record")
		}
	}
	created := *m
	created.ID = f.nextID
	f.nextID++
	created.State = model.MilestoneActive
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.milestones[created.ID] = &created
	out := created
	return &out, nil
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*model.Milestone, error) {
	m, ok := f.milestones[id]
	if !ok {
		return nil, apperr.Newf(apperr.CodeMilestoneNotFound, "milestone %d not found", id)
	}
	out := *m
	return &out, nil
}

func (f *fakeStore) TitleExists(_ context.Context, scope model.Scope, title string) (bool, error) {
	for _, existing := range f.milestones {
		if existing.Scope == scope && strings.EqualFold(existing.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CloseActive(_ context.Context, id int64) (*model.Milestone, error) {
	m, ok := f.milestones[id]
	if !ok || m.State != model.MilestoneActive {
		return nil, nil
	}
	now := time.Now()
	m.State = model.MilestoneClosed
	m.ClosedAt = &now
	m.UpdatedAt = now
	out := *m
	return &out, nil
}

type fakeCache struct {
	invalidated []int64
	bumped      []model.Scope
}

func (f *fakeCache) InvalidateMilestone(_ context.Context, id int64, scope model.Scope) {
	f.invalidated = append(f.invalidated, id)
	f.bumped = append(f.bumped, scope)
}

func (f *fakeCache) BumpScope(_ context.Context, scope model.Scope) {
	f.bumped = append(f.bumped, scope)
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) Publish(routingKey string, _ any) error {
	f.published = append(f.published, routingKey)
	return f.err
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestService() (*Service, *fakeStore, *fakeCache, *fakePublisher) {
	store := newFakeStore()
	cache := &fakeCache{}
	pub := &fakePublisher{}
	return NewService(store, cache, pub, zap.NewNop()), store, cache, pub
}

var admin = model.Actor{ID: 1, Role: rbac.RoleAdmin}

func validInput() CreateInput {
	return CreateInput{
		Title:     "v1",
		StartDate: date("2024-01-01"),
		DueDate:   date("2024-01-31"),
		Scope:     model.ProjectScope(1),
	}
}

func TestCreateMilestone(t *testing.T) {
	svc, _, cache, pub := newTestService()

	created, err := svc.Create(context.Background(), admin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.State != model.MilestoneActive {
		t.Errorf("new milestone state = %s, want active", created.State)
	}
	if created.ClosedAt != nil {
		t.Error("new milestone should have no closed_at")
	}
	if created.ID == 0 {
		t.Error("new milestone should have an id")
	}
	if len(cache.bumped) != 1 {
		t.Errorf("create should bump the scope once, got %d", len(cache.bumped))
	}
	if len(pub.published) != 1 || pub.published[0] != "milestone.created" {
		t.Errorf("expected milestone.created event, got %v", pub.published)
	}
}

func TestCreateMilestoneInvalidDateRange(t *testing.T) {
	svc, _, _, _ := newTestService()

	in := validInput()
	in.StartDate = date("2024-02-01")
	in.DueDate = date("2024-01-01")
	_, err := svc.Create(context.Background(), admin, in)
	if apperr.CodeOf(err) != apperr.CodeInvalidDateRange {
		t.Errorf("got %v, want INVALID_DATE_RANGE", err)
	}

	// start == due is a valid one-day milestone
	in.StartDate = date("2024-01-15")
	in.DueDate = date("2024-01-15")
	if _, err := svc.Create(context.Background(), admin, in); err != nil {
		t.Errorf("equal dates should succeed: %v", err)
	}
}

func TestCreateMilestoneDuplicateTitle(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := svc.Create(context.Background(), admin, validInput()); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := svc.Create(context.Background(), admin, validInput())
	if apperr.CodeOf(err) != apperr.CodeDuplicateTitle {
		t.Errorf("got %v, want DUPLICATE_TITLE", err)
	}

	// same title in a different scope is fine
	other := validInput()
	other.Scope = model.ProjectScope(2)
	if _, err := svc.Create(context.Background(), admin, other); err != nil {
		t.Errorf("same title in another scope should succeed: %v", err)
	}

	// same title in a group scope with the same id is a different scope
	group := validInput()
	group.Scope = model.GroupScope(1)
	if _, err := svc.Create(context.Background(), admin, group); err != nil {
		t.Errorf("same title in a group scope should succeed: %v", err)
	}
}

func TestCreateMilestoneForbidden(t *testing.T) {
	svc, _, _, _ := newTestService()

	reporter := model.Actor{ID: 2, Role: rbac.RoleReporter}
	_, err := svc.Create(context.Background(), reporter, validInput())
	if apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Errorf("got %v, want FORBIDDEN", err)
	}
}

func TestCloseMilestone(t *testing.T) {
	svc, _, cache, pub := newTestService()

	created, err := svc.Create(context.Background(), admin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	closed, err := svc.Close(context.Background(), admin, created.ID)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if closed.State != model.MilestoneClosed {
		t.Errorf("state = %s, want closed", closed.State)
	}
	if closed.ClosedAt == nil {
		t.Fatal("closed milestone must have closed_at")
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != created.ID {
		t.Errorf("close should invalidate the milestone, got %v", cache.invalidated)
	}
	if pub.published[len(pub.published)-1] != "milestone.closed" {
		t.Errorf("expected milestone.closed event, got %v", pub.published)
	}
}

func TestCloseMilestoneTwice(t *testing.T) {
	svc, store, _, _ := newTestService()

	created, err := svc.Create(context.Background(), admin, validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	closed, err := svc.Close(context.Background(), admin, created.ID)
	if err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	firstClosedAt := *closed.ClosedAt

	_, err = svc.Close(context.Background(), admin, created.ID)
	if apperr.CodeOf(err) != apperr.CodeAlreadyClosed {
		t.Errorf("second close: got %v, want ALREADY_CLOSED", err)
	}

	// state and closed_at must be untouched by the rejected call
	after, err := store.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if after.State != model.MilestoneClosed {
		t.Errorf("state = %s, want closed", after.State)
	}
	if !after.ClosedAt.Equal(firstClosedAt) {
		t.Errorf("closed_at changed: %v != %v", after.ClosedAt, firstClosedAt)
	}
}

func TestCloseMilestoneNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Close(context.Background(), admin, 999)
	if apperr.CodeOf(err) != apperr.CodeMilestoneNotFound {
		t.Errorf("got %v, want MILESTONE_NOT_FOUND", err)
	}
}

func TestCreatePublishFailureDoesNotFailMutation(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: context.DeadlineExceeded}
	svc := NewService(store, &fakeCache{}, pub, zap.NewNop())

	if _, err := svc.Create(context.Background(), admin, validInput()); err != nil {
		t.Errorf("publish failure must not fail the mutation: %v", err)
	}
}
