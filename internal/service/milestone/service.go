// Package milestone orchestrates milestone creation and the one state
// transition a milestone ever makes: active to closed.
package milestone

import (
	"context"
	"time"

	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/internal/mq"
	"milestonesvc/pkg/metrics"
	"milestonesvc/pkg/rbac"
)

type Store interface {
	Insert(ctx context.Context, m *model.Milestone) (*model.Milestone, error)
	FindByID(ctx context.Context, id int64) (*model.Milestone, error)
	TitleExists(ctx context.Context, scope model.Scope, title string) (bool, error)
	CloseActive(ctx context.Context, id int64) (*model.Milestone, error)
}

type Invalidator interface {
	InvalidateMilestone(ctx context.Context, milestoneID int64, scope model.Scope)
	BumpScope(ctx context.Context, scope model.Scope)
}

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	store     Store
	cache     Invalidator
	publisher EventPublisher
	logger    *zap.Logger
}

func NewService(store Store, cache Invalidator, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

type CreateInput struct {
	Title       string
	Description string
	StartDate   time.Time
	DueDate     time.Time
	Scope       model.Scope
}

// Create validates the input, pre-checks the title for a friendly
// error, and inserts. The store's unique index remains the guard that
// closes the pre-check race: a concurrent duplicate surfaces as
// DUPLICATE_TITLE from the insert itself.
func (s *Service) Create(ctx context.Context, actor model.Actor, in CreateInput) (*model.Milestone, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionCreateMilestone); err != nil {
		return nil, apperr.Wrap(apperr.CodeForbidden, "not allowed to create milestones", err)
	}
	if err := model.ValidateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := model.ValidateDateRange(in.StartDate, in.DueDate); err != nil {
		return nil, err
	}
	if err := model.ValidateScope(in.Scope); err != nil {
		return nil, err
	}

	taken, err := s.store.TitleExists(ctx, in.Scope, in.Title)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Newf(apperr.CodeDuplicateTitle, "a milestone titled %q already exists in this scope", in.Title)
	}

	created, err := s.store.Insert(ctx, &model.Milestone{
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Scope:       in.Scope,
	})
	if err != nil {
		metrics.IncrementMutation("create", "error")
		return nil, err
	}
	metrics.IncrementMutation("create", "ok")

	s.cache.BumpScope(ctx, created.Scope)
	s.publish(mq.RoutingMilestoneCreated, mq.MilestoneCreatedEvent{
		MilestoneID: created.ID,
		Title:       created.Title,
		ScopeKind:   string(created.Scope.Kind),
		ScopeID:     created.Scope.ID,
		ActorID:     actor.ID,
		CreatedAt:   created.CreatedAt,
	})

	return created, nil
}

// Close is deliberately not idempotent: the transition happens once, a
// second call is a conflict so callers treat close as a one-time action.
func (s *Service) Close(ctx context.Context, actor model.Actor, id int64) (*model.Milestone, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionCloseMilestone); err != nil {
		return nil, apperr.Wrap(apperr.CodeForbidden, "not allowed to close milestones", err)
	}

	closed, err := s.store.CloseActive(ctx, id)
	if err != nil {
		metrics.IncrementMutation("close", "error")
		return nil, err
	}
	if closed == nil {
		// No active row matched: either the milestone does not exist or
		// it is already closed. Reselect to tell the two apart.
		existing, err := s.store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Rejected close of already-closed milestone",
			zap.Int64("id", existing.ID),
		)
		return nil, apperr.Newf(apperr.CodeAlreadyClosed, "milestone %d is already closed", id)
	}
	metrics.IncrementMutation("close", "ok")

	s.cache.InvalidateMilestone(ctx, closed.ID, closed.Scope)
	s.publish(mq.RoutingMilestoneClosed, mq.MilestoneClosedEvent{
		MilestoneID: closed.ID,
		Title:       closed.Title,
		ScopeKind:   string(closed.Scope.Kind),
		ScopeID:     closed.Scope.ID,
		ActorID:     actor.ID,
		ClosedAt:    *closed.ClosedAt,
	})

	return closed, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id int64) (*model.Milestone, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionReadMilestone); err != nil {
		return nil, apperr.Wrap(apperr.CodeForbidden, "not allowed to read milestones", err)
	}
	return s.store.FindByID(ctx, id)
}

func (s *Service) publish(routingKey string, payload any) {
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		// fire-and-forget: notification loss never fails the mutation
		s.logger.Warn("Event publish failed", zap.String("routing_key", routingKey), zap.Error(err))
		metrics.IncrementNotificationPublish(routingKey, "error")
		return
	}
	metrics.IncrementNotificationPublish(routingKey, "ok")
}
