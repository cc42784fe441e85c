// Package release handles release creation and the one-way binding of a
// release to a milestone.
package release

import (
	"context"

	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/internal/mq"
	"milestonesvc/pkg/metrics"
	"milestonesvc/pkg/rbac"
)

type Store interface {
	Insert(ctx context.Context, rel *model.Release) (*model.Release, error)
	FindByID(ctx context.Context, id int64) (*model.Release, error)
	ClaimMilestone(ctx context.Context, releaseID, milestoneID int64) (bool, error)
	FindByMilestoneID(ctx context.Context, milestoneID int64) ([]model.Release, error)
}

type MilestoneStore interface {
	FindByID(ctx context.Context, id int64) (*model.Milestone, error)
}

type Invalidator interface {
	InvalidateMilestone(ctx context.Context, milestoneID int64, scope model.Scope)
}

type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type Service struct {
	store      Store
	milestones MilestoneStore
	cache      Invalidator
	publisher  EventPublisher
	logger     *zap.Logger
}

func NewService(store Store, milestones MilestoneStore, cache Invalidator, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		milestones: milestones,
		cache:      cache,
		publisher:  publisher,
		logger:     logger,
	}
}

type CreateInput struct {
	Tag         string
	Description string
	ProjectID   int64
}

// Create makes a release with no milestone binding; the (project, tag)
// unique index guards tag reuse.
func (s *Service) Create(ctx context.Context, actor model.Actor, in CreateInput) (*model.Release, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionCreateRelease); err != nil {
		return nil, apperr.Wrap(apperr.CodeForbidden, "not allowed to create releases", err)
	}
	if err := model.ValidateTag(in.Tag); err != nil {
		return nil, err
	}
	if in.ProjectID <= 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "project_id must be positive")
	}

	created, err := s.store.Insert(ctx, &model.Release{
		Tag:         in.Tag,
		Description: in.Description,
		ProjectID:   in.ProjectID,
	})
	if err != nil {
		metrics.IncrementMutation("release_create", "error")
		return nil, err
	}
	metrics.IncrementMutation("release_create", "ok")

	return created, nil
}

// Associate binds a release to a milestone. A release holds at most one
// milestone ever; re-association fails even for the same milestone. The
// conditional update in the store is the guard that serializes
// concurrent calls, the reselect below only classifies the failure.
func (s *Service) Associate(ctx context.Context, actor model.Actor, releaseID, milestoneID int64) (*model.Release, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionAssociateRelease); err != nil {
		return nil, apperr.Wrap(apperr.CodeForbidden, "not allowed to associate releases", err)
	}

	ms, err := s.milestones.FindByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.store.ClaimMilestone(ctx, releaseID, milestoneID)
	if err != nil {
		metrics.IncrementMutation("associate", "error")
		return nil, err
	}
	if !claimed {
		// Either the release does not exist or it already holds a
		// milestone reference.
		existing, err := s.store.FindByID(ctx, releaseID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Rejected re-association of release",
			zap.Int64("release_id", existing.ID),
			zap.Int64p("bound_milestone_id", existing.MilestoneID),
		)
		return nil, apperr.Newf(apperr.CodeAlreadyAssociated, "release %d is already associated with a milestone", releaseID)
	}
	metrics.IncrementMutation("associate", "ok")

	rel, err := s.store.FindByID(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateMilestone(ctx, ms.ID, ms.Scope)
	s.publish(mq.RoutingReleaseAssociated, mq.ReleaseAssociatedEvent{
		ReleaseID:   rel.ID,
		Tag:         rel.Tag,
		MilestoneID: ms.ID,
		ActorID:     actor.ID,
		OccurredAt:  rel.UpdatedAt,
	})

	return rel, nil
}

func (s *Service) ListForMilestone(ctx context.Context, actor model.Actor, milestoneID int64) ([]model.Release, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionReadMilestone); err != nil {
		return nil, apperr.Wrap(apperr.CodeForbidden, "not allowed to read milestones", err)
	}
	if _, err := s.milestones.FindByID(ctx, milestoneID); err != nil {
		return nil, err
	}
	return s.store.FindByMilestoneID(ctx, milestoneID)
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
