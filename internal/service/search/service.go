// Package search answers filtered, paginated milestone queries.
// Results for project and group scopes are memoized in the result
// cache; personal-scope queries depend on the caller's memberships and
// are always computed fresh, which keeps invalidation scope-local.
package search

import (
	"context"

	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/cache"
	"milestonesvc/internal/model"
	"milestonesvc/internal/repository"
	"milestonesvc/pkg/rbac"
)

type Store interface {
	Search(ctx context.Context, f repository.SearchFilter) ([]model.Milestone, int, error)
}

// AccessResolver expands the personal scope into the actor's
// project/group memberships.
type AccessResolver interface {
	AccessibleScopes(ctx context.Context, actorID int64) (projects, groups []int64, err error)
}

type Cache interface {
	ScopeVersion(ctx context.Context, scope model.Scope) (int64, bool)
	GetSearch(ctx context.Context, key string) (*model.SearchResult, bool)
	PutSearch(ctx context.Context, key string, res *model.SearchResult)
}

type Service struct {
	store  Store
	access AccessResolver
	cache  Cache
	logger *zap.Logger
}

func NewService(store Store, access AccessResolver, cache Cache, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		access: access,
		cache:  cache,
		logger: logger,
	}
}

const defaultPageSize = 20

// NormalizeQuery applies defaults and rejects invalid filter
// combinations instead of silently ignoring them.
func NormalizeQuery(q model.SearchQuery) (model.SearchQuery, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Size == 0 {
		q.Size = defaultPageSize
	}
	if q.SortBy == "" {
		q.SortBy = model.DefaultSortField
	}
	if q.Scope == "" {
		q.Scope = model.SearchScopePersonal
	}

	if q.Page < 1 {
		return q, apperr.New(apperr.CodeInvalidSearchInput, "page must be >= 1")
	}
	if q.Size < 1 || q.Size > model.MaxPageSize {
		return q, apperr.Newf(apperr.CodeInvalidSearchInput, "size must be between 1 and %d", model.MaxPageSize)
	}
	if _, ok := model.SortFields[q.SortBy]; !ok {
		return q, apperr.Newf(apperr.CodeInvalidSearchInput, "unsupported sort field %q", q.SortBy)
	}
	if q.State != "" && q.State != model.MilestoneActive && q.State != model.MilestoneClosed {
		return q, apperr.Newf(apperr.CodeInvalidSearchInput, "unknown state %q", q.State)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return q, apperr.New(apperr.CodeInvalidSearchInput, "date range from is after to")
	}

	switch q.Scope {
	case model.SearchScopePersonal:
		// scope id is meaningless here
		q.ScopeID = 0
	case model.SearchScopeProject, model.SearchScopeGroup:
		if q.ScopeID <= 0 {
			return q, apperr.New(apperr.CodeInvalidSearchInput, "scope_id is required for project and group scopes")
		}
	default:
		return q, apperr.Newf(apperr.CodeInvalidSearchInput, "unknown scope %q", q.Scope)
	}

	return q, nil
}

func (s *Service) Search(ctx context.Context, actor model.Actor, q model.SearchQuery) (*model.SearchResult, error) {
	if err := rbac.CheckPermission(actor.Role, rbac.PermissionReadMilestone); err != nil {
		return nil, apperr.Wrap(apperr.CodeForbidden, "not allowed to search milestones", err)
	}

	q, err := NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	filter := repository.SearchFilter{
		Text:       q.Text,
		State:      q.State,
		From:       q.From,
		To:         q.To,
		SortColumn: model.SortFields[q.SortBy],
		SortDesc:   q.SortDesc,
		Offset:     (q.Page - 1) * q.Size,
		Limit:      q.Size,
	}

	var cacheKey string
	switch q.Scope {
	case model.SearchScopeProject:
		filter.ProjectIDs = []int64{q.ScopeID}
		cacheKey = s.searchKey(ctx, model.ProjectScope(q.ScopeID), q)
	case model.SearchScopeGroup:
		filter.GroupIDs = []int64{q.ScopeID}
		cacheKey = s.searchKey(ctx, model.GroupScope(q.ScopeID), q)
	case model.SearchScopePersonal:
		projects, groups, err := s.access.AccessibleScopes(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if len(projects) == 0 && len(groups) == 0 {
			return &model.SearchResult{Items: []model.Milestone{}, Page: q.Page, Size: q.Size}, nil
		}
		filter.ProjectIDs = projects
		filter.GroupIDs = groups
	}

	if cacheKey != "" {
		if res, ok := s.cache.GetSearch(ctx, cacheKey); ok {
			return res, nil
		}
	}

	items, total, err := s.store.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	res := &model.SearchResult{
		Items: items,
		Total: total,
		Page:  q.Page,
		Size:  q.Size,
	}
	if cacheKey != "" {
		s.cache.PutSearch(ctx, cacheKey, res)
	}
	return res, nil
}

// searchKey returns "" when the version counter is unreachable, which
// disables caching for the request rather than risking an entry that
// can no longer be invalidated.
func (s *Service) searchKey(ctx context.Context, scope model.Scope, q model.SearchQuery) string {
	version, ok := s.cache.ScopeVersion(ctx, scope)
	if !ok {
		return ""
	}
	return cache.SearchKey(scope, version, q)
}
