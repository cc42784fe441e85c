package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
)

// MembershipRepository resolves the "personal" search scope: the set of
// projects and groups the actor belongs to.
type MembershipRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMembershipRepository(db *pgxpool.Pool, logger *zap.Logger) *MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

func (r *MembershipRepository) AccessibleScopes(ctx context.Context, actorID int64) (projects, groups []int64, err error) {
	query := `
        SELECT kind, scope_id
        FROM scope_members
        WHERE user_id = $1
    `
	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		r.logger.Error("Failed to resolve accessible scopes", zap.Int64("actor_id", actorID), zap.Error(err))
		return nil, nil, apperr.Wrap(apperr.CodeDependencyFailure, "membership lookup failed", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var id int64
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, nil, apperr.Wrap(apperr.CodeInternal, "failed to scan membership", err)
		}
		switch kind {
		case "project":
			projects = append(projects, id)
		case "group":
			groups = append(groups, id)
		}
	}

	return projects, groups, rows.Err()
}
