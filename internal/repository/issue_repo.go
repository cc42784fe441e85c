package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
)

// IssueRepository is the default issue source. The issue tracker itself
// is a separate system; the progress math only needs completion flags
// and optional weights, read from a projection table it maintains.
type IssueRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewIssueRepository(db *pgxpool.Pool, logger *zap.Logger) *IssueRepository {
	return &IssueRepository{
		db:     db,
		logger: logger,
	}
}

func (r *IssueRepository) IssuesForMilestone(ctx context.Context, milestoneID int64) ([]model.Issue, error) {
	query := `
        SELECT completed, weight
        FROM issues
        WHERE milestone_id = $1
    `
	rows, err := r.db.Query(ctx, query, milestoneID)
	if err != nil {
		r.logger.Error("Failed to fetch issues", zap.Int64("milestone_id", milestoneID), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeDependencyFailure, "issue source unavailable", err)
	}
	defer rows.Close()

	issues := []model.Issue{}
	for rows.Next() {
		var issue model.Issue
		if err := rows.Scan(&issue.Completed, &issue.Weight); err != nil {
			return nil, apperr.Wrap(apperr.CodeDependencyFailure, "issue source returned bad data", err)
		}
		issues = append(issues, issue)
	}

	return issues, rows.Err()
}
