package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/pkg/metrics"
)

type ReleaseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReleaseRepository(db *pgxpool.Pool, logger *zap.Logger) *ReleaseRepository {
	return &ReleaseRepository{
		db:     db,
		logger: logger,
	}
}

const releaseColumns = `id, tag, description, project_id, milestone_id, created_at, updated_at`

func scanRelease(row pgx.Row) (*model.Release, error) {
	var rel model.Release
	err := row.Scan(
		&rel.ID,
		&rel.Tag,
		&rel.Description,
		&rel.ProjectID,
		&rel.MilestoneID,
		&rel.CreatedAt,
		&rel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// Insert creates a release with no milestone. The (project_id, tag)
// unique index is the authoritative tag guard.
func (r *ReleaseRepository) Insert(ctx context.Context, rel *model.Release) (*model.Release, error) {
	r.logger.Debug("Inserting release",
		zap.Int64("project_id", rel.ProjectID),
		zap.String("tag", rel.Tag),
	)

	start := time.Now()
	query := `
        INSERT INTO releases (tag, description, project_id, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING ` + releaseColumns + `
    `
	created, err := scanRelease(r.db.QueryRow(ctx, query, rel.Tag, rel.Description, rel.ProjectID))
	metrics.RecordDBQueryDuration("insert", "releases", time.Since(start))

	if err != nil {
		r.logger.Error("Failed to insert release", zap.Error(err))
		return nil, apperr.ClassifyStore(err, apperr.CodeDuplicateTag, apperr.CodeInvalidInput)
	}

	r.logger.Info("Release inserted successfully",
		zap.Int64("id", created.ID),
		zap.String("tag", created.Tag),
	)
	return created, nil
}

func (r *ReleaseRepository) FindByID(ctx context.Context, id int64) (*model.Release, error) {
	query := `
        SELECT ` + releaseColumns + `
        FROM releases
        WHERE id = $1
    `
	rel, err := scanRelease(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.CodeReleaseNotFound, "release %d not found", id)
		}
		r.logger.Error("Failed to find release", zap.Int64("id", id), zap.Error(err))
		return nil, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeInternal)
	}
	return rel, nil
}

// ClaimMilestone binds the release to a milestone only if it is still
// unbound. The conditional write is the authoritative guard: of two
// concurrent calls for the same release, exactly one sees a row with
// milestone_id IS NULL.
func (r *ReleaseRepository) ClaimMilestone(ctx context.Context, releaseID, milestoneID int64) (bool, error) {
	start := time.Now()
	query := `
        UPDATE releases
        SET milestone_id = $2, updated_at = NOW()
        WHERE id = $1 AND milestone_id IS NULL
    `
	tag, err := r.db.Exec(ctx, query, releaseID, milestoneID)
	metrics.RecordDBQueryDuration("update", "releases", time.Since(start))

	if err != nil {
		r.logger.Error("Failed to claim milestone for release",
			zap.Int64("release_id", releaseID),
			zap.Int64("milestone_id", milestoneID),
			zap.Error(err),
		)
		return false, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeMilestoneNotFound)
	}

	return tag.RowsAffected() == 1, nil
}

// FindByMilestoneID lists releases bound to a milestone, oldest first.
func (r *ReleaseRepository) FindByMilestoneID(ctx context.Context, milestoneID int64) ([]model.Release, error) {
	query := `
        SELECT ` + releaseColumns + `
        FROM releases
        WHERE milestone_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, milestoneID)
	if err != nil {
		r.logger.Error("Failed to list releases", zap.Int64("milestone_id", milestoneID), zap.Error(err))
		return nil, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeInternal)
	}
	defer rows.Close()

	releases := []model.Release{}
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, "failed to scan release", err)
		}
		releases = append(releases, *rel)
	}

	return releases, rows.Err()
}
