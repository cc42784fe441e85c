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

type MilestoneRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{
		db:     db,
		logger: logger,
	}
}

const milestoneColumns = `id, title, description, start_date, due_date, state, closed_at, scope_kind, scope_id, created_at, updated_at`

func scanMilestone(row pgx.Row) (*model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.StartDate,
		&m.DueDate,
		&m.State,
		&m.ClosedAt,
		&m.Scope.Kind,
		&m.Scope.ID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Insert creates a milestone in the active state. The partial unique
// index on (scope_kind, scope_id, lower(title)) is the authoritative
// duplicate-title guard; a violation comes back as DUPLICATE_TITLE.
func (r *MilestoneRepository) Insert(ctx context.Context, m *model.Milestone) (*model.Milestone, error) {
	r.logger.Debug("Inserting milestone",
		zap.String("scope", m.Scope.Key()),
		zap.String("title", m.Title),
	)

	start := time.Now()
	query := `
        INSERT INTO milestones (title, description, start_date, due_date, state, scope_kind, scope_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 'active', $5, $6, NOW(), NOW())
        RETURNING ` + milestoneColumns + `
    `
	created, err := scanMilestone(r.db.QueryRow(ctx, query,
		m.Title,
		m.Description,
		m.StartDate,
		m.DueDate,
		m.Scope.Kind,
		m.Scope.ID,
	))
	metrics.RecordDBQueryDuration("insert", "milestones", time.Since(start))

	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return nil, apperr.ClassifyStore(err, apperr.CodeDuplicateTitle, apperr.CodeInvalidInput)
	}

	r.logger.Info("Milestone inserted successfully",
		zap.Int64("id", created.ID),
		zap.String("scope", created.Scope.Key()),
	)
	return created, nil
}

func (r *MilestoneRepository) FindByID(ctx context.Context, id int64) (*model.Milestone, error) {
	query := `
        SELECT ` + milestoneColumns + `
        FROM milestones
        WHERE id = $1
    `
	m, err := scanMilestone(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.CodeMilestoneNotFound, "milestone %d not found", id)
		}
		r.logger.Error("Failed to find milestone", zap.Int64("id", id), zap.Error(err))
		return nil, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeInternal)
	}
	return m, nil
}

// TitleExists is the fast-path duplicate check for friendly errors; the
// unique index still decides under concurrency.
func (r *MilestoneRepository) TitleExists(ctx context.Context, scope model.Scope, title string) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM milestones
            WHERE scope_kind = $1 AND scope_id = $2 AND lower(title) = lower($3)
        )
    `
	var exists bool
	if err := r.db.QueryRow(ctx, query, scope.Kind, scope.ID, title).Scan(&exists); err != nil {
		r.logger.Error("Failed to check title uniqueness", zap.Error(err))
		return false, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeInternal)
	}
	return exists, nil
}

// CloseActive flips an active milestone to closed in one conditional
// update; the WHERE clause is what serializes concurrent closes. Returns
// nil without error when no active row matched, the caller reselects to
// tell not-found from already-closed.
func (r *MilestoneRepository) CloseActive(ctx context.Context, id int64) (*model.Milestone, error) {
	start := time.Now()
	query := `
        UPDATE milestones
        SET state = 'closed', closed_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND state = 'active'
        RETURNING ` + milestoneColumns + `
    `
	m, err := scanMilestone(r.db.QueryRow(ctx, query, id))
	metrics.RecordDBQueryDuration("update", "milestones", time.Since(start))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to close milestone", zap.Int64("id", id), zap.Error(err))
		return nil, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeInternal)
	}

	r.logger.Info("Milestone closed", zap.Int64("id", id))
	return m, nil
}
