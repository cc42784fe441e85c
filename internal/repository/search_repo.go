package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/pkg/metrics"
)

// SearchFilter is the validated, resolved form of a search: the scope
// has already been expanded to concrete project/group id lists and the
// sort field mapped to a store column.
type SearchFilter struct {
	Text       string
	State      model.MilestoneState
	From       time.Time
	To         time.Time
	ProjectIDs []int64
	GroupIDs   []int64
	SortColumn string
	SortDesc   bool
	Offset     int
	Limit      int
}

type SearchRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewSearchRepository(db *pgxpool.Pool, logger *zap.Logger) *SearchRepository {
	return &SearchRepository{
		db:     db,
		logger: logger,
	}
}

// Search runs the filtered, paginated milestone query. Ordering is the
// requested column plus an id tie-break so identical queries paginate
// identically.
func (r *SearchRepository) Search(ctx context.Context, f SearchFilter) ([]model.Milestone, int, error) {
	where, args := buildWhere(f)

	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("search", "milestones", time.Since(start))
	}()

	var total int
	countQuery := `SELECT COUNT(*) FROM milestones ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Search count failed", zap.Error(err))
		return nil, 0, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeInternal)
	}

	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	pageQuery := fmt.Sprintf(
		`SELECT %s FROM milestones %s ORDER BY %s %s, id ASC OFFSET $%d LIMIT $%d`,
		milestoneColumns, where, f.SortColumn, dir, len(args)+1, len(args)+2,
	)
	args = append(args, f.Offset, f.Limit)

	rows, err := r.db.Query(ctx, pageQuery, args...)
	if err != nil {
		r.logger.Error("Search query failed", zap.Error(err))
		return nil, 0, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeInternal)
	}
	defer rows.Close()

	items := []model.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.CodeInternal, "failed to scan milestone", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.ClassifyStore(err, apperr.CodeInternal, apperr.CodeInternal)
	}

	return items, total, nil
}

func buildWhere(f SearchFilter) (string, []any) {
	conds := []string{}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Text != "" {
		p := arg("%" + f.Text + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if f.State != "" {
		conds = append(conds, "state = "+arg(string(f.State)))
	}
	// A milestone matches the date filter when its [start_date, due_date]
	// span overlaps the requested range.
	if !f.From.IsZero() {
		conds = append(conds, "due_date >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "start_date <= "+arg(f.To))
	}

	scopeConds := []string{}
	if len(f.ProjectIDs) > 0 {
		scopeConds = append(scopeConds, fmt.Sprintf("(scope_kind = 'project' AND scope_id = ANY(%s))", arg(f.ProjectIDs)))
	}
	if len(f.GroupIDs) > 0 {
		scopeConds = append(scopeConds, fmt.Sprintf("(scope_kind = 'group' AND scope_id = ANY(%s))", arg(f.GroupIDs)))
	}
	if len(scopeConds) > 0 {
		conds = append(conds, "("+strings.Join(scopeConds, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
