package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/database"
	"github.com/jengzang/site-fence-backend-go/internal/models"
)

// FenceRepository handles database operations for electronic fences
type FenceRepository struct {
	db      *sql.DB
	regions *RegionRepository
}

// NewFenceRepository creates a new fence repository
func NewFenceRepository(db *sql.DB) *FenceRepository {
	return &FenceRepository{db: db, regions: NewRegionRepository(db)}
}

const fenceColumns = `id, name, project_region_id, shape, behavior, coordinates_json, radius,
	effective_time, alarm_level, is_active, remark, violator_count, created_at, updated_at`

func scanFence(row interface{ Scan(...any) error }) (*models.Fence, error) {
	var (
		f                models.Fence
		regionID         sql.NullInt64
		radius           sql.NullFloat64
		created, updated int64
	)
	err := row.Scan(
		&f.ID, &f.Name, &regionID, &f.Shape, &f.Behavior, &f.CoordinatesJSON, &radius,
		&f.EffectiveTime, &f.AlarmLevel, &f.IsActive, &f.Remark, &f.ViolatorCount, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	f.ProjectRegionID = int64Ptr(regionID)
	f.Radius = float64Ptr(radius)
	f.CreatedAt = fromMillis(created)
	f.UpdatedAt = fromMillis(updated)
	return &f, nil
}

func (r *FenceRepository) query(ctx context.Context, query string, args ...any) ([]models.Fence, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fences: %w", err)
	}
	defer rows.Close()

	fences := []models.Fence{}
	for rows.Next() {
		f, err := scanFence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fence: %w", err)
		}
		fences = append(fences, *f)
	}

	return fences, rows.Err()
}

// List retrieves fences with filtering and pagination
func (r *FenceRepository) List(ctx context.Context, filter models.FenceFilter) ([]models.Fence, int64, error) {
	var conditions []string
	var args []any

	if filter.Behavior != "" {
		conditions = append(conditions, "behavior = ?")
		args = append(args, filter.Behavior)
	}
	if filter.RegionID > 0 {
		conditions = append(conditions, "project_region_id = ?")
		args = append(args, filter.RegionID)
	}
	switch filter.Active {
	case "true", "1":
		conditions = append(conditions, "is_active = 1")
	case "false", "0":
		conditions = append(conditions, "is_active = 0")
	}

	// Get total count
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM electronic_fences"+where(conditions), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count fences: %w", err)
	}

	page, pageSize := models.Normalize(filter.Page, filter.PageSize)
	query := `SELECT ` + fenceColumns + ` FROM electronic_fences` + where(conditions) + ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	fences, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return fences, total, nil
}

// ListActive retrieves every fence with is_active set
func (r *FenceRepository) ListActive(ctx context.Context) ([]models.Fence, error) {
	return r.query(ctx, `SELECT `+fenceColumns+` FROM electronic_fences WHERE is_active = 1 ORDER BY id`)
}

// ListAll retrieves every fence regardless of state
func (r *FenceRepository) ListAll(ctx context.Context) ([]models.Fence, error) {
	return r.query(ctx, `SELECT `+fenceColumns+` FROM electronic_fences ORDER BY id`)
}

// ListByRegion retrieves the fences scoped to a project region
func (r *FenceRepository) ListByRegion(ctx context.Context, regionID int64) ([]models.Fence, error) {
	return r.query(ctx, `SELECT `+fenceColumns+` FROM electronic_fences WHERE project_region_id = ? ORDER BY id`, regionID)
}

// GetByID retrieves a single fence, nil if it does not exist
func (r *FenceRepository) GetByID(ctx context.Context, id int64) (*models.Fence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fenceColumns+` FROM electronic_fences WHERE id = ?`, id)

	f, err := scanFence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fence: %w", err)
	}

	return f, nil
}

// GetRegion retrieves the project region a fence may reference
func (r *FenceRepository) GetRegion(ctx context.Context, id int64) (*models.ProjectRegion, error) {
	return r.regions.GetByID(ctx, id)
}

// Create inserts a fence and sets its ID and timestamps
func (r *FenceRepository) Create(ctx context.Context, f *models.Fence) error {
	now := toMillis(time.Now())
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO electronic_fences (name, project_region_id, shape, behavior, coordinates_json, radius,
			effective_time, alarm_level, is_active, remark, violator_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		f.Name, nullInt64(f.ProjectRegionID), f.Shape, f.Behavior, f.CoordinatesJSON, nullFloat64(f.Radius),
		f.EffectiveTime, f.AlarmLevel, f.IsActive, f.Remark, now, now)
	if err != nil {
		return fmt.Errorf("failed to create fence: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get fence id: %w", err)
	}

	f.ID = id
	f.ViolatorCount = 0
	f.CreatedAt = fromMillis(now)
	f.UpdatedAt = f.CreatedAt
	return nil
}

// Update writes every editable column of f. The violator count is left to
// SetViolatorCount.
func (r *FenceRepository) Update(ctx context.Context, f *models.Fence) error {
	now := toMillis(time.Now())
	_, err := r.db.ExecContext(ctx,
		`UPDATE electronic_fences SET name = ?, project_region_id = ?, shape = ?, behavior = ?,
			coordinates_json = ?, radius = ?, effective_time = ?, alarm_level = ?, is_active = ?,
			remark = ?, updated_at = ?
		WHERE id = ?`,
		f.Name, nullInt64(f.ProjectRegionID), f.Shape, f.Behavior, f.CoordinatesJSON, nullFloat64(f.Radius),
		f.EffectiveTime, f.AlarmLevel, f.IsActive, f.Remark, now, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update fence: %w", err)
	}

	f.UpdatedAt = fromMillis(now)
	return nil
}

// SetViolatorCount overwrites the cached violator count
func (r *FenceRepository) SetViolatorCount(ctx context.Context, id int64, count int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE electronic_fences SET violator_count = ? WHERE id = ?`, count, id)
	if err != nil {
		return fmt.Errorf("failed to set violator count: %w", err)
	}
	return nil
}

// Delete removes a fence. Its alarms stay as history with the fence
// reference cleared. Returns false if the fence did not exist.
func (r *FenceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE alarm_records SET fence_id = NULL WHERE fence_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear alarm fence references: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM electronic_fences WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete fence: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete fence: %w", err)
		}
		deleted = n > 0
		return nil
	})

	return deleted, err
}

// Count returns the number of fences
func (r *FenceRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM electronic_fences`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fences: %w", err)
	}
	return n, nil
}
