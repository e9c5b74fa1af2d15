package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/database"
	"github.com/jengzang/site-fence-backend-go/internal/models"
)

// RegionRepository handles database operations for project regions
type RegionRepository struct {
	db *sql.DB
}

// NewRegionRepository creates a new region repository
func NewRegionRepository(db *sql.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

const regionColumns = `id, name, coordinates_json, remark, created_at, updated_at`

func scanRegion(row interface{ Scan(...any) error }) (*models.ProjectRegion, error) {
	var (
		r                models.ProjectRegion
		created, updated int64
	)
	if err := row.Scan(&r.ID, &r.Name, &r.CoordinatesJSON, &r.Remark, &created, &updated); err != nil {
		return nil, err
	}
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return &r, nil
}

// List retrieves all project regions ordered by ID
func (r *RegionRepository) List(ctx context.Context) ([]models.ProjectRegion, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+regionColumns+` FROM project_regions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query project regions: %w", err)
	}
	defer rows.Close()

	regions := []models.ProjectRegion{}
	for rows.Next() {
		region, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project region: %w", err)
		}
		regions = append(regions, *region)
	}

	return regions, rows.Err()
}

// GetByID retrieves a single project region, nil if it does not exist
func (r *RegionRepository) GetByID(ctx context.Context, id int64) (*models.ProjectRegion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+regionColumns+` FROM project_regions WHERE id = ?`, id)

	region, err := scanRegion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project region: %w", err)
	}

	return region, nil
}

// Create inserts a region and sets its ID and timestamps
func (r *RegionRepository) Create(ctx context.Context, region *models.ProjectRegion) error {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO project_regions (name, coordinates_json, remark, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		region.Name, region.CoordinatesJSON, region.Remark, toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("failed to create project region: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get project region id: %w", err)
	}

	region.ID = id
	region.CreatedAt = fromMillis(toMillis(now))
	region.UpdatedAt = region.CreatedAt
	return nil
}

// Update writes every editable column of region
func (r *RegionRepository) Update(ctx context.Context, region *models.ProjectRegion) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE project_regions SET name = ?, coordinates_json = ?, remark = ?, updated_at = ? WHERE id = ?`,
		region.Name, region.CoordinatesJSON, region.Remark, toMillis(now), region.ID)
	if err != nil {
		return fmt.Errorf("failed to update project region: %w", err)
	}

	region.UpdatedAt = fromMillis(toMillis(now))
	return nil
}

// Delete removes a region. Fences pointing at it keep existing with their
// region reference cleared. Returns false if the region did not exist.
func (r *RegionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE electronic_fences SET project_region_id = NULL WHERE project_region_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear fence region references: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM project_regions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete project region: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete project region: %w", err)
		}
		deleted = n > 0
		return nil
	})

	return deleted, err
}
