package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/models"
)

// DeviceRepository handles database operations for tracked devices
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, device_name, device_type, is_online, last_latitude, last_longitude, position_updated_at`

func scanDevice(row interface{ Scan(...any) error }) (*models.Device, error) {
	var (
		d        models.Device
		lat, lng sql.NullFloat64
		posAt    sql.NullInt64
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Type, &d.IsOnline, &lat, &lng, &posAt); err != nil {
		return nil, err
	}
	d.LastLatitude = float64Ptr(lat)
	d.LastLongitude = float64Ptr(lng)
	d.PositionUpdatedAt = timePtr(posAt)
	return &d, nil
}

func (r *DeviceRepository) query(ctx context.Context, query string, args ...any) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *d)
	}

	return devices, rows.Err()
}

// List retrieves all devices ordered by ID
func (r *DeviceRepository) List(ctx context.Context) ([]models.Device, error) {
	return r.query(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
}

// ListPositioned retrieves devices with a known last position
func (r *DeviceRepository) ListPositioned(ctx context.Context) ([]models.Device, error) {
	return r.query(ctx, `SELECT `+deviceColumns+` FROM devices
		WHERE last_latitude IS NOT NULL AND last_longitude IS NOT NULL ORDER BY id`)
}

// GetByID retrieves a single device, nil if it does not exist
func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*models.Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)

	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return d, nil
}

// Upsert registers a device or updates its metadata. Position is untouched.
func (r *DeviceRepository) Upsert(ctx context.Context, d *models.Device) error {
	now := toMillis(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (id, device_name, device_type, is_online, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			device_name = excluded.device_name,
			device_type = excluded.device_type,
			is_online = excluded.is_online,
			updated_at = excluded.updated_at`,
		d.ID, d.Name, d.Type, d.IsOnline, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}
	return nil
}

// SetPosition stores the last known position of a device
func (r *DeviceRepository) SetPosition(ctx context.Context, id string, lat, lng float64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET last_latitude = ?, last_longitude = ?, position_updated_at = ?, updated_at = ?
		WHERE id = ?`,
		lat, lng, toMillis(at), toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to set device position: %w", err)
	}
	return nil
}

// Count returns the number of registered devices
func (r *DeviceRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return n, nil
}
