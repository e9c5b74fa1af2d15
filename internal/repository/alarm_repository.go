package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/models"
)

// ErrPendingAlarmExists is returned by Insert when the (device, fence) pair
// already has a pending alarm
var ErrPendingAlarmExists = errors.New("pending alarm already exists")

// AlarmRepository handles database operations for alarm records
type AlarmRepository struct {
	db *sql.DB
}

// NewAlarmRepository creates a new alarm repository
func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

const alarmColumns = `id, device_id, fence_id, alarm_type, severity, description, location, status, created_at, handled_at`

func scanAlarm(row interface{ Scan(...any) error }) (*models.Alarm, error) {
	var (
		a       models.Alarm
		fenceID sql.NullInt64
		created int64
		handled sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.DeviceID, &fenceID, &a.AlarmType, &a.Severity, &a.Description,
		&a.Location, &a.Status, &created, &handled)
	if err != nil {
		return nil, err
	}
	a.FenceID = int64Ptr(fenceID)
	a.CreatedAt = fromMillis(created)
	a.HandledAt = timePtr(handled)
	return &a, nil
}

// FindPending returns the pending alarm for a device and fence, or nil
func (r *AlarmRepository) FindPending(ctx context.Context, deviceID string, fenceID int64) (*models.Alarm, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+alarmColumns+` FROM alarm_records
		WHERE device_id = ? AND fence_id = ? AND status = 'pending' LIMIT 1`,
		deviceID, fenceID)

	a, err := scanAlarm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending alarm: %w", err)
	}

	return a, nil
}

// Insert stores a new alarm and sets its ID. The pending-alarm unique index
// turns a concurrent duplicate into ErrPendingAlarmExists.
func (r *AlarmRepository) Insert(ctx context.Context, a *models.Alarm) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO alarm_records (device_id, fence_id, alarm_type, severity, description, location,
			status, created_at, handled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.DeviceID, nullInt64(a.FenceID), a.AlarmType, a.Severity, a.Description, a.Location,
		a.Status, toMillis(a.CreatedAt), nullMillis(a.HandledAt))
	if isUniqueViolation(err) {
		return ErrPendingAlarmExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert alarm: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get alarm id: %w", err)
	}

	a.ID = id
	return nil
}

// List retrieves alarms with filtering and pagination, newest first
func (r *AlarmRepository) List(ctx context.Context, filter models.AlarmFilter) ([]models.Alarm, int64, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.FenceID > 0 {
		conditions = append(conditions, "fence_id = ?")
		args = append(args, filter.FenceID)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.StartTime*1000)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, filter.EndTime*1000)
	}

	// Get total count
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alarm_records"+where(conditions), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alarms: %w", err)
	}

	page, pageSize := models.Normalize(filter.Page, filter.PageSize)
	query := `SELECT ` + alarmColumns + ` FROM alarm_records` + where(conditions) +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	alarms := []models.Alarm{}
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alarm: %w", err)
		}
		alarms = append(alarms, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read alarms: %w", err)
	}

	return alarms, total, nil
}

// GetByID retrieves a single alarm, nil if it does not exist
func (r *AlarmRepository) GetByID(ctx context.Context, id int64) (*models.Alarm, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+alarmColumns+` FROM alarm_records WHERE id = ?`, id)

	a, err := scanAlarm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alarm: %w", err)
	}

	return a, nil
}

// Update writes the operator-editable columns of an alarm
func (r *AlarmRepository) Update(ctx context.Context, a *models.Alarm) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE alarm_records SET status = ?, description = ?, severity = ?, handled_at = ? WHERE id = ?`,
		a.Status, a.Description, a.Severity, nullMillis(a.HandledAt), a.ID)
	if err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}
	return nil
}

// CountSince returns the number of alarms created at or after since
func (r *AlarmRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alarm_records WHERE created_at >= ?`, toMillis(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count alarms: %w", err)
	}
	return n, nil
}

// CountPending returns the number of unresolved alarms
func (r *AlarmRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alarm_records WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending alarms: %w", err)
	}
	return n, nil
}
