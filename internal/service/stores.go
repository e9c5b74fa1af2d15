package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/models"
)

// Not-found and validation errors surfaced to the HTTP layer
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrFenceNotFound  = errors.New("fence not found")
	ErrRegionNotFound = errors.New("project region not found")
	ErrAlarmNotFound  = errors.New("alarm not found")

	ErrInvalidFence  = fmt.Errorf("%w: invalid fence", models.ErrValidation)
	ErrInvalidRegion = fmt.Errorf("%w: invalid project region", models.ErrValidation)
)

// DeviceStore is the device state the monitor reads and writes
type DeviceStore interface {
	GetByID(ctx context.Context, id string) (*models.Device, error)
	SetPosition(ctx context.Context, id string, lat, lng float64, at time.Time) error
	ListPositioned(ctx context.Context) ([]models.Device, error)
}

// FenceStore is the fence state the monitor reads, plus the violator count it writes
type FenceStore interface {
	ListActive(ctx context.Context) ([]models.Fence, error)
	GetByID(ctx context.Context, id int64) (*models.Fence, error)
	SetViolatorCount(ctx context.Context, id int64, count int) error
	GetRegion(ctx context.Context, id int64) (*models.ProjectRegion, error)
}

// AlarmStore persists alarms raised by the monitor
type AlarmStore interface {
	FindPending(ctx context.Context, deviceID string, fenceID int64) (*models.Alarm, error)
	Insert(ctx context.Context, alarm *models.Alarm) error
}
