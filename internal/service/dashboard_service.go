package service

import (
	"context"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
)

// DashboardService aggregates the counters shown on the dashboard
type DashboardService struct {
	fences   *repository.FenceRepository
	devices  *repository.DeviceRepository
	alarms   *repository.AlarmRepository
	location *time.Location
	now      func() time.Time
}

// NewDashboardService creates a new dashboard service. Today's alarms are
// counted from local midnight in loc.
func NewDashboardService(fences *repository.FenceRepository, devices *repository.DeviceRepository,
	alarms *repository.AlarmRepository, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{fences: fences, devices: devices, alarms: alarms, location: loc, now: time.Now}
}

// Summary returns fence, device and alarm counters
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	var (
		summary models.DashboardSummary
		err     error
	)

	if summary.FenceCount, err = s.fences.Count(ctx); err != nil {
		return nil, err
	}
	if summary.DeviceCount, err = s.devices.Count(ctx); err != nil {
		return nil, err
	}

	now := s.now().In(s.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	if summary.AlarmCountToday, err = s.alarms.CountSince(ctx, midnight); err != nil {
		return nil, err
	}
	if summary.PendingAlarms, err = s.alarms.CountPending(ctx); err != nil {
		return nil, err
	}

	return &summary, nil
}
