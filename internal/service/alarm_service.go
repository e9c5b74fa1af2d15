package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/logger"
	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
)

// AlarmService handles operator access to alarm records
type AlarmService struct {
	repo *repository.AlarmRepository
	now  func() time.Time
}

// NewAlarmService creates a new alarm service
func NewAlarmService(repo *repository.AlarmRepository) *AlarmService {
	return &AlarmService{repo: repo, now: time.Now}
}

// List retrieves alarms with filtering and pagination
func (s *AlarmService) List(ctx context.Context, filter models.AlarmFilter) (*models.AlarmsResponse, error) {
	alarms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	page, pageSize := models.Normalize(filter.Page, filter.PageSize)
	return &models.AlarmsResponse{
		Data:       alarms,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: models.TotalPages(total, pageSize),
	}, nil
}

// Get retrieves a single alarm
func (s *AlarmService) Get(ctx context.Context, id int64) (*models.Alarm, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAlarmNotFound
	}
	return a, nil
}

// Update applies an operator patch, e.g. resolving the alarm
func (s *AlarmService) Update(ctx context.Context, id int64, patch *models.AlarmPatch) (*models.Alarm, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := patch.Apply(a, s.now()); err != nil {
		return nil, fmt.Errorf("failed to apply alarm patch: %w", err)
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "updated alarm", "alarm_id", a.ID, "status", a.Status)
	return a, nil
}
