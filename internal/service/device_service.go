package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
)

// DeviceService handles business logic for tracked devices
type DeviceService struct {
	repo *repository.DeviceRepository
}

// NewDeviceService creates a new device service
func NewDeviceService(repo *repository.DeviceRepository) *DeviceService {
	return &DeviceService{repo: repo}
}

// List retrieves all devices
func (s *DeviceService) List(ctx context.Context) ([]models.Device, error) {
	return s.repo.List(ctx)
}

// Get retrieves a single device
func (s *DeviceService) Get(ctx context.Context, id string) (*models.Device, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

// Register creates a device or updates its metadata, keeping any known position
func (s *DeviceService) Register(ctx context.Context, in *models.DeviceInput) (*models.Device, error) {
	d := &models.Device{
		ID:       strings.TrimSpace(in.ID),
		Name:     strings.TrimSpace(in.Name),
		Type:     in.Type,
		IsOnline: in.IsOnline,
	}
	if d.ID == "" {
		return nil, fmt.Errorf("%w: device id is required", models.ErrValidation)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("%w: device name is required", models.ErrValidation)
	}
	if err := s.repo.Upsert(ctx, d); err != nil {
		return nil, err
	}
	return s.Get(ctx, d.ID)
}
