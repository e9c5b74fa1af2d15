package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jengzang/site-fence-backend-go/internal/logger"
	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
	"github.com/jengzang/site-fence-backend-go/internal/spatial"
)

// RegionService handles business logic for project regions
type RegionService struct {
	repo    *repository.RegionRepository
	fences  *repository.FenceRepository
	monitor *MonitorService
}

// NewRegionService creates a new region service
func NewRegionService(repo *repository.RegionRepository, fences *repository.FenceRepository, monitor *MonitorService) *RegionService {
	return &RegionService{repo: repo, fences: fences, monitor: monitor}
}

// List retrieves all project regions
func (s *RegionService) List(ctx context.Context) ([]models.ProjectRegion, error) {
	return s.repo.List(ctx)
}

// Get retrieves a single project region
func (s *RegionService) Get(ctx context.Context, id int64) (*models.ProjectRegion, error) {
	region, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if region == nil {
		return nil, ErrRegionNotFound
	}
	return region, nil
}

// Create validates and stores a project region
func (s *RegionService) Create(ctx context.Context, in *models.RegionInput) (*models.ProjectRegion, error) {
	region := &models.ProjectRegion{
		Name:            strings.TrimSpace(in.Name),
		CoordinatesJSON: in.CoordinatesJSON,
		Remark:          in.Remark,
	}
	if err := validateRegion(region); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, region); err != nil {
		return nil, err
	}
	logger.InfoKV(ctx, "created project region", "region_id", region.ID, "name", region.Name)
	return region, nil
}

// Update applies a partial update. A boundary change re-evaluates every
// fence scoped to the region.
func (s *RegionService) Update(ctx context.Context, id int64, patch *models.RegionPatch) (*models.ProjectRegion, error) {
	region, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := patch.Apply(region); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}
	if err := validateRegion(region); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, region); err != nil {
		return nil, err
	}

	if patch.GeometryChanged() {
		fences, err := s.fences.ListByRegion(ctx, id)
		if err != nil {
			logger.ErrorKV(ctx, "failed to list fences of region", "region_id", id, "error", err)
			return region, nil
		}
		s.reevaluate(ctx, fences)
	}
	return region, nil
}

// Delete removes a region. Scoped fences lose the reference, which turns a
// No Exit fence global, so they are re-evaluated.
func (s *RegionService) Delete(ctx context.Context, id int64) error {
	fences, err := s.fences.ListByRegion(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrRegionNotFound
	}
	logger.InfoKV(ctx, "deleted project region", "region_id", id, "detached_fences", len(fences))

	for i := range fences {
		fences[i].ProjectRegionID = nil
	}
	s.reevaluate(ctx, fences)
	return nil
}

func (s *RegionService) reevaluate(ctx context.Context, fences []models.Fence) {
	for i := range fences {
		if _, err := s.monitor.OnFenceChanged(ctx, &fences[i]); err != nil {
			logger.ErrorKV(ctx, "failed to re-evaluate fence", "fence_id", fences[i].ID, "error", err)
		}
	}
}

func validateRegion(region *models.ProjectRegion) error {
	if region.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRegion)
	}
	points, err := spatial.ParseCoordinates(region.CoordinatesJSON)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}
	if len(points) < 3 {
		return fmt.Errorf("%w: boundary needs at least 3 points, got %d", ErrInvalidRegion, len(points))
	}
	return nil
}
