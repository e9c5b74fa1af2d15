package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jengzang/site-fence-backend-go/internal/geofence"
	"github.com/jengzang/site-fence-backend-go/internal/logger"
	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/repository"
	"github.com/jengzang/site-fence-backend-go/internal/spatial"
)

// FenceService handles business logic for electronic fences
type FenceService struct {
	repo    *repository.FenceRepository
	monitor *MonitorService
}

// NewFenceService creates a new fence service
func NewFenceService(repo *repository.FenceRepository, monitor *MonitorService) *FenceService {
	return &FenceService{repo: repo, monitor: monitor}
}

// List retrieves fences with filtering and pagination
func (s *FenceService) List(ctx context.Context, filter models.FenceFilter) (*models.FencesResponse, error) {
	fences, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	page, pageSize := models.Normalize(filter.Page, filter.PageSize)
	resp := &models.FencesResponse{
		Data:       make([]models.FenceView, 0, len(fences)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: models.TotalPages(total, pageSize),
	}
	for i := range fences {
		resp.Data = append(resp.Data, NewFenceView(&fences[i]))
	}
	return resp, nil
}

// Get retrieves a single fence
func (s *FenceService) Get(ctx context.Context, id int64) (*models.FenceView, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewFenceView(f)
	return &view, nil
}

func (s *FenceService) get(ctx context.Context, id int64) (*models.Fence, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrFenceNotFound
	}
	return f, nil
}

// Create validates and stores a fence, then evaluates existing device
// positions against it
func (s *FenceService) Create(ctx context.Context, in *models.FenceInput) (*models.FenceView, error) {
	f := in.ToFence()
	if err := s.validate(ctx, f); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	logger.InfoKV(ctx, "created fence", "fence_id", f.ID, "name", f.Name, "shape", f.Shape)

	s.evaluate(ctx, f)
	view := NewFenceView(f)
	return &view, nil
}

// Update applies a partial update and re-evaluates the fence
func (s *FenceService) Update(ctx context.Context, id int64, patch *models.FencePatch) (*models.FenceView, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := patch.Apply(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFence, err)
	}
	if err := s.validate(ctx, f); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	logger.InfoKV(ctx, "updated fence", "fence_id", f.ID)

	s.evaluate(ctx, f)
	view := NewFenceView(f)
	return &view, nil
}

// Delete removes a fence; its alarms are kept with the reference cleared
func (s *FenceService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrFenceNotFound
	}
	logger.InfoKV(ctx, "deleted fence", "fence_id", id)
	return nil
}

// Recompute runs the full fence pass on demand
func (s *FenceService) Recompute(ctx context.Context, id int64) (*PassResult, error) {
	f, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.monitor.OnFenceChanged(ctx, f)
}

// evaluate runs the fence-changed pass. The fence is already stored, so a
// failure is logged rather than failing the request.
func (s *FenceService) evaluate(ctx context.Context, f *models.Fence) {
	res, err := s.monitor.OnFenceChanged(ctx, f)
	if err != nil {
		logger.ErrorKV(ctx, "failed to evaluate fence", "fence_id", f.ID, "error", err)
		return
	}
	f.ViolatorCount = res.Violators
}

// validate checks a merged fence as a whole
func (s *FenceService) validate(ctx context.Context, f *models.Fence) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFence)
	}
	if !f.Shape.Valid() {
		return fmt.Errorf("%w: unknown shape %q", ErrInvalidFence, f.Shape)
	}
	if !f.Behavior.Valid() {
		return fmt.Errorf("%w: unknown behavior %q", ErrInvalidFence, f.Behavior)
	}
	if !f.AlarmLevel.Valid() {
		return fmt.Errorf("%w: unknown alarm level %q", ErrInvalidFence, f.AlarmLevel)
	}

	switch f.Shape {
	case models.ShapeCircle:
		if f.Radius == nil || *f.Radius <= 0 {
			return fmt.Errorf("%w: radius is required for circular fences", ErrInvalidFence)
		}
		if _, err := spatial.ParseCenter(f.CoordinatesJSON); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFence, err)
		}
	case models.ShapePolygon:
		points, err := spatial.ParseCoordinates(f.CoordinatesJSON)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFence, err)
		}
		if len(points) < 3 {
			return fmt.Errorf("%w: polygon needs at least 3 points, got %d", ErrInvalidFence, len(points))
		}
	}

	if f.ProjectRegionID != nil {
		region, err := s.repo.GetRegion(ctx, *f.ProjectRegionID)
		if err != nil {
			return err
		}
		if region == nil {
			return fmt.Errorf("%w: project region %d does not exist", ErrInvalidFence, *f.ProjectRegionID)
		}
	}

	// Kept verbatim: an unparsable window is enforced around the clock
	if f.EffectiveTime != "" {
		if _, err := geofence.ParseTimeWindow(f.EffectiveTime); err != nil {
			logger.WarnKV(ctx, "fence effective time will be treated as always active",
				"effective_time", f.EffectiveTime, "error", err)
		}
	}

	return nil
}

// NewFenceView adds derived map geometry to a fence
func NewFenceView(f *models.Fence) models.FenceView {
	view := models.FenceView{Fence: *f}

	switch f.Shape {
	case models.ShapeCircle:
		center, err := spatial.ParseCenter(f.CoordinatesJSON)
		if err != nil {
			return view
		}
		view.Centroid = &models.LatLng{Lat: center.Lat, Lng: center.Lon}
		if f.Radius != nil {
			view.AreaSquareMeters = spatial.CircleArea(*f.Radius)
		}
	default:
		points, err := spatial.ParseCoordinates(f.CoordinatesJSON)
		if err != nil || len(points) == 0 {
			return view
		}
		c := spatial.Centroid(points)
		view.Centroid = &models.LatLng{Lat: c.Lat, Lng: c.Lon}
		view.AreaSquareMeters = spatial.PolygonArea(points)
	}

	return view
}
