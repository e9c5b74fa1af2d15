package geofence

import (
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/spatial"
)

// ErrMissingRegion marks a No Exit fence whose project region no longer exists
var ErrMissingRegion = errors.New("referenced project region not found")

// Rule is a fence compiled for evaluation. Geometry is decoded once so a bulk
// pass over many devices does not re-parse coordinates per device.
type Rule struct {
	Fence *models.Fence

	polygon []spatial.Point
	center  spatial.Point
	radius  float64

	region        []spatial.Point
	regionMissing bool

	// GeometryErr is set when the fence boundary cannot be evaluated.
	// Such a fence never reports a violation.
	GeometryErr error
	// RegionErr is set when the region boundary is malformed or missing.
	RegionErr error
}

// Compile decodes the fence geometry and, for a fence scoped to a project
// region, the region boundary. region is nil when the fence has no region or
// the referenced region could not be found.
func Compile(fence *models.Fence, region *models.ProjectRegion) *Rule {
	r := &Rule{Fence: fence}

	switch fence.Shape {
	case models.ShapeCircle:
		center, err := spatial.ParseCenter(fence.CoordinatesJSON)
		if err != nil {
			r.GeometryErr = err
			break
		}
		if fence.Radius == nil || *fence.Radius <= 0 {
			r.GeometryErr = fmt.Errorf("%w: circle radius must be positive", spatial.ErrMalformedGeometry)
			break
		}
		r.center, r.radius = center, *fence.Radius
	default:
		points, err := spatial.ParseCoordinates(fence.CoordinatesJSON)
		if err != nil {
			r.GeometryErr = err
			break
		}
		r.polygon = points
	}

	if fence.ProjectRegionID != nil {
		if region == nil {
			r.regionMissing = true
			r.RegionErr = fmt.Errorf("%w: id %d", ErrMissingRegion, *fence.ProjectRegionID)
		} else if points, err := spatial.ParseCoordinates(region.CoordinatesJSON); err != nil {
			r.RegionErr = fmt.Errorf("region %d: %w", region.ID, err)
		} else {
			r.region = points
		}
	}

	return r
}

// Contains reports whether pos lies inside the fence boundary
func (r *Rule) Contains(pos spatial.Point) bool {
	if r.GeometryErr != nil {
		return false
	}
	if r.Fence.Shape == models.ShapeCircle {
		return spatial.PointInCircle(pos, r.center, r.radius)
	}
	return spatial.PointInPolygon(pos, r.polygon)
}

// Violates resolves the behavior policy for one device position.
// A nil position is unknown and never violating.
func (r *Rule) Violates(pos *spatial.Point) bool {
	if pos == nil || r.GeometryErr != nil {
		return false
	}

	inside := r.Contains(*pos)

	switch r.Fence.Behavior {
	case models.BehaviorNoEntry:
		return inside
	case models.BehaviorNoExit:
		if r.Fence.ProjectRegionID == nil {
			return !inside
		}
		// 区域不存在时不报警，避免全局误报
		if r.regionMissing {
			return false
		}
		return spatial.PointInPolygon(*pos, r.region) && !inside
	default:
		return inside
	}
}

// Enforced reports whether the fence rules apply at now: the fence is active
// and inside its effective-time window. An unparsable window is returned as
// an error next to true.
func Enforced(fence *models.Fence, now time.Time) (bool, error) {
	if !fence.IsActive {
		return false, nil
	}
	return IsActiveAt(fence.EffectiveTime, now)
}

// DevicePosition returns the last known position of d, or nil
func DevicePosition(d *models.Device) *spatial.Point {
	if !d.HasPosition() {
		return nil
	}
	return &spatial.Point{Lat: *d.LastLatitude, Lon: *d.LastLongitude}
}
