package models

import "time"

// FenceShape is the geometry variant of a fence
type FenceShape string

const (
	ShapePolygon FenceShape = "polygon"
	ShapeCircle  FenceShape = "circle"
)

// Valid reports whether s is a known shape
func (s FenceShape) Valid() bool {
	return s == ShapePolygon || s == ShapeCircle
}

// FenceBehavior is the enforcement policy of a fence
type FenceBehavior string

const (
	BehaviorNoEntry FenceBehavior = "No Entry" // 禁入: being inside is a violation
	BehaviorNoExit  FenceBehavior = "No Exit"  // 禁出: being outside is a violation
)

// Valid reports whether b is a known behavior
func (b FenceBehavior) Valid() bool {
	return b == BehaviorNoEntry || b == BehaviorNoExit
}

// AlarmLevel is the severity configured on a fence and copied onto its alarms
type AlarmLevel string

const (
	LevelHigh   AlarmLevel = "high"
	LevelMedium AlarmLevel = "medium"
	LevelLow    AlarmLevel = "low"
)

// Valid reports whether l is a known level
func (l AlarmLevel) Valid() bool {
	return l == LevelHigh || l == LevelMedium || l == LevelLow
}

// Fence is an electronic fence (电子围栏) on the site
type Fence struct {
	ID              int64         `json:"id" db:"id"`
	Name            string        `json:"name" db:"name"`
	ProjectRegionID *int64        `json:"projectRegionId" db:"project_region_id"` // weak reference, cleared on region deletion
	Shape           FenceShape    `json:"shape" db:"shape"`
	Behavior        FenceBehavior `json:"behavior" db:"behavior"`
	CoordinatesJSON string        `json:"coordinatesJson" db:"coordinates_json"` // polygon: [[lat,lng],...], circle: [lat,lng]
	Radius          *float64      `json:"radius,omitempty" db:"radius"`          // meters, circle only
	EffectiveTime   string        `json:"effectiveTime" db:"effective_time"`     // e.g. 5.00-23.00, empty means always
	AlarmLevel      AlarmLevel    `json:"alarmLevel" db:"alarm_level"`
	IsActive        bool          `json:"isActive" db:"is_active"`
	Remark          string        `json:"remark,omitempty" db:"remark"`

	// ViolatorCount is derived: the number of positioned devices currently
	// violating this fence. Zero while the fence is dormant.
	ViolatorCount int `json:"violatorCount" db:"violator_count"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// FenceView is a fence plus derived geometry for map display
type FenceView struct {
	Fence
	Centroid         *LatLng `json:"centroid,omitempty"`
	AreaSquareMeters float64 `json:"areaSquareMeters"`
}

// LatLng is a plain coordinate pair in API responses
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FencesResponse represents a paginated response of fences
type FencesResponse struct {
	Data       []FenceView `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}
