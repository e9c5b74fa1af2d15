package service

import (
	"fmt"
	"time"

	"github.com/jengzang/site-fence-backend-go/internal/models"
	"github.com/jengzang/site-fence-backend-go/internal/spatial"
)

// Violation is one device breaking one fence's rule at a point in time
type Violation struct {
	Fence    *models.Fence
	Device   *models.Device
	Position spatial.Point
	At       time.Time
}

// AlarmType maps the fence behavior to the alarm label
func (v *Violation) AlarmType() string {
	if v.Fence.Behavior == models.BehaviorNoEntry {
		return models.AlarmTypeFenceEntry
	}
	return models.AlarmTypeFenceExit
}

// Description names the device and fence
func (v *Violation) Description() string {
	name := v.Device.Name
	if name == "" {
		name = v.Device.ID
	}
	if v.Fence.Behavior == models.BehaviorNoEntry {
		return fmt.Sprintf("Device %s entered restricted area: %s", name, v.Fence.Name)
	}
	return fmt.Sprintf("Device %s left designated area: %s", name, v.Fence.Name)
}

// Record builds the pending alarm for this violation
func (v *Violation) Record() *models.Alarm {
	severity := v.Fence.AlarmLevel
	if !severity.Valid() {
		severity = models.LevelHigh
	}
	fenceID := v.Fence.ID

	return &models.Alarm{
		DeviceID:    v.Device.ID,
		FenceID:     &fenceID,
		AlarmType:   v.AlarmType(),
		Severity:    severity,
		Description: v.Description(),
		Location:    fmt.Sprintf("%.6f, %.6f", v.Position.Lat, v.Position.Lon),
		Status:      models.AlarmStatusPending,
		CreatedAt:   v.At,
	}
}
