package models

import "time"

// Device is a tracked helmet, badge or vehicle terminal
type Device struct {
	ID            string   `json:"id" db:"id"`
	Name          string   `json:"name" db:"device_name"`
	Type          string   `json:"type,omitempty" db:"device_type"` // e.g. HELMET_CAM, VEHICLE
	IsOnline      bool     `json:"isOnline" db:"is_online"`
	LastLatitude  *float64 `json:"lastLatitude" db:"last_latitude"`
	LastLongitude *float64 `json:"lastLongitude" db:"last_longitude"`

	// PositionUpdatedAt is nil until the first location report
	PositionUpdatedAt *time.Time `json:"positionUpdatedAt,omitempty" db:"position_updated_at"`
}

// HasPosition reports whether the last known position is set
func (d *Device) HasPosition() bool {
	return d.LastLatitude != nil && d.LastLongitude != nil
}

// DeviceInput is the body of a device registration request
type DeviceInput struct {
	ID       string `json:"id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Type     string `json:"type"`
	IsOnline bool   `json:"isOnline"`
}
