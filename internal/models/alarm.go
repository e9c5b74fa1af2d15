package models

import "time"

// AlarmStatus is the lifecycle state of an alarm record
type AlarmStatus string

const (
	AlarmStatusPending  AlarmStatus = "pending"
	AlarmStatusResolved AlarmStatus = "resolved"
)

// Alarm types raised by fence evaluation
const (
	AlarmTypeFenceEntry = "FENCE_ENTRY" // 电子围栏闯入
	AlarmTypeFenceExit  = "FENCE_EXIT"  // 电子围栏越界
)

// Alarm is an append-only alarm record
type Alarm struct {
	ID          int64       `json:"id" db:"id"`
	DeviceID    string      `json:"deviceId" db:"device_id"`
	FenceID     *int64      `json:"fenceId" db:"fence_id"` // cleared when the fence is deleted
	AlarmType   string      `json:"alarmType" db:"alarm_type"`
	Severity    AlarmLevel  `json:"severity" db:"severity"`
	Description string      `json:"description" db:"description"`
	Location    string      `json:"location,omitempty" db:"location"` // "lat, lng" with 6 decimals
	Status      AlarmStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	HandledAt   *time.Time  `json:"handledAt,omitempty" db:"handled_at"` // set on resolution only
}

// AlarmsResponse represents a paginated response of alarms
type AlarmsResponse struct {
	Data       []Alarm `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}

// DashboardSummary holds the counters shown on the dashboard cards
type DashboardSummary struct {
	FenceCount      int64 `json:"fenceCount"`
	DeviceCount     int64 `json:"deviceCount"`
	AlarmCountToday int64 `json:"alarmCount"`
	PendingAlarms   int64 `json:"pendingAlarmCount"`
}
