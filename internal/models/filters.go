package models

// FenceFilter represents filter parameters for querying fences
type FenceFilter struct {
	Behavior string `form:"behavior"` // No Entry, No Exit
	RegionID int64  `form:"regionId"`
	Active   string `form:"active"` // "true", "false" or empty for both
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// AlarmFilter represents filter parameters for querying alarms
type AlarmFilter struct {
	Status    string `form:"status"` // pending, resolved
	DeviceID  string `form:"deviceId"`
	FenceID   int64  `form:"fenceId"`
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// Normalize clamps page and page size the same way for every list endpoint
func Normalize(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	if pageSize > 1000 {
		pageSize = 1000
	}
	return page, pageSize
}

// TotalPages returns the number of pages needed for total items
func TotalPages(total int64, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
