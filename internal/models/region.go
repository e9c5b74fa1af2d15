package models

import "time"

// ProjectRegion is a larger site boundary that scopes No Exit fences
type ProjectRegion struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	CoordinatesJSON string    `json:"coordinatesJson" db:"coordinates_json"` // [[lat,lng],...]
	Remark          string    `json:"remark,omitempty" db:"remark"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}
