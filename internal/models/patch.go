package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation marks client input that cannot be accepted
var ErrValidation = errors.New("validation failed")

// Field is a JSON field with explicit presence.
//
// Absent keys leave Set false; an explicit null sets Set and Null;
// any other value sets Set and Value.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON records presence before decoding the value
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Null = true
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// Value returns a present, non-null field
func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a present field holding JSON null
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

func requireValue[T any](name string, f Field[T]) error {
	if f.Null {
		return fmt.Errorf("%w: %s cannot be null", ErrValidation, name)
	}
	return nil
}

// FenceInput is the body of a fence creation request
type FenceInput struct {
	Name            string        `json:"name" binding:"required"`
	ProjectRegionID *int64        `json:"projectRegionId"`
	Shape           FenceShape    `json:"shape"`
	Behavior        FenceBehavior `json:"behavior"`
	CoordinatesJSON string        `json:"coordinatesJson" binding:"required"`
	Radius          *float64      `json:"radius"`
	EffectiveTime   string        `json:"effectiveTime"`
	AlarmLevel      AlarmLevel    `json:"alarmLevel"`
	IsActive        *bool         `json:"isActive"`
	Remark          string        `json:"remark"`
}

// ToFence builds a fence with defaults for omitted fields
func (in *FenceInput) ToFence() *Fence {
	f := &Fence{
		Name:            strings.TrimSpace(in.Name),
		ProjectRegionID: in.ProjectRegionID,
		Shape:           in.Shape,
		Behavior:        in.Behavior,
		CoordinatesJSON: in.CoordinatesJSON,
		Radius:          in.Radius,
		EffectiveTime:   strings.TrimSpace(in.EffectiveTime),
		AlarmLevel:      in.AlarmLevel,
		IsActive:        true,
		Remark:          in.Remark,
	}
	if f.Shape == "" {
		f.Shape = ShapePolygon
	}
	if f.Behavior == "" {
		f.Behavior = BehaviorNoExit
	}
	if f.AlarmLevel == "" {
		f.AlarmLevel = LevelMedium
	}
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}
	return f
}

// FencePatch is a partial fence update; only present fields are merged
type FencePatch struct {
	Name            Field[string]        `json:"name"`
	ProjectRegionID Field[int64]         `json:"projectRegionId"`
	Shape           Field[FenceShape]    `json:"shape"`
	Behavior        Field[FenceBehavior] `json:"behavior"`
	CoordinatesJSON Field[string]        `json:"coordinatesJson"`
	Radius          Field[float64]       `json:"radius"`
	EffectiveTime   Field[string]        `json:"effectiveTime"`
	AlarmLevel      Field[AlarmLevel]    `json:"alarmLevel"`
	IsActive        Field[bool]          `json:"isActive"`
	Remark          Field[string]        `json:"remark"`
}

// Apply merges the patch into f. Nullable fields are cleared by null;
// required fields reject null. Whole-fence validation happens afterwards.
func (p *FencePatch) Apply(f *Fence) error {
	for _, err := range []error{
		requireValue("name", p.Name),
		requireValue("shape", p.Shape),
		requireValue("behavior", p.Behavior),
		requireValue("coordinatesJson", p.CoordinatesJSON),
		requireValue("alarmLevel", p.AlarmLevel),
		requireValue("isActive", p.IsActive),
	} {
		if err != nil {
			return err
		}
	}

	if p.Name.Set {
		f.Name = strings.TrimSpace(p.Name.Value)
	}
	if p.ProjectRegionID.Set {
		if p.ProjectRegionID.Null {
			f.ProjectRegionID = nil
		} else {
			id := p.ProjectRegionID.Value
			f.ProjectRegionID = &id
		}
	}
	if p.Shape.Set {
		f.Shape = p.Shape.Value
	}
	if p.Behavior.Set {
		f.Behavior = p.Behavior.Value
	}
	if p.CoordinatesJSON.Set {
		f.CoordinatesJSON = p.CoordinatesJSON.Value
	}
	if p.Radius.Set {
		if p.Radius.Null {
			f.Radius = nil
		} else {
			r := p.Radius.Value
			f.Radius = &r
		}
	}
	if p.EffectiveTime.Set {
		f.EffectiveTime = strings.TrimSpace(p.EffectiveTime.Value)
	}
	if p.AlarmLevel.Set {
		f.AlarmLevel = p.AlarmLevel.Value
	}
	if p.IsActive.Set {
		f.IsActive = p.IsActive.Value
	}
	if p.Remark.Set {
		f.Remark = p.Remark.Value
	}
	return nil
}

// RegionInput is the body of a region creation request
type RegionInput struct {
	Name            string `json:"name" binding:"required"`
	CoordinatesJSON string `json:"coordinatesJson" binding:"required"`
	Remark          string `json:"remark"`
}

// RegionPatch is a partial region update
type RegionPatch struct {
	Name            Field[string] `json:"name"`
	CoordinatesJSON Field[string] `json:"coordinatesJson"`
	Remark          Field[string] `json:"remark"`
}

// GeometryChanged reports whether the patch touches the region boundary
func (p *RegionPatch) GeometryChanged() bool {
	return p.CoordinatesJSON.Set
}

// Apply merges the patch into r
func (p *RegionPatch) Apply(r *ProjectRegion) error {
	if err := requireValue("name", p.Name); err != nil {
		return err
	}
	if err := requireValue("coordinatesJson", p.CoordinatesJSON); err != nil {
		return err
	}

	if p.Name.Set {
		r.Name = strings.TrimSpace(p.Name.Value)
	}
	if p.CoordinatesJSON.Set {
		r.CoordinatesJSON = p.CoordinatesJSON.Value
	}
	if p.Remark.Set {
		r.Remark = p.Remark.Value
	}
	return nil
}

// AlarmPatch is an operator update of an alarm
type AlarmPatch struct {
	Status      Field[AlarmStatus] `json:"status"`
	Description Field[string]      `json:"description"`
	Severity    Field[AlarmLevel]  `json:"severity"`
}

// Apply merges the patch into a. Resolving stamps HandledAt with now;
// a resolved alarm cannot be reopened.
func (p *AlarmPatch) Apply(a *Alarm, now time.Time) error {
	if err := requireValue("status", p.Status); err != nil {
		return err
	}
	if err := requireValue("description", p.Description); err != nil {
		return err
	}
	if err := requireValue("severity", p.Severity); err != nil {
		return err
	}

	if p.Status.Set {
		switch p.Status.Value {
		case AlarmStatusResolved:
			if a.Status == AlarmStatusPending {
				a.Status = AlarmStatusResolved
				handled := now
				a.HandledAt = &handled
			}
		case AlarmStatusPending:
			if a.Status == AlarmStatusResolved {
				return fmt.Errorf("%w: resolved alarms cannot be reopened", ErrValidation)
			}
		default:
			return fmt.Errorf("%w: unknown alarm status %q", ErrValidation, p.Status.Value)
		}
	}
	if p.Description.Set {
		a.Description = p.Description.Value
	}
	if p.Severity.Set {
		if !p.Severity.Value.Valid() {
			return fmt.Errorf("%w: unknown severity %q", ErrValidation, p.Severity.Value)
		}
		a.Severity = p.Severity.Value
	}
	return nil
}
