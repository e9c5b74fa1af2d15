package spatial

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedGeometry is returned when a coordinate payload cannot be decoded
// into points. Callers treat the owning fence or region as non-evaluable.
var ErrMalformedGeometry = errors.New("malformed geometry")

// jsonPoint is the object form of a point: {"lat": 1.0, "lng": 2.0}.
// "lon" is accepted as an alias of "lng".
type jsonPoint struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
	Lon *float64 `json:"lon"`
}

// ParseCoordinates decodes a stored coordinate payload.
//
// A payload is either a single point (circle center) or an array of points
// (polygon vertices). Each point is a [lat, lng] array or a {"lat","lng"} object.
// Coordinates are passed through unchanged; no reprojection happens here.
func ParseCoordinates(raw string) ([]Point, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedGeometry)
	}

	switch data[0] {
	case '{':
		p, err := parsePoint(data)
		if err != nil {
			return nil, err
		}
		return []Point{p}, nil
	case '[':
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrMalformedGeometry)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}

	// A bare [lat, lng] pair is a single point
	if isNumberPair(elems) {
		p, err := parsePoint(data)
		if err != nil {
			return nil, err
		}
		return []Point{p}, nil
	}

	points := make([]Point, 0, len(elems))
	for i, elem := range elems {
		p, err := parsePoint(elem)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		points = append(points, p)
	}

	return points, nil
}

// ParseCenter decodes a circle center payload. Exactly one point is expected.
func ParseCenter(raw string) (Point, error) {
	points, err := ParseCoordinates(raw)
	if err != nil {
		return Point{}, err
	}
	if len(points) != 1 {
		return Point{}, fmt.Errorf("%w: circle center needs one point, got %d", ErrMalformedGeometry, len(points))
	}
	return points[0], nil
}

// EncodeCoordinates renders points in the canonical [[lat,lng],...] form.
func EncodeCoordinates(points []Point) string {
	pairs := make([][2]float64, len(points))
	for i, p := range points {
		pairs[i] = [2]float64{p.Lat, p.Lon}
	}
	// [][2]float64 always marshals
	data, _ := json.Marshal(pairs)
	return string(data)
}

// EncodePoint renders a single point in the canonical [lat,lng] form.
func EncodePoint(p Point) string {
	data, _ := json.Marshal([2]float64{p.Lat, p.Lon})
	return string(data)
}

func parsePoint(data json.RawMessage) (Point, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Point{}, fmt.Errorf("%w: empty point", ErrMalformedGeometry)
	}

	if data[0] == '{' {
		var obj jsonPoint
		if err := json.Unmarshal(data, &obj); err != nil {
			return Point{}, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
		}
		lng := obj.Lng
		if lng == nil {
			lng = obj.Lon
		}
		if obj.Lat == nil || lng == nil {
			return Point{}, fmt.Errorf("%w: point object needs lat and lng", ErrMalformedGeometry)
		}
		return Point{Lat: *obj.Lat, Lon: *lng}, nil
	}

	// null decodes to a nil pointer, not 0
	var values []*float64
	if err := json.Unmarshal(data, &values); err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	if len(values) < 2 {
		return Point{}, fmt.Errorf("%w: point needs two components, got %d", ErrMalformedGeometry, len(values))
	}
	if values[0] == nil || values[1] == nil {
		return Point{}, fmt.Errorf("%w: point component is null", ErrMalformedGeometry)
	}

	return Point{Lat: *values[0], Lon: *values[1]}, nil
}

func isNumberPair(elems []json.RawMessage) bool {
	if len(elems) != 2 {
		return false
	}
	for _, e := range elems {
		var f *float64
		if err := json.Unmarshal(e, &f); err != nil || f == nil {
			return false
		}
	}
	return true
}
