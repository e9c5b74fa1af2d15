package spatial

import (
	"math"
)

// Point represents a 2D point with latitude and longitude
type Point struct {
	Lat float64
	Lon float64
}

// Centroid calculates the arithmetic centroid of a set of points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}

	return Point{
		Lat: sumLat / float64(len(points)),
		Lon: sumLon / float64(len(points)),
	}
}

// BoundingBox calculates the bounding box of a set of points
// Returns (minLat, minLon, maxLat, maxLon)
func BoundingBox(points []Point) (float64, float64, float64, float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}

	minLat, maxLat := points[0].Lat, points[0].Lat
	minLon, maxLon := points[0].Lon, points[0].Lon

	for _, p := range points[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}

	return minLat, minLon, maxLat, maxLon
}

// PolygonArea approximates the area of a small polygon in square meters
// with the shoelace formula on a local equirectangular projection.
func PolygonArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}

	var sum float64
	for i := 0; i < len(points); i++ {
		j := (i + 1) % len(points)
		sum += (points[j].Lon - points[i].Lon) * (points[j].Lat + points[i].Lat)
	}

	latRad := Centroid(points).Lat * math.Pi / 180
	metersPerDegreeLat := 111320.0
	metersPerDegreeLon := 111320.0 * math.Cos(latRad)

	return math.Abs(sum) * metersPerDegreeLat * metersPerDegreeLon / 2.0
}

// CircleArea returns the area of a circle in square meters
func CircleArea(radius float64) float64 {
	if radius <= 0 {
		return 0
	}
	return math.Pi * radius * radius
}

// PointInPolygon checks if a point is inside a polygon using ray casting.
//
// The ray runs toward increasing x (longitude). An edge is crossed when
// min(y1,y2) < y <= max(y1,y2) and the point lies at or left of the edge,
// so a ray through a shared vertex is counted exactly once. Polygons with
// fewer than three vertices contain nothing.
func PointInPolygon(point Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	x, y := point.Lon, point.Lat
	inside := false
	j := len(polygon) - 1

	for i := 0; i < len(polygon); i++ {
		x1, y1 := polygon[j].Lon, polygon[j].Lat
		x2, y2 := polygon[i].Lon, polygon[i].Lat

		if y > math.Min(y1, y2) && y <= math.Max(y1, y2) {
			// y1 != y2 here, horizontal edges never pass the interval test
			xCross := (y-y1)*(x2-x1)/(y2-y1) + x1
			if x <= xCross {
				inside = !inside
			}
		}
		j = i
	}

	return inside
}

// PointInCircle reports whether point lies within radius meters of center
func PointInCircle(point, center Point, radius float64) bool {
	return DistanceMeters(point, center) <= radius
}
