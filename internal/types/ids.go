// README: Identifier and coordinate value objects shared by modules.
package types

import "fmt"

type ID string

func (id ID) String() string { return string(id) }

// Point is an immutable latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LatLngString formats the point the way map APIs expect ("lat,lng").
func (p Point) LatLngString() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
