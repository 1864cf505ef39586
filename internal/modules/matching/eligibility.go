// README: Eligibility filter on status and vehicle type.
package matching

import "strings"

// FilterEligible keeps active drivers that own a vehicle of vehicleType (any
// type when empty) and projects them into candidates.
func FilterEligible(records []DriverRecord, vehicleType string) []Candidate {
	want := strings.ToLower(strings.TrimSpace(vehicleType))
	out := make([]Candidate, 0, len(records))
	for _, r := range records {
		if r.Status != DriverStatusActive {
			continue
		}
		v, ok := pickVehicle(r, want)
		if !ok {
			continue
		}
		c := Candidate{
			DriverID:      r.ID,
			FullName:      r.FullName,
			City:          r.City,
			AverageRating: r.AverageRating,
			RatingCount:   r.RatingCount,
		}
		if v != nil {
			vv := *v
			c.Vehicle = &vv
			c.HasPhoto = vv.HasPhoto()
		}
		out = append(out, c)
	}
	return out
}

// pickVehicle chooses the vehicle a candidate is presented with. Normalized
// vehicles are used exclusively when the driver has any; the legacy embedded
// vehicle is consulted otherwise. Among matches a vehicle with a photo wins.
func pickVehicle(r DriverRecord, want string) (*Vehicle, bool) {
	pool := r.Vehicles
	if len(pool) == 0 && r.Legacy != nil {
		pool = []Vehicle{*r.Legacy}
	}

	var best *Vehicle
	for i := range pool {
		v := &pool[i]
		if want != "" && strings.ToLower(v.Type) != want {
			continue
		}
		if best == nil || (!best.HasPhoto() && v.HasPhoto()) {
			best = v
		}
	}
	if best != nil {
		return best, true
	}
	if want == "" {
		return nil, true
	}
	return nil, false
}
