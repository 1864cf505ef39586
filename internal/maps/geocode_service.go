package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/location"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

// GeocodeService handles address searches against the Google Geocoding API.
type GeocodeService struct {
	client   *maps.Client
	country  string
	language string
}

// NewGeocodeService creates a GeocodeService restricted to country (ISO 3166-1
// alpha-2). Extra client options are appended, which tests use to point the
// client at a local server.
func NewGeocodeService(apiKey, country, language string, opts ...maps.ClientOption) (*GeocodeService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client, country: country, language: language}, nil
}

// Search returns the geocoding results for address in API rank order.
func (s *GeocodeService) Search(ctx context.Context, address string) ([]location.AddressCandidate, error) {
	r := &maps.GeocodingRequest{
		Address:  address,
		Language: s.language,
	}
	if s.country != "" {
		r.Components = map[maps.Component]string{maps.ComponentCountry: s.country}
	}

	results, err := s.client.Geocode(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("geocoding api error: %w", err)
	}

	out := make([]location.AddressCandidate, 0, len(results))
	for _, res := range results {
		out = append(out, location.AddressCandidate{
			FormattedAddress: res.FormattedAddress,
			Position:         types.Point{Lat: res.Geometry.Location.Lat, Lng: res.Geometry.Location.Lng},
		})
	}
	return out, nil
}
