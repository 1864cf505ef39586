package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

var ErrNoRoute = errors.New("no route found")

// RouteService handles driving-distance lookups against the Distance Matrix API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string, opts ...maps.ClientOption) (*RouteService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// DrivingDistanceKm returns the driving distance between two coordinates.
func (s *RouteService) DrivingDistanceKm(ctx context.Context, origin, destination types.Point) (float64, error) {
	r := &maps.DistanceMatrixRequest{
		Origins:      []string{origin.LatLngString()},
		Destinations: []string{destination.LatLngString()},
		Mode:         maps.TravelModeDriving,
	}

	resp, err := s.client.DistanceMatrix(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, ErrNoRoute
	}
	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" || el.Distance.Meters <= 0 {
		return 0, fmt.Errorf("%w: element status %s", ErrNoRoute, el.Status)
	}
	return float64(el.Distance.Meters) / 1000, nil
}
