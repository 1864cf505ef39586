// README: Trip planner resolves both addresses, measures the trip and prices it with the shared pricing service.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hammamiayoub/vtc-new-sub000/internal/metrics"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/location"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/pricing"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

var ErrSameEndpoints = errors.New("pickup and destination resolve to the same place")

type AddressResolver interface {
	Resolve(ctx context.Context, address string) (*location.Resolution, error)
}

type DistanceMeasurer interface {
	Compute(ctx context.Context, origin, destination types.Point) location.Distance
}

// PlanRequest carries either free-text addresses or already-resolved points.
// A non-nil point wins over its address for coordinates; the address is kept
// for display.
type PlanRequest struct {
	PickupAddress      string
	DestinationAddress string
	Pickup             *types.Point
	Destination        *types.Point
	VehicleType        string
	ScheduledAt        *time.Time
	ReturnTrip         bool
}

type TripPlan struct {
	Pickup      location.Resolution `json:"pickup"`
	Destination location.Resolution `json:"destination"`
	Distance    location.Distance   `json:"distance"`
	Quote       pricing.Quote       `json:"quote"`
}

type TripPlanner struct {
	geocoder AddressResolver
	distance DistanceMeasurer
	pricing  *pricing.Service
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewTripPlanner(geocoder AddressResolver, distance DistanceMeasurer, pricingSvc *pricing.Service, m *metrics.Metrics, log *zap.Logger) *TripPlanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &TripPlanner{geocoder: geocoder, distance: distance, pricing: pricingSvc, metrics: m, log: log}
}

// Plan never returns a quote built on unresolved coordinates. The minimum
// distance is not enforced here; the quote carries BelowMinimum instead.
func (p *TripPlanner) Plan(ctx context.Context, req PlanRequest) (*TripPlan, error) {
	plan, err := p.plan(ctx, req)
	if err != nil {
		p.metrics.Quote(pricing.NormalizeVehicleType(req.VehicleType), quoteOutcome(err))
		return nil, err
	}
	p.metrics.Quote(plan.Quote.VehicleType, "ok")
	return plan, nil
}

func (p *TripPlanner) plan(ctx context.Context, req PlanRequest) (*TripPlan, error) {
	if !p.pricing.KnownVehicleType(req.VehicleType) {
		return nil, fmt.Errorf("%w: %q", pricing.ErrUnknownVehicleType, req.VehicleType)
	}

	var pickup, destination *location.Resolution
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := p.resolve(gctx, req.PickupAddress, req.Pickup)
		if err != nil {
			return fmt.Errorf("pickup: %w", err)
		}
		pickup = r
		return nil
	})
	g.Go(func() error {
		r, err := p.resolve(gctx, req.DestinationAddress, req.Destination)
		if err != nil {
			return fmt.Errorf("destination: %w", err)
		}
		destination = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if pickup.Position == destination.Position {
		return nil, ErrSameEndpoints
	}

	dist := p.distance.Compute(ctx, pickup.Position, destination.Position)
	quote, err := p.pricing.Quote(pricing.QuoteRequest{
		DistanceKm:  dist.Km,
		VehicleType: req.VehicleType,
		ScheduledAt: req.ScheduledAt,
		ReturnTrip:  req.ReturnTrip,
	})
	if err != nil {
		return nil, err
	}

	p.log.Debug("trip planned",
		zap.String("pickup", pickup.FormattedAddress),
		zap.String("destination", destination.FormattedAddress),
		zap.Float64("distance_km", dist.Km),
		zap.String("distance_source", string(dist.Source)),
		zap.Float64("price", quote.Price.Amount))

	return &TripPlan{
		Pickup:      *pickup,
		Destination: *destination,
		Distance:    dist,
		Quote:       quote,
	}, nil
}

func (p *TripPlanner) resolve(ctx context.Context, address string, point *types.Point) (*location.Resolution, error) {
	if point != nil {
		if !point.Valid() {
			return nil, location.ErrAddressUnresolved
		}
		return &location.Resolution{Position: *point, FormattedAddress: address}, nil
	}
	addr, err := location.ValidateAddress(address)
	if err != nil {
		return nil, err
	}
	return p.geocoder.Resolve(ctx, addr)
}

func quoteOutcome(err error) string {
	switch {
	case errors.Is(err, location.ErrAddressTooShort), errors.Is(err, location.ErrAddressUnresolved):
		return "unresolved"
	case errors.Is(err, pricing.ErrUnknownVehicleType):
		return "unknown_vehicle"
	default:
		return "error"
	}
}
