// README: Matching service runs a driver search end to end and drops superseded searches.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hammamiayoub/vtc-new-sub000/internal/config"
	"github.com/hammamiayoub/vtc-new-sub000/internal/metrics"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/location"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/subscription"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type AvailabilityFinder interface {
	FindAvailable(ctx context.Context, date time.Time, at string) (map[types.ID]struct{}, error)
}

type DriverLoader interface {
	LoadDrivers(ctx context.Context, ids []types.ID) ([]DriverRecord, error)
}

type QuotaChecker interface {
	Check(ctx context.Context, driverID types.ID) (subscription.Decision, *subscription.Snapshot, error)
}

type PickupResolver interface {
	Resolve(ctx context.Context, address string) (*location.Resolution, error)
}

type GenerationStore interface {
	NextGeneration(ctx context.Context, clientKey string) (int64, error)
	LatestGeneration(ctx context.Context, clientKey string) (int64, error)
}

type Deps struct {
	Availability AvailabilityFinder
	Drivers      DriverLoader
	Quota        QuotaChecker
	Geocoder     PickupResolver
	Generations  GenerationStore
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}

type inflightSearch struct {
	gen    int64
	cancel context.CancelFunc
}

type Service struct {
	deps Deps
	cfg  config.MatchingConfig
	log  *zap.Logger

	mu       sync.Mutex
	inflight map[string]inflightSearch
	localGen map[string]int64
}

func NewService(deps Deps, cfg config.MatchingConfig) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.QuotaConcurrency <= 0 {
		cfg.QuotaConcurrency = 1
	}
	if cfg.QuotaTimeout <= 0 {
		cfg.QuotaTimeout = 2 * time.Second
	}
	return &Service{
		deps:     deps,
		cfg:      cfg,
		log:      log,
		inflight: make(map[string]inflightSearch),
		localGen: make(map[string]int64),
	}
}

// Search returns the ranked eligible drivers for the requested slot. A newer
// search for the same client cancels this one; either way a superseded
// search returns ErrStaleSearch instead of results.
func (s *Service) Search(ctx context.Context, q SearchQuery) (SearchResult, error) {
	start := time.Now()
	res, err := s.search(ctx, q)
	s.deps.Metrics.Search(outcome(res, err), time.Since(start))
	return res, err
}

func outcome(res SearchResult, err error) string {
	switch {
	case errors.Is(err, ErrStaleSearch):
		return "stale"
	case err != nil:
		return "error"
	case len(res.Candidates) == 0:
		return "empty"
	default:
		return "ok"
	}
}

func (s *Service) search(ctx context.Context, q SearchQuery) (SearchResult, error) {
	if q.ClientKey == "" {
		return SearchResult{}, ErrClientKeyMissing
	}
	if q.Date.IsZero() || q.Time == "" {
		return SearchResult{}, ErrInvalidSearch
	}

	ctx, gen, done := s.begin(ctx, q.ClientKey)
	defer done()
	// Quota checks carry their own deadline and only abort with the request.
	quotaCtx := ctx
	if s.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SearchTimeout)
		defer cancel()
	}

	result := SearchResult{Generation: gen, Candidates: []Candidate{}}

	available, err := s.deps.Availability.FindAvailable(ctx, q.Date, q.Time)
	if err != nil {
		return s.fail(ctx, q.ClientKey, gen, fmt.Errorf("find available: %w", err))
	}

	if len(available) > 0 {
		ids := make([]types.ID, 0, len(available))
		for id := range available {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		records, err := s.deps.Drivers.LoadDrivers(ctx, ids)
		if err != nil {
			return s.fail(ctx, q.ClientKey, gen, fmt.Errorf("load drivers: %w", err))
		}
		// Slot coverage is re-checked against the loaded set.
		records = onlyAvailable(records, available)

		candidates := FilterEligible(records, q.VehicleType)
		candidates, err = s.applyQuota(quotaCtx, candidates)
		if err != nil {
			return s.fail(ctx, q.ClientKey, gen, err)
		}

		pickup := s.resolvePickup(ctx, q)
		result.PickupKnown = pickup != nil
		if pickup != nil {
			for i := range candidates {
				d := location.DistanceFromCity(candidates[i].City, *pickup)
				if !math.IsInf(d, 1) {
					candidates[i].DistanceFromPickupKm = &d
				}
			}
		}
		Rank(candidates, result.PickupKnown)
		result.Candidates = candidates
	} else {
		result.PickupKnown = q.Pickup != nil
	}

	if !s.isLatest(ctx, q.ClientKey, gen) {
		return SearchResult{Generation: gen}, ErrStaleSearch
	}
	return result, nil
}

func (s *Service) fail(ctx context.Context, clientKey string, gen int64, err error) (SearchResult, error) {
	if !s.isLatest(ctx, clientKey, gen) {
		return SearchResult{Generation: gen}, ErrStaleSearch
	}
	return SearchResult{Generation: gen}, err
}

func onlyAvailable(records []DriverRecord, available map[types.ID]struct{}) []DriverRecord {
	out := records[:0]
	for _, r := range records {
		if _, ok := available[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// applyQuota runs the subscription checks concurrently, bounded by
// QuotaConcurrency. Each check gets QuotaTimeout; a check that errors or times
// out is Unknown and resolves through subscription.UnknownQuotaPolicy. Only
// cancellation of ctx itself aborts. Denied drivers are dropped.
func (s *Service) applyQuota(ctx context.Context, cs []Candidate) ([]Candidate, error) {
	if s.deps.Quota == nil || len(cs) == 0 {
		return cs, nil
	}
	decisions := make([]subscription.Decision, len(cs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.QuotaConcurrency)
	for i := range cs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cctx, cancel := context.WithTimeout(gctx, s.cfg.QuotaTimeout)
			d, snap, err := s.deps.Quota.Check(cctx, cs[i].DriverID)
			cancel()
			if err != nil {
				if perr := gctx.Err(); perr != nil {
					return perr
				}
				d, snap = subscription.Unknown, nil
			}
			decisions[i] = d
			cs[i].Subscription = snap
			cs[i].QuotaDecision = d.String()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := cs[:0]
	for i, c := range cs {
		d := decisions[i]
		s.deps.Metrics.QuotaDecision(d.String())
		if d == subscription.Unknown {
			s.log.Warn("quota unknown, applying policy",
				zap.String("driver_id", c.DriverID.String()),
				zap.String("policy", subscription.UnknownQuotaPolicy.String()))
		}
		if d.Resolve() == subscription.Denied {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Eligible applies the search inclusion rules to a single driver: a slot
// covering date and at, active status, a vehicle of vehicleType when one is
// requested, and a quota decision that does not resolve to Denied.
func (s *Service) Eligible(ctx context.Context, driverID types.ID, date time.Time, at string, vehicleType string) (bool, error) {
	available, err := s.deps.Availability.FindAvailable(ctx, date, at)
	if err != nil {
		return false, fmt.Errorf("find available: %w", err)
	}
	if _, ok := available[driverID]; !ok {
		return false, nil
	}
	records, err := s.deps.Drivers.LoadDrivers(ctx, []types.ID{driverID})
	if err != nil {
		return false, fmt.Errorf("load drivers: %w", err)
	}
	candidates, err := s.applyQuota(ctx, FilterEligible(records, vehicleType))
	if err != nil {
		return false, err
	}
	return len(candidates) == 1, nil
}

func (s *Service) resolvePickup(ctx context.Context, q SearchQuery) *types.Point {
	if q.Pickup != nil && q.Pickup.Valid() {
		p := *q.Pickup
		return &p
	}
	if s.deps.Geocoder == nil {
		return nil
	}
	addr, err := location.ValidateAddress(q.PickupAddress)
	if err != nil {
		return nil
	}
	res, err := s.deps.Geocoder.Resolve(ctx, addr)
	if err != nil {
		return nil
	}
	return &res.Position
}

// begin registers a search for clientKey, cancelling any older in-flight
// search for the same key in this process.
func (s *Service) begin(parent context.Context, clientKey string) (context.Context, int64, func()) {
	gen := s.nextGeneration(parent, clientKey)
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if prev, ok := s.inflight[clientKey]; ok && prev.gen < gen {
		prev.cancel()
	}
	if prev, ok := s.inflight[clientKey]; !ok || prev.gen < gen {
		s.inflight[clientKey] = inflightSearch{gen: gen, cancel: cancel}
	}
	if gen > s.localGen[clientKey] {
		s.localGen[clientKey] = gen
	}
	s.mu.Unlock()

	done := func() {
		cancel()
		s.mu.Lock()
		if cur, ok := s.inflight[clientKey]; ok && cur.gen == gen {
			delete(s.inflight, clientKey)
		}
		s.mu.Unlock()
	}
	return ctx, gen, done
}

func (s *Service) nextGeneration(ctx context.Context, clientKey string) int64 {
	if s.deps.Generations != nil {
		gen, err := s.deps.Generations.NextGeneration(ctx, clientKey)
		if err == nil {
			return gen
		}
		s.log.Warn("generation store unavailable, using local counter", zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localGen[clientKey]++
	return s.localGen[clientKey]
}

// isLatest reports whether gen is still the newest search for clientKey,
// consulting this process first and the shared store second.
func (s *Service) isLatest(ctx context.Context, clientKey string, gen int64) bool {
	s.mu.Lock()
	local := s.localGen[clientKey]
	s.mu.Unlock()
	if local > gen {
		return false
	}
	if s.deps.Generations == nil {
		return true
	}
	latest, err := s.deps.Generations.LatestGeneration(context.WithoutCancel(ctx), clientKey)
	if err != nil {
		s.log.Debug("generation check failed", zap.Error(err))
		return true
	}
	return latest <= gen
}
