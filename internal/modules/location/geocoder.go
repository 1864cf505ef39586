// README: Geocoder resolves free-text addresses, static city table first, external address search second.
package location

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

var (
	ErrAddressUnresolved = errors.New("cannot compute a price for this address")
	ErrAddressTooShort   = errors.New("address must be at least 3 characters")
)

// MinAddressLength is enforced by callers before Resolve is invoked.
const MinAddressLength = 3

// AddressCandidate is one ranked hit from an address search backend.
type AddressCandidate struct {
	FormattedAddress string
	Position         types.Point
}

// AddressSearcher queries an external address search constrained to the
// operating country.
type AddressSearcher interface {
	Search(ctx context.Context, address string) ([]AddressCandidate, error)
}

type Resolution struct {
	Position         types.Point `json:"position"`
	FormattedAddress string      `json:"formatted_address"`
	FromCityTable    bool        `json:"from_city_table"`
}

type Geocoder struct {
	searcher AddressSearcher
	timeout  time.Duration
	log      *zap.Logger
}

// NewGeocoder builds a geocoder. searcher may be nil, in which case only the
// static city table is consulted.
func NewGeocoder(searcher AddressSearcher, timeout time.Duration, log *zap.Logger) *Geocoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Geocoder{searcher: searcher, timeout: timeout, log: log}
}

// ValidateAddress trims the input and rejects addresses below MinAddressLength.
func ValidateAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if utf8.RuneCountInString(trimmed) < MinAddressLength {
		return "", ErrAddressTooShort
	}
	return trimmed, nil
}

// Resolve returns coordinates for address, or ErrAddressUnresolved when
// neither the city table nor the search backend yields a usable result.
func (g *Geocoder) Resolve(ctx context.Context, address string) (*Resolution, error) {
	if city, ok := LookupCity(address); ok {
		return &Resolution{
			Position:         city.Position,
			FormattedAddress: address,
			FromCityTable:    true,
		}, nil
	}
	if g.searcher == nil {
		return nil, ErrAddressUnresolved
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	candidates, err := g.searcher.Search(ctx, address)
	if err != nil {
		g.log.Warn("address search failed", zap.String("address", address), zap.Error(err))
		return nil, ErrAddressUnresolved
	}
	if len(candidates) == 0 {
		return nil, ErrAddressUnresolved
	}
	first := candidates[0]
	if !first.Position.Valid() {
		return nil, ErrAddressUnresolved
	}
	formatted := first.FormattedAddress
	if formatted == "" {
		formatted = address
	}
	return &Resolution{Position: first.Position, FormattedAddress: formatted}, nil
}
