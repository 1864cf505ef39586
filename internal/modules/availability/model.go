// README: Driver availability slot and wall-clock time types.
package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidTime    = errors.New("time must be HH:MM (24-hour)")
	ErrInvalidDate    = errors.New("date must be YYYY-MM-DD")
	ErrInvalidWindow  = errors.New("slot start must be before its end")
	ErrSlotNotFound   = errors.New("availability slot not found")
	ErrDriverRequired = errors.New("driver id is required")
)

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

// ParseClock accepts "HH:MM" and the "HH:MM:SS" form Postgres prints for TIME
// columns; seconds are dropped.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Clock(h*60 + m), nil
}

func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

type Slot struct {
	ID          types.ID  `json:"id"`
	DriverID    types.ID  `json:"driver_id"`
	Date        string    `json:"date"`
	StartTime   Clock     `json:"start_time"`
	EndTime     Clock     `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// Covers reports whether t lies within [StartTime, EndTime] inclusive.
func (s Slot) Covers(t Clock) bool {
	return s.IsAvailable && s.StartTime <= t && t <= s.EndTime
}

type CreateSlotCommand struct {
	DriverID    types.ID
	Date        string
	StartTime   string
	EndTime     string
	IsAvailable *bool
}
