package availability

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type memStore struct {
	slots  []Slot
	err    error
	lastOn string
}

func (m *memStore) Insert(ctx context.Context, s *Slot) error {
	if m.err != nil {
		return m.err
	}
	m.slots = append(m.slots, *s)
	return nil
}

func (m *memStore) ListAvailableOn(ctx context.Context, date string) ([]Slot, error) {
	m.lastOn = date
	if m.err != nil {
		return nil, m.err
	}
	var out []Slot
	for _, s := range m.slots {
		if s.Date == date && s.IsAvailable {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) ListByDriver(ctx context.Context, driverID types.ID, from, to string) ([]Slot, error) {
	var out []Slot
	for _, s := range m.slots {
		if s.DriverID == driverID && s.Date >= from && s.Date <= to {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, driverID, slotID types.ID) (bool, error) {
	for i, s := range m.slots {
		if s.ID == slotID && s.DriverID == driverID {
			m.slots = append(m.slots[:i], m.slots[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SetAvailable(ctx context.Context, driverID, slotID types.ID, available bool) (bool, error) {
	for i, s := range m.slots {
		if s.ID == slotID && s.DriverID == driverID {
			m.slots[i].IsAvailable = available
			return true, nil
		}
	}
	return false, nil
}

func slot(driver, date, start, end string, available bool) Slot {
	st, _ := ParseClock(start)
	en, _ := ParseClock(end)
	return Slot{ID: types.ID(driver + date + start), DriverID: types.ID(driver), Date: date, StartTime: st, EndTime: en, IsAvailable: available}
}

func ids(set map[types.ID]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"14:05:00", 845, false},
		{"24:00", 0, true},
		{"9:30", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
		if err != nil && !errors.Is(err, ErrInvalidTime) {
			t.Errorf("ParseClock(%q) error should wrap ErrInvalidTime", tt.in)
		}
	}
}

func TestFindAvailable_InclusiveBounds(t *testing.T) {
	store := &memStore{slots: []Slot{
		slot("d1", "2026-10-20", "08:00", "12:00", true),
		slot("d1", "2026-10-20", "14:00", "18:00", true),
		slot("d2", "2026-10-20", "12:00", "20:00", true),
		slot("d3", "2026-10-20", "06:00", "22:00", false),
		slot("d4", "2026-10-21", "00:00", "23:59", true),
	}}
	svc := NewService(store)
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		at   string
		want []string
	}{
		{"07:59", nil},
		{"08:00", []string{"d1"}},
		{"12:00", []string{"d1", "d2"}},
		{"13:00", []string{"d2"}},
		{"18:00", []string{"d1", "d2"}},
		{"20:00", []string{"d2"}},
		{"20:01", nil},
	}
	for _, tt := range tests {
		t.Run(tt.at, func(t *testing.T) {
			got, err := svc.FindAvailable(context.Background(), date, tt.at)
			if err != nil {
				t.Fatalf("FindAvailable() error = %v", err)
			}
			if g := ids(got); len(g) != len(tt.want) || (len(g) > 0 && !equal(g, tt.want)) {
				t.Errorf("FindAvailable(%s) = %v, want %v", tt.at, g, tt.want)
			}
		})
	}
	if store.lastOn != "2026-10-20" {
		t.Errorf("queried date = %s, want exact requested date", store.lastOn)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindAvailable_EmptyIsNotAnError(t *testing.T) {
	svc := NewService(&memStore{})
	got, err := svc.FindAvailable(context.Background(), time.Now(), "10:00")
	if err != nil {
		t.Fatalf("FindAvailable() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil set, got %v", got)
	}
}

func TestFindAvailable_Errors(t *testing.T) {
	svc := NewService(&memStore{})
	if _, err := svc.FindAvailable(context.Background(), time.Now(), "25:00"); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("expected ErrInvalidTime, got %v", err)
	}

	boom := errors.New("db down")
	svc = NewService(&memStore{err: boom})
	if _, err := svc.FindAvailable(context.Background(), time.Now(), "10:00"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

func TestCreateSlot(t *testing.T) {
	store := &memStore{}
	svc := NewService(store)
	ctx := context.Background()

	s, err := svc.CreateSlot(ctx, CreateSlotCommand{DriverID: "d1", Date: "2026-10-20", StartTime: "09:00", EndTime: "17:30"})
	if err != nil {
		t.Fatalf("CreateSlot() error = %v", err)
	}
	if s.ID == "" || !s.IsAvailable || s.StartTime.String() != "09:00" || s.EndTime.String() != "17:30" {
		t.Errorf("unexpected slot: %+v", s)
	}

	off := false
	s2, err := svc.CreateSlot(ctx, CreateSlotCommand{DriverID: "d1", Date: "2026-10-21", StartTime: "09:00", EndTime: "10:00", IsAvailable: &off})
	if err != nil || s2.IsAvailable {
		t.Errorf("expected unavailable slot, got %+v, %v", s2, err)
	}

	bad := []struct {
		name string
		cmd  CreateSlotCommand
		want error
	}{
		{"no driver", CreateSlotCommand{Date: "2026-10-20", StartTime: "09:00", EndTime: "10:00"}, ErrDriverRequired},
		{"bad date", CreateSlotCommand{DriverID: "d1", Date: "20/10/2026", StartTime: "09:00", EndTime: "10:00"}, ErrInvalidDate},
		{"bad time", CreateSlotCommand{DriverID: "d1", Date: "2026-10-20", StartTime: "9h", EndTime: "10:00"}, ErrInvalidTime},
		{"reversed", CreateSlotCommand{DriverID: "d1", Date: "2026-10-20", StartTime: "10:00", EndTime: "09:00"}, ErrInvalidWindow},
		{"empty window", CreateSlotCommand{DriverID: "d1", Date: "2026-10-20", StartTime: "10:00", EndTime: "10:00"}, ErrInvalidWindow},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateSlot(ctx, tt.cmd); !errors.Is(err, tt.want) {
				t.Errorf("CreateSlot() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(store.slots) != 2 {
		t.Errorf("expected 2 stored slots, got %d", len(store.slots))
	}
}

func TestDeleteAndToggleSlot_Ownership(t *testing.T) {
	store := &memStore{slots: []Slot{slot("d1", "2026-10-20", "08:00", "12:00", true)}}
	svc := NewService(store)
	ctx := context.Background()
	id := store.slots[0].ID

	if err := svc.SetAvailable(ctx, "d2", id, false); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("other driver toggle: err = %v, want ErrSlotNotFound", err)
	}
	if err := svc.SetAvailable(ctx, "d1", id, false); err != nil {
		t.Fatalf("SetAvailable() error = %v", err)
	}
	if store.slots[0].IsAvailable {
		t.Error("slot should be unavailable")
	}
	if err := svc.DeleteSlot(ctx, "d2", id); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("other driver delete: err = %v, want ErrSlotNotFound", err)
	}
	if err := svc.DeleteSlot(ctx, "d1", id); err != nil {
		t.Fatalf("DeleteSlot() error = %v", err)
	}
	if len(store.slots) != 0 {
		t.Error("slot should be deleted")
	}
}

func TestListSlots_SwapsReversedRange(t *testing.T) {
	store := &memStore{slots: []Slot{
		slot("d1", "2026-10-20", "08:00", "12:00", true),
		slot("d1", "2026-10-25", "08:00", "12:00", true),
		slot("d2", "2026-10-20", "08:00", "12:00", true),
	}}
	svc := NewService(store)
	from := time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	got, err := svc.ListSlots(context.Background(), "d1", from, to)
	if err != nil {
		t.Fatalf("ListSlots() error = %v", err)
	}
	if len(got) != 1 || got[0].Date != "2026-10-20" {
		t.Errorf("unexpected slots: %+v", got)
	}
}

func TestSlot_JSONUsesClockStrings(t *testing.T) {
	b, err := json.Marshal(slot("d1", "2026-10-20", "08:05", "12:00", true))
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	if out["start_time"] != "08:05" || out["end_time"] != "12:00" {
		t.Errorf("unexpected JSON: %s", b)
	}
}
