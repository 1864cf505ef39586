package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNextMonday10(t *testing.T) {
	at := nextMonday10()
	if at.Weekday() != time.Monday || at.Hour() != 10 || at.Minute() != 0 {
		t.Fatalf("unexpected slot %s", at)
	}
	if !at.After(time.Now().AddDate(0, 0, 6)) {
		t.Fatalf("slot %s should be at least a week ahead", at)
	}
}

func TestConcurrentBooking(t *testing.T) {
	var first atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if first.CompareAndSwap(false, true) {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	r := NewRunner(Config{BaseURL: srv.URL, ClientToken: "tok", DriverID: "d1", Concurrency: 8})
	res := r.concurrentBooking(context.Background(), nextMonday10())
	if res.Status != StatusPass {
		t.Fatalf("expected PASS, got %s (%s)", res.Status, res.Note)
	}
	if res.Note != "created=1 conflict=7 other=0" {
		t.Fatalf("unexpected note %q", res.Note)
	}
}

func TestConcurrentBooking_DoubleBookingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	r := NewRunner(Config{BaseURL: srv.URL, ClientToken: "tok", DriverID: "d1", Concurrency: 3})
	if res := r.concurrentBooking(context.Background(), nextMonday10()); res.Status != StatusFail {
		t.Fatalf("expected FAIL, got %s (%s)", res.Status, res.Note)
	}
}

func TestChecksSkipWithoutToken(t *testing.T) {
	r := NewRunner(Config{BaseURL: "http://127.0.0.1:0", Concurrency: 1})
	if res := r.withClient(context.Background(), http.MethodPost, "/api/quotes", nil, http.StatusOK); res.Status != StatusSkip {
		t.Fatalf("expected SKIP, got %s", res.Status)
	}
	if res := r.concurrentBooking(context.Background(), nextMonday10()); res.Status != StatusSkip {
		t.Fatalf("expected SKIP, got %s", res.Status)
	}
}
