// README: Bench checks; environment, schema, HTTP contract, double-booking race and quote throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/hammamiayoub/vtc-new-sub000/internal/infra"
)

type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

type Result struct {
	Status  Status
	Latency time.Duration
	Note    string
}

type Check struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := infra.NewDB(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	checks := r.checks()
	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		res := c.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, c.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

// nextMonday10 is a weekday morning slot, so quotes carry no surcharge.
func nextMonday10() time.Time {
	loc, err := time.LoadLocation("Africa/Tunis")
	if err != nil {
		loc = time.UTC
	}
	t := time.Now().In(loc).AddDate(0, 0, 7)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, 1)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 10, 0, 0, 0, loc)
}

func tunisToSousse(at time.Time) map[string]any {
	return map[string]any{
		"pickup_address":      "Avenue Habib Bourguiba, Tunis",
		"destination_address": "Port El Kantaoui, Sousse",
		"vehicle_type":        "sedan",
		"scheduled_at":        at.Format(time.RFC3339),
	}
}

func (r *Runner) checks() []Check {
	at := nextMonday10()
	return []Check{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: StatusFail, Note: "db not reachable"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: StatusFail, Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Schema: apply migrations", Run: func(ctx context.Context, r *Runner) Result {
			if !r.cfg.ApplyMigration {
				return Result{Status: StatusSkip, Note: "apply-migration=false"}
			}
			if r.db == nil {
				return Result{Status: StatusFail, Note: "db not reachable"}
			}
			if err := infra.ApplyMigrations(ctx, r.db, r.cfg.MigrationDir); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Schema: tables exist", Run: checkTables},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/health", "", nil, http.StatusOK)
		}},
		{Name: "API: metrics exposed", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/metrics", "", nil, http.StatusOK)
		}},
		{Name: "API: quote without token -> 401", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/quotes", "", tunisToSousse(at), http.StatusUnauthorized)
		}},
		{Name: "Quote: Tunis -> Sousse priced in TND", Run: func(ctx context.Context, r *Runner) Result {
			return r.checkQuote(ctx, at)
		}},
		{Name: "Quote: unknown vehicle -> 400", Run: func(ctx context.Context, r *Runner) Result {
			body := tunisToSousse(at)
			body["vehicle_type"] = "tractor"
			return r.withClient(ctx, http.MethodPost, "/api/quotes", body, http.StatusBadRequest)
		}},
		{Name: "Booking: missing driver -> 400", Run: func(ctx context.Context, r *Runner) Result {
			return r.withClient(ctx, http.MethodPost, "/api/bookings", tunisToSousse(at), http.StatusBadRequest)
		}},
		{Name: "Booking: below minimum distance -> 422", Run: func(ctx context.Context, r *Runner) Result {
			if r.cfg.DriverID == "" {
				return Result{Status: StatusSkip, Note: "driver-id not set"}
			}
			body := map[string]any{
				"pickup_address":      "Avenue Habib Bourguiba, Tunis",
				"destination_address": "La Marsa",
				"scheduled_at":        at.Format(time.RFC3339),
				"driver_id":           r.cfg.DriverID,
			}
			return r.withClient(ctx, http.MethodPost, "/api/bookings", body, http.StatusUnprocessableEntity)
		}},
		{Name: "Concurrency: same driver and slot booked once", Run: func(ctx context.Context, r *Runner) Result {
			return r.concurrentBooking(ctx, at.AddDate(0, 0, 1))
		}},
		{Name: "Perf: quote throughput", Run: func(ctx context.Context, r *Runner) Result {
			return r.quoteLoad(ctx, tunisToSousse(at))
		}},
	}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusFail, Note: "db not reachable"}
	}
	tables, err := infra.DeclaredTables(r.cfg.MigrationDir)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)", t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: StatusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("tables=%d", len(tables))}
}

func (r *Runner) checkQuote(ctx context.Context, at time.Time) Result {
	if r.cfg.ClientToken == "" {
		return Result{Status: StatusSkip, Note: "client-token not set"}
	}
	start := time.Now()
	status, body, err := r.do(ctx, http.MethodPost, "/api/quotes", r.cfg.ClientToken, tunisToSousse(at))
	latency := time.Since(start)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if status != http.StatusOK {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
	}
	var resp struct {
		Distance struct {
			Km     float64 `json:"km"`
			Source string  `json:"source"`
		} `json:"distance"`
		Quote struct {
			Price struct {
				Amount   float64 `json:"amount"`
				Currency string  `json:"currency"`
			} `json:"price"`
			Surcharges any `json:"surcharges"`
		} `json:"quote"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{Status: StatusFail, Latency: latency, Note: err.Error()}
	}
	if resp.Quote.Price.Currency != "TND" || resp.Quote.Price.Amount <= 0 {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("price=%v", resp.Quote.Price)}
	}
	return Result{Status: StatusPass, Latency: latency,
		Note: fmt.Sprintf("km=%.2f source=%s price=%.2f TND", resp.Distance.Km, resp.Distance.Source, resp.Quote.Price.Amount)}
}

// concurrentBooking fires identical bookings for one driver and slot; the
// guard must let at most one through and answer 409 to the rest.
func (r *Runner) concurrentBooking(ctx context.Context, at time.Time) Result {
	if r.cfg.ClientToken == "" || r.cfg.DriverID == "" {
		return Result{Status: StatusSkip, Note: "client-token and driver-id required"}
	}
	body := tunisToSousse(at)
	body["driver_id"] = r.cfg.DriverID

	var created, conflicts, other atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, "/api/bookings", r.cfg.ClientToken, body)
			switch {
			case err != nil:
				other.Add(1)
			case status == http.StatusCreated:
				created.Add(1)
			case status == http.StatusConflict:
				conflicts.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("created=%d conflict=%d other=%d", created.Load(), conflicts.Load(), other.Load())
	if created.Load() > 1 {
		return Result{Status: StatusFail, Note: note}
	}
	return Result{Status: StatusPass, Note: note}
}

func (r *Runner) quoteLoad(ctx context.Context, payload any) Result {
	if r.cfg.ClientToken == "" {
		return Result{Status: StatusSkip, Note: "client-token not set"}
	}
	end := time.Now().Add(r.cfg.Duration)
	var ok, failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, err := r.do(ctx, http.MethodPost, "/api/quotes", r.cfg.ClientToken, payload)
				if err != nil || status != http.StatusOK {
					failed.Add(1)
					continue
				}
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() == 0 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("no successful quotes, errors=%d", failed.Load())}
	}
	rps := float64(ok.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, failed.Load())}
}

func (r *Runner) withClient(ctx context.Context, method, path string, body any, want int) Result {
	if r.cfg.ClientToken == "" {
		return Result{Status: StatusSkip, Note: "client-token not set"}
	}
	return r.expect(ctx, method, path, r.cfg.ClientToken, body, want)
}

func (r *Runner) expect(ctx context.Context, method, path, token string, body any, want int) Result {
	start := time.Now()
	status, _, err := r.do(ctx, method, path, token, body)
	latency := time.Since(start)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	if status != want {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d want=%d", status, want)}
	}
	return Result{Status: StatusPass, Latency: latency}
}

func (r *Runner) do(ctx context.Context, method, path, token string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}
