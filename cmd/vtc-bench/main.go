// README: Smoke and load runner against a deployed vtc-api; checks DB, Redis, schema, quotes and the double-booking guard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/config"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	results := NewRunner(cfg).RunAll(ctx)

	fmt.Println("\n== Summary ==")
	counts := map[Status]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", counts[StatusPass], counts[StatusFail], counts[StatusSkip])

	if counts[StatusFail] > 0 || (cfg.Strict && counts[StatusSkip] > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL        string
	DSN            string
	RedisAddr      string
	MigrationDir   string
	ApplyMigration bool
	ClientToken    string
	DriverID       string
	Strict         bool
	Timeout        time.Duration
	Concurrency    int
	Duration       time.Duration
}

// loadConfig starts from the service configuration so the runner points at
// the same database and Redis as vtc-api, then applies flag overrides.
func loadConfig() (Config, error) {
	svc, err := config.Load()
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("VTC_BENCH_BASE_URL", "http://localhost"+svc.HTTP.Addr), "API base URL")
	flag.StringVar(&cfg.DSN, "dsn", svc.DB.DSN, "Postgres DSN")
	flag.StringVar(&cfg.RedisAddr, "redis", svc.Redis.Addr, "Redis address")
	flag.StringVar(&cfg.MigrationDir, "migrations", "migrations", "Migration directory")
	flag.BoolVar(&cfg.ApplyMigration, "apply-migration", false, "Apply migrations before running")
	flag.StringVar(&cfg.ClientToken, "client-token", os.Getenv("VTC_BENCH_CLIENT_TOKEN"), "ID token of a client account")
	flag.StringVar(&cfg.DriverID, "driver-id", os.Getenv("VTC_BENCH_DRIVER_ID"), "Active driver used for booking checks")
	flag.BoolVar(&cfg.Strict, "strict", false, "Fail when any check is skipped")
	flag.DurationVar(&cfg.Timeout, "timeout", 60*time.Second, "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", 20, "Concurrent workers for load checks")
	flag.DurationVar(&cfg.Duration, "duration", 10*time.Second, "Duration of load checks")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
