// README: Load generator; seeds drivers, replays a synthetic order stream against the dispatch API and prints results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	runner := NewRunner(cfg)
	results := runner.RunAll(ctx)

	fmt.Println("\n== Summary ==")
	pass, fail, skipped := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case "PASS":
			pass++
		case "FAIL":
			fail++
		case "SKIP":
			skipped++
		}
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", pass, fail, skipped)
	fmt.Println(runner.stats.String())

	if fail > 0 {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL     string
	RedisAddr   string
	Drivers     int
	OrdersPerS  int
	Concurrency int
	Duration    time.Duration
	Timeout     time.Duration
	CenterLat   float64
	CenterLng   float64
	Seed        uint64
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOrDefault("ROUTEMATCH_DISPATCH_URL", "http://localhost:9000"), "API base URL")
	flag.StringVar(&cfg.RedisAddr, "redis", os.Getenv("ROUTEMATCH_REDIS_ADDR"), "Redis address for the connectivity check (optional)")
	flag.IntVar(&cfg.Drivers, "drivers", envOrDefaultInt("ROUTEMATCH_LOADGEN_DRIVERS", 200), "Drivers to seed")
	flag.IntVar(&cfg.OrdersPerS, "rate", envOrDefaultInt("ROUTEMATCH_LOADGEN_RATE", 5), "Orders per second")
	flag.IntVar(&cfg.Concurrency, "concurrency", envOrDefaultInt("ROUTEMATCH_LOADGEN_CONCURRENCY", 8), "Concurrent submitters")
	flag.DurationVar(&cfg.Duration, "duration", envOrDefaultDuration("ROUTEMATCH_LOADGEN_DURATION", 30*time.Second), "Order stream duration")
	flag.DurationVar(&cfg.Timeout, "timeout", envOrDefaultDuration("ROUTEMATCH_LOADGEN_TIMEOUT", 2*time.Minute), "Total timeout")
	flag.Float64Var(&cfg.CenterLat, "lat", 10.762622, "Center latitude")
	flag.Float64Var(&cfg.CenterLng, "lon", 106.660172, "Center longitude")
	flag.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
