// README: Load generator cases: connectivity, driver seeding, order stream and a lock race on one driver.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"routematch/internal/modules/driver"
	"routematch/internal/modules/pricing"
)

var (
	vehicleClasses = []driver.VehicleClass{driver.VehicleBike, driver.VehicleMediumTruck, driver.VehicleLargeTruck}
	serviceClasses = []string{"standard", "fast", "prioritize"}
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	redis *redis.Client
	stats *Stats

	mu  sync.Mutex
	rng *rand.Rand
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
		stats: newStats(),
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>1|1)),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "SKIP", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "API: health",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				status, _, err := r.do(ctx, http.MethodGet, "/health", nil)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				if status != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: "PASS", Latency: time.Since(start)}
			},
		},
		{
			Name: "Seed: driver locations",
			Run:  seedDrivers,
		},
		{
			Name: "Dispatch: order stream",
			Run:  orderStream,
		},
		{
			Name: "Dispatch: lock race on one driver",
			Run:  lockRace,
		},
	}
}

func (r *Runner) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

// random helpers; rand.Rand is not safe for concurrent use.

func (r *Runner) normal(mean, std float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return mean + r.rng.NormFloat64()*std
}

func (r *Runner) uniform() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *Runner) exponential(mean float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.ExpFloat64() * mean
}

func (r *Runner) pick(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

func locationBody(lat, lng float64, class driver.VehicleClass, fatigue float64) map[string]any {
	return map[string]any{"lat": lat, "lon": lng, "vehicle_type": string(class), "fatigue_index": fatigue}
}

func seedDrivers(ctx context.Context, r *Runner) Result {
	start := time.Now()
	failed := 0
	for i := 0; i < r.cfg.Drivers; i++ {
		id := fmt.Sprintf("drv-%05d", i)
		body := locationBody(
			r.normal(r.cfg.CenterLat, 0.03),
			r.normal(r.cfg.CenterLng, 0.03),
			vehicleClasses[r.pick(len(vehicleClasses))],
			r.uniform(),
		)
		status, _, err := r.do(ctx, http.MethodPut, "/api/drivers/"+id+"/location", body)
		if err != nil || status != http.StatusOK {
			failed++
			continue
		}
		// drivers left BUSY by a previous run become available again
		_, _, _ = r.do(ctx, http.MethodPost, "/api/drivers/"+id+"/availability", map[string]any{"status": "IDLE"})
	}
	if failed == r.cfg.Drivers {
		return Result{Status: "FAIL", Note: "no driver could be seeded"}
	}
	return Result{Status: "PASS", Latency: time.Since(start), Note: fmt.Sprintf("seeded=%d failed=%d", r.cfg.Drivers-failed, failed)}
}

// quote prices an order through the pricing endpoint.
func (r *Runner) quote(ctx context.Context, req pricing.QuoteRequest) (pricing.Quote, error) {
	status, body, err := r.do(ctx, http.MethodPost, "/api/pricing/quote", req)
	if err != nil {
		return pricing.Quote{}, err
	}
	if status != http.StatusOK {
		return pricing.Quote{}, fmt.Errorf("quote: status %d: %s", status, body)
	}
	var q pricing.Quote
	if err := json.Unmarshal(body, &q); err != nil {
		return pricing.Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	return q, nil
}

// newOrder draws one synthetic order: pickup scattered around the center,
// log-normal trip distance, fee quoted by the API, 60% of orders with COD.
func (r *Runner) newOrder(ctx context.Context, lat, lng float64, class driver.VehicleClass) (map[string]any, error) {
	service := serviceClasses[r.pick(len(serviceClasses))]
	distance := math.Exp(r.normal(1.0, 0.6))
	distance = math.Max(0.5, math.Min(distance, 30))
	raining := r.pick(2)

	quote, err := r.quote(ctx, pricing.QuoteRequest{
		VehicleClass: class,
		ServiceClass: service,
		DistanceKm:   distance,
		Raining:      raining == 1,
	})
	if err != nil {
		return nil, err
	}

	codMean := 2_000_000.0
	if class == driver.VehicleBike {
		codMean = 500_000
	}
	cod := 0.0
	if r.uniform() >= 0.4 {
		cod = r.exponential(codMean)
	}

	hour := float64(time.Now().UTC().Hour())
	return map[string]any{
		"order_id":     uuid.NewString(),
		"user_id":      uuid.NewString(),
		"pickup_lat":   lat,
		"pickup_lon":   lng,
		"distance_km":  distance,
		"shipping_fee": quote.Amount,
		"vehicle_type": string(class),
		"service_type": service,
		"is_raining":   raining,
		"cod_amount":   cod,
		"hour_sin":     math.Sin(2 * math.Pi * hour / 24),
		"hour_cos":     math.Cos(2 * math.Pi * hour / 24),
	}, nil
}

type submitResp struct {
	Status   string  `json:"status"`
	Reason   string  `json:"reason"`
	Message  string  `json:"message"`
	DriverID string  `json:"driver_id"`
	Score    float64 `json:"score"`
}

func (r *Runner) submit(ctx context.Context, payload map[string]any) (submitResp, error) {
	start := time.Now()
	status, body, err := r.do(ctx, http.MethodPost, "/order/submit", payload)
	if err != nil {
		r.stats.record("error:transport", 0)
		return submitResp{}, err
	}
	var resp submitResp
	if err := json.Unmarshal(body, &resp); err != nil {
		r.stats.record(fmt.Sprintf("error:%d", status), 0)
		return submitResp{}, err
	}
	key := resp.Status
	switch {
	case status != http.StatusOK:
		key = fmt.Sprintf("error:%d:%s", status, resp.Message)
	case resp.Reason != "":
		key += ":" + resp.Reason
	}
	r.stats.record(key, time.Since(start))
	return resp, nil
}

func orderStream(ctx context.Context, r *Runner) Result {
	total := int(r.cfg.Duration.Seconds()) * r.cfg.OrdersPerS
	if total <= 0 {
		return Result{Status: "SKIP", Note: "empty stream"}
	}
	jobs := make(chan map[string]any)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for payload := range jobs {
				_, _ = r.submit(ctx, payload)
			}
		}()
	}

	start := time.Now()
	tick := time.NewTicker(time.Second / time.Duration(r.cfg.OrdersPerS))
	defer tick.Stop()
	sent := 0
loop:
	for sent < total {
		select {
		case <-ctx.Done():
			break loop
		case <-tick.C:
			class := vehicleClasses[r.pick(len(vehicleClasses))]
			payload, err := r.newOrder(ctx, r.normal(r.cfg.CenterLat, 0.03), r.normal(r.cfg.CenterLng, 0.03), class)
			if err != nil {
				r.stats.record("error:quote", 0)
				continue
			}
			jobs <- payload
			sent++
		}
	}
	close(jobs)
	wg.Wait()

	if r.stats.ok() == 0 {
		return Result{Status: "FAIL", Note: "no order got a dispatch result"}
	}
	return Result{Status: "PASS", Latency: time.Since(start), Note: fmt.Sprintf("sent=%d", sent)}
}

// lockRace puts a single driver far from everyone else and fires concurrent
// orders at it. Only one of them may be offered the driver while its lock is
// held.
func lockRace(ctx context.Context, r *Runner) Result {
	lat, lng := r.cfg.CenterLat+1.0, r.cfg.CenterLng+1.0
	id := "race-" + uuid.NewString()[:8]
	status, _, err := r.do(ctx, http.MethodPut, "/api/drivers/"+id+"/location", locationBody(lat, lng, driver.VehicleLargeTruck, 0.1))
	if err != nil || status != http.StatusOK {
		return Result{Status: "FAIL", Note: fmt.Sprintf("seed race driver: status=%d err=%v", status, err)}
	}

	var mu sync.Mutex
	assigned, busy := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := r.newOrder(ctx, lat, lng, driver.VehicleLargeTruck)
			if err != nil {
				return
			}
			resp, err := r.submit(ctx, payload)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if resp.DriverID == id {
				assigned++
			} else if resp.Reason == "all_drivers_busy" || resp.Reason == "no_drivers_nearby" {
				busy++
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("assigned=%d turned_away=%d", assigned, busy)
	if assigned != 1 {
		return Result{Status: "FAIL", Note: note + " (release_on_reject may allow re-offers)"}
	}
	return Result{Status: "PASS", Note: note}
}

type Stats struct {
	mu        sync.Mutex
	counts    map[string]int
	latencies []time.Duration
}

func newStats() *Stats {
	return &Stats{counts: make(map[string]int)}
}

func (s *Stats) record(key string, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	if latency > 0 {
		s.latencies = append(s.latencies, latency)
	}
}

// ok counts responses that carried a dispatch result.
func (s *Stats) ok() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.counts {
		if !strings.HasPrefix(k, "error:") {
			n += v
		}
	}
	return n
}

func (s *Stats) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.counts))
	for k := range s.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("Dispatch outcomes:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %-40s %d", k, s.counts[k])
	}
	if len(s.latencies) > 0 {
		lat := append([]time.Duration(nil), s.latencies...)
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		fmt.Fprintf(&b, "\nLatency p50=%s p95=%s max=%s",
			lat[len(lat)/2], lat[len(lat)*95/100], lat[len(lat)-1])
	}
	return b.String()
}
