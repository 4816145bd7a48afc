package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
)

// Metrics
var (
	totalRequests uint64
	success200    uint64 // Verified
	fail400       uint64 // Invalid / expired
	fail404       uint64 // Unknown session
	fail429       uint64 // Rate limited
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, i)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time, id int) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		sessionID := generateSession(id)

		payload := map[string]interface{}{
			"sessionId":      sessionID,
			"expectedAmount": int64(5000),
			"customerEmail":  fmt.Sprintf("bench-%d@example.com", id),
			"timestamp":      time.Now().UnixMilli(),
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/verify-transaction", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		// Spread client identities so the per-address limiter does not
		// throttle the whole run.
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.%d.%d", id%255, rand.Intn(255)))

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&success200, 1)
		case 400:
			atomic.AddUint64(&fail400, 1)
		case 404:
			atomic.AddUint64(&fail404, 1)
		case 429:
			atomic.AddUint64(&fail429, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func generateSession(worker int) string {
	// Assumes sessions cs_bench_1..cs_bench_1000 exist at the gateway stub
	totalSessions := 1000

	if workload == "hotspot" {
		// Hotspot: 90% of traffic re-verifies the same two sessions
		if rand.Float32() < 0.90 {
			if rand.Float32() < 0.5 {
				return "cs_bench_1"
			}
			return "cs_bench_2"
		}
	}

	return fmt.Sprintf("cs_bench_%d", rand.Intn(totalSessions)+1)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s200 := atomic.LoadUint64(&success200)
	f400 := atomic.LoadUint64(&fail400)
	f404 := atomic.LoadUint64(&fail404)
	f429 := atomic.LoadUint64(&fail429)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	limitedRate := float64(f429) / float64(total) * 100

	results := map[string]interface{}{
		"workload":         workload,
		"duration_sec":     d.Seconds(),
		"total_requests":   total,
		"throughput_tps":   tps,
		"verified":         s200,
		"rejected_input":   f400,
		"unknown_session":  f404,
		"rate_limited":     f429,
		"limited_rate_pct": limitedRate,
		"errors":           fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
