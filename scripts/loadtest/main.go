// Loadtest is a concurrent HTTP load driver for the gateway. It measures
// throughput, latency percentiles, and how requests distribute across
// cluster nodes using the X-Served-By response header.
//
// Usage:
//
//	go run ./scripts/loadtest --url http://localhost:8080/swarmkb/command --concurrency 10 --requests 1000
//	go run ./scripts/loadtest --url http://localhost:8080 --requests 5000 --out summary.json
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
)

// nodeStats tracks outcomes for one cluster node, keyed by its advertised
// name.
type nodeStats struct {
	Count     int64           `json:"count"`
	Success   int64           `json:"success"`
	Failure   int64           `json:"failure"`
	Latencies []time.Duration `json:"-"`
}

type summary struct {
	Requests    int                   `json:"requests"`
	Success     int64                 `json:"success"`
	Failure     int64                 `json:"failure"`
	Elapsed     string                `json:"elapsed"`
	Throughput  float64               `json:"throughput_rps"`
	P50         string                `json:"p50"`
	P90         string                `json:"p90"`
	P95         string                `json:"p95"`
	P99         string                `json:"p99"`
	StatusCodes map[int]int64         `json:"status_codes"`
	Nodes       map[string]*nodeStats `json:"nodes"`
}

func main() {
	targetURL := pflag.String("url", "http://localhost:8080/", "Target URL")
	concurrency := pflag.Int("concurrency", 10, "Number of concurrent workers")
	requests := pflag.Int("requests", 100, "Total number of requests to send")
	timeout := pflag.Duration("timeout", 10*time.Second, "Per-request timeout")
	outJSON := pflag.String("out", "", "Write JSON summary to this file (optional)")
	verbose := pflag.Bool("v", false, "Verbose per-request logging to stdout")
	pflag.Parse()

	client := &http.Client{Timeout: *timeout}

	var success, failure int64

	nodes := make(map[string]*nodeStats)
	var nodeMu sync.Mutex

	var allLatencies []time.Duration
	var latMu sync.Mutex

	statusCodes := make(map[int]int64)
	var statusMu sync.Mutex

	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				began := time.Now()
				res, err := client.Get(*targetURL)
				elapsed := time.Since(began)

				node := "unknown"
				status := 0
				ok := false

				if err == nil {
					io.Copy(io.Discard, res.Body)
					res.Body.Close()

					status = res.StatusCode
					ok = status >= 200 && status < 400
					if served := res.Header.Get("X-Served-By"); served != "" {
						node = served
					}
				}

				if ok {
					atomic.AddInt64(&success, 1)
				} else {
					atomic.AddInt64(&failure, 1)
				}

				nodeMu.Lock()
				stats, exists := nodes[node]
				if !exists {
					stats = &nodeStats{}
					nodes[node] = stats
				}
				stats.Count++
				if ok {
					stats.Success++
				} else {
					stats.Failure++
				}
				stats.Latencies = append(stats.Latencies, elapsed)
				nodeMu.Unlock()

				latMu.Lock()
				allLatencies = append(allLatencies, elapsed)
				latMu.Unlock()

				statusMu.Lock()
				statusCodes[status]++
				statusMu.Unlock()

				if *verbose {
					fmt.Printf("req %d: node=%s status=%d latency=%s err=%v\n", n, node, status, elapsed, err)
				}
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)

	sort.Slice(allLatencies, func(i, j int) bool { return allLatencies[i] < allLatencies[j] })

	sum := summary{
		Requests:    *requests,
		Success:     success,
		Failure:     failure,
		Elapsed:     elapsed.String(),
		Throughput:  float64(*requests) / elapsed.Seconds(),
		P50:         percentile(allLatencies, 0.50).String(),
		P90:         percentile(allLatencies, 0.90).String(),
		P95:         percentile(allLatencies, 0.95).String(),
		P99:         percentile(allLatencies, 0.99).String(),
		StatusCodes: statusCodes,
		Nodes:       nodes,
	}

	fmt.Printf("\n%d requests in %s (%.1f req/s), %d ok, %d failed\n",
		sum.Requests, sum.Elapsed, sum.Throughput, sum.Success, sum.Failure)
	fmt.Printf("latency p50=%s p90=%s p95=%s p99=%s\n\n", sum.P50, sum.P90, sum.P95, sum.P99)

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("distribution:")
	for _, name := range names {
		stats := nodes[name]
		share := float64(stats.Count) / float64(*requests) * 100
		fmt.Printf("  %-14s %6d (%5.1f%%)  ok=%d failed=%d  p95=%s\n",
			name, stats.Count, share, stats.Success, stats.Failure,
			percentileOf(stats.Latencies, 0.95))
	}

	if *outJSON != "" {
		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal summary: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outJSON, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "write summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nsummary written to %s\n", *outJSON)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}

func percentileOf(latencies []time.Duration, p float64) time.Duration {
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return percentile(sorted, p)
}
