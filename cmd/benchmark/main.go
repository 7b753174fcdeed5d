// Benchmark tool for load-testing Shrike's verification endpoint.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8080 -n 500
//
// This tool:
//  1. Sends verification requests for each synthetic scenario
//  2. Checks every verdict against the scenario's expected outcome
//  3. Reports scenario accuracy, score distribution, and latency percentiles
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// VerifyRequest is the Shrike API request format.
type VerifyRequest struct {
	PostURL  string `json:"postUrl"`
	Scenario string `json:"scenario,omitempty"`
}

// VerifyResponse is the subset of the Shrike API response the benchmark
// cares about.
type VerifyResponse struct {
	ID             string  `json:"id"`
	OverallScore   float64 `json:"overallScore"`
	Passed         bool    `json:"passed"`
	Recommendation string  `json:"recommendation"`
	Confidence     string  `json:"confidence"`
}

// scenarioSpec pairs a scenario name with the verdict it should produce.
type scenarioSpec struct {
	Name       string
	WantPassed bool
	MinScore   float64
	MaxScore   float64
}

var scenarios = []scenarioSpec{
	{Name: "legitimate", WantPassed: true, MinScore: 95, MaxScore: 100},
	{Name: "bot_fraud", WantPassed: false, MinScore: 0, MaxScore: 60},
	{Name: "mixed_quality", WantPassed: false, MinScore: 60, MaxScore: 95},
}

// Metrics tracks benchmark results per scenario.
type Metrics struct {
	Total        int64
	Correct      int64
	WrongVerdict int64
	OutOfBand    int64
	Errors       int64

	mu        sync.Mutex
	latencies []time.Duration
	scoreSum  float64
	scoreMin  float64
	scoreMax  float64
}

func (m *Metrics) record(latency time.Duration, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, latency)
	m.scoreSum += score
	if len(m.latencies) == 1 || score < m.scoreMin {
		m.scoreMin = score
	}
	if score > m.scoreMax {
		m.scoreMax = score
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Shrike base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	perScenario := flag.Int("n", 100, "Requests per scenario")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each verification result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          SHRIKE BENCHMARK - Scenario Verification             ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nShrike URL:    %s\n", *baseURL)
	fmt.Printf("Tenant ID:     %s\n", *tenantID)
	fmt.Printf("Workers:       %d\n", *workers)
	fmt.Printf("Per Scenario:  %d\n", *perScenario)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Shrike not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Shrike is running:")
		fmt.Println("  go run cmd/shrike/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Shrike is healthy")

	results := make(map[string]*Metrics, len(scenarios))
	for _, sc := range scenarios {
		results[sc.Name] = &Metrics{}
	}

	startTime := time.Now()
	runBenchmark(*baseURL, *tenantID, *perScenario, *workers, *verbose, results)
	duration := time.Since(startTime)

	printResults(results, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

type workItem struct {
	spec    scenarioSpec
	postURL string
}

func runBenchmark(baseURL, tenantID string, perScenario, numWorkers int, verbose bool, results map[string]*Metrics) {
	work := make(chan workItem, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for item := range work {
				m := results[item.spec.Name]

				start := time.Now()
				resp, err := verifyPost(client, baseURL, tenantID, item.postURL, item.spec.Name)
				elapsed := time.Since(start)

				atomic.AddInt64(&m.Total, 1)
				if err != nil {
					atomic.AddInt64(&m.Errors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", item.postURL, err)
					}
					continue
				}

				m.record(elapsed, resp.OverallScore)

				inBand := resp.OverallScore >= item.spec.MinScore && resp.OverallScore < item.spec.MaxScore
				if item.spec.WantPassed {
					inBand = resp.OverallScore >= item.spec.MinScore
				}

				switch {
				case resp.Passed != item.spec.WantPassed:
					atomic.AddInt64(&m.WrongVerdict, 1)
				case !inBand:
					atomic.AddInt64(&m.OutOfBand, 1)
				default:
					atomic.AddInt64(&m.Correct, 1)
				}

				if verbose {
					status := "✓"
					if resp.Passed != item.spec.WantPassed || !inBand {
						status = "✗"
					}
					fmt.Printf("%s %-13s | Score: %6.2f | Passed: %-5v | %s | %v\n",
						status, item.spec.Name, resp.OverallScore, resp.Passed,
						resp.Recommendation, elapsed.Round(time.Millisecond))
				}
			}
		}()
	}

	for _, sc := range scenarios {
		for i := 0; i < perScenario; i++ {
			// Distinct URLs defeat report memoization so every request
			// exercises the full pipeline.
			work <- workItem{
				spec:    sc,
				postURL: fmt.Sprintf("https://instagram.com/p/bench-%s-%d", sc.Name, i),
			}
		}
	}
	close(work)

	wg.Wait()
}

func verifyPost(client *http.Client, baseURL, tenantID, postURL, scenario string) (*VerifyResponse, error) {
	body, err := json.Marshal(VerifyRequest{PostURL: postURL, Scenario: scenario})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func printResults(results map[string]*Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	var totalProcessed, totalCorrect, totalErrors int64
	var allLatencies []time.Duration

	for _, sc := range scenarios {
		m := results[sc.Name]
		totalProcessed += m.Total
		totalCorrect += m.Correct
		totalErrors += m.Errors
		allLatencies = append(allLatencies, m.latencies...)

		fmt.Printf("\n📊 SCENARIO: %s\n", sc.Name)
		fmt.Printf("   Requests:       %d\n", m.Total)
		fmt.Printf("   Correct:        %d\n", m.Correct)
		fmt.Printf("   Wrong Verdict:  %d\n", m.WrongVerdict)
		fmt.Printf("   Out of Band:    %d\n", m.OutOfBand)
		fmt.Printf("   Errors:         %d\n", m.Errors)
		if n := len(m.latencies); n > 0 {
			fmt.Printf("   Score Range:    %.2f - %.2f (avg %.2f)\n",
				m.scoreMin, m.scoreMax, m.scoreSum/float64(n))
		}
	}

	fmt.Printf("\n🎯 ACCURACY\n")
	if totalProcessed > 0 {
		fmt.Printf("   Overall:  %d / %d (%.2f%%)\n",
			totalCorrect, totalProcessed, 100*float64(totalCorrect)/float64(totalProcessed))
	}
	fmt.Printf("   Errors:   %d\n", totalErrors)

	sort.Slice(allLatencies, func(i, j int) bool { return allLatencies[i] < allLatencies[j] })

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:  %v\n", duration.Round(time.Millisecond))
	if len(allLatencies) > 0 {
		fmt.Printf("   p50 Latency:     %v\n", percentile(allLatencies, 0.50).Round(time.Microsecond))
		fmt.Printf("   p95 Latency:     %v\n", percentile(allLatencies, 0.95).Round(time.Microsecond))
		fmt.Printf("   p99 Latency:     %v\n", percentile(allLatencies, 0.99).Round(time.Microsecond))
		fmt.Printf("   Throughput:      %.2f req/sec\n", float64(len(allLatencies))/duration.Seconds())
	}

	fmt.Println()
}
