package main

import (
	"bytes"
	"fmt"
	json "github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	numWorkers      = 50
	numGuests       = 2000
	numFingerprints = 5000
	browserUA       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
)

var botAgents = []string{
	"Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/126.0",
	"curl/8.4.0",
	"python-requests/2.31.0",
	"Go-http-client/1.1",
}

var (
	baseURL      string
	promptID     string
	testDuration time.Duration
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

type guest struct {
	ip          string
	userAgent   string
	fingerprint string
}

func main() {
	pflag.StringVar(&baseURL, "url", "http://127.0.0.1:8080", "viewguard base URL")
	pflag.StringVar(&promptID, "prompt", "", "id of an existing prompt to view")
	pflag.DurationVar(&testDuration, "duration", 10*time.Second, "duration of each phase")
	pflag.Parse()

	if promptID == "" {
		fmt.Println("--prompt is required")
		return
	}

	fmt.Println("=== ViewGuard Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Prompt: %s\n\n", numWorkers, testDuration, promptID)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Guests issuing and redeeming once ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return issueAndTrack(randomGuest(rng), false)
	})

	fmt.Println("\n--- Phase 2: Mixed traffic (70% guests, 20% replays, 10% bots) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		g := randomGuest(rng)
		switch {
		case r < 0.70:
			return issueAndTrack(g, false)
		case r < 0.90:
			return issueAndTrack(g, true)
		default:
			g.userAgent = botAgents[rng.Intn(len(botAgents))]
			return issueAndTrack(g, false)
		}
	})
}

func randomGuest(rng *rand.Rand) guest {
	n := rng.Intn(numGuests)
	return guest{
		ip:          fmt.Sprintf("198.51.%d.%d", n/250, n%250+1),
		userAgent:   browserUA,
		fingerprint: fmt.Sprintf("fp-%08x-%04d", rng.Uint32(), rng.Intn(numFingerprints)),
	}
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-34s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-34s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func post(path string, g guest, body interface{}) (*http.Response, error) {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("X-Forwarded-For", g.ip)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", baseURL+"/p/"+promptID)
	return httpClient.Do(req)
}

// issueAndTrack mints a token and redeems it, optionally a second time.
// The result is labelled with the outcome of the last redemption.
func issueAndTrack(g guest, replay bool) result {
	start := time.Now()
	resp, err := post("/api/view-token", g, map[string]string{"cardId": promptID, "fingerprint": g.fingerprint})
	if err != nil {
		return result{"issue error", 0, time.Since(start), true}
	}
	var issued struct {
		ViewToken string `json:"viewToken"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&issued)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return result{fmt.Sprintf("issue %d", resp.StatusCode), resp.StatusCode, time.Since(start), resp.StatusCode >= 500}
	}

	attempts := 1
	if replay {
		attempts = 2
	}

	var last result
	for i := 0; i < attempts; i++ {
		trackStart := time.Now()
		resp, err := post("/api/track-view", g, map[string]string{"cardId": promptID, "viewToken": issued.ViewToken})
		if err != nil {
			return result{"track error", 0, time.Since(trackStart), true}
		}
		var out struct {
			Counted bool   `json:"counted"`
			Reason  string `json:"reason"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()

		label := "track COUNTED"
		if !out.Counted {
			label = fmt.Sprintf("track %d %s", resp.StatusCode, out.Reason)
		}
		last = result{label, resp.StatusCode, time.Since(trackStart), resp.StatusCode >= 500}
	}
	return last
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
