// Command loadtest drives the HTTP server with concurrent PESEL
// verifications and index-search batches and prints a latency report.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch-tools/internal/pesel"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Mode        string
	Batches     []searchBatch
	Numbers     []string
}

type searchBatch struct {
	Documents []string `json:"documents"`
	Queries   []string `json:"queries"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the server")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	mode := flag.String("mode", "mixed", "request mix: pesel, search or mixed")
	batches := flag.Int("batches", 20, "number of distinct search batches")
	flag.Parse()

	if *mode != "pesel" && *mode != "search" && *mode != "mixed" {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Mode:        *mode,
		Batches:     generateBatches(*batches),
		Numbers:     generateNumbers(200),
	}

	fmt.Println("=== docsearch Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Mode:        %s\n", cfg.Mode)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Batches:     %d unique\n", len(cfg.Batches))
	fmt.Println()

	stats := runLoadTest(cfg)
	if stats.Report(os.Stdout, cfg.Duration) == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the server running?")
		os.Exit(1)
	}
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := workerID; ; i++ {
				select {
				case <-ctx.Done():
					return
				default:
				}
				path, body := cfg.nextRequest(i)
				doRequest(ctx, client, cfg.BaseURL+path, body, stats)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

// nextRequest picks the i-th request of the configured mix.
func (c Config) nextRequest(i int) (string, any) {
	usePesel := c.Mode == "pesel" || (c.Mode == "mixed" && i%2 == 0)
	if usePesel {
		return "/api/v1/pesel/verify", map[string]string{"pesel": c.Numbers[i%len(c.Numbers)]}
	}
	return "/api/v1/index/search", c.Batches[i%len(c.Batches)]
}

func doRequest(ctx context.Context, client *http.Client, url string, body any, stats *Stats) {
	data, err := json.Marshal(body)
	if err != nil {
		stats.RecordRequest(0, 0, err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		stats.RecordRequest(0, 0, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.RecordRequest(duration, 0, err)
		}
		return
	}
	defer resp.Body.Close()

	var decoded struct {
		CacheHit bool `json:"cache_hit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && decoded.CacheHit {
		stats.RecordCacheHit()
	}
	io.Copy(io.Discard, resp.Body)
	stats.RecordRequest(duration, resp.StatusCode, nil)
}

var vocabulary = []string{
	"cat", "dog", "bird", "search", "index", "query", "cache",
	"document", "word", "count", "rank", "pesel", "digit",
}

func generateBatches(n int) []searchBatch {
	if n <= 0 {
		n = 1
	}
	rng := rand.New(rand.NewPCG(1, 2))
	batches := make([]searchBatch, n)
	for i := range batches {
		docs := make([]string, 5+rng.IntN(20))
		for d := range docs {
			words := make([]byte, 0, 64)
			for range 3 + rng.IntN(12) {
				words = append(words, vocabulary[rng.IntN(len(vocabulary))]...)
				words = append(words, ' ')
			}
			docs[d] = string(words)
		}
		batches[i] = searchBatch{
			Documents: docs,
			Queries:   []string{vocabulary[i%len(vocabulary)], vocabulary[(i+3)%len(vocabulary)], "missing"},
		}
	}
	return batches
}

// generateNumbers returns a mix of valid and invalid PESEL numbers.
func generateNumbers(n int) []string {
	rng := rand.New(rand.NewPCG(3, 4))
	numbers := make([]string, n)
	for i := range numbers {
		prefix := fmt.Sprintf("%010d", rng.Int64N(10_000_000_000))
		digit, err := pesel.CheckDigit(prefix)
		if err != nil {
			panic(err)
		}
		if i%3 == 0 {
			digit = (digit + 1) % 10
		}
		numbers[i] = prefix + strconv.Itoa(digit)
	}
	return numbers
}
