// Package e2e contains end-to-end tests against running services started
// from cmd/server and cmd/analytics. Tests skip when a service is not
// reachable.
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

type e2eConfig struct {
	ServerURL    string
	AnalyticsURL string
}

func loadE2EConfig() e2eConfig {
	return e2eConfig{
		ServerURL:    envOrDefault("E2E_SERVER_URL", "http://localhost:8080"),
		AnalyticsURL: envOrDefault("E2E_ANALYTICS_URL", "http://localhost:8083"),
	}
}

func requireService(t *testing.T, client *http.Client, baseURL string) {
	t.Helper()
	resp, err := client.Get(baseURL + "/health/live")
	if err != nil {
		t.Skipf("service unavailable: %v", err)
	}
	resp.Body.Close()
}

func postJSON(t *testing.T, client *http.Client, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestPlatformHealth verifies all services respond to health checks.
func TestPlatformHealth(t *testing.T) {
	cfg := loadE2EConfig()

	services := []struct {
		name string
		url  string
	}{
		{"server /health/live", cfg.ServerURL + "/health/live"},
		{"server /health/ready", cfg.ServerURL + "/health/ready"},
		{"analytics /health/live", cfg.AnalyticsURL + "/health/live"},
	}

	client := &http.Client{Timeout: 5 * time.Second}

	for _, svc := range services {
		t.Run(svc.name, func(t *testing.T) {
			resp, err := client.Get(svc.url)
			if err != nil {
				t.Skipf("service unavailable: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestVerifyPesel checks a valid, an invalid and a malformed number.
func TestVerifyPesel(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 10 * time.Second}
	requireService(t, client, cfg.ServerURL)

	cases := []struct {
		number     string
		wantStatus int
		wantValid  int
	}{
		{"44051401359", http.StatusOK, 1},
		{"97082123152", http.StatusOK, 0},
		{"9708212315", http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		var resp struct {
			Valid int `json:"valid"`
		}
		status := postJSON(t, client, cfg.ServerURL+"/api/v1/pesel/verify", map[string]string{"pesel": tc.number}, &resp)
		if status != tc.wantStatus {
			t.Errorf("%s: expected status %d, got %d", tc.number, tc.wantStatus, status)
			continue
		}
		if status == http.StatusOK && resp.Valid != tc.wantValid {
			t.Errorf("%s: expected valid=%d, got %d", tc.number, tc.wantValid, resp.Valid)
		}
	}
}

// TestIndexSearchAndCache runs the same batch twice; the second run is
// served from the cache when Redis is enabled.
func TestIndexSearchAndCache(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 10 * time.Second}
	requireService(t, client, cfg.ServerURL)

	batch := map[string]any{
		"documents": []string{"cat dog cat", "dog dog", "cat", time.Now().Format(time.RFC3339Nano)},
		"queries":   []string{"cat", "dog", "bird"},
	}
	var first, second struct {
		Results  [][]int `json:"results"`
		CacheHit bool    `json:"cache_hit"`
	}
	if status := postJSON(t, client, cfg.ServerURL+"/api/v1/index/search", batch, &first); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if got := first.Results; len(got) != 3 || len(got[0]) != 2 || got[0][0] != 0 || got[0][1] != 2 || len(got[2]) != 0 {
		t.Errorf("unexpected results: %v", got)
	}
	if first.CacheHit {
		t.Error("first run of a fresh batch must not be a cache hit")
	}

	postJSON(t, client, cfg.ServerURL+"/api/v1/index/search", batch, &second)
	t.Logf("second run cache_hit=%v", second.CacheHit)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
