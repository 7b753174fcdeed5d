package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adtrustlabs/shrike/internal/detector"
	"github.com/adtrustlabs/shrike/internal/domain"
	"github.com/adtrustlabs/shrike/internal/fetcher"
	"github.com/adtrustlabs/shrike/internal/rules"
)

// createTestServer creates a server with a seeded fetcher and default
// detection config for testing.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	f := fetcher.NewSeeded(42)

	d, err := detector.New(domain.DefaultDetectionConfig())
	if err != nil {
		t.Fatalf("detector.New failed: %v", err)
	}

	engine, _ := rules.NewEngine(5)

	// A rule that only fires on very low scores, so legitimate posts
	// don't trigger it in tests
	testRule := &domain.RuleConfig{
		ID:         "test-rule-001",
		Name:       "Critical Score Rule",
		Expression: "overall_score < 10.0 ? 1.0 : 0.0",
		Weight:     1.0,
		Enabled:    true,
	}
	engine.LoadRule(testRule)

	return NewServer(cfg, nil, nil, nil, f, d, engine, "test-v1")
}

func TestVerifyEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulVerification", func(t *testing.T) {
		reqBody := domain.VerifyRequest{
			PostURL:  "https://instagram.com/p/test-001",
			Scenario: fetcher.ScenarioLegitimate,
		}

		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp domain.VerifyResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.ReportID == "" {
			t.Error("expected reportId in response")
		}
		if resp.OverallScore < 90 {
			t.Errorf("expected high score for legitimate scenario, got %.1f", resp.OverallScore)
		}
		if !resp.Passed {
			t.Error("expected legitimate scenario to pass")
		}
		if resp.Recommendation != domain.RecommendApproved {
			t.Errorf("expected APPROVED_FOR_PAYMENT, got %s", resp.Recommendation)
		}
		if resp.Summary == "" {
			t.Error("expected summary in response")
		}
		if resp.Metadata.TraceID == "" {
			t.Error("expected traceId in metadata")
		}
		if resp.Metadata.EngineVersion == "" {
			t.Error("expected engineVersion in metadata")
		}
	})

	t.Run("BotFraudFailsVerification", func(t *testing.T) {
		reqBody := domain.VerifyRequest{
			PostURL:  "https://instagram.com/p/test-002",
			Scenario: fetcher.ScenarioBotFraud,
		}

		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp domain.VerifyResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.Passed {
			t.Error("expected bot fraud scenario to fail verification")
		}
		if len(resp.FraudFlags) == 0 {
			t.Error("expected fraud flags for bot fraud scenario")
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		// No X-Tenant-ID header

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingPostURL", func(t *testing.T) {
		reqBody := domain.VerifyRequest{Scenario: fetcher.ScenarioLegitimate}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidPostURL", func(t *testing.T) {
		reqBody := domain.VerifyRequest{PostURL: "not a url"}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("UnknownScenario", func(t *testing.T) {
		reqBody := domain.VerifyRequest{
			PostURL:  "https://instagram.com/p/test-003",
			Scenario: "viral_hit",
		}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		reqBody := domain.VerifyRequest{
			PostURL: "https://instagram.com/p/test-004",
		}
		body, _ := json.Marshal(reqBody)
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", "tenant-001")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestScenariosEndpoint(t *testing.T) {
	server := createTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/scenarios", nil)
	req.Header.Set("X-Tenant-ID", "tenant-001")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Scenarios []fetcher.ScenarioInfo `json:"scenarios"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if len(resp.Scenarios) != 3 {
		t.Errorf("expected 3 scenarios, got %d", len(resp.Scenarios))
	}
}

func TestThresholdsEndpoint(t *testing.T) {
	server := createTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/thresholds", nil)
	req.Header.Set("X-Tenant-ID", "tenant-001")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Weights    domain.Weights    `json:"weights"`
		Thresholds domain.Thresholds `json:"thresholds"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if resp.Thresholds.OverallPassScore != 95 {
		t.Errorf("expected overall pass score 95, got %.1f", resp.Thresholds.OverallPassScore)
	}
	if resp.Weights.Sum() < 0.999 || resp.Weights.Sum() > 1.001 {
		t.Errorf("expected weights to sum to 1.0, got %.4f", resp.Weights.Sum())
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestNormalizePostURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain URL unchanged",
			in:   "https://instagram.com/p/abc123",
			want: "https://instagram.com/p/abc123",
		},
		{
			name: "utm params stripped",
			in:   "https://instagram.com/p/abc123?utm_source=share&utm_medium=link",
			want: "https://instagram.com/p/abc123",
		},
		{
			name: "non-tracking params kept",
			in:   "https://instagram.com/p/abc123?img_index=2",
			want: "https://instagram.com/p/abc123?img_index=2",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizePostURL(tc.in); got != tc.want {
				t.Errorf("normalizePostURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("TenantMiddlewareExtractsID", func(t *testing.T) {
		var capturedTenantID string

		handler := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedTenantID = GetTenantID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "my-tenant-123")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedTenantID != "my-tenant-123" {
			t.Errorf("expected tenant ID 'my-tenant-123', got '%s'", capturedTenantID)
		}
	})

	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
