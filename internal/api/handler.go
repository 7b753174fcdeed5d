package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/adtrustlabs/shrike/internal/detector"
	"github.com/adtrustlabs/shrike/internal/domain"
	"github.com/adtrustlabs/shrike/internal/fetcher"
	"github.com/adtrustlabs/shrike/internal/metrics"
	"github.com/adtrustlabs/shrike/internal/rules"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	fetcher  *fetcher.Fetcher
	detector *detector.Detector
	engine   *rules.Engine
	version  string
	cacheTTL time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, f *fetcher.Fetcher, d *detector.Detector, engine *rules.Engine, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		fetcher:  f,
		detector: d,
		engine:   engine,
		version:  version,
		cacheTTL: 5 * time.Minute,
	}
}

// Verify handles POST /verify requests: fetch the post, run the four-signal
// detection, evaluate operator rules, and return the full verdict.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.PostURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "postUrl is required",
		})
		return
	}
	if u, err := url.Parse(req.PostURL); err != nil || u.Scheme == "" || u.Host == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "postUrl must be a valid absolute URL",
		})
		return
	}
	if req.Scenario != "" && !fetcher.ValidScenario(req.Scenario) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unknown scenario: " + req.Scenario,
		})
		return
	}

	postURL := normalizePostURL(req.PostURL)

	// Serve a memoized report when the same post was verified recently.
	if h.cache != nil {
		cached, err := h.cache.GetReport(ctx, tenantID, postURL)
		if err == nil && cached != nil {
			metrics.CacheHitsTotal.Inc()
			resp := cached.ToResponse()
			resp.Scenario = req.Scenario
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	// 1. Fetch post data
	fetchStart := time.Now()
	post, err := h.fetcher.FetchPostData(postURL, req.Scenario)
	if err != nil {
		slog.Error("fetch failed", "post_url", req.PostURL, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "failed to fetch post data",
		})
		return
	}
	fetchMs := time.Since(fetchStart).Milliseconds()

	// 2. Run detection
	detectStart := time.Now()
	report, err := h.detector.Detect(ctx, post)
	if err != nil {
		slog.Error("detection failed", "post_url", req.PostURL, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "fraud detection failed",
		})
		return
	}
	report.TenantID = tenantID

	// 3. Evaluate operator rules over the report
	if h.engine != nil && h.engine.RulesCount() > 0 {
		ruleResults, err := h.engine.EvaluateAll(ctx, tenantID, report)
		if err != nil {
			slog.Error("rule evaluation failed", "report_id", report.ID, "error", err)
		} else {
			report.RuleResults = ruleResults
			for _, rr := range ruleResults {
				metrics.RuleEvaluationsTotal.WithLabelValues(rr.SubRuleRef).Inc()
			}
		}
	}

	report.Metadata.TraceID = traceID
	report.Metadata.FetchMs = fetchMs
	report.Metadata.DetectMs = time.Since(detectStart).Milliseconds()
	report.Metadata.TotalMs = time.Since(start).Milliseconds()
	report.Metadata.RulesEvaluated = len(report.RuleResults)

	// 4. Memoize and persist
	if h.cache != nil {
		if err := h.cache.SetReport(ctx, tenantID, postURL, report, h.cacheTTL); err != nil {
			slog.Warn("failed to cache report", "report_id", report.ID, "error", err)
		}
		_, _ = h.cache.IncrementCounter(ctx, tenantID, "verifications", time.Hour)
	}
	if h.repo != nil {
		if err := h.repo.SaveReport(ctx, tenantID, report); err != nil {
			slog.Error("failed to save report", "report_id", report.ID, "error", err)
		}
	}

	// 5. Publish completion, and an alert for failed verifications
	if h.bus != nil {
		payload, _ := json.Marshal(report)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicVerificationCompleted, payload); err != nil {
			slog.Warn("failed to publish verification result", "report_id", report.ID, "error", err)
		}
		if !report.Passed {
			if err := h.bus.Publish(ctx, tenantID, domain.TopicVerificationAlert, payload); err != nil {
				slog.Warn("failed to publish alert", "report_id", report.ID, "error", err)
			}
		}
	}

	metrics.ObserveVerification(string(report.Recommendation), report.Passed, time.Since(detectStart).Seconds())
	countFlagsBySignal(report)

	resp := report.ToResponse()
	resp.Scenario = req.Scenario
	writeJSON(w, http.StatusOK, resp)
}

// countFlagsBySignal attributes raised flags back to their signal using the
// per-signal flag slices in the breakdown details.
func countFlagsBySignal(report *domain.FraudReport) {
	for name, b := range report.Breakdown {
		var n int
		switch d := b.Details.(type) {
		case domain.FollowerResult:
			n = len(d.Flags)
		case domain.EngagementResult:
			n = len(d.Flags)
		case domain.VelocityResult:
			n = len(d.Flags)
		case domain.GeoResult:
			n = len(d.Flags)
		}
		if n > 0 {
			metrics.FraudFlagsTotal.WithLabelValues(name).Add(float64(n))
		}
	}
}

// GetVerification retrieves a stored fraud report by ID.
func (h *Handler) GetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	reportID := chi.URLParam(r, "id")

	if reportID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "verification id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	report, err := h.repo.GetReport(ctx, tenantID, reportID)
	if err != nil {
		slog.Error("failed to get report", "id", reportID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "verification not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ListVerifications retrieves reports for a post URL.
func (h *Handler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	postURL := r.URL.Query().Get("postUrl")
	if postURL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "postUrl query parameter is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "since must be RFC3339",
			})
			return
		}
		since = parsed
	}

	reports, err := h.repo.ListReportsByPost(ctx, tenantID, postURL, since)
	if err != nil {
		slog.Error("failed to list reports", "post_url", postURL, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list verifications",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"verifications": reports,
		"count":         len(reports),
	})
}

// ListScenarios returns the synthetic data scenarios the fetcher supports.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": fetcher.Scenarios(),
	})
}

// GetThresholds returns the active scoring weights and thresholds.
func (h *Handler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	cfg := h.detector.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"weights":    cfg.Weights,
		"thresholds": cfg.Thresholds,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all loaded rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a rule.
type CreateRuleRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Expression  string            `json:"expression"`
	Bands       []domain.RuleBand `json:"bands"`
	Weight      float64           `json:"weight"`
	Enabled     bool              `json:"enabled"`
}

// CreateRule creates a new rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	ruleConfig := &domain.RuleConfig{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Bands:       req.Bands,
		Weight:      req.Weight,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by attempting to load
	if err := h.engine.LoadRule(ruleConfig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveRuleConfig(ctx, GlobalTenantID, ruleConfig); err != nil {
			slog.Error("failed to save rule config", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"rule":    ruleConfig,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// GlobalTenantID is used for rules that apply to all tenants.
const GlobalTenantID = "*"

// ReloadRules reloads all rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	dbRules, err := h.repo.ListRuleConfigs(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// normalizePostURL strips tracking query parameters so memoization keys are
// stable across shares of the same post.
func normalizePostURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for key := range q {
		if strings.HasPrefix(key, "utm_") || key == "igsh" {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
