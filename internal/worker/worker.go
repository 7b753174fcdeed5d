// Package worker provides async verification processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/adtrustlabs/shrike/internal/detector"
	"github.com/adtrustlabs/shrike/internal/domain"
	"github.com/adtrustlabs/shrike/internal/fetcher"
	"github.com/adtrustlabs/shrike/internal/rules"
)

// Worker processes verification requests asynchronously from the EventBus.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	fetcher  *fetcher.Fetcher
	detector *detector.Detector
	engine   *rules.Engine

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount is the number of concurrent workers per tenant
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, f *fetcher.Fetcher, d *detector.Detector, engine *rules.Engine) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		fetcher:  f,
		detector: d,
		engine:   engine,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicVerificationRequested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicVerificationRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.processVerification(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicVerificationRequested,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processVerification(ctx, msg.TenantID, msg)
}

// VerificationMessage is the message payload for async verification.
type VerificationMessage struct {
	PostURL  string `json:"postUrl"`
	TenantID string `json:"tenantId,omitempty"`
	TraceID  string `json:"traceId,omitempty"`
	Scenario string `json:"scenario,omitempty"`
}

// processVerification runs a post through the full verification pipeline.
func (w *Worker) processVerification(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var req VerificationMessage
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse verification message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if req.TenantID != "" {
		tenantID = req.TenantID
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing verification",
		"post_url", req.PostURL,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	// 1. Fetch post data
	fetchStart := time.Now()
	post, err := w.fetcher.FetchPostData(req.PostURL, req.Scenario)
	if err != nil {
		slog.Error("fetch failed",
			"post_url", req.PostURL,
			"error", err,
		)
		return err
	}
	fetchMs := time.Since(fetchStart).Milliseconds()

	// 2. Run fraud detection
	detectStart := time.Now()
	report, err := w.detector.Detect(ctx, post)
	if err != nil {
		slog.Error("detection failed",
			"post_url", req.PostURL,
			"error", err,
		)
		return err
	}
	report.TenantID = tenantID

	// 3. Evaluate operator rules over the report
	if w.engine != nil && w.engine.RulesCount() > 0 {
		ruleResults, err := w.engine.EvaluateAll(ctx, tenantID, report)
		if err != nil {
			slog.Error("rule evaluation failed",
				"report_id", report.ID,
				"error", err,
			)
		} else {
			report.RuleResults = ruleResults
		}
	}

	report.Metadata.TraceID = traceID
	report.Metadata.FetchMs = fetchMs
	report.Metadata.DetectMs = time.Since(detectStart).Milliseconds()
	report.Metadata.TotalMs = time.Since(start).Milliseconds()
	report.Metadata.RulesEvaluated = len(report.RuleResults)

	// 4. Persist report
	if w.repo != nil {
		if err := w.repo.SaveReport(ctx, tenantID, report); err != nil {
			slog.Error("failed to save report",
				"report_id", report.ID,
				"error", err,
			)
		}
	}

	// 5. Publish result
	resultPayload, _ := json.Marshal(report)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicVerificationCompleted, resultPayload); err != nil {
		slog.Error("failed to publish verification result",
			"report_id", report.ID,
			"error", err,
		)
	}

	// 6. Failed verifications raise an alert
	if !report.Passed {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicVerificationAlert, resultPayload); err != nil {
			slog.Error("failed to publish alert",
				"report_id", report.ID,
				"error", err,
			)
		}
	}

	slog.Info("verification processed",
		"post_url", req.PostURL,
		"tenant_id", tenantID,
		"score", report.OverallScore,
		"recommendation", report.Recommendation,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
