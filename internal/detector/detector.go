// Package detector combines the four signal analyzers into one weighted
// fraud verdict with a payment recommendation.
package detector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adtrustlabs/shrike/internal/domain"
	"github.com/adtrustlabs/shrike/internal/signal"
)

// EngineVersion is stamped into every report.
const EngineVersion = "shrike-1.0"

var (
	// ErrInvalidInput is returned when required PostData fields are
	// missing or malformed. No partial report is produced.
	ErrInvalidInput = errors.New("invalid post data")
)

// Detector orchestrates the four analyzers. It is safe for concurrent use:
// all state is read-only after construction.
type Detector struct {
	followerChecker   *signal.FollowerChecker
	engagementChecker *signal.EngagementChecker
	velocityChecker   *signal.VelocityChecker
	geoChecker        *signal.GeoChecker

	cfg                  *domain.DetectionConfig
	weights              domain.Weights
	passThreshold        float64
	defaultHistoricalAvg float64
}

// New builds a detector from a validated detection configuration.
func New(cfg *domain.DetectionConfig) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection config: %w", err)
	}

	followerChecker, err := signal.NewFollowerChecker(cfg)
	if err != nil {
		return nil, err
	}

	return &Detector{
		cfg:                  cfg,
		followerChecker:      followerChecker,
		engagementChecker:    signal.NewEngagementChecker(cfg),
		velocityChecker:      signal.NewVelocityChecker(cfg),
		geoChecker:           signal.NewGeoChecker(cfg),
		weights:              cfg.Weights,
		passThreshold:        cfg.Thresholds.OverallPassScore,
		defaultHistoricalAvg: cfg.DefaultHistoricalAvg,
	}, nil
}

// Config returns the detection configuration the detector was built with.
func (d *Detector) Config() *domain.DetectionConfig {
	return d.cfg
}

// WithClock overrides the velocity checker's time source, for tests.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.velocityChecker.WithClock(now)
	return d
}

// Detect runs all four analyzers and combines their results into one
// FraudReport. The analyzers are independent, so they run as four tasks
// joined before combination; scoring semantics are order-independent.
func (d *Detector) Detect(ctx context.Context, post *domain.PostData) (*domain.FraudReport, error) {
	start := time.Now()

	if post == nil {
		return nil, fmt.Errorf("%w: post data is required", ErrInvalidInput)
	}
	if post.PostTimestamp.IsZero() {
		return nil, fmt.Errorf("%w: post timestamp is required", ErrInvalidInput)
	}

	historicalAvg := post.HistoricalAvgEngagement
	if historicalAvg <= 0 {
		historicalAvg = d.defaultHistoricalAvg
	}
	influencerLocation := post.InfluencerLocation
	if influencerLocation == "" {
		influencerLocation = "Unknown"
	}

	var (
		wg               sync.WaitGroup
		followerResult   domain.FollowerResult
		engagementResult domain.EngagementResult
		velocityResult   domain.VelocityResult
		geoResult        domain.GeoResult
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		followerResult = d.followerChecker.Analyze(post.Followers)
	}()
	go func() {
		defer wg.Done()
		engagementResult = d.engagementChecker.Analyze(post.Engagement)
	}()
	go func() {
		defer wg.Done()
		velocityResult = d.velocityChecker.Analyze(post.Engagement, historicalAvg, post.PostTimestamp)
	}()
	go func() {
		defer wg.Done()
		geoResult = d.geoChecker.Analyze(post.Followers, post.Engagement, influencerLocation)
	}()
	wg.Wait()

	overall := followerResult.Score*d.weights.FollowerAuthenticity +
		engagementResult.Score*d.weights.EngagementQuality +
		velocityResult.Score*d.weights.VelocityCheck +
		geoResult.Score*d.weights.GeoAlignment
	// Rounded before the threshold comparisons so the reported score and
	// the verdict never disagree.
	overall = round2(overall)

	// Flags accumulate in fixed order: follower, engagement, velocity, geo.
	flags := make([]string, 0,
		len(followerResult.Flags)+len(engagementResult.Flags)+
			len(velocityResult.Flags)+len(geoResult.Flags))
	flags = append(flags, followerResult.Flags...)
	flags = append(flags, engagementResult.Flags...)
	flags = append(flags, velocityResult.Flags...)
	flags = append(flags, geoResult.Flags...)

	report := &domain.FraudReport{
		ID:             uuid.New().String(),
		PostURL:        post.PostURL,
		OverallScore:   overall,
		PassThreshold:  d.passThreshold,
		Passed:         overall >= d.passThreshold,
		Recommendation: d.recommend(overall, len(flags)),
		Confidence: confidence(
			followerResult.Score,
			engagementResult.Score,
			velocityResult.Score,
			geoResult.Score,
		),
		Breakdown: map[string]domain.SignalBreakdown{
			domain.SignalFollowerAuthenticity: d.breakdown(followerResult.Score, d.weights.FollowerAuthenticity, followerResult),
			domain.SignalEngagementQuality:    d.breakdown(engagementResult.Score, d.weights.EngagementQuality, engagementResult),
			domain.SignalVelocityCheck:        d.breakdown(velocityResult.Score, d.weights.VelocityCheck, velocityResult),
			domain.SignalGeoAlignment:         d.breakdown(geoResult.Score, d.weights.GeoAlignment, geoResult),
		},
		FraudFlags: flags,
		Summary:    summarize(overall, followerResult, engagementResult),
		Timestamp:  time.Now().UTC(),
	}

	report.Metadata = domain.ReportMetadata{
		DetectMs:      time.Since(start).Milliseconds(),
		SignalCount:   4,
		EngineVersion: EngineVersion,
	}

	return report, nil
}

func (d *Detector) breakdown(score, weight float64, details any) domain.SignalBreakdown {
	return domain.SignalBreakdown{
		Score:                score,
		Weight:               weight,
		WeightedContribution: round2(score * weight),
		Details:              details,
	}
}

// recommend maps the overall score and flag count onto the payment
// recommendation taxonomy. Evaluated top to bottom, first match wins.
func (d *Detector) recommend(score float64, flagCount int) domain.Recommendation {
	switch {
	case score >= d.passThreshold && flagCount == 0:
		return domain.RecommendApproved
	case score >= d.passThreshold && flagCount <= 2:
		return domain.RecommendMinorConcerns
	case score >= d.passThreshold:
		return domain.RecommendMonitor
	case score >= 80:
		return domain.RecommendManualReview
	case score >= 60:
		return domain.RecommendHoldPayment
	default:
		return domain.RecommendRejectPayment
	}
}

// confidence derives the confidence label from the population standard
// deviation of the four signal scores. Low variance among signals means
// higher confidence in the combined verdict.
func confidence(scores ...float64) domain.Confidence {
	avg := 0.0
	for _, s := range scores {
		avg += s
	}
	avg /= float64(len(scores))

	variance := 0.0
	for _, s := range scores {
		variance += (s - avg) * (s - avg)
	}
	variance /= float64(len(scores))
	stdDev := math.Sqrt(variance)

	switch {
	case stdDev < 10:
		return domain.ConfidenceHigh
	case stdDev < 20:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// summarize produces the human-readable verdict sentence, with wording
// selected by score range and counts interpolated from the signal results.
func summarize(overall float64, follower domain.FollowerResult, engagement domain.EngagementResult) string {
	switch {
	case overall >= 95:
		return fmt.Sprintf("Excellent authenticity score (%.1f/100). "+
			"Campaign shows %d genuine followers with %d authentic interactions. "+
			"All metrics within expected ranges.",
			overall, follower.RealCount, engagement.AuthenticCount)
	case overall >= 80:
		return fmt.Sprintf("Good authenticity score (%.1f/100). "+
			"Some quality concerns detected but overall legitimate. "+
			"Manual review recommended before payment release.", overall)
	case overall >= 60:
		return fmt.Sprintf("Moderate authenticity score (%.1f/100). "+
			"Detected %d potential bot followers and %d spam comments. "+
			"Hold payment pending further investigation.",
			overall, follower.BotCount, engagement.SpamCount)
	default:
		return fmt.Sprintf("Low authenticity score (%.1f/100). "+
			"Strong indicators of fraud: %d bot followers, %d spam comments. "+
			"Payment should be blocked and refunded to brand.",
			overall, follower.BotCount, engagement.SpamCount)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
