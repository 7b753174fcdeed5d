package detector

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/adtrustlabs/shrike/internal/domain"
	"github.com/adtrustlabs/shrike/internal/fetcher"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(domain.DefaultDetectionConfig())
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}
	return d
}

func TestDetectorValidation(t *testing.T) {
	t.Run("WeightSumMustBeOne", func(t *testing.T) {
		cfg := domain.DefaultDetectionConfig()
		cfg.Weights.FollowerAuthenticity = 0.5 // sum now 1.2

		if _, err := New(cfg); err == nil {
			t.Fatal("expected weight-sum validation error")
		}
	})

	t.Run("NilPost", func(t *testing.T) {
		d := newTestDetector(t)

		_, err := d.Detect(context.Background(), nil)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("MissingTimestamp", func(t *testing.T) {
		d := newTestDetector(t)

		_, err := d.Detect(context.Background(), &domain.PostData{})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestDetectorScenarios(t *testing.T) {
	d := newTestDetector(t)
	f := fetcher.NewSeeded(42)
	ctx := context.Background()

	t.Run("Legitimate", func(t *testing.T) {
		post, err := f.FetchPostData("https://instagram.com/p/legit", fetcher.ScenarioLegitimate)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		report, err := d.Detect(ctx, post)
		if err != nil {
			t.Fatalf("detect failed: %v", err)
		}

		if report.OverallScore < 95 {
			t.Errorf("expected score >= 95, got %.2f", report.OverallScore)
		}
		if !report.Passed {
			t.Error("expected legitimate campaign to pass")
		}
		if !strings.Contains(string(report.Recommendation), "APPROVED") {
			t.Errorf("expected APPROVED recommendation, got %s", report.Recommendation)
		}
	})

	t.Run("BotFraud", func(t *testing.T) {
		post, err := f.FetchPostData("https://instagram.com/p/bots", fetcher.ScenarioBotFraud)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		report, err := d.Detect(ctx, post)
		if err != nil {
			t.Fatalf("detect failed: %v", err)
		}

		if report.OverallScore >= 60 {
			t.Errorf("expected score < 60, got %.2f", report.OverallScore)
		}
		if report.Passed {
			t.Error("expected bot fraud campaign to fail")
		}
		if len(report.FraudFlags) == 0 {
			t.Error("expected fraud flags")
		}
		if report.Recommendation != domain.RecommendHoldPayment &&
			report.Recommendation != domain.RecommendRejectPayment {
			t.Errorf("expected hold or reject, got %s", report.Recommendation)
		}
	})

	t.Run("MixedQuality", func(t *testing.T) {
		post, err := f.FetchPostData("https://instagram.com/p/mixed", fetcher.ScenarioMixedQuality)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		report, err := d.Detect(ctx, post)
		if err != nil {
			t.Fatalf("detect failed: %v", err)
		}

		if report.OverallScore < 60 || report.OverallScore >= 95 {
			t.Errorf("expected score in [60, 95), got %.2f", report.OverallScore)
		}
	})
}

func TestDetectorReport(t *testing.T) {
	d := newTestDetector(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	d.WithClock(func() time.Time { return now })

	post := &domain.PostData{
		PostURL: "https://instagram.com/p/abc123",
		Followers: []domain.FollowerProfile{
			{Username: "sarah_m", HasProfilePic: true, PostCount: 50, FollowingCount: 200,
				FollowerCount: 400, BioLength: 40, AccountAgeDays: 500, Location: "United States"},
			{Username: "user882314", PostCount: 0, Location: "Bot Farm"},
		},
		Engagement: domain.Engagement{
			Likes: 500,
			Comments: []domain.Comment{
				{Text: "The second half of this thread answered every question I had.",
					Username: "sarah_m", Timestamp: now.Add(-3 * time.Hour), Location: "United States"},
			},
		},
		HistoricalAvgEngagement: 50,
		PostTimestamp:           now.Add(-10 * time.Hour),
		InfluencerLocation:      "United States",
	}

	report, err := d.Detect(ctx, post)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}

	t.Run("BreakdownComplete", func(t *testing.T) {
		for _, name := range []string{
			domain.SignalFollowerAuthenticity,
			domain.SignalEngagementQuality,
			domain.SignalVelocityCheck,
			domain.SignalGeoAlignment,
		} {
			if _, ok := report.Breakdown[name]; !ok {
				t.Errorf("missing breakdown entry %s", name)
			}
		}
	})

	t.Run("WeightedContributionsSumToOverall", func(t *testing.T) {
		sum := 0.0
		for _, b := range report.Breakdown {
			sum += b.Score * b.Weight
		}
		if math.Abs(sum-report.OverallScore) > 0.01 {
			t.Errorf("breakdown sums to %.4f, overall is %.4f", sum, report.OverallScore)
		}
	})

	t.Run("PassedMatchesThreshold", func(t *testing.T) {
		if report.Passed != (report.OverallScore >= report.PassThreshold) {
			t.Errorf("passed=%v inconsistent with score %.2f vs threshold %.2f",
				report.Passed, report.OverallScore, report.PassThreshold)
		}
	})

	t.Run("ScoresWithinRange", func(t *testing.T) {
		for name, b := range report.Breakdown {
			if b.Score < 0 || b.Score > 100 {
				t.Errorf("signal %s score %.2f outside [0,100]", name, b.Score)
			}
		}
		if report.OverallScore < 0 || report.OverallScore > 100 {
			t.Errorf("overall score %.2f outside [0,100]", report.OverallScore)
		}
	})

	t.Run("Metadata", func(t *testing.T) {
		if report.Metadata.SignalCount != 4 {
			t.Errorf("expected 4 signals, got %d", report.Metadata.SignalCount)
		}
		if report.Metadata.EngineVersion != EngineVersion {
			t.Errorf("expected engine version %s, got %s", EngineVersion, report.Metadata.EngineVersion)
		}
		if report.ID == "" {
			t.Error("expected report ID")
		}
		if report.PostURL != post.PostURL {
			t.Errorf("expected post URL %s, got %s", post.PostURL, report.PostURL)
		}
	})

	t.Run("Idempotence", func(t *testing.T) {
		second, err := d.Detect(ctx, post)
		if err != nil {
			t.Fatalf("detect failed: %v", err)
		}

		if second.OverallScore != report.OverallScore {
			t.Errorf("repeated detection changed score: %.2f vs %.2f",
				second.OverallScore, report.OverallScore)
		}
		if second.Recommendation != report.Recommendation {
			t.Errorf("repeated detection changed recommendation: %s vs %s",
				second.Recommendation, report.Recommendation)
		}
		if len(second.FraudFlags) != len(report.FraudFlags) {
			t.Errorf("repeated detection changed flags: %v vs %v",
				second.FraudFlags, report.FraudFlags)
		}
	})
}

func TestDetectorDegenerateInput(t *testing.T) {
	d := newTestDetector(t)

	report, err := d.Detect(context.Background(), &domain.PostData{
		PostTimestamp: time.Now().Add(-2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("empty input should not error: %v", err)
	}

	follower := report.Breakdown[domain.SignalFollowerAuthenticity]
	if follower.Score != 0 {
		t.Errorf("expected follower score 0, got %.2f", follower.Score)
	}

	engagement := report.Breakdown[domain.SignalEngagementQuality]
	if engagement.Score != 50 {
		t.Errorf("expected neutral engagement score 50, got %.2f", engagement.Score)
	}

	if report.Passed {
		t.Error("empty campaign should not pass")
	}
	if len(report.FraudFlags) == 0 {
		t.Error("expected no-data flags")
	}
	if report.Summary == "" {
		t.Error("expected summary")
	}
}

func TestRecommendationTable(t *testing.T) {
	d := newTestDetector(t)

	tests := []struct {
		name      string
		score     float64
		flagCount int
		want      domain.Recommendation
	}{
		{"CleanPass", 97, 0, domain.RecommendApproved},
		{"PassWithTwoFlags", 96, 2, domain.RecommendMinorConcerns},
		{"PassWithManyFlags", 95, 5, domain.RecommendMonitor},
		{"HighButBelowPass", 88, 0, domain.RecommendManualReview},
		{"Moderate", 65, 3, domain.RecommendHoldPayment},
		{"Low", 30, 8, domain.RecommendRejectPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.recommend(tt.score, tt.flagCount); got != tt.want {
				t.Errorf("recommend(%.0f, %d) = %s, want %s", tt.score, tt.flagCount, got, tt.want)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   domain.Confidence
	}{
		{"AllAgree", []float64{95, 96, 97, 98}, domain.ConfidenceHigh},
		{"ModerateSpread", []float64{60, 70, 80, 90}, domain.ConfidenceMedium},
		{"WideSpread", []float64{10, 50, 90, 100}, domain.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := confidence(tt.scores...); got != tt.want {
				t.Errorf("confidence(%v) = %s, want %s", tt.scores, got, tt.want)
			}
		})
	}
}
