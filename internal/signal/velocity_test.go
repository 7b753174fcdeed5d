package signal

import (
	"strings"
	"testing"
	"time"

	"github.com/adtrustlabs/shrike/internal/domain"
)

func newVelocityChecker(now time.Time) *VelocityChecker {
	checker := NewVelocityChecker(domain.DefaultDetectionConfig())
	return checker.WithClock(func() time.Time { return now })
}

func TestVelocityChecker(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

	t.Run("SteadyVelocity", func(t *testing.T) {
		checker := newVelocityChecker(now)

		// 1000 likes over 10 hours = 100/hour, matching the baseline.
		result := checker.Analyze(domain.Engagement{Likes: 1000}, 100, now.Add(-10*time.Hour))

		if result.Score != 100 {
			t.Errorf("expected score 100, got %.2f", result.Score)
		}
		if result.IsAnomalous {
			t.Error("steady velocity should not be anomalous")
		}
		if len(result.Flags) != 0 {
			t.Errorf("expected no flags, got %v", result.Flags)
		}
		if result.CurrentVelocity != 100 {
			t.Errorf("expected velocity 100, got %.2f", result.CurrentVelocity)
		}
	})

	t.Run("WeightedEngagementTotal", func(t *testing.T) {
		checker := newVelocityChecker(now)

		// likes + 3*comments + 5*shares + 2*saves = 100+30+50+20 = 200
		engagement := domain.Engagement{
			Likes:  100,
			Shares: 10,
			Saves:  10,
			Comments: []domain.Comment{
				{Text: "a"}, {Text: "b"}, {Text: "c"},
				{Text: "d"}, {Text: "e"}, {Text: "f"},
				{Text: "g"}, {Text: "h"}, {Text: "i"}, {Text: "j"},
			},
		}

		result := checker.Analyze(engagement, 100, now.Add(-2*time.Hour))

		if result.CurrentVelocity != 100 {
			t.Errorf("expected weighted velocity 100, got %.2f", result.CurrentVelocity)
		}
	})

	t.Run("SpikeAnomaly", func(t *testing.T) {
		checker := newVelocityChecker(now)

		// 5000 likes over 2 hours against a baseline of 100/hour.
		result := checker.Analyze(domain.Engagement{Likes: 5000}, 100, now.Add(-2*time.Hour))

		if !result.IsAnomalous {
			t.Error("expected anomaly")
		}
		if result.Score != 40 {
			t.Errorf("expected score 40, got %.2f", result.Score)
		}

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "spike") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected spike flag, got %v", result.Flags)
		}
	})

	t.Run("DropAnomaly", func(t *testing.T) {
		checker := newVelocityChecker(now)

		// 10 likes over 10 hours = 1/hour against 100/hour: 3.3σ below.
		result := checker.Analyze(domain.Engagement{Likes: 10}, 100, now.Add(-10*time.Hour))

		if !result.IsAnomalous {
			t.Error("expected anomaly")
		}

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "below normal") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected low engagement flag, got %v", result.Flags)
		}
	})

	t.Run("ScoreBands", func(t *testing.T) {
		checker := newVelocityChecker(now)

		tests := []struct {
			name  string
			likes int
			want  float64
		}{
			// Baseline 100/hour over 2 hours; stddev is 30.
			{"WithinOneSigma", 250, 100},   // 125/h -> 0.83σ
			{"WithinTwoSigma", 290, 80},    // 145/h -> 1.5σ
			{"WithinThreeSigma", 350, 60},  // 175/h -> 2.5σ, at threshold
			{"BeyondThreeSigma", 1000, 40}, // 500/h -> 13.3σ
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := checker.Analyze(domain.Engagement{Likes: tt.likes}, 100, now.Add(-2*time.Hour))
				if result.Score != tt.want {
					t.Errorf("expected score %.0f, got %.2f (%.2fσ)",
						tt.want, result.Score, result.StandardDeviations)
				}
			})
		}
	})

	t.Run("SustainedBonus", func(t *testing.T) {
		checker := newVelocityChecker(now)

		// 1.5σ deviation would score 80; 10 hours of sustained
		// non-anomalous engagement adds 10.
		result := checker.Analyze(domain.Engagement{Likes: 1450}, 100, now.Add(-10*time.Hour))

		if result.Score != 90 {
			t.Errorf("expected score 90 with bonus, got %.2f", result.Score)
		}
	})

	t.Run("InstantSpikeFlag", func(t *testing.T) {
		checker := newVelocityChecker(now)

		// Fresh post with velocity above twice the baseline.
		result := checker.Analyze(domain.Engagement{Likes: 300}, 100, now.Add(-30*time.Minute))

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "instant spike") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected instant spike flag, got %v", result.Flags)
		}
	})

	t.Run("FreshPostHourFloor", func(t *testing.T) {
		checker := newVelocityChecker(now)

		result := checker.Analyze(domain.Engagement{Likes: 100}, 100, now.Add(-10*time.Minute))

		if result.TimeSincePostHours != 1 {
			t.Errorf("expected floored elapsed of 1 hour, got %.2f", result.TimeSincePostHours)
		}
	})

	t.Run("DropoffFlag", func(t *testing.T) {
		checker := newVelocityChecker(now)

		postedAt := now.Add(-14 * time.Hour)

		// All comments landed in the post's first two hours; projecting
		// from a 20% early-activity share, the eventual total should have
		// been five times what actually accrued.
		comments := make([]domain.Comment, 10)
		for i := range comments {
			comments[i] = domain.Comment{
				Text:      "early",
				Timestamp: postedAt.Add(time.Hour),
			}
		}

		result := checker.Analyze(domain.Engagement{Comments: comments}, 2, postedAt)

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "dropped") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected dropoff flag, got %v", result.Flags)
		}
	})

	t.Run("ZeroHistoricalAverageGuard", func(t *testing.T) {
		checker := newVelocityChecker(now)

		// Guarded to a floor of 1, never a division by zero.
		result := checker.Analyze(domain.Engagement{Likes: 100}, 0, now.Add(-2*time.Hour))

		if result.HistoricalAverage != 1 {
			t.Errorf("expected guarded baseline of 1, got %.2f", result.HistoricalAverage)
		}
	})
}
