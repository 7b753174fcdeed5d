package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/adtrustlabs/shrike/internal/domain"
)

// Engagement type weights used when collapsing likes, comments, shares,
// and saves into one engagement total.
const (
	commentWeight = 3
	shareWeight   = 5
	saveWeight    = 2
)

// relativeStdDev models engagement as normally varying with ~30% relative
// standard deviation. A fixed modeling assumption, not a measured value.
const relativeStdDev = 0.3

// earlyActivityShare is the assumed fraction of eventual engagement that
// lands in the first hours after posting. Tunable heuristic used by the
// dropoff check, not empirically derived.
const earlyActivityShare = 0.2

// VelocityChecker compares the current engagement rate against a
// historical baseline to detect anomalous spikes and drops.
type VelocityChecker struct {
	anomalyThreshold float64

	// now is injectable so results are reproducible in tests.
	now func() time.Time
}

// NewVelocityChecker builds a checker with the configured anomaly
// threshold (in standard deviations).
func NewVelocityChecker(cfg *domain.DetectionConfig) *VelocityChecker {
	threshold := cfg.Thresholds.VelocityAnomalyMax
	if threshold <= 0 {
		threshold = 2.5
	}
	return &VelocityChecker{
		anomalyThreshold: threshold,
		now:              time.Now,
	}
}

// WithClock overrides the checker's time source.
func (c *VelocityChecker) WithClock(now func() time.Time) *VelocityChecker {
	c.now = now
	return c
}

// Analyze computes the per-hour engagement velocity and its deviation from
// the historical average, flagging anomalous spikes, instant spikes, and
// post-spike dropoffs.
func (c *VelocityChecker) Analyze(engagement domain.Engagement, historicalAvg float64, postedAt time.Time) domain.VelocityResult {
	totalEngagement := weightedEngagement(engagement)

	hoursElapsed := c.now().Sub(postedAt).Hours()
	if hoursElapsed < 1 {
		hoursElapsed = 1 // floor avoids unstable division for fresh posts
	}

	currentVelocity := totalEngagement / hoursElapsed

	if historicalAvg < 1 {
		historicalAvg = 1
	}

	velocityRatio := currentVelocity / historicalAvg

	stdDev := historicalAvg * relativeStdDev
	deviation := math.Abs(currentVelocity-historicalAvg) / stdDev

	var flags []string
	isAnomalous := false

	if deviation > c.anomalyThreshold {
		isAnomalous = true
		if currentVelocity > historicalAvg {
			flags = append(flags, fmt.Sprintf("Unusually high engagement spike: %.1fσ above normal", deviation))
		} else {
			flags = append(flags, fmt.Sprintf("Unusually low engagement: %.1fσ below normal", deviation))
		}
	}

	if hoursElapsed < 2 && currentVelocity > historicalAvg*2 {
		flags = append(flags, "Suspicious instant spike pattern (possible bot purchase)")
	}

	if hoursElapsed > 12 {
		early := estimateEarlyEngagement(engagement, postedAt)
		if early > totalEngagement*1.5 {
			flags = append(flags, "Engagement dropped significantly after initial spike")
		}
	}

	var score float64
	switch {
	case deviation <= 1:
		score = 100
	case deviation <= 2:
		score = 80
	case deviation <= 3:
		score = 60
	default:
		score = 40
	}

	// Sustained engagement over time earns a small bonus.
	if hoursElapsed > 6 && !isAnomalous {
		score = math.Min(100, score+10)
	}

	return domain.VelocityResult{
		Score:              clampScore(score),
		CurrentVelocity:    round2(currentVelocity),
		HistoricalAverage:  round2(historicalAvg),
		VelocityRatio:      round2(velocityRatio),
		StandardDeviations: round2(deviation),
		TimeSincePostHours: round2(hoursElapsed),
		IsAnomalous:        isAnomalous,
		Flags:              flags,
	}
}

func weightedEngagement(e domain.Engagement) float64 {
	return float64(e.Likes +
		len(e.Comments)*commentWeight +
		e.Shares*shareWeight +
		e.Saves*saveWeight)
}

// estimateEarlyEngagement projects what the eventual total should have
// been from the share of comments posted within the first two hours,
// normalized by the assumed early-activity share. When the estimate far
// exceeds the actual total, engagement collapsed after an initial spike.
func estimateEarlyEngagement(e domain.Engagement, postedAt time.Time) float64 {
	total := weightedEngagement(e)
	if len(e.Comments) == 0 {
		return total
	}

	cutoff := postedAt.Add(2 * time.Hour)
	earlyComments := 0
	for _, cm := range e.Comments {
		if !cm.Timestamp.IsZero() && cm.Timestamp.Before(cutoff) {
			earlyComments++
		}
	}

	earlyRatio := float64(earlyComments) / float64(len(e.Comments))
	return total * earlyRatio / earlyActivityShare
}
