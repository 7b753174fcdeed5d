package domain

import (
	"fmt"
	"math"
	"regexp"
)

// Weights are the per-signal scoring weights. They must sum to 1.0.
type Weights struct {
	FollowerAuthenticity float64 `json:"followerAuthenticity" yaml:"follower_authenticity"`
	EngagementQuality    float64 `json:"engagementQuality" yaml:"engagement_quality"`
	VelocityCheck        float64 `json:"velocityCheck" yaml:"velocity_check"`
	GeoAlignment         float64 `json:"geoAlignment" yaml:"geo_alignment"`
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.FollowerAuthenticity + w.EngagementQuality + w.VelocityCheck + w.GeoAlignment
}

// Thresholds are the per-signal minimums and the overall pass score.
type Thresholds struct {
	FollowerAuthenticityMin float64 `json:"followerAuthenticityMin" yaml:"follower_authenticity_min"`
	EngagementQualityMin    float64 `json:"engagementQualityMin" yaml:"engagement_quality_min"`
	VelocityAnomalyMax      float64 `json:"velocityAnomalyMax" yaml:"velocity_anomaly_max"`
	GeoAlignmentMin         float64 `json:"geoAlignmentMin" yaml:"geo_alignment_min"`
	OverallPassScore        float64 `json:"overallPassScore" yaml:"overall_pass_score"`
}

// DetectionConfig is the full scoring configuration. It is validated once
// at startup and read-only afterwards; analyzers only ever read from it.
type DetectionConfig struct {
	Weights    Weights    `json:"weights" yaml:"weights"`
	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`

	// BotUsernamePatterns are regexes matched against follower usernames.
	BotUsernamePatterns []string `json:"botUsernamePatterns" yaml:"bot_username_patterns"`

	// SpamPhrases are matched case-insensitively as substrings of comments.
	SpamPhrases []string `json:"spamPhrases" yaml:"spam_phrases"`

	// SuspiciousLocations mark a follower as a definite bot.
	SuspiciousLocations []string `json:"suspiciousLocations" yaml:"suspicious_locations"`

	// BotFarmLocations are synthetic location markers used by the geo
	// analyzer. Overlaps with SuspiciousLocations but is kept distinct:
	// the two lists drive different behaviors.
	BotFarmLocations []string `json:"botFarmLocations" yaml:"bot_farm_locations"`

	// ExpectedRegions maps an influencer location to the audience regions
	// considered aligned. Unknown locations fall back to the influencer's
	// own location.
	ExpectedRegions map[string][]string `json:"expectedRegions" yaml:"expected_regions"`

	// DefaultHistoricalAvg is used when PostData carries no baseline.
	DefaultHistoricalAvg float64 `json:"defaultHistoricalAvg" yaml:"default_historical_avg"`

	// MinSampleSize is the minimum follower sample worth analyzing.
	MinSampleSize int `json:"minSampleSize" yaml:"min_sample_size"`
}

// DefaultDetectionConfig returns the stock scoring configuration.
func DefaultDetectionConfig() *DetectionConfig {
	return &DetectionConfig{
		Weights: Weights{
			FollowerAuthenticity: 0.30,
			EngagementQuality:    0.35,
			VelocityCheck:        0.20,
			GeoAlignment:         0.15,
		},
		Thresholds: Thresholds{
			FollowerAuthenticityMin: 85,
			EngagementQualityMin:    80,
			VelocityAnomalyMax:      2.5,
			GeoAlignmentMin:         60,
			OverallPassScore:        95,
		},
		BotUsernamePatterns: []string{
			`^[a-z]+\d{4,}$`, // username1234
			`^\d+[a-z]+\d+$`, // 123user456
			`^user\d{6,}$`,   // user123456
		},
		SpamPhrases: []string{
			"great post", "nice", "cool", "awesome",
			"❤️", "🔥", "👍", "😍",
			"check my bio", "follow me", "dm me",
		},
		SuspiciousLocations: []string{"Unknown", "Bot Farm", "Multiple"},
		BotFarmLocations:    []string{"Unknown", "Bot Farm", "Multiple"},
		ExpectedRegions: map[string][]string{
			"United States":  {"United States", "Canada", "UK", "Australia"},
			"United Kingdom": {"UK", "United States", "Europe", "Australia"},
			"Canada":         {"Canada", "United States", "UK"},
			"Australia":      {"Australia", "UK", "United States", "New Zealand"},
			"Europe":         {"UK", "Germany", "France", "Spain", "Italy"},
		},
		DefaultHistoricalAvg: 5.0,
		MinSampleSize:        50,
	}
}

// Validate checks the configuration invariants. A weight sum away from 1.0
// or an uncompilable pattern is a fatal configuration error.
func (c *DetectionConfig) Validate() error {
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("detection weights must sum to 1.0, got %.4f", sum)
	}
	for _, p := range c.BotUsernamePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid bot username pattern %q: %w", p, err)
		}
	}
	if c.Thresholds.OverallPassScore <= 0 || c.Thresholds.OverallPassScore > 100 {
		return fmt.Errorf("overall pass score must be in (0,100], got %.2f", c.Thresholds.OverallPassScore)
	}
	if c.Thresholds.VelocityAnomalyMax <= 0 {
		return fmt.Errorf("velocity anomaly threshold must be positive, got %.2f", c.Thresholds.VelocityAnomalyMax)
	}
	if c.DefaultHistoricalAvg <= 0 {
		return fmt.Errorf("default historical average must be positive, got %.2f", c.DefaultHistoricalAvg)
	}
	return nil
}
