// Package signal implements the four heuristic analyzers whose scores the
// detector combines into one fraud verdict. All analyzers are pure
// functions of their inputs plus the read-only detection configuration.
package signal

import (
	"fmt"
	"regexp"

	"github.com/adtrustlabs/shrike/internal/domain"
)

// FollowerChecker classifies follower profiles as real, suspicious, or bot.
type FollowerChecker struct {
	botPatterns         []*regexp.Regexp
	suspiciousLocations map[string]struct{}
}

// NewFollowerChecker builds a checker with precompiled username patterns.
func NewFollowerChecker(cfg *domain.DetectionConfig) (*FollowerChecker, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.BotUsernamePatterns))
	for _, p := range cfg.BotUsernamePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile bot username pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	locations := make(map[string]struct{}, len(cfg.SuspiciousLocations))
	for _, loc := range cfg.SuspiciousLocations {
		locations[loc] = struct{}{}
	}

	return &FollowerChecker{
		botPatterns:         patterns,
		suspiciousLocations: locations,
	}, nil
}

// Analyze classifies every follower and scores the overall authenticity.
// Each follower lands in exactly one bucket; bot takes priority over
// suspicious. An empty follower list is a hard-fail signal, not neutral.
func (c *FollowerChecker) Analyze(followers []domain.FollowerProfile) domain.FollowerResult {
	if len(followers) == 0 {
		return domain.FollowerResult{
			Score: 0,
			Flags: []string{"No followers to analyze"},
		}
	}

	total := len(followers)
	botCount := 0
	suspiciousCount := 0

	for i := range followers {
		definiteBot, suspicious := c.classify(&followers[i])
		switch {
		case definiteBot:
			botCount++
		case suspicious:
			suspiciousCount++
		}
	}

	realCount := total - botCount - suspiciousCount
	authenticityPct := float64(realCount) / float64(total) * 100

	// Real followers count full, suspicious half, bots nothing.
	score := (float64(realCount) + float64(suspiciousCount)*0.5) / float64(total) * 100

	var flags []string
	if float64(botCount) > float64(total)*0.3 {
		flags = append(flags, fmt.Sprintf("High bot presence: %d bots (%.1f%%)",
			botCount, float64(botCount)/float64(total)*100))
	}
	if float64(suspiciousCount) > float64(total)*0.2 {
		flags = append(flags, fmt.Sprintf("Many suspicious accounts: %d (%.1f%%)",
			suspiciousCount, float64(suspiciousCount)/float64(total)*100))
	}

	return domain.FollowerResult{
		Score:                  clampScore(score),
		RealCount:              realCount,
		BotCount:               botCount,
		SuspiciousCount:        suspiciousCount,
		TotalAnalyzed:          total,
		AuthenticityPercentage: round2(authenticityPct),
		Flags:                  flags,
	}
}

// classify evaluates one profile. Username pattern, zero posts, and a
// suspicious location are each definite-bot signals on their own. The soft
// signals (no picture, skewed follow ratio, young hyperactive account, no
// bio) escalate to definite bot when three or more trigger together.
func (c *FollowerChecker) classify(f *domain.FollowerProfile) (definiteBot, suspicious bool) {
	for _, re := range c.botPatterns {
		if re.MatchString(f.Username) {
			definiteBot = true
			break
		}
	}

	if f.PostCount == 0 {
		definiteBot = true
	}

	if _, ok := c.suspiciousLocations[f.Location]; ok {
		definiteBot = true
	}

	softSignals := 0

	if !f.HasProfilePic {
		suspicious = true
		softSignals++
	}

	// Only meaningful when both counts are nonzero.
	if f.FollowingCount > 0 && f.FollowerCount > 0 {
		if float64(f.FollowingCount)/float64(f.FollowerCount) > 10 {
			suspicious = true
			softSignals++
		}
	}

	if f.AccountAgeDays < 30 && f.FollowingCount > 1000 {
		suspicious = true
		softSignals++
	}

	if f.BioLength == 0 {
		suspicious = true
		softSignals++
	}

	if softSignals >= 3 {
		definiteBot = true
	}

	return definiteBot, suspicious
}
