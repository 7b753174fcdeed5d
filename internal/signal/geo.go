package signal

import (
	"fmt"
	"sort"

	"github.com/adtrustlabs/shrike/internal/domain"
)

// GeoChecker compares the audience's geographic distribution against the
// influencer's expected regions.
type GeoChecker struct {
	botFarmLocations map[string]struct{}
	expectedRegions  map[string][]string
}

// NewGeoChecker builds a checker from the configured region tables.
func NewGeoChecker(cfg *domain.DetectionConfig) *GeoChecker {
	farms := make(map[string]struct{}, len(cfg.BotFarmLocations))
	for _, loc := range cfg.BotFarmLocations {
		farms[loc] = struct{}{}
	}
	return &GeoChecker{
		botFarmLocations: farms,
		expectedRegions:  cfg.ExpectedRegions,
	}
}

// Analyze scores how well follower and engagement locations align with the
// influencer's expected audience regions, penalizing bot-farm locations.
func (c *GeoChecker) Analyze(followers []domain.FollowerProfile, engagement domain.Engagement, influencerLocation string) domain.GeoResult {
	followerLocations := make(map[string]int, len(followers))
	for _, f := range followers {
		followerLocations[orUnknown(f.Location)]++
	}

	engagementLocations := make(map[string]int, len(engagement.Comments))
	for _, cm := range engagement.Comments {
		engagementLocations[orUnknown(cm.Location)]++
	}

	expected := c.expectedRegions[influencerLocation]
	if len(expected) == 0 {
		expected = []string{influencerLocation}
	}
	expectedSet := make(map[string]struct{}, len(expected))
	for _, r := range expected {
		expectedSet[r] = struct{}{}
	}

	followerAlign := calculateAlignment(followerLocations, expectedSet, len(followers))
	engagementAlign := calculateAlignment(engagementLocations, expectedSet, len(engagement.Comments))

	botFarmFollowers := 0
	for loc, n := range followerLocations {
		if _, ok := c.botFarmLocations[loc]; ok {
			botFarmFollowers += n
		}
	}
	botFarmEngagement := 0
	for loc, n := range engagementLocations {
		if _, ok := c.botFarmLocations[loc]; ok {
			botFarmEngagement += n
		}
	}

	var flags []string

	if float64(botFarmFollowers) > float64(len(followers))*0.2 {
		flags = append(flags, fmt.Sprintf("High bot farm follower presence: %.1f%%",
			float64(botFarmFollowers)/float64(len(followers))*100))
	}
	if float64(botFarmEngagement) > float64(len(engagement.Comments))*0.2 {
		flags = append(flags, fmt.Sprintf("High bot farm engagement: %.1f%%",
			float64(botFarmEngagement)/float64(len(engagement.Comments))*100))
	}
	if len(followers) > 0 && followerAlign.Percentage < 50 {
		flags = append(flags, fmt.Sprintf("Poor follower location alignment: only %.1f%% from target regions",
			followerAlign.Percentage))
	}
	if len(engagement.Comments) > 0 && engagementAlign.Percentage < 50 {
		flags = append(flags, fmt.Sprintf("Poor engagement location alignment: only %.1f%% from target regions",
			engagementAlign.Percentage))
	}

	if topLoc, topCount := mostCommon(followerLocations); topCount > 0 {
		if _, ok := expectedSet[topLoc]; !ok && float64(topCount) > float64(len(followers))*0.5 {
			flags = append(flags, fmt.Sprintf("Suspicious concentration: %d followers (%.1f%%) from %s",
				topCount, float64(topCount)/float64(len(followers))*100, topLoc))
		}
	}

	// Followers weigh 60%, engagement 40%.
	overall := followerAlign.Score*0.6 + engagementAlign.Score*0.4

	// Bot-farm penalty over the pooled population, capped at 30 points.
	if pool := len(followers) + len(engagement.Comments); pool > 0 {
		penalty := float64(botFarmFollowers+botFarmEngagement) / float64(pool) * 100
		if penalty > 30 {
			penalty = 30
		}
		overall -= penalty
	}
	if overall < 0 {
		overall = 0
	}

	return domain.GeoResult{
		Score:                  clampScore(overall),
		FollowerAlignment:      followerAlign,
		EngagementAlignment:    engagementAlign,
		BotFarmFollowers:       botFarmFollowers,
		BotFarmEngagement:      botFarmEngagement,
		TopFollowerCountries:   topCountries(followerLocations, 5),
		TopEngagementCountries: topCountries(engagementLocations, 5),
		InfluencerLocation:     influencerLocation,
		ExpectedRegions:        expected,
		Flags:                  flags,
	}
}

// calculateAlignment maps the aligned fraction onto discrete score
// breakpoints. Zero entries yields a neutral 50.
func calculateAlignment(locations map[string]int, expected map[string]struct{}, total int) domain.Alignment {
	if total == 0 {
		return domain.Alignment{Score: 50}
	}

	aligned := 0
	for loc, n := range locations {
		if _, ok := expected[loc]; ok {
			aligned += n
		}
	}

	pct := float64(aligned) / float64(total) * 100

	var score float64
	switch {
	case pct >= 80:
		score = 100
	case pct >= 60:
		score = 90
	case pct >= 40:
		score = 70
	case pct >= 20:
		score = 50
	default:
		score = 30
	}

	return domain.Alignment{
		Score:        score,
		AlignedCount: aligned,
		Percentage:   round2(pct),
		Total:        total,
	}
}

func orUnknown(location string) string {
	if location == "" {
		return "Unknown"
	}
	return location
}

// mostCommon returns the location with the highest count. Ties break
// lexicographically so results are deterministic.
func mostCommon(locations map[string]int) (string, int) {
	topLoc := ""
	topCount := 0
	for loc, n := range locations {
		if n > topCount || (n == topCount && loc < topLoc) {
			topLoc = loc
			topCount = n
		}
	}
	return topLoc, topCount
}

// topCountries returns the n most frequent locations.
func topCountries(locations map[string]int, n int) map[string]int {
	type entry struct {
		loc   string
		count int
	}
	entries := make([]entry, 0, len(locations))
	for loc, count := range locations {
		entries = append(entries, entry{loc, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].loc < entries[j].loc
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	top := make(map[string]int, len(entries))
	for _, e := range entries {
		top[e.loc] = e.count
	}
	return top
}
