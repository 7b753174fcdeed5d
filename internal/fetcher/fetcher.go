// Package fetcher materializes campaign post data for verification.
// In production this would call the social platform APIs; the shipped
// implementation generates synthetic scenarios for demos and tests.
package fetcher

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/adtrustlabs/shrike/internal/domain"
)

// Scenario names supported by the synthetic fetcher.
const (
	ScenarioLegitimate   = "legitimate"
	ScenarioBotFraud     = "bot_fraud"
	ScenarioMixedQuality = "mixed_quality"
)

// ScenarioInfo describes one scenario for the /scenarios endpoint.
type ScenarioInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ExpectedScore string `json:"expectedScore"`
}

// Scenarios lists the available synthetic scenarios.
func Scenarios() []ScenarioInfo {
	return []ScenarioInfo{
		{
			Name:          ScenarioLegitimate,
			Description:   "Legitimate campaign with real engagement",
			ExpectedScore: "95-100",
		},
		{
			Name:          ScenarioBotFraud,
			Description:   "Campaign with bot followers and fake engagement",
			ExpectedScore: "10-40",
		},
		{
			Name:          ScenarioMixedQuality,
			Description:   "Mixed campaign with some real and some fake engagement",
			ExpectedScore: "60-80",
		},
	}
}

// ValidScenario reports whether name is a supported scenario.
func ValidScenario(name string) bool {
	switch name {
	case ScenarioLegitimate, ScenarioBotFraud, ScenarioMixedQuality:
		return true
	}
	return false
}

// Fetcher generates synthetic campaign data. A fixed seed produces a
// reproducible dataset shape for tests.
type Fetcher struct {
	rng *rand.Rand
	now func() time.Time
}

// New creates a fetcher seeded from the current time.
func New() *Fetcher {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded creates a fetcher with a fixed seed, for reproducible tests.
func NewSeeded(seed int64) *Fetcher {
	return &Fetcher{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// WithClock overrides the fetcher's time source.
func (f *Fetcher) WithClock(now func() time.Time) *Fetcher {
	f.now = now
	return f
}

// FetchPostData builds the PostData snapshot for a post URL under the
// given scenario.
func (f *Fetcher) FetchPostData(postURL, scenario string) (*domain.PostData, error) {
	if scenario == "" {
		scenario = ScenarioLegitimate
	}

	var post *domain.PostData
	switch scenario {
	case ScenarioLegitimate:
		eng := f.legitimateEngagement(100, usAudience)
		post = &domain.PostData{
			Followers:               f.legitimateFollowers(1000, usAudience),
			Engagement:              eng,
			HistoricalAvgEngagement: hourlyEngagementRate(eng, 12),
			PostTimestamp:           f.now().Add(-12 * time.Hour),
			InfluencerLocation:      "United States",
		}
	case ScenarioBotFraud:
		// Baseline is tiny relative to the purchased engagement burst, so
		// the velocity analyzer sees a massive spike.
		post = &domain.PostData{
			Followers:               f.botFollowers(1000),
			Engagement:              f.botEngagement(200),
			HistoricalAvgEngagement: 2.1,
			PostTimestamp:           f.now().Add(-2 * time.Hour),
			InfluencerLocation:      "United States",
		}
	case ScenarioMixedQuality:
		eng := f.mixedEngagement(150)
		post = &domain.PostData{
			Followers:               f.mixedFollowers(1000),
			Engagement:              eng,
			HistoricalAvgEngagement: hourlyEngagementRate(eng, 8),
			PostTimestamp:           f.now().Add(-8 * time.Hour),
			InfluencerLocation:      "United Kingdom",
		}
	default:
		return nil, fmt.Errorf("unknown scenario: %s", scenario)
	}

	post.PostURL = postURL
	return post, nil
}

// Audience location pools, matched to the scenario influencer's expected
// regions so the geo signal reflects follower quality rather than mismatched
// synthetic locations.
var (
	usAudience = []string{"United States", "Canada", "UK", "Australia"}
	ukAudience = []string{"UK", "United States", "Europe", "Australia"}
)

// hourlyEngagementRate computes the weighted engagement volume per hour,
// using the same weighting the velocity analyzer applies. Scenarios use it
// as the creator's historical baseline so a scenario's velocity anomaly (or
// lack of one) is deliberate rather than an artifact of synthetic volume.
func hourlyEngagementRate(e domain.Engagement, hours float64) float64 {
	total := float64(e.Likes) + 3*float64(len(e.Comments)) + 5*float64(e.Shares) + 2*float64(e.Saves)
	return total / hours
}

func (f *Fetcher) legitimateFollowers(count int, locations []string) []domain.FollowerProfile {
	followers := make([]domain.FollowerProfile, 0, count)
	for i := 0; i < count; i++ {
		followers = append(followers, domain.FollowerProfile{
			Username:       f.realUsername(),
			HasProfilePic:  f.rng.Float64() > 0.05,
			PostCount:      f.intBetween(10, 500),
			FollowingCount: f.intBetween(100, 1000),
			FollowerCount:  f.intBetween(50, 5000),
			BioLength:      f.intBetween(20, 150),
			AccountAgeDays: f.intBetween(180, 2000),
			IsVerified:     f.rng.Float64() > 0.95,
			Location:       f.pick(locations...),
		})
	}
	return followers
}

func (f *Fetcher) botFollowers(count int) []domain.FollowerProfile {
	followers := make([]domain.FollowerProfile, 0, count)
	for i := 0; i < count; i++ {
		if f.rng.Float64() > 0.3 { // 70% bots
			followers = append(followers, domain.FollowerProfile{
				Username:       fmt.Sprintf("user%d", f.intBetween(100000, 999999)),
				HasProfilePic:  false,
				PostCount:      0,
				FollowingCount: f.intBetween(2000, 5000),
				FollowerCount:  f.intBetween(0, 50),
				BioLength:      0,
				AccountAgeDays: f.intBetween(1, 30),
				Location:       f.pick("Unknown", "Bot Farm", "Multiple"),
			})
		} else {
			followers = append(followers, domain.FollowerProfile{
				Username:       f.realUsername(),
				HasProfilePic:  true,
				PostCount:      f.intBetween(10, 200),
				FollowingCount: f.intBetween(200, 1500),
				FollowerCount:  f.intBetween(100, 2000),
				BioLength:      f.intBetween(30, 100),
				AccountAgeDays: f.intBetween(90, 1000),
				Location:       f.pick("India", "Bangladesh", "Philippines"),
			})
		}
	}
	return followers
}

func (f *Fetcher) mixedFollowers(count int) []domain.FollowerProfile {
	followers := f.legitimateFollowers(count*6/10, ukAudience)
	followers = append(followers, f.botFollowers(count*4/10)...)
	f.rng.Shuffle(len(followers), func(i, j int) {
		followers[i], followers[j] = followers[j], followers[i]
	})
	return followers
}

var commentOpeners = []string{
	"This is exactly what I needed to see today! Your perspective is refreshing.",
	"I've been following your journey and this post really resonates with me.",
	"The way you explain complex topics is incredible. Thank you!",
	"This reminds me of my own experience with this. Such solid insights!",
	"Love this content! Keep it coming!",
	"You always deliver amazing posts!",
	"This is why I follow you. Quality content.",
	"Absolutely brilliant work as always!",
	"How did you get started with this?",
	"What tools do you recommend for beginners?",
	"Could you make a tutorial on this topic?",
	"Where can I learn more about this?",
}

var commentClosers = []string{
	"Learned a lot from this one.",
	"Sharing this with my study group later.",
	"Keep these coming, seriously.",
	"This made my whole morning.",
	"Bookmarked for my next project.",
	"Your consistency really shows.",
	"More people need to read this.",
	"Thanks for taking the time to write it up.",
	"Looking forward to the next one.",
	"Genuinely some of your best work.",
}

var spamComments = []string{
	"Great post!", "Nice!", "Cool!", "🔥", "❤️", "👍",
	"Check my bio", "Follow me back", "DM me",
}

// uniqueCommentTexts returns count distinct comment texts built from
// opener/closer pairs, shuffled so each call varies. Real audiences do not
// repeat each other verbatim; duplicated texts are a bot tell the engagement
// analyzer penalizes, so legitimate comments must be distinct. Requests
// beyond the pair space (currently 120) wrap around and repeat.
func (f *Fetcher) uniqueCommentTexts(count int) []string {
	pairs := make([]string, 0, len(commentOpeners)*len(commentClosers))
	for _, opener := range commentOpeners {
		for _, closer := range commentClosers {
			pairs = append(pairs, opener+" "+closer)
		}
	}
	f.rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})

	texts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		texts = append(texts, pairs[i%len(pairs)])
	}
	return texts
}

func (f *Fetcher) legitimateEngagement(commentCount int, locations []string) domain.Engagement {
	texts := f.uniqueCommentTexts(commentCount)

	comments := make([]domain.Comment, 0, commentCount)
	for i := 0; i < commentCount; i++ {
		comments = append(comments, domain.Comment{
			Text:      texts[i],
			Username:  f.realUsername(),
			Timestamp: f.now().Add(-time.Duration(f.intBetween(1, 9)) * time.Hour),
			Location:  f.pick(locations...),
		})
	}

	return domain.Engagement{
		Likes:    f.intBetween(800, 1200),
		Comments: comments,
		Shares:   f.intBetween(50, 150),
		Saves:    f.intBetween(100, 300),
	}
}

func (f *Fetcher) botEngagement(commentCount int) domain.Engagement {
	comments := make([]domain.Comment, 0, commentCount)
	for i := 0; i < commentCount; i++ {
		comments = append(comments, domain.Comment{
			Text:      spamComments[f.rng.Intn(len(spamComments))],
			Username:  fmt.Sprintf("user%d", f.intBetween(100000, 999999)),
			Timestamp: f.now().Add(-time.Duration(f.intBetween(1, 60)) * time.Minute),
			Location:  f.pick("Unknown", "Bot Farm", "India", "Bangladesh"),
		})
	}

	return domain.Engagement{
		Likes:    f.intBetween(1500, 2500), // suspiciously high
		Comments: comments,
		Shares:   f.intBetween(10, 30),
		Saves:    f.intBetween(20, 50),
	}
}

func (f *Fetcher) mixedEngagement(commentCount int) domain.Engagement {
	legit := f.legitimateEngagement(commentCount*6/10, ukAudience)
	bot := f.botEngagement(commentCount * 4 / 10)

	comments := append(legit.Comments, bot.Comments...)
	f.rng.Shuffle(len(comments), func(i, j int) {
		comments[i], comments[j] = comments[j], comments[i]
	})

	return domain.Engagement{
		Likes:    legit.Likes + bot.Likes,
		Comments: comments,
		Shares:   legit.Shares + bot.Shares,
		Saves:    legit.Saves + bot.Saves,
	}
}

var (
	usernamePrefixes = []string{"", "the", "real", "official", "just", "its"}
	usernameNames    = []string{
		"sarah", "mike", "emma", "john", "alex", "maria",
		"david", "lisa", "james", "anna",
	}
	usernameSeparators = []string{"_", ".", ""}
)

func (f *Fetcher) realUsername() string {
	prefix := usernamePrefixes[f.rng.Intn(len(usernamePrefixes))]
	name := usernameNames[f.rng.Intn(len(usernameNames))]
	sep := usernameSeparators[f.rng.Intn(len(usernameSeparators))]

	number := ""
	if f.rng.Intn(3) == 1 {
		number = fmt.Sprintf("%d", f.intBetween(1, 99))
	}

	if prefix == "" {
		sep = ""
	}
	return prefix + sep + name + number
}

func (f *Fetcher) pick(options ...string) string {
	return options[f.rng.Intn(len(options))]
}

// intBetween returns a random int in [lo, hi] inclusive.
func (f *Fetcher) intBetween(lo, hi int) int {
	return lo + f.rng.Intn(hi-lo+1)
}
