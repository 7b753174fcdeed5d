package signal

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/adtrustlabs/shrike/internal/domain"
)

// Promotional keywords that mark a comment as spam regardless of the
// configured phrase list.
var promoKeywords = []string{
	"check my bio", "follow me", "dm me", "link in bio",
	"click here", "visit my", "free followers",
}

// Low-effort affirmations. Anchored, matched against the lowercased text.
var genericPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(nice|cool|awesome|great|amazing|love it|perfect)!*$`),
	regexp.MustCompile(`^(this is|so) (nice|cool|awesome|great|amazing)!*$`),
	regexp.MustCompile(`^love (this|it)!*$`),
}

var (
	// Word characters in any script, so CJK and accented comments are not
	// mistaken for emoji-only spam.
	nonWordRe      = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	botCommenterRe = regexp.MustCompile(`^user\d{5,}$`)
)

// EngagementChecker classifies comments as authentic, generic, or spam and
// penalizes duplicate and bot-patterned activity.
type EngagementChecker struct {
	spamPhrases []string
}

// NewEngagementChecker builds a checker from the configured spam phrases.
func NewEngagementChecker(cfg *domain.DetectionConfig) *EngagementChecker {
	phrases := make([]string, 0, len(cfg.SpamPhrases))
	for _, p := range cfg.SpamPhrases {
		phrases = append(phrases, strings.ToLower(p))
	}
	return &EngagementChecker{spamPhrases: phrases}
}

// Analyze scores the comment stream. Classification is first-match-wins:
// spam before generic before authentic. An empty comment list scores a
// neutral 50.
func (c *EngagementChecker) Analyze(engagement domain.Engagement) domain.EngagementResult {
	comments := engagement.Comments
	if len(comments) == 0 {
		return domain.EngagementResult{
			Score: 50,
			Flags: []string{"No comments to analyze"},
		}
	}

	total := len(comments)
	spamCount := 0
	genericCount := 0

	texts := make([]string, 0, total)
	for _, cm := range comments {
		texts = append(texts, strings.ToLower(cm.Text))
	}
	duplicateCount := countDuplicates(texts)

	for _, cm := range comments {
		text := strings.TrimSpace(strings.ToLower(cm.Text))
		switch {
		case c.isSpam(text):
			spamCount++
		case isGeneric(text):
			genericCount++
		}
	}

	authenticCount := total - spamCount - genericCount
	qualityPct := float64(authenticCount) / float64(total) * 100

	// Authentic counts full, generic 40%, spam nothing.
	score := (float64(authenticCount) + float64(genericCount)*0.4) / float64(total) * 100

	var flags []string

	if float64(duplicateCount) > float64(total)*0.1 {
		dupRatio := float64(duplicateCount) / float64(total)
		penalty := dupRatio * 50
		if penalty > 20 {
			penalty = 20
		}
		score -= penalty
		flags = append(flags, fmt.Sprintf("High duplicate comments: %d (%.1f%%)",
			duplicateCount, dupRatio*100))
	}

	if float64(spamCount) > float64(total)*0.3 {
		flags = append(flags, fmt.Sprintf("High spam presence: %d comments (%.1f%%)",
			spamCount, float64(spamCount)/float64(total)*100))
	}
	if float64(genericCount) > float64(total)*0.4 {
		flags = append(flags, fmt.Sprintf("Many generic comments: %d (%.1f%%)",
			genericCount, float64(genericCount)/float64(total)*100))
	}

	flags = append(flags, botPatternFlags(comments)...)

	return domain.EngagementResult{
		Score:             clampScore(score),
		AuthenticCount:    authenticCount,
		SpamCount:         spamCount,
		GenericCount:      genericCount,
		DuplicateCount:    duplicateCount,
		TotalAnalyzed:     total,
		QualityPercentage: round2(qualityPct),
		Flags:             flags,
	}
}

func (c *EngagementChecker) isSpam(text string) bool {
	for _, phrase := range c.spamPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}

	for _, kw := range promoKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}

	// Effectively emoji-only: stripping everything that is not a word or
	// space character leaves fewer than 3 characters. Lengths count runes,
	// not bytes, so multi-byte emoji don't inflate the comparison.
	stripped := strings.TrimSpace(nonWordRe.ReplaceAllString(text, ""))
	if utf8.RuneCountInString(stripped) < 3 && utf8.RuneCountInString(text) > 3 {
		return true
	}

	return false
}

func isGeneric(text string) bool {
	if utf8.RuneCountInString(text) < 10 {
		return true
	}

	if len(strings.Fields(text)) <= 2 {
		return true
	}

	for _, re := range genericPatterns {
		if re.MatchString(text) {
			return true
		}
	}

	return false
}

// countDuplicates sums, over every text appearing more than once, the
// number of its extra occurrences.
func countDuplicates(texts []string) int {
	counts := make(map[string]int, len(texts))
	for _, t := range texts {
		counts[t]++
	}

	dupes := 0
	for _, n := range counts {
		if n > 1 {
			dupes += n - 1
		}
	}
	return dupes
}

// botPatternFlags looks for posting behavior typical of comment bots:
// the same accounts commenting repeatedly, bot-patterned usernames, and
// bursts of comments inside a tiny time window.
func botPatternFlags(comments []domain.Comment) []string {
	var flags []string

	perUser := make(map[string]int, len(comments))
	for _, cm := range comments {
		perUser[cm.Username]++
	}

	multiCommenters := 0
	for _, n := range perUser {
		if n > 2 {
			multiCommenters++
		}
	}
	if float64(multiCommenters) > float64(len(perUser))*0.1 {
		flags = append(flags, fmt.Sprintf("%d users posted multiple comments (bot behavior)", multiCommenters))
	}

	botCommenters := 0
	for _, cm := range comments {
		if botCommenterRe.MatchString(cm.Username) {
			botCommenters++
		}
	}
	if float64(botCommenters) > float64(len(comments))*0.2 {
		flags = append(flags, fmt.Sprintf("%d comments from bot-like usernames", botCommenters))
	}

	if len(comments) >= 10 {
		timestamps := make([]int64, 0, len(comments))
		for _, cm := range comments {
			if !cm.Timestamp.IsZero() {
				timestamps = append(timestamps, cm.Timestamp.UnixNano())
			}
		}
		if len(timestamps) > 0 {
			sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
			spanMinutes := float64(timestamps[len(timestamps)-1]-timestamps[0]) / 1e9 / 60
			if spanMinutes < 5 && len(comments) > 20 {
				flags = append(flags, fmt.Sprintf("Suspicious timing: %d comments in %.1f minutes",
					len(comments), spanMinutes))
			}
		}
	}

	return flags
}
