package signal

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/adtrustlabs/shrike/internal/domain"
)

func newEngagementChecker() *EngagementChecker {
	return NewEngagementChecker(domain.DefaultDetectionConfig())
}

// authenticComment builds a comment long enough to classify as authentic,
// distinct per index so no duplicate penalty applies.
func authenticComment(i int) domain.Comment {
	return domain.Comment{
		Text:      fmt.Sprintf("I really learned a lot from this detailed breakdown, part %d.", i),
		Username:  fmt.Sprintf("emma_%d", i),
		Timestamp: time.Now().Add(-time.Duration(i+1) * time.Hour),
		Location:  "United States",
	}
}

func TestEngagementChecker(t *testing.T) {
	checker := newEngagementChecker()

	t.Run("EmptyComments", func(t *testing.T) {
		result := checker.Analyze(domain.Engagement{Likes: 500})

		if result.Score != 50 {
			t.Errorf("expected neutral score 50, got %.2f", result.Score)
		}
		if len(result.Flags) != 1 {
			t.Fatalf("expected single flag, got %v", result.Flags)
		}
	})

	t.Run("Classification", func(t *testing.T) {
		tests := []struct {
			name string
			text string
			want string // "spam", "generic", "authentic"
		}{
			{"SpamPhrase", "Great post!", "spam"},
			{"SpamPhraseCaseInsensitive", "NICE work", "spam"},
			{"PromoKeyword", "Amazing, check my bio for more", "spam"},
			{"EmojiOnly", "🔥🔥🔥🔥", "spam"},
			{"ThreeEmoji", "😂😂😂", "generic"}, // 3 characters, not over the emoji-spam threshold
			{"ShortNonASCII", "这个真不错", "generic"},
			{"ShortText", "love you", "generic"},
			{"TwoWords", "absolutely wonderful", "generic"},
			{"AffirmationPattern", "this is amazing!!", "generic"},
			{"Authentic", "The way you explained the second step cleared up weeks of confusion for me.", "authentic"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := checker.Analyze(domain.Engagement{
					Comments: []domain.Comment{{Text: tt.text, Username: "emma_1"}},
				})

				got := "authentic"
				if result.SpamCount == 1 {
					got = "spam"
				} else if result.GenericCount == 1 {
					got = "generic"
				}
				if got != tt.want {
					t.Errorf("text %q classified as %s, want %s", tt.text, got, tt.want)
				}
			})
		}
	})

	t.Run("CountsSumToTotal", func(t *testing.T) {
		comments := []domain.Comment{
			authenticComment(1),
			authenticComment(2),
			{Text: "Great post!", Username: "emma_3"},
			{Text: "love you", Username: "emma_4"},
		}

		result := checker.Analyze(domain.Engagement{Comments: comments})

		if result.AuthenticCount+result.SpamCount+result.GenericCount != len(comments) {
			t.Errorf("counts do not sum to total: authentic=%d spam=%d generic=%d total=%d",
				result.AuthenticCount, result.SpamCount, result.GenericCount, len(comments))
		}

		// score = (authentic + 0.4*generic) / total * 100 = 60
		if result.Score != 60 {
			t.Errorf("expected score 60, got %.2f", result.Score)
		}
	})

	t.Run("DuplicatePenalty", func(t *testing.T) {
		// Five identical authentic comments among ten: 4 duplicates,
		// ratio 0.4, penalty capped at 20.
		comments := make([]domain.Comment, 0, 10)
		for i := 0; i < 5; i++ {
			comments = append(comments, authenticComment(i))
		}
		for i := 0; i < 5; i++ {
			comments = append(comments, domain.Comment{
				Text:     "This guide completely changed how I approach my morning routine.",
				Username: fmt.Sprintf("mike_%d", i),
			})
		}

		result := checker.Analyze(domain.Engagement{Comments: comments})

		if result.DuplicateCount != 4 {
			t.Errorf("expected 4 duplicates, got %d", result.DuplicateCount)
		}
		if result.Score != 80 { // 100 - 20 penalty
			t.Errorf("expected score 80, got %.2f", result.Score)
		}

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "duplicate") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected duplicate flag, got %v", result.Flags)
		}
	})

	t.Run("NoDuplicatePenaltyBelowThreshold", func(t *testing.T) {
		// One duplicate among twenty is under the 10% threshold.
		comments := make([]domain.Comment, 0, 20)
		for i := 0; i < 19; i++ {
			comments = append(comments, authenticComment(i))
		}
		comments = append(comments, authenticComment(0))

		result := checker.Analyze(domain.Engagement{Comments: comments})

		if result.DuplicateCount != 1 {
			t.Errorf("expected 1 duplicate, got %d", result.DuplicateCount)
		}
		if result.Score != 100 {
			t.Errorf("expected no penalty, got score %.2f", result.Score)
		}
	})

	t.Run("BotUsernameFlag", func(t *testing.T) {
		comments := []domain.Comment{
			{Text: "The first section alone was worth reading twice this week.", Username: "user88231"},
			{Text: "I shared your earlier series with my whole team yesterday.", Username: "user99105"},
			authenticComment(1),
			authenticComment(2),
		}

		result := checker.Analyze(domain.Engagement{Comments: comments})

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "bot-like usernames") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected bot username flag, got %v", result.Flags)
		}
	})

	t.Run("MultiCommenterFlag", func(t *testing.T) {
		// Two accounts posting five comments each: every distinct
		// commenter is a multi-commenter.
		comments := make([]domain.Comment, 0, 10)
		for i := 0; i < 10; i++ {
			c := authenticComment(i)
			c.Username = fmt.Sprintf("emma_%d", i%2)
			comments = append(comments, c)
		}

		result := checker.Analyze(domain.Engagement{Comments: comments})

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "multiple comments") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected multi-commenter flag, got %v", result.Flags)
		}
	})

	t.Run("TimingConcentrationFlag", func(t *testing.T) {
		now := time.Now()
		comments := make([]domain.Comment, 0, 25)
		for i := 0; i < 25; i++ {
			c := authenticComment(i)
			c.Timestamp = now.Add(time.Duration(i) * time.Second)
			comments = append(comments, c)
		}

		result := checker.Analyze(domain.Engagement{Comments: comments})

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "Suspicious timing") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected timing flag, got %v", result.Flags)
		}
	})

	t.Run("SpamPresenceFlag", func(t *testing.T) {
		comments := []domain.Comment{
			{Text: "Follow me back", Username: "user55111"},
			{Text: "Check my bio", Username: "user55112"},
			authenticComment(1),
		}

		result := checker.Analyze(domain.Engagement{Comments: comments})

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "spam presence") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected spam presence flag, got %v", result.Flags)
		}
	})
}
