package signal

import (
	"strings"
	"testing"

	"github.com/adtrustlabs/shrike/internal/domain"
)

func newFollowerChecker(t *testing.T) *FollowerChecker {
	t.Helper()
	checker, err := NewFollowerChecker(domain.DefaultDetectionConfig())
	if err != nil {
		t.Fatalf("failed to create checker: %v", err)
	}
	return checker
}

// realProfile returns a profile that trips no classification rule.
func realProfile() domain.FollowerProfile {
	return domain.FollowerProfile{
		Username:       "sarah_miller",
		HasProfilePic:  true,
		PostCount:      120,
		FollowingCount: 300,
		FollowerCount:  450,
		BioLength:      80,
		AccountAgeDays: 900,
		Location:       "United States",
	}
}

func TestFollowerChecker(t *testing.T) {
	checker := newFollowerChecker(t)

	t.Run("EmptyInput", func(t *testing.T) {
		result := checker.Analyze(nil)

		if result.Score != 0 {
			t.Errorf("expected score 0 for empty input, got %.2f", result.Score)
		}
		if result.RealCount != 0 || result.BotCount != 0 || result.SuspiciousCount != 0 {
			t.Errorf("expected zero counts, got real=%d bot=%d suspicious=%d",
				result.RealCount, result.BotCount, result.SuspiciousCount)
		}
		if len(result.Flags) != 1 {
			t.Fatalf("expected single flag, got %v", result.Flags)
		}
	})

	t.Run("AllReal", func(t *testing.T) {
		followers := make([]domain.FollowerProfile, 20)
		for i := range followers {
			followers[i] = realProfile()
		}

		result := checker.Analyze(followers)

		if result.Score != 100 {
			t.Errorf("expected score 100, got %.2f", result.Score)
		}
		if result.RealCount != 20 {
			t.Errorf("expected 20 real, got %d", result.RealCount)
		}
		if len(result.Flags) != 0 {
			t.Errorf("expected no flags, got %v", result.Flags)
		}
	})

	t.Run("DefiniteBotSignals", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*domain.FollowerProfile)
		}{
			{"BotUsernamePattern", func(f *domain.FollowerProfile) {
				f.Username = "user123456"
			}},
			{"LowercaseDigitsPattern", func(f *domain.FollowerProfile) {
				f.Username = "sarah9821"
			}},
			{"ZeroPosts", func(f *domain.FollowerProfile) {
				f.PostCount = 0
			}},
			{"SuspiciousLocation", func(f *domain.FollowerProfile) {
				f.Location = "Bot Farm"
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				profile := realProfile()
				tt.mutate(&profile)

				result := checker.Analyze([]domain.FollowerProfile{profile})
				if result.BotCount != 1 {
					t.Errorf("expected profile to classify as bot, got real=%d suspicious=%d",
						result.RealCount, result.SuspiciousCount)
				}
			})
		}
	})

	t.Run("SoftSignals", func(t *testing.T) {
		// One soft signal alone marks the account suspicious, not bot.
		noPic := realProfile()
		noPic.HasProfilePic = false

		result := checker.Analyze([]domain.FollowerProfile{noPic})
		if result.SuspiciousCount != 1 || result.BotCount != 0 {
			t.Errorf("expected suspicious, got bot=%d suspicious=%d", result.BotCount, result.SuspiciousCount)
		}

		// A skewed follow ratio is another soft signal.
		skewed := realProfile()
		skewed.FollowingCount = 4000
		skewed.FollowerCount = 100

		result = checker.Analyze([]domain.FollowerProfile{skewed})
		if result.SuspiciousCount != 1 {
			t.Errorf("expected skewed ratio to be suspicious, got %+v", result)
		}
	})

	t.Run("EscalationToThreeSignals", func(t *testing.T) {
		// No picture + no bio + young hyperactive account: three soft
		// signals upgrade the profile to definite bot.
		profile := realProfile()
		profile.HasProfilePic = false
		profile.BioLength = 0
		profile.AccountAgeDays = 10
		profile.FollowingCount = 2000

		result := checker.Analyze([]domain.FollowerProfile{profile})
		if result.BotCount != 1 {
			t.Errorf("expected escalation to bot, got bot=%d suspicious=%d",
				result.BotCount, result.SuspiciousCount)
		}
	})

	t.Run("CountsSumToTotal", func(t *testing.T) {
		bot := realProfile()
		bot.PostCount = 0

		suspicious := realProfile()
		suspicious.BioLength = 0

		followers := []domain.FollowerProfile{realProfile(), realProfile(), bot, suspicious}

		result := checker.Analyze(followers)

		if result.RealCount+result.BotCount+result.SuspiciousCount != len(followers) {
			t.Errorf("counts do not sum to total: real=%d bot=%d suspicious=%d total=%d",
				result.RealCount, result.BotCount, result.SuspiciousCount, len(followers))
		}

		// score = (real + 0.5*suspicious) / total * 100
		want := (2.0 + 0.5) / 4.0 * 100
		if result.Score != want {
			t.Errorf("expected score %.2f, got %.2f", want, result.Score)
		}
	})

	t.Run("BotTakesPrecedence", func(t *testing.T) {
		// Zero posts (definite) plus no bio (soft): counted once, as bot.
		profile := realProfile()
		profile.PostCount = 0
		profile.BioLength = 0

		result := checker.Analyze([]domain.FollowerProfile{profile})
		if result.BotCount != 1 || result.SuspiciousCount != 0 {
			t.Errorf("bot should take precedence, got bot=%d suspicious=%d",
				result.BotCount, result.SuspiciousCount)
		}
	})

	t.Run("HighBotPresenceFlag", func(t *testing.T) {
		followers := make([]domain.FollowerProfile, 10)
		for i := range followers {
			followers[i] = realProfile()
			if i < 4 { // 40% bots, above the 30% threshold
				followers[i].PostCount = 0
			}
		}

		result := checker.Analyze(followers)

		found := false
		for _, f := range result.Flags {
			if strings.Contains(f, "bot presence") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected high bot presence flag, got %v", result.Flags)
		}
	})

	t.Run("ZeroFollowerCountRatioGuard", func(t *testing.T) {
		profile := realProfile()
		profile.FollowerCount = 0
		profile.FollowingCount = 5000

		// Must not panic and must not count the ratio signal.
		result := checker.Analyze([]domain.FollowerProfile{profile})
		if result.RealCount != 1 {
			t.Errorf("expected real classification with zero follower count, got %+v", result)
		}
	})
}
