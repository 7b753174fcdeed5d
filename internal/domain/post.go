// Package domain defines the core interfaces and types for Shrike.
package domain

import (
	"time"
)

// FollowerProfile is an immutable snapshot of one follower account.
// Analyzers treat it as read-only.
type FollowerProfile struct {
	Username       string `json:"username"`
	HasProfilePic  bool   `json:"hasProfilePic"`
	PostCount      int    `json:"postCount"`
	FollowingCount int    `json:"followingCount"`
	FollowerCount  int    `json:"followerCount"`
	BioLength      int    `json:"bioLength"`
	AccountAgeDays int    `json:"accountAgeDays"`
	IsVerified     bool   `json:"isVerified"`
	Location       string `json:"location"`
}

// Comment is a single comment on the campaign post.
type Comment struct {
	Text      string    `json:"text"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location"`
}

// Engagement aggregates all interactions on the campaign post.
type Engagement struct {
	Likes    int       `json:"likes"`
	Comments []Comment `json:"comments"`
	Shares   int       `json:"shares"`
	Saves    int       `json:"saves"`
}

// PostData is the full input snapshot for one verification request,
// materialized upstream by the data-fetching layer. The engine never
// mutates it.
type PostData struct {
	PostURL                 string            `json:"postUrl,omitempty"`
	Followers               []FollowerProfile `json:"followers"`
	Engagement              Engagement        `json:"engagement"`
	HistoricalAvgEngagement float64           `json:"historicalAvgEngagement"`
	PostTimestamp           time.Time         `json:"postTimestamp"`
	InfluencerLocation      string            `json:"influencerLocation"`
}

// VerifyRequest is the API request payload for post verification.
type VerifyRequest struct {
	PostURL  string `json:"postUrl"`
	Scenario string `json:"scenario,omitempty"`
}
