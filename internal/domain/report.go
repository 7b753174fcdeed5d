package domain

import (
	"time"
)

// Recommendation is the payment action derived from the overall score and
// the aggregated flag count.
type Recommendation string

const (
	RecommendApproved      Recommendation = "APPROVED_FOR_PAYMENT"
	RecommendMinorConcerns Recommendation = "APPROVED_WITH_MINOR_CONCERNS"
	RecommendMonitor       Recommendation = "APPROVED_BUT_MONITOR"
	RecommendManualReview  Recommendation = "MANUAL_REVIEW_RECOMMENDED"
	RecommendHoldPayment   Recommendation = "HOLD_PAYMENT_PENDING_REVIEW"
	RecommendRejectPayment Recommendation = "REJECT_PAYMENT_FRAUD_DETECTED"
)

// Confidence expresses how much the four signals agree with each other.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Signal names used as breakdown keys and weight identifiers.
const (
	SignalFollowerAuthenticity = "follower_authenticity"
	SignalEngagementQuality    = "engagement_quality"
	SignalVelocityCheck        = "velocity_check"
	SignalGeoAlignment         = "geo_alignment"
)

// FollowerResult is the follower authenticity analyzer output.
type FollowerResult struct {
	Score                  float64  `json:"score"`
	RealCount              int      `json:"realCount"`
	BotCount               int      `json:"botCount"`
	SuspiciousCount        int      `json:"suspiciousCount"`
	TotalAnalyzed          int      `json:"totalAnalyzed"`
	AuthenticityPercentage float64  `json:"authenticityPercentage"`
	Flags                  []string `json:"flags"`
}

// EngagementResult is the engagement quality analyzer output.
type EngagementResult struct {
	Score             float64  `json:"score"`
	AuthenticCount    int      `json:"authenticCount"`
	SpamCount         int      `json:"spamCount"`
	GenericCount      int      `json:"genericCount"`
	DuplicateCount    int      `json:"duplicateCount"`
	TotalAnalyzed     int      `json:"totalAnalyzed"`
	QualityPercentage float64  `json:"qualityPercentage"`
	Flags             []string `json:"flags"`
}

// VelocityResult is the velocity analyzer output.
type VelocityResult struct {
	Score              float64  `json:"score"`
	CurrentVelocity    float64  `json:"currentVelocity"`
	HistoricalAverage  float64  `json:"historicalAverage"`
	VelocityRatio      float64  `json:"velocityRatio"`
	StandardDeviations float64  `json:"standardDeviations"`
	TimeSincePostHours float64  `json:"timeSincePostHours"`
	IsAnomalous        bool     `json:"isAnomalous"`
	Flags              []string `json:"flags"`
}

// Alignment describes how much of one location distribution falls inside
// the influencer's expected regions.
type Alignment struct {
	Score        float64 `json:"score"`
	AlignedCount int     `json:"alignedCount"`
	Percentage   float64 `json:"percentage"`
	Total        int     `json:"total"`
}

// GeoResult is the geographic alignment analyzer output.
type GeoResult struct {
	Score                  float64        `json:"score"`
	FollowerAlignment      Alignment      `json:"followerAlignment"`
	EngagementAlignment    Alignment      `json:"engagementAlignment"`
	BotFarmFollowers       int            `json:"botFarmFollowers"`
	BotFarmEngagement      int            `json:"botFarmEngagement"`
	TopFollowerCountries   map[string]int `json:"topFollowerCountries"`
	TopEngagementCountries map[string]int `json:"topEngagementCountries"`
	InfluencerLocation     string         `json:"influencerLocation"`
	ExpectedRegions        []string       `json:"expectedRegions"`
	Flags                  []string       `json:"flags"`
}

// SignalBreakdown is one signal's contribution to the overall score.
type SignalBreakdown struct {
	Score                float64 `json:"score"`
	Weight               float64 `json:"weight"`
	WeightedContribution float64 `json:"weightedContribution"`
	Details              any     `json:"details"`
}

// FraudReport is the complete verdict for one campaign post.
type FraudReport struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	PostURL  string `json:"postUrl,omitempty"`

	OverallScore   float64        `json:"overallScore"`
	PassThreshold  float64        `json:"passThreshold"`
	Passed         bool           `json:"passed"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     Confidence     `json:"confidence"`

	// Breakdown keys are the four signal names.
	Breakdown map[string]SignalBreakdown `json:"breakdown"`

	// FraudFlags is the concatenation of the four analyzer flag sequences
	// in fixed order: follower, engagement, velocity, geo. Never deduped.
	FraudFlags []string `json:"fraudFlags"`

	// RuleResults are outcomes of operator-defined CEL rules, kept separate
	// from the analyzer flags.
	RuleResults []RuleResult `json:"ruleResults,omitempty"`

	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`

	Metadata ReportMetadata `json:"metadata"`
}

// ReportMetadata carries processing information for one verification.
type ReportMetadata struct {
	TraceID        string `json:"traceId"`
	FetchMs        int64  `json:"fetchMs"`
	DetectMs       int64  `json:"detectMs"`
	TotalMs        int64  `json:"totalMs"`
	SignalCount    int    `json:"signalCount"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	EngineVersion  string `json:"engineVersion"`
}

// VerifyResponse is the API response for POST /verify.
type VerifyResponse struct {
	ReportID       string         `json:"reportId"`
	PostURL        string         `json:"postUrl,omitempty"`
	Scenario       string         `json:"scenario,omitempty"`
	OverallScore   float64        `json:"overallScore"`
	Passed         bool           `json:"passed"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     Confidence     `json:"confidence"`
	FraudFlags     []string       `json:"fraudFlags"`
	Summary        string         `json:"summary"`
	Metadata       ReportMetadata `json:"metadata"`
}

// ToResponse converts a FraudReport to its API response shape.
func (r *FraudReport) ToResponse() *VerifyResponse {
	return &VerifyResponse{
		ReportID:       r.ID,
		PostURL:        r.PostURL,
		OverallScore:   r.OverallScore,
		Passed:         r.Passed,
		Recommendation: r.Recommendation,
		Confidence:     r.Confidence,
		FraudFlags:     r.FraudFlags,
		Summary:        r.Summary,
		Metadata:       r.Metadata,
	}
}
