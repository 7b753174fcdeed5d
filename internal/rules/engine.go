// Package rules provides the CEL-Go based post-scoring rule engine.
// Operator-defined rules run over the signal features already computed by
// the detector and contribute additional review outcomes to the report.
package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/adtrustlabs/shrike/internal/domain"
)

// Engine is the CEL-based rule evaluation engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RuleConfig
	Program cel.Program
}

// NewEngine creates a new rule evaluation engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment exposing the computed signal features
	env, err := cel.NewEnv(
		cel.Variable("report", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("overall_score", cel.DoubleType),
		cel.Variable("follower_score", cel.DoubleType),
		cel.Variable("engagement_score", cel.DoubleType),
		cel.Variable("velocity_score", cel.DoubleType),
		cel.Variable("geo_score", cel.DoubleType),
		cel.Variable("bot_count", cel.IntType),
		cel.Variable("suspicious_count", cel.IntType),
		cel.Variable("spam_count", cel.IntType),
		cel.Variable("duplicate_count", cel.IntType),
		cel.Variable("velocity_ratio", cel.DoubleType),
		cel.Variable("bot_farm_followers", cel.IntType),
		cel.Variable("flag_count", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.RuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules.
func (e *Engine) LoadRules(configs []*domain.RuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvaluateAll evaluates all loaded rules in parallel against the features
// extracted from one fraud report.
func (e *Engine) EvaluateAll(ctx context.Context, tenantID string, report *domain.FraudReport) ([]domain.RuleResult, error) {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil, nil
	}

	activation := Features(report)

	// Parallel evaluation using worker pool pattern
	results := make([]domain.RuleResult, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			results[idx] = e.evaluateRule(r, activation, tenantID, report.ID)
		}(i, rule)
	}

	wg.Wait()

	return results, nil
}

// evaluateRule evaluates a single rule and returns the result.
func (e *Engine) evaluateRule(rule *CompiledRule, activation map[string]any, tenantID, reportID string) domain.RuleResult {
	start := time.Now()

	result := domain.RuleResult{
		RuleID:   rule.Config.ID,
		TenantID: tenantID,
		ReportID: reportID,
		Weight:   rule.Config.Weight,
	}

	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		result.SubRuleRef = domain.RuleOutcomeError
		result.Reason = fmt.Sprintf("evaluation error: %v", err)
		result.ProcessMs = time.Since(start).Milliseconds()
		return result
	}

	score := toScore(out)
	result.Score = score

	result.SubRuleRef, result.Reason = matchBand(score, rule.Config.Bands)
	result.ProcessMs = time.Since(start).Milliseconds()

	return result
}

// Features flattens a fraud report into the CEL activation map.
func Features(report *domain.FraudReport) map[string]any {
	activation := map[string]any{
		"overall_score":      report.OverallScore,
		"follower_score":     0.0,
		"engagement_score":   0.0,
		"velocity_score":     0.0,
		"geo_score":          0.0,
		"bot_count":          int64(0),
		"suspicious_count":   int64(0),
		"spam_count":         int64(0),
		"duplicate_count":    int64(0),
		"velocity_ratio":     0.0,
		"bot_farm_followers": int64(0),
		"flag_count":         int64(len(report.FraudFlags)),
	}

	if b, ok := report.Breakdown[domain.SignalFollowerAuthenticity]; ok {
		activation["follower_score"] = b.Score
		if r, ok := b.Details.(domain.FollowerResult); ok {
			activation["bot_count"] = int64(r.BotCount)
			activation["suspicious_count"] = int64(r.SuspiciousCount)
		}
	}
	if b, ok := report.Breakdown[domain.SignalEngagementQuality]; ok {
		activation["engagement_score"] = b.Score
		if r, ok := b.Details.(domain.EngagementResult); ok {
			activation["spam_count"] = int64(r.SpamCount)
			activation["duplicate_count"] = int64(r.DuplicateCount)
		}
	}
	if b, ok := report.Breakdown[domain.SignalVelocityCheck]; ok {
		activation["velocity_score"] = b.Score
		if r, ok := b.Details.(domain.VelocityResult); ok {
			activation["velocity_ratio"] = r.VelocityRatio
		}
	}
	if b, ok := report.Breakdown[domain.SignalGeoAlignment]; ok {
		activation["geo_score"] = b.Score
		if r, ok := b.Details.(domain.GeoResult); ok {
			activation["bot_farm_followers"] = int64(r.BotFarmFollowers)
		}
	}

	activation["report"] = map[string]any{
		"id":             report.ID,
		"overall_score":  report.OverallScore,
		"passed":         report.Passed,
		"recommendation": string(report.Recommendation),
		"confidence":     string(report.Confidence),
	}

	return activation
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// matchBand finds the matching band for a score.
// Bands are evaluated in order. Use lower inclusive, upper exclusive,
// except when upper is nil (meaning infinity).
func matchBand(score float64, bands []domain.RuleBand) (string, string) {
	for _, band := range bands {
		lower := 0.0
		hasUpper := band.UpperLimit != nil
		upper := float64(1e9) // effectively infinity

		if band.LowerLimit != nil {
			lower = *band.LowerLimit
		}
		if hasUpper {
			upper = *band.UpperLimit
		}

		if score >= lower {
			if !hasUpper || score < upper {
				return band.SubRuleRef, band.Reason
			}
		}
	}

	// Default to pass if no band matches
	return domain.RuleOutcomePass, "no matching band"
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(configs []*domain.RuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.RuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.RuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.RuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
