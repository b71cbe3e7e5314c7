package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Rule flags reported in fraud results.
const (
	FlagVelocityLimitExceeded  = "velocity_limit_exceeded"
	FlagLargeAmount            = "large_amount"
	FlagCardTestingPattern     = "card_testing_pattern"
	FlagHighRiskBIN            = "high_risk_bin"
	FlagNewCard                = "new_card"
	FlagMultipleFailedAttempts = "multiple_failed_attempts"
)

// Default thresholds. All of them live in Config so tuning never touches
// rule code.
const (
	DefaultBlockThreshold  = 50
	DefaultStepUpThreshold = 40

	DefaultVelocityWindow      = 60 * time.Second
	DefaultVelocityMaxCharges  = 3
	DefaultLargeAmountMinor    = 500_000
	DefaultCardTestingWindow   = 10 * time.Minute
	DefaultCardTestingCount    = 10
	DefaultCardTestingMaxMinor = 100
	DefaultFailureWindow       = 60 * time.Second
	DefaultFailureCount        = 3
)

// HistoryProvider supplies the time-windowed charge history the rules query.
// The charge repository satisfies this, so history is shared across
// instances instead of living in a per-process map.
type HistoryProvider interface {
	CountByFingerprintSince(fingerprint string, since time.Time) (int64, error)
	CountSmallByFingerprintSince(fingerprint string, maxAmount int64, since time.Time) (int64, error)
	CountFailedByFingerprintSince(fingerprint string, since time.Time) (int64, error)
	CountSucceededByFingerprint(fingerprint string) (int64, error)
}

// Config holds every tunable the rules consume.
type Config struct {
	BlockThreshold  int
	StepUpThreshold int

	VelocityWindow     time.Duration
	VelocityMaxCharges int64

	LargeAmountMinor int64

	CardTestingWindow   time.Duration
	CardTestingCount    int64
	CardTestingMaxMinor int64

	FailureWindow time.Duration
	FailureCount  int64

	// HighRiskPrefixes is matched against the card fingerprint with a plain
	// prefix check, first match wins.
	HighRiskPrefixes []string
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		BlockThreshold:      DefaultBlockThreshold,
		StepUpThreshold:     DefaultStepUpThreshold,
		VelocityWindow:      DefaultVelocityWindow,
		VelocityMaxCharges:  DefaultVelocityMaxCharges,
		LargeAmountMinor:    DefaultLargeAmountMinor,
		CardTestingWindow:   DefaultCardTestingWindow,
		CardTestingCount:    DefaultCardTestingCount,
		CardTestingMaxMinor: DefaultCardTestingMaxMinor,
		FailureWindow:       DefaultFailureWindow,
		FailureCount:        DefaultFailureCount,
	}
}

// Result is computed fresh per attempt and only ever logged, never stored as
// mutable state.
type Result struct {
	Score          int
	Flags          []string
	Passed         bool
	RequiresStepUp bool
}

// FlagsString joins the flags for persistence in charge snapshots.
func (r Result) FlagsString() string {
	return strings.Join(r.Flags, ",")
}

// Engine scores transactions against the injected history provider. Check is
// a pure read; the engine keeps no state of its own and is safe for
// concurrent use.
type Engine struct {
	cfg     Config
	history HistoryProvider
}

// NewEngine creates a fraud engine with the given thresholds.
func NewEngine(cfg Config, history HistoryProvider) *Engine {
	return &Engine{cfg: cfg, history: history}
}

// Check scores one charge attempt. Every rule contributes independently; no
// rule reads another rule's output.
func (e *Engine) Check(ctx context.Context, merchantID uint, fingerprint string, amount int64) (Result, error) {
	_ = ctx
	now := time.Now()
	result := Result{}

	add := func(points int, flag string) {
		result.Score += points
		result.Flags = append(result.Flags, flag)
	}

	// Velocity: too many charges on the same card in the trailing window.
	recent, err := e.history.CountByFingerprintSince(fingerprint, now.Add(-e.cfg.VelocityWindow))
	if err != nil {
		return Result{}, fmt.Errorf("fraud velocity lookup: %w", err)
	}
	if recent >= e.cfg.VelocityMaxCharges {
		add(30, FlagVelocityLimitExceeded)
	}

	// Large amount.
	if amount > e.cfg.LargeAmountMinor {
		add(20, FlagLargeAmount)
	}

	// Card-testing pattern: many tiny charges in a short period.
	small, err := e.history.CountSmallByFingerprintSince(fingerprint, e.cfg.CardTestingMaxMinor, now.Add(-e.cfg.CardTestingWindow))
	if err != nil {
		return Result{}, fmt.Errorf("fraud card-testing lookup: %w", err)
	}
	if small >= e.cfg.CardTestingCount {
		add(35, FlagCardTestingPattern)
	}

	// High-risk BIN list, plain prefix containment on the fingerprint.
	for _, prefix := range e.cfg.HighRiskPrefixes {
		if prefix != "" && strings.HasPrefix(fingerprint, prefix) {
			add(15, FlagHighRiskBIN)
			break
		}
	}

	// New card: no prior successful charge for this fingerprint.
	succeeded, err := e.history.CountSucceededByFingerprint(fingerprint)
	if err != nil {
		return Result{}, fmt.Errorf("fraud new-card lookup: %w", err)
	}
	if succeeded == 0 {
		add(5, FlagNewCard)
	}

	// Repeated recent failures.
	failed, err := e.history.CountFailedByFingerprintSince(fingerprint, now.Add(-e.cfg.FailureWindow))
	if err != nil {
		return Result{}, fmt.Errorf("fraud failure lookup: %w", err)
	}
	if failed >= e.cfg.FailureCount {
		add(25, FlagMultipleFailedAttempts)
	}

	result.Passed = result.Score < e.cfg.BlockThreshold
	result.RequiresStepUp = result.Score >= e.cfg.StepUpThreshold

	if !result.Passed {
		log.Warnf("[Fraud] Blocked attempt for merchant %d: score=%d flags=%s", merchantID, result.Score, result.FlagsString())
	} else if result.RequiresStepUp {
		log.Infof("[Fraud] Step-up recommended for merchant %d: score=%d flags=%s", merchantID, result.Score, result.FlagsString())
	}

	return result, nil
}
