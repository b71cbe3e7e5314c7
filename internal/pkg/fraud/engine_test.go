package fraud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeHistory returns canned counts for each rule lookup.
type fakeHistory struct {
	recent    int64
	small     int64
	failed    int64
	succeeded int64
}

func (f *fakeHistory) CountByFingerprintSince(string, time.Time) (int64, error) {
	return f.recent, nil
}

func (f *fakeHistory) CountSmallByFingerprintSince(string, int64, time.Time) (int64, error) {
	return f.small, nil
}

func (f *fakeHistory) CountFailedByFingerprintSince(string, time.Time) (int64, error) {
	return f.failed, nil
}

func (f *fakeHistory) CountSucceededByFingerprint(string) (int64, error) {
	return f.succeeded, nil
}

func TestCheck_CleanHistoryPasses(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &fakeHistory{succeeded: 5})

	result, err := engine.Check(context.Background(), 1, "fp_clean", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, 0, result.Score)
	assert.Empty(t, result.Flags)
	assert.True(t, result.Passed)
	assert.False(t, result.RequiresStepUp)
}

func TestCheck_VelocityRule(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &fakeHistory{recent: 3, succeeded: 5})

	result, err := engine.Check(context.Background(), 1, "fp_fast", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.GreaterOrEqual(t, result.Score, 30)
	assert.Contains(t, result.Flags, FlagVelocityLimitExceeded)
	assert.True(t, result.Passed, "velocity alone stays below the block threshold")
}

func TestCheck_VelocityPlusCardTestingRequiresStepUp(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &fakeHistory{recent: 4, small: 12, succeeded: 5})

	result, err := engine.Check(context.Background(), 1, "fp_tester", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.GreaterOrEqual(t, result.Score, 40)
	assert.Contains(t, result.Flags, FlagVelocityLimitExceeded)
	assert.Contains(t, result.Flags, FlagCardTestingPattern)
	assert.True(t, result.RequiresStepUp)
	assert.False(t, result.Passed, "65 points is at or above the block threshold")
}

func TestCheck_LargeAmount(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &fakeHistory{succeeded: 1})

	result, err := engine.Check(context.Background(), 1, "fp_big", 500_001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Contains(t, result.Flags, FlagLargeAmount)
	assert.Equal(t, 20, result.Score)

	// Exactly at the limit does not trigger.
	result, err = engine.Check(context.Background(), 1, "fp_big", 500_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.NotContains(t, result.Flags, FlagLargeAmount)
}

func TestCheck_HighRiskPrefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HighRiskPrefixes = []string{"bad_", "evil_"}
	engine := NewEngine(cfg, &fakeHistory{succeeded: 1})

	result, err := engine.Check(context.Background(), 1, "bad_fingerprint", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Contains(t, result.Flags, FlagHighRiskBIN)
	assert.Equal(t, 15, result.Score)

	result, err = engine.Check(context.Background(), 1, "good_fingerprint", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.NotContains(t, result.Flags, FlagHighRiskBIN)
}

func TestCheck_NewCardAndFailures(t *testing.T) {
	engine := NewEngine(DefaultConfig(), &fakeHistory{failed: 3, succeeded: 0})

	result, err := engine.Check(context.Background(), 1, "fp_new", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Contains(t, result.Flags, FlagNewCard)
	assert.Contains(t, result.Flags, FlagMultipleFailedAttempts)
	assert.Equal(t, 30, result.Score)
	assert.True(t, result.Passed)
	assert.False(t, result.RequiresStepUp)
}

func TestCheck_RulesAreAdditive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HighRiskPrefixes = []string{"fp_"}
	engine := NewEngine(cfg, &fakeHistory{recent: 5, small: 15, failed: 4, succeeded: 0})

	result, err := engine.Check(context.Background(), 1, "fp_worst", 600_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 30+20+35+15+5+25: every rule fires independently.
	assert.Equal(t, 130, result.Score)
	assert.Len(t, result.Flags, 6)
	assert.False(t, result.Passed)
	assert.True(t, result.RequiresStepUp)
}

func TestDefaultConfigThresholds(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 50, cfg.BlockThreshold)
	assert.Equal(t, 40, cfg.StepUpThreshold)
	assert.Equal(t, int64(500_000), cfg.LargeAmountMinor)
}
