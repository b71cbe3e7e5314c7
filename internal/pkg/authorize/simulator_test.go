package authorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize_UnmappedDefaultsToApproved(t *testing.T) {
	sim := NewSimulator(nil)
	sim.SetSeed(1) // first draw of seed 1 is above the error rate

	intent := sim.Authorize("fp_any", 1000, 1)

	assert.Equal(t, IntentSucceeded, intent.State)
	assert.Equal(t, StatusApproved, intent.Result.Status)
	assert.NotEmpty(t, intent.Result.AuthCode)
	assert.False(t, intent.Result.RequiresStepUp)
}

func TestAuthorize_MappedDecline(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_declined": {Status: StatusDeclined, DeclineCode: DeclineInsufficientFunds},
	})

	intent := sim.Authorize("fp_declined", 1000, 1)

	assert.Equal(t, IntentCanceled, intent.State)
	assert.Equal(t, StatusDeclined, intent.Result.Status)
	assert.Equal(t, DeclineInsufficientFunds, intent.Result.DeclineCode)
}

func TestAuthorize_MappedDeclineWithoutCodeGetsGeneric(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_declined": {Status: StatusDeclined},
	})

	intent := sim.Authorize("fp_declined", 1000, 1)
	assert.Equal(t, DeclineGeneric, intent.Result.DeclineCode)
}

func TestAuthorize_MappedError(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_error": {Status: StatusError},
	})

	intent := sim.Authorize("fp_error", 1000, 1)

	assert.Equal(t, IntentCanceled, intent.State)
	assert.Equal(t, StatusError, intent.Result.Status)
}

func TestAuthorize_DeterministicForMappedFingerprints(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_declined": {Status: StatusDeclined},
	})

	for i := 0; i < 10; i++ {
		intent := sim.Authorize("fp_declined", 1000, 1)
		assert.Equal(t, StatusDeclined, intent.Result.Status)
	}
}

func TestStepUp_HappyPath(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_3ds": {RequiresStepUp: true, StepUpCode: "424242"},
	})

	intent := sim.Authorize("fp_3ds", 1000, 1)
	assert.Equal(t, IntentRequiresAction, intent.State)
	assert.True(t, intent.Result.RequiresStepUp)

	result, err := sim.ConfirmStepUp(intent, "424242")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, IntentSucceeded, intent.State)
	assert.Equal(t, StatusApproved, result.Status)
	assert.NotEmpty(t, result.AuthCode)
}

func TestStepUp_WrongCodeDeclines(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_3ds": {RequiresStepUp: true},
	})

	intent := sim.Authorize("fp_3ds", 1000, 1)
	result, err := sim.ConfirmStepUp(intent, "000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assert.Equal(t, IntentCanceled, intent.State)
	assert.Equal(t, StatusDeclined, result.Status)
	assert.Equal(t, DeclineStepUpFailed, result.DeclineCode)
}

func TestStepUp_DefaultCode(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_3ds": {RequiresStepUp: true},
	})

	intent := sim.Authorize("fp_3ds", 1000, 1)
	result, err := sim.ConfirmStepUp(intent, "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, StatusApproved, result.Status)
}

func TestConfirmStepUp_FinalizedIntent(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_declined": {Status: StatusDeclined},
	})

	intent := sim.Authorize("fp_declined", 1000, 1)
	_, err := sim.ConfirmStepUp(intent, "123456")
	assert.ErrorIs(t, err, ErrIntentFinalized)
}

func TestCancel(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_3ds": {RequiresStepUp: true},
	})

	intent := sim.Authorize("fp_3ds", 1000, 1)
	if err := sim.Cancel(intent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, IntentCanceled, intent.State)

	assert.ErrorIs(t, sim.Cancel(intent), ErrIntentFinalized)
}

func TestRegister_ExtendsTableWithoutNewControlFlow(t *testing.T) {
	sim := NewSimulator(nil)
	sim.SetSeed(1)

	sim.Register("fp_custom", Outcome{Status: StatusDeclined, DeclineCode: DeclineExpiredCard})

	intent := sim.Authorize("fp_custom", 500, 2)
	assert.Equal(t, StatusDeclined, intent.Result.Status)
	assert.Equal(t, DeclineExpiredCard, intent.Result.DeclineCode)
}

func TestRequireStepUp_ReopensApprovedIntent(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_ok": {Status: StatusApproved},
	})

	intent := sim.Authorize("fp_ok", 1000, 1)
	assert.Equal(t, IntentSucceeded, intent.State)

	sim.RequireStepUp(intent)
	assert.Equal(t, IntentRequiresAction, intent.State)
	assert.True(t, intent.Result.RequiresStepUp)

	result, err := sim.ConfirmStepUp(intent, "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, StatusApproved, result.Status)
	assert.NotEmpty(t, result.AuthCode)
}

func TestRequireStepUp_IgnoresNonApprovedIntents(t *testing.T) {
	sim := NewSimulator(map[string]Outcome{
		"fp_declined": {Status: StatusDeclined},
	})

	intent := sim.Authorize("fp_declined", 1000, 1)
	sim.RequireStepUp(intent)
	assert.Equal(t, IntentCanceled, intent.State)
}
