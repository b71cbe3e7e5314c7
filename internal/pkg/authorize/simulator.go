package authorize

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Authorization outcomes.
const (
	StatusApproved = "approved"
	StatusDeclined = "declined"
	StatusError    = "error"
)

// Intent states of the two-phase authorization flow.
const (
	IntentPendingMethod  = "pending_method"
	IntentRequiresAction = "requires_action"
	IntentSucceeded      = "succeeded"
	IntentCanceled       = "canceled"
)

// Decline reason codes returned by the simulated network.
const (
	DeclineGeneric           = "card_declined"
	DeclineInsufficientFunds = "insufficient_funds"
	DeclineExpiredCard       = "expired_card"
	DeclineStepUpFailed      = "step_up_verification_failed"
)

// errorInjectionRate is the share of unmapped fingerprints that draw a
// simulated network error instead of an approval.
const errorInjectionRate = 0.01

// defaultStepUpCode is accepted for step-up fingerprints without an explicit
// code in the outcome table.
const defaultStepUpCode = "123456"

var (
	ErrIntentFinalized  = errors.New("intent is already finalized")
	ErrNoActionRequired = errors.New("intent does not require step-up verification")
)

// Outcome is one canned network response. The table is data, not code:
// registering new test fingerprints never touches the control flow.
type Outcome struct {
	Status         string
	DeclineCode    string
	RequiresStepUp bool
	StepUpCode     string
}

// Result is the outcome of one authorization attempt.
type Result struct {
	Status         string
	DeclineCode    string
	AuthCode       string
	RequiresStepUp bool
}

// Approved reports whether the attempt was approved outright.
func (r Result) Approved() bool {
	return r.Status == StatusApproved && !r.RequiresStepUp
}

// Intent tracks a charge through the two-phase state machine:
// pending_method -> requires_action -> succeeded|canceled, or straight to
// succeeded|canceled when no step-up is needed.
type Intent struct {
	ID          string
	Fingerprint string
	Amount      int64
	MerchantID  uint
	State       string
	Result      Result

	stepUpCode string
}

// Simulator maps card fingerprints to deterministic outcomes and injects a
// small random error rate for unmapped cards. Safe for concurrent use.
type Simulator struct {
	mu       sync.RWMutex
	outcomes map[string]Outcome
	rand     *rand.Rand
	randMu   sync.Mutex
}

// NewSimulator creates a simulator with the given outcome table. A nil table
// means every fingerprint takes the default approved path.
func NewSimulator(outcomes map[string]Outcome) *Simulator {
	table := make(map[string]Outcome, len(outcomes))
	for fp, o := range outcomes {
		table[fp] = o
	}
	return &Simulator{
		outcomes: table,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSeed fixes the random source, for deterministic tests.
func (s *Simulator) SetSeed(seed int64) {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	s.rand = rand.New(rand.NewSource(seed))
}

// Register adds or replaces an outcome for a fingerprint.
func (s *Simulator) Register(fingerprint string, outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[fingerprint] = outcome
}

// Authorize starts an authorization attempt and returns the intent. When the
// result requires step-up the caller must run ConfirmStepUp before the
// charge is finalized.
func (s *Simulator) Authorize(fingerprint string, amount int64, merchantID uint) *Intent {
	intent := &Intent{
		ID:          "pi_" + uuid.New().String(),
		Fingerprint: fingerprint,
		Amount:      amount,
		MerchantID:  merchantID,
		State:       IntentPendingMethod,
	}

	s.mu.RLock()
	outcome, mapped := s.outcomes[fingerprint]
	s.mu.RUnlock()

	if !mapped {
		if s.drawError() {
			intent.Result = Result{Status: StatusError}
			intent.State = IntentCanceled
			log.Warnf("[Authorize] Injected network error for intent %s", intent.ID)
			return intent
		}
		intent.Result = Result{Status: StatusApproved, AuthCode: newAuthCode()}
		intent.State = IntentSucceeded
		return intent
	}

	if outcome.RequiresStepUp {
		intent.Result = Result{Status: StatusApproved, RequiresStepUp: true}
		intent.State = IntentRequiresAction
		intent.stepUpCode = outcome.StepUpCode
		if intent.stepUpCode == "" {
			intent.stepUpCode = defaultStepUpCode
		}
		return intent
	}

	switch outcome.Status {
	case StatusDeclined:
		code := outcome.DeclineCode
		if code == "" {
			code = DeclineGeneric
		}
		intent.Result = Result{Status: StatusDeclined, DeclineCode: code}
		intent.State = IntentCanceled
	case StatusError:
		intent.Result = Result{Status: StatusError}
		intent.State = IntentCanceled
	default:
		intent.Result = Result{Status: StatusApproved, AuthCode: newAuthCode()}
		intent.State = IntentSucceeded
	}
	return intent
}

// RequireStepUp moves an already-approved intent back into requires_action.
// Used when risk scoring demands verification on top of a network approval;
// the default one-time code applies.
func (s *Simulator) RequireStepUp(intent *Intent) {
	if intent.State != IntentSucceeded {
		return
	}
	intent.State = IntentRequiresAction
	intent.Result = Result{Status: StatusApproved, RequiresStepUp: true}
	intent.stepUpCode = defaultStepUpCode
}

// ConfirmStepUp runs the one-time-code verification for an intent in
// requires_action and finalizes it either way.
func (s *Simulator) ConfirmStepUp(intent *Intent, code string) (Result, error) {
	switch intent.State {
	case IntentRequiresAction:
	case IntentSucceeded, IntentCanceled:
		return intent.Result, ErrIntentFinalized
	default:
		return Result{}, ErrNoActionRequired
	}

	if subtleEquals(code, intent.stepUpCode) {
		intent.Result = Result{Status: StatusApproved, AuthCode: newAuthCode()}
		intent.State = IntentSucceeded
	} else {
		intent.Result = Result{Status: StatusDeclined, DeclineCode: DeclineStepUpFailed}
		intent.State = IntentCanceled
	}
	return intent.Result, nil
}

// Cancel abandons a not-yet-finalized intent.
func (s *Simulator) Cancel(intent *Intent) error {
	if intent.State == IntentSucceeded || intent.State == IntentCanceled {
		return ErrIntentFinalized
	}
	intent.State = IntentCanceled
	if intent.Result.Status == "" {
		intent.Result = Result{Status: StatusDeclined, DeclineCode: DeclineGeneric}
	}
	return nil
}

func (s *Simulator) drawError() bool {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.rand.Float64() < errorInjectionRate
}

func newAuthCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1_000_000))
}

// subtleEquals compares one-time codes without early exit.
func subtleEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := 0; i < len(a); i++ {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
