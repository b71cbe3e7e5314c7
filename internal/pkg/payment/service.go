package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/authorize"
	"github.com/ManuelReschke/PayFox/internal/pkg/card"
	"github.com/ManuelReschke/PayFox/internal/pkg/fraud"
)

var (
	ErrMerchantNotFound    = errors.New("merchant not found")
	ErrMerchantInactive    = errors.New("merchant is not active")
	ErrFraudBlocked        = errors.New("charge blocked by fraud check")
	ErrCardDeclined        = errors.New("card was declined")
	ErrProcessingError     = errors.New("processing error, please retry")
	ErrUnknownIntent       = errors.New("unknown or expired payment intent")
	ErrUnknownToken        = errors.New("unknown card token")
	ErrChargeNotFound      = errors.New("charge not found")
	ErrChargeNotRefundable = errors.New("charge cannot be refunded")
	ErrRefundExceedsCharge = errors.New("refund amount exceeds refundable balance")
)

var validate = validator.New()

// EventEmitter queues domain events for webhook delivery. The webhook
// dispatcher satisfies this.
type EventEmitter interface {
	Enqueue(merchantID uint, eventType string, data interface{}) (string, error)
}

// ChargeInput is one charge attempt. Card details never leave this struct;
// only the derived token and fingerprint are persisted.
type ChargeInput struct {
	MerchantID    uint   `validate:"required"`
	Card          card.Details
	Amount        int64  `validate:"required,gt=0"`
	Currency      string `validate:"required,len=3"`
	CustomerEmail string `validate:"omitempty,email"`
	Description   string `validate:"max=255"`
}

// ChargeResult is the outcome of CreateCharge or ConfirmCharge. When
// RequiresStepUp is set, Charge is nil and the caller must complete the
// attempt through ConfirmCharge with IntentID and the one-time code.
type ChargeResult struct {
	Charge         *models.Charge
	Token          *card.Token
	RequiresStepUp bool
	IntentID       string
}

// pendingCharge holds an attempt parked in requires_action between
// CreateCharge and ConfirmCharge.
type pendingCharge struct {
	input     ChargeInput
	token     *card.Token
	intent    *authorize.Intent
	fraud     fraud.Result
	createdAt time.Time
}

// Service runs the charge pipeline: tokenize, score, authorize, persist,
// emit. All state lives in the store except intents parked for step-up,
// which are per-instance and expire with the process.
type Service struct {
	merchants      repository.MerchantRepository
	paymentMethods repository.PaymentMethodRepository
	charges        repository.ChargeRepository
	fraud          *fraud.Engine
	auth           *authorize.Simulator
	events         EventEmitter

	mu      sync.Mutex
	pending map[string]*pendingCharge
}

// NewService wires the charge pipeline.
func NewService(repos *repository.Repositories, engine *fraud.Engine, auth *authorize.Simulator, events EventEmitter) *Service {
	return &Service{
		merchants:      repos.Merchant,
		paymentMethods: repos.PaymentMethod,
		charges:        repos.Charge,
		fraud:          engine,
		auth:           auth,
		events:         events,
		pending:        make(map[string]*pendingCharge),
	}
}

// CreateCharge runs one charge attempt end to end. Fraud blocks happen
// before any authorization call; a step-up demand from either the fraud
// score or the card network parks the attempt and returns the intent ID.
func (s *Service) CreateCharge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid charge input: %w", err)
	}

	merchant, err := s.merchants.GetByID(input.MerchantID)
	if err != nil || merchant == nil {
		return nil, ErrMerchantNotFound
	}
	if !merchant.IsActive() {
		return nil, ErrMerchantInactive
	}

	token, err := card.Tokenize(input.Card)
	if err != nil {
		return nil, err
	}

	method := &models.PaymentMethod{
		MerchantID:  input.MerchantID,
		Token:       token.Value,
		Brand:       token.Brand,
		Last4:       token.Last4,
		ExpMonth:    token.ExpMonth,
		ExpYear:     token.ExpYear,
		Fingerprint: token.Fingerprint,
	}
	if err := s.paymentMethods.Create(method); err != nil {
		return nil, fmt.Errorf("failed to store payment method: %w", err)
	}

	score, err := s.fraud.Check(ctx, input.MerchantID, token.Fingerprint, input.Amount)
	if err != nil {
		return nil, err
	}
	if !score.Passed {
		charge, perr := s.persistFailed(input, token, nil, models.FailureCodeFraudBlocked, score, false)
		if perr != nil {
			return nil, perr
		}
		return &ChargeResult{Charge: charge, Token: token}, ErrFraudBlocked
	}

	intent := s.auth.Authorize(token.Fingerprint, input.Amount, input.MerchantID)
	if score.RequiresStepUp {
		s.auth.RequireStepUp(intent)
	}

	if intent.State == authorize.IntentRequiresAction {
		s.mu.Lock()
		s.pending[intent.ID] = &pendingCharge{
			input:     input,
			token:     token,
			intent:    intent,
			fraud:     score,
			createdAt: time.Now(),
		}
		s.mu.Unlock()
		log.Infof("[Payment] Charge for merchant %d requires step-up (intent %s)", input.MerchantID, intent.ID)
		return &ChargeResult{Token: token, RequiresStepUp: true, IntentID: intent.ID}, nil
	}

	return s.finalize(input, token, intent, score, false)
}

// ConfirmCharge completes a parked step-up attempt with the one-time code.
// A wrong code finalizes the charge as failed; the intent is consumed
// either way.
func (s *Service) ConfirmCharge(ctx context.Context, intentID, code string) (*ChargeResult, error) {
	s.mu.Lock()
	parked, ok := s.pending[intentID]
	if ok {
		delete(s.pending, intentID)
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownIntent
	}

	if _, err := s.auth.ConfirmStepUp(parked.intent, code); err != nil {
		return nil, err
	}

	return s.finalize(parked.input, parked.token, parked.intent, parked.fraud, true)
}

// ChargeToken charges a stored payment method, used for subscription
// renewals. No fraud re-scoring and no step-up: a network outcome that
// demands verification is treated as a decline.
func (s *Service) ChargeToken(ctx context.Context, merchantID uint, tokenValue string, amount int64, currency string, subscriptionID *uint) (*models.Charge, error) {
	method, err := s.paymentMethods.GetByToken(tokenValue)
	if err != nil || method == nil {
		return nil, ErrUnknownToken
	}

	intent := s.auth.Authorize(method.Fingerprint, amount, merchantID)
	if intent.State == authorize.IntentRequiresAction {
		// No customer present to verify.
		if cerr := s.auth.Cancel(intent); cerr != nil {
			return nil, cerr
		}
	}

	charge := &models.Charge{
		MerchantID:     merchantID,
		SubscriptionID: subscriptionID,
		Token:          method.Token,
		Fingerprint:    method.Fingerprint,
		Amount:         amount,
		Currency:       currency,
	}
	return s.settle(charge, intent)
}

// Refund refunds part or all of a succeeded charge. The refunded total can
// never exceed the charge amount; the status flips to refunded only when
// the full amount has been returned.
func (s *Service) Refund(ctx context.Context, chargeID uint, amount int64) (*models.Charge, error) {
	if amount <= 0 {
		return nil, ErrRefundExceedsCharge
	}

	charge, err := s.charges.GetByID(chargeID)
	if err != nil || charge == nil {
		return nil, ErrChargeNotFound
	}
	if charge.Refundable() == 0 {
		return nil, ErrChargeNotRefundable
	}
	if amount > charge.Refundable() {
		return nil, ErrRefundExceedsCharge
	}

	now := time.Now()
	charge.AmountRefunded += amount
	charge.LastRefundedAt = &now
	if charge.AmountRefunded == charge.Amount {
		charge.Status = models.ChargeStatusRefunded
	}
	if err := s.charges.Update(charge); err != nil {
		return nil, fmt.Errorf("failed to update charge: %w", err)
	}

	s.emit(charge.MerchantID, models.EventChargeRefunded, charge)
	log.Infof("[Payment] Refunded %d on charge %d (total refunded %d/%d)", amount, charge.ID, charge.AmountRefunded, charge.Amount)
	return charge, nil
}

// finalize turns a finished intent into a stored charge and its event.
func (s *Service) finalize(input ChargeInput, token *card.Token, intent *authorize.Intent, score fraud.Result, steppedUp bool) (*ChargeResult, error) {
	charge := &models.Charge{
		MerchantID:     input.MerchantID,
		Token:          token.Value,
		Fingerprint:    token.Fingerprint,
		Amount:         input.Amount,
		Currency:       input.Currency,
		FraudScore:     score.Score,
		FraudFlags:     score.FlagsString(),
		RequiredStepUp: steppedUp,
		CustomerEmail:  input.CustomerEmail,
		Description:    input.Description,
	}

	stored, err := s.settle(charge, intent)
	if err != nil {
		return nil, err
	}

	result := &ChargeResult{Charge: stored, Token: token}
	switch stored.Status {
	case models.ChargeStatusSucceeded:
		return result, nil
	default:
		return result, declineError(intent.Result)
	}
}

// settle persists the charge for a finalized intent and emits the matching
// event. The intent must be in succeeded or canceled.
func (s *Service) settle(charge *models.Charge, intent *authorize.Intent) (*models.Charge, error) {
	if intent.State == authorize.IntentSucceeded {
		charge.Status = models.ChargeStatusSucceeded
		charge.AuthCode = intent.Result.AuthCode
	} else {
		charge.Status = models.ChargeStatusFailed
		charge.FailureCode = failureCode(intent.Result)
	}

	if err := s.charges.Create(charge); err != nil {
		return nil, fmt.Errorf("failed to store charge: %w", err)
	}

	if charge.Status == models.ChargeStatusSucceeded {
		s.emit(charge.MerchantID, models.EventChargeSucceeded, charge)
	} else {
		s.emit(charge.MerchantID, models.EventChargeFailed, charge)
	}
	return charge, nil
}

// persistFailed stores a charge that never reached authorization.
func (s *Service) persistFailed(input ChargeInput, token *card.Token, subscriptionID *uint, failureCode string, score fraud.Result, steppedUp bool) (*models.Charge, error) {
	charge := &models.Charge{
		MerchantID:     input.MerchantID,
		SubscriptionID: subscriptionID,
		Token:          token.Value,
		Fingerprint:    token.Fingerprint,
		Amount:         input.Amount,
		Currency:       input.Currency,
		Status:         models.ChargeStatusFailed,
		FailureCode:    failureCode,
		FraudScore:     score.Score,
		FraudFlags:     score.FlagsString(),
		RequiredStepUp: steppedUp,
		CustomerEmail:  input.CustomerEmail,
		Description:    input.Description,
	}
	if err := s.charges.Create(charge); err != nil {
		return nil, fmt.Errorf("failed to store charge: %w", err)
	}
	s.emit(charge.MerchantID, models.EventChargeFailed, charge)
	return charge, nil
}

func (s *Service) emit(merchantID uint, eventType string, charge *models.Charge) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Enqueue(merchantID, eventType, charge); err != nil {
		log.Errorf("[Payment] Failed to queue %s event for charge %d: %v", eventType, charge.ID, err)
	}
}

// failureCode maps a network decline onto the stored failure code.
func failureCode(result authorize.Result) string {
	if result.Status == authorize.StatusError {
		return models.FailureCodeProcessingError
	}
	switch result.DeclineCode {
	case authorize.DeclineInsufficientFunds:
		return models.FailureCodeInsufficientFunds
	case authorize.DeclineExpiredCard:
		return models.FailureCodeExpiredCard
	case authorize.DeclineStepUpFailed:
		return models.FailureCodeStepUpFailed
	default:
		return models.FailureCodeCardDeclined
	}
}

func declineError(result authorize.Result) error {
	if result.Status == authorize.StatusError {
		return ErrProcessingError
	}
	return ErrCardDeclined
}
