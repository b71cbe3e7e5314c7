package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

const (
	// DefaultRunInterval is how often the scheduler scans for due
	// subscriptions. Override with BILLING_INTERVAL_HOURS.
	DefaultRunInterval = 24 * time.Hour

	// PastDueThreshold is the consecutive-failure count at which a
	// subscription stops being billed and is marked past due.
	PastDueThreshold = 3

	// retryDelay is how long after a failed cycle the next attempt runs.
	retryDelay = 24 * time.Hour
)

// Charger runs one unattended charge against a stored payment method.
// The payment service satisfies this.
type Charger interface {
	ChargeToken(ctx context.Context, merchantID uint, token string, amount int64, currency string, subscriptionID *uint) (*models.Charge, error)
}

// EventEmitter queues subscription lifecycle events for webhook delivery.
type EventEmitter interface {
	Enqueue(merchantID uint, eventType string, data interface{}) (string, error)
}

// RunStats summarizes one scheduler pass.
type RunStats struct {
	Scanned  int
	Renewed  int
	Failed   int
	PastDue  int
	Errored  int
}

// BillingScheduler charges due subscriptions on a fixed interval. Renewals
// are unattended: no fraud re-scoring and no step-up. A mutex keeps runs
// from overlapping; each subscription is handled independently so one bad
// row never aborts the pass.
type BillingScheduler struct {
	subscriptions  repository.SubscriptionRepository
	paymentMethods repository.PaymentMethodRepository
	charger        Charger
	events         EventEmitter

	runMu   sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	stateMu sync.Mutex
	running bool
}

// NewBillingScheduler wires the recurring billing loop.
func NewBillingScheduler(repos *repository.Repositories, charger Charger, events EventEmitter) *BillingScheduler {
	return &BillingScheduler{
		subscriptions:  repos.Subscription,
		paymentMethods: repos.PaymentMethod,
		charger:        charger,
		events:         events,
		stopCh:         make(chan struct{}),
	}
}

// RunInterval resolves the configured scan interval.
func RunInterval() time.Duration {
	raw := env.GetEnv("BILLING_INTERVAL_HOURS", "")
	if raw == "" {
		return DefaultRunInterval
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		log.Warnf("[Billing] Invalid BILLING_INTERVAL_HOURS=%q, using default", raw)
		return DefaultRunInterval
	}
	return time.Duration(hours) * time.Hour
}

// Start launches the periodic billing loop.
func (b *BillingScheduler) Start(interval time.Duration) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.running {
		return
	}
	b.running = true

	log.Infof("[Billing] Scheduler starting (interval=%s)", interval)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stopCh:
				log.Info("[Billing] Scheduler stopping")
				return
			case <-ticker.C:
				stats := b.RunOnce(context.Background(), time.Now())
				log.Infof("[Billing] Run complete: scanned=%d renewed=%d failed=%d past_due=%d errored=%d",
					stats.Scanned, stats.Renewed, stats.Failed, stats.PastDue, stats.Errored)
			}
		}
	}()
}

// Stop stops the loop and waits for an in-flight run to finish.
func (b *BillingScheduler) Stop() {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if !b.running {
		return
	}
	close(b.stopCh)
	b.running = false
	b.wg.Wait()
}

// RunOnce bills every subscription due at the given time. Safe to call
// directly; concurrent calls serialize.
func (b *BillingScheduler) RunOnce(ctx context.Context, now time.Time) RunStats {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	stats := RunStats{}

	due, err := b.subscriptions.ListDue(now)
	if err != nil {
		log.Errorf("[Billing] Failed to list due subscriptions: %v", err)
		stats.Errored++
		return stats
	}

	for i := range due {
		sub := &due[i]
		if !sub.Billable(now) {
			continue
		}
		stats.Scanned++
		if err := b.billOne(ctx, sub, now, &stats); err != nil {
			log.Errorf("[Billing] Subscription %d: %v", sub.ID, err)
			stats.Errored++
		}
	}
	return stats
}

// billOne charges a single due subscription and advances or duns it.
func (b *BillingScheduler) billOne(ctx context.Context, sub *models.Subscription, now time.Time, stats *RunStats) error {
	method, err := b.paymentMethods.GetByID(sub.PaymentMethodID)
	if err != nil || method == nil {
		// No usable payment method counts as a failed cycle.
		return b.recordFailure(sub, now, stats)
	}

	charge, err := b.charger.ChargeToken(ctx, sub.MerchantID, method.Token, sub.Amount, sub.Currency, &sub.ID)
	if err != nil {
		return b.recordFailure(sub, now, stats)
	}

	if charge.Status != models.ChargeStatusSucceeded {
		return b.recordFailure(sub, now, stats)
	}
	return b.recordRenewal(sub, stats)
}

// recordRenewal advances the billing period and clears dunning state.
func (b *BillingScheduler) recordRenewal(sub *models.Subscription, stats *RunStats) error {
	next := NextBillingDate(sub.NextBillingDate, sub.Interval, sub.IntervalCount)
	sub.CurrentPeriodStart = sub.NextBillingDate
	sub.CurrentPeriodEnd = next
	sub.NextBillingDate = next
	sub.FailureCount = 0
	sub.LastFailureAt = nil

	if err := b.subscriptions.Update(sub); err != nil {
		return err
	}
	stats.Renewed++
	b.emit(sub.MerchantID, models.EventSubscriptionRenewed, sub)
	return nil
}

// recordFailure advances dunning: the cycle is retried after a delay until
// the failure count reaches the past-due threshold.
func (b *BillingScheduler) recordFailure(sub *models.Subscription, now time.Time, stats *RunStats) error {
	sub.FailureCount++
	sub.LastFailureAt = &now

	if sub.FailureCount >= PastDueThreshold {
		sub.Status = models.SubscriptionStatusPastDue
		if err := b.subscriptions.Update(sub); err != nil {
			return err
		}
		stats.PastDue++
		log.Warnf("[Billing] Subscription %d past due after %d failed cycles", sub.ID, sub.FailureCount)
		b.emit(sub.MerchantID, models.EventSubscriptionPastDue, sub)
		return nil
	}

	sub.NextBillingDate = now.Add(retryDelay)
	if err := b.subscriptions.Update(sub); err != nil {
		return err
	}
	stats.Failed++
	return nil
}

func (b *BillingScheduler) emit(merchantID uint, eventType string, sub *models.Subscription) {
	if b.events == nil {
		return
	}
	if _, err := b.events.Enqueue(merchantID, eventType, sub); err != nil {
		log.Errorf("[Billing] Failed to queue %s event for subscription %d: %v", eventType, sub.ID, err)
	}
}

// NextBillingDate advances a billing date by the subscription interval.
// Calendar arithmetic follows time.AddDate, so a Jan 31 monthly bill can
// normalize into early March.
func NextBillingDate(from time.Time, interval string, count int) time.Time {
	if count < 1 {
		count = 1
	}
	switch interval {
	case models.IntervalDay:
		return from.AddDate(0, 0, count)
	case models.IntervalWeek:
		return from.AddDate(0, 0, 7*count)
	case models.IntervalYear:
		return from.AddDate(count, 0, 0)
	default:
		return from.AddDate(0, count, 0)
	}
}
