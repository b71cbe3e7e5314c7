package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/app/repository"
	"github.com/ManuelReschke/PayFox/internal/pkg/metrics/counter"
)

const (
	// DeliveryTimeout bounds every delivery attempt; a timeout counts the
	// same as a non-2xx response.
	DeliveryTimeout = 10 * time.Second

	// MaxAttempts is the number of delivery attempts before an event is
	// marked permanently failed.
	MaxAttempts = 5
)

// retryScheduleMinutes is indexed by min(attemptNumber-1, len-1): the first
// failed attempt retries after 1 minute, the fourth after 10; the fifth
// failure is permanent.
var retryScheduleMinutes = []int{1, 2, 5, 10}

// NextRetryDelay returns the backoff after the given failed attempt number,
// or ok=false when the schedule is exhausted and the event must be failed.
func NextRetryDelay(attempt int) (time.Duration, bool) {
	if attempt >= MaxAttempts {
		return 0, false
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(retryScheduleMinutes) {
		idx = len(retryScheduleMinutes) - 1
	}
	return time.Duration(retryScheduleMinutes[idx]) * time.Minute, true
}

// Dispatcher is the single delivery path for both the fire-and-forget and
// the queued-with-retry entry points. All endpoint fan-out, signing, audit
// records and endpoint health run through deliverToEndpoint.
type Dispatcher struct {
	endpoints  repository.WebhookEndpointRepository
	events     repository.WebhookEventRepository
	deliveries repository.WebhookDeliveryRepository
	client     *http.Client
}

// NewDispatcher creates a dispatcher over the injected store.
func NewDispatcher(repos *repository.Repositories) *Dispatcher {
	return &Dispatcher{
		endpoints:  repos.WebhookEndpoint,
		events:     repos.WebhookEvent,
		deliveries: repos.WebhookDelivery,
		client:     &http.Client{Timeout: DeliveryTimeout},
	}
}

// Notify delivers an event to every active subscribed endpoint once,
// concurrently and best-effort. Nothing is queued and failures are not
// retried; deliveries are still recorded and endpoint health still applies.
func (d *Dispatcher) Notify(merchantID uint, eventType string, data interface{}) error {
	object, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	payload, err := BuildEnvelope(NewEventID(), eventType, time.Now(), object)
	if err != nil {
		return fmt.Errorf("failed to build envelope: %w", err)
	}

	targets, err := d.subscribedEndpoints(merchantID, eventType)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, endpoint := range targets {
		wg.Add(1)
		go func(ep models.WebhookEndpoint) {
			defer wg.Done()
			if ok := d.deliverToEndpoint(0, 1, payload, &ep); !ok {
				log.Warnf("[Webhook] Best-effort delivery to endpoint %d failed (%s)", ep.ID, eventType)
			}
		}(endpoint)
	}
	wg.Wait()
	return nil
}

// Enqueue persists a WebhookEvent and hands it to the queue worker for an
// immediate delivery attempt. Returns the event's public ID.
func (d *Dispatcher) Enqueue(merchantID uint, eventType string, data interface{}) (string, error) {
	object, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event data: %w", err)
	}

	event := &models.WebhookEvent{
		PublicID:    NewEventID(),
		MerchantID:  merchantID,
		EventType:   eventType,
		PayloadJSON: string(object),
		Status:      models.WebhookEventStatusPending,
	}
	if err := d.events.Create(event); err != nil {
		return "", fmt.Errorf("failed to persist webhook event: %w", err)
	}

	if err := pushEvent(event.ID); err != nil {
		// The retry sweeper will pick the event up; schedule it now.
		log.Errorf("[Webhook] Failed to queue event %s: %v", event.PublicID, err)
		delay, _ := NextRetryDelay(1)
		next := time.Now().Add(delay)
		event.Status = models.WebhookEventStatusRetrying
		event.NextRetryAt = &next
		event.LastError = err.Error()
		if uerr := d.events.Update(event); uerr != nil {
			return "", uerr
		}
	}

	return event.PublicID, nil
}

// ProcessEvent runs one delivery attempt for a stored event against every
// active subscribed endpoint, then advances the event's delivery state.
func (d *Dispatcher) ProcessEvent(event *models.WebhookEvent) error {
	if event.Terminal() {
		// Terminal states never change; stray queue entries are dropped.
		return nil
	}

	payload, err := BuildEnvelope(event.PublicID, event.EventType, event.CreatedAt, json.RawMessage(event.PayloadJSON))
	if err != nil {
		return fmt.Errorf("failed to build envelope for event %s: %w", event.PublicID, err)
	}

	targets, err := d.subscribedEndpoints(event.MerchantID, event.EventType)
	if err != nil {
		return err
	}

	event.AttemptCount++
	attempt := event.AttemptCount

	// No active subscribers means there is nothing left to deliver.
	if len(targets) == 0 {
		event.Status = models.WebhookEventStatusSent
		event.NextRetryAt = nil
		return d.events.Update(event)
	}

	results := make([]bool, len(targets))
	var wg sync.WaitGroup
	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.deliverToEndpoint(event.ID, attempt, payload, &targets[i])
		}(i)
	}
	wg.Wait()

	allSent := true
	for _, ok := range results {
		if !ok {
			allSent = false
			break
		}
	}

	if allSent {
		event.Status = models.WebhookEventStatusSent
		event.NextRetryAt = nil
		event.LastError = ""
		return d.events.Update(event)
	}

	delay, ok := NextRetryDelay(attempt)
	if !ok {
		log.Errorf("[Webhook] Event %s permanently failed after %d attempts", event.PublicID, attempt)
		event.Status = models.WebhookEventStatusFailed
		event.NextRetryAt = nil
		return d.events.Update(event)
	}

	next := time.Now().Add(delay)
	event.Status = models.WebhookEventStatusRetrying
	event.NextRetryAt = &next
	log.Infof("[Webhook] Event %s attempt %d failed, retrying in %s", event.PublicID, attempt, delay)
	return d.events.Update(event)
}

// subscribedEndpoints returns the merchant's active endpoints subscribed to
// the event type. Deactivated endpoints never appear here.
func (d *Dispatcher) subscribedEndpoints(merchantID uint, eventType string) ([]models.WebhookEndpoint, error) {
	active, err := d.endpoints.ListActiveByMerchant(merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	targets := active[:0]
	for _, endpoint := range active {
		if endpoint.SubscribesTo(eventType) {
			targets = append(targets, endpoint)
		}
	}
	return targets, nil
}

// deliverToEndpoint performs one signed POST and records the attempt. Any
// non-2xx response or transport error counts as a failure and feeds the
// endpoint's consecutive-failure counter.
func (d *Dispatcher) deliverToEndpoint(eventID uint, attempt int, payload []byte, endpoint *models.WebhookEndpoint) bool {
	start := time.Now()

	req, err := http.NewRequest(http.MethodPost, endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		d.recordDelivery(eventID, endpoint.ID, attempt, 0, time.Since(start), err.Error(), false)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(payload, endpoint.Secret, time.Now().Unix()))

	resp, err := d.client.Do(req)
	duration := time.Since(start)

	status := 0
	errText := ""
	success := false
	if err != nil {
		errText = err.Error()
	} else {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		status = resp.StatusCode
		success = status >= 200 && status < 300
		if !success {
			errText = fmt.Sprintf("endpoint returned status %d", status)
		}
	}

	d.recordDelivery(eventID, endpoint.ID, attempt, status, duration, errText, success)

	if success {
		counter.AddDeliverySent(endpoint.ID)
		if err := d.endpoints.RecordSuccess(endpoint.ID); err != nil {
			log.Errorf("[Webhook] Failed to reset failure count for endpoint %d: %v", endpoint.ID, err)
		}
	} else {
		counter.AddDeliveryFailed(endpoint.ID)
		if err := d.endpoints.RecordFailure(endpoint.ID, time.Now()); err != nil {
			log.Errorf("[Webhook] Failed to record failure for endpoint %d: %v", endpoint.ID, err)
		}
	}

	return success
}

func (d *Dispatcher) recordDelivery(eventID, endpointID uint, attempt, status int, duration time.Duration, errText string, success bool) {
	delivery := &models.WebhookDelivery{
		WebhookEventID: eventID,
		EndpointID:     endpointID,
		Attempt:        attempt,
		ResponseStatus: status,
		DurationMS:     duration.Milliseconds(),
		Success:        success,
		ErrorText:      errText,
	}
	if err := d.deliveries.Create(delivery); err != nil {
		log.Errorf("[Webhook] Failed to record delivery for endpoint %d: %v", endpointID, err)
	}
}
