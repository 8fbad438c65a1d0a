package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/common/logger"
	"orderflow/internal/common/metrics"
	"orderflow/internal/common/observability"
	"orderflow/internal/models"
)

// InAppWriter is the slice of the notification store the dispatcher needs.
type InAppWriter interface {
	CreateRecord(ctx context.Context, rec models.NotificationRecord) (*models.NotificationRecord, error)
}

// Outcome reports what happened on one channel during a dispatch. It exists
// for observability and tests, never as a precondition for the caller.
type Outcome struct {
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Dispatcher fans a composed message out to every requested channel
// concurrently. The status commit that triggered the message has already
// happened by the time Dispatch runs; delivery is strictly best-effort. A
// channel failure is caught at the task boundary, logged, and never
// propagated — Dispatch itself cannot fail.
type Dispatcher struct {
	inApp          InAppWriter
	email          EmailSender
	sms            SMSSender
	log            logger.Logger
	obs            *observability.Observability
	channelTimeout time.Duration
}

func NewDispatcher(inApp InAppWriter, email EmailSender, sms SMSSender, log logger.Logger, obs *observability.Observability, channelTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		inApp:          inApp,
		email:          email,
		sms:            sms,
		log:            log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		obs:            obs,
		channelTimeout: channelTimeout,
	}
}

// Dispatch delivers msg on each of its requested channels in parallel and
// returns the per-channel outcome map. An empty channel set returns an
// empty map.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) map[Channel]Outcome {
	start := time.Now()
	outcomes := make(map[Channel]Outcome, len(msg.Channels))
	if len(msg.Channels) == 0 {
		return outcomes
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, ch := range msg.Channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			outcome := d.deliver(ctx, ch, msg)
			mu.Lock()
			outcomes[ch] = outcome
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	metrics.NotificationDispatchDuration.WithLabelValues(msg.Type).Observe(time.Since(start).Seconds())
	d.log.Info("dispatch complete", map[string]interface{}{
		"type":     msg.Type,
		"orderId":  msg.OrderID,
		"outcomes": outcomes,
	})
	return outcomes
}

// deliver runs one channel attempt under its own timeout, with panic
// recovery so a misbehaving collaborator cannot take down the others.
func (d *Dispatcher) deliver(ctx context.Context, ch Channel, msg Message) (outcome Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Error: fmt.Sprintf("panic: %v", r), Duration: time.Since(start)}
			d.recordFailure(ctx, ch, msg, fmt.Errorf("panic: %v", r))
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	var err error
	switch ch {
	case ChannelInApp:
		_, err = d.inApp.CreateRecord(cctx, models.NotificationRecord{
			UserID:     msg.UserID,
			BusinessID: msg.BusinessID,
			Type:       msg.Type,
			Title:      msg.Title,
			Message:    msg.Body,
			OrderID:    &msg.OrderID,
		})
	case ChannelEmail:
		err = d.email.Send(cctx, msg.Email, msg.Title, RenderEmailHTML(msg.Title, msg.Body))
	case ChannelSMS:
		err = d.sms.Send(cctx, msg.Phone, msg.Title+": "+msg.Body)
	default:
		err = fmt.Errorf("unknown channel: %s", ch)
	}

	duration := time.Since(start)
	if err != nil {
		d.recordFailure(ctx, ch, msg, err)
		return Outcome{Error: err.Error(), Duration: duration}
	}

	metrics.NotificationChannelAttempts.WithLabelValues(string(ch), "ok").Inc()
	if d.obs != nil {
		d.obs.RecordDispatch(ctx, string(ch), true)
	}
	return Outcome{OK: true, Duration: duration}
}

func (d *Dispatcher) recordFailure(ctx context.Context, ch Channel, msg Message, err error) {
	soft := apperrors.NewChannelDeliveryError(string(ch), err)
	d.log.Error("channel delivery failed", map[string]interface{}{
		"channel": string(ch),
		"type":    msg.Type,
		"orderId": msg.OrderID,
		"reason":  soft.Details,
	})
	metrics.NotificationChannelAttempts.WithLabelValues(string(ch), "failed").Inc()
	if d.obs != nil {
		d.obs.RecordDispatch(ctx, string(ch), false)
	}
}
