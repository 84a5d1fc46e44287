package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"

	"github.com/Chriskfigures777/give-app-sub003/core"
)

const (
	JobIDSendNotification = "reconcile.notification.send"

	dedupDrop = "drop"

	paramKind        = "kind"
	paramDispatchKey = "dispatch_key"
	paramRecipient   = "recipient"
	paramSubject     = "subject"
	paramFields      = "fields"
)

// ErrNoDelivery is returned by Dequeuer implementations with nothing ready.
var ErrNoDelivery = errors.New("gojob: no delivery available")

// NackOptions is the retry decision for one failed delivery.
type NackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts NackOptions, attempt int) NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a notification onto a go-job message. The dispatch
// key doubles as the queue idempotency key.
func ToExecutionMessage(notification core.Notification) *job.ExecutionMessage {
	fields := make(map[string]any, len(notification.Fields))
	for key, value := range notification.Fields {
		fields[key] = value
	}
	key := strings.TrimSpace(notification.DispatchKey)
	return &job.ExecutionMessage{
		JobID:      JobIDSendNotification,
		ScriptPath: JobIDSendNotification,
		Parameters: map[string]any{
			paramKind:        string(notification.Kind),
			paramDispatchKey: key,
			paramRecipient:   strings.TrimSpace(notification.Recipient),
			paramSubject:     notification.Subject,
			paramFields:      fields,
		},
		IdempotencyKey: key,
		DedupPolicy:    job.DeduplicationPolicy(dedupDrop),
	}
}

// FromExecutionMessage rebuilds the notification carried by msg.
func FromExecutionMessage(msg *job.ExecutionMessage) (core.Notification, error) {
	if msg == nil {
		return core.Notification{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDSendNotification {
		return core.Notification{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	notification := core.Notification{
		Kind:        core.NotificationKind(stringParam(msg.Parameters, paramKind)),
		DispatchKey: stringParam(msg.Parameters, paramDispatchKey),
		Recipient:   stringParam(msg.Parameters, paramRecipient),
		Subject:     stringParam(msg.Parameters, paramSubject),
		Fields:      map[string]string{},
	}
	switch fields := msg.Parameters[paramFields].(type) {
	case map[string]any:
		for key, value := range fields {
			notification.Fields[key] = fmt.Sprint(value)
		}
	case map[string]string:
		for key, value := range fields {
			notification.Fields[key] = value
		}
	}
	if notification.DispatchKey == "" {
		notification.DispatchKey = strings.TrimSpace(msg.IdempotencyKey)
	}
	if notification.Recipient == "" {
		return core.Notification{}, fmt.Errorf("gojob: notification %q has no recipient", notification.DispatchKey)
	}
	return notification, nil
}

func ToNackOptions(opts NackOptions) queue.NackOptions {
	return queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

// Enqueuer is a notification sender that hands every notification to a
// go-job queue instead of delivering it inline.
type Enqueuer struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuer(enqueuer queue.Enqueuer) *Enqueuer {
	return &Enqueuer{enqueuer: enqueuer}
}

func (a *Enqueuer) Send(ctx context.Context, notification core.Notification) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(notification.Recipient) == "" {
		return fmt.Errorf("gojob: notification recipient is required")
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(notification))
}

// Worker drains queued notifications into a concrete sender, acking
// successes and nacking failures under the retry policy.
type Worker struct {
	dequeuer queue.Dequeuer
	sender   core.NotificationSender
	policy   RetryPolicy
	hook     worker.Hook
	poll     time.Duration
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

type WorkerOption func(*Worker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *Worker) { w.policy = policy }
}

func WithHook(hook worker.Hook) WorkerOption {
	return func(w *Worker) { w.hook = hook }
}

func WithPollInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		if interval > 0 {
			w.poll = interval
		}
	}
}

func NewWorker(dequeuer queue.Dequeuer, sender core.NotificationSender, opts ...WorkerOption) *Worker {
	w := &Worker{
		dequeuer: dequeuer,
		sender:   sender,
		policy:   RetryPolicy{MaxAttempts: 5, MaxDelay: time.Minute, DeadLetterOnMax: true},
		poll:     time.Second,
		now:      func() time.Time { return time.Now().UTC() },
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run processes deliveries until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.poll):
		}
	}
}

// RunOnce handles a single delivery. ErrNoDelivery from the dequeuer is
// passed through so callers can back off.
func (w *Worker) RunOnce(ctx context.Context) error {
	if w == nil || w.dequeuer == nil || w.sender == nil {
		return fmt.Errorf("gojob: worker requires dequeuer and sender")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return ErrNoDelivery
	}
	msg := delivery.Message()
	event := worker.Event{Message: msg, Delivery: delivery, StartedAt: w.now()}

	notification, err := FromExecutionMessage(msg)
	if err != nil {
		// Undecodable messages never succeed; park them.
		event.Err = err
		w.onFailure(ctx, event)
		return delivery.Nack(ctx, ToNackOptions(NackOptions{DeadLetter: true, Reason: err.Error()}))
	}

	attempt := w.nextAttempt(notification.DispatchKey)
	event.Attempt = attempt
	w.onStart(ctx, event)

	sendErr := w.sender.Send(ctx, notification)
	event.Duration = w.now().Sub(event.StartedAt)
	if sendErr == nil {
		w.clearAttempts(notification.DispatchKey)
		w.onSuccess(ctx, event)
		return delivery.Ack(ctx)
	}

	event.Err = sendErr
	opts := w.policy.NormalizeAttempt(NackOptions{
		Delay:   backoff(attempt),
		Requeue: true,
		Reason:  sendErr.Error(),
	}, attempt)
	event.Delay = opts.Delay
	if opts.Requeue {
		w.onRetry(ctx, event)
	} else {
		w.clearAttempts(notification.DispatchKey)
		w.onFailure(ctx, event)
	}
	return delivery.Nack(ctx, ToNackOptions(opts))
}

func (w *Worker) nextAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *Worker) clearAttempts(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, key)
}

func (w *Worker) onStart(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}
}

func (w *Worker) onSuccess(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnSuccess(ctx, event)
	}
}

func (w *Worker) onFailure(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
}

func (w *Worker) onRetry(ctx context.Context, event worker.Event) {
	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
}

// ObserverHook reports worker lifecycle events through the shared observer.
type ObserverHook struct {
	Observer core.Observer
}

func (h ObserverHook) OnStart(ctx context.Context, event worker.Event) {
	h.Observer.Debug(ctx, "notification job started", eventFields(event))
}

func (h ObserverHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.Observer.IncCounter(ctx, core.MetricNotificationsTotal, map[string]string{"kind": eventKind(event), "status": "delivered"})
	h.Observer.Info(ctx, "notification job delivered", eventFields(event))
}

func (h ObserverHook) OnFailure(ctx context.Context, event worker.Event) {
	h.Observer.IncCounter(ctx, core.MetricNotificationsTotal, map[string]string{"kind": eventKind(event), "status": "dead_lettered"})
	h.Observer.Error(ctx, "notification job dead-lettered", eventFields(event))
}

func (h ObserverHook) OnRetry(ctx context.Context, event worker.Event) {
	h.Observer.Warn(ctx, "notification job retrying", eventFields(event))
}

func eventFields(event worker.Event) map[string]any {
	fields := map[string]any{
		"attempt":     event.Attempt,
		"delay_ms":    event.Delay.Milliseconds(),
		"duration_ms": event.Duration.Milliseconds(),
	}
	if event.Message != nil {
		fields["job_id"] = event.Message.JobID
		fields["dispatch_key"] = event.Message.IdempotencyKey
	}
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	return fields
}

func eventKind(event worker.Event) string {
	if event.Message == nil {
		return ""
	}
	return stringParam(event.Message.Parameters, paramKind)
}

func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt*attempt) * time.Second
}

func stringParam(params map[string]any, key string) string {
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

var (
	_ core.NotificationSender = (*Enqueuer)(nil)
	_ worker.Hook             = ObserverHook{}
)
