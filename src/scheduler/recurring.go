// Package scheduler drives the background jobs: the recurring sweep with its
// fan-out workers, and the cron triggers for every job.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"finlense-server/src/events"
	"finlense-server/src/ledger"
	"finlense-server/src/models"
	"finlense-server/src/recurrence"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

type DueSource interface {
	Each(ctx context.Context, now time.Time, fn func(models.Transaction) error) error
}

type OccurrenceProcessor interface {
	ProcessOccurrence(ctx context.Context, req ledger.OccurrenceRequest) (ledger.Outcome, error)
}

type Options struct {
	RateLimit     int
	RateWindow    time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	Now           func() time.Time
}

type TriggerResult struct {
	Triggered int `json:"triggered"`
	Failed    int `json:"failed"`
}

type Counters struct {
	Processed int64 `json:"processed"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

// RecurringScheduler finds due templates, fans them out as events and processes each
// event under a per-owner rate limit with retries.
type RecurringScheduler struct {
	due       DueSource
	processor OccurrenceProcessor
	publisher events.Publisher
	limiter   *OwnerLimiter
	retry     RetryPolicy
	now       func() time.Time

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func NewRecurringScheduler(due DueSource, processor OccurrenceProcessor, publisher events.Publisher, opts Options) *RecurringScheduler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &RecurringScheduler{
		due:       due,
		processor: processor,
		publisher: publisher,
		limiter:   NewOwnerLimiter(opts.RateLimit, opts.RateWindow),
		retry:     RetryPolicy{MaxRetries: opts.MaxRetries, InitialInterval: opts.RetryInterval},
		now:       opts.Now,
	}
}

// Trigger publishes one process event per due template. A failed publish is logged and
// counted; the template stays due and is picked up by the next sweep.
func (s *RecurringScheduler) Trigger(ctx context.Context) (TriggerResult, error) {
	var result TriggerResult
	err := s.due.Each(ctx, s.now(), func(t models.Transaction) error {
		ev := events.RecurringProcess{TransactionID: t.ID, UserID: t.UserID}
		if err := s.publisher.Publish(ctx, events.TopicRecurringProcess, t.UserID, ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("ERROR: publishing recurring transaction %s for user %s: %v", t.ID, t.UserID, err)
			result.Failed++
			return nil
		}
		result.Triggered++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("recurring sweep: %w", err)
	}
	log.Printf("INFO: triggered %d recurring transactions (%d failed to publish)", result.Triggered, result.Failed)
	return result, nil
}

// Run starts workers consumers of the process topic and blocks until ctx is done or
// a consumer fails.
func (s *RecurringScheduler) Run(ctx context.Context, consumer events.Consumer, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return consumer.Consume(ctx, events.TopicRecurringProcess, s.Handle)
		})
	}
	return g.Wait()
}

// Handle decodes one process event. Undecodable payloads are dropped.
func (s *RecurringScheduler) Handle(ctx context.Context, payload []byte) error {
	var ev events.RecurringProcess
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.failed.Add(1)
		log.Printf("ERROR: dropping malformed recurring event: %v", err)
		return nil
	}
	_, _ = s.Process(ctx, ev)
	return nil
}

// Process materializes the occurrence named by ev. Transient failures are retried;
// invalid requests and unknown intervals are not.
func (s *RecurringScheduler) Process(ctx context.Context, ev events.RecurringProcess) (ledger.Outcome, error) {
	req := ledger.OccurrenceRequest{TransactionID: ev.TransactionID, UserID: ev.UserID}
	if err := req.Validate(); err != nil {
		s.failed.Add(1)
		log.Printf("ERROR: invalid recurring event %+v: %v", ev, err)
		return ledger.OutcomeSkipped, err
	}

	if err := s.limiter.Wait(ctx, req.UserID); err != nil {
		s.failed.Add(1)
		return ledger.OutcomeSkipped, fmt.Errorf("rate limit wait for user %s: %w", req.UserID, err)
	}

	outcome := ledger.OutcomeSkipped
	op := func() error {
		o, err := s.processor.ProcessOccurrence(ctx, req)
		if err != nil {
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		outcome = o
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("ERROR: processing recurring transaction %s, retrying in %s: %v", req.TransactionID, wait, err)
	}

	if err := s.retry.Do(ctx, op, notify); err != nil {
		s.failed.Add(1)
		log.Printf("ERROR: giving up on recurring transaction %s for user %s: %v", req.TransactionID, req.UserID, err)
		return ledger.OutcomeSkipped, err
	}

	switch outcome {
	case ledger.OutcomeProcessed:
		s.processed.Add(1)
		log.Printf("INFO: processed recurring transaction %s for user %s", req.TransactionID, req.UserID)
	default:
		s.skipped.Add(1)
	}
	return outcome, nil
}

func (s *RecurringScheduler) Counters() Counters {
	return Counters{
		Processed: s.processed.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
	}
}

func isPermanent(err error) bool {
	var invalid *recurrence.InvalidIntervalError
	return errors.Is(err, ledger.ErrInvalidRequest) || errors.As(err, &invalid)
}
