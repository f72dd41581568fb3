package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. The context carries the job timeout.
type Job func(ctx context.Context) error

// Cron runs named jobs on standard five field schedules. A run still in progress
// when its next tick fires causes that tick to be skipped.
type Cron struct {
	c       *cron.Cron
	timeout time.Duration
}

func NewCron(loc *time.Location, timeout time.Duration) *Cron {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.DefaultLogger
	return &Cron{
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		timeout: timeout,
	}
}

func (c *Cron) Register(name, spec string, job Job) error {
	if _, err := c.c.AddFunc(spec, c.wrap(name, job)); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	log.Printf("INFO: scheduled %s at %q", name, spec)
	return nil
}

func (c *Cron) wrap(name string, job Job) func() {
	return func() {
		ctx := context.Background()
		if c.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		start := time.Now()
		if err := job(ctx); err != nil {
			log.Printf("ERROR: job %s failed after %s: %v", name, time.Since(start), err)
			return
		}
		log.Printf("INFO: job %s finished in %s", name, time.Since(start))
	}
}

func (c *Cron) Start() {
	c.c.Start()
}

// Stop prevents new runs and returns a context that is done once running jobs finish.
func (c *Cron) Stop() context.Context {
	return c.c.Stop()
}

func (c *Cron) Len() int {
	return len(c.c.Entries())
}
