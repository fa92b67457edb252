package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Rebuilder re-derives every aggregate from the ledger.
type Rebuilder interface {
	RebuildAggregates(ctx context.Context) error
}

// AggregateRebuilder runs a full aggregate rebuild on a cron schedule.
type AggregateRebuilder struct {
	cronScheduler *cron.Cron
	store         Rebuilder
	timeout       time.Duration
	log           zerolog.Logger

	mu      sync.Mutex
	jobID   cron.EntryID
	lastRun time.Time
	lastErr error
}

func NewAggregateRebuilder(st Rebuilder, timeout time.Duration, log zerolog.Logger) *AggregateRebuilder {
	return &AggregateRebuilder{
		cronScheduler: cron.New(),
		store:         st,
		timeout:       timeout,
		log:           log.With().Str("job", "aggregate_rebuild").Logger(),
	}
}

// Start schedules the job with a standard 5-field spec or a descriptor
// such as "@daily".
func (r *AggregateRebuilder) Start(schedule string) error {
	id, err := r.cronScheduler.AddFunc(schedule, r.Run)
	if err != nil {
		return fmt.Errorf("error scheduling aggregate rebuild %q: %w", schedule, err)
	}
	r.mu.Lock()
	r.jobID = id
	r.mu.Unlock()

	r.cronScheduler.Start()
	r.log.Info().Str("schedule", schedule).Msg("aggregate rebuild scheduled")
	return nil
}

// Stop waits for a running rebuild to finish.
func (r *AggregateRebuilder) Stop() {
	<-r.cronScheduler.Stop().Done()
	r.log.Info().Msg("aggregate rebuild scheduler stopped")
}

// Run performs one rebuild.
func (r *AggregateRebuilder) Run() {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	err := r.store.RebuildAggregates(ctx)

	r.mu.Lock()
	r.lastRun = start
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		r.log.Error().Err(err).Msg("aggregate rebuild failed")
		return
	}
	r.log.Info().Dur("took", time.Since(start)).Msg("aggregates rebuilt")
}

// LastRun reports when the job last ran and how it ended.
func (r *AggregateRebuilder) LastRun() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastErr
}

// Next returns the next scheduled run, zero if not scheduled.
func (r *AggregateRebuilder) Next() time.Time {
	r.mu.Lock()
	id := r.jobID
	r.mu.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return r.cronScheduler.Entry(id).Next
}
