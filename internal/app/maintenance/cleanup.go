package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/chatrelay/internal/presence"
	"github.com/charlesng35/chatrelay/pkg/logger"
)

const (
	defaultRetentionDays = 30
	defaultPruneSpec     = "@daily"
	defaultRefreshSpec   = "@every 1m"
	defaultPurgeSpec     = "@hourly"

	jobMessagePrune    = "message_prune"
	jobPresenceRefresh = "presence_refresh"
	jobCachePurge      = "cache_purge"
)

// MessagePruner deletes archived messages older than a cutoff.
type MessagePruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PresenceRefresher rewrites presence entries for the bindings reported by src.
type PresenceRefresher interface {
	Refresh(ctx context.Context, src presence.Source) (int, error)
}

// CachePurger removes expired cache entries.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunRecorder receives the outcome of every job execution.
type RunRecorder interface {
	RecordMaintenanceRun(job, result, message string, duration time.Duration)
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

// Cleaner schedules background maintenance: archive retention, presence TTL
// refresh and expired cache purging. Jobs whose dependency is not configured
// are skipped.
type Cleaner struct {
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	recorder RunRecorder

	pruner        MessagePruner
	retentionDays int
	pruneSpec     string

	refresher   PresenceRefresher
	source      presence.Source
	refreshSpec string

	purger    CachePurger
	purgeSpec string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention cutoffs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRecorder reports job outcomes to rec.
func WithRecorder(rec RunRecorder) Option {
	return func(cleaner *Cleaner) {
		cleaner.recorder = rec
	}
}

// WithMessagePruning deletes messages older than retentionDays on spec.
// A non-positive retention disables the job.
func WithMessagePruning(pruner MessagePruner, retentionDays int, spec string) Option {
	return func(cleaner *Cleaner) {
		cleaner.pruner = pruner
		cleaner.retentionDays = retentionDays
		if spec != "" {
			cleaner.pruneSpec = spec
		}
	}
}

// WithPresenceRefresh extends presence TTLs for every binding in src on spec.
func WithPresenceRefresh(refresher PresenceRefresher, src presence.Source, spec string) Option {
	return func(cleaner *Cleaner) {
		cleaner.refresher = refresher
		cleaner.source = src
		if spec != "" {
			cleaner.refreshSpec = spec
		}
	}
}

// WithCachePurge removes expired cache rows on spec.
func WithCachePurge(purger CachePurger, spec string) Option {
	return func(cleaner *Cleaner) {
		cleaner.purger = purger
		if spec != "" {
			cleaner.purgeSpec = spec
		}
	}
}

// NewCleaner constructs a Cleaner with defaults for every schedule.
func NewCleaner(opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		now:           time.Now,
		retentionDays: defaultRetentionDays,
		pruneSpec:     defaultPruneSpec,
		refreshSpec:   defaultRefreshSpec,
		purgeSpec:     defaultPurgeSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Jobs returns the names of the enabled jobs.
func (c *Cleaner) Jobs() []string {
	jobs := c.jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.name)
	}
	return names
}

// Start registers the enabled jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	jobs := c.jobs()
	if len(jobs) == 0 {
		return nil
	}

	for _, j := range jobs {
		if _, err := c.cron.AddFunc(j.spec, func() {
			if err := c.execute(context.Background(), j); err != nil {
				c.log.Warn("maintenance job failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once
// running jobs complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every enabled job sequentially. Used during graceful
// shutdown and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs() {
		errs = multierr.Append(errs, c.execute(ctx, j))
	}
	return errs
}

func (c *Cleaner) execute(ctx context.Context, j job) error {
	start := time.Now()
	err := j.run(ctx)

	if c.recorder != nil {
		result, message := "success", ""
		if err != nil {
			result, message = "failure", err.Error()
		}
		c.recorder.RecordMaintenanceRun(j.name, result, message, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	return nil
}

func (c *Cleaner) jobs() []job {
	var jobs []job

	if c.pruner != nil && c.retentionDays > 0 {
		jobs = append(jobs, job{name: jobMessagePrune, spec: c.pruneSpec, run: c.pruneMessages})
	}
	if c.refresher != nil && c.source != nil {
		jobs = append(jobs, job{name: jobPresenceRefresh, spec: c.refreshSpec, run: c.refreshPresence})
	}
	if c.purger != nil {
		jobs = append(jobs, job{name: jobCachePurge, spec: c.purgeSpec, run: c.purgeCache})
	}

	return jobs
}

func (c *Cleaner) pruneMessages(ctx context.Context) error {
	cutoff := c.now().AddDate(0, 0, -c.retentionDays)
	removed, err := c.pruner.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Info("pruned archived messages", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}
	return nil
}

func (c *Cleaner) refreshPresence(ctx context.Context) error {
	refreshed, err := c.refresher.Refresh(ctx, c.source)
	c.log.Debug("refreshed presence entries", zap.Int("count", refreshed))
	return err
}

func (c *Cleaner) purgeCache(ctx context.Context) error {
	removed, err := c.purger.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Debug("purged expired cache entries", zap.Int64("removed", removed))
	}
	return nil
}
