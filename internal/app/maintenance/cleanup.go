package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/models"
	"github.com/charlesng35/web3drender/internal/uploads"
	"github.com/charlesng35/web3drender/pkg/logger"
	"github.com/charlesng35/web3drender/pkg/metrics"
)

const (
	defaultCounterSpec  = "@hourly"
	defaultOrphanSpec   = "@daily"
	defaultOrphanMinAge = 24 * time.Hour

	jobCounters = "rate_counters"
	jobOrphans  = "orphan_uploads"
)

// Cleaner runs background housekeeping: purging expired rate-limit counters
// from the database store and removing upload files no model references.
type Cleaner struct {
	db       *gorm.DB
	counters *cache.DatabaseStore
	storage  *uploads.Storage
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	minAge   time.Duration

	counterSchedule string
	orphanSchedule  string
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

// WithNow overrides the clock used for orphan age comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCounterStore enables purging of expired database rate-limit counters.
func WithCounterStore(store *cache.DatabaseStore) Option {
	return func(cleaner *Cleaner) {
		cleaner.counters = store
	}
}

// WithOrphanMinAge sets how old an unreferenced upload must be before removal.
func WithOrphanMinAge(age time.Duration) Option {
	return func(cleaner *Cleaner) {
		if age > 0 {
			cleaner.minAge = age
		}
	}
}

// WithCounterSchedule overrides the cron specification for counter purging.
func WithCounterSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.counterSchedule = spec
		}
	}
}

// WithOrphanSchedule overrides the cron specification for orphan upload removal.
func WithOrphanSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.orphanSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. Orphan removal needs both db and storage;
// counter purging needs WithCounterStore.
func NewCleaner(db *gorm.DB, storage *uploads.Storage, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		storage:         storage,
		now:             time.Now,
		minAge:          defaultOrphanMinAge,
		counterSchedule: defaultCounterSpec,
		orphanSchedule:  defaultOrphanSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

func (c *Cleaner) orphansEnabled() bool {
	return c.db != nil && c.storage != nil
}

// Start registers the enabled jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	if c.counters == nil && !c.orphansEnabled() {
		return nil
	}

	if c.counters != nil {
		if _, err := c.cron.AddFunc(c.counterSchedule, func() {
			if _, err := c.purgeCounters(context.Background()); err != nil {
				c.log.Warn("rate counter purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.orphansEnabled() {
		if _, err := c.cron.AddFunc(c.orphanSchedule, func() {
			if _, err := c.removeOrphans(context.Background()); err != nil {
				c.log.Warn("orphan upload cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every enabled job sequentially and aggregates their errors.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.counters != nil {
		if _, err := c.purgeCounters(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.orphansEnabled() {
		if _, err := c.removeOrphans(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Cleaner) purgeCounters(ctx context.Context) (int64, error) {
	removed, err := c.counters.PurgeExpired(ctx)
	record(jobCounters, err)
	if err != nil {
		return 0, fmt.Errorf("purge rate counters: %w", err)
	}
	if removed > 0 {
		c.log.Debug("purged expired rate counters", zap.Int64("removed", removed))
	}
	return removed, nil
}

func (c *Cleaner) removeOrphans(ctx context.Context) (int, error) {
	removed, err := RemoveOrphanUploads(ctx, c.db, c.storage, c.now().Add(-c.minAge))
	record(jobOrphans, err)
	if removed > 0 {
		c.log.Info("removed orphaned uploads", zap.Int("removed", removed))
	}
	return removed, err
}

func record(job string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()
}

// RemoveOrphanUploads deletes stored model files modified before cutoff that
// no model row references. Removal failures are collected and the sweep
// continues.
func RemoveOrphanUploads(ctx context.Context, db *gorm.DB, storage *uploads.Storage, cutoff time.Time) (int, error) {
	if db == nil || storage == nil {
		return 0, errors.New("remove orphan uploads: db and storage are required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := storage.List()
	if err != nil {
		return 0, fmt.Errorf("remove orphan uploads: list: %w", err)
	}

	candidates := make([]string, 0, len(files))
	for _, file := range files {
		if file.ModTime.Before(cutoff) {
			candidates = append(candidates, file.Name)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	var referenced []string
	if err := db.WithContext(ctx).
		Model(&models.Model{}).
		Where("file_path IN ?", candidates).
		Pluck("file_path", &referenced).Error; err != nil {
		return 0, fmt.Errorf("remove orphan uploads: lookup: %w", err)
	}
	inUse := make(map[string]struct{}, len(referenced))
	for _, name := range referenced {
		inUse[name] = struct{}{}
	}

	var (
		removed int
		errs    error
	)
	for _, name := range candidates {
		if _, ok := inUse[name]; ok {
			continue
		}
		if err := storage.Remove(name); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		removed++
	}
	return removed, errs
}
