package scheduler

import (
	"context"
	"time"

	"dropfm/logger"
	"dropfm/model"
	"dropfm/repository"
	"dropfm/storage"
)

// SweepReport tallies a delete sweep. Individual failures never abort the
// batch; they are counted and logged instead.
type SweepReport struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Config carries the scheduler timings.
type Config struct {
	// Retention is how long a track stays active before it expires.
	Retention time.Duration
	// ExpireInterval is how often the expire sweep runs.
	ExpireInterval time.Duration
	// DeleteInterval is how often the delete sweep runs.
	DeleteInterval time.Duration
	// ItemTimeout bounds each track's deletion inside a sweep.
	ItemTimeout time.Duration
	// DefaultCoverURL is never deleted from the blob store.
	DefaultCoverURL string
}

// Scheduler runs the periodic expire and delete sweeps. The same sweep bodies
// back the cron HTTP endpoints, so serverless deployments can trigger them
// externally instead.
type Scheduler struct {
	tracks repository.TrackRepository
	blobs  storage.BlobStore
	cfg    Config
}

// New creates a scheduler.
func New(tracks repository.TrackRepository, blobs storage.BlobStore, cfg Config) *Scheduler {
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.ExpireInterval <= 0 {
		cfg.ExpireInterval = time.Hour
	}
	if cfg.DeleteInterval <= 0 {
		cfg.DeleteInterval = 24 * time.Hour
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 30 * time.Second
	}
	return &Scheduler{tracks: tracks, blobs: blobs, cfg: cfg}
}

// Start launches the sweep tickers and blocks until ctx is cancelled. It takes
// no locks shared with request traffic; per-track atomicity in the store keeps
// sweeps safe to run concurrently with votes and uploads.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("Starting track sweeps",
		logger.Duration("retention", s.cfg.Retention),
		logger.Duration("expireInterval", s.cfg.ExpireInterval),
		logger.Duration("deleteInterval", s.cfg.DeleteInterval))

	go s.runPeriodic(ctx, s.cfg.ExpireInterval, "expire", func(ctx context.Context) {
		if _, err := s.RunExpireSweep(ctx, time.Now().Add(-s.cfg.Retention)); err != nil {
			logger.Error("Expire sweep failed", logger.ErrorField(err))
		}
	})
	go s.runPeriodic(ctx, s.cfg.DeleteInterval, "delete", func(ctx context.Context) {
		report := s.RunDeleteSweep(ctx)
		logger.Info("Delete sweep completed",
			logger.Int("deleted", report.Deleted),
			logger.Int("failed", report.Failed))
	})

	<-ctx.Done()
	logger.Info("Track sweeps stopped")
}

func (s *Scheduler) runPeriodic(ctx context.Context, interval time.Duration, name string, run func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			run(ctx)
			logger.Debug("Sweep tick finished",
				logger.String("sweep", name),
				logger.Duration("duration", time.Since(start)))
		}
	}
}

// RunExpireSweep marks every active expirable track created at or before the
// cutoff as expired and returns the count. Idempotent: a second run with the
// same cutoff transitions nothing.
func (s *Scheduler) RunExpireSweep(ctx context.Context, cutoff time.Time) (int64, error) {
	expired, err := s.tracks.ExpireTracksBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		logger.Info("Expired tracks past retention",
			logger.Int64("count", expired),
			logger.Time("cutoff", cutoff))
	}
	return expired, nil
}

// RunDeleteSweep removes every expired track and releases its blobs. Each
// track is handled independently under its own timeout; one slow or failed
// item never aborts the rest.
func (s *Scheduler) RunDeleteSweep(ctx context.Context) SweepReport {
	var report SweepReport

	expired, err := s.tracks.FindExpiredTracks(ctx)
	if err != nil {
		logger.Error("Delete sweep could not list expired tracks", logger.ErrorField(err))
		report.Failed++
		return report
	}

	for _, t := range expired {
		if err := s.deleteOne(ctx, t); err != nil {
			logger.Warn("Failed to delete expired track",
				logger.String("trackId", t.ID),
				logger.ErrorField(err))
			report.Failed++
			continue
		}
		report.Deleted++
	}
	return report
}

func (s *Scheduler) deleteOne(ctx context.Context, t *model.Track) error {
	itemCtx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	deleted, err := s.tracks.DeleteTrackByID(itemCtx, t.ID, t.ArtistID)
	if err != nil {
		return err
	}
	if deleted == nil {
		// Gone already (user delete raced the sweep); nothing to release.
		return nil
	}

	// Blob failures are logged, not returned: an orphaned file is preferable
	// to a track record that never gets purged.
	if err := s.blobs.Delete(itemCtx, deleted.FileURL); err != nil {
		logger.Warn("Failed to delete track file blob in sweep",
			logger.String("trackId", deleted.ID),
			logger.String("url", deleted.FileURL),
			logger.ErrorField(err))
	}
	if deleted.CoverArt != "" && deleted.CoverArt != s.cfg.DefaultCoverURL {
		if err := s.blobs.Delete(itemCtx, deleted.CoverArt); err != nil {
			logger.Warn("Failed to delete cover art blob in sweep",
				logger.String("trackId", deleted.ID),
				logger.String("url", deleted.CoverArt),
				logger.ErrorField(err))
		}
	}
	return nil
}
