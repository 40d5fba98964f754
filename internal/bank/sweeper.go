package bank

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRetention is how long trashed items are kept before the sweep
// permanently removes them.
const DefaultRetention = 30 * 24 * time.Hour

// Sweeper is the sole transition authority from Trashed to Purged. It runs a
// daily cron job that hard-deletes items whose trash timestamp is past the
// retention window.
type Sweeper struct {
	store     Store
	retention time.Duration
	log       *zap.Logger
	cron      *cron.Cron
}

func NewSweeper(store Store, retention time.Duration, log *zap.Logger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{store: store, retention: retention, log: log, cron: cron.New()}
}

// Start schedules the daily sweep. Call Stop on shutdown.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.SweepOnce(ctx); err != nil {
			s.log.Warn("trash sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// SweepOnce purges everything trashed longer ago than the retention window.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.store.PurgeTrashedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("trash sweep purged items", zap.Int64("count", n))
	}
	return nil
}
