package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tunebox/internal/metrics"
)

// Sweeper removes staging files left behind by crashed requests
type Sweeper struct {
	dir     string
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zerolog.Logger
	cron    *cron.Cron
	now     func() time.Time
}

// NewSweeper creates a sweeper for the store's directory
func NewSweeper(store *StagingStore, ttl time.Duration, m *metrics.Metrics, logger *zerolog.Logger) *Sweeper {
	return &Sweeper{
		dir:     store.Dir(),
		ttl:     ttl,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Sweep deletes regular files whose modification time is older than the TTL
// and returns how many were removed.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list staging directory: %w", err)
	}

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if s.logger != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove stale staging file")
			}
			continue
		}
		removed++
	}

	s.metrics.ObserveSweep(removed)
	if s.logger != nil && removed > 0 {
		s.logger.Info().Int("removed", removed).Str("dir", s.dir).Msg("Swept stale staging files")
	}
	return removed, nil
}

// Start schedules Sweep with a cron spec such as "@every 15m"
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(); err != nil && s.logger != nil {
			s.logger.Error().Err(err).Msg("Staging sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
