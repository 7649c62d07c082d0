package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"imageserver/internal/domain"
	"imageserver/internal/infra"
)

// Sweeper periodically reclaims pending uploads that were never submitted.
// Entries older than the retention window are deleted together with their raw
// companion. Per-entry failures are logged and skipped so that one bad entry
// cannot abort the rest of the sweep.
type Sweeper struct {
	store     *Store
	interval  time.Duration
	retention time.Duration
	logger    infra.Logger
}

// NewSweeper builds a Sweeper from the configured interval and retention
// window. Retention is expected to be much larger than the interval, so sweep
// latency only affects promptness, never correctness.
func NewSweeper(store *Store, cfg *infra.Config, logger infra.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		interval:  cfg.SweepInterval,
		retention: cfg.PendingRetention,
		logger:    logger,
	}
}

// Run sweeps immediately and then on every interval tick until the context is
// cancelled. It never returns an error: all failures are handled locally.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.sweep()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-s.retention)
	dir := s.store.StageDir(domain.StagePending)

	s.logger.Info().Msg("starting sweep of expired pending assets")
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Error().Err(err).Msg("unable to read pending directory")
		return
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Error().Err(err).Msgf("unable to read metadata for %s", entry.Name())
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Error().Err(err).Msgf("unable to delete %s", path)
			continue
		}
		s.logger.Info().Msgf("deleted expired pending asset %s", entry.Name())

		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), domain.CanonicalExt))
		if err != nil {
			s.logger.Warn().Msgf("pending entry %s has no parseable identifier, skipping raw companion", entry.Name())
			continue
		}
		if err := s.store.RemoveRaw(id); err != nil {
			s.logger.Error().Err(err).Str("id", id.String()).Msg("unable to delete raw companion")
		}
	}
	s.logger.Info().Msg("finished sweep of expired pending assets")
}
