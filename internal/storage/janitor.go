package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// ReferenceChecker answers whether a stored file name is still referenced.
type ReferenceChecker interface {
	StoredFilenameExists(ctx context.Context, storeFilename string) (bool, error)
}

// SweepOrphans removes upload files older than maxAge that no row
// references. These appear when the process dies between staging a file
// and committing its row.
func (s *Store) SweepOrphans(ctx context.Context, maxAge time.Duration, refs ReferenceChecker) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, area := range []Area{AreaDiagnostics, AreaDocuments} {
		entries, err := os.ReadDir(s.Dir(area))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("read %s: %w", area, err)
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return removed, ctx.Err()
			}
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), "document-") {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			used, err := refs.StoredFilenameExists(ctx, entry.Name())
			if err != nil {
				return removed, err
			}
			if used {
				continue
			}
			path := filepath.Join(s.Dir(area), entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("could not remove orphaned upload")
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// Janitor runs SweepOrphans on a fixed interval.
type Janitor struct {
	scheduler *gocron.Scheduler
	store     *Store
	refs      ReferenceChecker
	maxAge    time.Duration
	logger    zerolog.Logger
}

func NewJanitor(store *Store, refs ReferenceChecker, interval, maxAge time.Duration, logger zerolog.Logger) (*Janitor, error) {
	j := &Janitor{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		refs:      refs,
		maxAge:    maxAge,
		logger:    logger.With().Str("component", "janitor").Logger(),
	}
	if _, err := j.scheduler.Every(interval).Do(j.Sweep); err != nil {
		return nil, fmt.Errorf("schedule orphan sweep: %w", err)
	}
	return j, nil
}

func (j *Janitor) Start() { j.scheduler.StartAsync() }

func (j *Janitor) Stop() { j.scheduler.Stop() }

// Sweep runs one pass and logs the result.
func (j *Janitor) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := j.store.SweepOrphans(ctx, j.maxAge, j.refs)
	if err != nil {
		j.logger.Error().Err(err).Msg("orphan sweep failed")
		return
	}
	if removed > 0 {
		j.logger.Info().Int("removed", removed).Msg("orphaned uploads removed")
	}
}
