package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"SectorSentinel/internal/coordinator"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/recorder"
	"SectorSentinel/internal/strategy"
)

// Refresher runs one batch refresh.
type Refresher interface {
	Refresh(ctx context.Context, benchmark string, sectors []model.Sector) (*model.Snapshot, error)
}

// Selection supplies the sectors to refresh.
type Selection interface {
	Active() []model.Sector
}

// Scheduler runs the refresh on a cron schedule and keeps the latest snapshot.
type Scheduler struct {
	Cron      *cron.Cron
	Refresher Refresher
	Selection Selection
	Recorder  recorder.Recorder
	Benchmark string
	Ctx       context.Context

	// OnRefresh, when set, is called after every successful refresh.
	OnRefresh func(*model.Snapshot)

	mu     sync.RWMutex
	latest *model.Snapshot
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, r Refresher, sel Selection, rec recorder.Recorder, benchmark string) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Refresher: r,
		Selection: sel,
		Recorder:  rec,
		Benchmark: benchmark,
		Ctx:       ctx,
	}
}

// Register adds the periodic refresh task.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("tasks", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes a refresh immediately and returns its snapshot.
func (s *Scheduler) RunNow() (*model.Snapshot, error) {
	return s.refresh()
}

// Latest returns the most recent successful snapshot, or nil.
func (s *Scheduler) Latest() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Scheduler) refreshTask() {
	if _, err := s.refresh(); err != nil {
		if errors.Is(err, coordinator.ErrRefreshInProgress) {
			log.Warn().Msg("skipping scheduled refresh, previous one still running")
			return
		}
		log.Error().Err(err).Msg("scheduled refresh failed")
	}
}

func (s *Scheduler) refresh() (*model.Snapshot, error) {
	sectors := s.Selection.Active()
	log.Info().Int("sectors", len(sectors)).Msg("running refresh")

	snap, err := s.Refresher.Refresh(s.Ctx, s.Benchmark, sectors)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.latest = snap
	s.mu.Unlock()

	if err := s.Recorder.RecordSnapshot(s.Ctx, snap, classify); err != nil {
		log.Error().Err(err).Msg("record snapshot")
	}
	if s.OnRefresh != nil {
		s.OnRefresh(snap)
	}
	return snap, nil
}

func classify(z float64) string { return string(strategy.Classify(z)) }
