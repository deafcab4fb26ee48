package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/coordinator"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/recorder"
)

type fakeRefresher struct {
	err       error
	benchmark string
	sectors   []model.Sector
}

func (f *fakeRefresher) Refresh(_ context.Context, benchmark string, sectors []model.Sector) (*model.Snapshot, error) {
	f.benchmark, f.sectors = benchmark, sectors
	if f.err != nil {
		return nil, f.err
	}
	res := make(map[string]model.SectorResult, len(sectors))
	for _, s := range sectors {
		res[s.Ticker] = model.SectorResult{Sector: s, Points: []model.ZScorePoint{{Date: time.Now(), Value: -2.5}}}
	}
	return &model.Snapshot{Benchmark: benchmark, Results: res}, nil
}

type staticSelection []model.Sector

func (s staticSelection) Active() []model.Sector { return s }

type memRecorder struct {
	recorder.NoopRecorder
	signals []string
}

func (m *memRecorder) RecordSnapshot(_ context.Context, snap *model.Snapshot, classify func(float64) string) error {
	for _, r := range recorder.ReadingsOf(snap, classify) {
		m.signals = append(m.signals, r.Signal)
	}
	return nil
}

func TestRunNow(t *testing.T) {
	ref := &fakeRefresher{}
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), ref, staticSelection{{Ticker: "XLB"}, {Ticker: "XLE"}}, rec, "SPY")

	var notified *model.Snapshot
	s.OnRefresh = func(snap *model.Snapshot) { notified = snap }

	snap, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, "SPY", ref.benchmark)
	assert.Len(t, ref.sectors, 2)
	assert.Same(t, snap, s.Latest())
	assert.Same(t, snap, notified)
	assert.Equal(t, []string{"CYCLICAL LOW", "CYCLICAL LOW"}, rec.signals)
}

func TestRunNow_FailureKeepsPreviousSnapshot(t *testing.T) {
	ref := &fakeRefresher{}
	s := NewScheduler(context.Background(), ref, staticSelection{{Ticker: "XLB"}}, nil, "SPY")

	first, err := s.RunNow()
	require.NoError(t, err)

	ref.err = coordinator.ErrRefreshInProgress
	_, err = s.RunNow()
	assert.True(t, errors.Is(err, coordinator.ErrRefreshInProgress))
	assert.Same(t, first, s.Latest())

	s.refreshTask() // logs and returns
	assert.Same(t, first, s.Latest())
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRefresher{}, staticSelection{}, nil, "SPY")
	require.NoError(t, s.Register("0 0 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("every tuesday"))

	s.Start()
	s.Stop()
}
