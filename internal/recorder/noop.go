package recorder

import (
	"context"

	"SectorSentinel/internal/model"
)

// NoopRecorder is used when history recording is disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(context.Context, *model.Snapshot, func(float64) string) error {
	return nil
}
func (n *NoopRecorder) History(context.Context, string, int) ([]Reading, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                           { return nil }
