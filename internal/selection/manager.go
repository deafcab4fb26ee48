package selection

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"SectorSentinel/internal/model"
	"SectorSentinel/internal/storage"
)

// ErrEmptyTicker is returned by AddCustom for a blank ticker.
var ErrEmptyTicker = errors.New("selection: empty ticker")

// Manager holds the active sector list and persists it after each change.
type Manager struct {
	mu     sync.Mutex
	active []model.Sector
	blobs  storage.BlobStore
}

// NewManager loads the saved selection from blobs. Corrupt state is logged
// and replaced with an empty selection.
func NewManager(ctx context.Context, blobs storage.BlobStore) (*Manager, error) {
	active, err := LoadState(ctx, blobs)
	if err != nil {
		if active == nil {
			return nil, err
		}
		log.Warn().Err(err).Msg("selection state unreadable, starting empty")
	}
	return &Manager{active: active, blobs: blobs}, nil
}

// Active returns a copy of the active sectors in insertion order.
func (m *Manager) Active() []model.Sector {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.active)
}

// Toggle activates the sector, or deactivates it when already active. It
// reports whether the sector is active afterwards.
func (m *Manager) Toggle(ctx context.Context, s model.Sector) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.index(s.Ticker); i >= 0 {
		m.active = slices.Delete(m.active, i, i+1)
		return false, m.save(ctx)
	}
	m.active = append(m.active, s)
	return true, m.save(ctx)
}

// AddCustom activates a ticker by symbol. Catalog tickers are added with
// their catalog entry; others become custom sectors with a generated color.
// Adding an already active ticker is a no-op.
func (m *Manager) AddCustom(ctx context.Context, ticker, name string) (model.Sector, error) {
	ticker = model.NormalizeTicker(ticker)
	if ticker == "" {
		return model.Sector{}, ErrEmptyTicker
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.index(ticker); i >= 0 {
		return m.active[i], nil
	}
	s, ok := model.Lookup(ticker)
	if !ok {
		s = model.Sector{Ticker: ticker, Name: trimName(name, ticker), Color: Color(ticker), Custom: true}
	}
	m.active = append(m.active, s)
	log.Info().Str("ticker", ticker).Bool("custom", s.Custom).Msg("sector added")
	return s, m.save(ctx)
}

// Remove deactivates a ticker. It reports whether anything was removed.
func (m *Manager) Remove(ctx context.Context, ticker string) (bool, error) {
	ticker = model.NormalizeTicker(ticker)

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.index(ticker)
	if i < 0 {
		return false, nil
	}
	m.active = slices.Delete(m.active, i, i+1)
	return true, m.save(ctx)
}

func (m *Manager) index(ticker string) int {
	return slices.IndexFunc(m.active, func(s model.Sector) bool { return s.Ticker == ticker })
}

func (m *Manager) save(ctx context.Context) error {
	if err := SaveState(ctx, m.blobs, m.active); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// Color derives a stable HSL color for a custom ticker.
func Color(ticker string) string {
	h := fnv.New32a()
	h.Write([]byte(ticker))
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", h.Sum32()%360)
}

func trimName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return name
}
