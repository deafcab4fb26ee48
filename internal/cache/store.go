package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"SectorSentinel/internal/model"
	"SectorSentinel/internal/storage"
)

// BlobKey is the storage key the whole cache is persisted under.
const BlobKey = "price_cache"

// Key combines a source tag and a ticker into a cache key.
func Key(source, ticker string) string {
	return source + ":" + ticker
}

// IsFresh reports whether entry is younger than ttl at now.
func IsFresh(entry model.CacheEntry, ttl time.Duration, now time.Time) bool {
	return now.Sub(entry.Timestamp) < ttl
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPersistence writes the full cache to blobs after every Put.
func WithPersistence(blobs storage.BlobStore) Option {
	return func(s *Store) { s.blobs = blobs }
}

// Store is a TTL-checked price series cache. Staleness is evaluated on read;
// nothing is evicted in the background. Concurrent Puts to one key race and
// the last write wins.
type Store struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
	ttl     time.Duration
	now     func() time.Time

	persistMu sync.Mutex
	blobs     storage.BlobStore
}

func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]model.CacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration { return s.ttl }

// Get returns a copy of the entry under key if it is still fresh.
func (s *Store) Get(key string) (model.CacheEntry, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !IsFresh(e, s.ttl, s.now()) {
		return model.CacheEntry{}, false
	}
	e.Data = slices.Clone(e.Data)
	return e, true
}

// Put stores a copy of series stamped with the current time, then persists
// the store if a backend is configured. A persistence failure is returned but
// the in-memory entry is kept.
func (s *Store) Put(ctx context.Context, key string, series []model.PricePoint) error {
	s.mu.Lock()
	s.entries[key] = model.CacheEntry{Key: key, Timestamp: s.now(), Data: slices.Clone(series)}
	s.mu.Unlock()

	if s.blobs == nil {
		return nil
	}
	return s.persist(ctx)
}

// Len returns the number of stored entries, fresh or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

type wirePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

type wireEntry struct {
	Timestamp int64       `json:"timestamp"`
	Data      []wirePoint `json:"data"`
}

// persist snapshots under persistMu so blobs are written in Put order.
func (s *Store) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	wire := make(map[string]wireEntry, len(s.entries))
	for k, e := range s.entries {
		pts := make([]wirePoint, len(e.Data))
		for i, p := range e.Data {
			pts[i] = wirePoint{Date: p.Date, Close: p.Close}
		}
		wire[k] = wireEntry{Timestamp: e.Timestamp.UnixMilli(), Data: pts}
	}
	s.mu.RUnlock()

	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := s.blobs.Set(ctx, BlobKey, data); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Load restores persisted entries, dropping any that have already expired.
// A missing blob is not an error; an undecodable one is logged and skipped.
func (s *Store) Load(ctx context.Context) error {
	if s.blobs == nil {
		return nil
	}
	data, err := s.blobs.Get(ctx, BlobKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}

	var wire map[string]wireEntry
	if err := json.Unmarshal(data, &wire); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable persisted cache")
		return nil
	}

	now := s.now()
	var kept, dropped int
	s.mu.Lock()
	for k, w := range wire {
		e := model.CacheEntry{Key: k, Timestamp: time.UnixMilli(w.Timestamp)}
		if !IsFresh(e, s.ttl, now) {
			dropped++
			continue
		}
		e.Data = make([]model.PricePoint, len(w.Data))
		for i, p := range w.Data {
			e.Data[i] = model.PricePoint{Date: model.Day(p.Date), Close: p.Close}
		}
		s.entries[k] = e
		kept++
	}
	s.mu.Unlock()

	log.Info().Int("kept", kept).Int("expired", dropped).Msg("persisted cache loaded")
	return nil
}
