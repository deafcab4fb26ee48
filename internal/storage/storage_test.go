package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "yahoo:XLB", []byte(`{"a":1}`)))
	got, err := s.Get(ctx, "yahoo:XLB")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Set(ctx, "yahoo:XLB", []byte(`{"a":2}`)))
	got, err = s.Get(ctx, "yahoo:XLB")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)

	// Callers cannot mutate stored bytes.
	v := []byte("abc")
	require.NoError(t, s.Set(context.Background(), "k", v))
	v[0] = 'z'
	got, _ := s.Get(context.Background(), "k")
	assert.Equal(t, "abc", string(got))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := newRedisStore(db, "test:")
	ctx := context.Background()

	mock.ExpectGet("test:missing").RedisNil()
	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectSet("test:cache", []byte("v1"), 0).SetVal("OK")
	require.NoError(t, s.Set(ctx, "cache", []byte("v1")))

	mock.ExpectGet("test:cache").SetVal("v1")
	got, err := s.Get(ctx, "cache")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	mock.ExpectGet("test:broken").SetErr(redis.TxFailedErr)
	_, err = s.Get(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen(t *testing.T) {
	s, err := Open(Options{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Options{Driver: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(Options{Driver: "etcd"})
	assert.Error(t, err)
}
