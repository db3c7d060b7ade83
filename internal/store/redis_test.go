package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(mr.Addr(), "", 0, time.Minute)
	require.NoError(t, err)
	return s, mr
}

func TestRedisStorePutGet(t *testing.T) {
	s, _ := newTestRedisStore(t)

	require.NoError(t, s.Put(t.Context(), "k1", map[string]interface{}{"a": float64(1)}, 0))
	v, ok, err := s.Get(t.Context(), "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, v)
}

func TestRedisStoreGetMissingKeyReturnsFalseNoError(t *testing.T) {
	s, _ := newTestRedisStore(t)
	_, ok, err := s.Get(t.Context(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorePutZeroTTLFallsBackToStoreDefault(t *testing.T) {
	s, mr := newTestRedisStore(t)
	require.NoError(t, s.Put(t.Context(), "k2", "v", 0))
	ttl := mr.TTL("k2")
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}

func TestRedisStoreDelete(t *testing.T) {
	s, _ := newTestRedisStore(t)
	require.NoError(t, s.Put(t.Context(), "k3", "v", 0))
	require.NoError(t, s.Delete(t.Context(), "k3"))
	_, ok, err := s.Get(t.Context(), "k3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreIndexReportAndRetrieveByKey(t *testing.T) {
	s, _ := newTestRedisStore(t)
	report := &models.Report{JobID: "job-1", ConnectionID: "conn-1"}

	require.NoError(t, s.IndexReport(t.Context(), report))

	v, ok, err := s.Get(t.Context(), s.reportKey("job-1"))
	require.NoError(t, err)
	require.True(t, ok)
	decoded, ok := v.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "job-1", decoded["JobID"])
}
