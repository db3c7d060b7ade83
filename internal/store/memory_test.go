package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

func TestMemoryStorePutGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k1", "v1", 0))
	v, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	require.NoError(t, s.Delete(ctx, "k1"))
	_, ok, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreGetMissingKey(t *testing.T) {
	s := NewMemoryStore()
	_, ok, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreExpiresEntriesPastTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", "v", time.Millisecond))

	time.Sleep(5 * time.Millisecond)
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expected entry to have expired")
}

func TestMemoryStoreIndexReportAndReport(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	report := &models.Report{JobID: "job-1", ConnectionID: "conn"}

	require.NoError(t, s.IndexReport(ctx, report))
	got, ok := s.Report("job-1")
	require.True(t, ok)
	assert.Same(t, report, got)

	_, ok = s.Report("unknown-job")
	assert.False(t, ok)
}
