package ner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
)

func TestWithTimeoutCancelsSlowCalls(t *testing.T) {
	slow := func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return []Entity{{Text: "ok"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	wrapped := withTimeout(5*time.Millisecond, slow)
	_, err := wrapped(context.Background(), "col", nil)
	require.Error(t, err)
}

func TestWithTimeoutAllowsFastCalls(t *testing.T) {
	fast := func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		return []Entity{{Text: "ok"}}, nil
	}
	wrapped := withTimeout(time.Second, fast)
	entities, err := wrapped(context.Background(), "col", nil)
	require.NoError(t, err)
	assert.Len(t, entities, 1)
}

func TestWithRateLimitZeroDisablesLimiting(t *testing.T) {
	calls := 0
	next := func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		calls++
		return nil, nil
	}
	wrapped := withRateLimit(0, next)
	for i := 0; i < 5; i++ {
		_, _ = wrapped(context.Background(), "col", nil)
	}
	assert.Equal(t, 5, calls)
}

func TestWithRateLimitRespectsCanceledContext(t *testing.T) {
	next := func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		return []Entity{{Text: "ok"}}, nil
	}
	wrapped := withRateLimit(1, next)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := wrapped(ctx, "col", nil)
	require.Error(t, err)
}

func TestWithRetryRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	next := func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return []Entity{{Text: "ok"}}, nil
	}
	wrapped := withRetry(5, time.Millisecond, logger.NewLogger("test"), next)
	entities, err := wrapped(context.Background(), "col", nil)
	require.NoError(t, err)
	assert.Len(t, entities, 1)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAndReturnsLastError(t *testing.T) {
	attempts := 0
	wantErr := errors.New("always fails")
	next := func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		attempts++
		return nil, wantErr
	}
	wrapped := withRetry(2, time.Millisecond, logger.NewLogger("test"), next)
	_, err := wrapped(context.Background(), "col", nil)
	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial attempt + 2 retries
}

func TestWithBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	next := func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		calls++
		return nil, errors.New("backend down")
	}
	cb := newBreaker("test-breaker", 2, time.Minute, logger.NewLogger("test"))
	wrapped := withBreaker(cb, next)

	_, err := wrapped(context.Background(), "col", nil)
	require.Error(t, err)
	_, err = wrapped(context.Background(), "col", nil)
	require.Error(t, err)

	// Breaker should now be open: calls do not reach next, and the error
	// is swallowed to nil/nil per withBreaker's ErrOpenState handling.
	entities, err := wrapped(context.Background(), "col", nil)
	require.NoError(t, err)
	assert.Nil(t, entities)
	assert.Equal(t, 2, calls, "breaker should have shortcut the third call")
}
