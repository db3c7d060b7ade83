// Copyright © 2024 KubeStack-AI Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ner implements the NER detection strategy's external
// collaborator: an HTTP client wrapped in timeout, retry and
// circuit-breaker middleware, composed as a plugin middleware chain.
package ner

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
)

// callFunc is the shape every middleware layer wraps: call the NER
// backend with texts for one column, get back entities or an error.
type callFunc func(ctx context.Context, column string, texts []string) ([]Entity, error)

// Entity is one recognized span, mirroring interfaces.NerEntity so the
// middleware chain stays decoupled from the core interfaces package.
type Entity struct {
	Text  string
	Label string
	Score float64
}

// withTimeout bounds one call to timeout.
func withTimeout(timeout time.Duration, next callFunc) callFunc {
	return func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return next(ctx, column, texts)
	}
}

// withRateLimit caps outbound calls to the shared NER service to
// ratePerSecond, queuing the caller's goroutine (one per column under
// detection) rather than flooding a backend that is usually the
// slowest collaborator in the pipeline. ratePerSecond <= 0 disables
// limiting entirely.
func withRateLimit(ratePerSecond int, next callFunc) callFunc {
	if ratePerSecond <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond)
	return func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return next(ctx, column, texts)
	}
}

// withRetry retries transport failures up to maxRetries times with
// exponential backoff (backoff * 2^attempt).
func withRetry(maxRetries int, backoff time.Duration, log logger.Logger, next callFunc) callFunc {
	return func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		var lastErr error
		for attempt := 0; attempt <= maxRetries; attempt++ {
			entities, err := next(ctx, column, texts)
			if err == nil {
				return entities, nil
			}
			lastErr = err
			if attempt < maxRetries {
				d := backoff * time.Duration(uint(1)<<uint(attempt))
				log.WithField("column", column).Infof("retrying NER call, attempt %d, backoff %v", attempt+1, d)
				select {
				case <-time.After(d):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
		return nil, lastErr
	}
}

// breaker wraps gobreaker around a callFunc. ReadyToTrip fires on
// failureThreshold consecutive failures; Timeout is resetTimeoutSeconds;
// MaxRequests=1 so a single half-open success closes it again, matching
// spec.md §4.3's "a single success closes the breaker".
func newBreaker(name string, failureThreshold int, resetTimeout time.Duration, log logger.Logger) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name, "from": from.String(), "to": to.String(),
			}).Warn("ner circuit breaker state change")
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}

func withBreaker(cb *gobreaker.CircuitBreaker, next callFunc) callFunc {
	return func(ctx context.Context, column string, texts []string) ([]Entity, error) {
		result, err := cb.Execute(func() (interface{}, error) {
			return next(ctx, column, texts)
		})
		if err != nil {
			if err == gobreaker.ErrOpenState {
				return nil, nil
			}
			return nil, err
		}
		return result.([]Entity), nil
	}
}
