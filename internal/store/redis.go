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

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// RedisStore is an interfaces.Store backed by Redis: status/result
// keys, JSON-encoded values, ttl applied uniformly at Set time.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewRedisStore dials addr and verifies connectivity with a PING.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl, log: logger.NewLogger("store.redis")}, nil
}

func (s *RedisStore) reportKey(jobID string) string {
	return fmt.Sprintf("piiscan:report:%s", jobID)
}

// Put implements interfaces.Store. ttl of zero falls back to the
// store's default ttl.
func (s *RedisStore) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling value for key %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Get implements interfaces.Store, decoding the stored JSON back into
// a generic map since the original Go type is not known to the store.
func (s *RedisStore) Get(ctx context.Context, key string) (interface{}, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("decoding value for key %q: %w", key, err)
	}
	return value, true, nil
}

// Delete implements interfaces.Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// IndexReport stores the finished report as a JSON blob under its job
// id, with the store's configured ttl.
func (s *RedisStore) IndexReport(ctx context.Context, report *models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report %s: %w", report.JobID, err)
	}
	if err := s.client.Set(ctx, s.reportKey(report.JobID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("indexing report %s: %w", report.JobID, err)
	}
	s.log.WithField("jobId", report.JobID).Info("report indexed in redis")
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
