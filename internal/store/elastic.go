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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// ElasticStore is an interfaces.Store that indexes finished reports
// into Elasticsearch for ad-hoc search/aggregation across historical
// scans; Put/Get/Delete degrade to a flat auxiliary index since the
// core only ever calls IndexReport on the hot path. Ensures its index
// exists on start and speaks the esapi request/response shape.
type ElasticStore struct {
	client    *elasticsearch.Client
	reportIdx string
	auxIdx    string
	log       logger.Logger
}

// NewElasticStore connects to addresses and ensures both indices exist.
func NewElasticStore(addresses []string, reportIndex, auxIndex string) (*ElasticStore, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connecting to elasticsearch: %w", err)
	}
	res.Body.Close()

	s := &ElasticStore{client: client, reportIdx: reportIndex, auxIdx: auxIndex, log: logger.NewLogger("store.elastic")}
	if err := s.ensureIndex(context.Background(), reportIndex); err != nil {
		return nil, err
	}
	if err := s.ensureIndex(context.Background(), auxIndex); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ElasticStore) ensureIndex(ctx context.Context, index string) error {
	existsReq := esapi.IndicesExistsRequest{Index: []string{index}}
	res, err := existsReq.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("checking index %q: %w", index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	createReq := esapi.IndicesCreateRequest{Index: index}
	createRes, err := createReq.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("creating index %q: %w", index, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("creating index %q: %s", index, createRes.String())
	}
	return nil
}

// Put implements interfaces.Store against the auxiliary index.
// Elasticsearch has no native ttl; a non-zero ttl is stored as an
// expiresAt field and enforced lazily by Get.
func (s *ElasticStore) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	doc := map[string]interface{}{"value": value}
	if ttl > 0 {
		doc["expiresAt"] = time.Now().Add(ttl)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling value for key %q: %w", key, err)
	}
	req := esapi.IndexRequest{Index: s.auxIdx, DocumentID: key, Body: bytes.NewReader(body), Refresh: "true"}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("indexing key %q: %w", key, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing key %q: %s", key, res.String())
	}
	return nil
}

// Get implements interfaces.Store.
func (s *ElasticStore) Get(ctx context.Context, key string) (interface{}, bool, error) {
	req := esapi.GetRequest{Index: s.auxIdx, DocumentID: key}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, false, fmt.Errorf("fetching key %q: %w", key, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if res.IsError() {
		return nil, false, fmt.Errorf("fetching key %q: %s", key, res.String())
	}

	var body struct {
		Source struct {
			Value     interface{} `json:"value"`
			ExpiresAt *time.Time  `json:"expiresAt"`
		} `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decoding key %q: %w", key, err)
	}
	if body.Source.ExpiresAt != nil && time.Now().After(*body.Source.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return body.Source.Value, true, nil
}

// Delete implements interfaces.Store.
func (s *ElasticStore) Delete(ctx context.Context, key string) error {
	req := esapi.DeleteRequest{Index: s.auxIdx, DocumentID: key, Refresh: "true"}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("deleting key %q: %s", key, res.String())
	}
	return nil
}

// IndexReport indexes the finished report, keyed by job id, into the
// report index for later search/aggregation.
func (s *ElasticStore) IndexReport(ctx context.Context, report *models.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report %s: %w", report.JobID, err)
	}
	req := esapi.IndexRequest{Index: s.reportIdx, DocumentID: report.JobID, Body: bytes.NewReader(body), Refresh: "true"}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("indexing report %s: %w", report.JobID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing report %s: %s", report.JobID, res.String())
	}
	s.log.WithField("jobId", report.JobID).Info("report indexed in elasticsearch")
	return nil
}
