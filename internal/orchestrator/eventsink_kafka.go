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

package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// KafkaEventSink is a reference interfaces.EventSink that republishes
// every ScanEvent as a JSON message on a fixed topic, for hosts that
// want scan progress fed into a broader event-streaming pipeline.
type KafkaEventSink struct {
	producer sarama.SyncProducer
	topic    string
	log      logger.Logger
}

// NewKafkaEventSink dials brokers and builds a synchronous producer
// configured for at-least-once delivery (WaitForAll acks, up to 5
// retries), matching the reliability a scan-progress audit trail needs.
// The producer is not idempotent, so a retried send can duplicate a
// message.
func NewKafkaEventSink(brokers []string, topic string) (*KafkaEventSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return &KafkaEventSink{producer: producer, topic: topic, log: logger.NewLogger("orchestrator.eventsink.kafka")}, nil
}

// Publish implements interfaces.EventSink.
func (s *KafkaEventSink) Publish(event models.ScanEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Warnf("encoding scan event failed: %v", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.JobID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		s.log.WithField("jobId", event.JobID).Warnf("publishing scan event to kafka failed: %v", err)
	}
}

// Close releases the underlying producer.
func (s *KafkaEventSink) Close() error {
	return s.producer.Close()
}
