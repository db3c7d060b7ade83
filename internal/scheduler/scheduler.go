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

// Package scheduler runs a fixed set of recurring scans on a cron
// schedule, submitting each one through the same Orchestrator API a
// one-shot CLI invocation would use. Built on robfig/cron, with
// log-and-continue on enqueue failure. Jobs carry no enabled flag of
// their own; the serve command checks SchedulerConfig.Enabled before
// calling Start.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/pii-scanner/pii-scanner/internal/common/config"
	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// Scheduler triggers interfaces.Orchestrator.SubmitScan on each
// configured job's cron schedule.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator interfaces.Orchestrator
	jobs         []config.ScheduledJob
	log          logger.Logger
}

// New builds a Scheduler from the module's SchedulerConfig; it does
// not start running until Start is called.
func New(cfg config.SchedulerConfig, orch interfaces.Orchestrator) *Scheduler {
	return &Scheduler{
		cron:         cron.New(),
		orchestrator: orch,
		jobs:         cfg.Jobs,
		log:          logger.NewLogger("scheduler"),
	}
}

// Start registers every configured job and begins the cron loop. A job
// with a malformed cron expression is skipped with a logged warning
// rather than aborting the whole scheduler.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		job := job
		_, err := s.cron.AddFunc(job.CronExpression, func() {
			s.log.WithField("job", job.Name).Info("triggering scheduled scan")
			jobID, err := s.orchestrator.SubmitScan(context.Background(), job.ConnectionID, models.ScanRequest{
				ConnectionID: job.ConnectionID,
			})
			if err != nil {
				s.log.WithField("job", job.Name).Warnf("failed to submit scheduled scan: %v", err)
				return
			}
			s.log.WithFields(map[string]interface{}{"job": job.Name, "scanJobId": jobID}).Info("scheduled scan submitted")
		})
		if err != nil {
			s.log.WithField("job", job.Name).Warnf("invalid cron expression %q: %v", job.CronExpression, err)
			continue
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop, waiting for any in-flight invocation of the
// scheduled funcs (not the scans they submitted, which run async) to
// return.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
