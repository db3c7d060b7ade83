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
	"fmt"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// transition is one legal edge of the scan job state machine.
type transition struct {
	From  models.ScanStatus
	To    models.ScanStatus
	Event string
}

// validTransitions is the only table of legal edges (spec.md §4.7).
// Every non-terminal state may additionally transition to FAILED or
// CANCELLED via the "fail"/"cancel" events; those edges are not rows in
// this table but are checked against nonTerminalStates.
var validTransitions = []transition{
	{models.StatusPending, models.StatusExtractingMetadata, "extract"},
	{models.StatusExtractingMetadata, models.StatusSampling, "sample"},
	{models.StatusSampling, models.StatusDetectingPII, "detect"},
	{models.StatusDetectingPII, models.StatusAnalyzingQI, "analyze"},
	{models.StatusAnalyzingQI, models.StatusGeneratingReport, "report"},
	{models.StatusGeneratingReport, models.StatusCompleted, "complete"},
}

var nonTerminalStates = []models.ScanStatus{
	models.StatusPending,
	models.StatusExtractingMetadata,
	models.StatusSampling,
	models.StatusDetectingPII,
	models.StatusAnalyzingQI,
	models.StatusGeneratingReport,
}

// StateChangeListener is notified of every legal transition.
type StateChangeListener interface {
	OnStateChange(job *models.ScanJob, from, to models.ScanStatus, event string)
}

// StateMachine drives one ScanJob's status field through the legal
// transition table, refusing any edge not explicitly listed.
type StateMachine struct {
	job       *models.ScanJob
	listeners []StateChangeListener
	log       logger.Logger
}

// NewStateMachine wraps job, which must start at StatusPending.
func NewStateMachine(job *models.ScanJob) *StateMachine {
	return &StateMachine{job: job, log: logger.NewLogger("orchestrator.statemachine")}
}

// AddListener registers l to be notified of every subsequent transition.
func (m *StateMachine) AddListener(l StateChangeListener) {
	m.listeners = append(m.listeners, l)
}

// CurrentState returns the job's current status.
func (m *StateMachine) CurrentState() models.ScanStatus {
	return m.job.Status
}

// Transition applies event, moving the job to the matching target
// state. fail/cancel are always legal from any non-terminal state; any
// other event must match validTransitions exactly.
func (m *StateMachine) Transition(event string) error {
	current := m.job.Status
	if current.IsTerminal() {
		return fmt.Errorf("job %s is already terminal at %s", m.job.ID, current)
	}

	target, ok := m.resolve(current, event)
	if !ok {
		return fmt.Errorf("invalid transition: %s --%s--> ?", current, event)
	}

	m.job.Status = target
	for _, l := range m.listeners {
		l.OnStateChange(m.job, current, target, event)
	}
	m.log.WithFields(map[string]interface{}{
		"jobId": m.job.ID, "from": current, "to": target, "event": event,
	}).Info("scan job transition")
	return nil
}

func (m *StateMachine) resolve(current models.ScanStatus, event string) (models.ScanStatus, bool) {
	switch event {
	case "fail":
		return models.StatusFailed, isNonTerminal(current)
	case "cancel":
		return models.StatusCancelled, isNonTerminal(current)
	}
	for _, t := range validTransitions {
		if t.From == current && t.Event == event {
			return t.To, true
		}
	}
	return "", false
}

func isNonTerminal(s models.ScanStatus) bool {
	for _, n := range nonTerminalStates {
		if n == s {
			return true
		}
	}
	return false
}
