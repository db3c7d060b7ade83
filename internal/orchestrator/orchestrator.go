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

// Package orchestrator implements the Scan Orchestrator (spec.md §4.7):
// the central coordinator that drives one scan job through metadata
// extraction, sampling, detection, correlation, risk assessment and
// report generation, publishing a ScanEvent at every transition.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	piierrors "github.com/pii-scanner/pii-scanner/internal/common/errors"
	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/correlation"
	"github.com/pii-scanner/pii-scanner/internal/core/interfaces"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
	"github.com/pii-scanner/pii-scanner/internal/detection"
	"github.com/pii-scanner/pii-scanner/internal/detection/patterns"
	"github.com/pii-scanner/pii-scanner/internal/detection/strategies"
	"github.com/pii-scanner/pii-scanner/internal/report"
	"github.com/pii-scanner/pii-scanner/internal/risk"
	"github.com/pii-scanner/pii-scanner/internal/sampler"
	"github.com/pii-scanner/pii-scanner/internal/sampler/dialect"
)

// ConnectorFactory resolves a connectionId (host-defined, opaque to the
// core) to a live Connector. The orchestrator borrows it for the scan's
// duration and closes it when the scan reaches a terminal state.
type ConnectorFactory func(ctx context.Context, connectionID string) (interfaces.Connector, error)

// Dependencies bundles every collaborator the orchestrator needs,
// following the explicit-constructor-injection convention of spec.md
// §9 (no framework DI, no repository base classes).
type Dependencies struct {
	ConnectorFactory  ConnectorFactory
	MetadataExtractor interfaces.MetadataExtractor
	NerClient         interfaces.NerClient // nil disables the NER strategy
	Store             interfaces.Store     // nil disables persistence
	ExternalSink      interfaces.EventSink // nil disables external fan-out (websocket/kafka/...)
}

// jobHandle is the orchestrator's private bookkeeping for one scan,
// guarded by its own mutex so Cancel/GetStatus/runScan never race on
// the same ScanJob.
type jobHandle struct {
	mu     sync.Mutex
	job    *models.ScanJob
	sm     *StateMachine
	cancel context.CancelFunc
	done   chan struct{}
	report *models.Report
}

// Orchestrator implements interfaces.Orchestrator.
type Orchestrator struct {
	detectionCfg DetectionSettings
	qiCfg        correlation.Config
	samplingCfg  SamplingSettings
	deps         Dependencies
	bus          *eventBus
	log          logger.Logger

	mu   sync.Mutex
	jobs map[string]*jobHandle
}

// DetectionSettings mirrors config.DetectionConfig without importing
// the config package's mapstructure tags into the orchestrator.
type DetectionSettings struct {
	HeuristicThreshold           float64
	RegexThreshold               float64
	NerThreshold                 float64
	ReportingThreshold           float64
	StopPipelineOnHighConfidence bool
	LowCardinalityThreshold      float64
	HighCardinalityThreshold     float64
	MaxNerSamples                int
}

// SamplingSettings mirrors config.SamplingConfig.
type SamplingSettings struct {
	DefaultSize               int
	MaxConcurrentDbQueries    int
	EntropyCalculationEnabled bool
}

// New builds an Orchestrator. Strategies and the dialect registry are
// resolved per-scan, since each connection may target a different
// database product.
func New(detectionCfg DetectionSettings, qiCfg correlation.Config, samplingCfg SamplingSettings, deps Dependencies) *Orchestrator {
	return &Orchestrator{
		detectionCfg: detectionCfg,
		qiCfg:        qiCfg,
		samplingCfg:  samplingCfg,
		deps:         deps,
		bus:          newEventBus(),
		log:          logger.NewLogger("orchestrator"),
		jobs:         make(map[string]*jobHandle),
	}
}

// SubmitScan creates a new job in PENDING and starts it asynchronously;
// it never blocks on the scan itself (spec.md §4.7).
func (o *Orchestrator) SubmitScan(ctx context.Context, connectionID string, req models.ScanRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	job := &models.ScanJob{
		ID:           jobID,
		ConnectionID: connectionID,
		StartTime:    time.Now(),
		Status:       models.StatusPending,
	}
	scanCtx, cancel := context.WithCancel(context.Background())
	handle := &jobHandle{job: job, sm: NewStateMachine(job), cancel: cancel, done: make(chan struct{})}
	handle.sm.AddListener(listenerFunc(o.onTransition))

	o.mu.Lock()
	o.jobs[jobID] = handle
	o.mu.Unlock()

	go o.runScan(scanCtx, handle, req)

	return jobID, nil
}

func validateRequest(req models.ScanRequest) error {
	if req.ConfidenceThreshold < 0 || req.ConfidenceThreshold > 1 {
		return piierrors.Config("confidenceThreshold must be in [0,1]", nil)
	}
	return nil
}

// listenerFunc adapts a plain function to the StateChangeListener
// interface.
type listenerFunc func(job *models.ScanJob, from, to models.ScanStatus, event string)

func (f listenerFunc) OnStateChange(job *models.ScanJob, from, to models.ScanStatus, event string) {
	f(job, from, to, event)
}

func (o *Orchestrator) onTransition(job *models.ScanJob, from, to models.ScanStatus, event string) {
	evt := models.ScanEvent{
		JobID:            job.ID,
		Status:           to,
		Progress:         job.Progress,
		Timestamp:        time.Now(),
		CurrentOperation: string(to),
		ErrorMessage:     job.ErrorMessage,
	}
	o.bus.Publish(evt)
	if o.deps.ExternalSink != nil {
		o.deps.ExternalSink.Publish(evt)
	}
}

// GetStatus returns a snapshot of the job's current state.
func (o *Orchestrator) GetStatus(jobID string) (models.ScanJob, error) {
	handle, err := o.handle(jobID)
	if err != nil {
		return models.ScanJob{}, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return *handle.job, nil
}

// Cancel requests cooperative termination. Idempotent: calling it on an
// already-terminal job is a no-op.
func (o *Orchestrator) Cancel(jobID string) error {
	handle, err := o.handle(jobID)
	if err != nil {
		return err
	}
	handle.mu.Lock()
	terminal := handle.job.Status.IsTerminal()
	handle.mu.Unlock()
	if terminal {
		return nil
	}
	handle.cancel()
	return nil
}

// Subscribe delegates to the broadcast channel.
func (o *Orchestrator) Subscribe(jobID string) (<-chan models.ScanEvent, func()) {
	return o.bus.Subscribe(jobID)
}

// GetReport returns the finished report, or a NotReady error if the job
// has not completed.
func (o *Orchestrator) GetReport(jobID string) (*models.Report, error) {
	handle, err := o.handle(jobID)
	if err != nil {
		return nil, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	if handle.job.Status != models.StatusCompleted || handle.report == nil {
		return nil, fmt.Errorf("NotReady: job %s has not completed", jobID)
	}
	return handle.report, nil
}

// Await blocks until the job reaches a terminal status or ctx expires.
func (o *Orchestrator) Await(ctx context.Context, jobID string) (models.ScanJob, error) {
	handle, err := o.handle(jobID)
	if err != nil {
		return models.ScanJob{}, err
	}
	select {
	case <-handle.done:
		handle.mu.Lock()
		defer handle.mu.Unlock()
		return *handle.job, nil
	case <-ctx.Done():
		return models.ScanJob{}, ctx.Err()
	}
}

func (o *Orchestrator) handle(jobID string) (*jobHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("unknown job %s", jobID)
	}
	return h, nil
}

// transition serializes one state-machine edge for this job and returns
// the state machine's error unchanged; runScan discards the error of
// its "fail" and "cancel" transitions.
func (h *jobHandle) transition(event string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sm.Transition(event)
}

func (h *jobHandle) setProgress(p int) {
	h.mu.Lock()
	h.job.Progress = p
	h.mu.Unlock()
}

// progressWithinStage scales done/total onto a 0..span sub-range for
// reporting intra-stage progress; total of zero maps to span (stage
// has no work left to do).
func progressWithinStage(done, total, span int) int {
	if total <= 0 {
		return span
	}
	return done * span / total
}

func (h *jobHandle) setCounts(c models.ScanCounts) {
	h.mu.Lock()
	h.job.Counts = c
	h.mu.Unlock()
}

// runScan drives one job through every stage. Any ScanError decides
// recoverability; a recoverable error is logged and the stage
// continues with partial results, per spec.md §7's propagation policy.
func (o *Orchestrator) runScan(ctx context.Context, h *jobHandle, req models.ScanRequest) {
	defer close(h.done)
	defer func() {
		h.mu.Lock()
		if h.job.Status.IsTerminal() {
			now := time.Now()
			h.job.EndTime = &now
		}
		h.mu.Unlock()
	}()

	fail := func(err error) {
		h.mu.Lock()
		h.job.ErrorMessage = err.Error()
		h.mu.Unlock()
		_ = h.transition("fail")
	}

	// progress records an intra-stage progress value and publishes it as
	// a ScanEvent for the job's current status.
	progress := func(p int) {
		h.setProgress(p)
		h.mu.Lock()
		evt := models.ScanEvent{JobID: h.job.ID, Status: h.job.Status, Progress: p, Timestamp: time.Now(), CurrentOperation: string(h.job.Status)}
		h.mu.Unlock()
		o.bus.Publish(evt)
		if o.deps.ExternalSink != nil {
			o.deps.ExternalSink.Publish(evt)
		}
	}

	if err := h.transition("extract"); err != nil {
		fail(err)
		return
	}
	h.setProgress(10)

	conn, err := o.deps.ConnectorFactory(ctx, req.ConnectionID)
	if err != nil {
		fail(piierrors.Connectivity("failed to obtain connector", err))
		return
	}
	defer conn.Close()

	schema, err := o.deps.MetadataExtractor.ExtractSchema(ctx, conn, req.IncludedSchemas, req.IncludedTables, req.ExcludedTables)
	if err != nil {
		fail(piierrors.Connectivity("failed to extract schema", err))
		return
	}

	columns := collectColumns(schema)
	h.setCounts(models.ScanCounts{Tables: len(schema.Tables()), Columns: len(columns)})

	if ctx.Err() != nil {
		_ = h.transition("cancel")
		return
	}

	productName, err := conn.ProductName(ctx)
	if err != nil {
		fail(piierrors.Connectivity("failed to determine database product", err))
		return
	}
	d, err := dialect.Resolve(productName)
	if err != nil {
		fail(err)
		return
	}

	if err := h.transition("sample"); err != nil {
		fail(err)
		return
	}
	h.setProgress(20)

	sampleSize := req.MaxSampleSize
	if sampleSize <= 0 {
		sampleSize = o.samplingCfg.DefaultSize
	}
	smp := sampler.New(d, o.samplingCfg.MaxConcurrentDbQueries, sampleSize, o.samplingCfg.EntropyCalculationEnabled)
	sampleResults := smp.SampleColumns(ctx, conn, columns, sampleSize, func(done, total int) {
		progress(20 + progressWithinStage(done, total, 30))
	})

	if ctx.Err() != nil {
		_ = h.transition("cancel")
		return
	}

	samples := make(map[*models.Column]*models.SampleData, len(sampleResults))
	for col, r := range sampleResults {
		if r.Err != nil {
			o.log.WithField("column", col.QualifiedName()).Warnf("sampling failed: %v", r.Err)
			continue
		}
		samples[col] = r.Data
	}
	h.setProgress(50)

	if err := h.transition("detect"); err != nil {
		fail(err)
		return
	}

	pipeline := o.buildPipeline()
	detectionResults := pipeline.Run(ctx, samples, req.Strategies, func(done, total int) {
		progress(50 + progressWithinStage(done, total, 30))
	})

	if ctx.Err() != nil {
		_ = h.transition("cancel")
		return
	}

	resultList := make([]*models.DetectionResult, 0, len(detectionResults))
	piiCount := 0
	for _, r := range detectionResults {
		resultList = append(resultList, r)
		if r.HasPii() {
			piiCount++
		}
	}
	h.setCounts(models.ScanCounts{Tables: len(schema.Tables()), Columns: len(columns), Pii: piiCount})
	h.setProgress(80)

	if err := h.transition("analyze"); err != nil {
		fail(err)
		return
	}

	analyzer := correlation.New(o.qiCfg)
	groups := analyzer.Analyze(ctx, resultList, samples)

	if ctx.Err() != nil {
		_ = h.transition("cancel")
		return
	}

	if err := h.transition("report"); err != nil {
		fail(err)
		return
	}
	h.setProgress(90)

	assessor, err := risk.New()
	if err != nil {
		fail(piierrors.Fatal("failed to build risk assessor", err))
		return
	}
	riskAssessment := assessor.Assess(resultList, samples, groups)

	rep := report.Build(h.job.ID, req.ConnectionID, time.Now(), h.job.Counts, resultList, groups, riskAssessment)

	h.mu.Lock()
	h.report = rep
	h.mu.Unlock()

	if o.deps.Store != nil {
		if err := o.deps.Store.IndexReport(ctx, rep); err != nil {
			o.log.WithField("jobId", h.job.ID).Warnf("indexing report failed: %v", err)
		}
	}

	if err := h.transition("complete"); err != nil {
		fail(err)
		return
	}
	h.setProgress(100)
}

func collectColumns(schema *models.Schema) []*models.Column {
	var columns []*models.Column
	for _, t := range schema.Tables() {
		columns = append(columns, t.Columns...)
	}
	return columns
}

func (o *Orchestrator) buildPipeline() *detection.Pipeline {
	heuristic, err := strategies.NewHeuristicStrategy()
	if err != nil {
		o.log.Warnf("heuristic strategy unavailable: %v", err)
		heuristic = nil
	}
	regex := strategies.NewRegexStrategy(patterns.Default())
	qi := strategies.NewQIStrategy(o.detectionCfg.LowCardinalityThreshold, o.detectionCfg.HighCardinalityThreshold)

	var nerStrategy strategies.Strategy
	if o.deps.NerClient != nil {
		nerStrategy = strategies.NewNERStrategy(o.deps.NerClient, o.detectionCfg.MaxNerSamples)
	}

	var heuristicStrategy strategies.Strategy
	if heuristic != nil {
		heuristicStrategy = heuristic
	}

	return detection.New(heuristicStrategy, regex, nerStrategy, qi, detection.Thresholds{
		Heuristic:            o.detectionCfg.HeuristicThreshold,
		Regex:                o.detectionCfg.RegexThreshold,
		NER:                  o.detectionCfg.NerThreshold,
		Reporting:            o.detectionCfg.ReportingThreshold,
		StopOnHighConfidence: o.detectionCfg.StopPipelineOnHighConfidence,
	})
}
