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

// Package detection implements the Detection Pipeline (spec.md §4.4):
// a fixed-order run of HEURISTIC → REGEX → NER over each column, with
// conflict resolution and threshold filtering once every strategy that
// ran has contributed. Columns are scored in parallel; per column, the
// strategy order is always sequential.
package detection

import (
	"context"
	"sync/atomic"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/sourcegraph/conc/pool"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
	"github.com/pii-scanner/pii-scanner/internal/detection/strategies"
)

// Thresholds bundles the per-strategy confidence gates that drive
// stop-on-high-confidence and the final reporting filter.
type Thresholds struct {
	Heuristic            float64
	Regex                float64
	NER                  float64
	Reporting            float64
	StopOnHighConfidence bool
}

// Pipeline runs the fixed HEURISTIC → REGEX → NER order over each
// column and reduces the results to a DetectionResult.
type Pipeline struct {
	heuristic strategies.Strategy
	regex     strategies.Strategy
	ner       strategies.Strategy
	qi        strategies.Strategy
	thresh    Thresholds
	log       logger.Logger
}

// New builds a Pipeline. Any of the strategy arguments may be nil to
// run with a reduced set (e.g. a host with no NER backend configured);
// a nil strategy is simply skipped.
func New(heuristic, regex, ner, qi strategies.Strategy, thresh Thresholds) *Pipeline {
	return &Pipeline{
		heuristic: heuristic,
		regex:     regex,
		ner:       ner,
		qi:        qi,
		thresh:    thresh,
		log:       logger.NewLogger("detection.pipeline"),
	}
}

// Run scores every column in samples concurrently and returns one
// DetectionResult per column, keyed by the column pointer identity.
// requestedStrategies restricts which strategy families run, per
// ScanRequest.Strategies; an empty set runs all configured strategies.
// onProgress, if non-nil, is called once per scored column with the
// running count and the total, so a caller can report intra-stage
// progress; it may be called from multiple goroutines concurrently.
func (p *Pipeline) Run(ctx context.Context, samples map[*models.Column]*models.SampleData, requestedStrategies []models.StrategyName, onProgress func(done, total int)) map[*models.Column]*models.DetectionResult {
	allowed := strategySet(requestedStrategies)

	results := make(map[*models.Column]*models.DetectionResult, len(samples))
	resultsCh := make(chan *models.DetectionResult, len(samples))

	var done int64
	total := len(samples)
	wp := pool.New().WithMaxGoroutines(workerPoolSize())
	for col, sample := range samples {
		col, sample := col, sample
		wp.Go(func() {
			resultsCh <- p.scoreColumn(ctx, col, sample, allowed)
			if onProgress != nil {
				onProgress(int(atomic.AddInt64(&done, 1)), total)
			}
		})
	}
	wp.Wait()
	close(resultsCh)

	for r := range resultsCh {
		results[r.ColumnRef] = r
	}
	return results
}

func strategySet(names []models.StrategyName) map[models.StrategyName]bool {
	set := make(map[models.StrategyName]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// scoreColumn runs the fixed strategy order for one column. Failure of
// an unexpected kind aborts just that column with an empty result
// rather than the whole scan (spec.md §4.4).
func (p *Pipeline) scoreColumn(ctx context.Context, col *models.Column, sample *models.SampleData, allowed map[models.StrategyName]bool) (result *models.DetectionResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("column", col.QualifiedName()).Errorf("detection panicked: %v", r)
			result = &models.DetectionResult{ColumnRef: col}
		}
	}()
	result = &models.DetectionResult{ColumnRef: col}

	type step struct {
		name      models.StrategyName
		strategy  strategies.Strategy
		threshold float64
	}
	steps := []step{
		{models.StrategyHeuristic, p.heuristic, p.thresh.Heuristic},
		{models.StrategyRegex, p.regex, p.thresh.Regex},
		{models.StrategyNER, p.ner, p.thresh.NER},
	}

	for _, s := range steps {
		if ctx.Err() != nil {
			break
		}
		if s.strategy == nil {
			continue
		}
		if len(allowed) > 0 && !allowed[s.name] {
			continue
		}

		candidates, err := s.strategy.Detect(ctx, col, sample)
		if err != nil {
			p.log.WithField("column", col.QualifiedName()).Warnf("%s strategy failed: %v", s.name, err)
			continue
		}
		result.Candidates = append(result.Candidates, candidates...)

		if p.thresh.StopOnHighConfidence && hasConfidenceAtLeast(candidates, s.threshold) {
			break
		}
	}

	if p.qi != nil && (len(allowed) == 0 || allowed[models.StrategyQI]) && ctx.Err() == nil {
		if candidates, err := p.qi.Detect(ctx, col, sample); err != nil {
			p.log.WithField("column", col.QualifiedName()).Warnf("QI strategy failed: %v", err)
		} else {
			result.Candidates = append(result.Candidates, candidates...)
		}
	}

	result.ResolveConflicts()
	result.FilterByThreshold(p.thresh.Reporting)
	result.Derive()
	return result
}

func hasConfidenceAtLeast(candidates []models.PiiCandidate, threshold float64) bool {
	for _, c := range candidates {
		if c.Confidence >= threshold {
			return true
		}
	}
	return false
}

func workerPoolSize() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = 4
	}
	return 2 * n
}
