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

// Package correlation implements the QI Correlation Analyzer (spec.md
// §4.5): a categorical pairwise-association pass (a Cramér's V proxy)
// over columns already flagged as quasi-identifiers, followed by
// connected-component grouping.
package correlation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// Config bundles the thresholds and bounds §4.5 names.
type Config struct {
	MinCorrelationCoefficient      float64
	MaxCorrelationColumnsToAnalyze int
	MinGroupSize                   int
	MaxGroupSize                   int
}

// Analyzer runs the pairwise-association and grouping pass.
type Analyzer struct {
	cfg   Config
	cache sync.Map // unordered column-pair key -> float64 association
}

// New builds an Analyzer with the given configuration.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze filters results down to the QI-bearing ones, scores every
// pair, and returns the correlated QuasiIdentifierGroups. samples must
// contain the SampleData used to produce results so pairwise values can
// be aligned by index.
func (a *Analyzer) Analyze(ctx context.Context, results []*models.DetectionResult, samples map[*models.Column]*models.SampleData) []*models.QuasiIdentifierGroup {
	qiResults := make([]*models.DetectionResult, 0, len(results))
	for _, r := range results {
		if r.HasQuasiIdentifier() {
			qiResults = append(qiResults, r)
		}
	}
	if len(qiResults) < 2 {
		return nil
	}

	if len(qiResults) > a.cfg.MaxCorrelationColumnsToAnalyze {
		sort.Slice(qiResults, func(i, j int) bool {
			return qiResults[i].HighestConfidenceScore > qiResults[j].HighestConfidenceScore
		})
		qiResults = qiResults[:a.cfg.MaxCorrelationColumnsToAnalyze]
	}

	columns := make([]*models.Column, 0, len(qiResults))
	for _, r := range qiResults {
		columns = append(columns, r.ColumnRef)
	}

	edges := make(map[string]*models.ColumnAssociation)
	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			if ctx.Err() != nil {
				return nil
			}
			colA, colB := columns[i], columns[j]
			assoc, ok := a.pairwiseAssociation(colA, colB, samples[colA], samples[colB])
			if !ok || assoc < a.cfg.MinCorrelationCoefficient {
				continue
			}
			edges[pairKey(colA, colB)] = &models.ColumnAssociation{ColumnA: colA, ColumnB: colB, Association: assoc}
		}
	}

	return a.formGroups(columns, edges)
}

// pairwiseAssociation computes the categorical association proxy of
// spec.md §4.5 between two columns' samples. ok is false when the pair
// should be skipped (too few aligned values, or either column fully
// unique).
func (a *Analyzer) pairwiseAssociation(colA, colB *models.Column, sampleA, sampleB *models.SampleData) (float64, bool) {
	key := pairKey(colA, colB)
	if cached, found := a.cache.Load(key); found {
		return cached.(float64), true
	}

	if sampleA == nil || sampleB == nil {
		return 0, false
	}

	n := len(sampleA.Samples)
	if len(sampleB.Samples) < n {
		n = len(sampleB.Samples)
	}
	if n < 10 {
		return 0, false
	}

	if sampleA.DistinctCount() == sampleA.TotalCount || sampleB.DistinctCount() == sampleB.TotalCount {
		return 0, false
	}

	cooccurrence := make(map[interface{}]map[interface{}]struct{})
	distinctB := make(map[interface{}]struct{})
	for i := 0; i < n; i++ {
		vA := canonical(sampleA.Samples[i])
		vB := canonical(sampleB.Samples[i])
		distinctB[vB] = struct{}{}
		set, ok := cooccurrence[vA]
		if !ok {
			set = make(map[interface{}]struct{})
			cooccurrence[vA] = set
		}
		set[vB] = struct{}{}
	}

	if len(distinctB) == 0 {
		return 0, false
	}

	var sumDistinct float64
	for _, set := range cooccurrence {
		sumDistinct += float64(len(set))
	}
	avgDistinctPerValue := sumDistinct / float64(len(cooccurrence))

	assoc := 1 - avgDistinctPerValue/float64(len(distinctB))
	if assoc < 0 {
		assoc = 0
	}
	if assoc > 1 {
		assoc = 1
	}

	a.cache.Store(key, assoc)
	return assoc, true
}

func canonical(v interface{}) interface{} {
	if models.IsNull(v) {
		return "null"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func pairKey(a, b *models.Column) string {
	if a.QualifiedName() <= b.QualifiedName() {
		return a.QualifiedName() + "~" + b.QualifiedName()
	}
	return b.QualifiedName() + "~" + a.QualifiedName()
}

// formGroups builds an undirected graph from the correlated edges and
// enumerates connected components whose size falls within
// [MinGroupSize, MaxGroupSize], scoring each by its mean pairwise
// association.
func (a *Analyzer) formGroups(columns []*models.Column, edges map[string]*models.ColumnAssociation) []*models.QuasiIdentifierGroup {
	adjacency := make(map[*models.Column][]*models.ColumnAssociation)
	for _, e := range edges {
		adjacency[e.ColumnA] = append(adjacency[e.ColumnA], e)
		adjacency[e.ColumnB] = append(adjacency[e.ColumnB], e)
	}

	visited := make(map[*models.Column]bool)
	var groups []*models.QuasiIdentifierGroup
	groupIdx := 0

	for _, col := range columns {
		if visited[col] || len(adjacency[col]) == 0 {
			continue
		}
		members := []*models.Column{}
		var componentEdges []*models.ColumnAssociation
		queue := []*models.Column{col}
		visited[col] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			members = append(members, cur)
			for _, e := range adjacency[cur] {
				componentEdges = append(componentEdges, e)
				other := e.ColumnB
				if other == cur {
					other = e.ColumnA
				}
				if !visited[other] {
					visited[other] = true
					queue = append(queue, other)
				}
			}
		}

		if len(members) < a.cfg.MinGroupSize || len(members) > a.cfg.MaxGroupSize {
			continue
		}

		groupIdx++
		groups = append(groups, &models.QuasiIdentifierGroup{
			ID:        fmt.Sprintf("qig-%d", groupIdx),
			Columns:   members,
			RiskScore: meanAssociation(componentEdges),
		})
	}
	return groups
}

func meanAssociation(edges []*models.ColumnAssociation) float64 {
	if len(edges) == 0 {
		return 0
	}
	seen := make(map[*models.ColumnAssociation]bool, len(edges))
	var sum float64
	var count int
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		sum += e.Association
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
