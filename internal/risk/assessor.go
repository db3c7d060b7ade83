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

// Package risk implements the Risk Assessor (spec.md §4.6): k-anonymity
// over each table's quasi-identifier columns, per-column distinct-ratio
// risk, and a deterministic recommendation list.
package risk

import (
	"fmt"
	"sort"

	"github.com/Knetic/govaluate"

	"github.com/pii-scanner/pii-scanner/internal/common/logger"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// Assessor computes the aggregate RiskAssessment for a completed scan.
type Assessor struct {
	recommendationRules []recommendationRule
	log                 logger.Logger
}

type recommendationRule struct {
	expression *govaluate.EvaluableExpression
	message    string
}

// New builds an Assessor with the built-in recommendation rule table.
func New() (*Assessor, error) {
	a := &Assessor{log: logger.NewLogger("risk.assessor")}
	for _, raw := range builtinRecommendationRules {
		expr, err := govaluate.NewEvaluableExpression(raw.condition)
		if err != nil {
			return nil, fmt.Errorf("compiling recommendation rule %q: %w", raw.condition, err)
		}
		a.recommendationRules = append(a.recommendationRules, recommendationRule{expression: expr, message: raw.message})
	}
	return a, nil
}

type rawRecommendationRule struct {
	condition string
	message   string
}

var builtinRecommendationRules = []rawRecommendationRule{
	{"overallRisk >= 3", "Critical re-identification risk: restrict direct access to these tables and consider de-identification before any export."},
	{"overallRisk == 2", "High re-identification risk: apply row-level access controls and audit logging on the flagged tables."},
	{"overallRisk == 1", "Medium re-identification risk: review retention policy and consider column-level masking for sensitive fields."},
	{"overallRisk == 0 && piiCount > 0", "Low re-identification risk: continue periodic re-scans as schema evolves."},
	{"hasCorrelatedGroups == true", "Correlated quasi-identifier columns were found: consider an l-diversity or t-closeness control in addition to k-anonymity, since a uniform sensitive value within an equivalence class still leaks information."},
}

var riskScore = map[models.TableRisk]int{
	models.RiskLow:      0,
	models.RiskMedium:   1,
	models.RiskHigh:     2,
	models.RiskCritical: 3,
}

// Assess computes k-anonymity and risk for each table that has at
// least one QI column, plus column-level risk for every surviving
// PII/QI candidate, and rolls both up into an overall RiskAssessment.
func (a *Assessor) Assess(results []*models.DetectionResult, samples map[*models.Column]*models.SampleData, groups []*models.QuasiIdentifierGroup) models.RiskAssessment {
	tableQIColumns := groupQIColumnsByTable(results)

	var tableRisks []models.TableRiskAssessment
	overall := models.RiskLow
	for table, qiCols := range tableQIColumns {
		k := kAnonymity(qiCols, samples)
		level := kToRisk(k)
		tableRisks = append(tableRisks, models.TableRiskAssessment{
			Table:      table,
			KAnonymity: k,
			Risk:       level,
			QIColumns:  qiCols,
		})
		if level.Greater(overall) {
			overall = level
		}
	}
	sort.Slice(tableRisks, func(i, j int) bool { return tableRisks[i].Table.QualifiedName() < tableRisks[j].Table.QualifiedName() })

	var columnRisks []models.ColumnRiskAssessment
	piiCount := 0
	for _, r := range results {
		if !r.HasPii() {
			continue
		}
		piiCount++
		sample := samples[r.ColumnRef]
		if sample == nil {
			continue
		}
		ratio := sample.DistinctRatio()
		level := columnRisk(ratio, r.HighestConfidenceScore)
		columnRisks = append(columnRisks, models.ColumnRiskAssessment{
			Column:        r.ColumnRef,
			DistinctRatio: ratio,
			Confidence:    r.HighestConfidenceScore,
			Risk:          level,
		})
		if level.Greater(overall) {
			overall = level
		}
	}
	sort.Slice(columnRisks, func(i, j int) bool { return columnRisks[i].Column.QualifiedName() < columnRisks[j].Column.QualifiedName() })

	recs := a.recommendations(overall, piiCount, len(groups) > 0)

	return models.RiskAssessment{
		OverallRisk:     overall,
		TableRisks:      tableRisks,
		ColumnRisks:     columnRisks,
		Recommendations: recs,
	}
}

func (a *Assessor) recommendations(overall models.TableRisk, piiCount int, hasCorrelatedGroups bool) []string {
	env := map[string]interface{}{
		"overallRisk":         riskScore[overall],
		"piiCount":            piiCount,
		"hasCorrelatedGroups": hasCorrelatedGroups,
	}
	var recs []string
	for _, rule := range a.recommendationRules {
		result, err := rule.expression.Evaluate(env)
		if err != nil {
			a.log.Warnf("recommendation rule evaluation failed: %v", err)
			continue
		}
		if matched, ok := result.(bool); ok && matched {
			recs = append(recs, rule.message)
		}
	}
	return recs
}

func groupQIColumnsByTable(results []*models.DetectionResult) map[*models.Table][]*models.Column {
	byTable := make(map[*models.Table][]*models.Column)
	for _, r := range results {
		if !r.HasQuasiIdentifier() {
			continue
		}
		table := r.ColumnRef.TableRef
		byTable[table] = append(byTable[table], r.ColumnRef)
	}
	return byTable
}

// kAnonymity builds a row signature per row index by concatenating the
// QI columns' values (null -> "NULL", separator "|") and returns the
// minimum equivalence-class size. A table with zero rows has no
// equivalence classes and is treated as InfiniteK.
func kAnonymity(qiCols []*models.Column, samples map[*models.Column]*models.SampleData) int64 {
	if len(qiCols) == 0 {
		return models.InfiniteK
	}

	minLen := -1
	for _, c := range qiCols {
		s := samples[c]
		if s == nil {
			return models.InfiniteK
		}
		if minLen == -1 || len(s.Samples) < minLen {
			minLen = len(s.Samples)
		}
	}
	if minLen <= 0 {
		return models.InfiniteK
	}

	classSize := make(map[string]int64, minLen)
	for i := 0; i < minLen; i++ {
		sig := ""
		for j, c := range qiCols {
			if j > 0 {
				sig += "|"
			}
			v := samples[c].Samples[i]
			if models.IsNull(v) {
				sig += "NULL"
			} else {
				sig += fmt.Sprintf("%v", v)
			}
		}
		classSize[sig]++
	}

	var k int64 = -1
	for _, size := range classSize {
		if k == -1 || size < k {
			k = size
		}
	}
	if k == -1 {
		return models.InfiniteK
	}
	return k
}

func kToRisk(k int64) models.TableRisk {
	switch {
	case k <= 1:
		return models.RiskCritical
	case k <= 5:
		return models.RiskHigh
	case k <= 15:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func columnRisk(distinctRatio, confidence float64) models.TableRisk {
	switch {
	case distinctRatio >= 0.9 && confidence >= 0.8:
		return models.RiskCritical
	case distinctRatio >= 0.7 && confidence >= 0.7:
		return models.RiskHigh
	case (distinctRatio >= 0.5 && confidence >= 0.6) || (distinctRatio >= 0.3 && confidence >= 0.8):
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
