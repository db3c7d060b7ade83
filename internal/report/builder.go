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

// Package report implements the Report Builder (spec.md's C9): it only
// aggregates already-computed results into the neutral Report domain
// record. Turning that record into JSON/CSV/PDF is explicitly out of
// scope; an external collaborator's concern.
package report

import (
	"sort"
	"time"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// Build assembles the final Report for jobID from the pipeline's
// surviving DetectionResults, the correlation analyzer's groups, and
// the risk assessor's aggregate assessment. generatedAt is stamped by
// the caller rather than taken internally, so the builder stays pure.
func Build(jobID, connectionID string, generatedAt time.Time, counts models.ScanCounts, results []*models.DetectionResult, groups []*models.QuasiIdentifierGroup, riskAssessment models.RiskAssessment) *models.Report {
	sorted := make([]*models.DetectionResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ColumnRef.QualifiedName() < sorted[j].ColumnRef.QualifiedName()
	})

	sortedGroups := make([]*models.QuasiIdentifierGroup, len(groups))
	copy(sortedGroups, groups)
	sort.Slice(sortedGroups, func(i, j int) bool { return sortedGroups[i].ID < sortedGroups[j].ID })

	return &models.Report{
		JobID:        jobID,
		ConnectionID: connectionID,
		GeneratedAt:  generatedAt,
		Counts:       counts,
		Results:      sorted,
		Groups:       sortedGroups,
		Risk:         riskAssessment,
	}
}
