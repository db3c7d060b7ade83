package models

import "time"

// TableRisk is a qualitative risk level derived from k-anonymity (§4.6).
type TableRisk string

const (
	RiskLow      TableRisk = "LOW"
	RiskMedium   TableRisk = "MEDIUM"
	RiskHigh     TableRisk = "HIGH"
	RiskCritical TableRisk = "CRITICAL"
)

// riskOrder ranks levels for "overall = max over tables" comparisons.
var riskOrder = map[TableRisk]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Greater reports whether r ranks above other.
func (r TableRisk) Greater(other TableRisk) bool {
	return riskOrder[r] > riskOrder[other]
}

// TableRiskAssessment is the k-anonymity-derived risk for one table.
type TableRiskAssessment struct {
	Table      *Table
	KAnonymity int64
	Risk       TableRisk
	QIColumns  []*Column
}

// ColumnRiskAssessment is the distinct-ratio/confidence-derived risk
// for one column found to carry PII or act as a QI.
type ColumnRiskAssessment struct {
	Column        *Column
	DistinctRatio float64
	Confidence    float64
	Risk          TableRisk
}

// RiskAssessment is the aggregate risk picture for a whole scan.
type RiskAssessment struct {
	OverallRisk     TableRisk
	TableRisks      []TableRiskAssessment
	ColumnRisks     []ColumnRiskAssessment
	Recommendations []string
}

// Report is the neutral, serialization-agnostic record produced by the
// Report Builder. Turning it into JSON/CSV/PDF is an external
// collaborator's concern (Non-goal).
type Report struct {
	JobID        string
	ConnectionID string
	GeneratedAt  time.Time
	Counts       ScanCounts

	Results []*DetectionResult
	Groups  []*QuasiIdentifierGroup
	Risk    RiskAssessment
}
