package models

import "time"

// ScanStatus is a state of the scan job state machine (spec.md §4.7).
// Only the transitions enumerated in orchestrator.validTransitions are
// legal; COMPLETED/FAILED/CANCELLED are terminal.
type ScanStatus string

const (
	StatusPending            ScanStatus = "PENDING"
	StatusExtractingMetadata ScanStatus = "EXTRACTING_METADATA"
	StatusSampling           ScanStatus = "SAMPLING"
	StatusDetectingPII       ScanStatus = "DETECTING_PII"
	StatusAnalyzingQI        ScanStatus = "ANALYZING_QI"
	StatusGeneratingReport   ScanStatus = "GENERATING_REPORT"
	StatusCompleted          ScanStatus = "COMPLETED"
	StatusFailed             ScanStatus = "FAILED"
	StatusCancelled          ScanStatus = "CANCELLED"
)

// IsTerminal reports whether the status is one a scan cannot leave.
func (s ScanStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ScanCounts tallies the tables/columns/candidate-PII seen so far,
// surfaced on ScanJob for progress reporting and on the final Report.
type ScanCounts struct {
	Tables  int
	Columns int
	Pii     int
}

// ScanJob is the orchestrator's view of one in-flight or completed
// scan. Owned exclusively by the orchestrator for the scan's duration.
type ScanJob struct {
	ID           string
	ConnectionID string
	StartTime    time.Time
	EndTime      *time.Time
	Status       ScanStatus
	Progress     int // monotonic, [0,100]
	ErrorMessage string
	Counts       ScanCounts
}

// ScanEvent is published on the orchestrator's broadcast channel at
// every state transition and at intra-stage progress updates.
type ScanEvent struct {
	JobID            string
	Status           ScanStatus
	Progress         int
	Timestamp        time.Time
	CurrentOperation string
	ErrorMessage     string
}

// SamplingMethod is a ScanRequest's requested sampling strategy.
type SamplingMethod string

const (
	SamplingRandom     SamplingMethod = "RANDOM"
	SamplingFirstN     SamplingMethod = "FIRST_N"
	SamplingStratified SamplingMethod = "STRATIFIED"
)

// ScanRequest is the caller-supplied description of what to scan and
// how aggressively to detect PII/QI within it.
type ScanRequest struct {
	ConnectionID        string
	IncludedSchemas     []string
	IncludedTables      []string
	ExcludedTables      []string
	MaxSampleSize       int
	SamplingMethod      SamplingMethod
	ConfidenceThreshold float64
	Strategies          []StrategyName
}
