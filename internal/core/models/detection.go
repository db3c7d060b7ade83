package models

import "sort"

// StrategyName is the stable, closed set of detection strategy
// identifiers. Order below also fixes HEURISTIC > REGEX > NER priority
// used to break confidence ties during conflict resolution.
type StrategyName string

const (
	StrategyHeuristic StrategyName = "HEURISTIC"
	StrategyRegex     StrategyName = "REGEX"
	StrategyNER       StrategyName = "NER"
	StrategyQI        StrategyName = "QUASI_IDENTIFIER"
)

// strategyPriority ranks strategies for tie-breaking: lower is higher
// priority. QI candidates never compete with the PII-family strategies
// on piiType (their types are QI-specific), so it is ranked after NER
// only for completeness of the total order.
var strategyPriority = map[StrategyName]int{
	StrategyHeuristic: 0,
	StrategyRegex:     1,
	StrategyNER:       2,
	StrategyQI:        3,
}

// PiiCandidate is one strategy's evidence that a column holds a
// particular kind of PII or QI.
type PiiCandidate struct {
	ColumnRef  *Column
	PiiType    string
	Confidence float64
	Strategy   StrategyName
	Evidence   string
}

// DetectionResult is the scored outcome of running the detection
// pipeline over one column: every surviving candidate plus the derived
// summary fields.
type DetectionResult struct {
	ColumnRef              *Column
	Candidates             []PiiCandidate
	HighestConfidenceType  string
	HighestConfidenceScore float64
	DetectionMethods       []StrategyName
}

// HasPii reports whether any candidate exists. The pipeline runs
// FilterByThreshold before it returns a DetectionResult, so on a
// pipeline result a non-empty Candidates means at least one candidate
// passed the reporting threshold.
func (d *DetectionResult) HasPii() bool {
	return len(d.Candidates) > 0
}

// HasQuasiIdentifier reports whether any surviving candidate came from
// the QI strategy family.
func (d *DetectionResult) HasQuasiIdentifier() bool {
	for _, c := range d.Candidates {
		if c.Strategy == StrategyQI {
			return true
		}
	}
	return false
}

// Derive (re)computes HighestConfidenceType/Score and DetectionMethods
// from the current Candidates slice. Called after conflict resolution
// and threshold filtering so the derived fields always reflect the
// final surviving set.
func (d *DetectionResult) Derive() {
	d.HighestConfidenceType = ""
	d.HighestConfidenceScore = 0
	methodSet := make(map[StrategyName]struct{}, len(d.Candidates))

	best := -1.0
	for _, c := range d.Candidates {
		methodSet[c.Strategy] = struct{}{}
		if c.Confidence > best {
			best = c.Confidence
			d.HighestConfidenceType = c.PiiType
			d.HighestConfidenceScore = c.Confidence
		}
	}

	methods := make([]StrategyName, 0, len(methodSet))
	for m := range methodSet {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	d.DetectionMethods = methods
}

// ResolveConflicts groups candidates by PiiType, keeping only the
// highest-confidence one per type. Ties are broken by strategy
// priority (HEURISTIC > REGEX > NER > QI), then by lexicographic
// strategy name. The result replaces d.Candidates; call Derive
// afterwards to refresh the summary fields.
func (d *DetectionResult) ResolveConflicts() {
	best := make(map[string]PiiCandidate, len(d.Candidates))
	for _, c := range d.Candidates {
		existing, ok := best[c.PiiType]
		if !ok || isBetterCandidate(c, existing) {
			best[c.PiiType] = c
		}
	}

	resolved := make([]PiiCandidate, 0, len(best))
	for _, c := range best {
		resolved = append(resolved, c)
	}
	sort.Slice(resolved, func(i, j int) bool {
		if resolved[i].Confidence != resolved[j].Confidence {
			return resolved[i].Confidence > resolved[j].Confidence
		}
		return resolved[i].PiiType < resolved[j].PiiType
	})
	d.Candidates = resolved
}

// isBetterCandidate reports whether candidate a should win over b when
// they share a PiiType.
func isBetterCandidate(a, b PiiCandidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	pa, pb := strategyPriority[a.Strategy], strategyPriority[b.Strategy]
	if pa != pb {
		return pa < pb
	}
	return a.Strategy < b.Strategy
}

// FilterByThreshold drops every candidate whose confidence is below
// reportingThreshold. Call after ResolveConflicts, before Derive.
func (d *DetectionResult) FilterByThreshold(reportingThreshold float64) {
	kept := d.Candidates[:0:0]
	for _, c := range d.Candidates {
		if c.Confidence >= reportingThreshold {
			kept = append(kept, c)
		}
	}
	d.Candidates = kept
}
