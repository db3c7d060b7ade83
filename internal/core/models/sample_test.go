package models

import "testing"

func TestSampleDataDistinctCountTreatsNullsAsOneBucket(t *testing.T) {
	s := &SampleData{
		Samples:    []interface{}{"a", "b", "a", NullValue, NullValue},
		TotalCount: 5,
		NullCount:  2,
	}
	if got := s.DistinctCount(); got != 3 {
		t.Errorf("expected 3 distinct buckets (a, b, NULL), got %d", got)
	}
	if got := s.DistinctRatio(); got != 0.6 {
		t.Errorf("expected distinct ratio 3/5=0.6, got %v", got)
	}
}

func TestSampleDataDistinctRatioEmptyIsZero(t *testing.T) {
	s := &SampleData{}
	if got := s.DistinctRatio(); got != 0 {
		t.Errorf("expected 0 for an empty sample, got %v", got)
	}
}

func TestSampleDataNonNullSamplesExcludesNulls(t *testing.T) {
	s := &SampleData{Samples: []interface{}{"x", NullValue, "y"}}
	nn := s.NonNullSamples()
	if len(nn) != 2 {
		t.Fatalf("expected 2 non-null samples, got %d", len(nn))
	}
}

func TestSampleDataComputeEntropyUniformDistribution(t *testing.T) {
	s := &SampleData{Samples: []interface{}{"a", "b", "c", "d"}}
	s.ComputeEntropy()
	if s.Entropy == nil {
		t.Fatal("expected entropy to be computed")
	}
	// 4 equally likely symbols -> 2 bits of entropy exactly.
	if *s.Entropy < 1.999 || *s.Entropy > 2.001 {
		t.Errorf("expected entropy ~2.0 for 4 uniform symbols, got %v", *s.Entropy)
	}
}

func TestSampleDataComputeEntropyConstantColumnIsZero(t *testing.T) {
	s := &SampleData{Samples: []interface{}{"same", "same", "same"}}
	s.ComputeEntropy()
	if s.Entropy == nil || *s.Entropy != 0 {
		t.Errorf("expected 0 entropy for a constant column, got %v", s.Entropy)
	}
}

func TestIsNull(t *testing.T) {
	if !IsNull(NullValue) {
		t.Error("expected NullValue to be recognized as null")
	}
	if IsNull("not null") {
		t.Error("expected a real string not to be recognized as null")
	}
}
