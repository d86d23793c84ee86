package charfunc

import (
	"math"
	"testing"
)

func TestRescale(t *testing.T) {
	tests := []struct {
		name     string
		in       []float64
		lo, hi   float64
		expected []float64
	}{
		{"unit range", []float64{0, 5, 10}, 0, 1, []float64{0, 0.5, 1}},
		{"symmetric range", []float64{2, 4, 6}, -1, 1, []float64{-1, 0, 1}},
		{"negative input", []float64{-4, 0, 4}, 0, 1, []float64{0, 0.5, 1}},
		{"constant input", []float64{3, 3, 3}, 0, 1, []float64{0, 0, 0}},
		{"empty", []float64{}, 0, 1, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rescale(tt.in, tt.lo, tt.hi)
			if len(got) != len(tt.expected) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.expected))
			}
			for i := range got {
				if math.Abs(got[i]-tt.expected[i]) > 1e-12 {
					t.Errorf("index %d: got %f, want %f", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestComputeSquaresBeforeRescale(t *testing.T) {
	in := []float64{-2, 0, 1, 2}
	got := Compute(in)
	want := []float64{1, 0, 0.25, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("index %d: got %f, want %f", i, got[i], want[i])
		}
	}
	if in[0] != -2 {
		t.Error("Compute must not modify its input")
	}
}

func TestComputeRange(t *testing.T) {
	got := ComputeRange([]float64{0, 1, 3}, 10, 19)
	if got[0] != 10 || got[2] != 19 || math.Abs(got[1]-11) > 1e-12 {
		t.Errorf("ComputeRange = %v", got)
	}
}
