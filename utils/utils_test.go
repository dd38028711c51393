// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestCubicInterpolate_HitsKnots(t *testing.T) {
	t.Parallel()

	// At x=0 the spline passes through y1; at x=1 through y2.
	if got := CubicInterpolate(0.1, 0.4, 0.8, 0.2, 0); got != 0.4 {
		t.Errorf("CubicInterpolate(..., 0) = %v, want 0.4", got)
	}
	got := CubicInterpolate(0.1, 0.4, 0.8, 0.2, 1)
	if math.Abs(float64(got)-0.8) > 1e-6 {
		t.Errorf("CubicInterpolate(..., 1) = %v, want 0.8", got)
	}
}

func TestCubicInterpolate_LinearSignal(t *testing.T) {
	t.Parallel()

	// On a straight line the spline reproduces the line.
	got := CubicInterpolate(1, 2, 3, 4, 0.5)
	if math.Abs(float64(got)-2.5) > 1e-6 {
		t.Errorf("CubicInterpolate(line, 0.5) = %v, want 2.5", got)
	}
}

func TestCubicInterpolateAt(t *testing.T) {
	t.Parallel()

	data := []float32{0, 1, 2, 3, 4, 5}

	if got := CubicInterpolateAt(data, 2); got != 2 {
		t.Errorf("CubicInterpolateAt(data, 2) = %v, want 2", got)
	}
	got := CubicInterpolateAt(data, 2.5)
	if math.Abs(float64(got)-2.5) > 1e-6 {
		t.Errorf("CubicInterpolateAt(data, 2.5) = %v, want 2.5", got)
	}

	if got := CubicInterpolateAt(data, -0.5); got != 0 {
		t.Errorf("CubicInterpolateAt(data, -0.5) = %v, want 0", got)
	}
	if got := CubicInterpolateAt(data, 100); got != 0 {
		t.Errorf("CubicInterpolateAt(data, 100) = %v, want 0", got)
	}
	if got := CubicInterpolateAt(nil, 0); got != 0 {
		t.Errorf("CubicInterpolateAt(nil, 0) = %v, want 0", got)
	}
}

func TestFloat32Int16RoundTrip(t *testing.T) {
	t.Parallel()

	for _, x := range []float32{-1, -0.5, 0, 0.25, 0.9999, 1} {
		back := Int16ToFloat32(Float32ToInt16(x))
		if math.Abs(float64(back-x)) > 1.0/32767 {
			t.Errorf("round trip %v -> %v, want within one LSB", x, back)
		}
	}

	// Out-of-range input clamps instead of overflowing.
	if got := Float32ToInt16(2); got != 32767 {
		t.Errorf("Float32ToInt16(2) = %d, want 32767", got)
	}
	if got := Float32ToInt16(-2); got != -32768 {
		t.Errorf("Float32ToInt16(-2) = %d, want -32768", got)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want float32
	}{
		{0.5, 0.5},
		{1.5, 1},
		{-1.5, -1},
		{1, 1},
		{-1, -1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEqualPowerGains(t *testing.T) {
	t.Parallel()

	left, right := EqualPowerGains(-1)
	if left != 1 || math.Abs(float64(right)) > 1e-6 {
		t.Errorf("EqualPowerGains(-1) = (%v, %v), want (1, 0)", left, right)
	}

	left, right = EqualPowerGains(1)
	if math.Abs(float64(left)) > 1e-6 || math.Abs(float64(right)-1) > 1e-6 {
		t.Errorf("EqualPowerGains(1) = (%v, %v), want (0, 1)", left, right)
	}

	left, right = EqualPowerGains(0)
	if math.Abs(float64(left)-math.Sqrt2/2) > 1e-6 || math.Abs(float64(right)-math.Sqrt2/2) > 1e-6 {
		t.Errorf("EqualPowerGains(0) = (%v, %v), want (0.707, 0.707)", left, right)
	}

	// Power sum stays constant across the range.
	for pan := float32(-1); pan <= 1; pan += 0.125 {
		l, r := EqualPowerGains(pan)
		sum := float64(l)*float64(l) + float64(r)*float64(r)
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("gain power at pan %v = %v, want 1", pan, sum)
		}
	}
}

func TestHannWindow(t *testing.T) {
	t.Parallel()

	w := HannWindow(1024)
	if len(w) != 1024 {
		t.Fatalf("len = %d, want 1024", len(w))
	}
	if w[0] > 1e-6 || w[1023] > 1e-6 {
		t.Errorf("endpoints = (%v, %v), want ≈0", w[0], w[1023])
	}
	if math.Abs(float64(w[512])-1) > 1e-3 {
		t.Errorf("midpoint = %v, want ≈1", w[512])
	}

	if got := HannWindow(1); got[0] != 1 {
		t.Errorf("HannWindow(1) = %v, want [1]", got)
	}
}
