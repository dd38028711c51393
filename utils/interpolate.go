// SPDX-License-Identifier: EPL-2.0

package utils

// CubicInterpolate performs cubic interpolation
// x is the fractional position between y1 and y2 (0 <= x <= 1)
// y0, y1, y2, y3 are four consecutive samples
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	// Catmull-Rom spline interpolation
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

// CubicInterpolateAt samples data at the fractional frame position pos using
// cubic interpolation. Positions outside [0, len(data)) read as 0, so grain
// edges fade to silence instead of repeating the boundary sample.
func CubicInterpolateAt(data []float32, pos float64) float32 {
	if len(data) == 0 {
		return 0
	}

	i := int(pos)
	if pos < 0 || i >= len(data) {
		return 0
	}
	frac := float32(pos - float64(i))

	at := func(idx int) float32 {
		if idx < 0 || idx >= len(data) {
			return 0
		}
		return data[idx]
	}

	return CubicInterpolate(at(i-1), at(i), at(i+1), at(i+2), frac)
}
