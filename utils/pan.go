// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// EqualPowerGains maps a pan position in [-1, 1] (hard left to hard right)
// to left/right channel gains on a quarter-circle, keeping perceived
// loudness constant across the pan range. Pan 0 yields ~0.707 on both sides.
func EqualPowerGains(pan float32) (left, right float32) {
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}

	angle := float64(pan+1) * 0.25 * math.Pi
	return float32(math.Cos(angle)), float32(math.Sin(angle))
}
