// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 converts a normalized float sample to 16-bit PCM. The
// scale matches Int16ToFloat32, so a round trip stays within one LSB;
// +1.0 saturates at 32767.
func Float32ToInt16(x float32) int16 {
	v := x * 32768.0
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Int16ToFloat32 converts a 16-bit PCM sample to the normalized [-1, 1) range.
func Int16ToFloat32(v int16) float32 {
	return float32(v) / 32768.0
}

// Clamp limits x to the [-1, 1] range.
func Clamp(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
