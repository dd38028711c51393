// SPDX-License-Identifier: EPL-2.0

// Package aiff wraps go-audio/aiff behind the engine's TrackSource
// interface. Only 16-bit PCM files are supported. The underlying decoder is
// forward-only, so Seek reopens the file and skips linearly to the target
// frame.
package aiff
