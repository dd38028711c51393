// SPDX-License-Identifier: EPL-2.0

// Package mp3 wraps hajimehoshi/go-mp3 behind the engine's TrackSource
// interface. go-mp3 decodes everything to 16-bit stereo, so Channels is
// always 2 regardless of the source file; seeking is byte-offset based on
// the decoded stream (4 bytes per frame).
package mp3
