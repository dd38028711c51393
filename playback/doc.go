// SPDX-License-Identifier: EPL-2.0

// Package playback implements the real-time side of the engine: Track
// (streaming decode into a lock-free ring, per-track controls and effects),
// TimeStretch (independent pitch/speed resynthesis) and Mixer (solo/mute
// resolution, equal-power panning, master gain and output clamping).
//
// The contract throughout is that the render-path entry points (Track
// .ReadSamples, TimeStretch.Process, Mixer.Mix) never allocate, never take
// a lock and never block; degraded input shows up as silence, not as a
// stall.
package playback
