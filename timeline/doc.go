// SPDX-License-Identifier: EPL-2.0

// Package timeline holds the engine's shared sense of time: a frame-accurate
// Clock advanced by the render callback, the Transport play/pause/stop state
// machine, and Timing conversions between frames and milliseconds. All state
// is single atomic scalars so the real-time path never takes a lock.
package timeline
