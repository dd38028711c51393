// SPDX-License-Identifier: EPL-2.0

// Package audio defines the core streaming contracts of the engine.
//
// Source is the pull-based interface every decoded stream satisfies:
// interleaved float32 samples in [-1, 1], io.EOF when exhausted.
// TrackSource adds the declared Format and frame-accurate Seek the playback
// and extraction paths rely on. FileDecoder and Encoder are the external
// collaborator surfaces for audio containers; concrete implementations live
// in the formats subpackages and are looked up through a Registry keyed by
// container type.
//
// Ring is the fixed-capacity single-producer/single-consumer buffer that
// decouples each track's background decoding from the real-time render
// callback. Its Read and Write never block and never allocate, which is
// what makes it safe to drain from the audio callback.
package audio
