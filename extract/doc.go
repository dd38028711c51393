// SPDX-License-Identifier: EPL-2.0

// Package extract renders loaded tracks to encoded files without going
// through the real-time playback path. Each job opens its own decoder and
// effect chain, so a running extraction never perturbs live playback of the
// same track.
//
// Jobs report progress through a ProgressFunc, poll a cancellation flag
// once per chunk, and remove any partially written output when they fail or
// are cancelled.
package extract
