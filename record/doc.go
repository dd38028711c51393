// SPDX-License-Identifier: EPL-2.0

// Package record drains a live audio input into an encoded file. The
// Capture interface stands in for the platform input device; the pipeline
// owns a single drain goroutine and stamps each recording with the timeline
// frame it started at, so a finished take can be placed back on the
// timeline as a track.
package record
