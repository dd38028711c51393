// SPDX-License-Identifier: EPL-2.0

// Package vorbis wraps jfreymuth/oggvorbis behind the engine's TrackSource
// interface. Seeking uses the reader's SetPosition, which requires the
// underlying file to be seekable; Length reports frames per channel.
package vorbis
