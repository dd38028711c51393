// SPDX-License-Identifier: EPL-2.0

package sezoaudio

import "errors"

// ErrorCode classifies engine failures for the asynchronous error callback.
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeNotInitialized
	ErrCodeInvalidArgument
	ErrCodeInvalidState
	ErrCodeTrackNotFound
	ErrCodeTrackLimitReached
	ErrCodeUnsupportedFormat
	ErrCodeDecoderOpenFailed
	ErrCodeSeekFailed
	ErrCodeStreamError
	ErrCodeRecordingFailed
	ErrCodeExtractionFailed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNone:
		return "None"
	case ErrCodeNotInitialized:
		return "NotInitialized"
	case ErrCodeInvalidArgument:
		return "InvalidArgument"
	case ErrCodeInvalidState:
		return "InvalidState"
	case ErrCodeTrackNotFound:
		return "TrackNotFound"
	case ErrCodeTrackLimitReached:
		return "TrackLimitReached"
	case ErrCodeUnsupportedFormat:
		return "UnsupportedFormat"
	case ErrCodeDecoderOpenFailed:
		return "DecoderOpenFailed"
	case ErrCodeSeekFailed:
		return "SeekFailed"
	case ErrCodeStreamError:
		return "StreamError"
	case ErrCodeRecordingFailed:
		return "RecordingFailed"
	case ErrCodeExtractionFailed:
		return "ExtractionFailed"
	default:
		return "Unknown"
	}
}

var (
	// ErrInvalidConfig is returned by New for an unusable configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")
	// ErrReleased is returned when an operation is attempted after Release.
	ErrReleased = errors.New("engine has been released")
	// ErrTrackNotFound is returned for operations on an unknown track id.
	ErrTrackNotFound = errors.New("track not found")
	// ErrTrackLimitReached is returned when LoadTrack would exceed the
	// configured maximum track count.
	ErrTrackLimitReached = errors.New("track limit reached")
	// ErrJobQueueFull is returned when the extraction queue cannot accept
	// another job.
	ErrJobQueueFull = errors.New("extraction job queue is full")
	// ErrJobNotFound is returned when cancelling an unknown or finished job.
	ErrJobNotFound = errors.New("extraction job not found")
)
