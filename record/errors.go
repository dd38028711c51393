// SPDX-License-Identifier: EPL-2.0

package record

import "errors"

var (
	// ErrNilCapture is returned when Start is given a nil capture device.
	ErrNilCapture = errors.New("capture device is nil")
	// ErrAlreadyRecording is returned when Start is called while a
	// recording is in progress.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned when Stop is called with no active
	// recording.
	ErrNotRecording = errors.New("no recording in progress")
	// ErrUnsupportedRecordFormat is returned for an output format with no
	// registered encoder.
	ErrUnsupportedRecordFormat = errors.New("unsupported recording format")
)
