package playback

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrDecoderOpenFailed = errors.New("decoder open failed")
	ErrTrackNotLoaded    = errors.New("track not loaded")
	ErrSeekFailed        = errors.New("seek failed")
)
