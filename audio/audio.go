// SPDX-License-Identifier: EPL-2.0

package audio

import "sync"

// Format describes a decoded PCM stream.
type Format struct {
	// SampleRate of the PCM stream in Hz.
	SampleRate int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels int
	// TotalFrames is the declared stream length in frames, 0 when unknown.
	TotalFrames int64
}

// Source is a pull-based stream of interleaved float32 samples in [-1, 1].
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples.
	// Returns number of float32 values written (not frames). When n == 0
	// with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)
	// Close releases any resources.
	Close() error
}

// TrackSource extends Source with the random access the playback and
// extraction paths need: a declared format and frame-accurate seeking.
type TrackSource interface {
	Source
	// Format reports the stream's sample rate, channel count and length.
	Format() Format
	// Seek positions the next ReadSamples at the given frame.
	Seek(frame int64) error
}

// FileDecoder constructs a TrackSource from a file path. Concrete decoders
// are selected by container type through the Registry.
type FileDecoder interface {
	Open(path string) (TrackSource, error)
}

// EncoderConfig carries the output parameters an Encoder needs at Open.
type EncoderConfig struct {
	SampleRate    int
	Channels      int
	Bitrate       int // compressed formats only
	BitsPerSample int // PCM formats only (16 or 24)
}

// Encoder writes interleaved float32 frames to an audio container on disk.
type Encoder interface {
	Open(path string, cfg EncoderConfig) error
	// Write encodes frames*cfg.Channels samples from the head of samples.
	Write(samples []float32, frames int) error
	// Close finalizes the container. The file is not valid until Close.
	Close() error
	FramesWritten() int64
	FileSize() int64
}

// Registry maps container keys (e.g., "wav", "mp3", "ogg") to decoders and
// encoder factories.
type Registry struct {
	decoders map[string]FileDecoder
	encoders map[string]func() Encoder

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]FileDecoder),
		encoders: make(map[string]func() Encoder),
		mtx:      &sync.Mutex{},
	}
}

func (r *Registry) RegisterDecoder(format string, d FileDecoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.decoders[format] = d
}

func (r *Registry) Decoder(format string) (FileDecoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.decoders[format]
	return d, ok
}

func (r *Registry) RegisterEncoder(format string, factory func() Encoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.encoders[format] = factory
}

// NewEncoder returns a fresh encoder instance for the format, or false when
// the format has no registered factory.
func (r *Registry) NewEncoder(format string) (Encoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	factory, ok := r.encoders[format]
	if !ok {
		return nil, false
	}
	return factory(), true
}
