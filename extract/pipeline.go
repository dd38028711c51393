// SPDX-License-Identifier: EPL-2.0

package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/sepzie/sezoaudio/audio"
	"github.com/sepzie/sezoaudio/playback"
	"github.com/sepzie/sezoaudio/utils"
)

const (
	chunkFrames  = 4096
	progressStep = 0.01
)

// Config selects the output container and rendering options for one
// extraction.
type Config struct {
	Format        string // registry key: "wav", ...
	SampleRate    int
	Bitrate       int // compressed formats
	BitsPerSample int // PCM formats
	// IncludeEffects applies each track's pitch/speed settings during the
	// offline render.
	IncludeEffects bool
}

// Result is the terminal outcome of an extraction job.
type Result struct {
	TrackID        string // empty for a mixdown
	OutputPath     string
	DurationFrames int64
	FileSize       int64
	Success        bool
	Cancelled      bool
	ErrorMessage   string
}

// ProgressFunc receives monotonically non-decreasing progress in [0, 1].
// It reaches 1.0 only when the render succeeds.
type ProgressFunc func(progress float64)

// Pipeline renders tracks offline (decode, effects, gain, encode) in
// fixed-size chunks, without touching the live streaming buffers. It has no
// real-time constraints and runs on whatever goroutine calls it (the
// engine's serial job worker).
type Pipeline struct {
	registry *audio.Registry
	logger   *slog.Logger
}

func NewPipeline(registry *audio.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{registry: registry, logger: logger}
}

// offlineTrack carries the per-track render state for one job: a fresh
// decoder (independent from the live playback path), an optional stretcher,
// and a snapshot of the track's controls taken at job start.
type offlineTrack struct {
	src       audio.TrackSource
	stretcher *playback.TimeStretch

	inBuf      []float32
	inFraction float64

	channels    int
	volume      float64
	pan         float64
	muted       bool
	solo        bool
	totalFrames int64
	processed   int64
}

func (p *Pipeline) initOffline(t *playback.Track, includeEffects bool) (*offlineTrack, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(t.Path())), ".")
	dec, ok := p.registry.Decoder(ext)
	if !ok {
		return nil, fmt.Errorf("unsupported audio format: %s", t.Path())
	}

	src, err := dec.Open(t.Path())
	if err != nil {
		return nil, fmt.Errorf("open decoder for %s: %w", t.Path(), err)
	}

	format := src.Format()
	if format.Channels <= 0 {
		src.Close()
		return nil, fmt.Errorf("invalid channel count for %s", t.Path())
	}

	st := &offlineTrack{
		src:         src,
		channels:    format.Channels,
		volume:      t.Volume(),
		pan:         t.Pan(),
		muted:       t.IsMuted(),
		solo:        t.IsSolo(),
		totalFrames: format.TotalFrames,
	}

	if includeEffects {
		stretcher := playback.NewTimeStretch(format.SampleRate, format.Channels)
		stretcher.SetPitchSemitones(t.PitchSemitones())
		stretcher.SetStretchFactor(t.StretchFactor())
		if stretcher.IsActive() {
			st.stretcher = stretcher
		}
	}

	return st, nil
}

func (st *offlineTrack) close() {
	if st.src != nil {
		st.src.Close()
		st.src = nil
	}
}

func (st *offlineTrack) stretchFactor() float64 {
	if st.stretcher == nil {
		return 1
	}
	return st.stretcher.StretchFactor()
}

// readFrames loops ReadSamples until frames frames are buffered or the
// source is exhausted, returning the frame count actually read.
func readFrames(src audio.TrackSource, dst []float32, frames, channels int) int {
	want := frames * channels
	got := 0
	for got < want {
		n, err := src.ReadSamples(dst[got:want])
		got += n
		if err != nil || n == 0 {
			break
		}
	}
	return got / channels
}

// render produces up to frames output frames into out. The returned
// inputRead is the number of source frames consumed, which is what progress
// is measured against; with a stretcher engaged it differs from the frames
// produced by the stretch ratio.
func (st *offlineTrack) render(out []float32, frames int) (rendered, inputRead int) {
	if st.src == nil || frames == 0 {
		return 0, 0
	}

	if st.muted {
		for i := 0; i < frames*st.channels; i++ {
			out[i] = 0
		}
		return frames, frames
	}

	if st.stretcher != nil {
		want := float64(frames)*st.stretcher.StretchFactor() + st.inFraction
		inFrames := int(want)
		st.inFraction = want - float64(inFrames)
		if inFrames < 1 {
			inFrames = 1
		}

		inSamples := inFrames * st.channels
		if cap(st.inBuf) < inSamples {
			st.inBuf = make([]float32, inSamples)
		}
		st.inBuf = st.inBuf[:inSamples]

		framesRead := readFrames(st.src, st.inBuf, inFrames, st.channels)
		if framesRead == 0 {
			return 0, 0
		}
		for i := framesRead * st.channels; i < inSamples; i++ {
			st.inBuf[i] = 0
		}

		st.stretcher.Process(st.inBuf, inFrames, out, frames)
		applyVolumePan(out, frames, st.channels, st.volume, st.pan)
		return frames, framesRead
	}

	framesRead := readFrames(st.src, out, frames, st.channels)
	if framesRead == 0 {
		return 0, 0
	}

	applyVolumePan(out, framesRead, st.channels, st.volume, st.pan)
	for i := framesRead * st.channels; i < frames*st.channels; i++ {
		out[i] = 0
	}
	return framesRead, framesRead
}

func applyVolumePan(buf []float32, frames, channels int, volume, pan float64) {
	switch {
	case channels == 2:
		leftGain, rightGain := utils.EqualPowerGains(float32(pan))
		left := float32(volume) * leftGain
		right := float32(volume) * rightGain
		for i := 0; i < frames*2; i += 2 {
			buf[i] *= left
			buf[i+1] *= right
		}
	case volume != 1.0:
		v := float32(volume)
		for i := 0; i < frames*channels; i++ {
			buf[i] *= v
		}
	}
}

// progressReporter rate-limits and monotonizes progress callbacks.
type progressReporter struct {
	fn   ProgressFunc
	last float64
}

func (r *progressReporter) report(processed, total int64) {
	if r.fn == nil || total <= 0 {
		return
	}
	progress := float64(processed) / float64(total)
	if progress > 1 {
		progress = 1
	} else if progress < 0 {
		progress = 0
	}
	if progress >= 1 || progress-r.last >= progressStep {
		r.last = progress
		r.fn(progress)
	}
}

func (r *progressReporter) finish() {
	if r.fn != nil && r.last < 1 {
		r.fn(1)
	}
}

// ExtractTrack renders one track to outputPath. Cancellation is polled once
// per chunk via cancel; a cancelled or failed job deletes any partial
// output.
func (p *Pipeline) ExtractTrack(t *playback.Track, outputPath string, cfg Config, progress ProgressFunc, cancel *atomic.Bool) Result {
	result := Result{TrackID: t.ID(), OutputPath: outputPath}

	if !t.IsLoaded() {
		result.ErrorMessage = "track not loaded"
		return result
	}

	st, err := p.initOffline(t, cfg.IncludeEffects)
	if err != nil {
		result.ErrorMessage = err.Error()
		return result
	}
	defer st.close()

	enc, ok := p.registry.NewEncoder(strings.ToLower(cfg.Format))
	if !ok {
		result.ErrorMessage = fmt.Sprintf("unsupported output format: %s", cfg.Format)
		return result
	}

	encCfg := audio.EncoderConfig{
		SampleRate:    cfg.SampleRate,
		Channels:      st.channels,
		Bitrate:       cfg.Bitrate,
		BitsPerSample: cfg.BitsPerSample,
	}
	if err := enc.Open(outputPath, encCfg); err != nil {
		result.ErrorMessage = fmt.Sprintf("open encoder: %v", err)
		return result
	}

	p.logger.Debug("extracting track", "id", t.ID(), "output", outputPath)

	reporter := &progressReporter{fn: progress}
	total := st.totalFrames
	buf := make([]float32, chunkFrames*st.channels)
	success := true

	for total <= 0 || st.processed < total {
		if cancelled(cancel) {
			result.ErrorMessage = "extraction cancelled"
			result.Cancelled = true
			success = false
			break
		}

		framesToRender := chunkFrames
		if total > 0 {
			remainingOutput := float64(total-st.processed) / st.stretchFactor()
			if remainingOutput <= 0 {
				break
			}
			if remainingOutput < float64(framesToRender) {
				framesToRender = int(remainingOutput)
				if framesToRender == 0 {
					framesToRender = 1
				}
			}
		}

		rendered, inputRead := st.render(buf, framesToRender)
		if rendered == 0 {
			break
		}

		if err := enc.Write(buf, rendered); err != nil {
			result.ErrorMessage = fmt.Sprintf("encode: %v", err)
			success = false
			break
		}

		if inputRead > 0 {
			st.processed += int64(inputRead)
		} else {
			st.processed += int64(rendered)
		}

		if !cancelled(cancel) {
			reporter.report(st.processed, total)
		}

		if rendered < framesToRender && inputRead == 0 {
			break
		}
	}

	if err := enc.Close(); err != nil {
		if success {
			result.ErrorMessage = fmt.Sprintf("finalize encoder: %v", err)
		}
		success = false
	}

	result.DurationFrames = enc.FramesWritten()
	result.FileSize = enc.FileSize()
	result.Success = success

	if success {
		reporter.finish()
		p.logger.Debug("track extracted",
			"id", t.ID(),
			"frames", result.DurationFrames,
			"bytes", result.FileSize)
	} else {
		removePartial(outputPath)
	}
	return result
}

// ExtractMix renders all given tracks as one mixdown. Channel count comes
// from the first track; solo/mute resolution matches the live mixer; the
// loop runs until the longest audible track (in output frames) is
// exhausted, and progress tracks the furthest input position against the
// longest source.
func (p *Pipeline) ExtractMix(tracks []*playback.Track, outputPath string, cfg Config, progress ProgressFunc, cancel *atomic.Bool) Result {
	result := Result{OutputPath: outputPath}

	if len(tracks) == 0 {
		result.ErrorMessage = "no tracks provided"
		return result
	}
	for _, t := range tracks {
		if !t.IsLoaded() {
			result.ErrorMessage = "one or more tracks not loaded"
			return result
		}
	}

	states := make([]*offlineTrack, 0, len(tracks))
	defer func() {
		for _, st := range states {
			st.close()
		}
	}()
	for _, t := range tracks {
		st, err := p.initOffline(t, cfg.IncludeEffects)
		if err != nil {
			result.ErrorMessage = err.Error()
			return result
		}
		states = append(states, st)
	}

	outputChannels := states[0].channels

	enc, ok := p.registry.NewEncoder(strings.ToLower(cfg.Format))
	if !ok {
		result.ErrorMessage = fmt.Sprintf("unsupported output format: %s", cfg.Format)
		return result
	}
	encCfg := audio.EncoderConfig{
		SampleRate:    cfg.SampleRate,
		Channels:      outputChannels,
		Bitrate:       cfg.Bitrate,
		BitsPerSample: cfg.BitsPerSample,
	}
	if err := enc.Open(outputPath, encCfg); err != nil {
		result.ErrorMessage = fmt.Sprintf("open encoder: %v", err)
		return result
	}

	p.logger.Debug("extracting mixdown", "tracks", len(tracks), "output", outputPath)

	hasSolo := false
	for _, st := range states {
		if st.solo {
			hasSolo = true
			break
		}
	}

	var total int64
	for _, st := range states {
		if st.totalFrames > total {
			total = st.totalFrames
		}
	}

	reporter := &progressReporter{fn: progress}
	mixBuf := make([]float32, chunkFrames*outputChannels)
	trackBuf := make([]float32, chunkFrames*outputChannels)
	success := true

	for {
		if cancelled(cancel) {
			result.ErrorMessage = "extraction cancelled"
			result.Cancelled = true
			success = false
			break
		}

		framesToRender := audibleChunk(states, hasSolo)
		if framesToRender == 0 {
			break
		}

		for i := 0; i < framesToRender*outputChannels; i++ {
			mixBuf[i] = 0
		}

		// Tracks that end mid-chunk pad the tail with silence; the chunk is
		// always written whole so longer tracks never lose frames.
		anyActive := false
		for _, st := range states {
			if st.src == nil || (hasSolo && !st.solo) || st.muted {
				continue
			}

			for i := 0; i < framesToRender*outputChannels; i++ {
				trackBuf[i] = 0
			}
			rendered, inputRead := st.render(trackBuf, framesToRender)
			if rendered == 0 {
				continue
			}

			anyActive = true
			if inputRead > 0 {
				st.processed += int64(inputRead)
			} else {
				st.processed += int64(rendered)
			}

			for i := 0; i < rendered*outputChannels; i++ {
				mixBuf[i] += trackBuf[i]
			}
		}

		if !anyActive {
			break
		}

		for i := 0; i < framesToRender*outputChannels; i++ {
			mixBuf[i] = utils.Clamp(mixBuf[i])
		}

		if err := enc.Write(mixBuf, framesToRender); err != nil {
			result.ErrorMessage = fmt.Sprintf("encode: %v", err)
			success = false
			break
		}

		var maxProcessed int64
		for _, st := range states {
			if st.processed > maxProcessed {
				maxProcessed = st.processed
			}
		}
		if !cancelled(cancel) {
			reporter.report(maxProcessed, total)
		}
	}

	if err := enc.Close(); err != nil {
		if success {
			result.ErrorMessage = fmt.Sprintf("finalize encoder: %v", err)
		}
		success = false
	}

	result.DurationFrames = enc.FramesWritten()
	result.FileSize = enc.FileSize()
	result.Success = success

	if success {
		reporter.finish()
		p.logger.Debug("mixdown extracted",
			"tracks", len(tracks),
			"frames", result.DurationFrames,
			"bytes", result.FileSize)
	} else {
		removePartial(outputPath)
	}
	return result
}

// audibleChunk sizes the next render chunk from the audible track with the
// most output frames remaining, so stretched tracks neither truncate nor
// overrun the mixdown.
func audibleChunk(states []*offlineTrack, hasSolo bool) int {
	var maxRemaining float64
	for _, st := range states {
		if st.src == nil || (hasSolo && !st.solo) || st.muted {
			continue
		}
		if st.totalFrames <= 0 {
			return chunkFrames
		}
		remainingInput := float64(st.totalFrames - st.processed)
		if remainingInput <= 0 {
			continue
		}
		remainingOutput := remainingInput / st.stretchFactor()
		if remainingOutput > maxRemaining {
			maxRemaining = remainingOutput
		}
	}

	if maxRemaining <= 0 {
		return 0
	}
	if maxRemaining >= chunkFrames {
		return chunkFrames
	}
	frames := int(maxRemaining)
	if frames == 0 {
		frames = 1
	}
	return frames
}

func cancelled(flag *atomic.Bool) bool {
	return flag != nil && flag.Load()
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove partial output", "path", path, "error", err)
	}
}
