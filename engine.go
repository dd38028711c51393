// SPDX-License-Identifier: EPL-2.0

package sezoaudio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sepzie/sezoaudio/audio"
	"github.com/sepzie/sezoaudio/extract"
	"github.com/sepzie/sezoaudio/formats/aiff"
	"github.com/sepzie/sezoaudio/formats/mp3"
	"github.com/sepzie/sezoaudio/formats/vorbis"
	"github.com/sepzie/sezoaudio/formats/wav"
	"github.com/sepzie/sezoaudio/playback"
	"github.com/sepzie/sezoaudio/record"
	"github.com/sepzie/sezoaudio/timeline"
)

const (
	defaultSampleRate = 48000
	defaultMaxTracks  = 16

	dispatchQueueSize   = 64
	dispatchStopTimeout = time.Second
)

// RenderFunc fills out with frames interleaved stereo frames. It is invoked
// from the audio driver's real-time context and must not allocate or block.
type RenderFunc func(out []float32, frames int)

// Player binds the engine to a platform audio output. Start registers the
// render callback and begins pulling; implementations live outside this
// package (see driver/beepout).
type Player interface {
	Start(render RenderFunc) error
	Stop() error
	Close() error
	IsRunning() bool
}

// ErrorFunc receives asynchronous engine errors. It is called from the
// engine's dispatch goroutine, never from the render path.
type ErrorFunc func(code ErrorCode, message string)

// Config configures a new Engine. Zero values fall back to defaults; Player
// may be nil for offline use (extraction, tests), in which case the caller
// drives RenderBlock directly.
type Config struct {
	SampleRate int
	MaxTracks  int
	Player     Player
	Logger     *slog.Logger
}

// Engine is the top-level orchestrator: one clock, one transport, one mixer,
// a format registry, and a serial worker for extraction jobs. Construct with
// New, tear down with Release.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	registry  *audio.Registry
	clock     *timeline.Clock
	transport *timeline.Transport
	timing    *timeline.Timing
	mixer     *playback.Mixer
	extractor *extract.Pipeline
	recorder  *record.Pipeline

	released atomic.Bool

	// trackMu serializes load/unload/seek against each other. The render
	// path never takes it; it reads the mixer's atomic snapshot.
	trackMu sync.Mutex

	errMu       sync.Mutex
	lastErrCode ErrorCode
	lastErrMsg  string
	errCb       ErrorFunc

	dispatchCh   chan func()
	dispatchQuit chan struct{}
	dispatchDone chan struct{}

	jobs *jobRunner
}

// New validates cfg, builds the engine, registers the built-in formats, and
// starts the job worker, the callback dispatcher, and (when configured) the
// audio player.
func New(cfg Config) (*Engine, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.MaxTracks == 0 {
		cfg.MaxTracks = defaultMaxTracks
	}
	if cfg.SampleRate < 0 || cfg.MaxTracks < 0 {
		return nil, fmt.Errorf("%w: sampleRate=%d maxTracks=%d",
			ErrInvalidConfig, cfg.SampleRate, cfg.MaxTracks)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := audio.NewRegistry()
	registry.RegisterDecoder("wav", wav.Decoder{})
	registry.RegisterDecoder("mp3", mp3.Decoder{})
	registry.RegisterDecoder("ogg", vorbis.Decoder{})
	registry.RegisterDecoder("oga", vorbis.Decoder{})
	registry.RegisterDecoder("aiff", aiff.Decoder{})
	registry.RegisterDecoder("aif", aiff.Decoder{})
	registry.RegisterEncoder("wav", func() audio.Encoder { return wav.NewEncoder() })

	e := &Engine{
		cfg:          cfg,
		logger:       logger,
		registry:     registry,
		clock:        timeline.NewClock(),
		transport:    timeline.NewTransport(),
		timing:       timeline.NewTiming(cfg.SampleRate),
		mixer:        playback.NewMixer(),
		dispatchCh:   make(chan func(), dispatchQueueSize),
		dispatchQuit: make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
	e.extractor = extract.NewPipeline(registry, logger)
	e.recorder = record.NewPipeline(registry, logger)
	e.jobs = newJobRunner(e)

	go e.dispatchLoop()

	if cfg.Player != nil {
		if err := cfg.Player.Start(e.RenderBlock); err != nil {
			e.shutdown()
			return nil, fmt.Errorf("start audio player: %w", err)
		}
	}

	logger.Info("engine initialized",
		"sampleRate", cfg.SampleRate,
		"maxTracks", cfg.MaxTracks)
	return e, nil
}

// Release stops playback, unloads all tracks, and shuts down the worker and
// dispatch goroutines with bounded waits. The engine is unusable afterwards.
func (e *Engine) Release() {
	if e.released.Swap(true) {
		return
	}
	if e.cfg.Player != nil {
		if err := e.cfg.Player.Stop(); err != nil {
			e.logger.Warn("player stop failed", "error", err)
		}
		if err := e.cfg.Player.Close(); err != nil {
			e.logger.Warn("player close failed", "error", err)
		}
	}
	e.transport.Stop()
	e.clock.Reset()

	e.trackMu.Lock()
	for _, t := range e.mixer.Tracks() {
		t.Unload()
	}
	e.mixer.ClearTracks()
	e.trackMu.Unlock()

	e.shutdown()
	e.logger.Info("engine released")
}

func (e *Engine) shutdown() {
	e.jobs.stop()
	close(e.dispatchQuit)
	select {
	case <-e.dispatchDone:
	case <-time.After(dispatchStopTimeout):
		e.logger.Warn("callback dispatcher did not stop in time")
	}
}

// RenderBlock is the engine's render entry point: the Player calls it once
// per output period. When the transport is not playing it emits silence; it
// never allocates, locks, or blocks.
func (e *Engine) RenderBlock(out []float32, frames int) {
	if !e.transport.IsPlaying() {
		for i := 0; i < frames*2; i++ {
			out[i] = 0
		}
		return
	}
	e.mixer.Mix(out, frames, e.clock.Position())
	e.clock.Advance(int64(frames))
}

// LoadTrack decodes path's container header, registers the track under id at
// startTimeMs on the shared timeline, and pre-fills its streaming buffer. An
// existing track with the same id is replaced. If the transport is already
// playing, the new track seeks itself to the current timeline position so it
// joins in sync.
func (e *Engine) LoadTrack(id, path string, startTimeMs float64) error {
	if e.released.Load() {
		return e.fail(ErrCodeNotInitialized, ErrReleased)
	}
	if id == "" || path == "" {
		return e.fail(ErrCodeInvalidArgument,
			fmt.Errorf("load track: empty id or path"))
	}

	e.trackMu.Lock()
	defer e.trackMu.Unlock()

	if existing := e.mixer.Track(id); existing != nil {
		e.mixer.RemoveTrack(id)
		existing.Unload()
	} else if len(e.mixer.Tracks()) >= e.cfg.MaxTracks {
		return e.fail(ErrCodeTrackLimitReached,
			fmt.Errorf("%w (%d)", ErrTrackLimitReached, e.cfg.MaxTracks))
	}

	t := playback.NewTrack(id, path, e.registry, e.logger)
	t.SetStartFrame(e.timing.MsToSamples(startTimeMs))

	if err := t.Load(); err != nil {
		return e.fail(loadErrorCode(err), fmt.Errorf("load track %q: %w", id, err))
	}

	// Catch-up: a track loaded mid-playback starts from the frame the
	// timeline is already at, not from its beginning.
	if e.transport.IsPlaying() {
		trackFrame := e.clock.Position() - t.StartFrame()
		if trackFrame > 0 && trackFrame < t.Duration() {
			if err := t.Seek(trackFrame); err != nil {
				e.logger.Warn("catch-up seek failed", "id", id, "error", err)
			}
		}
	}

	e.mixer.AddTrack(t)
	e.recalculateDuration()

	e.logger.Info("track loaded",
		"id", id,
		"path", path,
		"startMs", startTimeMs,
		"frames", t.Duration())
	return nil
}

// UnloadTrack removes the track and tears down its decoder and fill loop.
func (e *Engine) UnloadTrack(id string) error {
	if e.released.Load() {
		return e.fail(ErrCodeNotInitialized, ErrReleased)
	}

	e.trackMu.Lock()
	defer e.trackMu.Unlock()

	t := e.mixer.Track(id)
	if t == nil {
		return e.fail(ErrCodeTrackNotFound, fmt.Errorf("%w: %q", ErrTrackNotFound, id))
	}
	e.mixer.RemoveTrack(id)
	t.Unload()
	e.recalculateDuration()

	e.logger.Info("track unloaded", "id", id)
	return nil
}

// UnloadAllTracks removes every track.
func (e *Engine) UnloadAllTracks() {
	e.trackMu.Lock()
	defer e.trackMu.Unlock()

	for _, t := range e.mixer.Tracks() {
		t.Unload()
	}
	e.mixer.ClearTracks()
	e.recalculateDuration()
}

// LoadedTrackIDs returns the ids of all loaded tracks.
func (e *Engine) LoadedTrackIDs() []string {
	tracks := e.mixer.Tracks()
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID())
	}
	return ids
}

// Play starts or resumes playback from the current position.
func (e *Engine) Play() {
	if e.released.Load() {
		return
	}
	e.transport.Play()
	e.logger.Debug("playback started", "positionFrames", e.clock.Position())
}

// Pause halts playback keeping the current position. No-op unless playing
// or recording.
func (e *Engine) Pause() {
	e.transport.Pause()
}

// Stop halts playback and rewinds the timeline to zero, seeking every track
// back to its start.
func (e *Engine) Stop() {
	e.transport.Stop()
	e.clock.Reset()
	e.seekTracks(0)
	e.logger.Debug("playback stopped")
}

// Seek moves the timeline to positionMs. Playback is paused for the
// duration of the per-track seeks and resumed afterwards if it was running.
func (e *Engine) Seek(positionMs float64) error {
	if e.released.Load() {
		return e.fail(ErrCodeNotInitialized, ErrReleased)
	}
	if positionMs < 0 {
		return e.fail(ErrCodeInvalidArgument,
			fmt.Errorf("seek: negative position %v ms", positionMs))
	}

	wasPlaying := e.transport.IsPlaying()
	if wasPlaying {
		e.transport.Pause()
	}

	frame := e.timing.MsToSamples(positionMs)
	e.clock.SetPosition(frame)
	err := e.seekTracks(frame)

	if wasPlaying {
		e.transport.Play()
	}
	if err != nil {
		return e.fail(ErrCodeSeekFailed, err)
	}
	return nil
}

func (e *Engine) seekTracks(timelineFrame int64) error {
	e.trackMu.Lock()
	defer e.trackMu.Unlock()

	var firstErr error
	for _, t := range e.mixer.Tracks() {
		trackFrame := timelineFrame - t.StartFrame()
		if trackFrame < 0 {
			trackFrame = 0
		}
		if trackFrame > t.Duration() {
			trackFrame = t.Duration()
		}
		if err := t.Seek(trackFrame); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("seek track %q: %w", t.ID(), err)
		}
	}
	return firstErr
}

func (e *Engine) IsPlaying() bool {
	return e.transport.IsPlaying()
}

// CurrentPositionMs reports the timeline position in milliseconds.
func (e *Engine) CurrentPositionMs() float64 {
	return e.timing.SamplesToMs(e.clock.Position())
}

// DurationMs reports the total timeline duration: the furthest end point of
// any loaded track.
func (e *Engine) DurationMs() float64 {
	return e.timing.DurationMs()
}

func (e *Engine) recalculateDuration() {
	var max int64
	for _, t := range e.mixer.Tracks() {
		if end := t.StartFrame() + t.Duration(); end > max {
			max = end
		}
	}
	e.timing.SetDurationFrames(max)
}

// --- per-track controls ---

func (e *Engine) track(id string) (*playback.Track, error) {
	t := e.mixer.Track(id)
	if t == nil {
		return nil, e.fail(ErrCodeTrackNotFound, fmt.Errorf("%w: %q", ErrTrackNotFound, id))
	}
	return t, nil
}

func (e *Engine) SetTrackVolume(id string, volume float64) error {
	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.SetVolume(volume)
	return nil
}

func (e *Engine) TrackVolume(id string) (float64, error) {
	t, err := e.track(id)
	if err != nil {
		return 0, err
	}
	return t.Volume(), nil
}

func (e *Engine) SetTrackPan(id string, pan float64) error {
	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.SetPan(pan)
	return nil
}

func (e *Engine) TrackPan(id string) (float64, error) {
	t, err := e.track(id)
	if err != nil {
		return 0, err
	}
	return t.Pan(), nil
}

func (e *Engine) SetTrackMuted(id string, muted bool) error {
	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.SetMuted(muted)
	return nil
}

func (e *Engine) TrackMuted(id string) (bool, error) {
	t, err := e.track(id)
	if err != nil {
		return false, err
	}
	return t.IsMuted(), nil
}

func (e *Engine) SetTrackSolo(id string, solo bool) error {
	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.SetSolo(solo)
	return nil
}

func (e *Engine) TrackSolo(id string) (bool, error) {
	t, err := e.track(id)
	if err != nil {
		return false, err
	}
	return t.IsSolo(), nil
}

func (e *Engine) SetTrackPitch(id string, semitones float64) error {
	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.SetPitchSemitones(semitones)
	return nil
}

func (e *Engine) TrackPitch(id string) (float64, error) {
	t, err := e.track(id)
	if err != nil {
		return 0, err
	}
	return t.PitchSemitones(), nil
}

func (e *Engine) SetTrackSpeed(id string, factor float64) error {
	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.SetStretchFactor(factor)
	return nil
}

func (e *Engine) TrackSpeed(id string) (float64, error) {
	t, err := e.track(id)
	if err != nil {
		return 0, err
	}
	return t.StretchFactor(), nil
}

// SetTrackStartTime moves an already loaded track to a new timeline offset.
func (e *Engine) SetTrackStartTime(id string, startTimeMs float64) error {
	t, err := e.track(id)
	if err != nil {
		return err
	}
	t.SetStartFrame(e.timing.MsToSamples(startTimeMs))
	e.trackMu.Lock()
	e.recalculateDuration()
	e.trackMu.Unlock()
	return nil
}

// --- master controls ---

func (e *Engine) SetMasterVolume(volume float64) {
	e.mixer.SetMasterVolume(volume)
}

func (e *Engine) MasterVolume() float64 {
	return e.mixer.MasterVolume()
}

// SetPitchAll applies a pitch shift to every loaded track.
func (e *Engine) SetPitchAll(semitones float64) {
	for _, t := range e.mixer.Tracks() {
		t.SetPitchSemitones(semitones)
	}
}

// SetSpeedAll applies a stretch factor to every loaded track.
func (e *Engine) SetSpeedAll(factor float64) {
	for _, t := range e.mixer.Tracks() {
		t.SetStretchFactor(factor)
	}
}

// --- recording ---

// StartRecording begins capturing from the given device into outputPath,
// stamped with the current timeline position.
func (e *Engine) StartRecording(capture record.Capture, outputPath string, cfg record.Config) error {
	if e.released.Load() {
		return e.fail(ErrCodeNotInitialized, ErrReleased)
	}
	if err := e.recorder.Start(capture, outputPath, cfg, e.clock.Position()); err != nil {
		return e.fail(ErrCodeRecordingFailed, err)
	}
	e.transport.Record()
	return nil
}

// StopRecording finalizes the active recording and returns its result.
func (e *Engine) StopRecording() (record.Result, error) {
	result, err := e.recorder.Stop()
	if e.transport.State() == timeline.StateRecording {
		e.transport.Play()
	}
	if err != nil {
		return result, e.fail(ErrCodeRecordingFailed, err)
	}
	return result, nil
}

func (e *Engine) IsRecording() bool {
	return e.recorder.IsRecording()
}

// InputLevel reports the recent peak level of the recording input.
func (e *Engine) InputLevel() float64 {
	return e.recorder.InputLevel()
}

// --- error reporting ---

// SetErrorCallback registers fn to receive asynchronous errors. fn runs on
// the dispatch goroutine.
func (e *Engine) SetErrorCallback(fn ErrorFunc) {
	e.errMu.Lock()
	e.errCb = fn
	e.errMu.Unlock()
}

// LastError returns the most recent error code and message, or ErrCodeNone.
func (e *Engine) LastError() (ErrorCode, string) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.lastErrCode, e.lastErrMsg
}

// fail records err as the last error, schedules the error callback, logs,
// and returns err unchanged so callers can propagate it.
func (e *Engine) fail(code ErrorCode, err error) error {
	msg := err.Error()

	e.errMu.Lock()
	e.lastErrCode = code
	e.lastErrMsg = msg
	cb := e.errCb
	e.errMu.Unlock()

	e.logger.Error("engine error", "code", code.String(), "message", msg)

	if cb != nil {
		e.dispatch(func() { cb(code, msg) })
	}
	return err
}

// dispatch queues fn for the dispatch goroutine. Drops with a warning when
// the queue is full rather than blocking the caller.
func (e *Engine) dispatch(fn func()) {
	if e.released.Load() {
		return
	}
	select {
	case e.dispatchCh <- fn:
	default:
		e.logger.Warn("callback dispatch queue full, dropping callback")
	}
}

func (e *Engine) dispatchLoop() {
	defer close(e.dispatchDone)
	for {
		select {
		case fn := <-e.dispatchCh:
			fn()
		case <-e.dispatchQuit:
			for {
				select {
				case fn := <-e.dispatchCh:
					fn()
				default:
					return
				}
			}
		}
	}
}

func loadErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, playback.ErrUnsupportedFormat):
		return ErrCodeUnsupportedFormat
	case errors.Is(err, playback.ErrDecoderOpenFailed):
		return ErrCodeDecoderOpenFailed
	case errors.Is(err, playback.ErrSeekFailed):
		return ErrCodeSeekFailed
	default:
		return ErrCodeStreamError
	}
}
