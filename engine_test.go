// SPDX-License-Identifier: EPL-2.0

package sezoaudio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sepzie/sezoaudio/extract"
	"github.com/sepzie/sezoaudio/internal/audiotest"
	"github.com/sepzie/sezoaudio/record"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(Config{SampleRate: 48000, MaxTracks: 8})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Release)
	return e
}

func writeFixture(t *testing.T, name string, sampleRate, channels, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := audiotest.WriteWavFixture(path, sampleRate, channels, frames, 440); err != nil {
		t.Fatalf("WriteWavFixture() error = %v", err)
	}
	return path
}

func TestEngine_LoadAndTransport(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	path := writeFixture(t, "a.wav", 48000, 1, 48000) // exactly 1 s

	if err := e.LoadTrack("A", path, 0); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	if got := e.DurationMs(); math.Abs(got-1000) > 1000.0/48000 {
		t.Errorf("DurationMs() = %v, want ≈1000", got)
	}

	if err := e.Seek(250); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if got := e.CurrentPositionMs(); math.Abs(got-250) > 2 {
		t.Errorf("CurrentPositionMs() after Seek(250) = %v, want ≈250", got)
	}

	e.Play()
	if !e.IsPlaying() {
		t.Error("IsPlaying() = false after Play()")
	}

	e.Stop()
	if e.IsPlaying() {
		t.Error("IsPlaying() = true after Stop()")
	}
	if got := e.CurrentPositionMs(); got != 0 {
		t.Errorf("CurrentPositionMs() after Stop() = %v, want 0", got)
	}
}

func TestEngine_RenderAdvancesClock(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	path := writeFixture(t, "a.wav", 48000, 1, 48000)
	if err := e.LoadTrack("A", path, 0); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	out := make([]float32, 4800*2)

	// Stopped: silence, no clock movement.
	e.RenderBlock(out, 4800)
	if got := e.CurrentPositionMs(); got != 0 {
		t.Errorf("position advanced while stopped: %v ms", got)
	}

	e.Play()
	e.RenderBlock(out, 4800) // 100 ms
	if got := e.CurrentPositionMs(); math.Abs(got-100) > 1 {
		t.Errorf("CurrentPositionMs() after one block = %v, want ≈100", got)
	}
}

func TestEngine_TwoTrackOffsetMix(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	a := writeFixture(t, "a.wav", 48000, 1, 96000)
	b := writeFixture(t, "b.wav", 48000, 1, 96000)

	if err := e.LoadTrack("A", a, 0); err != nil {
		t.Fatalf("LoadTrack(A) error = %v", err)
	}
	if err := e.LoadTrack("B", b, 250); err != nil {
		t.Fatalf("LoadTrack(B) error = %v", err)
	}
	// Split the tracks across channels so their contributions separate.
	e.SetTrackPan("A", -1)
	e.SetTrackPan("B", 1)

	e.Play()

	const block = 4800 // 100 ms
	out := make([]float32, block*2)
	var leftEarly, rightEarly, leftLate, rightLate float64
	for i := 0; i < 20; i++ { // 2 s total}
		e.RenderBlock(out, block)

		var l, r float64
		for f := 0; f < block; f++ {
			l += float64(out[f*2]) * float64(out[f*2])
			r += float64(out[f*2+1]) * float64(out[f*2+1])
		}
		l = math.Sqrt(l / block)
		r = math.Sqrt(r / block)

		switch {
		case i < 2: // first 200 ms: before B's offset
			leftEarly += l
			rightEarly += r
		case i >= 4 && i < 10: // 400 ms - 1 s: both audible
			leftLate += l
			rightLate += r
		}
	}

	if leftEarly < 0.01 {
		t.Errorf("track A silent before B's offset: left RMS sum = %v", leftEarly)
	}
	if rightEarly > 1e-3 {
		t.Errorf("track B audible before its 250 ms offset: right RMS sum = %v", rightEarly)
	}
	if rightLate < 0.01 {
		t.Errorf("track B silent after its offset: right RMS sum = %v", rightLate)
	}
	if leftLate < 0.01 {
		t.Errorf("track A went silent: left RMS sum = %v", leftLate)
	}
}

func TestEngine_TrackManagement(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	path := writeFixture(t, "a.wav", 48000, 1, 4800)

	if err := e.LoadTrack("A", path, 0); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}
	if err := e.LoadTrack("B", path, 0); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	ids := e.LoadedTrackIDs()
	if len(ids) != 2 {
		t.Fatalf("LoadedTrackIDs() = %v, want 2 entries", ids)
	}

	if err := e.UnloadTrack("A"); err != nil {
		t.Fatalf("UnloadTrack() error = %v", err)
	}
	if err := e.UnloadTrack("A"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("UnloadTrack() twice error = %v, want ErrTrackNotFound", err)
	}

	e.UnloadAllTracks()
	if got := e.LoadedTrackIDs(); len(got) != 0 {
		t.Errorf("LoadedTrackIDs() after UnloadAllTracks = %v, want empty", got)
	}
	if got := e.DurationMs(); got != 0 {
		t.Errorf("DurationMs() with no tracks = %v, want 0", got)
	}
}

func TestEngine_TrackLimit(t *testing.T) {
	t.Parallel()

	e, err := New(Config{SampleRate: 48000, MaxTracks: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Release)

	path := writeFixture(t, "a.wav", 48000, 1, 4800)
	if err := e.LoadTrack("A", path, 0); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}
	if err := e.LoadTrack("B", path, 0); !errors.Is(err, ErrTrackLimitReached) {
		t.Errorf("LoadTrack() over limit error = %v, want ErrTrackLimitReached", err)
	}

	// Replacing the existing id stays within the limit.
	if err := e.LoadTrack("A", path, 100); err != nil {
		t.Errorf("LoadTrack() replacing id error = %v", err)
	}
}

func TestEngine_LastErrorAndCallback(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	got := make(chan ErrorCode, 1)
	e.SetErrorCallback(func(code ErrorCode, message string) {
		select {
		case got <- code:
		default:
		}
	})

	if err := e.UnloadTrack("nope"); err == nil {
		t.Fatal("UnloadTrack(unknown) succeeded, want error")
	}

	code, msg := e.LastError()
	if code != ErrCodeTrackNotFound {
		t.Errorf("LastError() code = %v, want TrackNotFound", code)
	}
	if msg == "" {
		t.Error("LastError() message is empty")
	}

	select {
	case code := <-got:
		if code != ErrCodeTrackNotFound {
			t.Errorf("callback code = %v, want TrackNotFound", code)
		}
	case <-time.After(time.Second):
		t.Error("error callback not delivered")
	}
}

func TestEngine_SyncExtraction(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	path := writeFixture(t, "a.wav", 48000, 1, 48000)
	if err := e.LoadTrack("A", path, 0); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	out := filepath.Join(t.TempDir(), "out.wav")
	result, err := e.ExtractTrack("A", out, extract.Config{}, nil)
	if err != nil {
		t.Fatalf("ExtractTrack() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("result not successful: %s", result.ErrorMessage)
	}
	if result.DurationFrames != 48000 {
		t.Errorf("DurationFrames = %d, want 48000", result.DurationFrames)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestEngine_AsyncExtractionJobOrder(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	path := writeFixture(t, "a.wav", 48000, 1, 48000)
	if err := e.LoadTrack("A", path, 0); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	type completion struct {
		id     JobID
		result extract.Result
	}
	done := make(chan completion, 2)
	complete := func(id JobID, r extract.Result) {
		done <- completion{id, r}
	}

	dir := t.TempDir()
	id1, err := e.StartExtractTrack("A", filepath.Join(dir, "one.wav"), extract.Config{}, nil, complete)
	if err != nil {
		t.Fatalf("StartExtractTrack() error = %v", err)
	}
	id2, err := e.StartExtractAllTracks(filepath.Join(dir, "two.wav"), extract.Config{}, nil, complete)
	if err != nil {
		t.Fatalf("StartExtractAllTracks() error = %v", err)
	}
	if id2 <= id1 {
		t.Errorf("job ids not monotonic: %d then %d", id1, id2)
	}

	for _, wantID := range []JobID{id1, id2} {
		select {
		case c := <-done:
			if c.id != wantID {
				t.Errorf("completion order: got job %d, want %d", c.id, wantID)
			}
			if !c.result.Success {
				t.Errorf("job %d failed: %s", c.id, c.result.ErrorMessage)
			}
		case <-time.After(10 * time.Second):
			t.Fatalf("job %d did not complete", wantID)
		}
	}
}

func TestEngine_CancelExtraction(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	path := writeFixture(t, "a.wav", 48000, 1, 96000)
	if err := e.LoadTrack("A", path, 0); err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	done := make(chan extract.Result, 1)
	out := filepath.Join(t.TempDir(), "out.wav")
	id, err := e.StartExtractTrack("A", out, extract.Config{}, nil,
		func(id JobID, r extract.Result) { done <- r })
	if err != nil {
		t.Fatalf("StartExtractTrack() error = %v", err)
	}

	e.CancelExtraction(id)

	select {
	case r := <-done:
		// The job may have finished before the cancel landed; both outcomes
		// are legal, but a cancelled job must leave no file behind.
		if r.Cancelled {
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Errorf("cancelled job left output on disk: stat err = %v", err)
			}
		}
	case <-time.After(10 * time.Second):
		t.Fatal("job did not complete")
	}

	if e.CancelExtraction(id) {
		t.Error("CancelExtraction() on finished job = true, want false")
	}
}

func TestEngine_Recording(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	capture := audiotest.NewMockCapture(audiotest.NewSineSource(48000, 1, 9600, 440))
	out := filepath.Join(t.TempDir(), "take.wav")

	err := e.StartRecording(capture, out, record.Config{Format: "wav", SampleRate: 48000, BitsPerSample: 16})
	if err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	if !e.IsRecording() {
		t.Error("IsRecording() = false after StartRecording()")
	}
	if !e.IsPlaying() {
		t.Error("IsPlaying() = false while recording")
	}

	// Let the drain goroutine pull the mock source dry.
	time.Sleep(100 * time.Millisecond)

	result, err := e.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("recording failed: %s", result.ErrorMessage)
	}
	if result.DurationFrames != 9600 {
		t.Errorf("DurationFrames = %d, want 9600", result.DurationFrames)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("recorded file missing: %v", err)
	}
}

func TestEngine_ReleasedOperationsFail(t *testing.T) {
	t.Parallel()

	e, err := New(Config{SampleRate: 48000})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	e.Release()

	if err := e.LoadTrack("A", "a.wav", 0); !errors.Is(err, ErrReleased) {
		t.Errorf("LoadTrack() after Release error = %v, want ErrReleased", err)
	}
	if err := e.Seek(0); !errors.Is(err, ErrReleased) {
		t.Errorf("Seek() after Release error = %v, want ErrReleased", err)
	}

	// Double release is safe.
	e.Release()
}
