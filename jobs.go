// SPDX-License-Identifier: EPL-2.0

package sezoaudio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sepzie/sezoaudio/extract"
	"github.com/sepzie/sezoaudio/playback"
)

const (
	jobQueueSize   = 32
	jobStopTimeout = 2 * time.Second
)

// JobID identifies one queued extraction job. Ids are monotonically
// increasing and never reused within an engine's lifetime.
type JobID int64

// CompletionFunc receives the terminal result of an asynchronous extraction
// job. Called from the dispatch goroutine.
type CompletionFunc func(id JobID, result extract.Result)

type extractionJob struct {
	id       JobID
	run      func(cancel *atomic.Bool) extract.Result
	complete CompletionFunc
}

// jobRunner drains extraction jobs one at a time on a single worker
// goroutine; submission order is execution order. Each job's cancellation
// flag stays addressable by id until the job finishes.
type jobRunner struct {
	engine *Engine

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan *extractionJob
	done   chan struct{}

	mu     sync.Mutex
	flags  map[JobID]*atomic.Bool
	nextID atomic.Int64
}

func newJobRunner(e *Engine) *jobRunner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &jobRunner{
		engine: e,
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan *extractionJob, jobQueueSize),
		done:   make(chan struct{}),
		flags:  make(map[JobID]*atomic.Bool),
	}
	go r.workerLoop()
	return r
}

func (r *jobRunner) stop() {
	r.cancel()
	select {
	case <-r.done:
	case <-time.After(jobStopTimeout):
		r.engine.logger.Warn("extraction worker did not stop in time")
	}
}

func (r *jobRunner) workerLoop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			return
		case job := <-r.queue:
			r.runJob(job)
		}
	}
}

func (r *jobRunner) runJob(job *extractionJob) {
	flag := r.flag(job.id)

	result := job.run(flag)

	r.mu.Lock()
	delete(r.flags, job.id)
	r.mu.Unlock()

	if !result.Success && !result.Cancelled {
		r.engine.fail(ErrCodeExtractionFailed,
			fmt.Errorf("extraction job %d: %s", job.id, result.ErrorMessage))
	}
	if job.complete != nil {
		r.engine.dispatch(func() { job.complete(job.id, result) })
	}
}

func (r *jobRunner) flag(id JobID) *atomic.Bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags[id]
}

// submit registers a cancellation flag and queues the job.
func (r *jobRunner) submit(run func(cancel *atomic.Bool) extract.Result, complete CompletionFunc) (JobID, error) {
	id := JobID(r.nextID.Add(1))
	flag := &atomic.Bool{}

	r.mu.Lock()
	r.flags[id] = flag
	r.mu.Unlock()

	job := &extractionJob{id: id, run: run, complete: complete}
	select {
	case r.queue <- job:
		return id, nil
	default:
		r.mu.Lock()
		delete(r.flags, id)
		r.mu.Unlock()
		return 0, ErrJobQueueFull
	}
}

// cancelJob sets the job's cancellation flag. A queued job will terminate
// immediately when the worker reaches it; a running job stops within about
// one render chunk.
func (r *jobRunner) cancelJob(id JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.flags[id]
	if !ok {
		return false
	}
	flag.Store(true)
	return true
}

// --- engine extraction surface ---

// wrapProgress routes progress callbacks through the dispatch goroutine so
// the worker never calls into caller code directly.
func (e *Engine) wrapProgress(fn extract.ProgressFunc) extract.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(progress float64) {
		e.dispatch(func() { fn(progress) })
	}
}

// ExtractTrack renders one track to outputPath synchronously on the calling
// goroutine. Progress, when non-nil, is invoked inline.
func (e *Engine) ExtractTrack(trackID, outputPath string, cfg extract.Config, progress extract.ProgressFunc) (extract.Result, error) {
	if e.released.Load() {
		return extract.Result{}, e.fail(ErrCodeNotInitialized, ErrReleased)
	}
	t, err := e.track(trackID)
	if err != nil {
		return extract.Result{}, err
	}
	e.fillExtractDefaults(&cfg, t)

	result := e.extractor.ExtractTrack(t, outputPath, cfg, progress, nil)
	if !result.Success {
		return result, e.fail(ErrCodeExtractionFailed,
			fmt.Errorf("extract track %q: %s", trackID, result.ErrorMessage))
	}
	return result, nil
}

// ExtractAllTracks renders the full mixdown to outputPath synchronously.
func (e *Engine) ExtractAllTracks(outputPath string, cfg extract.Config, progress extract.ProgressFunc) (extract.Result, error) {
	if e.released.Load() {
		return extract.Result{}, e.fail(ErrCodeNotInitialized, ErrReleased)
	}
	tracks := e.mixer.Tracks()
	if len(tracks) == 0 {
		return extract.Result{}, e.fail(ErrCodeInvalidState,
			fmt.Errorf("extract mixdown: no tracks loaded"))
	}
	e.fillExtractDefaults(&cfg, tracks[0])

	result := e.extractor.ExtractMix(tracks, outputPath, cfg, progress, nil)
	if !result.Success {
		return result, e.fail(ErrCodeExtractionFailed,
			fmt.Errorf("extract mixdown: %s", result.ErrorMessage))
	}
	return result, nil
}

// StartExtractTrack queues an asynchronous single-track extraction and
// returns its job id. Progress and completion callbacks run on the dispatch
// goroutine.
func (e *Engine) StartExtractTrack(trackID, outputPath string, cfg extract.Config, progress extract.ProgressFunc, complete CompletionFunc) (JobID, error) {
	if e.released.Load() {
		return 0, e.fail(ErrCodeNotInitialized, ErrReleased)
	}
	t, err := e.track(trackID)
	if err != nil {
		return 0, err
	}
	e.fillExtractDefaults(&cfg, t)

	wrapped := e.wrapProgress(progress)
	run := func(cancel *atomic.Bool) extract.Result {
		return e.extractor.ExtractTrack(t, outputPath, cfg, wrapped, cancel)
	}
	id, err := e.jobs.submit(run, complete)
	if err != nil {
		return 0, e.fail(ErrCodeInvalidState, err)
	}
	return id, nil
}

// StartExtractAllTracks queues an asynchronous mixdown extraction.
func (e *Engine) StartExtractAllTracks(outputPath string, cfg extract.Config, progress extract.ProgressFunc, complete CompletionFunc) (JobID, error) {
	if e.released.Load() {
		return 0, e.fail(ErrCodeNotInitialized, ErrReleased)
	}
	tracks := e.mixer.Tracks()
	if len(tracks) == 0 {
		return 0, e.fail(ErrCodeInvalidState,
			fmt.Errorf("extract mixdown: no tracks loaded"))
	}
	e.fillExtractDefaults(&cfg, tracks[0])

	wrapped := e.wrapProgress(progress)
	run := func(cancel *atomic.Bool) extract.Result {
		return e.extractor.ExtractMix(tracks, outputPath, cfg, wrapped, cancel)
	}
	id, err := e.jobs.submit(run, complete)
	if err != nil {
		return 0, e.fail(ErrCodeInvalidState, err)
	}
	return id, nil
}

// CancelExtraction requests cancellation of a queued or running job.
// Returns false if the job is unknown or already finished.
func (e *Engine) CancelExtraction(id JobID) bool {
	return e.jobs.cancelJob(id)
}

func (e *Engine) fillExtractDefaults(cfg *extract.Config, t *playback.Track) {
	if cfg.Format == "" {
		cfg.Format = "wav"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = t.SampleRate()
	}
	if cfg.BitsPerSample == 0 {
		cfg.BitsPerSample = 16
	}
}
