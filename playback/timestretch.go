// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"math"
	"sync/atomic"

	"github.com/sepzie/sezoaudio/utils"
)

const (
	// grainFrames is the analysis/synthesis grain length. With a Hann
	// window and a quarter-grain hop the overlap-add envelope is flat.
	grainFrames = 1024
	synthHop    = grainFrames / 4

	// maxBlockFrames bounds a single Process call; buffers are sized so the
	// render path never allocates.
	maxBlockFrames = 8192

	activeEpsilon = 0.01
	weightEpsilon = 1e-4
)

// TimeStretch applies independent pitch shifting and time stretching using
// granular overlap-add resynthesis: grains are read from the input history
// at a rate set by the stretch factor, resampled by the pitch ratio with
// cubic interpolation, Hann-windowed and summed into the output.
//
// SetPitchSemitones and SetStretchFactor may be called from any goroutine.
// Process and Reset hold per-stream state and must only be called from the
// single rendering context (the audio callback, or an offline render loop).
type TimeStretch struct {
	sampleRate int
	channels   int

	pitchBits   atomic.Uint64
	stretchBits atomic.Uint64

	window []float32

	// Input history, deinterleaved per channel. readPos is the fractional
	// grain cursor into it.
	in      [][]float32
	inLen   int
	readPos float64

	// Synthesis accumulation ahead of the emit point, plus the summed
	// window weight used for normalization.
	ola       [][]float32
	weight    []float32
	extent    int
	nextGrain int
}

func NewTimeStretch(sampleRate, channels int) *TimeStretch {
	if channels < 1 {
		channels = 1
	}

	t := &TimeStretch{
		sampleRate: sampleRate,
		channels:   channels,
		window:     utils.HannWindow(grainFrames),
		in:         make([][]float32, channels),
		ola:        make([][]float32, channels),
		weight:     make([]float32, maxBlockFrames+grainFrames+synthHop),
	}
	for c := 0; c < channels; c++ {
		t.in[c] = make([]float32, grainFrames+2*maxBlockFrames+64)
		t.ola[c] = make([]float32, maxBlockFrames+grainFrames+synthHop)
	}

	t.stretchBits.Store(math.Float64bits(1.0))
	return t
}

// SetPitchSemitones sets the pitch shift in [-12, +12] semitones.
func (t *TimeStretch) SetPitchSemitones(semitones float64) {
	if semitones < -12 {
		semitones = -12
	} else if semitones > 12 {
		semitones = 12
	}
	t.pitchBits.Store(math.Float64bits(semitones))
}

// SetStretchFactor sets the speed factor in [0.5, 2.0]. 2.0 consumes input
// twice as fast (half the duration).
func (t *TimeStretch) SetStretchFactor(factor float64) {
	if factor < 0.5 {
		factor = 0.5
	} else if factor > 2.0 {
		factor = 2.0
	}
	t.stretchBits.Store(math.Float64bits(factor))
}

func (t *TimeStretch) PitchSemitones() float64 {
	return math.Float64frombits(t.pitchBits.Load())
}

func (t *TimeStretch) StretchFactor() float64 {
	return math.Float64frombits(t.stretchBits.Load())
}

// IsActive reports whether Process would alter the signal. When false,
// Process is a bit-exact copy with no added latency.
func (t *TimeStretch) IsActive() bool {
	return math.Abs(t.PitchSemitones()) > activeEpsilon ||
		math.Abs(t.StretchFactor()-1.0) > activeEpsilon
}

// Process consumes inputFrames interleaved frames and produces exactly
// outputFrames interleaved frames. The caller supplies input at the rate
// implied by the stretch factor (inputFrames ~= outputFrames*stretch plus a
// carried fraction); the grain scheduler consumes at the same rate, so the
// history buffer stays bounded. Output is always finite, and silent input
// produces silence for any pitch/stretch setting.
func (t *TimeStretch) Process(input []float32, inputFrames int, output []float32, outputFrames int) {
	if outputFrames == 0 {
		return
	}

	if !t.IsActive() {
		copyFrames := min(inputFrames, outputFrames)
		n := copyFrames * t.channels
		copy(output[:n], input[:n])
		zeroFill(output[n : outputFrames*t.channels])
		return
	}

	t.appendInput(input, inputFrames)

	pitchRatio := math.Pow(2, t.PitchSemitones()/12)
	analysisHop := t.StretchFactor() * synthHop

	for t.nextGrain < outputFrames {
		t.layGrain(t.nextGrain, pitchRatio)
		t.readPos += analysisHop
		t.nextGrain += synthHop
	}

	t.emit(output, outputFrames)
	t.compact(outputFrames)
}

// Reset clears all grain and fractional state. Call after a seek or any
// stream discontinuity; stale history would smear across the edit point.
func (t *TimeStretch) Reset() {
	t.inLen = 0
	t.readPos = 0
	t.extent = 0
	t.nextGrain = 0
	for c := range t.ola {
		zeroFill(t.ola[c])
	}
	zeroFill(t.weight)
}

func (t *TimeStretch) appendInput(input []float32, frames int) {
	if frames <= 0 {
		return
	}

	need := t.inLen + frames
	if need > len(t.in[0]) {
		// Off-contract oversized block; grow outside the normal path.
		for c := range t.in {
			grown := make([]float32, need+grainFrames)
			copy(grown, t.in[c][:t.inLen])
			t.in[c] = grown
		}
	}

	if t.channels == 1 {
		copy(t.in[0][t.inLen:need], input[:frames])
	} else {
		for i := 0; i < frames; i++ {
			base := i * t.channels
			for c := 0; c < t.channels; c++ {
				t.in[c][t.inLen+i] = input[base+c]
			}
		}
	}
	t.inLen = need
}

func (t *TimeStretch) layGrain(at int, pitchRatio float64) {
	for c := 0; c < t.channels; c++ {
		history := t.in[c][:t.inLen]
		dst := t.ola[c]
		for i := 0; i < grainFrames; i++ {
			pos := t.readPos + float64(i)*pitchRatio
			dst[at+i] += utils.CubicInterpolateAt(history, pos) * t.window[i]
		}
	}
	for i := 0; i < grainFrames; i++ {
		t.weight[at+i] += t.window[i]
	}
	if at+grainFrames > t.extent {
		t.extent = at + grainFrames
	}
}

func (t *TimeStretch) emit(output []float32, frames int) {
	for i := 0; i < frames; i++ {
		w := t.weight[i]
		base := i * t.channels
		if w > weightEpsilon {
			inv := 1 / w
			for c := 0; c < t.channels; c++ {
				output[base+c] = t.ola[c][i] * inv
			}
		} else {
			for c := 0; c < t.channels; c++ {
				output[base+c] = 0
			}
		}
	}
}

func (t *TimeStretch) compact(emitted int) {
	// Slide the un-emitted synthesis tail and its weights to the front.
	remain := t.extent - emitted
	if remain < 0 {
		remain = 0
	}
	for c := 0; c < t.channels; c++ {
		copy(t.ola[c][:remain], t.ola[c][emitted:t.extent])
		zeroFill(t.ola[c][remain:t.extent])
	}
	copy(t.weight[:remain], t.weight[emitted:t.extent])
	zeroFill(t.weight[remain:t.extent])
	t.extent = remain
	t.nextGrain -= emitted

	// Drop consumed input history, keeping one grain of margin for the
	// interpolation neighborhood.
	drop := int(t.readPos) - grainFrames
	if drop > 0 {
		for c := 0; c < t.channels; c++ {
			copy(t.in[c][:t.inLen-drop], t.in[c][drop:t.inLen])
		}
		t.inLen -= drop
		t.readPos -= float64(drop)
	}
}

func zeroFill(dst []float32) {
	for i := range dst {
		dst[i] = 0
	}
}
