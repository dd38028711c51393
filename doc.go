// SPDX-License-Identifier: EPL-2.0

// Package sezoaudio provides a low-latency multi-track audio engine for Go
// applications.
//
// The engine loads several audio sources, keeps them sample-accurately
// synchronized on one shared timeline, and mixes them with per-track
// volume, pan, mute, solo, and independent pitch/speed transformation. Any
// track or the full mix can also be rendered offline to a file with the
// same effects applied.
//
// # Supported Formats
//
// The engine decodes the following audio formats:
//   - WAV (PCM 16-bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF (PCM 16-bit) via formats/aiff
//
// Extraction and recording encode to WAV (PCM 16/24-bit). Additional
// encoders can be registered through the audio.Registry.
//
// # Quick Start
//
//	engine, err := sezoaudio.New(sezoaudio.Config{SampleRate: 48000})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer engine.Release()
//
//	engine.LoadTrack("vocals", "vocals.wav", 0)
//	engine.LoadTrack("guitar", "guitar.mp3", 250)
//	engine.SetTrackVolume("guitar", 0.8)
//	engine.Play()
//
// For audible output pass a Player (see driver/beepout) in the Config. For
// offline use (extraction, tests) leave it nil and the engine renders only
// on demand.
//
// # Offline Extraction
//
// Extraction jobs run one at a time on a serial worker:
//
//	id, _ := engine.StartExtractTrack("vocals", "out.wav",
//		extract.Config{Format: "wav", IncludeEffects: true},
//		func(p float64) { fmt.Printf("%.0f%%\n", p*100) },
//		func(id sezoaudio.JobID, r extract.Result) { fmt.Println("done:", r.Success) })
//	// ...
//	engine.CancelExtraction(id)
//
// # Concurrency
//
// The render path (Mixer, Track.ReadSamples, the streaming ring buffer) is
// real-time safe: it never allocates, locks, or performs I/O. Control
// operations may be called from any goroutine; progress, completion, and
// error callbacks are delivered from a single dispatch goroutine.
package sezoaudio
