// SPDX-License-Identifier: EPL-2.0

// Package wav provides the PCM WAV container implementations: a streaming
// 16-bit decoder with frame-accurate seeking (the data chunk is addressed
// directly, so a seek is a single file offset computation), and an encoder
// built on go-audio/wav used by the extraction and recording pipelines.
//
// Decoding restrictions match the rest of the engine: integer PCM, 16-bit
// samples. Chunk walking tolerates metadata chunks (LIST, fact, ...) before
// the data chunk.
package wav
