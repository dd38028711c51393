// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"encoding/binary"
	"math"
	"os"
)

// WriteWavFixture writes a PCM 16-bit WAV file containing a sine wave, for
// tests that need a real file on disk. The header is written by hand so the
// fixture does not depend on any encoder under test.
func WriteWavFixture(path string, sampleRate, channels, totalFrames int, frequency float64) error {
	dataSize := totalFrames * channels * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	byteRate := sampleRate * channels * 2
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for frame := 0; frame < totalFrames; frame++ {
		t := float64(frame) / float64(sampleRate)
		sample := int16(math.Sin(2*math.Pi*frequency*t) * 0.5 * 32767)
		for ch := 0; ch < channels; ch++ {
			offset := 44 + (frame*channels+ch)*2
			binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(sample))
		}
	}

	return os.WriteFile(path, buf, 0o644)
}
