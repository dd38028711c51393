// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"testing"
)

type stubDecoder struct{}

func (stubDecoder) Open(path string) (TrackSource, error) { return nil, nil }

type stubEncoder struct{ Encoder }

func TestRegistry_Decoders(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterDecoder("wav", stubDecoder{})

	if _, ok := r.Decoder("wav"); !ok {
		t.Error("Decoder(\"wav\") not found after RegisterDecoder")
	}
	if _, ok := r.Decoder("flac"); ok {
		t.Error("Decoder(\"flac\") found, want missing")
	}
}

func TestRegistry_Encoders(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterEncoder("wav", func() Encoder { return &stubEncoder{} })

	first, ok := r.NewEncoder("wav")
	if !ok {
		t.Fatal("NewEncoder(\"wav\") not found after RegisterEncoder")
	}
	second, _ := r.NewEncoder("wav")
	if first == second {
		t.Error("NewEncoder returned the same instance twice, want a fresh encoder per call")
	}

	if _, ok := r.NewEncoder("flac"); ok {
		t.Error("NewEncoder(\"flac\") found, want missing")
	}
}
