package audio

import (
	"testing"

	"github.com/pkg/errors"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    Header
		n       int
	}{
		{"aac sequence header", []byte{0xAF, 0x00, 0x12, 0x10}, Header{AAC, Rate44KHz, Size16Bit, Stereo, AACSequenceHeader}, 2},
		{"aac raw", []byte{0xAF, 0x01, 0x21}, Header{AAC, Rate44KHz, Size16Bit, Stereo, AACRaw}, 2},
		{"mp3 mono", []byte{0x2C, 0xFF}, Header{MP3, Rate44KHz, Size8Bit, Mono, 0}, 1},
		{"speex", []byte{0xB2}, Header{Speex, Rate5p5KHz, Size16Bit, Mono, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, n, err := ParseHeader(tt.payload)
			if err != nil {
				t.Fatalf("ParseHeader() error = %v", err)
			}
			if h != tt.want || n != tt.n {
				t.Errorf("ParseHeader() = %+v, %d, want %+v, %d", h, n, tt.want, tt.n)
			}
		})
	}
}

func TestParseHeaderShort(t *testing.T) {
	for _, payload := range [][]byte{nil, {0xAF}} {
		if _, _, err := ParseHeader(payload); errors.Cause(err) != ErrShortPayload {
			t.Errorf("ParseHeader(%x) error = %v, want ErrShortPayload", payload, err)
		}
	}
}

func TestSequenceHeaderAndRate(t *testing.T) {
	h, _, _ := ParseHeader([]byte{0xAF, 0x00})
	if !h.IsSequenceHeader() {
		t.Error("expected sequence header")
	}
	if h.SampleRate.Hz() != 44100 {
		t.Errorf("Hz() = %d, want 44100", h.SampleRate.Hz())
	}
}
