package video

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
		{"avc sequence header", []byte{0x17, 0x00, 0x00, 0x00, 0x00, 0x01}, Header{KeyFrame, H264, AVCSequenceHeader, 0}, 5},
		{"avc nalu with composition time", []byte{0x27, 0x01, 0x00, 0x00, 0x50}, Header{InterFrame, H264, AVCNALU, 80}, 5},
		{"negative composition time", []byte{0x27, 0x01, 0xFF, 0xFF, 0xFE}, Header{InterFrame, H264, AVCNALU, -2}, 5},
		{"vp6", []byte{0x14, 0xAA}, Header{KeyFrame, VP6, 0, 0}, 1},
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
	for _, payload := range [][]byte{nil, {0x17, 0x00}} {
		if _, _, err := ParseHeader(payload); errors.Cause(err) != ErrShortPayload {
			t.Errorf("ParseHeader(%x) error = %v, want ErrShortPayload", payload, err)
		}
	}
}

func TestKeyFrameAndSequenceHeader(t *testing.T) {
	h, _, _ := ParseHeader([]byte{0x17, 0x00, 0, 0, 0})
	if !h.IsKeyFrame() || !h.IsSequenceHeader() {
		t.Errorf("header %+v: want key frame sequence header", h)
	}
}
