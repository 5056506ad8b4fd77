// Package video reads the FLV video tag header at the start of every RTMP video message payload.
package video

import "github.com/pkg/errors"

// As defined in the FLV spec: https://www.adobe.com/content/dam/acom/en/devnet/flv/video_file_format_spec_v10_1.pdf

type FrameType uint8

const (
	KeyFrame             FrameType = 1
	InterFrame           FrameType = 2
	DisposableInterFrame FrameType = 3
	GeneratedKeyFrame    FrameType = 4
	// Video info/command frame
	CommandFrame FrameType = 5
)

type Codec uint8

const (
	SorensonH263    Codec = 2
	ScreenVideo     Codec = 3
	VP6             Codec = 4
	VP6AlphaChannel Codec = 5
	ScreenVideoV2   Codec = 6
	H264            Codec = 7
)

type AVCPacketType uint8

const (
	AVCSequenceHeader AVCPacketType = 0
	AVCNALU           AVCPacketType = 1
	AVCEndOfSequence  AVCPacketType = 2
)

var ErrShortPayload = errors.New("video: payload too short for a video tag header")

// Header is the video tag header. AVCPacketType and CompositionTime are only set for H264.
type Header struct {
	FrameType       FrameType
	Codec           Codec
	AVCPacketType   AVCPacketType
	CompositionTime int32
}

// ParseHeader reads the tag header from payload and returns it with the number of bytes it used.
func ParseHeader(payload []byte) (Header, int, error) {
	if len(payload) < 1 {
		return Header{}, 0, ErrShortPayload
	}
	h := Header{
		FrameType: FrameType(payload[0] >> 4),
		Codec:     Codec(payload[0] & 0x0F),
	}
	if h.Codec != H264 {
		return h, 1, nil
	}
	if len(payload) < 5 {
		return h, 0, errors.Wrapf(ErrShortPayload, "avc packet with %d bytes", len(payload))
	}
	h.AVCPacketType = AVCPacketType(payload[1])
	// signed 24-bit
	ct := int32(payload[2])<<16 | int32(payload[3])<<8 | int32(payload[4])
	if ct&0x800000 != 0 {
		ct -= 1 << 24
	}
	h.CompositionTime = ct
	return h, 5, nil
}

// IsSequenceHeader reports whether the header starts an AVC decoder configuration record.
func (h Header) IsSequenceHeader() bool {
	return h.Codec == H264 && h.AVCPacketType == AVCSequenceHeader
}

func (h Header) IsKeyFrame() bool {
	return h.FrameType == KeyFrame || h.FrameType == GeneratedKeyFrame
}
