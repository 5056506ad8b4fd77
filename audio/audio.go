// Package audio reads the FLV audio tag header at the start of every RTMP audio message payload.
package audio

import "github.com/pkg/errors"

// As defined in the FLV spec: https://www.adobe.com/content/dam/acom/en/devnet/flv/video_file_format_spec_v10_1.pdf

type Format uint8

const (
	LinearPCMPlatformEndian Format = 0
	ADPCM                   Format = 1
	MP3                     Format = 2
	LinearPCMLittleEndian   Format = 3
	Nellymoser16KHzMono     Format = 4
	Nellymoser8KHzMono      Format = 5
	Nellymoser              Format = 6
	G711AlawLogPCM          Format = 7
	G711MulawLogPCM         Format = 8
	AAC                     Format = 10
	Speex                   Format = 11
	MP38KHz                 Format = 14
	DeviceSpecificSound     Format = 15
)

type SampleRate uint8

const (
	Rate5p5KHz SampleRate = 0
	Rate11KHz  SampleRate = 1
	Rate22KHz  SampleRate = 2
	Rate44KHz  SampleRate = 3
)

// Hz returns the sample rate in hertz.
func (r SampleRate) Hz() int {
	switch r {
	case Rate5p5KHz:
		return 5512
	case Rate11KHz:
		return 11025
	case Rate22KHz:
		return 22050
	default:
		return 44100
	}
}

type SampleSize uint8

const (
	Size8Bit  SampleSize = 0
	Size16Bit SampleSize = 1
)

type Channel uint8

const (
	Mono   Channel = 0
	Stereo Channel = 1
)

type AACPacketType uint8

const (
	AACSequenceHeader AACPacketType = 0
	AACRaw            AACPacketType = 1
)

var ErrShortPayload = errors.New("audio: payload too short for an audio tag header")

// Header is the audio tag header. AACPacketType is only set for AAC.
type Header struct {
	Format        Format
	SampleRate    SampleRate
	SampleSize    SampleSize
	Channel       Channel
	AACPacketType AACPacketType
}

// ParseHeader reads the tag header from payload and returns it with the number of bytes it used.
func ParseHeader(payload []byte) (Header, int, error) {
	if len(payload) < 1 {
		return Header{}, 0, ErrShortPayload
	}
	b := payload[0]
	h := Header{
		Format:     Format(b >> 4),
		SampleRate: SampleRate((b >> 2) & 0x03),
		SampleSize: SampleSize((b >> 1) & 0x01),
		Channel:    Channel(b & 0x01),
	}
	if h.Format != AAC {
		return h, 1, nil
	}
	if len(payload) < 2 {
		return h, 0, errors.Wrap(ErrShortPayload, "aac packet without packet type")
	}
	h.AACPacketType = AACPacketType(payload[1])
	return h, 2, nil
}

// IsSequenceHeader reports whether the header starts an AAC AudioSpecificConfig.
func (h Header) IsSequenceHeader() bool {
	return h.Format == AAC && h.AACPacketType == AACSequenceHeader
}
