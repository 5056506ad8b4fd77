package rtmp

import (
	"github.com/chunkwire/rtmp/audio"
	"github.com/chunkwire/rtmp/video"
)

// AudioData is an audio message. Payload is an FLV audio tag body and is kept as received.
type AudioData struct {
	envelope
	Payload []byte
}

func NewAudioData(streamID, timestamp uint32, payload []byte) *AudioData {
	m := &AudioData{envelope: newEnvelope(AudioChannel, streamID), Payload: payload}
	m.header.Timestamp = timestamp
	return m
}

func (m *AudioData) Type() MessageType { return TypeAudio }

func (m *AudioData) MarshalRTMPMessage() ([]byte, error) {
	return m.Payload, nil
}

func (m *AudioData) UnmarshalRTMPMessage(payload []byte) error {
	m.Payload = payload
	return nil
}

// AudioHeader parses the tag header at the start of the payload.
func (m *AudioData) AudioHeader() (audio.Header, error) {
	h, _, err := audio.ParseHeader(m.Payload)
	return h, err
}

// VideoData is a video message. Payload is an FLV video tag body and is kept as received.
type VideoData struct {
	envelope
	Payload []byte
}

func NewVideoData(streamID, timestamp uint32, payload []byte) *VideoData {
	m := &VideoData{envelope: newEnvelope(VideoChannel, streamID), Payload: payload}
	m.header.Timestamp = timestamp
	return m
}

func (m *VideoData) Type() MessageType { return TypeVideo }

func (m *VideoData) MarshalRTMPMessage() ([]byte, error) {
	return m.Payload, nil
}

func (m *VideoData) UnmarshalRTMPMessage(payload []byte) error {
	m.Payload = payload
	return nil
}

func (m *VideoData) VideoHeader() (video.Header, error) {
	h, _, err := video.ParseHeader(m.Payload)
	return h, err
}
