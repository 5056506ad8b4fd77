package rtmp

import (
	"github.com/chunkwire/rtmp/internal/binary24"
	"github.com/pkg/errors"
)

type MessageType uint8

const (
	TypeSetChunkSize MessageType = 1 + iota
	TypeAbortMessage
	TypeAcknowledgement
	TypeUserControl
	TypeWindowAckSize
	TypeSetPeerBandwidth

	TypeAudio MessageType = 8
	TypeVideo MessageType = 9

	TypeDataAMF3         MessageType = 15
	TypeSharedObjectAMF3 MessageType = 16
	TypeCommandAMF3      MessageType = 17

	TypeDataAMF0         MessageType = 18
	TypeSharedObjectAMF0 MessageType = 19
	TypeCommandAMF0      MessageType = 20

	TypeAggregate MessageType = 22
)

// Chunk stream ids used for outbound messages that don't set their own.
const (
	ProtocolChannel = 2
	CommandChannel  = 3
	AudioChannel    = 4
	DataChannel     = 5
	VideoChannel    = 7
)

func (t MessageType) isProtocolControl() bool {
	return t >= TypeSetChunkSize && t <= TypeSetPeerBandwidth
}

// Message is a complete, reassembled RTMP message. Header returns the chunk header the message
// arrived with; for outbound messages it holds the chunk stream id, message stream id and
// timestamp to send with.
type Message interface {
	RTMPMessageMarshaler
	RTMPMessageUnmarshaler
	Type() MessageType
	Header() ChunkHeader
	SetHeader(header ChunkHeader)
}

type envelope struct {
	header ChunkHeader
}

func newEnvelope(csid, streamID uint32) envelope {
	return envelope{header: ChunkHeader{ChunkStreamID: csid, MessageStreamID: streamID}}
}

func (e *envelope) Header() ChunkHeader {
	return e.header
}

func (e *envelope) SetHeader(header ChunkHeader) {
	e.header = header
}

// OutboundHeader marshals msg and fills in the header it will be sent with. Protocol control
// and user control messages always travel on chunk stream 2 and message stream 0.
func OutboundHeader(msg Message) (ChunkHeader, []byte, error) {
	payload, err := msg.MarshalRTMPMessage()
	if err != nil {
		return ChunkHeader{}, nil, err
	}
	if len(payload) > binary24.MaxUint24 {
		return ChunkHeader{}, nil, errors.Wrapf(ErrMessageTooLarge, "%d byte payload", len(payload))
	}
	h := msg.Header()
	h.MessageTypeID = msg.Type()
	h.MessageLength = uint32(len(payload))
	if h.MessageTypeID.isProtocolControl() {
		h.ChunkStreamID = ProtocolChannel
		h.MessageStreamID = 0
	} else if h.ChunkStreamID < MinChunkStreamID {
		h.ChunkStreamID = defaultChunkStreamID(h.MessageTypeID)
	}
	return h, payload, nil
}

func defaultChunkStreamID(t MessageType) uint32 {
	switch t {
	case TypeAudio:
		return AudioChannel
	case TypeVideo:
		return VideoChannel
	case TypeDataAMF0, TypeDataAMF3:
		return DataChannel
	default:
		return CommandChannel
	}
}
