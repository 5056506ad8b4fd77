package rtmp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

type UserControlEvent uint16

const (
	EventStreamBegin      UserControlEvent = 0
	EventStreamEOF        UserControlEvent = 1
	EventStreamDry        UserControlEvent = 2
	EventSetBufferLength  UserControlEvent = 3
	EventStreamIsRecorded UserControlEvent = 4
	EventPingRequest      UserControlEvent = 6
	EventPingResponse     UserControlEvent = 7
	EventBufferEmpty      UserControlEvent = 31
	EventBufferReady      UserControlEvent = 32
)

// UserControl carries a user control event. StreamID is set for the stream events,
// BufferLength (in milliseconds) for EventSetBufferLength and Timestamp for the ping events.
// Any other event, such as the buffer events some servers send to players, keeps its event
// data in Data.
type UserControl struct {
	envelope
	Event        UserControlEvent
	StreamID     uint32
	BufferLength uint32
	Timestamp    uint32
	Data         []byte
}

func newUserControl(event UserControlEvent) *UserControl {
	return &UserControl{envelope: newEnvelope(ProtocolChannel, 0), Event: event}
}

func NewStreamBegin(streamID uint32) *UserControl {
	m := newUserControl(EventStreamBegin)
	m.StreamID = streamID
	return m
}

func NewStreamEOF(streamID uint32) *UserControl {
	m := newUserControl(EventStreamEOF)
	m.StreamID = streamID
	return m
}

func NewSetBufferLength(streamID, bufferLength uint32) *UserControl {
	m := newUserControl(EventSetBufferLength)
	m.StreamID = streamID
	m.BufferLength = bufferLength
	return m
}

func NewPingRequest(timestamp uint32) *UserControl {
	m := newUserControl(EventPingRequest)
	m.Timestamp = timestamp
	return m
}

func NewPingResponse(timestamp uint32) *UserControl {
	m := newUserControl(EventPingResponse)
	m.Timestamp = timestamp
	return m
}

func (m *UserControl) Type() MessageType { return TypeUserControl }

func (m *UserControl) MarshalRTMPMessage() ([]byte, error) {
	var payload []byte
	switch m.Event {
	case EventStreamBegin, EventStreamEOF, EventStreamDry, EventStreamIsRecorded:
		payload = make([]byte, 6)
		binary.BigEndian.PutUint32(payload[2:], m.StreamID)
	case EventSetBufferLength:
		payload = make([]byte, 10)
		binary.BigEndian.PutUint32(payload[2:], m.StreamID)
		binary.BigEndian.PutUint32(payload[6:], m.BufferLength)
	case EventPingRequest, EventPingResponse:
		payload = make([]byte, 6)
		binary.BigEndian.PutUint32(payload[2:], m.Timestamp)
	default:
		payload = make([]byte, 2+len(m.Data))
		copy(payload[2:], m.Data)
	}
	binary.BigEndian.PutUint16(payload, uint16(m.Event))
	return payload, nil
}

func (m *UserControl) UnmarshalRTMPMessage(payload []byte) error {
	if len(payload) < 2 {
		return errors.Wrapf(ErrTruncatedPayload, "user control: %d byte payload", len(payload))
	}
	m.Event = UserControlEvent(binary.BigEndian.Uint16(payload))
	data := payload[2:]
	var err error
	switch m.Event {
	case EventStreamBegin, EventStreamEOF, EventStreamDry, EventStreamIsRecorded:
		m.StreamID, err = readUint32(data, "user control stream event")
	case EventSetBufferLength:
		if len(data) < 8 {
			return errors.Wrapf(ErrTruncatedPayload, "set buffer length: %d byte event data", len(data))
		}
		m.StreamID = binary.BigEndian.Uint32(data)
		m.BufferLength = binary.BigEndian.Uint32(data[4:])
	case EventPingRequest, EventPingResponse:
		m.Timestamp, err = readUint32(data, "ping")
	default:
		m.Data = append([]byte(nil), data...)
	}
	return err
}
