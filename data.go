package rtmp

import "github.com/chunkwire/rtmp/amf/amf0"

// DataMessage is an AMF0 data message such as @setDataFrame or onMetaData. Values are kept in order.
type DataMessage struct {
	envelope
	Values []amf0.Value
}

func NewDataMessage(streamID uint32, values ...amf0.Value) *DataMessage {
	return &DataMessage{envelope: newEnvelope(DataChannel, streamID), Values: values}
}

func (m *DataMessage) Type() MessageType { return TypeDataAMF0 }

// Name returns the first value if it is a string.
func (m *DataMessage) Name() string {
	if len(m.Values) == 0 {
		return ""
	}
	s, _ := m.Values[0].(string)
	return s
}

func (m *DataMessage) MarshalRTMPMessage() ([]byte, error) {
	return amf0.EncodeAll(m.Values...)
}

func (m *DataMessage) UnmarshalRTMPMessage(payload []byte) error {
	values, err := amf0.DecodeAll(payload)
	if err != nil {
		return err
	}
	m.Values = values
	return nil
}

// UnknownMessage is any message type without a decoder. The payload is kept as received.
type UnknownMessage struct {
	envelope
	TypeID  MessageType
	Payload []byte
}

func (m *UnknownMessage) Type() MessageType { return m.TypeID }

func (m *UnknownMessage) MarshalRTMPMessage() ([]byte, error) {
	return m.Payload, nil
}

func (m *UnknownMessage) UnmarshalRTMPMessage(payload []byte) error {
	m.Payload = payload
	return nil
}
