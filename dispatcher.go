package rtmp

import "github.com/pkg/errors"

// DecodeMessage turns a reassembled payload into its message variant. Types without a decoder
// (abort, shared objects, AMF3, aggregate) become an UnknownMessage.
func DecodeMessage(typeID MessageType, header ChunkHeader, payload []byte) (Message, error) {
	var msg Message
	switch typeID {
	case TypeSetChunkSize:
		msg = &SetChunkSize{}
	case TypeAcknowledgement:
		msg = &Acknowledgement{}
	case TypeUserControl:
		msg = &UserControl{}
	case TypeWindowAckSize:
		msg = &WindowAckSize{}
	case TypeSetPeerBandwidth:
		msg = &SetPeerBandwidth{}
	case TypeAudio:
		msg = &AudioData{}
	case TypeVideo:
		msg = &VideoData{}
	case TypeDataAMF0:
		msg = &DataMessage{}
	case TypeCommandAMF0:
		name, err := commandName(payload)
		if err != nil {
			return nil, err
		}
		if IsConnectionCommand(name) {
			msg = &NetConnectionCommand{}
		} else {
			msg = &NetStreamCommand{}
		}
	default:
		msg = &UnknownMessage{TypeID: typeID}
	}

	if err := msg.UnmarshalRTMPMessage(payload); err != nil {
		return nil, errors.Wrapf(err, "decoding message type %d", typeID)
	}
	msg.SetHeader(header)
	return msg, nil
}
