package rtmp

type RTMPMessageMarshaler interface {
	MarshalRTMPMessage() (payload []byte, err error)
}

type RTMPMessageUnmarshaler interface {
	UnmarshalRTMPMessage(payload []byte) error
}
