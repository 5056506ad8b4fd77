package rtmp

import (
	"encoding/binary"

	"github.com/chunkwire/rtmp/config"
	"github.com/pkg/errors"
)

type LimitType uint8

const (
	LimitHard    LimitType = 0
	LimitSoft    LimitType = 1
	LimitDynamic LimitType = 2
	// Not on the wire. It's the state before any SetPeerBandwidth message was received, so a
	// LimitDynamic message has nothing to inherit from.
	LimitNotSet LimitType = 3
)

// SetChunkSize announces the maximum chunk payload size the sender will use from now on.
type SetChunkSize struct {
	envelope
	ChunkSize uint32
}

func NewSetChunkSize(size uint32) *SetChunkSize {
	return &SetChunkSize{envelope: newEnvelope(ProtocolChannel, 0), ChunkSize: size}
}

func (m *SetChunkSize) Type() MessageType { return TypeSetChunkSize }

func (m *SetChunkSize) MarshalRTMPMessage() ([]byte, error) {
	if err := validateChunkSize(m.ChunkSize); err != nil {
		return nil, err
	}
	return putUint32(m.ChunkSize), nil
}

func (m *SetChunkSize) UnmarshalRTMPMessage(payload []byte) error {
	size, err := readUint32(payload, "set chunk size")
	if err != nil {
		return err
	}
	m.ChunkSize = size
	return validateChunkSize(size)
}

func validateChunkSize(size uint32) error {
	if size == 0 || size > config.MaxChunkSize {
		return errors.Wrapf(ErrInvalidChunkSize, "got %d", size)
	}
	return nil
}

// Acknowledgement reports the number of bytes received so far.
type Acknowledgement struct {
	envelope
	SequenceNumber uint32
}

func NewAcknowledgement(sequenceNumber uint32) *Acknowledgement {
	return &Acknowledgement{envelope: newEnvelope(ProtocolChannel, 0), SequenceNumber: sequenceNumber}
}

func (m *Acknowledgement) Type() MessageType { return TypeAcknowledgement }

func (m *Acknowledgement) MarshalRTMPMessage() ([]byte, error) {
	return putUint32(m.SequenceNumber), nil
}

func (m *Acknowledgement) UnmarshalRTMPMessage(payload []byte) error {
	var err error
	m.SequenceNumber, err = readUint32(payload, "acknowledgement")
	return err
}

// WindowAckSize asks the receiver to send an Acknowledgement every WindowSize bytes.
type WindowAckSize struct {
	envelope
	WindowSize uint32
}

func NewWindowAckSize(size uint32) *WindowAckSize {
	return &WindowAckSize{envelope: newEnvelope(ProtocolChannel, 0), WindowSize: size}
}

func (m *WindowAckSize) Type() MessageType { return TypeWindowAckSize }

func (m *WindowAckSize) MarshalRTMPMessage() ([]byte, error) {
	return putUint32(m.WindowSize), nil
}

func (m *WindowAckSize) UnmarshalRTMPMessage(payload []byte) error {
	var err error
	m.WindowSize, err = readUint32(payload, "window acknowledgement size")
	return err
}

type SetPeerBandwidth struct {
	envelope
	WindowSize uint32
	LimitType  LimitType
}

func NewSetPeerBandwidth(size uint32, limit LimitType) *SetPeerBandwidth {
	return &SetPeerBandwidth{envelope: newEnvelope(ProtocolChannel, 0), WindowSize: size, LimitType: limit}
}

func (m *SetPeerBandwidth) Type() MessageType { return TypeSetPeerBandwidth }

func (m *SetPeerBandwidth) MarshalRTMPMessage() ([]byte, error) {
	payload := make([]byte, 5)
	binary.BigEndian.PutUint32(payload, m.WindowSize)
	payload[4] = byte(m.LimitType)
	return payload, nil
}

func (m *SetPeerBandwidth) UnmarshalRTMPMessage(payload []byte) error {
	if len(payload) < 5 {
		return errors.Wrapf(ErrTruncatedPayload, "set peer bandwidth: %d byte payload", len(payload))
	}
	m.WindowSize = binary.BigEndian.Uint32(payload)
	m.LimitType = LimitType(payload[4])
	return nil
}

func putUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func readUint32(payload []byte, what string) (uint32, error) {
	if len(payload) < 4 {
		return 0, errors.Wrapf(ErrTruncatedPayload, "%s: %d byte payload", what, len(payload))
	}
	return binary.BigEndian.Uint32(payload), nil
}

// ProtocolParameters are the per-connection values changed by protocol control messages.
// The inbound and outbound chunk sizes are independent: each side announces the size it sends with.
type ProtocolParameters struct {
	InChunkSize  uint32
	OutChunkSize uint32
	// WindowAckSize is the window announced by the peer. Zero disables acknowledgements.
	WindowAckSize uint32
	// PeerBandwidth and LimitType are the output bandwidth limit the peer asked for.
	PeerBandwidth uint32
	LimitType     LimitType
}

func DefaultProtocolParameters() ProtocolParameters {
	return ProtocolParameters{
		InChunkSize:  config.ProtocolChunkSize,
		OutChunkSize: config.ProtocolChunkSize,
		LimitType:    LimitNotSet,
	}
}

// applyInbound updates the parameters for a protocol control message received from the peer.
func (p *ProtocolParameters) applyInbound(msg Message) {
	switch m := msg.(type) {
	case *SetChunkSize:
		p.InChunkSize = m.ChunkSize
	case *WindowAckSize:
		p.WindowAckSize = m.WindowSize
	case *SetPeerBandwidth:
		p.applyPeerBandwidth(m.WindowSize, m.LimitType)
	}
}

func (p *ProtocolParameters) applyPeerBandwidth(size uint32, limit LimitType) {
	switch limit {
	case LimitHard:
		p.PeerBandwidth, p.LimitType = size, LimitHard
	case LimitSoft:
		// Soft: keep whichever limit is smaller.
		if p.LimitType == LimitNotSet || size < p.PeerBandwidth {
			p.PeerBandwidth = size
		}
		p.LimitType = LimitSoft
	case LimitDynamic:
		if p.LimitType == LimitHard {
			p.PeerBandwidth = size
		}
	}
}

// applyOutbound updates the parameters for a protocol control message that was just sent.
func (p *ProtocolParameters) applyOutbound(msg Message) {
	if m, ok := msg.(*SetChunkSize); ok {
		p.OutChunkSize = m.ChunkSize
	}
}
