package rtmp

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/chunkwire/rtmp/rand"
	"github.com/pkg/errors"
)

const RtmpVersion3 = 3

const (
	handshakePacketSize = 1536
	handshakeRandomSize = handshakePacketSize - 8
	// S2 and C2 carry the peer's time plus this offset in their second field.
	handshakeEchoOffset = 2000
)

type Handshaker interface {
	Handshake(reader io.Reader, writer WriteFlusher) error
}

// handshakePacket is the layout shared by C1, S1, C2 and S2.
type handshakePacket struct {
	time   uint32
	zero   uint32
	random [handshakeRandomSize]byte
}

func newHandshakePacket() (*handshakePacket, error) {
	p := &handshakePacket{}
	if err := rand.GenerateCryptoSafeRandomData(p.random[:]); err != nil {
		return nil, err
	}
	return p, nil
}

// echo builds the S2/C2 reply to the peer's S1/C1.
func (p *handshakePacket) echo() *handshakePacket {
	return &handshakePacket{
		time:   p.time,
		zero:   p.time + handshakeEchoOffset,
		random: p.random,
	}
}

func (p *handshakePacket) marshal(b []byte) {
	binary.BigEndian.PutUint32(b[0:4], p.time)
	binary.BigEndian.PutUint32(b[4:8], p.zero)
	copy(b[8:], p.random[:])
}

func readHandshakePacket(r io.Reader) (*handshakePacket, error) {
	var b [handshakePacketSize]byte
	if err := readFull(r, b[:]); err != nil {
		return nil, err
	}
	p := &handshakePacket{
		time: binary.BigEndian.Uint32(b[0:4]),
		zero: binary.BigEndian.Uint32(b[4:8]),
	}
	copy(p.random[:], b[8:])
	return p, nil
}

func readVersion(r io.Reader) error {
	var v [1]byte
	if err := readFull(r, v[:]); err != nil {
		return err
	}
	if v[0] != RtmpVersion3 {
		return errors.Wrapf(ErrHandshakeMismatch, "unsupported version %d", v[0])
	}
	return nil
}

// ServerHandshaker performs the server side of the plain (unencrypted) handshake.
// When StrictZero is set, a C1 with a non-zero second field or a C2 that doesn't echo S1 is
// rejected. Flash and most encoders don't send zeros there, so the check is off by default.
type ServerHandshaker struct {
	StrictZero bool
}

func (h ServerHandshaker) Handshake(reader io.Reader, writer WriteFlusher) error {
	if err := readVersion(reader); err != nil {
		return err
	}
	c1, err := readHandshakePacket(reader)
	if err != nil {
		return err
	}
	if h.StrictZero && c1.zero != 0 {
		return errors.Wrapf(ErrHandshakeMismatch, "c1 zero field is %d", c1.zero)
	}

	s1, err := newHandshakePacket()
	if err != nil {
		return err
	}
	var s0s1s2 [1 + 2*handshakePacketSize]byte
	s0s1s2[0] = RtmpVersion3
	s1.marshal(s0s1s2[1 : 1+handshakePacketSize])
	c1.echo().marshal(s0s1s2[1+handshakePacketSize:])
	if err = send(writer, s0s1s2[:]); err != nil {
		return err
	}

	c2, err := readHandshakePacket(reader)
	if err != nil {
		return err
	}
	if h.StrictZero && !bytes.Equal(c2.random[:], s1.random[:]) {
		return errors.Wrap(ErrHandshakeMismatch, "c2 does not echo s1")
	}
	return nil
}

// ClientHandshaker performs the client side of the handshake. C2 echoes S1 the same way the
// server's S2 echoes C1.
type ClientHandshaker struct {
	StrictZero bool
}

func (h ClientHandshaker) Handshake(reader io.Reader, writer WriteFlusher) error {
	c1, err := newHandshakePacket()
	if err != nil {
		return err
	}
	var c0c1 [1 + handshakePacketSize]byte
	c0c1[0] = RtmpVersion3
	c1.marshal(c0c1[1:])
	if err = send(writer, c0c1[:]); err != nil {
		return err
	}

	if err = readVersion(reader); err != nil {
		return err
	}
	s1, err := readHandshakePacket(reader)
	if err != nil {
		return err
	}
	if h.StrictZero && s1.zero != 0 {
		return errors.Wrapf(ErrHandshakeMismatch, "s1 zero field is %d", s1.zero)
	}

	var c2 [handshakePacketSize]byte
	s1.echo().marshal(c2[:])
	if err = send(writer, c2[:]); err != nil {
		return err
	}

	s2, err := readHandshakePacket(reader)
	if err != nil {
		return err
	}
	if h.StrictZero && !bytes.Equal(s2.random[:], c1.random[:]) {
		return errors.Wrap(ErrHandshakeMismatch, "s2 does not echo c1")
	}
	return nil
}

func send(writer WriteFlusher, b []byte) error {
	if _, err := writer.Write(b); err != nil {
		return err
	}
	return writer.Flush()
}
