package rtmp

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/pkg/errors"
)

func handshakeBytes(time, zero uint32, fill byte) []byte {
	b := make([]byte, handshakePacketSize)
	binary.BigEndian.PutUint32(b[0:4], time)
	binary.BigEndian.PutUint32(b[4:8], zero)
	for i := 8; i < len(b); i++ {
		b[i] = fill + byte(i)
	}
	return b
}

func TestServerHandshake_EchoesC1(t *testing.T) {
	var input []byte
	input = append(input, RtmpVersion3)
	c1 := handshakeBytes(500, 0, 7)
	input = append(input, c1...)
	input = append(input, make([]byte, handshakePacketSize)...)

	var out bytes.Buffer
	w := bufio.NewWriter(&out)
	if err := (ServerHandshaker{}).Handshake(bytes.NewReader(input), w); err != nil {
		t.Fatal(err)
	}
	b := out.Bytes()
	if len(b) != 1+2*handshakePacketSize {
		t.Fatalf("wrote %d bytes, want %d", len(b), 1+2*handshakePacketSize)
	}
	if b[0] != RtmpVersion3 {
		t.Errorf("S0 = %d, want %d", b[0], RtmpVersion3)
	}
	if s1time := binary.BigEndian.Uint32(b[1:5]); s1time != 0 {
		t.Errorf("S1 time = %d, want 0", s1time)
	}
	s2 := b[1+handshakePacketSize:]
	if got := binary.BigEndian.Uint32(s2[0:4]); got != 500 {
		t.Errorf("S2 time = %d, want 500", got)
	}
	if got := binary.BigEndian.Uint32(s2[4:8]); got != 2500 {
		t.Errorf("S2 zero field = %d, want 2500", got)
	}
	if !bytes.Equal(s2[8:], c1[8:]) {
		t.Error("S2 random bytes don't echo C1")
	}
}

func TestClientHandshake_EchoesS1(t *testing.T) {
	var input []byte
	input = append(input, RtmpVersion3)
	s1 := handshakeBytes(700, 0, 3)
	input = append(input, s1...)
	input = append(input, make([]byte, handshakePacketSize)...)

	var out bytes.Buffer
	if err := (ClientHandshaker{}).Handshake(bytes.NewReader(input), bufio.NewWriter(&out)); err != nil {
		t.Fatal(err)
	}
	b := out.Bytes()
	if len(b) != 1+2*handshakePacketSize {
		t.Fatalf("wrote %d bytes, want %d", len(b), 1+2*handshakePacketSize)
	}
	c2 := b[1+handshakePacketSize:]
	if got := binary.BigEndian.Uint32(c2[0:4]); got != 700 {
		t.Errorf("C2 time = %d, want 700", got)
	}
	if got := binary.BigEndian.Uint32(c2[4:8]); got != 2700 {
		t.Errorf("C2 zero field = %d, want 2700", got)
	}
	if !bytes.Equal(c2[8:], s1[8:]) {
		t.Error("C2 random bytes don't echo S1")
	}
}

func TestServerHandshake_Errors(t *testing.T) {
	valid := append([]byte{RtmpVersion3}, handshakeBytes(0, 0, 1)...)
	valid = append(valid, make([]byte, handshakePacketSize)...)
	badVersion := append([]byte{6}, valid[1:]...)
	nonZero := append([]byte{RtmpVersion3}, handshakeBytes(0, 9, 1)...)
	nonZero = append(nonZero, make([]byte, handshakePacketSize)...)

	tests := []struct {
		name   string
		strict bool
		input  []byte
		err    error
	}{
		{"badVersion", false, badVersion, ErrHandshakeMismatch},
		{"truncatedC1", false, valid[:800], ErrTruncatedPayload},
		{"truncatedC2", false, valid[:1+handshakePacketSize+10], ErrTruncatedPayload},
		{"nonZeroLenient", false, nonZero, nil},
		{"nonZeroStrict", true, nonZero, ErrHandshakeMismatch},
		// C2 doesn't echo S1 in the strict check.
		{"c2MismatchStrict", true, valid, ErrHandshakeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := ServerHandshaker{StrictZero: tt.strict}.Handshake(bytes.NewReader(tt.input), bufio.NewWriter(&out))
			if errors.Cause(err) != tt.err {
				t.Errorf("got %v, want %v", err, tt.err)
			}
		})
	}
}

func TestHandshake_ClientAndServer(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- ServerHandshaker{StrictZero: true}.Handshake(bufio.NewReader(serverConn), bufio.NewWriter(serverConn))
	}()

	if err := (ClientHandshaker{StrictZero: true}).Handshake(bufio.NewReader(clientConn), bufio.NewWriter(clientConn)); err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	if err := <-serverErr; err != nil {
		t.Fatalf("server handshake: %v", err)
	}
}
