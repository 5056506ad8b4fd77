package rtmp

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

var ErrNilWriter = errors.New("Expected *bufio.Writer to be non-nil, but got a nil value")
var ErrNilReader = errors.New("Expected *bufio.Reader to be non-nil, but got a nil value")

// Errors that end a connection. There is no way to resynchronize a chunk stream after any of
// these, so the session closes the connection. Use errors.Cause to classify a returned error.
var (
	// ErrMalformedHeader is returned for a chunk header that can't be interpreted, most often a
	// format 1, 2 or 3 header on a chunk stream that never carried a format 0 header.
	ErrMalformedHeader = errors.New("rtmp: malformed chunk header")
	// ErrTruncatedPayload is returned when the transport ends in the middle of a header or payload.
	ErrTruncatedPayload = errors.New("rtmp: truncated chunk")
	// ErrUnknownCommandShape is returned for a command message that doesn't start with a command
	// name, transaction id and command object.
	ErrUnknownCommandShape = errors.New("rtmp: command message does not start with a command name")
	// ErrHandshakeMismatch is returned for an unsupported version or inconsistent echoed handshake fields.
	ErrHandshakeMismatch = errors.New("rtmp: handshake mismatch")

	ErrInvalidChunkSize     = errors.New("rtmp: chunk size must be between 1 and 2147483647")
	ErrInvalidChunkStreamID = errors.New("rtmp: chunk stream id must be between 2 and 65599")
	ErrMessageTooLarge      = errors.New("rtmp: message payload does not fit in 24 bits")
)

var ErrNextMessageWithoutHandshake = errors.New("NextMessage() was called before completing handshake")
var ErrWriteMessageWithoutHandshake = errors.New("WriteMessage() was called before completing handshake")

// ErrSessionClosed is returned by a Handler to end a session without reporting an error.
var ErrSessionClosed = errors.New("rtmp: session closed by handler")

// MessageDecodeError is returned by NextMessage for a command or data message whose AMF payload
// could not be decoded. The chunk stream is still in sync, so the caller may log it and keep
// reading. errors.Cause returns the decoding error.
type MessageDecodeError struct {
	Header ChunkHeader
	Err    error
}

func (e *MessageDecodeError) Error() string {
	return fmt.Sprintf("rtmp: decoding message type %d on chunk stream %d: %v", e.Header.MessageTypeID, e.Header.ChunkStreamID, e.Err)
}

func (e *MessageDecodeError) Cause() error  { return e.Err }
func (e *MessageDecodeError) Unwrap() error { return e.Err }

// readFull reads exactly len(b) bytes. A short read is reported as ErrTruncatedPayload.
func readFull(r io.Reader, b []byte) error {
	n, err := io.ReadFull(r, b)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrTruncatedPayload, "read %d of %d bytes", n, len(b))
	}
	return err
}
