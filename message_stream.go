package rtmp

import (
	"io"
	"sync"

	"github.com/chunkwire/rtmp/internal/binary24"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Stage uint8

const (
	waitingForHandshake Stage = iota
	handshakeCompleted
)

// chunkStreamState is a message being reassembled on one chunk stream.
type chunkStreamState struct {
	header    ChunkHeader
	payload   []byte
	bytesLeft uint32
}

// MessageStream turns the chunk stream of one connection into messages and back. NextMessage must
// be called from a single goroutine; WriteMessage may be called concurrently with it.
type MessageStream struct {
	logger     *zap.SugaredLogger
	handshaker Handshaker
	reader     ReadCounter
	writer     WriteFlusher

	// Inbound state is only touched by NextMessage.
	inHeaders HeaderCache
	// inProgress maps a chunk stream ID to the message currently being assembled on it.
	// Chunks of different chunk streams may be interleaved.
	inProgress map[uint32]*chunkStreamState
	// acknowledged is the byte count sent in the last Acknowledgement.
	acknowledged uint64

	// mu guards params, stage and the outbound state.
	mu         sync.Mutex
	params     ProtocolParameters
	outHeaders HeaderCache

	// stage represents the current state of the message stream. Initially set to waitingForHandshake.
	// An attempt to call NextMessage() or WriteMessage() in the message stream will result in an error if the stage is set to waitingForHandshake.
	stage Stage
}

func NewMessageStream(logger *zap.SugaredLogger, reader ReadCounter, writer WriteFlusher, handshaker Handshaker) *MessageStream {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MessageStream{
		logger:     logger,
		handshaker: handshaker,
		reader:     reader,
		writer:     writer,
		inHeaders:  make(HeaderCache),
		inProgress: make(map[uint32]*chunkStreamState),
		params:     DefaultProtocolParameters(),
		outHeaders: make(HeaderCache),
		stage:      waitingForHandshake,
	}
}

// Initialize performs the handshake and changes the internal state of the MessageStream to handshakeCompleted
func (ms *MessageStream) Initialize() error {
	err := ms.handshaker.Handshake(ms.reader, ms.writer)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	ms.stage = handshakeCompleted
	ms.mu.Unlock()
	return nil
}

func (ms *MessageStream) handshakeDone() bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.stage == handshakeCompleted
}

// Parameters returns a copy of the current protocol parameters.
func (ms *MessageStream) Parameters() ProtocolParameters {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.params
}

// NextMessage reads chunks until a message is complete and decodes it. Protocol control messages
// are applied to the stream before they are returned, and an Acknowledgement is sent whenever the
// peer's window is reached. A clean io.EOF is returned unwrapped if the peer closes the connection
// between chunks. A *MessageDecodeError leaves the stream usable; every other error does not.
func (ms *MessageStream) NextMessage() (Message, error) {
	if !ms.handshakeDone() {
		return nil, ErrNextMessageWithoutHandshake
	}

	header, payload, err := ms.readMessage()
	if err != nil {
		return nil, err
	}
	msg, err := DecodeMessage(header.MessageTypeID, header, payload)
	if err != nil {
		if !carriesAMF(header.MessageTypeID) {
			return nil, err
		}
		// The message is lost but its bytes still count toward the acknowledgement window.
		if ackErr := ms.acknowledge(); ackErr != nil {
			return nil, ackErr
		}
		return nil, &MessageDecodeError{Header: header, Err: err}
	}

	ms.mu.Lock()
	ms.params.applyInbound(msg)
	ms.mu.Unlock()

	if err = ms.acknowledge(); err != nil {
		return nil, err
	}
	return msg, nil
}

func carriesAMF(typeID MessageType) bool {
	return typeID == TypeCommandAMF0 || typeID == TypeDataAMF0
}

// readMessage reads chunks until one chunk stream completes a message.
func (ms *MessageStream) readMessage() (ChunkHeader, []byte, error) {
	for {
		header, err := ReadChunkHeader(ms.reader, ms.inHeaders)
		if err == io.EOF && len(ms.inProgress) > 0 {
			return ChunkHeader{}, nil, errors.Wrapf(ErrTruncatedPayload, "connection closed with %d messages incomplete", len(ms.inProgress))
		}
		if err != nil {
			return ChunkHeader{}, nil, err
		}
		csid := header.ChunkStreamID

		state := ms.inProgress[csid]
		if state != nil {
			if header.Format != ChunkType3 {
				return ChunkHeader{}, nil, errors.Wrapf(ErrMalformedHeader,
					"format %d header on chunk stream %d with %d bytes of the previous message left", header.Format, csid, state.bytesLeft)
			}
			// A continuation chunk belongs to the message being assembled and keeps its timestamp.
			header.Timestamp = state.header.Timestamp
			header.TimestampDelta = state.header.TimestampDelta
		} else {
			state = &chunkStreamState{
				header:    header,
				bytesLeft: header.MessageLength,
			}
		}
		ms.inHeaders.Store(header)

		ms.logger.Debugw("received chunk header",
			"csid", csid,
			"format", header.Format,
			"type_id", header.MessageTypeID,
			"length", header.MessageLength,
			"timestamp", header.Timestamp)

		n := state.bytesLeft
		if chunkSize := ms.inChunkSize(); n > chunkSize {
			n = chunkSize
		}
		start := len(state.payload)
		state.payload = growPayload(state.payload, int(n), int(state.bytesLeft))
		if err = readFull(ms.reader, state.payload[start:]); err != nil {
			return ChunkHeader{}, nil, err
		}
		state.bytesLeft -= n

		if state.bytesLeft > 0 {
			ms.inProgress[csid] = state
			continue
		}
		delete(ms.inProgress, csid)
		return state.header, state.payload, nil
	}
}

// growPayload extends b by n bytes. Capacity follows the bytes actually received and never
// exceeds the bytes still owed to the message, so a declared length alone allocates nothing.
func growPayload(b []byte, n, left int) []byte {
	size := len(b) + n
	if size <= cap(b) {
		return b[:size]
	}
	c := 2 * cap(b)
	if c < size {
		c = size
	}
	if limit := len(b) + left; c > limit {
		c = limit
	}
	grown := make([]byte, size, c)
	copy(grown, b)
	return grown
}

func (ms *MessageStream) inChunkSize() uint32 {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.params.InChunkSize
}

// acknowledge sends an Acknowledgement once the bytes received since the last one reach the
// window announced by the peer.
func (ms *MessageStream) acknowledge() error {
	window := uint64(ms.Parameters().WindowAckSize)
	if window == 0 {
		return nil
	}
	received := ms.reader.ReadBytes()
	if received-ms.acknowledged < window {
		return nil
	}
	ms.acknowledged = received
	// The sequence number wraps around at 2^32.
	return ms.WriteMessage(NewAcknowledgement(uint32(received)))
}

// WriteMessage splits msg into chunks of the current outbound chunk size and flushes them.
// Headers are compressed against the previous message sent on the same chunk stream.
// Sending a SetChunkSize message changes the outbound chunk size for the messages after it.
func (ms *MessageStream) WriteMessage(msg Message) error {
	header, payload, err := OutboundHeader(msg)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.stage == waitingForHandshake {
		return ErrWriteMessageWithoutHandshake
	}

	var last *ChunkHeader
	if h, ok := ms.outHeaders.Last(header.ChunkStreamID); ok {
		last = &h
	}
	header = compressHeader(header, last)
	if err = writeChunks(ms.writer, header, payload, ms.params.OutChunkSize); err != nil {
		return err
	}
	ms.outHeaders.Store(header)
	ms.params.applyOutbound(msg)

	ms.logger.Debugw("sent message",
		"csid", header.ChunkStreamID,
		"format", header.Format,
		"type_id", header.MessageTypeID,
		"length", header.MessageLength)
	return ms.writer.Flush()
}

// compressHeader picks the smallest header format that lets the peer rebuild h from last.
func compressHeader(h ChunkHeader, last *ChunkHeader) ChunkHeader {
	h.Format = ChunkType0
	h.TimestampDelta = h.Timestamp
	h.ExtendedTimestamp = h.Timestamp >= binary24.MaxUint24
	if last == nil || last.MessageStreamID != h.MessageStreamID || h.Timestamp < last.Timestamp {
		return h
	}

	delta := h.Timestamp - last.Timestamp
	h.TimestampDelta = delta
	h.ExtendedTimestamp = delta >= binary24.MaxUint24
	switch {
	case h.MessageLength != last.MessageLength || h.MessageTypeID != last.MessageTypeID:
		h.Format = ChunkType1
	case delta != last.TimestampDelta || h.ExtendedTimestamp || last.ExtendedTimestamp:
		h.Format = ChunkType2
	default:
		h.Format = ChunkType3
	}
	return h
}

// writeChunks writes the first chunk with h and the rest as format 3 continuation chunks.
func writeChunks(w WriteFlusher, h ChunkHeader, payload []byte, chunkSize uint32) error {
	if _, err := WriteChunkHeader(w, h); err != nil {
		return err
	}
	continuation := ChunkHeader{
		Format:            ChunkType3,
		ChunkStreamID:     h.ChunkStreamID,
		TimestampDelta:    h.TimestampDelta,
		ExtendedTimestamp: h.ExtendedTimestamp,
	}
	for first := true; first || len(payload) > 0; first = false {
		if !first {
			if _, err := WriteChunkHeader(w, continuation); err != nil {
				return err
			}
		}
		n := len(payload)
		if n > int(chunkSize) {
			n = int(chunkSize)
		}
		if _, err := w.Write(payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}
