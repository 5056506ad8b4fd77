package rtmp

import (
	"encoding/binary"
	"io"

	"github.com/chunkwire/rtmp/internal/binary24"
	"github.com/pkg/errors"
)

type ChunkType uint8

const (
	ChunkType0 ChunkType = iota
	ChunkType1
	ChunkType2
	ChunkType3
)

const (
	chunkType0MessageHeaderLength = 11
	chunkType1MessageHeaderLength = 7
	chunkType2MessageHeaderLength = 3
)

// Chunk stream ids 0 and 1 select the 2 and 3 byte basic header forms, so real ids start at 2.
const (
	MinChunkStreamID = 2
	MaxChunkStreamID = 65599
)

// ChunkHeader contains the information used to interpret a chunk. Headers of format 1, 2 and 3
// only carry some of these fields on the wire; the rest is inherited from the previous header of
// the same chunk stream.
type ChunkHeader struct {
	Format        ChunkType
	ChunkStreamID uint32
	// Timestamp is always the absolute message timestamp, however the header was encoded.
	Timestamp uint32
	// TimestampDelta is what a following format 3 header adds to Timestamp when it starts a new
	// message. A format 0 header sets it to its absolute timestamp.
	TimestampDelta  uint32
	MessageLength   uint32
	MessageTypeID   MessageType
	MessageStreamID uint32
	// ExtendedTimestamp is set when the timestamp field of this header (or of the header a
	// format 3 header inherits from) overflowed 24 bits and a 4 byte field follows the header.
	ExtendedTimestamp bool
}

// HeaderCache holds the last header seen on each chunk stream of one direction of a connection.
type HeaderCache map[uint32]ChunkHeader

func (c HeaderCache) Last(csid uint32) (ChunkHeader, bool) {
	h, ok := c[csid]
	return h, ok
}

func (c HeaderCache) Store(h ChunkHeader) {
	c[h.ChunkStreamID] = h
}

// ReadChunkHeader reads a basic header and a message header. Missing fields of a format 1, 2 or 3
// header are taken from cache, which is not modified.
// If the reader is at EOF before the first byte, io.EOF is returned unwrapped.
func ReadChunkHeader(r io.Reader, cache HeaderCache) (ChunkHeader, error) {
	format, csid, err := readBasicHeader(r)
	if err != nil {
		return ChunkHeader{}, err
	}
	var last *ChunkHeader
	if h, ok := cache.Last(csid); ok {
		last = &h
	}
	return readMessageHeader(r, format, csid, last)
}

func readBasicHeader(r io.Reader) (ChunkType, uint32, error) {
	var b [3]byte
	// A clean EOF here is the end of the stream, not a truncated chunk.
	if _, err := io.ReadFull(r, b[:1]); err != nil {
		return 0, 0, err
	}
	format := ChunkType(b[0] >> 6)
	csid := uint32(b[0] & 0x3F)

	switch csid {
	case 0:
		if err := readFull(r, b[1:2]); err != nil {
			return 0, 0, err
		}
		csid = uint32(b[1]) + 64
	case 1:
		if err := readFull(r, b[1:3]); err != nil {
			return 0, 0, err
		}
		// (third byte)*256 + (second byte) + 64
		csid = uint32(binary.LittleEndian.Uint16(b[1:3])) + 64
	}
	return format, csid, nil
}

func readMessageHeader(r io.Reader, format ChunkType, csid uint32, last *ChunkHeader) (ChunkHeader, error) {
	if format != ChunkType0 && last == nil {
		return ChunkHeader{}, errors.Wrapf(ErrMalformedHeader, "format %d header on chunk stream %d with no previous header", format, csid)
	}

	var b [chunkType0MessageHeaderLength]byte
	var h ChunkHeader
	switch format {
	case ChunkType0:
		if err := readFull(r, b[:chunkType0MessageHeaderLength]); err != nil {
			return h, err
		}
		h.Timestamp = binary24.BigEndian.Uint24(b[0:3])
		h.MessageLength = binary24.BigEndian.Uint24(b[3:6])
		h.MessageTypeID = MessageType(b[6])
		h.MessageStreamID = binary.LittleEndian.Uint32(b[7:11])
		if h.Timestamp == binary24.MaxUint24 {
			ts, err := readExtendedTimestamp(r)
			if err != nil {
				return h, err
			}
			h.Timestamp = ts
			h.ExtendedTimestamp = true
		}
		h.TimestampDelta = h.Timestamp
	case ChunkType1, ChunkType2:
		n := chunkType1MessageHeaderLength
		if format == ChunkType2 {
			n = chunkType2MessageHeaderLength
		}
		if err := readFull(r, b[:n]); err != nil {
			return h, err
		}
		h = *last
		h.TimestampDelta = binary24.BigEndian.Uint24(b[0:3])
		if format == ChunkType1 {
			h.MessageLength = binary24.BigEndian.Uint24(b[3:6])
			h.MessageTypeID = MessageType(b[6])
		}
		h.ExtendedTimestamp = false
		if h.TimestampDelta == binary24.MaxUint24 {
			delta, err := readExtendedTimestamp(r)
			if err != nil {
				return h, err
			}
			h.TimestampDelta = delta
			h.ExtendedTimestamp = true
		}
		h.Timestamp = last.Timestamp + h.TimestampDelta
	case ChunkType3:
		h = *last
		h.Timestamp = last.Timestamp + last.TimestampDelta
		// The field repeats the value of the header this one inherits from.
		if last.ExtendedTimestamp {
			if _, err := readExtendedTimestamp(r); err != nil {
				return h, err
			}
		}
	}
	h.Format = format
	h.ChunkStreamID = csid
	return h, nil
}

func readExtendedTimestamp(r io.Reader) (uint32, error) {
	var b [4]byte
	if err := readFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// WriteChunkHeader encodes h using h.Format. Format 0 writes the absolute timestamp, formats 1 and
// 2 write TimestampDelta, and format 3 writes only the basic header (plus the extended timestamp
// field when h.ExtendedTimestamp is set). It returns the number of bytes written.
func WriteChunkHeader(w io.Writer, h ChunkHeader) (int, error) {
	var b [3 + chunkType0MessageHeaderLength + 4]byte
	n, err := putBasicHeader(b[:], h.Format, h.ChunkStreamID)
	if err != nil {
		return 0, err
	}
	if h.MessageLength > binary24.MaxUint24 {
		return 0, errors.Wrapf(ErrMessageTooLarge, "message length %d", h.MessageLength)
	}

	var extended uint32
	var hasExtended bool
	switch h.Format {
	case ChunkType0:
		var ts uint32
		ts, hasExtended = binary24.Clamp(h.Timestamp)
		extended = h.Timestamp
		binary24.BigEndian.PutUint24(b[n:n+3], ts)
		binary24.BigEndian.PutUint24(b[n+3:n+6], h.MessageLength)
		b[n+6] = byte(h.MessageTypeID)
		binary.LittleEndian.PutUint32(b[n+7:n+11], h.MessageStreamID)
		n += chunkType0MessageHeaderLength
	case ChunkType1:
		var delta uint32
		delta, hasExtended = binary24.Clamp(h.TimestampDelta)
		extended = h.TimestampDelta
		binary24.BigEndian.PutUint24(b[n:n+3], delta)
		binary24.BigEndian.PutUint24(b[n+3:n+6], h.MessageLength)
		b[n+6] = byte(h.MessageTypeID)
		n += chunkType1MessageHeaderLength
	case ChunkType2:
		var delta uint32
		delta, hasExtended = binary24.Clamp(h.TimestampDelta)
		extended = h.TimestampDelta
		binary24.BigEndian.PutUint24(b[n:n+3], delta)
		n += chunkType2MessageHeaderLength
	case ChunkType3:
		hasExtended = h.ExtendedTimestamp
		extended = h.TimestampDelta
	default:
		return 0, errors.Errorf("rtmp: invalid chunk format %d", h.Format)
	}
	if hasExtended {
		binary.BigEndian.PutUint32(b[n:n+4], extended)
		n += 4
	}
	return w.Write(b[:n])
}

func putBasicHeader(b []byte, format ChunkType, csid uint32) (int, error) {
	switch {
	case csid < MinChunkStreamID || csid > MaxChunkStreamID:
		return 0, errors.Wrapf(ErrInvalidChunkStreamID, "chunk stream id %d", csid)
	case csid <= 63:
		b[0] = byte(format)<<6 | byte(csid)
		return 1, nil
	case csid <= 319:
		b[0] = byte(format) << 6
		b[1] = byte(csid - 64)
		return 2, nil
	default:
		b[0] = byte(format)<<6 | 1
		binary.LittleEndian.PutUint16(b[1:3], uint16(csid-64))
		return 3, nil
	}
}
