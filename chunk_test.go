package rtmp

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
)

func TestChunkHeaderRoundTrip(t *testing.T) {
	audioPrev := ChunkHeader{ChunkStreamID: 4, Timestamp: 1000, TimestampDelta: 1000, MessageLength: 50, MessageTypeID: TypeAudio, MessageStreamID: 1}
	deltaPrev := ChunkHeader{ChunkStreamID: 4, Timestamp: 1000, TimestampDelta: 40, MessageLength: 50, MessageTypeID: TypeAudio, MessageStreamID: 1}
	extendedPrev := ChunkHeader{ChunkStreamID: 5, Timestamp: 0x1000000, TimestampDelta: 0x1000000, MessageLength: 10, MessageTypeID: TypeVideo, MessageStreamID: 1, ExtendedTimestamp: true}

	tests := []struct {
		name   string
		prev   *ChunkHeader
		header ChunkHeader
		size   int
	}{
		{"format0", nil,
			ChunkHeader{Format: ChunkType0, ChunkStreamID: 3, Timestamp: 1000, TimestampDelta: 1000, MessageLength: 100, MessageTypeID: TypeCommandAMF0, MessageStreamID: 1}, 12},
		{"format0TwoByteID", nil,
			ChunkHeader{Format: ChunkType0, ChunkStreamID: 64, Timestamp: 0xFFFFFF, TimestampDelta: 0xFFFFFF, MessageLength: 1, MessageTypeID: TypeVideo, ExtendedTimestamp: true}, 17},
		{"format0ThreeByteID", nil,
			ChunkHeader{Format: ChunkType0, ChunkStreamID: 320, Timestamp: 0x12345678, TimestampDelta: 0x12345678, MessageLength: 0xFFFFFF, MessageTypeID: TypeDataAMF0, MessageStreamID: 0x01020304, ExtendedTimestamp: true}, 18},
		{"format0MaxID", nil,
			ChunkHeader{Format: ChunkType0, ChunkStreamID: MaxChunkStreamID, MessageTypeID: TypeAudio}, 14},
		{"format1", &audioPrev,
			ChunkHeader{Format: ChunkType1, ChunkStreamID: 4, Timestamp: 1040, TimestampDelta: 40, MessageLength: 60, MessageTypeID: TypeVideo, MessageStreamID: 1}, 8},
		{"format1Extended", &audioPrev,
			ChunkHeader{Format: ChunkType1, ChunkStreamID: 4, Timestamp: 1000 + 0x1000000, TimestampDelta: 0x1000000, MessageLength: 60, MessageTypeID: TypeVideo, MessageStreamID: 1, ExtendedTimestamp: true}, 12},
		{"format2", &audioPrev,
			ChunkHeader{Format: ChunkType2, ChunkStreamID: 4, Timestamp: 1040, TimestampDelta: 40, MessageLength: 50, MessageTypeID: TypeAudio, MessageStreamID: 1}, 4},
		{"format3", &deltaPrev,
			ChunkHeader{Format: ChunkType3, ChunkStreamID: 4, Timestamp: 1040, TimestampDelta: 40, MessageLength: 50, MessageTypeID: TypeAudio, MessageStreamID: 1}, 1},
		{"format3Extended", &extendedPrev,
			ChunkHeader{Format: ChunkType3, ChunkStreamID: 5, Timestamp: 0x2000000, TimestampDelta: 0x1000000, MessageLength: 10, MessageTypeID: TypeVideo, MessageStreamID: 1, ExtendedTimestamp: true}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := WriteChunkHeader(&buf, tt.header)
			if err != nil {
				t.Fatalf("WriteChunkHeader() error = %v", err)
			}
			if n != tt.size || buf.Len() != tt.size {
				t.Errorf("wrote %d bytes (buffer %d), want %d", n, buf.Len(), tt.size)
			}

			cache := make(HeaderCache)
			if tt.prev != nil {
				cache.Store(*tt.prev)
			}
			got, err := ReadChunkHeader(&buf, cache)
			if err != nil {
				t.Fatalf("ReadChunkHeader() error = %v", err)
			}
			if got != tt.header {
				t.Errorf("got %+v, want %+v", got, tt.header)
			}
			if buf.Len() != 0 {
				t.Errorf("%d bytes left unread", buf.Len())
			}
		})
	}
}

func TestBasicHeaderBytes(t *testing.T) {
	tests := []struct {
		format ChunkType
		csid   uint32
		want   []byte
	}{
		{ChunkType3, 2, []byte{0xC2}},
		{ChunkType3, 63, []byte{0xFF}},
		{ChunkType3, 64, []byte{0xC0, 0x00}},
		{ChunkType3, 319, []byte{0xC0, 0xFF}},
		{ChunkType3, 320, []byte{0xC1, 0x00, 0x01}},
		{ChunkType3, 65599, []byte{0xC1, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if _, err := WriteChunkHeader(&buf, ChunkHeader{Format: tt.format, ChunkStreamID: tt.csid}); err != nil {
			t.Fatalf("csid %d: %v", tt.csid, err)
		}
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("csid %d: got % x, want % x", tt.csid, buf.Bytes(), tt.want)
		}
	}
}

func TestWriteChunkHeaderMessageStreamIDLittleEndian(t *testing.T) {
	var buf bytes.Buffer
	h := ChunkHeader{Format: ChunkType0, ChunkStreamID: 3, Timestamp: 0x010203, MessageLength: 0x040506, MessageTypeID: TypeCommandAMF0, MessageStreamID: 1}
	if _, err := WriteChunkHeader(&buf, h); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x03, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x14, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("got % x, want % x", buf.Bytes(), want)
	}
}

func TestWriteChunkHeaderErrors(t *testing.T) {
	tests := []struct {
		name   string
		header ChunkHeader
		err    error
	}{
		{"reservedID", ChunkHeader{ChunkStreamID: 1}, ErrInvalidChunkStreamID},
		{"idTooLarge", ChunkHeader{ChunkStreamID: MaxChunkStreamID + 1}, ErrInvalidChunkStreamID},
		{"lengthTooLarge", ChunkHeader{ChunkStreamID: 3, MessageLength: 0x1000000}, ErrMessageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := WriteChunkHeader(io.Discard, tt.header)
			if errors.Cause(err) != tt.err {
				t.Errorf("got %v, want %v", err, tt.err)
			}
		})
	}
}

func TestReadChunkHeaderFormat3AddsCachedDelta(t *testing.T) {
	cache := make(HeaderCache)
	cache.Store(ChunkHeader{ChunkStreamID: 4, Timestamp: 1000, TimestampDelta: 40, MessageLength: 1, MessageTypeID: TypeAudio, MessageStreamID: 1})

	r := bytes.NewReader([]byte{0xC4, 0xC4, 0xC4})
	for _, want := range []uint32{1040, 1080, 1120} {
		h, err := ReadChunkHeader(r, cache)
		if err != nil {
			t.Fatal(err)
		}
		if h.Timestamp != want {
			t.Errorf("timestamp = %d, want %d", h.Timestamp, want)
		}
		cache.Store(h)
	}
}

func TestReadChunkHeaderWithoutPreviousHeader(t *testing.T) {
	inputs := map[string][]byte{
		"format1": {0x43, 0, 0, 0, 0, 0, 0, 0},
		"format2": {0x83, 0, 0, 0},
		"format3": {0xC3},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ReadChunkHeader(bytes.NewReader(in), make(HeaderCache))
			if errors.Cause(err) != ErrMalformedHeader {
				t.Errorf("got %v, want ErrMalformedHeader", err)
			}
		})
	}
}

func TestReadChunkHeaderEndOfStream(t *testing.T) {
	if _, err := ReadChunkHeader(bytes.NewReader(nil), make(HeaderCache)); err != io.EOF {
		t.Errorf("empty input: got %v, want io.EOF", err)
	}

	truncated := [][]byte{
		{0x03, 0x00, 0x00},
		{0x00},
		{0x01, 0x05},
		{0x03, 0xFF, 0xFF, 0xFF, 0, 0, 1, 8, 0, 0, 0, 0, 0x01},
	}
	for _, in := range truncated {
		_, err := ReadChunkHeader(bytes.NewReader(in), make(HeaderCache))
		if errors.Cause(err) != ErrTruncatedPayload {
			t.Errorf("input % x: got %v, want ErrTruncatedPayload", in, err)
		}
	}
}
