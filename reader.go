package rtmp

import (
	"bufio"
	"io"
)

// Reader counts every byte read from the connection. The count is the sequence number
// carried by Acknowledgement messages.
type Reader struct {
	reader *bufio.Reader
	n      uint64
}

type ByteCounter interface {
	ReadBytes() uint64
}

// ReadCounter is the interface that groups the io.Reader and ByteCounter interfaces.
type ReadCounter interface {
	io.Reader
	ByteCounter
}

func NewReader(reader *bufio.Reader) (*Reader, error) {
	if reader == nil {
		return nil, ErrNilReader
	}
	return &Reader{reader: reader}, nil
}

// Read reads exactly len(p) bytes from the underlying bufio.Reader into p.
// The error is EOF only if no bytes were read; if an EOF happens after reading some
// but not all the bytes, Read returns ErrUnexpectedEOF.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = io.ReadFull(r.reader, p)
	r.n += uint64(n)
	return n, err
}

// ReadBytes returns the number of bytes read since the Reader was created.
func (r *Reader) ReadBytes() uint64 {
	return r.n
}
