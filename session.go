package rtmp

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/chunkwire/rtmp/config"
	"github.com/chunkwire/rtmp/rand"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Session is one connection accepted by the server. It performs the handshake and then passes
// every message to its Handler until the peer disconnects or the handler returns an error.
type Session struct {
	logger    *zap.Logger
	sessionID string
	conn      net.Conn
	cfg       config.ServerConfig
	reader    *Reader
	writer    *Writer
	stream    *MessageStream
	handler   Handler
}

// deadlineConn sets the write deadline before every write that reaches the socket, handshake
// and acknowledgements included.
type deadlineConn struct {
	net.Conn
	writeTimeout time.Duration
}

func (c deadlineConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

func NewSession(logger *zap.Logger, conn net.Conn, cfg *config.Config, handler Handler) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := rand.GenerateUuid()
	logger = logger.With(zap.String("session_id", sessionID), zap.String("remote_addr", conn.RemoteAddr().String()))

	socketr := bufio.NewReaderSize(conn, config.BuffioSize)
	socketw := bufio.NewWriterSize(deadlineConn{Conn: conn, writeTimeout: cfg.Server.WriteTimeout}, config.BuffioSize)
	// Neither constructor fails for a non-nil buffer.
	reader, _ := NewReader(socketr)
	writer, _ := NewWriter(socketw)

	handshaker := ServerHandshaker{StrictZero: cfg.Protocol.StrictHandshake}
	return &Session{
		logger:    logger,
		sessionID: sessionID,
		conn:      conn,
		cfg:       cfg.Server,
		reader:    reader,
		writer:    writer,
		stream:    NewMessageStream(logger.Sugar(), reader, writer, handshaker),
		handler:   handler,
	}
}

func (s *Session) GetID() string {
	return s.sessionID
}

// Parameters returns the protocol parameters currently in effect on the connection.
func (s *Session) Parameters() ProtocolParameters {
	return s.stream.Parameters()
}

// WriteMessage sends msg to the peer. It is safe to call from any goroutine.
func (s *Session) WriteMessage(msg Message) error {
	return s.stream.WriteMessage(msg)
}

// BytesRead returns the bytes received on the connection, handshake included.
func (s *Session) BytesRead() uint64 {
	return s.reader.ReadBytes()
}

// BytesWritten returns the bytes sent on the connection, handshake included.
func (s *Session) BytesWritten() uint64 {
	return s.writer.WrittenBytes()
}

// Start performs the handshake and reads messages until the connection ends. The connection is
// closed when Start returns. Cancelling ctx closes the connection and Start returns nil.
func (s *Session) Start(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()
	defer s.conn.Close()

	err := s.run()
	if ctx.Err() != nil {
		return nil
	}
	switch errors.Cause(err) {
	case nil, io.EOF, ErrSessionClosed:
		return nil
	}
	return err
}

func (s *Session) run() error {
	if err := s.extendReadDeadline(); err != nil {
		return err
	}
	err := s.stream.Initialize()
	if err != nil {
		return errors.Wrap(err, "handshake")
	}
	s.logger.Debug("handshake completed")

	for {
		if err = s.extendReadDeadline(); err != nil {
			return err
		}
		msg, err := s.stream.NextMessage()
		if decodeErr, ok := err.(*MessageDecodeError); ok {
			s.logger.Warn("dropping undecodable message",
				zap.Uint32("csid", decodeErr.Header.ChunkStreamID),
				zap.Uint8("type_id", uint8(decodeErr.Header.MessageTypeID)),
				zap.Error(decodeErr.Err))
			continue
		}
		if err != nil {
			return err
		}
		header := msg.Header()
		s.logger.Debug("received message",
			zap.Uint32("csid", header.ChunkStreamID),
			zap.Uint8("type_id", uint8(msg.Type())),
			zap.Uint32("length", header.MessageLength))

		if err = s.handler.HandleMessage(s, msg); err != nil {
			return err
		}
	}
}

func (s *Session) extendReadDeadline() error {
	if s.cfg.ReadTimeout <= 0 {
		return nil
	}
	return s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
}
