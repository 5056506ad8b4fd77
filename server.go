package rtmp

import (
	"context"
	"net"
	"sync"

	"github.com/chunkwire/rtmp/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Server represents the RTMP server, where a client/app can stream media to. The server listens for incoming connections.
type Server struct {
	Addr   string
	Logger *zap.Logger
	// Config supplies timeouts and the parameters announced to peers. config.Default() is used if nil.
	Config *config.Config
	// NewHandler returns the handler for a new connection. If nil, every connection gets a ReplyPolicy.
	NewHandler func() Handler
	// TODO: should probably add something like maxConns
}

func (s *Server) init() {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.Config == nil {
		s.Config = config.Default()
	}
	if s.Addr == "" {
		s.Addr = s.Config.Server.Addr
	}
	if s.NewHandler == nil {
		s.NewHandler = func() Handler {
			return NewReplyPolicy(s.Logger, s.Config.Protocol)
		}
	}
}

// Listen starts the server and listens for any incoming connections. If no Addr (host:port) has
// been assigned to the server, the configured address is used.
func (s *Server) Listen() error {
	return s.ListenAndServe(context.Background())
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	s.init()
	tcpAddress, err := net.ResolveTCPAddr("tcp", s.Addr)
	if err != nil {
		return errors.Wrap(err, "[server] error resolving tcp address")
	}

	// Start listening on the specified address
	listener, err := net.ListenTCP("tcp", tcpAddress)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener and runs a Session for each until ctx is cancelled.
// Serve closes the listener and waits for the sessions to end before returning.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.init()
	s.Logger.Info("[server] listening", zap.String("addr", listener.Addr().String()))

	var wg sync.WaitGroup
	defer wg.Wait()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			listener.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				s.Logger.Warn("[server] error accepting incoming connection", zap.Error(err))
				continue
			}
			return errors.Wrap(err, "[server] accept")
		}

		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			sess := NewSession(s.Logger, conn, s.Config, s.NewHandler())
			logger := s.Logger.With(zap.String("session_id", sess.GetID()), zap.String("remote_addr", conn.RemoteAddr().String()))
			logger.Info("[server] starting session")
			err := sess.Start(ctx)
			logger = logger.With(zap.Uint64("bytes_read", sess.BytesRead()), zap.Uint64("bytes_written", sess.BytesWritten()))
			if err != nil {
				logger.Error("[server] session ended with an error", zap.Error(err))
				return
			}
			logger.Info("[server] session ended")
		}(conn)
	}
}
