package rtmp

import (
	"bufio"
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/chunkwire/rtmp/amf/amf0"
	"github.com/chunkwire/rtmp/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrInvalidScheme = errors.New("invalid scheme in URL")
var ErrInvalidPath = errors.New("URL path must contain an app and a stream key")

const defaultFlashVer = "LNX 9,0,124,2"

// Client dials RTMP servers.
type Client struct {
	Logger          *zap.Logger
	StrictHandshake bool
	FlashVer        string
}

// ClientConn is a connection to an RTMP server after the handshake. Messages are read and
// written through the embedded MessageStream.
type ClientConn struct {
	*MessageStream
	conn      net.Conn
	App       string
	StreamKey string
	TcURL     string

	flashVer      string
	transactionID float64
}

// Dial connects to the server in rawURL (rtmp://host[:port]/app/streamKey) and performs the handshake.
func (c *Client) Dial(ctx context.Context, rawURL string) (*ClientConn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "rtmp" {
		return nil, errors.Wrapf(ErrInvalidScheme, "%q", u.Scheme)
	}
	if u.Port() == "" {
		u.Host += ":" + config.DefaultPort
	}

	path := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(path) < 2 || path[len(path)-1] == "" {
		return nil, errors.Wrapf(ErrInvalidPath, "%q", u.Path)
	}
	elements := len(path)
	// Treat the first part of the path as the app name
	app := strings.Join(path[:elements-1], "/")

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	flashVer := c.FlashVer
	if flashVer == "" {
		flashVer = defaultFlashVer
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	reader, _ := NewReader(bufio.NewReaderSize(conn, config.BuffioSize))
	writer, _ := NewWriter(bufio.NewWriterSize(conn, config.BuffioSize))
	logger = logger.With(zap.String("remote_addr", conn.RemoteAddr().String()))
	stream := NewMessageStream(logger.Sugar(), reader, writer, ClientHandshaker{StrictZero: c.StrictHandshake})
	if err = stream.Initialize(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "handshake")
	}
	// The context deadline only bounds dialing and the handshake.
	conn.SetDeadline(time.Time{})

	logger.Debug("client handshake completed", zap.String("app", app))
	return &ClientConn{
		MessageStream: stream,
		conn:          conn,
		App:           app,
		StreamKey:     path[elements-1],
		TcURL:         u.Scheme + "://" + u.Host + "/" + app,
		flashVer:      flashVer,
	}, nil
}

func (cc *ClientConn) nextTransactionID() float64 {
	cc.transactionID++
	return cc.transactionID
}

// Connect sends the connect command for the app in the dial URL. The reply is read with NextMessage.
func (cc *ClientConn) Connect() error {
	info := amf0.Object{
		{Key: "app", Value: cc.App},
		{Key: "flashVer", Value: cc.flashVer},
		{Key: "tcUrl", Value: cc.TcURL},
		{Key: "fpad", Value: false},
		{Key: "capabilities", Value: float64(15)},
		{Key: "audioCodecs", Value: float64(4071)},
		{Key: "videoCodecs", Value: float64(252)},
		{Key: "videoFunction", Value: float64(1)},
	}
	return cc.WriteMessage(NewNetConnectionCommand("connect", cc.nextTransactionID(), info))
}

func (cc *ClientConn) CreateStream() error {
	return cc.WriteMessage(NewNetConnectionCommand("createStream", cc.nextTransactionID(), nil))
}

// Play asks the server to play the dial URL's stream key on streamID, as returned by createStream.
func (cc *ClientConn) Play(streamID uint32) error {
	return cc.WriteMessage(NewNetStreamCommand(streamID, "play", 0, nil, cc.StreamKey))
}

// Publish starts a live publish of the dial URL's stream key on streamID.
func (cc *ClientConn) Publish(streamID uint32) error {
	return cc.WriteMessage(NewNetStreamCommand(streamID, "publish", 0, nil, cc.StreamKey, "live"))
}

func (cc *ClientConn) Close() error {
	return cc.conn.Close()
}
