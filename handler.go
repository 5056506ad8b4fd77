package rtmp

import (
	"strings"

	"github.com/chunkwire/rtmp/amf/amf0"
	"github.com/chunkwire/rtmp/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	NetConnectionSuccess  = "NetConnection.Connect.Success"
	NetConnectionRejected = "NetConnection.Connect.Rejected"
	NetStreamPublishStart = "NetStream.Publish.Start"
	NetStreamPlayStart    = "NetStream.Play.Start"
	NetStreamPlayReset    = "NetStream.Play.Reset"
)

// ErrConnectionRejected is returned by ReplyPolicy when a peer connects to an application other
// than the configured one.
var ErrConnectionRejected = errors.New("rtmp: connect rejected")

// MessageWriter sends messages to the peer of a session.
type MessageWriter interface {
	WriteMessage(msg Message) error
}

// Handler is called for every message read from a connection, after protocol control messages
// have been applied. Returning an error ends the session; ErrSessionClosed ends it without
// logging an error.
type Handler interface {
	HandleMessage(w MessageWriter, msg Message) error
}

type HandlerFunc func(w MessageWriter, msg Message) error

func (f HandlerFunc) HandleMessage(w MessageWriter, msg Message) error {
	return f(w, msg)
}

type AudioCallback func(msg *AudioData)
type VideoCallback func(msg *VideoData)
type MetadataCallback func(msg *DataMessage)

// ReplyPolicy answers the commands a publishing or playing client sends after the handshake:
// connect, createStream, publish and play, plus ping requests. Media and metadata messages are
// passed to the callbacks. A ReplyPolicy holds the state of one connection.
type ReplyPolicy struct {
	logger *zap.Logger
	cfg    config.ProtocolConfig

	// Callbacks for media published on the connection. Any of them may be nil.
	OnAudio    AudioCallback
	OnVideo    VideoCallback
	OnMetadata MetadataCallback

	app          string
	tcURL        string
	streamKey    string
	nextStreamID uint32
}

func NewReplyPolicy(logger *zap.Logger, cfg config.ProtocolConfig) *ReplyPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplyPolicy{
		logger:       logger,
		cfg:          cfg,
		nextStreamID: uint32(config.DefaultStreamID),
	}
}

// App returns the application name the peer connected to.
func (p *ReplyPolicy) App() string { return p.app }

// StreamKey returns the stream name given to publish or play.
func (p *ReplyPolicy) StreamKey() string { return p.streamKey }

func (p *ReplyPolicy) HandleMessage(w MessageWriter, msg Message) error {
	switch m := msg.(type) {
	case *NetConnectionCommand:
		return p.onConnectionCommand(w, m)
	case *NetStreamCommand:
		return p.onStreamCommand(w, m)
	case *UserControl:
		if m.Event == EventPingRequest {
			return w.WriteMessage(NewPingResponse(m.Timestamp))
		}
	case *AudioData:
		if p.OnAudio != nil {
			p.OnAudio(m)
		}
	case *VideoData:
		if p.OnVideo != nil {
			p.OnVideo(m)
		}
	case *DataMessage:
		if p.OnMetadata != nil {
			p.OnMetadata(m)
		}
	}
	return nil
}

func (p *ReplyPolicy) onConnectionCommand(w MessageWriter, m *NetConnectionCommand) error {
	switch m.CommandName {
	case "connect":
		return p.onConnect(w, m)
	case "createStream":
		return p.onCreateStream(w, m)
	case "close":
		return ErrSessionClosed
	}
	return nil
}

func (p *ReplyPolicy) onConnect(w MessageWriter, m *NetConnectionCommand) error {
	props := m.Object()
	p.app, _ = props.GetString("app")
	p.tcURL, _ = props.GetString("tcUrl")
	p.app = strings.TrimSuffix(p.app, "/")
	p.logger.Info("connect", zap.String("app", p.app), zap.String("tc_url", p.tcURL))

	if p.cfg.App != "" && p.cfg.App != config.AnyApp && p.app != p.cfg.App {
		info := amf0.Object{
			{Key: "level", Value: "error"},
			{Key: "code", Value: NetConnectionRejected},
			{Key: "description", Value: "Application " + p.app + " does not exist."},
		}
		reply := NewNetConnectionCommand("_error", m.TransactionID, nil).WithOptional(info)
		if err := w.WriteMessage(reply); err != nil {
			return err
		}
		return errors.Wrapf(ErrConnectionRejected, "unknown app %q", p.app)
	}

	// Connect sequence: window size, peer bandwidth, stream begin and chunk size, then the result.
	replies := []Message{
		NewWindowAckSize(p.cfg.WindowAckSize),
		NewSetPeerBandwidth(p.cfg.PeerBandwidth, LimitType(p.cfg.LimitType)),
		NewStreamBegin(config.DefaultPublishStream),
		NewSetChunkSize(p.cfg.ChunkSize),
	}
	for _, reply := range replies {
		if err := w.WriteMessage(reply); err != nil {
			return err
		}
	}

	props = amf0.Object{
		{Key: "fmsVer", Value: config.FlashMediaServerVersion},
		{Key: "capabilities", Value: float64(config.Capabilities)},
		{Key: "mode", Value: float64(config.Mode)},
	}
	info := amf0.Object{
		{Key: "level", Value: "status"},
		{Key: "code", Value: NetConnectionSuccess},
		{Key: "description", Value: "Connection accepted."},
		{Key: "objectEncoding", Value: float64(0)},
	}
	return w.WriteMessage(NewNetConnectionCommand("_result", m.TransactionID, props).WithOptional(info))
}

func (p *ReplyPolicy) onCreateStream(w MessageWriter, m *NetConnectionCommand) error {
	streamID := p.nextStreamID
	p.nextStreamID++
	return w.WriteMessage(NewNetConnectionCommand("_result", m.TransactionID, nil).WithOptional(float64(streamID)))
}

func (p *ReplyPolicy) onStreamCommand(w MessageWriter, m *NetStreamCommand) error {
	streamID := m.Header().MessageStreamID
	switch m.CommandName {
	case "FCPublish":
		key, _ := m.StringArgument(0)
		info := amf0.Object{
			{Key: "level", Value: "status"},
			{Key: "code", Value: NetStreamPublishStart},
			{Key: "description", Value: "FCPublish to stream " + key},
		}
		return w.WriteMessage(NewNetStreamCommand(0, "onFCPublish", 0, nil, info))
	case "publish":
		p.streamKey, _ = m.StringArgument(0)
		p.logger.Info("publish", zap.String("stream_key", p.streamKey), zap.Uint32("stream_id", streamID))
		if err := w.WriteMessage(NewStreamBegin(streamID)); err != nil {
			return err
		}
		return w.WriteMessage(NewOnStatus(streamID, "status", NetStreamPublishStart, "Publishing "+p.streamKey))
	case "play":
		p.streamKey, _ = m.StringArgument(0)
		p.logger.Info("play", zap.String("stream_key", p.streamKey), zap.Uint32("stream_id", streamID))
		replies := []Message{
			NewStreamBegin(streamID),
			NewOnStatus(streamID, "status", NetStreamPlayReset, "Resetting "+p.streamKey),
			NewOnStatus(streamID, "status", NetStreamPlayStart, "Playing "+p.streamKey),
		}
		for _, reply := range replies {
			if err := w.WriteMessage(reply); err != nil {
				return err
			}
		}
	case "deleteStream", "closeStream", "FCUnpublish", "releaseStream":
		p.logger.Debug("stream command", zap.String("command", m.CommandName))
	}
	return nil
}
