package config

import (
	"bytes"
	"io"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPort = "1935"

const BuffioSize = 1024 * 64

const App = "app"

// AnyApp as the configured app accepts connect requests for every application name.
const AnyApp = "*"

// ProtocolChunkSize is the chunk size both peers assume until a SetChunkSize message says otherwise.
const ProtocolChunkSize uint32 = 128

// DefaultChunkSize is the outbound chunk size announced to peers after connect.
const DefaultChunkSize uint32 = 4096
const DefaultClientWindowSize uint32 = 2500000
const DefaultPeerBandwidth uint32 = 2500000
const DefaultPublishStream uint32 = 0

const FlashMediaServerVersion string = "FMS/3,5,7,7009"

const Capabilities int = 31

const Mode int = 1

const DefaultStreamID int = 1

// MaxChunkSize is the largest value a SetChunkSize message may carry (the top bit must be zero).
const MaxChunkSize uint32 = 0x7FFFFFFF

// Config is the file-backed configuration of an RTMP server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`  // 0 disables the deadline
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"` // 0 disables the deadline
}

// ProtocolConfig holds the parameters a session announces to its peer.
type ProtocolConfig struct {
	App             string `yaml:"app"` // AnyApp accepts every app
	ChunkSize       uint32 `yaml:"chunk_size"`
	WindowAckSize   uint32 `yaml:"window_ack_size"`
	PeerBandwidth   uint32 `yaml:"peer_bandwidth"`
	LimitType       uint8  `yaml:"limit_type"`
	StrictHandshake bool   `yaml:"strict_handshake,omitempty"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development,omitempty"`
}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads configuration from a YAML file. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read file")
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty document leaves every field at its default.
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "config: decode")
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":" + DefaultPort
	}
	if c.Protocol.App == "" {
		c.Protocol.App = App
	}
	if c.Protocol.ChunkSize == 0 {
		c.Protocol.ChunkSize = DefaultChunkSize
	}
	if c.Protocol.WindowAckSize == 0 {
		c.Protocol.WindowAckSize = DefaultClientWindowSize
	}
	if c.Protocol.PeerBandwidth == 0 {
		c.Protocol.PeerBandwidth = DefaultPeerBandwidth
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
