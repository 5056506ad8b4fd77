package config

import (
	"net"

	"github.com/pkg/errors"
)

// Validate returns an error describing the first invalid value found.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return errors.Wrapf(err, "config: server.addr %q", c.Server.Addr)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("config: server timeouts must not be negative")
	}
	if c.Protocol.ChunkSize < 1 || c.Protocol.ChunkSize > MaxChunkSize {
		return errors.Errorf("config: protocol.chunk_size must be between 1 and %d, got %d", MaxChunkSize, c.Protocol.ChunkSize)
	}
	if c.Protocol.LimitType > 2 {
		return errors.Errorf("config: protocol.limit_type must be 0 (hard), 1 (soft) or 2 (dynamic), got %d", c.Protocol.LimitType)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("config: log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
