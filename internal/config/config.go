package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Default client configuration values
const (
	DefaultServerURL = "ws://localhost:3003/ws"
	DefaultCodec     = "json"
	DefaultSTUN      = "stun:stun.l.google.com:19302"
	DefaultTURN      = "" // Optional, empty by default

	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
)

// Config holds client configuration
type Config struct {
	// ServerURL is the relay's websocket endpoint
	ServerURL string

	// Codec is the websocket subprotocol to speak (json or msgpack)
	Codec string

	// ICE servers for WebRTC calls
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// ForceRelay restricts calls to TURN relay candidates
	ForceRelay bool

	// Reconnection policy after an unexpected disconnect
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

// Options for loading config with CLI flag overrides
type Options struct {
	ServerURL  string
	Codec      string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Load reads client configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	serverURL := pick(opts.ServerURL, "HEARTH_SERVER", DefaultServerURL)
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be ws or wss", serverURL)
	}

	codec := strings.ToLower(pick(opts.Codec, "HEARTH_CODEC", DefaultCodec))
	if codec != "json" && codec != "msgpack" {
		return nil, fmt.Errorf("unknown codec %q: want json or msgpack", codec)
	}

	return &Config{
		ServerURL:         serverURL,
		Codec:             codec,
		STUNServer:        pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer:        pick(opts.TURNServer, "TURN_SERVER", DefaultTURN),
		TURNUser:          pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:          pick(opts.TURNPass, "TURN_PASSWORD", ""),
		ForceRelay:        opts.ForceRelay,
		ReconnectAttempts: DefaultReconnectAttempts,
		ReconnectDelay:    DefaultReconnectDelay,
	}, nil
}

// StatsURL returns the relay's /stats endpoint derived from the websocket URL.
func (c *Config) StatsURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/ws") + "/stats"
	u.RawQuery = ""
	return u.String()
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// pick returns the flag value, then the environment variable, then def.
func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}
