package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default server configuration values
const (
	DefaultAddr           = ":3003"
	DefaultAllowedOrigins = "*"
	DefaultMaxMessageSize = 1 << 20 // 1 MiB
	DefaultSendBuffer     = 256
)

// Server holds relay configuration
type Server struct {
	// Addr is the address the HTTP server listens on
	Addr string

	// AllowedOrigins are the browser origins allowed to open a websocket.
	// "*" allows any origin.
	AllowedOrigins []string

	MaxMessageSize int64
	SendBuffer     int

	// RateLimitInterval is the time between inbound frames a connection may
	// sustain, with RateLimitBurst headroom. Zero disables limiting.
	RateLimitInterval time.Duration
	RateLimitBurst    int

	// NegotiationTimeout ends unanswered call requests. Zero disables it.
	NegotiationTimeout time.Duration
}

// ServerOptions for loading server config with CLI flag overrides.
// Zero values defer to the environment. Settings where zero is meaningful
// are pointers, so nil defers and an explicit zero wins.
type ServerOptions struct {
	Addr               string
	AllowedOrigins     string
	MaxMessageSize     int64
	SendBuffer         int
	RateLimitInterval  *time.Duration
	RateLimitBurst     *int
	NegotiationTimeout *time.Duration
}

// LoadServer reads relay configuration with the same priority as Load:
// CLI flags, then environment variables, then defaults.
func LoadServer(opts ServerOptions) (*Server, error) {
	addr := pick(opts.Addr, "PORT", DefaultAddr)
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	maxSize, err := pickInt64(opts.MaxMessageSize, "MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		return nil, err
	}
	sendBuffer, err := pickInt64(int64(opts.SendBuffer), "SEND_BUFFER", DefaultSendBuffer)
	if err != nil {
		return nil, err
	}
	var burstFlag *int64
	if opts.RateLimitBurst != nil {
		b := int64(*opts.RateLimitBurst)
		burstFlag = &b
	}
	burst, err := pickSetInt64(burstFlag, "RATE_LIMIT_BURST")
	if err != nil {
		return nil, err
	}
	interval, err := pickDuration(opts.RateLimitInterval, "RATE_LIMIT_INTERVAL")
	if err != nil {
		return nil, err
	}
	timeout, err := pickDuration(opts.NegotiationTimeout, "NEGOTIATION_TIMEOUT")
	if err != nil {
		return nil, err
	}

	if maxSize <= 0 {
		return nil, fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", maxSize)
	}
	if sendBuffer <= 0 {
		return nil, fmt.Errorf("SEND_BUFFER must be positive, got %d", sendBuffer)
	}
	if burst < 0 || interval < 0 || timeout < 0 {
		return nil, fmt.Errorf("rate limit and negotiation timeout must not be negative")
	}

	return &Server{
		Addr:               addr,
		AllowedOrigins:     splitList(pick(opts.AllowedOrigins, "ALLOWED_ORIGINS", DefaultAllowedOrigins)),
		MaxMessageSize:     maxSize,
		SendBuffer:         int(sendBuffer),
		RateLimitInterval:  interval,
		RateLimitBurst:     int(burst),
		NegotiationTimeout: timeout,
	}, nil
}

func pickInt64(flag int64, env string, def int64) (int64, error) {
	if flag != 0 {
		return flag, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", env, v, err)
	}
	return n, nil
}

func pickSetInt64(flag *int64, env string) (int64, error) {
	if flag != nil {
		return *flag, nil
	}
	return pickInt64(0, env, 0)
}

func pickDuration(flag *time.Duration, env string) (time.Duration, error) {
	if flag != nil {
		return *flag, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", env, v, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
