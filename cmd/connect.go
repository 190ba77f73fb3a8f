package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/BioHazard786/hearth/internal/client"
	"github.com/BioHazard786/hearth/internal/config"
	"github.com/BioHazard786/hearth/internal/protocol"
	"github.com/BioHazard786/hearth/internal/ui"
)

const connectTimeout = 15 * time.Second

// connect dials the relay behind a spinner and waits for the first identity.
func connect(ctx context.Context, cfg *config.Config) (*client.Client, string, error) {
	codec, err := protocol.CodecFor(cfg.Codec)
	if err != nil {
		return nil, "", client.NewError("connect", err)
	}

	spinner := ui.NewConnectionSpinner("Connecting to relay...")
	spinner.Start()
	defer spinner.Stop()

	// The client redials under ctx for its whole life, so only the identity
	// wait is bounded.
	c, err := client.Dial(ctx, client.Options{
		URL:               cfg.ServerURL,
		Codec:             codec,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
		OnReconnect: func(attempt int) {
			slog.Info("reconnected to relay", "attempt", attempt)
		},
		Logger: slog.Default(),
	})
	if err != nil {
		return nil, "", err
	}

	waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	id, err := c.Identity(waitCtx)
	if err != nil {
		c.Close()
		return nil, "", err
	}
	return c, id, nil
}
