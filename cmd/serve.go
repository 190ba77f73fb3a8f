package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/BioHazard786/hearth/internal/config"
	"github.com/BioHazard786/hearth/internal/logging"
	"github.com/BioHazard786/hearth/internal/server"
	"github.com/BioHazard786/hearth/internal/signaling"
	"github.com/BioHazard786/hearth/internal/version"
)

const shutdownTimeout = 10 * time.Second

var (
	serveOpts config.ServerOptions

	rateInterval       time.Duration
	rateBurst          int
	negotiationTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Long: `Run the relay: a WebSocket endpoint at /ws plus /health and /stats.

Examples:
  hearth serve
  hearth serve --addr :8080 --origins https://app.example.com
  LOG_LEVEL=debug hearth serve --negotiation-timeout 30s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.SetFallback(slog.LevelInfo)

		cfg, err := config.LoadServer(serveOptions(cmd))
		if err != nil {
			return err
		}
		return runServer(cmd.Context(), cfg)
	},
}

// serveOptions completes serveOpts with the flags where zero means "off",
// set only when given so that an explicit 0 overrides the environment.
func serveOptions(cmd *cobra.Command) config.ServerOptions {
	opts := serveOpts
	flags := cmd.Flags()
	if flags.Changed("rate-interval") {
		opts.RateLimitInterval = &rateInterval
	}
	if flags.Changed("rate-burst") {
		opts.RateLimitBurst = &rateBurst
	}
	if flags.Changed("negotiation-timeout") {
		opts.NegotiationTimeout = &negotiationTimeout
	}
	return opts
}

// hubOptions maps relay configuration onto the hub.
func hubOptions(cfg *config.Server, logger *slog.Logger) signaling.Options {
	opts := signaling.Options{
		SendBuffer:         cfg.SendBuffer,
		MaxMessageSize:     cfg.MaxMessageSize,
		NegotiationTimeout: cfg.NegotiationTimeout,
		Logger:             logger,
	}
	if cfg.RateLimitInterval > 0 {
		opts.RateLimit = rate.Every(cfg.RateLimitInterval)
		opts.RateBurst = max(cfg.RateLimitBurst, 1)
	}
	return opts
}

func runServer(ctx context.Context, cfg *config.Server) error {
	logger := slog.Default()
	hub := signaling.NewHub(hubOptions(cfg, logger))
	srv := server.New(cfg, hub, logger)

	logger.Info("starting relay",
		"version", version.Version,
		"origins", cfg.AllowedOrigins,
		"negotiation_timeout", cfg.NegotiationTimeout,
	)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.StringVar(&serveOpts.Addr, "addr", "", "Listen address or port (env PORT, default :3003)")
	flags.StringVar(&serveOpts.AllowedOrigins, "origins", "", "Comma separated allowed origins, * for any (env ALLOWED_ORIGINS)")
	flags.Int64Var(&serveOpts.MaxMessageSize, "max-message-size", 0, "Largest inbound frame in bytes (env MAX_MESSAGE_SIZE)")
	flags.IntVar(&serveOpts.SendBuffer, "send-buffer", 0, "Queued outbound messages per connection (env SEND_BUFFER)")
	flags.DurationVar(&rateInterval, "rate-interval", 0, "Minimum spacing of inbound frames, 0 disables (env RATE_LIMIT_INTERVAL)")
	flags.IntVar(&rateBurst, "rate-burst", 0, "Inbound frame burst allowance (env RATE_LIMIT_BURST)")
	flags.DurationVar(&negotiationTimeout, "negotiation-timeout", 0, "End unanswered calls after this long, 0 disables (env NEGOTIATION_TIMEOUT)")
}
