package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/hearth/internal/client"
	"github.com/BioHazard786/hearth/internal/config"
	"github.com/BioHazard786/hearth/internal/version"
)

var (
	flagServer   string
	flagCodec    string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hearth",
	Short: "Community presence and messaging relay, with a terminal client",
	Long: `Hearth relays presence, chat, direct messages, voice clips and call
negotiation between the members of named communities over WebSockets.

Run "hearth serve" to start a relay, then "hearth join <community>" to chat.`,
	Version: version.Version,
}

// Execute runs the root command until it finishes or the process is
// interrupted. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		client.PrintErr(err)
		stop()
		os.Exit(1)
	}
}

// loadConfig resolves client configuration from the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		ServerURL:  flagServer,
		Codec:      flagCodec,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
	if err != nil {
		return nil, client.NewError("load config", err)
	}
	return cfg, nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagServer, "server", "s", "", "Relay websocket URL (env HEARTH_SERVER)")
	flags.StringVar(&flagCodec, "codec", "", "Wire codec: json or msgpack (env HEARTH_CODEC)")
	flags.StringVar(&flagSTUN, "stun", "", "STUN server for calls (env STUN_SERVER)")
	flags.StringVar(&flagTURN, "turn", "", "TURN server for calls (env TURN_SERVER)")
	flags.StringVar(&flagTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	flags.StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	flags.BoolVar(&flagRelay, "relay", false, "Force calls through the TURN relay")
}
