package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/hearth/internal/call"
	"github.com/BioHazard786/hearth/internal/client"
	"github.com/BioHazard786/hearth/internal/protocol"
	"github.com/BioHazard786/hearth/internal/ui"
)

var flagAnswerFrom string

var answerCmd = &cobra.Command{
	Use:     "answer",
	Aliases: []string{"a"},
	Short:   "Wait for a call and pick it up",
	Long: `Print this connection's identity, wait for someone to call it and accept
the call. Calls from anyone other than --from are rejected when it is set.

Examples:
  hearth answer
  hearth answer --from 5f0c2a9e`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCallConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		c, id, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer c.Close()
		ui.PrintInfof("Your identity: %s", ui.BoldStyle.Render(id))

		incoming, err := waitForCall(ctx, c, flagAnswerFrom)
		if err != nil {
			return err
		}
		if err := c.Send(protocol.AcceptCall{ConnectionID: incoming.ConnectionID}); err != nil {
			return err
		}
		ui.PrintSuccessf("%s Picked up a call from %s", ui.IconCall, ui.ShortID(incoming.CallerID))

		return runCall(ctx, c, cfg, call.Callee, incoming.ConnectionID)
	},
}

// waitForCall returns the first incoming call whose caller id starts with
// from, rejecting the others.
func waitForCall(ctx context.Context, c *client.Client, from string) (protocol.IncomingCall, error) {
	spinner := ui.NewWaitingSpinner("Waiting for a call...")
	spinner.Start()
	defer spinner.Stop()

	for {
		incoming, err := client.Await[protocol.IncomingCall](ctx, c, func(ev protocol.Event) {
			if assigned, ok := ev.(protocol.UserAssigned); ok {
				spinner.UpdateMessage(fmt.Sprintf("Reconnected as %s, waiting for a call...", ui.ShortID(assigned.UserID)))
			}
		})
		if err != nil {
			return protocol.IncomingCall{}, err
		}
		if from == "" || strings.HasPrefix(incoming.CallerID, from) {
			return incoming, nil
		}
		if err := c.Send(protocol.RejectCall{ConnectionID: incoming.ConnectionID}); err != nil {
			return protocol.IncomingCall{}, err
		}
	}
}

func init() {
	rootCmd.AddCommand(answerCmd)

	answerCmd.Flags().StringVar(&flagAnswerFrom, "from", "", "Only accept calls from this identity (prefix)")
}
