package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/hearth/internal/call"
	"github.com/BioHazard786/hearth/internal/client"
	"github.com/BioHazard786/hearth/internal/protocol"
	"github.com/BioHazard786/hearth/internal/ui"
)

var callCmd = &cobra.Command{
	Use:     "call <recipient-id>",
	Aliases: []string{"c"},
	Short:   "Call a connected identity",
	Long: `Ring a connected identity. Once they accept, a direct WebRTC data channel
is negotiated through the relay and typed lines are exchanged over it.
Type /hangup or press Ctrl+D to end the call.

Examples:
  hearth call 5f0c2a9e-...
  hearth call 5f0c2a9e-... --turn turn.example.com --relay`,
	Args: cobra.ExactArgs(1),
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
		ui.PrintInfof("Connected as %s", ui.BoldStyle.Render(id))

		negotiation, err := ring(ctx, c, args[0])
		if err != nil {
			return err
		}
		ui.PrintSuccessf("%s %s picked up", ui.IconCall, ui.ShortID(args[0]))

		return runCall(ctx, c, cfg, call.Caller, negotiation)
	},
}

// ring requests a call and waits for the callee's answer.
func ring(ctx context.Context, c *client.Client, recipient string) (string, error) {
	if err := c.Send(protocol.RequestCall{RecipientID: recipient}); err != nil {
		return "", err
	}

	spinner := ui.NewWaitingSpinner(fmt.Sprintf("Ringing %s...", ui.ShortID(recipient)))
	spinner.Start()
	defer spinner.Stop()

	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				if err := c.Err(); err != nil {
					return "", client.NewError("call", err)
				}
				return "", client.NewError("call", client.ErrDisconnected)
			}
			// This identity has a single outstanding request, so every call
			// event below belongs to it.
			switch e := ev.(type) {
			case protocol.CallAccepted:
				return e.ConnectionID, nil
			case protocol.CallRejected:
				return "", client.NewError("call", client.ErrCallRejected)
			case protocol.CallFailed:
				return "", client.WrapError("call", client.ErrCallFailed, e.Reason)
			case protocol.CallEnded:
				return "", client.WrapError("call", client.ErrCallEnded, "no answer")
			case protocol.UserAssigned:
				// A reconnection drops the pending call with the old identity.
				return "", client.NewError("call", client.ErrDisconnected)
			}
		case <-ctx.Done():
			return "", client.WrapError("call", client.ErrTimeout, ctx.Err().Error())
		}
	}
}

func init() {
	rootCmd.AddCommand(callCmd)
}
