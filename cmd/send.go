package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/hearth/internal/protocol"
	"github.com/BioHazard786/hearth/internal/ui"
)

var sendCmd = &cobra.Command{
	Use:     "send <recipient-id> <message...>",
	Aliases: []string{"dm"},
	Short:   "Send a private message",
	Long: `Send a one-off private message to a connected identity. Messages to
identities that are not connected are dropped by the relay.

Examples:
  hearth send 5f0c2a9e-... "are you around?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c, _, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		err = c.Send(protocol.SendPrivateMessage{
			RecipientID: args[0],
			Message:     strings.Join(args[1:], " "),
		})
		c.Close()
		if err != nil {
			return err
		}

		ui.PrintSuccessf("Message sent to %s", ui.ShortID(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
