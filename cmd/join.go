package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BioHazard786/hearth/internal/client"
	"github.com/BioHazard786/hearth/internal/protocol"
	"github.com/BioHazard786/hearth/internal/ui"
)

var joinCmd = &cobra.Command{
	Use:     "join <community>",
	Aliases: []string{"j"},
	Short:   "Join a community and chat",
	Long: `Join a community chat room. Messages typed in the room go to every
member; /dm, /accept and /reject reach individual members.

Examples:
  hearth join support
  hearth join support --server wss://relay.example.com/ws --codec msgpack`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c, id, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		done := make(chan struct{})
		defer close(done)

		err = ui.RunChat(ui.ChatConfig{
			Community: args[0],
			Events:    replayIdentity(id, c.Events(), done),
			Send:      c.Send,
		})
		if err != nil {
			return err
		}
		if err := c.Err(); err != nil {
			return client.NewError("chat", err)
		}
		return nil
	},
}

// replayIdentity puts the already consumed user-id event back in front of
// the stream so the room joins under it.
func replayIdentity(id string, in <-chan protocol.Event, done <-chan struct{}) <-chan protocol.Event {
	out := make(chan protocol.Event)
	go func() {
		defer close(out)
		select {
		case out <- protocol.UserAssigned{UserID: id}:
		case <-done:
			return
		}
		for ev := range in {
			select {
			case out <- ev:
			case <-done:
				return
			}
		}
	}()
	return out
}

func init() {
	rootCmd.AddCommand(joinCmd)
}
