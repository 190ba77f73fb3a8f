package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BioHazard786/hearth/internal/client"
	"github.com/BioHazard786/hearth/internal/files"
	"github.com/BioHazard786/hearth/internal/protocol"
	"github.com/BioHazard786/hearth/internal/ui"
)

var flagMaxClipSize int64

var voiceCmd = &cobra.Command{
	Use:     "voice <recipient-id> <file>",
	Aliases: []string{"v"},
	Short:   "Send a voice clip",
	Long: `Send a recorded audio clip to a connected identity. Clips travel as raw
bytes over the msgpack codec unless --codec says otherwise.

Examples:
  hearth voice 5f0c2a9e-... note.ogg`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		clip, err := files.LoadClip(args[1], flagMaxClipSize)
		if err != nil {
			return client.NewError("load clip", err)
		}
		ui.PrintInfof("%s %s (%s, %s)", ui.IconVoice, clip.Name, clip.Type, ui.FormatSize(clip.Size()))

		if flagCodec == "" {
			flagCodec = protocol.CodecMsgpack
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		c, _, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		err = c.Send(protocol.SendVoiceMessage{RecipientID: args[0], AudioBlob: clip.Data})
		c.Close()
		if err != nil {
			return err
		}

		ui.PrintSuccessf("Voice clip sent to %s", ui.ShortID(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(voiceCmd)

	voiceCmd.Flags().Int64Var(&flagMaxClipSize, "max-size", files.DefaultMaxClipSize, "Largest clip to send in bytes")
}
