package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BioHazard786/hearth/internal/call"
	"github.com/BioHazard786/hearth/internal/client"
	"github.com/BioHazard786/hearth/internal/config"
	"github.com/BioHazard786/hearth/internal/protocol"
	"github.com/BioHazard786/hearth/internal/ui"
)

const callOpenTimeout = 30 * time.Second

// loadCallConfig loads client configuration and checks the relay settings.
func loadCallConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	if !cfg.ForceRelay && cfg.GetTURNServers() != nil && call.ShouldForceRelay() {
		slog.Info("VPN or CGNAT interface detected, forcing TURN relay")
		cfg.ForceRelay = true
	}
	return cfg, nil
}

// runCall negotiates the data channel for an accepted call and bridges it to
// the terminal until either party hangs up.
func runCall(ctx context.Context, c *client.Client, cfg *config.Config, role call.Role, negotiation string) error {
	spinner := ui.NewConnectionSpinner("Opening a direct channel...")
	spinner.Start()
	defer spinner.Stop()

	s, err := call.Start(call.Options{
		Role:        role,
		Negotiation: negotiation,
		ICEServers:  call.ICEServers(cfg),
		SendCommand: c.Send,
		Logger:      slog.Default(),
		ForceRelay:  cfg.ForceRelay,
	})
	if err != nil {
		c.Send(protocol.EndCall{ConnectionID: negotiation})
		return client.NewError("start call", err)
	}
	defer s.Close()

	ended := make(chan error, 1)
	go bridgeSignals(c, s, negotiation, ended)

	end := func(reason string) {
		s.Hangup(reason)
		c.Send(protocol.EndCall{ConnectionID: negotiation})
	}

	select {
	case <-s.Opened():
		spinner.Success("Call connected. Type to talk, /hangup to end.")
	case err := <-ended:
		return err
	case <-s.Closed():
		return client.WrapError("call", client.ErrCallEnded, "channel closed while connecting")
	case <-time.After(callOpenTimeout):
		end("timeout")
		return client.WrapError("call", client.ErrTimeout, "direct channel did not open")
	case <-ctx.Done():
		end("interrupted")
		return nil
	}

	lines := readLines(os.Stdin)
	for {
		select {
		case line, ok := <-lines:
			if !ok || line == "/hangup" {
				end("hung up")
				ui.PrintInfo("Call ended")
				return nil
			}
			if line == "" {
				continue
			}
			if err := s.SendText(line); err != nil {
				ui.PrintWarning("not delivered: " + err.Error())
			}

		case f := <-s.Frames():
			if done := printFrame(f); done {
				return nil
			}

		case <-s.Closed():
			// Frames that raced the close are still worth showing.
			for {
				select {
				case f := <-s.Frames():
					if printFrame(f) {
						return nil
					}
				default:
					return client.NewError("call", client.ErrCallEnded)
				}
			}

		case err := <-ended:
			return err

		case <-ctx.Done():
			end("interrupted")
			return nil
		}
	}
}

// printFrame shows one frame from the other party and reports whether it
// ended the call.
func printFrame(f call.Frame) bool {
	switch f.Type {
	case call.FrameText:
		var p call.TextPayload
		if err := f.Decode(&p); err != nil {
			slog.Warn("bad text frame", "error", err)
			return false
		}
		fmt.Printf("%s %s %s\n", ui.MutedStyle.Render(ui.FormatClock(p.SentAt)), ui.PeerStyle.Render("peer:"), p.Text)
		return false
	case call.FrameHangup:
		var p call.HangupPayload
		f.Decode(&p)
		ui.PrintInfof("%s Peer hung up (%s)", ui.IconCall, p.Reason)
		return true
	default:
		slog.Debug("ignoring frame", "type", f.Type)
		return false
	}
}

// bridgeSignals feeds relayed negotiation steps into the call session and
// reports when the relay ends the call.
func bridgeSignals(c *client.Client, s *call.Session, negotiation string, ended chan<- error) {
	for ev := range c.Events() {
		switch e := ev.(type) {
		case protocol.CallSignal:
			if e.ConnectionID != negotiation {
				continue
			}
			if err := s.HandleSignal(e.Signal); err != nil {
				slog.Warn("applying call signal", "type", e.Signal.Type, "error", err)
			}
		case protocol.CallEnded:
			if e.ConnectionID == negotiation {
				ended <- client.NewError("call", client.ErrCallEnded)
				return
			}
		case protocol.UserAssigned:
			ended <- client.WrapError("call", client.ErrDisconnected, "relay connection was replaced")
			return
		}
	}

	if err := c.Err(); err != nil {
		ended <- client.NewError("call", err)
		return
	}
	ended <- client.NewError("call", client.ErrDisconnected)
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return lines
}
