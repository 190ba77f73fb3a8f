package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/hearth/internal/protocol"
	"github.com/BioHazard786/hearth/internal/signaling"
)

const (
	me    = "11111111-aaaa-4bbb-8ccc-000000000001"
	other = "22222222-aaaa-4bbb-8ccc-000000000002"
)

func newTestChat(t *testing.T) (*ChatModel, *[]protocol.Command) {
	t.Helper()

	var sent []protocol.Command
	m := NewChatModel(ChatConfig{
		Community: "support",
		Events:    make(chan protocol.Event),
		Send: func(cmd protocol.Command) error {
			sent = append(sent, cmd)
			return nil
		},
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, &sent
}

func TestChatJoinsOnEveryIdentity(t *testing.T) {
	m, sent := newTestChat(t)

	m.Update(eventMsg{ev: protocol.UserAssigned{UserID: me}})
	require.Equal(t, []protocol.Command{protocol.JoinCommunity{CommunityID: "support"}}, *sent)

	m.Update(eventMsg{ev: protocol.CommunityMembers{CommunityID: "support", Members: []string{me, other}}})
	require.Equal(t, []string{me, other}, m.Members())

	// After a reconnection the room is joined again under the new identity.
	m.Update(eventMsg{ev: protocol.UserAssigned{UserID: other}})
	require.Len(t, *sent, 2)
	require.Empty(t, m.Members())
}

func TestChatRendersEvents(t *testing.T) {
	m, _ := newTestChat(t)
	m.Update(eventMsg{ev: protocol.UserAssigned{UserID: me}})

	m.Update(eventMsg{ev: protocol.CommunityMembers{CommunityID: "elsewhere", Members: []string{other}}})
	require.Empty(t, m.Members())

	m.Update(eventMsg{ev: protocol.UserJoined{UserID: other, CommunityID: "support"}})
	m.Update(eventMsg{ev: protocol.CommunityMessage{UserID: other, CommunityID: "support", Message: "hi there"}})
	m.Update(eventMsg{ev: protocol.CommunityMessage{UserID: other, CommunityID: "elsewhere", Message: "not shown"}})
	m.Update(eventMsg{ev: protocol.VoiceMessage{SenderID: other, AudioBlob: make([]byte, 2048)}})
	m.Update(eventMsg{ev: protocol.CallFailed{RecipientID: "ghost", Reason: protocol.ReasonUserNotFound}})

	out := strings.Join(m.Lines(), "\n")
	require.Len(t, m.Lines(), 4)
	require.Contains(t, out, "joined")
	require.Contains(t, out, "hi there")
	require.NotContains(t, out, "not shown")
	require.Contains(t, out, "2.0 KiB")
	require.Contains(t, out, "User not found")

	require.Contains(t, m.View(), "support")
}

func TestChatSubmit(t *testing.T) {
	m, sent := newTestChat(t)
	m.Update(eventMsg{ev: protocol.UserAssigned{UserID: me}})
	m.Update(eventMsg{ev: protocol.CommunityMembers{CommunityID: "support", Members: []string{me, other}}})
	*sent = nil

	require.False(t, m.submit("hello all"))
	require.False(t, m.submit("/dm 22222222 psst  there"))
	require.False(t, m.submit("/accept n-1"))
	require.False(t, m.submit("/reject n-2"))
	require.False(t, m.submit("/dm"))
	require.False(t, m.submit("/bogus"))

	require.Equal(t, []protocol.Command{
		protocol.SendCommunityMessage{CommunityID: "support", Message: "hello all"},
		protocol.SendPrivateMessage{RecipientID: other, Message: "psst  there"},
		protocol.AcceptCall{ConnectionID: "n-1"},
		protocol.RejectCall{ConnectionID: "n-2"},
	}, *sent)

	require.True(t, m.submit("/quit"))
}

func TestChatQuitLeaves(t *testing.T) {
	m, sent := newTestChat(t)
	m.Update(eventMsg{ev: protocol.UserAssigned{UserID: me}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.Equal(t, protocol.LeaveCommunity{CommunityID: "support"}, (*sent)[len(*sent)-1])
	require.Empty(t, m.View())
}

func TestRosterView(t *testing.T) {
	out := RosterView([]string{me, other}, me)
	require.Contains(t, out, "11111111 (you)")
	require.Contains(t, out, "22222222")

	require.Contains(t, RosterView(nil, me), "No members")
}

func TestStatsView(t *testing.T) {
	out := StatsView(signaling.Stats{
		Connections:  3,
		Rooms:        []signaling.RoomStats{{CommunityID: "lobby", Members: 2}},
		Negotiations: 1,
	})
	require.Contains(t, out, "lobby")
	require.Contains(t, out, "CONNECTIONS")
}

func TestFormatting(t *testing.T) {
	require.Equal(t, "512 B", FormatSize(512))
	require.Equal(t, "1.5 MiB", FormatSize(3<<19))
	require.Equal(t, "abc", ShortID("abc"))
	require.Equal(t, "11111111", ShortID(me))
}
