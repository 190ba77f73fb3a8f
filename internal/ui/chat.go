package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// ChatConfig wires the chat room to a relay connection.
type ChatConfig struct {
	Community string

	// Events is the relay's event stream. The room ends when it closes.
	Events <-chan protocol.Event

	// Send queues a command for the relay.
	Send func(protocol.Command) error
}

type eventMsg struct{ ev protocol.Event }

type streamClosedMsg struct{}

const rosterWidth = 26

const chatHelp = "/dm <id> <text>  /accept <call>  /reject <call>  /quit"

// ChatModel is the bubbletea model of a community chat room.
type ChatModel struct {
	cfg ChatConfig

	self    string
	members []string
	lines   []string

	viewport viewport.Model
	input    textinput.Model
	ready    bool

	status   string
	quitting bool
}

// NewChatModel creates a chat room for cfg.Community.
func NewChatModel(cfg ChatConfig) *ChatModel {
	ti := textinput.New()
	ti.Placeholder = "Say something..."
	ti.Prompt = "› "
	ti.CharLimit = 2000
	ti.Focus()

	return &ChatModel{
		cfg:    cfg,
		input:  ti,
		status: "connecting",
	}
}

// RunChat runs the chat room in the alternate screen until the user quits or
// the relay connection ends.
func RunChat(cfg ChatConfig) error {
	_, err := tea.NewProgram(NewChatModel(cfg), tea.WithAltScreen()).Run()
	return err
}

func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen())
}

func (m *ChatModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.cfg.Events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.quit()
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line != "" {
				if quit := m.submit(line); quit {
					return m.quit()
				}
			}
		}

	case tea.WindowSizeMsg:
		width := max(msg.Width-rosterWidth-4, 20)
		height := max(msg.Height-4, 5)
		if !m.ready {
			m.viewport = viewport.New(width, height)
			m.ready = true
		} else {
			m.viewport.Width = width
			m.viewport.Height = height
		}
		m.input.Width = width - 2
		m.refresh()

	case eventMsg:
		m.handle(msg.ev)
		cmds = append(cmds, m.listen())

	case streamClosedMsg:
		m.status = "disconnected"
		m.appendLine(ErrorStyle.Render("connection to the relay was lost"))
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.send(protocol.LeaveCommunity{CommunityID: m.cfg.Community})
	return m, tea.Quit
}

// handle applies one relay event to the room.
func (m *ChatModel) handle(ev protocol.Event) {
	switch e := ev.(type) {
	case protocol.UserAssigned:
		// Every connection, including a reconnection, starts outside the room.
		m.self = e.UserID
		m.members = nil
		m.status = "connected as " + ShortID(e.UserID)
		m.send(protocol.JoinCommunity{CommunityID: m.cfg.Community})

	case protocol.CommunityMembers:
		if e.CommunityID == m.cfg.Community {
			m.members = e.Members
		}

	case protocol.UserJoined:
		if e.CommunityID == m.cfg.Community {
			m.appendLine(MutedStyle.Render(fmt.Sprintf("%s %s joined", IconPeer, m.name(e.UserID))))
		}

	case protocol.UserLeft:
		if e.CommunityID == m.cfg.Community {
			m.appendLine(MutedStyle.Render(fmt.Sprintf("%s %s left", IconPeer, m.name(e.UserID))))
		}

	case protocol.CommunityMessage:
		if e.CommunityID == m.cfg.Community {
			m.appendLine(fmt.Sprintf("%s %s: %s", MutedStyle.Render(FormatClock(e.Timestamp)), m.name(e.UserID), e.Message))
		}

	case protocol.PrivateMessage:
		m.appendLine(fmt.Sprintf("%s %s %s → you: %s", MutedStyle.Render(FormatClock(e.Timestamp)), IconPrivate, m.name(e.SenderID), e.Message))

	case protocol.VoiceMessage:
		m.appendLine(fmt.Sprintf("%s %s voice clip from %s (%s)", MutedStyle.Render(FormatClock(e.Timestamp)), IconVoice, m.name(e.SenderID), FormatSize(int64(len(e.AudioBlob)))))

	case protocol.IncomingCall:
		m.appendLine(WarningStyle.Render(fmt.Sprintf("%s %s is calling, /accept %s or /reject %s", IconCall, ShortID(e.CallerID), e.ConnectionID, e.ConnectionID)))

	case protocol.CallEnded:
		m.appendLine(MutedStyle.Render(fmt.Sprintf("%s call %s ended", IconCall, ShortID(e.ConnectionID))))

	case protocol.CallFailed:
		m.appendLine(ErrorStyle.Render(fmt.Sprintf("%s call to %s failed: %s", IconCall, ShortID(e.RecipientID), e.Reason)))
	}
}

// submit handles one line of input and reports whether the room should close.
func (m *ChatModel) submit(line string) bool {
	if !strings.HasPrefix(line, "/") {
		m.send(protocol.SendCommunityMessage{CommunityID: m.cfg.Community, Message: line})
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/leave":
		return true
	case "/dm":
		if len(fields) < 3 {
			m.appendLine(WarningStyle.Render("usage: /dm <id> <text>"))
			return false
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		text := strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
		m.send(protocol.SendPrivateMessage{RecipientID: m.resolve(fields[1]), Message: text})
		m.appendLine(fmt.Sprintf("%s you → %s: %s", IconPrivate, ShortID(fields[1]), text))
	case "/accept", "/reject":
		if len(fields) != 2 {
			m.appendLine(WarningStyle.Render("usage: " + fields[0] + " <call>"))
			return false
		}
		if fields[0] == "/accept" {
			m.send(protocol.AcceptCall{ConnectionID: fields[1]})
		} else {
			m.send(protocol.RejectCall{ConnectionID: fields[1]})
		}
	default:
		m.appendLine(WarningStyle.Render(chatHelp))
	}
	return false
}

// resolve expands a member's short id to the full identity.
func (m *ChatModel) resolve(id string) string {
	for _, member := range m.members {
		if strings.HasPrefix(member, id) {
			return member
		}
	}
	return id
}

func (m *ChatModel) send(cmd protocol.Command) {
	if err := m.cfg.Send(cmd); err != nil {
		m.status = err.Error()
	}
}

func (m *ChatModel) name(id string) string {
	if id == m.self {
		return SelfStyle.Render("you")
	}
	return PeerStyle.Render(ShortID(id))
}

func (m *ChatModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *ChatModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *ChatModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		StatusStyle.Render(IconCommunity+" "+m.cfg.Community),
		" ",
		MutedStyle.Render(m.status),
	)

	roster := PanelStyle.Width(rosterWidth).Render(
		TitleStyle.Render(fmt.Sprintf("Members (%d)", len(m.members))) + "\n" + RosterView(m.members, m.self),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), " ", roster)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.input.View())
}

// Members returns the last roster received for the room.
func (m *ChatModel) Members() []string { return m.members }

// Lines returns the rendered conversation.
func (m *ChatModel) Lines() []string { return m.lines }
