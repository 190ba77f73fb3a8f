package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/BioHazard786/hearth/internal/signaling"
)

// RosterView renders a community's member list. The viewer's own identity is
// highlighted.
func RosterView(members []string, self string) string {
	if len(members) == 0 {
		return MutedStyle.Render("No members")
	}

	rows := make([][]string, len(members))
	for i, m := range members {
		name := ShortID(m)
		if m == self {
			name += " (you)"
		}
		rows[i] = []string{strconv.Itoa(i + 1), name}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", "Member").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row >= 0 && members[row] == self:
				return tableCellStyle.Inherit(SelfStyle)
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// StatsView renders a relay stats snapshot.
func StatsView(stats signaling.Stats) string {
	t := prettytable.NewWriter()
	t.SetTitle("Relay")
	t.AppendHeader(prettytable.Row{"Community", "Members"})
	for _, room := range stats.Rooms {
		t.AppendRow(prettytable.Row{room.CommunityID, room.Members})
	}
	if len(stats.Rooms) == 0 {
		t.AppendRow(prettytable.Row{"(none)", 0})
	}
	t.AppendFooter(prettytable.Row{"Connections", stats.Connections})
	t.AppendFooter(prettytable.Row{"Calls", stats.Negotiations})

	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Colors = text.Colors{text.Bold, text.FgHiYellow}
	t.Style().Color.Header = text.Colors{text.Bold, text.FgHiYellow}
	t.SetColumnConfigs([]prettytable.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})

	return t.Render()
}

// RenderStats outputs the stats table directly to stdout
func RenderStats(stats signaling.Stats) {
	fmt.Println(StatsView(stats))
}
