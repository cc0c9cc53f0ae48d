package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/parley-chat/parley/pkg/client"
)

const sidebarWidth = 24

// View renders the current screen
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.surface.notice != "" {
		b.WriteString(NoticeStyle.Render(m.surface.notice))
		b.WriteString("\n")
	}

	if m.surface.loginVisible {
		b.WriteString(m.renderLogin())
		return b.String()
	}

	b.WriteString(m.renderChat())
	return b.String()
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("Parley")

	status := ""
	switch m.connectionState {
	case StateConnected:
		if id := m.dispatcher.Identity(); id != "" {
			status = StatusStyle.Render(fmt.Sprintf("logged in as %s", id))
		}
	case StateDisconnected:
		status = NoticeStyle.Render("disconnected")
	case StateReconnecting:
		status = NoticeStyle.Render(fmt.Sprintf("reconnecting (attempt %d)...", m.reconnectAttempt))
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, status)
}

func (m Model) renderLogin() string {
	prompt := lipgloss.JoinVertical(lipgloss.Left,
		PaneTitleStyle.Render("Choose a username"),
		"",
		m.nameInput.View(),
		"",
		InputLabelStyle.Render("enter to log in, ctrl+c to quit"),
	)

	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center,
		PaneStyle.Render(prompt))
}

func (m Model) renderChat() string {
	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRoomsPane(),
		m.renderUsersPane(),
	)

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTranscriptPane(),
		m.renderInputLine(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

func (m Model) renderRoomsPane() string {
	var lines []string
	lines = append(lines, PaneTitleStyle.Render("Rooms"))

	for i, item := range m.surface.rooms {
		lines = append(lines, m.renderRoomLine(i, item))
	}

	style := PaneStyle
	if m.focus == focusRooms {
		style = FocusedPaneStyle
	}
	return style.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func (m Model) renderRoomLine(i int, item client.ListItem) string {
	cursor := "  "
	if m.focus == focusRooms && i == m.roomCursor {
		cursor = CursorStyle.Render("> ")
	}

	text := item.Text
	switch {
	case m.surface.unread[item.Key]:
		text = UnreadItemStyle.Render(text + " *")
	case item.Key == m.surface.selectedRoom:
		text = SelectedItemStyle.Render(text)
	default:
		text = ItemStyle.Render(text)
	}

	return cursor + text
}

func (m Model) renderUsersPane() string {
	var lines []string
	lines = append(lines, PaneTitleStyle.Render("Online"))

	for i, item := range m.surface.users {
		cursor := "  "
		if m.focus == focusUsers && i == m.userCursor {
			cursor = CursorStyle.Render("> ")
		}
		lines = append(lines, cursor+ItemStyle.Render(item.Text))
	}

	style := PaneStyle
	if m.focus == focusUsers {
		style = FocusedPaneStyle
	}
	return style.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func (m Model) renderTranscriptPane() string {
	title := client.DisplayRoomName(m.surface.selectedRoom)
	header := PaneTitleStyle.Render(title)

	return PaneStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.transcript.View(),
	))
}

func (m Model) renderInputLine() string {
	label := InputLabelStyle.Render("send:")
	hint := InputLabelStyle.Render("  tab: switch pane")
	return lipgloss.JoinHorizontal(lipgloss.Center, label, " ", m.sendInput.View(), hint)
}
