package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles all bubbletea messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeTranscript()
		m.refreshTranscript(true)
		return m, nil

	case EnvelopeMsg:
		if msg.Envelope != nil {
			if err := m.dispatcher.HandleEnvelope(msg.Envelope); err != nil {
				m.logf("dropped envelope: %v", err)
			}
		}
		cmds := []tea.Cmd{listenForEnvelopes(m.conn)}
		if cmd := m.afterDispatch(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case ConnErrorMsg:
		m.logf("connection error: %v", msg.Err)
		return m, listenForEnvelopes(m.conn)

	case ConnectedMsg:
		m.connectionState = StateConnected
		m.reconnectAttempt = 0
		m.dispatcher.MarkConnected()
		if err := m.dispatcher.Resync(); err != nil {
			m.logf("resync failed: %v", err)
		}
		return m, listenForEnvelopes(m.conn)

	case DisconnectedMsg:
		m.connectionState = StateDisconnected
		m.dispatcher.MarkDisconnected(msg.Err)
		cmds := []tea.Cmd{listenForEnvelopes(m.conn)}
		if cmd := m.afterDispatch(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case ReconnectingMsg:
		m.connectionState = StateReconnecting
		m.reconnectAttempt = msg.Attempt
		return m, listenForEnvelopes(m.conn)

	case clearNoticeMsg:
		// Only the timer belonging to the current notification clears it
		if msg.seq == m.surface.noticeSeq {
			m.surface.notice = ""
		}
		return m, nil
	}

	return m, nil
}

// afterDispatch reconciles the model with whatever the dispatcher just
// rendered into the surface: transcript viewport refresh and notification
// expiry scheduling.
func (m *Model) afterDispatch() tea.Cmd {
	if m.surface.transcriptDirty {
		m.refreshTranscript(m.surface.transcriptAppended)
		m.surface.transcriptDirty = false
		m.surface.transcriptAppended = false
	}

	if m.surface.noticeSeq != m.lastNoticeSeq {
		m.lastNoticeSeq = m.surface.noticeSeq
		return clearNoticeCmd(m.surface.noticeSeq, m.surface.noticeFor)
	}
	return nil
}

func (m *Model) refreshTranscript(scrollToEnd bool) {
	lines := make([]string, len(m.surface.transcript))
	for i, item := range m.surface.transcript {
		lines[i] = item.Text
	}
	m.transcript.SetContent(strings.Join(lines, "\n"))
	if scrollToEnd {
		m.transcript.GotoBottom()
	}
}

func (m *Model) resizeTranscript() {
	sidebar := sidebarWidth
	w := m.width - sidebar - 6
	if w < 10 {
		w = 10
	}
	h := m.height - 7
	if h < 3 {
		h = 3
	}
	m.transcript.Width = w
	m.transcript.Height = h
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.dispatcher.MarkClosed()
		return m, tea.Quit
	}

	if m.surface.loginVisible {
		return m.handleLoginKeys(msg)
	}
	return m.handleChatKeys(msg)
}

func (m Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		name := strings.TrimSpace(m.nameInput.Value())
		if name == "" {
			return m, nil
		}
		if err := m.dispatcher.Login(name); err != nil {
			m.logf("login failed: %v", err)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		m.focus = (m.focus + 1) % 3
		if m.focus == focusInput {
			m.sendInput.Focus()
		} else {
			m.sendInput.Blur()
		}
		return m, nil

	case "esc":
		m.focus = focusInput
		m.sendInput.Focus()
		return m, nil
	}

	switch m.focus {
	case focusRooms:
		return m.handleRoomsKeys(msg)
	case focusUsers:
		return m.handleUsersKeys(msg)
	}
	return m.handleInputKeys(msg)
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		body := m.sendInput.Value()
		if strings.TrimSpace(body) == "" {
			return m, nil
		}
		if err := m.dispatcher.Send(body); err != nil {
			m.logf("send failed: %v", err)
		}
		m.sendInput.Reset()
		return m, nil

	case "pgup":
		m.transcript.HalfViewUp()
		return m, nil

	case "pgdown":
		m.transcript.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.sendInput, cmd = m.sendInput.Update(msg)
	return m, cmd
}

func (m Model) handleRoomsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.roomCursor > 0 {
			m.roomCursor--
		}
	case "down", "j":
		if m.roomCursor < len(m.surface.rooms)-1 {
			m.roomCursor++
		}
	case "enter":
		if m.roomCursor < len(m.surface.rooms) {
			key := m.surface.rooms[m.roomCursor].Key
			if err := m.dispatcher.SelectRoom(key); err != nil {
				m.logf("select room failed: %v", err)
			}
			return m, m.afterDispatch()
		}
	}
	return m, nil
}

func (m Model) handleUsersKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.userCursor > 0 {
			m.userCursor--
		}
	case "down", "j":
		if m.userCursor < len(m.surface.users)-1 {
			m.userCursor++
		}
	case "enter":
		if m.userCursor < len(m.surface.users) {
			// Selecting a user opens (or resumes) the direct thread
			key := m.surface.users[m.userCursor].Key
			if err := m.dispatcher.SelectRoom(key); err != nil {
				m.logf("open thread failed: %v", err)
			}
			return m, m.afterDispatch()
		}
	}
	return m, nil
}

func (m Model) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
