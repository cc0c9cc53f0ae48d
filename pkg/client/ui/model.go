package ui

import (
	"log"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"
	"github.com/parley-chat/parley/pkg/client"
	"github.com/parley-chat/parley/pkg/protocol"
)

// ConnectionState represents the connection status shown in the UI
type ConnectionState int

const (
	StateConnected ConnectionState = iota
	StateDisconnected
	StateReconnecting
)

// focusArea is the pane that currently receives navigation keys
type focusArea int

const (
	focusInput focusArea = iota
	focusRooms
	focusUsers
)

// Model is the bubbletea application model. It owns the protocol
// dispatcher and exposes the presentation surface the dispatcher renders
// into.
type Model struct {
	conn       client.ConnectionInterface
	dispatcher *client.Dispatcher
	surface    *surface

	connectionState  ConnectionState
	reconnectAttempt int

	// UI state
	width      int
	height     int
	focus      focusArea
	roomCursor int
	userCursor int
	transcript viewport.Model
	nameInput  textinput.Model
	sendInput  textinput.Model

	// lastNoticeSeq tracks which notification the pending clear timer
	// belongs to, so an old timer cannot clear a newer notification.
	lastNoticeSeq int

	logger *log.Logger
}

// Options configures optional model behavior
type Options struct {
	NotifyDuration       time.Duration
	DesktopNotifications bool
	Logger               *log.Logger
}

// NewModel creates the application model and its dispatcher
func NewModel(conn client.ConnectionInterface, state client.StateInterface, opts Options) Model {
	s := newSurface()

	d := client.NewDispatcher(conn, state, s)
	if opts.NotifyDuration > 0 {
		d.SetNotifyDuration(opts.NotifyDuration)
	}
	if opts.Logger != nil {
		d.SetLogger(opts.Logger)
	}
	d.MarkConnected()

	if opts.DesktopNotifications {
		d.OnUnread(func(room string, msg *protocol.Message) {
			// Only direct threads raise a desktop notification;
			// public-room chatter would be too noisy.
			if room == "" {
				return
			}
			go func() {
				_ = beeep.Notify("Parley: "+msg.Author, msg.Body, "")
			}()
		})
	}

	nameInput := textinput.New()
	nameInput.Placeholder = "username"
	nameInput.CharLimit = 32
	nameInput.Focus()

	sendInput := textinput.New()
	sendInput.Placeholder = "message"

	return Model{
		conn:            conn,
		dispatcher:      d,
		surface:         s,
		connectionState: StateConnected,
		transcript:      viewport.New(0, 0),
		nameInput:       nameInput,
		sendInput:       sendInput,
		logger:          opts.Logger,
	}
}

// Dispatcher exposes the protocol dispatcher, mainly for tests
func (m Model) Dispatcher() *client.Dispatcher {
	return m.dispatcher
}

// Messages

// EnvelopeMsg wraps an incoming server envelope
type EnvelopeMsg struct {
	Envelope *protocol.Envelope
}

// ConnErrorMsg reports a connection-level error
type ConnErrorMsg struct {
	Err error
}

// ConnectedMsg is sent when successfully connected or reconnected
type ConnectedMsg struct{}

// DisconnectedMsg is sent when the connection is lost
type DisconnectedMsg struct {
	Err error
}

// ReconnectingMsg is sent when a reconnect attempt starts
type ReconnectingMsg struct {
	Attempt int
}

// clearNoticeMsg expires the transient notification with the given seq
type clearNoticeMsg struct {
	seq int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenForEnvelopes(m.conn),
		textinput.Blink,
	)
}

// listenForEnvelopes pumps incoming envelopes, errors and connection state
// changes into bubbletea messages.
func listenForEnvelopes(conn client.ConnectionInterface) tea.Cmd {
	return func() tea.Msg {
		select {
		case env := <-conn.Incoming():
			return EnvelopeMsg{Envelope: env}
		case err := <-conn.Errors():
			return ConnErrorMsg{Err: err}
		case update := <-conn.StateChanges():
			switch update.State {
			case client.StateTypeConnected:
				return ConnectedMsg{}
			case client.StateTypeDisconnected:
				return DisconnectedMsg{Err: update.Err}
			case client.StateTypeReconnecting:
				return ReconnectingMsg{Attempt: update.Attempt}
			}
		}
		return nil
	}
}

// clearNoticeCmd schedules expiry of the current notification
func clearNoticeCmd(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
