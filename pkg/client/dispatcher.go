package client

import (
	"fmt"
	"log"
	"time"

	"github.com/parley-chat/parley/pkg/protocol"
)

// Phase represents the dispatcher's position in the connection lifecycle.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseUnauthenticated
	PhaseAuthenticated
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DefaultNotifyDuration is how long transient notifications stay visible.
const DefaultNotifyDuration = 4 * time.Second

// Dispatcher is the protocol core: it routes decoded inbound envelopes into
// session state, the room/user directory and the presentation ports, and
// builds outbound envelopes from user actions.
//
// The dispatcher exclusively owns the session state and the directory. All
// methods must be called from a single goroutine; each envelope is fully
// processed before the next one is handled.
type Dispatcher struct {
	conn      ConnectionInterface
	persisted StateInterface
	ports     Ports

	phase      Phase
	identity   string
	activeRoom string
	activeSet  bool
	dir        *Directory

	notifyFor time.Duration
	logger    *log.Logger

	// onUnread, if set, fires when a message is filed as unread for an
	// inactive room. The UI uses it for desktop notifications.
	onUnread func(room string, msg *protocol.Message)
}

// NewDispatcher creates a dispatcher wired to the given connection,
// persisted state and presentation ports.
func NewDispatcher(conn ConnectionInterface, persisted StateInterface, ports Ports) *Dispatcher {
	return &Dispatcher{
		conn:      conn,
		persisted: persisted,
		ports:     ports,
		phase:     PhaseDisconnected,
		dir:       NewDirectory(),
		notifyFor: DefaultNotifyDuration,
	}
}

// SetLogger sets a logger for protocol diagnostics
func (d *Dispatcher) SetLogger(logger *log.Logger) {
	d.logger = logger
}

// SetNotifyDuration overrides the transient-notification duration
func (d *Dispatcher) SetNotifyDuration(dur time.Duration) {
	d.notifyFor = dur
}

// OnUnread registers a hook fired when a room is flagged unread
func (d *Dispatcher) OnUnread(fn func(room string, msg *protocol.Message)) {
	d.onUnread = fn
}

func (d *Dispatcher) logf(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// Phase returns the current lifecycle phase
func (d *Dispatcher) Phase() Phase {
	return d.phase
}

// Identity returns the server-granted identity, or "" before login
func (d *Dispatcher) Identity() string {
	return d.identity
}

// ActiveRoom returns the selected room key. ok is false before any room
// has been selected; the empty string with ok=true is the public room.
func (d *Dispatcher) ActiveRoom() (string, bool) {
	return d.activeRoom, d.activeSet
}

// Directory returns the room/user directory owned by this dispatcher
func (d *Dispatcher) Directory() *Directory {
	return d.dir
}

// MarkConnecting records that a connection attempt has started
func (d *Dispatcher) MarkConnecting() {
	if d.phase == PhaseClosed {
		return
	}
	d.phase = PhaseConnecting
}

// MarkConnected records that the transport is up. Any previous
// authentication is void; the session starts over unauthenticated.
func (d *Dispatcher) MarkConnected() {
	if d.phase == PhaseClosed {
		return
	}
	d.phase = PhaseUnauthenticated
}

// MarkDisconnected records a transport failure and surfaces it to the user.
// With auto-reconnect disabled this is effectively terminal.
func (d *Dispatcher) MarkDisconnected(err error) {
	if d.phase == PhaseClosed {
		return
	}
	d.phase = PhaseDisconnected

	text := "connection closed"
	if err != nil {
		text = fmt.Sprintf("connection closed: %v", err)
	}
	d.ports.Notify(text, d.notifyFor)
}

// MarkClosed records a permanent shutdown
func (d *Dispatcher) MarkClosed() {
	d.phase = PhaseClosed
}

// HandleEnvelope processes one decoded inbound envelope. It never panics;
// malformed or out-of-phase envelopes are dropped and reported as a
// diagnostic error, leaving state and connection untouched.
func (d *Dispatcher) HandleEnvelope(env *protocol.Envelope) error {
	switch env.Type {
	case protocol.TypeLogin:
		return d.handleLogin(env)
	case protocol.TypeMessage:
		return d.handleMessage(env)
	case protocol.TypeJoin:
		return d.handleJoin(env)
	case protocol.TypeLeave:
		return d.handleLeave(env)
	case protocol.TypeHistory:
		return d.handleHistory(env)
	case protocol.TypeError:
		return d.handleError(env)
	default:
		return fmt.Errorf("%w: unknown type %q", protocol.ErrMalformedEnvelope, env.Type)
	}
}

// handleLogin applies a login response: the granted identity and a full
// replacement of the room/user directories and the transcript. A second
// login while already authenticated replaces everything again.
func (d *Dispatcher) handleLogin(env *protocol.Envelope) error {
	resp, err := protocol.DecodeLoginResponse(env)
	if err != nil {
		return err
	}

	if d.phase == PhaseAuthenticated {
		d.logf("login response while already authenticated; replacing state")
	}

	// The server is authoritative: adopt whatever identity it granted,
	// which may differ from the requested name.
	d.identity = resp.Username
	if err := d.persisted.SetUsername(resp.Username); err != nil {
		d.logf("failed to persist username: %v", err)
	}

	d.activeRoom = ""
	d.activeSet = true
	if err := d.persisted.SetActiveRoom(""); err != nil {
		d.logf("failed to persist room: %v", err)
	}

	d.dir.ReplaceAll(resp.Rooms, resp.Users)

	d.ports.RenderList(RoomList, d.roomItems())
	d.ports.RenderList(UserList, d.userItems())
	d.ports.RenderList(HistoryList, d.transcriptItems(resp.Messages))
	d.ports.SetSelected(RoomList, "")
	d.ports.SetVisible(LoginPanel, false)
	d.ports.SetVisible(ChatPanel, true)

	d.phase = PhaseAuthenticated
	return nil
}

// handleMessage files an inbound chat message: appended to the transcript
// when it routes to the active room, otherwise flagged unread on its room's
// directory entry (created on demand).
func (d *Dispatcher) handleMessage(env *protocol.Envelope) error {
	if d.phase != PhaseAuthenticated {
		return fmt.Errorf("message envelope in phase %s", d.phase)
	}

	msg, err := protocol.DecodeMessage(env)
	if err != nil {
		return err
	}

	room := RouteRoom(msg, d.identity)

	if d.activeSet && room == d.activeRoom {
		d.ports.RenderAppend(HistoryList, d.messageItem(msg))
		return nil
	}

	if _, created := d.dir.EnsureRoom(room); created {
		d.ports.RenderAppend(RoomList, roomItem(room))
	}
	d.dir.MarkUnread(room)
	d.ports.MarkUnread(RoomList, room)

	if d.onUnread != nil {
		d.onUnread(room, msg)
	}
	return nil
}

func (d *Dispatcher) handleJoin(env *protocol.Envelope) error {
	if d.phase != PhaseAuthenticated {
		return fmt.Errorf("join envelope in phase %s", d.phase)
	}

	ev, err := protocol.DecodeUserEvent(env)
	if err != nil {
		return err
	}

	// Duplicate joins are not deduplicated; the list mirrors the server's
	// announcement stream.
	d.dir.AddUser(ev.Name)
	d.ports.RenderAppend(UserList, ListItem{Key: ev.Name, Text: ev.Name})
	return nil
}

func (d *Dispatcher) handleLeave(env *protocol.Envelope) error {
	if d.phase != PhaseAuthenticated {
		return fmt.Errorf("leave envelope in phase %s", d.phase)
	}

	ev, err := protocol.DecodeUserEvent(env)
	if err != nil {
		return err
	}

	d.dir.RemoveUser(ev.Name)
	d.ports.RenderList(UserList, d.userItems())
	return nil
}

// handleHistory replaces the visible transcript with the returned room
// history.
func (d *Dispatcher) handleHistory(env *protocol.Envelope) error {
	if d.phase != PhaseAuthenticated {
		return fmt.Errorf("history envelope in phase %s", d.phase)
	}

	resp, err := protocol.DecodeHistoryResponse(env)
	if err != nil {
		return err
	}

	d.ports.RenderList(HistoryList, d.transcriptItems(resp.Messages))
	return nil
}

// handleError surfaces a server error as a transient notification. It
// never touches session state, the directory, or the connection.
func (d *Dispatcher) handleError(env *protocol.Envelope) error {
	resp, err := protocol.DecodeErrorResponse(env)
	if err != nil {
		return err
	}

	d.ports.Notify(resp.Message, d.notifyFor)
	return nil
}

// Login requests the given username. The granted identity arrives in the
// login response and is adopted there.
func (d *Dispatcher) Login(name string) error {
	return d.conn.SendPayload(protocol.TypeLogin, &protocol.LoginRequest{Name: name})
}

// Resync re-issues a login with the persisted username, used to restore the
// session after a reconnect. It does nothing when no username is persisted.
func (d *Dispatcher) Resync() error {
	name := d.persisted.Username()
	if name == "" {
		return nil
	}
	d.logf("resyncing session as %q", name)
	return d.Login(name)
}

// Send transmits a chat message to the active room. The author is the
// current identity and the recipient is the active room key (empty for the
// public room). Callers must only invoke this once authenticated; the
// surrounding UI enforces that by hiding the send control.
func (d *Dispatcher) Send(body string) error {
	room, _ := d.ActiveRoom()
	return d.conn.SendPayload(protocol.TypeMessage, &protocol.Message{
		Author:    d.identity,
		Recipient: room,
		Body:      body,
	})
}

// SelectRoom makes key the active room: the selection is persisted, the
// room's unread flag cleared, and its history requested from the server.
// Selecting a key with no directory entry (opening a fresh direct thread)
// creates one.
func (d *Dispatcher) SelectRoom(key string) error {
	if _, created := d.dir.EnsureRoom(key); created {
		d.ports.RenderAppend(RoomList, roomItem(key))
	}

	d.activeRoom = key
	d.activeSet = true
	if err := d.persisted.SetActiveRoom(key); err != nil {
		d.logf("failed to persist room: %v", err)
	}

	d.dir.ClearUnread(key)
	d.ports.ClearUnread(RoomList, key)
	d.ports.SetSelected(RoomList, key)

	return d.conn.SendPayload(protocol.TypeHistory, &protocol.HistoryRequest{
		User: d.identity,
		Room: key,
	})
}

func (d *Dispatcher) roomItems() []ListItem {
	rooms := d.dir.Rooms()
	items := make([]ListItem, len(rooms))
	for i, r := range rooms {
		items[i] = roomItem(r.Key)
	}
	return items
}

func (d *Dispatcher) userItems() []ListItem {
	users := d.dir.Users()
	items := make([]ListItem, len(users))
	for i, u := range users {
		items[i] = ListItem{Key: u, Text: u}
	}
	return items
}

// transcriptItems converts a newest-first message list into chronological
// render order.
func (d *Dispatcher) transcriptItems(newestFirst []*protocol.Message) []ListItem {
	items := make([]ListItem, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		items = append(items, d.messageItem(newestFirst[i]))
	}
	return items
}

func (d *Dispatcher) messageItem(msg *protocol.Message) ListItem {
	return ListItem{Text: FormatMessage(msg, d.identity)}
}

func roomItem(key string) ListItem {
	return ListItem{Key: key, Text: DisplayRoomName(key)}
}
