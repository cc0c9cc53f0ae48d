package client

// RoomEntry is one entry in the room directory. Unread is set when a
// message for this room arrives while another room is active, and cleared
// when the room is selected.
type RoomEntry struct {
	Key    string
	Unread bool
}

// Directory holds the locally reconciled view of known rooms and online
// users. It is rebuilt wholesale on login and patched incrementally on
// join/leave and on messages for previously unknown rooms.
//
// The directory is owned by the Dispatcher and accessed from a single
// goroutine; it does no locking of its own.
type Directory struct {
	rooms     []*RoomEntry
	roomIndex map[string]*RoomEntry
	users     []string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		roomIndex: make(map[string]*RoomEntry),
	}
}

// ReplaceAll swaps the directory contents for fresh snapshots of the given
// rooms and users. Nothing of the previous state survives.
func (d *Directory) ReplaceAll(rooms []string, users []string) {
	d.rooms = make([]*RoomEntry, 0, len(rooms))
	d.roomIndex = make(map[string]*RoomEntry, len(rooms))
	for _, key := range rooms {
		if _, ok := d.roomIndex[key]; ok {
			continue
		}
		entry := &RoomEntry{Key: key}
		d.rooms = append(d.rooms, entry)
		d.roomIndex[key] = entry
	}

	d.users = make([]string, len(users))
	copy(d.users, users)
}

// Rooms returns the room entries in insertion order.
func (d *Directory) Rooms() []RoomEntry {
	out := make([]RoomEntry, len(d.rooms))
	for i, entry := range d.rooms {
		out[i] = *entry
	}
	return out
}

// Users returns the online users in arrival order. Duplicate joins are not
// deduplicated, matching the server's announcement stream.
func (d *Directory) Users() []string {
	out := make([]string, len(d.users))
	copy(out, d.users)
	return out
}

// AddUser records a user as online.
func (d *Directory) AddUser(name string) {
	d.users = append(d.users, name)
}

// RemoveUser removes the first occurrence of the named user. Removing an
// unknown user is a silent no-op.
func (d *Directory) RemoveUser(name string) {
	for i, u := range d.users {
		if u == name {
			d.users = append(d.users[:i], d.users[i+1:]...)
			return
		}
	}
}

// EnsureRoom returns the entry for key, creating it if absent. The boolean
// reports whether a new entry was created. Repeated calls with the same key
// return the same entry.
func (d *Directory) EnsureRoom(key string) (*RoomEntry, bool) {
	if entry, ok := d.roomIndex[key]; ok {
		return entry, false
	}

	entry := &RoomEntry{Key: key}
	d.rooms = append(d.rooms, entry)
	d.roomIndex[key] = entry
	return entry, true
}

// MarkUnread flags the room as having unseen activity. Unknown keys are
// ignored.
func (d *Directory) MarkUnread(key string) {
	if entry, ok := d.roomIndex[key]; ok {
		entry.Unread = true
	}
}

// ClearUnread clears the room's unread flag. Unknown keys are ignored.
func (d *Directory) ClearUnread(key string) {
	if entry, ok := d.roomIndex[key]; ok {
		entry.Unread = false
	}
}

// Lookup returns the entry for key, if present.
func (d *Directory) Lookup(key string) (RoomEntry, bool) {
	if entry, ok := d.roomIndex[key]; ok {
		return *entry, true
	}
	return RoomEntry{}, false
}
