package client

import (
	"sync"

	"ircchat/internal/protocol"
)

// Room is the client's local view of one room: a name and the lines shown
// when the room is current.
type Room struct {
	Name  string
	Lines []string
}

// RoomList guards the local room collection and the current-room pointer
// shared between the input path and the receive loop. Switching the current
// room is a pure local operation.
type RoomList struct {
	mu      sync.Mutex
	rooms   []*Room
	current *Room
}

// NewRoomList seeds the default room and makes it current.
func NewRoomList() *RoomList {
	def := &Room{Name: protocol.DefaultRoom}
	return &RoomList{rooms: []*Room{def}, current: def}
}

// Current returns the name of the current room.
func (l *RoomList) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Name
}

// Names returns the known room names in join order.
func (l *RoomList) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.rooms))
	for i, r := range l.rooms {
		out[i] = r.Name
	}
	return out
}

// Has reports whether name is cached locally.
func (l *RoomList) Has(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.find(name) != nil
}

// Add caches a room if it is unknown, reporting whether it was created.
func (l *RoomList) Add(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.find(name) != nil {
		return false
	}
	l.rooms = append(l.rooms, &Room{Name: name})
	return true
}

// Switch makes name the current room, reporting whether it was known.
func (l *RoomList) Switch(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	room := l.find(name)
	if room == nil {
		return false
	}
	l.current = room
	return true
}

// Remove forgets a room. The default room is never removed. If the removed
// room was current, the default room becomes current; wasCurrent reports
// that switch.
func (l *RoomList) Remove(name string) (removed, wasCurrent bool) {
	if name == protocol.DefaultRoom {
		return false, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.rooms {
		if r.Name != name {
			continue
		}
		l.rooms = append(l.rooms[:i], l.rooms[i+1:]...)
		if l.current == r {
			l.current = l.rooms[0]
			return true, true
		}
		return true, false
	}
	return false, false
}

// Append adds a display line to a room, creating the room when the client
// first learns of it. It reports whether the room is current.
func (l *RoomList) Append(name, line string) (current bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	room := l.find(name)
	if room == nil {
		room = &Room{Name: name}
		l.rooms = append(l.rooms, room)
	}
	room.Lines = append(room.Lines, line)
	return room == l.current
}

// CurrentLines returns a copy of the current room's lines for rendering.
func (l *RoomList) CurrentLines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.current.Lines))
	copy(out, l.current.Lines)
	return out
}

func (l *RoomList) find(name string) *Room {
	for _, r := range l.rooms {
		if r.Name == name {
			return r
		}
	}
	return nil
}
