package server

import (
	"errors"
	"sort"
	"sync"

	"ircchat/internal/protocol"
)

// ErrNameExists - another live session already holds the requested username.
var ErrNameExists = errors.New("registry: username already taken")

// Registry is the authoritative collection of live sessions. It is the
// single shared-mutable-state object in the server: one mutex guards the
// collection and every session's username and room set, so every operation
// appears atomic with respect to every other.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session // keyed by session id
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a freshly accepted session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

// Remove drops a session, reporting whether it was still registered.
func (r *Registry) Remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.id]; !ok {
		return false
	}
	delete(r.sessions, s.id)
	return true
}

// SetUsername validates name and assigns it to s, seeding the default room
// on success. Concurrent logins with the same name cannot both succeed.
func (r *Registry) SetUsername(s *Session, name string) error {
	if err := protocol.ValidateName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.sessions {
		if other != s && other.username == name {
			return ErrNameExists
		}
	}
	s.username = name
	s.rooms[protocol.DefaultRoom] = struct{}{}
	return nil
}

// Username returns the current username of s, empty before login.
func (r *Registry) Username(s *Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return s.username
}

// Authenticated reports whether s has completed login.
func (r *Registry) Authenticated(s *Session) bool {
	return r.Username(s) != ""
}

// FindByUsername returns the live session holding name, if any.
func (r *Registry) FindByUsername(name string) (*Session, bool) {
	if name == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.username == name {
			return s, true
		}
	}
	return nil, false
}

// All returns every registered session.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// InRoom returns every session whose membership set contains room.
func (r *Registry) InRoom(room string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Session
	for _, s := range r.sessions {
		if _, ok := s.rooms[room]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Member reports whether s currently belongs to room.
func (r *Registry) Member(s *Session, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := s.rooms[room]
	return ok
}

// JoinRoom adds room to the session's membership set, reporting whether it
// was newly joined. Rooms are implicit: joining is what brings one into
// existence.
func (r *Registry) JoinRoom(s *Session, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := s.rooms[room]; ok {
		return false
	}
	s.rooms[room] = struct{}{}
	return true
}

// LeaveRoom removes room from the session's membership set. The default
// room is never leavable.
func (r *Registry) LeaveRoom(s *Session, room string) bool {
	if room == protocol.DefaultRoom {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := s.rooms[room]; !ok {
		return false
	}
	delete(s.rooms, room)
	return true
}

// Rooms returns the union of all membership sets, sorted.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	for _, s := range r.sessions {
		for room := range s.rooms {
			seen[room] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for room := range seen {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Usernames returns the usernames of the given sessions, skipping sessions
// that have not logged in, sorted.
func Usernames(sessions []*Session, r *Registry) []string {
	var out []string
	for _, s := range sessions {
		if name := r.Username(s); name != "" {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
