package server

import (
	"sync"

	"github.com/google/uuid"

	"ircchat/internal/protocol"
)

// Session is the server-side state for one live client connection. The id
// is assigned at connect time and used internally only; identity on the
// wire is always the username.
type Session struct {
	id   string
	conn Conn

	// writeMu serializes frames onto the connection so concurrent
	// broadcasts never interleave partial writes.
	writeMu sync.Mutex

	// username and rooms are guarded by the owning Registry's lock.
	// Handlers never touch them directly.
	username string
	rooms    map[string]struct{}

	exitOnce sync.Once
}

func newSession(conn Conn) *Session {
	return &Session{
		id:    uuid.NewString(),
		conn:  conn,
		rooms: make(map[string]struct{}),
	}
}

// send delivers one frame, serialized against concurrent senders to the
// same connection.
func (s *Session) send(m protocol.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteFrame(m)
}
