// Package client implements the client side of the chat protocol: the
// login handshake, the background receive loop with its liveness watchdog,
// command parsing, and the local room state the UI renders.
package client

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/chuckpreslar/emission"

	"ircchat/internal/protocol"
)

// DefaultTimeout is the idle-read window. The server heartbeats every
// second, so a silent connection means the server is gone.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNameExists - the requested username is taken.
	ErrNameExists = errors.New("client: username already exists")

	// ErrIllegalName - the requested username is illegal.
	ErrIllegalName = errors.New("client: illegal username")

	// ErrNameLength - the requested username has illegal length.
	ErrNameLength = errors.New("client: illegal username length")
)

// Session is the client side of one server connection. The interactive
// input path and the background receive loop are the two execution contexts
// sharing it; Rooms carries its own lock and the remaining mutable state is
// guarded by stateMu.
type Session struct {
	conn    net.Conn
	dec     *protocol.Decoder
	writeMu sync.Mutex

	stateMu  sync.Mutex
	username string
	debug    bool

	Rooms   *RoomList
	emitter *emission.Emitter

	timeout  time.Duration
	exitOnce sync.Once
}

// New wraps an established connection. The timeout bounds every network
// read so server loss is detected in finite time.
func New(conn net.Conn, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		conn:    conn,
		dec:     protocol.NewDecoder(conn),
		Rooms:   NewRoomList(),
		emitter: emission.NewEmitter(),
		timeout: timeout,
	}
}

// Dial connects to the server at addr.
func Dial(addr string) (*Session, error) {
	conn, err := net.DialTimeout("tcp", addr, DefaultTimeout)
	if err != nil {
		return nil, err
	}
	return New(conn, DefaultTimeout), nil
}

// On subscribes a listener to one of the Event* names.
func (s *Session) On(event string, listener interface{}) {
	s.emitter.On(event, listener)
}

// Username returns the canonical username the server confirmed.
func (s *Session) Username() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.username
}

func (s *Session) setUsername(name string) {
	s.stateMu.Lock()
	s.username = name
	s.stateMu.Unlock()
}

func (s *Session) debugOn() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.debug
}

// Login runs the blocking handshake: send LOGIN, then wait for the verdict,
// skipping heartbeats and any broadcast that lands in the window. It must
// complete before Listen starts; the decoder
// keeps any bytes buffered past the verdict, so a trailing heartbeat cannot
// be misread later. Name rejections come back as the Err* sentinels so the
// caller can prompt again with the specific reason.
func (s *Session) Login(name string) error {
	if err := s.Send(protocol.Message{Op: protocol.OpLogin, Username: name}); err != nil {
		return err
	}
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.timeout))
		m, err := s.dec.Next()
		if err != nil {
			return fmt.Errorf("client: login read: %w", err)
		}
		switch m.Op {
		case protocol.OpLogin:
			// Server is authoritative about the canonical name.
			s.setUsername(m.Username)
			return nil
		case protocol.OpErrNameExists:
			return ErrNameExists
		case protocol.OpErrIllegalName:
			return ErrIllegalName
		case protocol.OpErrIllegalLen:
			return ErrNameLength
		default:
			// Heartbeats and broadcasts (a USER_EXIT for some other
			// client, say) can land in the handshake window; only a
			// verdict ends the wait.
			continue
		}
	}
}

// Send writes one frame, serialized against concurrent senders.
func (s *Session) Send(m protocol.Message) error {
	data, err := protocol.Marshal(m)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = s.conn.Write(data)
	return err
}

// Listen runs the background receive loop until the connection dies or the
// read deadline passes with no traffic. Heartbeats are consumed here and
// never reach the handlers. Call in its own goroutine, after Login.
func (s *Session) Listen() {
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.timeout))
		m, err := s.dec.Next()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformed) || errors.Is(err, protocol.ErrFrameTooLarge) {
				s.status("ERROR: Malformed response from server")
				continue
			}
			// Zero bytes on read or a silent window both mean the
			// server is gone.
			s.Close("Server timed out", true)
			return
		}
		if m.Op == protocol.OpHeartBeat {
			continue
		}
		if s.debugOn() {
			if raw, err := protocol.Marshal(m); err == nil {
				s.status("RECEIVING: " + string(raw[:len(raw)-1]))
			}
		}
		s.handle(m)
	}
}

// Close tears the session down at most once: the socket closes (unblocking
// Listen) and EventExit fires with the reason.
func (s *Session) Close(reason string, timedOut bool) {
	s.exitOnce.Do(func() {
		s.conn.Close()
		s.emitter.Emit(EventExit, reason, timedOut)
	})
}

// status prints a one-line notice into the current room.
func (s *Session) status(line string) {
	s.appendLine(s.Rooms.Current(), line)
}

// appendLine records a display line and notifies the UI.
func (s *Session) appendLine(room, line string) {
	s.Rooms.Append(room, line)
	s.emitter.Emit(EventLine, room, line)
}

// switchRoom makes room current locally and notifies the UI.
func (s *Session) switchRoom(room string) {
	if s.Rooms.Switch(room) {
		s.emitter.Emit(EventRoom, room)
	}
}
