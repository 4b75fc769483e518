package client

import (
	"errors"
	"net"
	"testing"
	"time"

	"ircchat/internal/protocol"
)

// scriptedServer writes frames to the peer end of a pipe.
type scriptedServer struct {
	t    *testing.T
	conn net.Conn
	dec  *protocol.Decoder
}

func newScriptedServer(t *testing.T, conn net.Conn) *scriptedServer {
	return &scriptedServer{t: t, conn: conn, dec: protocol.NewDecoder(conn)}
}

func (s *scriptedServer) read() protocol.Message {
	s.conn.SetReadDeadline(time.Now().Add(time.Second))
	m, err := s.dec.Next()
	if err != nil {
		s.t.Errorf("scripted server read: %v", err)
	}
	return m
}

func (s *scriptedServer) write(m protocol.Message) {
	data, err := protocol.Marshal(m)
	if err != nil {
		s.t.Errorf("scripted server marshal: %v", err)
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := s.conn.Write(data); err != nil {
		s.t.Errorf("scripted server write: %v", err)
	}
}

func TestLoginHandshake(t *testing.T) {
	cli, srv := net.Pipe()
	t.Cleanup(func() {
		cli.Close()
		srv.Close()
	})
	sess := New(cli, time.Second)

	go func() {
		peer := newScriptedServer(t, srv)
		// First attempt: a stray heartbeat precedes the rejection.
		peer.read()
		peer.write(protocol.Message{Op: protocol.OpHeartBeat})
		peer.write(protocol.Message{Op: protocol.OpErrNameExists, User: "alice"})
		// Second attempt succeeds with the canonical name.
		peer.read()
		peer.write(protocol.Message{Op: protocol.OpLogin, Username: "alice2"})
	}()

	if err := sess.Login("alice"); !errors.Is(err, ErrNameExists) {
		t.Fatalf("first login: got %v, want ErrNameExists", err)
	}
	if err := sess.Login("alice2"); err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if sess.Username() != "alice2" {
		t.Errorf("username = %q, want the server-confirmed alice2", sess.Username())
	}
}

func TestLoginIgnoresStrayBroadcasts(t *testing.T) {
	cli, srv := net.Pipe()
	t.Cleanup(func() {
		cli.Close()
		srv.Close()
	})
	sess := New(cli, time.Second)

	go func() {
		peer := newScriptedServer(t, srv)
		peer.read()
		// Another client disconnecting mid-handshake puts a USER_EXIT
		// broadcast ahead of the verdict.
		peer.write(protocol.Message{Op: protocol.OpUserExit, User: "ghost"})
		peer.write(protocol.Message{Op: protocol.OpHeartBeat})
		peer.write(protocol.Message{Op: protocol.OpLogin, Username: "alice"})
	}()

	if err := sess.Login("alice"); err != nil {
		t.Fatalf("login failed over a stray broadcast: %v", err)
	}
	if sess.Username() != "alice" {
		t.Errorf("username = %q, want alice", sess.Username())
	}
}

func TestListenTimeoutFiresOnce(t *testing.T) {
	cli, srv := net.Pipe()
	t.Cleanup(func() {
		cli.Close()
		srv.Close()
	})

	sess := New(cli, 50*time.Millisecond)
	exits := make(chan string, 4)
	sess.On(EventExit, func(reason string, timedOut bool) {
		if !timedOut {
			t.Error("silent server must be reported as a timeout")
		}
		exits <- reason
	})

	go sess.Listen()

	select {
	case <-exits:
	case <-time.After(time.Second):
		t.Fatal("no exit event after the liveness window")
	}

	// A racing teardown must not fire a second event.
	sess.Close("again", true)
	select {
	case <-exits:
		t.Fatal("exit event fired twice")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCloseBeforeSubscribers(t *testing.T) {
	cli, srv := net.Pipe()
	t.Cleanup(func() { srv.Close() })

	// Startup can fail after the handshake, before any UI subscribes.
	sess := New(cli, time.Second)
	sess.Close("Exited", false)
	sess.Close("again", true)

	if err := sess.Send(protocol.Message{Op: protocol.OpLogin, Username: "x"}); err == nil {
		t.Error("socket still writable after Close")
	}
}

func TestListenEOFExitsOnce(t *testing.T) {
	cli, srv := net.Pipe()
	t.Cleanup(func() { cli.Close() })

	sess := New(cli, time.Second)
	exits := make(chan string, 4)
	sess.On(EventExit, func(reason string, timedOut bool) {
		exits <- reason
	})

	go sess.Listen()
	srv.Close()

	select {
	case <-exits:
	case <-time.After(time.Second):
		t.Fatal("no exit event after peer close")
	}
}

func TestListenFiltersHeartbeats(t *testing.T) {
	cli, srv := net.Pipe()
	t.Cleanup(func() {
		cli.Close()
		srv.Close()
	})

	sess := New(cli, time.Second)
	lines := make(chan string, 4)
	sess.On(EventLine, func(room, line string) {
		lines <- room + "|" + line
	})

	go sess.Listen()

	peer := newScriptedServer(t, srv)
	peer.write(protocol.Message{Op: protocol.OpHeartBeat})
	peer.write(protocol.Message{Op: protocol.OpHeartBeat})
	peer.write(protocol.Message{Op: protocol.OpMessage, User: "bob", Room: "lobby", Text: "hi"})

	select {
	case got := <-lines:
		if got != "lobby|bob: hi" {
			t.Errorf("line = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("message never reached the handler")
	}

	select {
	case got := <-lines:
		t.Fatalf("unexpected extra line %q (heartbeats must be filtered)", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleJoinConfirmationSwitchesRoom(t *testing.T) {
	cli, srv := net.Pipe()
	t.Cleanup(func() {
		cli.Close()
		srv.Close()
	})
	go func() {
		buf := make([]byte, 1024)
		for {
			if _, err := srv.Read(buf); err != nil {
				return
			}
		}
	}()

	sess := New(cli, time.Second)
	sess.setUsername("alice")

	sess.handle(protocol.Message{Op: protocol.OpJoinRoom, User: "alice", Room: "lobby", New: true})
	if sess.Rooms.Current() != "lobby" {
		t.Errorf("current = %q after own join confirmation, want lobby", sess.Rooms.Current())
	}

	// Somebody else's join is a notice, not a switch.
	sess.handle(protocol.Message{Op: protocol.OpJoinRoom, User: "bob", Room: "games", New: true})
	if sess.Rooms.Current() != "lobby" {
		t.Errorf("current = %q after foreign join, want lobby", sess.Rooms.Current())
	}
}

func TestHandleWhisperCreatesRoom(t *testing.T) {
	cli, _ := net.Pipe()
	t.Cleanup(func() { cli.Close() })

	sess := New(cli, time.Second)
	sess.setUsername("alice")

	room := protocol.WhisperRoom("alice", "bob")
	sess.handle(protocol.Message{
		Op:     protocol.OpWhisper,
		Sender: "bob",
		Target: "alice",
		Room:   room,
		Text:   "psst",
	})

	if !sess.Rooms.Has(room) {
		t.Fatalf("whisper room %q not created locally", room)
	}
	// The whisper lands in its room, with a notice in the current one.
	if sess.Rooms.Current() != protocol.DefaultRoom {
		t.Errorf("whisper must not steal the current room")
	}
	sess.Rooms.Switch(room)
	lines := sess.Rooms.CurrentLines()
	if len(lines) != 1 || lines[0] != "bob: psst" {
		t.Errorf("whisper room lines = %v", lines)
	}
}

func TestHandleLeaveRemovesRoom(t *testing.T) {
	cli, _ := net.Pipe()
	t.Cleanup(func() { cli.Close() })

	sess := New(cli, time.Second)
	sess.setUsername("alice")
	sess.Rooms.Add("lobby")
	sess.Rooms.Switch("lobby")

	sess.handle(protocol.Message{Op: protocol.OpLeaveRoom, User: "alice", Room: "lobby"})
	if sess.Rooms.Has("lobby") {
		t.Error("left room still cached")
	}
	if sess.Rooms.Current() != protocol.DefaultRoom {
		t.Errorf("current = %q, want default", sess.Rooms.Current())
	}
}
