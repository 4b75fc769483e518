package server

import (
	"errors"

	"ircchat/internal/protocol"
)

// dispatch handles one decoded frame from sess. Handler failures are
// answered on the offending connection and never unwind the read loop:
// a failure processing one message must not stop traffic on other
// connections. Every opcode except LOGIN is gated behind authentication.
func (s *Server) dispatch(sess *Session, m protocol.Message) {
	if m.Op != protocol.OpLogin && !s.registry.Authenticated(sess) {
		s.reply(sess, protocol.Message{Op: protocol.OpErrIllegalOp})
		return
	}

	switch m.Op {
	case protocol.OpLogin:
		s.handleLogin(sess, m)
	case protocol.OpListRooms:
		s.handleListRooms(sess)
	case protocol.OpListUsers:
		s.handleListUsers(sess, m)
	case protocol.OpJoinRoom:
		s.handleJoinRoom(sess, m)
	case protocol.OpLeaveRoom:
		s.handleLeaveRoom(sess, m)
	case protocol.OpMessage:
		s.handleMessage(sess, m)
	case protocol.OpWhisper:
		s.handleWhisper(sess, m)
	default:
		// Server-to-client opcodes echoed back are illegal; anything
		// outside the enumeration is unknown.
		op := protocol.OpErrUnknown
		switch m.Op {
		case protocol.OpUserExit, protocol.OpHeartBeat,
			protocol.OpErrUnknown, protocol.OpErrIllegalOp,
			protocol.OpErrIllegalLen, protocol.OpErrNameExists,
			protocol.OpErrIllegalName, protocol.OpErrIllegalMsg,
			protocol.OpErrIllegalWisp, protocol.OpErrMalformed:
			op = protocol.OpErrIllegalOp
		}
		s.reply(sess, protocol.Message{Op: op})
	}
}

// reply answers the single requester. A dead connection here is handled
// like any other disconnect.
func (s *Server) reply(sess *Session, m protocol.Message) {
	if err := s.router.SendTo(sess, m); err != nil {
		go s.dropSession(sess)
	}
}

func (s *Server) handleLogin(sess *Session, m protocol.Message) {
	name := m.Username
	err := s.registry.SetUsername(sess, name)
	switch {
	case errors.Is(err, protocol.ErrIllegalName):
		s.reply(sess, protocol.Message{Op: protocol.OpErrIllegalName, User: name})
	case errors.Is(err, protocol.ErrNameLength):
		s.reply(sess, protocol.Message{Op: protocol.OpErrIllegalLen, User: name})
	case errors.Is(err, ErrNameExists):
		s.reply(sess, protocol.Message{Op: protocol.OpErrNameExists, User: name})
	case err == nil:
		s.log.Info().Str("session", sess.id).Str("user", name).Msg("logged in")
		s.reply(sess, protocol.Message{Op: protocol.OpLogin, Username: name})
	}
}

func (s *Server) handleListRooms(sess *Session) {
	requester := s.registry.Username(sess)
	var visible []string
	for _, room := range s.registry.Rooms() {
		if a, b, ok := protocol.WhisperParties(room); ok && a != requester && b != requester {
			continue
		}
		visible = append(visible, room)
	}
	s.reply(sess, protocol.Message{Op: protocol.OpListRooms, Rooms: visible})
}

func (s *Server) handleListUsers(sess *Session, m protocol.Message) {
	// Whisper-room membership is visible to its participants only, the
	// same guard LIST_ROOMS applies.
	if a, b, ok := protocol.WhisperParties(m.Room); ok {
		requester := s.registry.Username(sess)
		if a != requester && b != requester {
			s.reply(sess, protocol.Message{Op: protocol.OpErrIllegalOp})
			return
		}
	}
	var members []*Session
	if m.Room == "" {
		members = s.registry.All()
	} else {
		members = s.registry.InRoom(m.Room)
	}
	users := Usernames(members, s.registry)
	s.reply(sess, protocol.Message{Op: protocol.OpListUsers, Users: users})
}

func (s *Server) handleJoinRoom(sess *Session, m protocol.Message) {
	room := m.Room
	if room == "" || protocol.IsWhisperRoom(room) {
		s.reply(sess, protocol.Message{Op: protocol.OpErrIllegalOp})
		return
	}
	joined := s.registry.JoinRoom(sess, room)
	user := s.registry.Username(sess)
	s.log.Debug().Str("user", user).Str("room", room).Bool("new", joined).Msg("join room")
	s.broadcastRoom(protocol.Message{
		Op:   protocol.OpJoinRoom,
		User: user,
		Room: room,
		New:  joined,
	}, room)
}

func (s *Server) handleLeaveRoom(sess *Session, m protocol.Message) {
	room := m.Room
	if room == protocol.DefaultRoom {
		s.reply(sess, protocol.Message{Op: protocol.OpErrIllegalOp})
		return
	}
	if !s.registry.Member(sess, room) {
		return
	}
	user := s.registry.Username(sess)
	// Notify before removal so the leaver sees its own departure.
	s.broadcastRoom(protocol.Message{
		Op:   protocol.OpLeaveRoom,
		Room: room,
		User: user,
	}, room)
	s.registry.LeaveRoom(sess, room)
	s.log.Debug().Str("user", user).Str("room", room).Msg("left room")
}

func (s *Server) handleMessage(sess *Session, m protocol.Message) {
	if m.Room == "" || !s.registry.Member(sess, m.Room) {
		s.reply(sess, protocol.Message{Op: protocol.OpErrIllegalMsg, Room: m.Room})
		return
	}
	s.broadcastRoom(protocol.Message{
		Op:   protocol.OpMessage,
		User: s.registry.Username(sess),
		Room: m.Room,
		Text: m.Text,
	}, m.Room)
}

func (s *Server) handleWhisper(sess *Session, m protocol.Message) {
	sender := s.registry.Username(sess)
	target := m.Target
	if target == "" || target == sender || protocol.ValidateName(target) != nil {
		s.reply(sess, protocol.Message{Op: protocol.OpErrIllegalWisp, User: sender})
		return
	}

	room := protocol.WhisperRoom(sender, target)
	s.registry.JoinRoom(sess, room)

	notice := protocol.Message{
		Op:     protocol.OpWhisper,
		Sender: sender,
		Target: target,
		Room:   room,
		Text:   m.Text,
	}
	s.reply(sess, notice)

	// No offline mailbox: a whisper to a disconnected user is echoed to
	// the sender only.
	if peer, ok := s.registry.FindByUsername(target); ok {
		s.registry.JoinRoom(peer, room)
		if err := s.router.SendTo(peer, notice); err != nil {
			go s.dropSession(peer)
		}
	}
}

// broadcastRoom fans out to a room and cleans up recipients whose
// connections turned out to be dead.
func (s *Server) broadcastRoom(m protocol.Message, room string) {
	for _, dead := range s.router.BroadcastRoom(m, room) {
		go s.dropSession(dead)
	}
}

// broadcastAll fans out to every session with the same cleanup contract.
func (s *Server) broadcastAll(m protocol.Message) {
	for _, dead := range s.router.BroadcastAll(m) {
		go s.dropSession(dead)
	}
}
