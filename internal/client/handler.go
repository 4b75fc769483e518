package client

import (
	"fmt"
	"strings"

	"ircchat/internal/protocol"
)

// handle reacts to one decoded server message. Unknown opcodes surface as
// raw diagnostic lines so protocol drift stays visible.
func (s *Session) handle(m protocol.Message) {
	switch m.Op {
	case protocol.OpMessage:
		s.appendLine(m.Room, fmt.Sprintf("%s: %s", m.User, m.Text))

	case protocol.OpLogin:
		// Post-handshake confirmation, e.g. a /login rename.
		s.setUsername(m.Username)
		s.status(fmt.Sprintf("User %s has logged in.", m.Username))

	case protocol.OpListUsers:
		s.status("USERS")
		s.status(strings.Join(m.Users, ","))

	case protocol.OpListRooms:
		s.status("ROOMS")
		s.status(strings.Join(m.Rooms, ","))

	case protocol.OpJoinRoom:
		s.handleJoin(m)

	case protocol.OpWhisper:
		s.handleWhisper(m)

	case protocol.OpLeaveRoom:
		s.handleLeave(m)

	case protocol.OpUserExit:
		s.status(fmt.Sprintf("User '%s' has logged off", m.User))

	case protocol.OpErrTimeout:
		s.Close("Server timed out", true)

	case protocol.OpErrIllegalOp:
		s.status("SERVER ERROR: Illegal Operation")
	case protocol.OpErrUnknown:
		s.status("SERVER ERROR: Unknown operation")
	case protocol.OpErrNameExists:
		s.status("SERVER ERROR: Name exists")
	case protocol.OpErrIllegalName:
		s.status("SERVER ERROR: Illegal Name")
	case protocol.OpErrIllegalLen:
		s.status("SERVER ERROR: Illegal username length")
	case protocol.OpErrIllegalMsg:
		s.status("SERVER ERROR: Illegal Message")
	case protocol.OpErrIllegalWisp:
		s.status("SERVER ERROR: Illegal whisper")
	case protocol.OpErrMalformed:
		s.status("SERVER ERROR: Received malformed request")

	default:
		raw, _ := protocol.Marshal(m)
		s.status(fmt.Sprintf("UNKNOWN OPCODE %s: %s", m.Op, raw))
	}
}

// handleJoin confirms our own join (creating and switching to the room) or
// notes somebody else arriving.
func (s *Session) handleJoin(m protocol.Message) {
	if m.User == s.Username() {
		s.Rooms.Add(m.Room)
		s.switchRoom(m.Room)
		s.status(fmt.Sprintf("Joined room \"%s\"", m.Room))
		return
	}
	s.appendLine(m.Room, fmt.Sprintf("%s has joined %s", m.User, m.Room))
}

// handleWhisper files the message under its private room, creating the room
// the first time either side whispers, and leaves a notice when that room
// is not on screen.
func (s *Session) handleWhisper(m protocol.Message) {
	if m.Room != s.Rooms.Current() {
		if m.Sender == s.Username() {
			s.status(fmt.Sprintf("You whispered %s", m.Target))
		} else {
			s.status(fmt.Sprintf("%s whispered you", m.Sender))
		}
	}
	s.appendLine(m.Room, fmt.Sprintf("%s: %s", m.Sender, m.Text))
}

func (s *Session) handleLeave(m protocol.Message) {
	if m.User == s.Username() {
		_, wasCurrent := s.Rooms.Remove(m.Room)
		if wasCurrent {
			s.emitter.Emit(EventRoom, protocol.DefaultRoom)
		}
		s.status(fmt.Sprintf("Left room '%s'", m.Room))
		return
	}
	s.appendLine(m.Room, fmt.Sprintf("User '%s' has left the room", m.User))
}
