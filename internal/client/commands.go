package client

import (
	"fmt"
	"strings"

	"ircchat/internal/protocol"
)

// CommandPrefix marks interactive input as a command rather than a message.
const CommandPrefix = "/"

const helpText = `HELP

COMMANDS

Commands are prefixed with '/', which must be the first character of the input text.

/login [username] - Login with [username]
/whisper [username] [message] - Send [username] [message] in private room
/rooms - List rooms
/currentroom - Prints the name of the current room
/users [room] - List all users, or users in [room]
/join [room] - Join room
/leave [room] - Leave [room]
/exit - Exit program
/quit - Exit program
/help - Print this message
/debug - Toggle debug information`

// Input handles one line of user input. Plain text is a MESSAGE to the
// current room; prefixed input runs the matching command builder, sends its
// payload when there is one, and shows its status line when there is one.
func (s *Session) Input(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}

	var (
		payload *protocol.Message
		status  string
	)
	if strings.HasPrefix(line, CommandPrefix) {
		command, rest, _ := strings.Cut(line, " ")
		builder, ok := s.command(command)
		if !ok {
			s.status(fmt.Sprintf("Bad Command '%s'", command))
			return
		}
		payload, status = builder(rest)
	} else {
		payload, status = s.cmdMessage(line)
	}

	if status != "" {
		s.status(status)
	}
	if payload == nil {
		return
	}
	if s.debugOn() {
		if raw, err := protocol.Marshal(*payload); err == nil {
			s.status("SENDING: " + string(raw[:len(raw)-1]))
		}
	}
	if err := s.Send(*payload); err != nil {
		s.Close("Connection lost", true)
	}
}

// commandFunc builds an optional outbound payload and an optional local
// status line from the text after the command word.
type commandFunc func(rest string) (*protocol.Message, string)

func (s *Session) command(name string) (commandFunc, bool) {
	switch name {
	case "/login":
		return s.cmdLogin, true
	case "/whisper":
		return s.cmdWhisper, true
	case "/rooms":
		return s.cmdListRooms, true
	case "/currentroom":
		return s.cmdCurrentRoom, true
	case "/users":
		return s.cmdListUsers, true
	case "/join":
		return s.cmdJoin, true
	case "/leave":
		return s.cmdLeave, true
	case "/exit", "/quit":
		return s.cmdExit, true
	case "/help":
		return s.cmdHelp, true
	case "/debug":
		return s.cmdDebug, true
	}
	return nil, false
}

func (s *Session) cmdLogin(name string) (*protocol.Message, string) {
	return &protocol.Message{Op: protocol.OpLogin, Username: name},
		fmt.Sprintf("Attempting to log in as %s...", name)
}

func (s *Session) cmdWhisper(rest string) (*protocol.Message, string) {
	if rest == "" {
		return nil, ""
	}
	target, text, ok := strings.Cut(rest, " ")
	if !ok || text == "" {
		return nil, `ERROR: Expected "/whisper [user] [message]"`
	}
	if target == s.Username() {
		return nil, "ERROR: You cannot whisper yourself"
	}
	return &protocol.Message{
		Op:     protocol.OpWhisper,
		Sender: s.Username(),
		Target: target,
		Text:   text,
	}, ""
}

func (s *Session) cmdListRooms(string) (*protocol.Message, string) {
	return &protocol.Message{Op: protocol.OpListRooms}, ""
}

func (s *Session) cmdCurrentRoom(string) (*protocol.Message, string) {
	return nil, fmt.Sprintf("Current room is '%s'", s.Rooms.Current())
}

func (s *Session) cmdListUsers(room string) (*protocol.Message, string) {
	return &protocol.Message{Op: protocol.OpListUsers, Room: room}, ""
}

// cmdJoin switches locally when the room is already cached; only unknown
// rooms cost a round-trip, and the view switches on the confirmation.
func (s *Session) cmdJoin(room string) (*protocol.Message, string) {
	if room == "" {
		return nil, "ERROR: Expected /join [room]"
	}
	if s.Rooms.Has(room) {
		s.switchRoom(room)
		return nil, fmt.Sprintf("Switched to room %s", room)
	}
	return &protocol.Message{
		Op:   protocol.OpJoinRoom,
		User: s.Username(),
		Room: room,
	}, ""
}

func (s *Session) cmdLeave(room string) (*protocol.Message, string) {
	if room == "" {
		return nil, `ERROR: Expected "/leave [room]"`
	}
	if room == protocol.DefaultRoom {
		return nil, "ERROR: Leaving room 'default' is not allowed"
	}
	if room == s.Rooms.Current() {
		s.switchRoom(protocol.DefaultRoom)
	}
	return &protocol.Message{
		Op:   protocol.OpLeaveRoom,
		Room: room,
		User: s.Username(),
	}, ""
}

func (s *Session) cmdMessage(text string) (*protocol.Message, string) {
	if text == "" {
		return nil, ""
	}
	return &protocol.Message{
		Op:   protocol.OpMessage,
		User: s.Username(),
		Room: s.Rooms.Current(),
		Text: text,
	}, ""
}

func (s *Session) cmdExit(string) (*protocol.Message, string) {
	s.Close("Exited", false)
	return nil, ""
}

func (s *Session) cmdHelp(string) (*protocol.Message, string) {
	return nil, helpText
}

func (s *Session) cmdDebug(string) (*protocol.Message, string) {
	s.stateMu.Lock()
	s.debug = !s.debug
	on := s.debug
	s.stateMu.Unlock()
	if on {
		return nil, "DEBUG IS [ON]"
	}
	return nil, "DEBUG IS [OFF]"
}
