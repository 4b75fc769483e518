// Package protocol defines the wire format shared by the chat server and
// client: a closed set of opcodes, a flat JSON record per message, and
// newline-delimited framing over stream transports.
package protocol

// Op tags a message with its schema and handler.
type Op string

const (
	OpLogin     Op = "LOGIN"
	OpListRooms Op = "LIST_ROOMS"
	OpListUsers Op = "LIST_USERS"
	OpJoinRoom  Op = "JOIN_ROOM"
	OpLeaveRoom Op = "LEAVE_ROOM"
	OpMessage   Op = "MESSAGE"
	OpWhisper   Op = "WHISPER"
	OpUserExit  Op = "USER_EXIT"
	OpHeartBeat Op = "HEART_BEAT"

	OpErrUnknown     Op = "ERR_UNKNOWN"
	OpErrIllegalOp   Op = "ERR_ILLEGAL_OP"
	OpErrIllegalLen  Op = "ERR_ILLEGAL_LEN"
	OpErrNameExists  Op = "ERR_NAME_EXISTS"
	OpErrIllegalName Op = "ERR_ILLEGAL_NAME"
	OpErrIllegalMsg  Op = "ERR_ILLEGAL_MSG"
	OpErrIllegalWisp Op = "ERR_ILLEGAL_WISP"
	OpErrMalformed   Op = "ERR_MALFORMED"

	// OpErrTimeout is synthesized by the client when the server goes
	// silent; it never travels over the wire.
	OpErrTimeout Op = "ERR_TIMEOUT"
)

// Message is one wire record. Op is always present; the remaining fields
// depend on the opcode and are omitted when empty. Messages are immutable
// once constructed and are serialized independently per recipient.
type Message struct {
	Op       Op       `json:"op"`
	Username string   `json:"username,omitempty"`
	User     string   `json:"user,omitempty"`
	Room     string   `json:"room,omitempty"`
	Rooms    []string `json:"rooms,omitempty"`
	Users    []string `json:"users,omitempty"`
	Text     string   `json:"message,omitempty"`
	Sender   string   `json:"sender,omitempty"`
	Target   string   `json:"target,omitempty"`
	New      bool     `json:"new,omitempty"`
}
