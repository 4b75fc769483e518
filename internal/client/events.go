package client

// Event names published on the session's emitter. The UI subscribes to
// these instead of being called directly, so the session core stays free of
// rendering concerns.
const (
	// EventLine - a display line was appended to a room.
	// Listener signature: func(room, line string).
	EventLine = "line"

	// EventRoom - the current room switched.
	// Listener signature: func(name string).
	EventRoom = "room"

	// EventExit - the session is over; fired at most once.
	// Listener signature: func(reason string, timedOut bool).
	EventExit = "exit"
)
