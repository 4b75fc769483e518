package server

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"ircchat/internal/protocol"
)

// ErrDelivery - the recipient's connection is closed. The caller must treat
// this as a disconnect and tear the session down.
var ErrDelivery = errors.New("router: connection closed")

// Router computes delivery sets and writes frames to them. Delivery is
// fire-and-forget: no acknowledgment, no retry, unspecified order across
// recipients.
type Router struct {
	reg *Registry
	log zerolog.Logger
}

func NewRouter(reg *Registry, log zerolog.Logger) *Router {
	return &Router{reg: reg, log: log}
}

// SendTo delivers one message to exactly one session.
func (rt *Router) SendTo(s *Session, m protocol.Message) error {
	if err := s.send(m); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// BroadcastAll delivers to every registered session, best-effort. Sessions
// whose delivery failed are returned for cleanup.
func (rt *Router) BroadcastAll(m protocol.Message) []*Session {
	return rt.deliver(rt.reg.All(), m)
}

// BroadcastRoom delivers to every session currently in room, best-effort.
func (rt *Router) BroadcastRoom(m protocol.Message, room string) []*Session {
	return rt.deliver(rt.reg.InRoom(room), m)
}

func (rt *Router) deliver(sessions []*Session, m protocol.Message) []*Session {
	var failed []*Session
	for _, s := range sessions {
		if err := rt.SendTo(s, m); err != nil {
			if m.Op != protocol.OpHeartBeat {
				rt.log.Debug().Str("session", s.id).Str("op", string(m.Op)).Err(err).Msg("delivery failed")
			}
			failed = append(failed, s)
		}
	}
	return failed
}
