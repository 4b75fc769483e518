// Package server implements the chat service core: the session registry,
// the room router, the per-opcode dispatcher, and the listeners feeding
// them.
package server

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ircchat/internal/protocol"
)

// DefaultHeartbeat is the interval between HEART_BEAT broadcasts.
const DefaultHeartbeat = time.Second

// Option adjusts server construction.
type Option func(*Server)

// WithHeartbeat overrides the heartbeat interval.
func WithHeartbeat(interval time.Duration) Option {
	return func(s *Server) {
		if interval > 0 {
			s.heartbeat = interval
		}
	}
}

// Server owns the accept loops and shared chat state. One goroutine per
// accepted connection runs that connection's blocking receive loop; a
// periodic task drives the heartbeat.
type Server struct {
	registry  *Registry
	router    *Router
	log       zerolog.Logger
	heartbeat time.Duration

	done      chan struct{}
	closeOnce sync.Once
	beatOnce  sync.Once

	mu        sync.Mutex
	listeners []net.Listener
}

func New(log zerolog.Logger, opts ...Option) *Server {
	reg := NewRegistry()
	s := &Server{
		registry:  reg,
		router:    NewRouter(reg, log),
		log:       log,
		heartbeat: DefaultHeartbeat,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln until it is closed. Safe to call for
// several listeners.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()
	s.beatOnce.Do(func() { go s.heartbeatLoop() })

	s.log.Info().Stringer("addr", ln.Addr()).Msg("listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
				return err
			}
		}
		go s.serveConn(newTCPConn(conn))
	}
}

// serveConn runs one connection's receive loop: decode, dispatch, repeat.
// Recoverable payload problems are answered in place; transport errors end
// the loop and trigger cleanup.
func (s *Server) serveConn(c Conn) {
	sess := newSession(c)
	s.registry.Add(sess)
	s.log.Info().Str("session", sess.id).Stringer("addr", c.RemoteAddr()).Msg("connected")

	for {
		m, err := c.ReadFrame()
		switch {
		case err == nil:
			s.dispatch(sess, m)
		case errors.Is(err, protocol.ErrMalformed), errors.Is(err, protocol.ErrFrameTooLarge):
			s.log.Warn().Str("session", sess.id).Err(err).Msg("undecodable frame")
			s.reply(sess, protocol.Message{Op: protocol.OpErrMalformed})
		default:
			s.dropSession(sess)
			return
		}
	}
}

// dropSession tears a session down exactly once, even when a read error and
// a delivery failure race: exit broadcast first, then registry removal,
// then the socket.
func (s *Server) dropSession(sess *Session) {
	sess.exitOnce.Do(func() {
		user := s.registry.Username(sess)
		s.log.Info().Str("session", sess.id).Str("user", user).Msg("disconnected")
		if user != "" {
			s.broadcastAll(protocol.Message{Op: protocol.OpUserExit, User: user})
		}
		s.registry.Remove(sess)
		sess.conn.Close()
	})
}

// Shutdown stops the listeners, the heartbeat, and every live session.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		for _, ln := range s.listeners {
			ln.Close()
		}
		s.mu.Unlock()
		for _, sess := range s.registry.All() {
			sess.conn.Close()
		}
		s.log.Info().Msg("server stopped")
	})
}
