package server

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"ircchat/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StartGateway serves the same chat protocol over WebSocket at /ws on addr.
func (s *Server) StartGateway(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeGateway(ln)
}

// ServeGateway accepts WebSocket connections from ln. Each upgraded
// connection joins the shared registry and dispatcher; the transport's own
// message boundaries replace newline framing, one JSON record per text
// message.
func (s *Server) ServeGateway(ln net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		s.serveConn(&wsConn{conn: conn})
	})

	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()
	s.beatOnce.Do(func() { go s.heartbeatLoop() })

	s.log.Info().Stringer("addr", ln.Addr()).Msg("websocket gateway listening")
	err := http.Serve(ln, mux)
	select {
	case <-s.done:
		return nil
	default:
		return err
	}
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadFrame() (protocol.Message, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return protocol.Message{}, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		return protocol.Unmarshal(data)
	}
}

func (c *wsConn) WriteFrame(m protocol.Message) error {
	data, err := protocol.Marshal(m)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
