// Package observer serves read-only views of the world: a JSON bootstrap
// and a FRAME stream. Both are restricted to loopback clients.
package observer

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AQStarLilly/GameJamRemakeProject/internal/protocol"
	"github.com/AQStarLilly/GameJamRemakeProject/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader  websocket.Upgrader
	validator *protocol.Validator
}

func NewServer(w *world.World, logger *log.Logger) (*Server, error) {
	v, err := protocol.DefaultValidator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		world:     w,
		log:       logger,
		validator: v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}, nil
}

// BootstrapResponse is what a viewer needs before it opens the stream.
type BootstrapResponse struct {
	ProtocolVersion string             `json:"protocol_version"`
	Tick            uint64             `json:"tick"`
	TickRateHz      int                `json:"tick_rate_hz"`
	LevelIndex      int                `json:"level_index"`
	RunID           string             `json:"run_id"`
	Phase           string             `json:"phase"`
	Metrics         world.WorldMetrics `json:"metrics"`
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		m := s.world.Metrics()
		resp := BootstrapResponse{
			ProtocolVersion: protocol.Version,
			Tick:            m.Tick,
			TickRateHz:      s.world.TickRateHz(),
			LevelIndex:      m.LevelIndex,
			RunID:           m.RunID,
			Phase:           m.Phase,
			Metrics:         m,
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send HELLO first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var hello protocol.HelloMsg
		if err := s.validator.Validate(protocol.SchemaHello, msg); err != nil || json.Unmarshal(msg, &hello) != nil || hello.ProtocolVersion != protocol.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
			return
		}

		out := make(chan []byte, 8)
		respCh := make(chan world.JoinResponse, 1)
		select {
		case s.world.Join() <- world.JoinRequest{Role: world.RoleObserver, ClientName: hello.ClientName, Out: out, Resp: respCh}:
		default:
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		resp := <-respCh
		sid := resp.Welcome.SessionID
		defer func() {
			select {
			case s.world.Leave() <- sid:
			default:
				// World loop is stopping; nothing else to do.
			}
		}()
		b, _ := json.Marshal(resp.Welcome)
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok := <-out:
					if !ok {
						writeErr <- nil
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: observers are read-only, inbound frames are discarded.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
