// Package ws serves the bridge endpoint: the engine-side client that reports
// physics events and performs scene loads connects here.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
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
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}, nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out, control := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. Scene requests are written before any queued frame.
		go func() {
			write := func(b []byte) bool {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return false
				}
				return true
			}
			for {
				select {
				case b := <-control:
					if !write(b) {
						return
					}
					continue
				default:
				}
				select {
				case <-ctx.Done():
					return
				case b := <-control:
					if !write(b) {
						return
					}
				case b, ok := <-out:
					if !ok {
						return
					}
					if !write(b) {
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			ev, code, reason := s.decodeEvent(msg)
			if code != "" {
				enqueue(out, rejectBytes(code, reason))
				continue
			}
			select {
			case s.world.Inbox() <- world.EventEnvelope{SessionID: sessionID, Event: ev}:
			default:
				enqueue(out, rejectBytes(protocol.ErrBusy, "inbox full"))
			}
		}

		s.world.Leave() <- sessionID
	}
}

// decodeEvent validates one inbound frame. A non-empty code means the frame
// was refused and should be answered with a REJECT.
func (s *Server) decodeEvent(msg []byte) (protocol.EventMsg, string, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.EventMsg{}, protocol.ErrProtoBadRequest, "malformed message"
	}
	if base.Type != protocol.TypeEvent {
		return protocol.EventMsg{}, protocol.ErrProtoBadRequest, "unexpected type " + base.Type
	}
	if base.ProtocolVersion != protocol.Version {
		return protocol.EventMsg{}, protocol.ErrProtoBadRequest, "bad protocol_version"
	}
	if err := s.validator.Validate(protocol.SchemaEvent, msg); err != nil {
		return protocol.EventMsg{}, protocol.ErrProtoBadRequest, err.Error()
	}
	var ev protocol.EventMsg
	if err := json.Unmarshal(msg, &ev); err != nil {
		return protocol.EventMsg{}, protocol.ErrProtoBadRequest, err.Error()
	}
	return ev, "", ""
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte, control <-chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil, nil
	}

	hello, ok := decodeHello(s.validator, msg)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil, nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "bridge"
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 16
	}
	if maxQ > 256 {
		maxQ = 256
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		Role:       world.RoleBridge,
		ClientName: hello.ClientName,
		Out:        out,
		Resp:       respCh,
	}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.Welcome.SessionID
		return "", nil, nil
	}
	s.log.Printf("bridge: connected session=%s name=%q", resp.Welcome.SessionID, hello.ClientName)
	return resp.Welcome.SessionID, out, resp.Control
}

func decodeHello(v *protocol.Validator, msg []byte) (protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		return hello, false
	}
	if err := v.Validate(protocol.SchemaHello, msg); err != nil {
		return hello, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		return hello, false
	}
	return hello, hello.ProtocolVersion == protocol.Version
}

func rejectBytes(code, reason string) []byte {
	b, _ := json.Marshal(protocol.RejectMsg{
		Type:            protocol.TypeReject,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         reason,
	})
	return b
}

// enqueue never blocks the reader; a full queue drops the message.
func enqueue(out chan []byte, b []byte) {
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
