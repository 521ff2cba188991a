package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crewline.ai/internal/protocol"
	"crewline.ai/internal/sim/session"
)

const defaultConfirmTimeout = 10 * time.Second

// Server exposes one game to websocket clients. The controller is single
// threaded, so every command takes mu.
type Server struct {
	mu  sync.Mutex
	ctl *session.Controller
	log *log.Logger

	confirmTimeout time.Duration
	upgrader       websocket.Upgrader
}

func NewServer(ctl *session.Controller, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[ws] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Server{
		ctl:            ctl,
		log:            logger,
		confirmTimeout: defaultConfirmTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// SetConfirmTimeout bounds how long CONFIRM waits for the previous line-up
// to be saved.
func (s *Server) SetConfirmTimeout(d time.Duration) {
	if d > 0 {
		s.confirmTimeout = d
	}
}

// Do runs fn with exclusive access to the controller.
func (s *Server) Do(fn func(c *session.Controller)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ctl)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.handshake(conn) {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCmd {
				if err := writeJSON(conn, badRequest("", "", "expected CMD")); err != nil {
					break
				}
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				if err := writeJSON(conn, badRequest("", "", err.Error())); err != nil {
					break
				}
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				if err := writeJSON(conn, badRequest(cmd.ReqID, cmd.Op, "bad protocol_version")); err != nil {
					break
				}
				continue
			}
			if err := protocol.ValidateRaw(protocol.SchemaCmd, msg); err != nil {
				if err := writeJSON(conn, badRequest(cmd.ReqID, cmd.Op, err.Error())); err != nil {
					break
				}
				continue
			}

			res, st := s.Apply(ctx, cmd)
			if err := writeJSON(conn, res); err != nil {
				break
			}
			if err := writeJSON(conn, st); err != nil {
				break
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return false
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}
	s.log.Printf("client connected: %s", hello.ClientName)

	var (
		welcome protocol.WelcomeMsg
		st      protocol.StateMsg
	)
	s.Do(func(c *session.Controller) {
		t := c.Team()
		cats := t.Catalogs()
		welcome = protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			Manager:         t.Manager.Name,
			Catalogs: protocol.CatalogDigests{
				PositionsDigest: cats.Positions.Digest,
				BoatsDigest:     cats.Boats.Digest,
				NamesDigest:     cats.Names.Digest,
				EventsDigest:    cats.Events.Digest,
				TuningDigest:    t.Tuning().Digest(),
			},
		}
		st = StateView(c)
	})
	if err := writeJSON(conn, welcome); err != nil {
		return false
	}
	return writeJSON(conn, st) == nil
}

func badRequest(reqID, op, msg string) protocol.ResultMsg {
	return protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		ReqID:           reqID,
		Op:              op,
		Code:            protocol.ErrProtoBadRequest,
		Message:         msg,
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
