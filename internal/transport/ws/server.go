// Package ws serves the agent bridge: agents send one FRAME per decision and
// get a CUES acknowledgement back once the overlay has been published.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cuecast.ai/internal/logging"
	"cuecast.ai/internal/protocol"
	"cuecast.ai/internal/runtime"
	"cuecast.ai/internal/tuning"
)

const (
	// ackQueue bounds the acknowledgements waiting to be written per session.
	ackQueue = 64

	// Agents may think for a long time between frames; pongs keep them connected.
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Submitter is the control loop's intake.
type Submitter interface {
	Submit(env runtime.FrameEnvelope) bool
	// End releases per-session state after the connection closes.
	End(session string)
}

type Server struct {
	loop        Submitter
	grid        protocol.GridParams
	maxSessions int
	log         *zap.Logger

	upgrader websocket.Upgrader
	active   atomic.Int64
}

// Grid derives the WELCOME grid parameters from the tuning file.
func Grid(t tuning.Tuning) protocol.GridParams {
	return protocol.GridParams{
		ViewportPixels: t.ViewportPixels,
		MapExtent:      t.Map.Extent,
		FlipY:          t.Map.FlipY,
	}
}

// NewServer returns a bridge server. maxSessions <= 0 means unlimited.
func NewServer(loop Submitter, grid protocol.GridParams, maxSessions int, logger *zap.Logger) *Server {
	return &Server{
		loop:        loop,
		grid:        grid,
		maxSessions: maxSessions,
		log:         logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Sessions reports the number of connected agents.
func (s *Server) Sessions() int { return int(s.active.Load()) }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if n := s.active.Add(1); s.maxSessions > 0 && n > int64(s.maxSessions) {
			s.active.Add(-1)
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"), time.Now().Add(time.Second))
			return
		}
		defer s.active.Add(-1)

		sid, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.With(zap.String("session", sid))
		log.Info("agent connected", zap.String("remote", r.RemoteAddr))

		acks := make(chan protocol.CuesMsg, ackQueue)
		ctrl := make(chan []byte, 8)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		// Writer goroutine; also owns the keepalive pings.
		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			ping := time.NewTicker(pingPeriod)
			defer ping.Stop()
			for {
				var err error
				select {
				case <-ctx.Done():
					return
				case <-ping.C:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					err = conn.WriteMessage(websocket.PingMessage, nil)
				case ack := <-acks:
					err = writeJSON(conn, ack)
				case b := <-ctrl:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					err = conn.WriteMessage(websocket.TextMessage, b)
				}
				if err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			s.handleMessage(sid, msg, acks, ctrl, log)
		}

		cancel()
		<-writeDone
		s.loop.End(sid)
		log.Info("agent disconnected")
	}
}

func (s *Server) handleMessage(sid string, msg []byte, acks chan protocol.CuesMsg, ctrl chan []byte, log *zap.Logger) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		sendError(ctrl, "invalid json")
		return
	}
	if base.Type != protocol.TypeFrame {
		sendError(ctrl, "unexpected message type "+base.Type)
		return
	}

	reject := func(frame uint64, code, text string) {
		log.Debug("frame rejected", zap.Uint64("frame", frame), zap.String("code", code), zap.String("reason", text))
		select {
		case acks <- cuesReject(frame, code, text):
		default:
		}
	}

	if err := protocol.ValidateJSON(protocol.SchemaFrame, msg); err != nil {
		reject(frameNumber(msg), protocol.ErrProtoBadRequest, err.Error())
		return
	}
	var f protocol.FrameMsg
	if err := json.Unmarshal(msg, &f); err != nil {
		reject(frameNumber(msg), protocol.ErrProtoBadRequest, err.Error())
		return
	}
	if f.ProtocolVersion != protocol.Version {
		reject(f.Frame, protocol.ErrProtoBadRequest, "bad protocol_version")
		return
	}
	if !s.loop.Submit(runtime.FrameEnvelope{Session: sid, Frame: f, Ack: acks}) {
		reject(f.Frame, protocol.ErrBusy, "control loop inbox full")
	}
}

func (s *Server) handshake(conn *websocket.Conn) (string, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return "", false
	}
	if err := protocol.ValidateJSON(protocol.SchemaHello, msg); err != nil {
		closePolicy(conn, "bad HELLO")
		return "", false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", false
	}
	if hello.ProtocolVersion != protocol.Version && !slices.Contains(hello.SupportedVersions, protocol.Version) {
		closePolicy(conn, "bad protocol_version")
		return "", false
	}

	sid := uuid.NewString()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SelectedVersion: protocol.Version,
		SessionID:       sid,
		GridParams:      s.grid,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", false
	}
	s.log.Debug("handshake done", zap.String("session", sid), zap.String("agent", hello.AgentName))
	return sid, true
}

func cuesReject(frame uint64, code, text string) protocol.CuesMsg {
	return protocol.CuesMsg{
		Type:            protocol.TypeCues,
		ProtocolVersion: protocol.Version,
		Frame:           frame,
		Code:            code,
		Message:         text,
	}
}

func sendError(ctrl chan []byte, text string) {
	b, err := json.Marshal(protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            protocol.ErrProtoBadRequest,
		Message:         text,
	})
	if err != nil {
		return
	}
	select {
	case ctrl <- b:
	default:
	}
}

// frameNumber recovers the frame counter from a message that failed to
// decode fully, so the rejection can still be matched by the agent.
func frameNumber(msg []byte) uint64 {
	var probe struct {
		Frame uint64 `json:"frame"`
	}
	_ = json.Unmarshal(msg, &probe)
	return probe.Frame
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
