// Package observer streams overlay documents to loopback viewers.
package observer

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cuecast.ai/internal/logging"
	"cuecast.ai/internal/observerproto"
	"cuecast.ai/internal/protocol"
)

const (
	defaultQueue = 32

	// Observers never write after SUBSCRIBE; pongs keep the read side alive.
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type subscriber struct {
	out          chan []byte
	includeDebug atomic.Bool
}

// Hub fans every published overlay document out to connected observers. A
// slow observer loses messages; publishing never blocks.
type Hub struct {
	grid  protocol.GridParams
	log   *zap.Logger
	queue int

	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[string]*subscriber

	pongWait   time.Duration
	pingPeriod time.Duration

	seq     atomic.Uint64
	dropped atomic.Uint64
}

func NewHub(grid protocol.GridParams, queue int, logger *zap.Logger) *Hub {
	if queue <= 0 {
		queue = defaultQueue
	}
	return &Hub{
		grid:  grid,
		log:   logging.OrNop(logger),
		queue: queue,
		subs:  map[string]*subscriber{},

		pongWait:   pongWait,
		pingPeriod: pingPeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only anyway
		},
	}
}

// Publish implements runtime.Sink.
func (h *Hub) Publish(doc protocol.OverlayDoc) error {
	seq := h.seq.Add(1)

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		return nil
	}

	full, err := json.Marshal(observerproto.OverlayMsg{
		Type:            observerproto.TypeOverlay,
		ProtocolVersion: observerproto.Version,
		Seq:             seq,
		Doc:             doc,
	})
	if err != nil {
		return err
	}
	var lean []byte
	for id, sub := range h.subs {
		b := full
		if !sub.includeDebug.Load() {
			if lean == nil {
				d := doc
				d.Debug = map[string]any{}
				lean, err = json.Marshal(observerproto.OverlayMsg{
					Type:            observerproto.TypeOverlay,
					ProtocolVersion: observerproto.Version,
					Seq:             seq,
					Doc:             d,
				})
				if err != nil {
					return err
				}
			}
			b = lean
		}
		select {
		case sub.out <- b:
		default:
			h.dropped.Add(1)
			h.log.Debug("observer queue full", zap.String("session", id), zap.Uint64("seq", seq))
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped counts overlay messages not delivered to a slow observer.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := observerproto.BootstrapResponse{
			ProtocolVersion:       observerproto.Version,
			BridgeProtocolVersion: protocol.Version,
			GridParams:            h.grid,
			Published:             h.seq.Load(),
			Subscribers:           h.Subscribers(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := "O-" + uuid.NewString()
		s := &subscriber{out: make(chan []byte, h.queue)}
		s.includeDebug.Store(sub.IncludeDebug)
		h.mu.Lock()
		h.subs[sid] = s
		h.mu.Unlock()
		defer func() {
			h.mu.Lock()
			delete(h.subs, sid)
			h.mu.Unlock()
		}()
		log := h.log.With(zap.String("session", sid))
		log.Info("observer connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.pongWait))
		})

		// Writer goroutine; also owns the keepalive pings.
		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			ping := time.NewTicker(h.pingPeriod)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ping.C:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						cancel()
						return
					}
				case b := <-s.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if upd, ok := decodeSubscribe(msg); ok {
				s.includeDebug.Store(upd.IncludeDebug)
			}
		}

		cancel()
		<-writeDone
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		log.Info("observer disconnected")
	}
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	return sub, sub.Type == observerproto.TypeSubscribe && sub.ProtocolVersion == observerproto.Version
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
