// Package ws serves the HTTP side of edged: a websocket control channel
// speaking the line protocol, a live preview of the visible frame, lease
// and mode diagnostics, and a health endpoint.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/coreman2200/edged/internal/arbiter"
	"github.com/coreman2200/edged/internal/ledcolor"
	"github.com/coreman2200/edged/internal/protocol"
)

const writeWait = 200 * time.Millisecond

type Hub struct {
	mu          sync.RWMutex
	arb         *arbiter.Arbiter
	router      *protocol.Router
	log         zerolog.Logger
	frameID     uint64
	startTime   time.Time
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool

	frames chan []byte
	events chan arbiter.Event
	up     websocket.Upgrader
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:         log,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		frames:      make(chan []byte, 1),
		events:      make(chan arbiter.Event, 64),
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Bind connects the hub to the arbiter it reports on and the router that
// answers control messages.
func (h *Hub) Bind(arb *arbiter.Arbiter, router *protocol.Router) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.arb = arb
	h.router = router
}

// Write queues a frame for preview clients. Only the latest pending frame
// is kept; it never blocks the caller.
func (h *Hub) Write(rgb []byte) error {
	f := append([]byte(nil), rgb...)
	for {
		select {
		case h.frames <- f:
			return nil
		default:
		}
		select {
		case <-h.frames:
		default:
		}
	}
}

func (h *Hub) Close() error { return nil }

// Notify queues an arbiter event for diagnostics clients, dropping it when
// the queue is full.
func (h *Hub) Notify(e arbiter.Event) {
	select {
	case h.events <- e:
	default:
		h.log.Debug().Str("kind", string(e.Kind)).Msg("diag queue full, event dropped")
	}
}

// Run broadcasts queued frames and events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeClients()
			return
		case f := <-h.frames:
			h.broadcastFrame(f)
		case e := <-h.events:
			h.pushDiag(e)
		}
	}
}

func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", h.HandleFramesWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/control", h.HandleControlWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return withCORS(mux)
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// ListenAndServe runs the HTTP server and the broadcast loop until ctx is
// done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	var serveErr error
	wg.Go(func() { h.Run(ctx) })
	wg.Go(func() {
		defer cancel()
		h.log.Info().Str("addr", addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	})
	wg.Go(func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	})
	wg.Wait()
	return serveErr
}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	h.subscribe(w, r, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	h.subscribe(w, r, h.diagClients)
}

func (h *Hub) subscribe(w http.ResponseWriter, r *http.Request, set map[*websocket.Conn]bool) {
	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	set[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(set, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// HandleControlWS answers each text message as one request line.
func (h *Hub) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	router := h.router
	h.mu.RUnlock()
	if router == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, router.HandleLine(data)); err != nil {
			h.log.Debug().Err(err).Msg("write control response")
			return
		}
	}
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	arb := h.arb
	resp := map[string]any{
		"frame_id": h.frameID,
		"uptime_s": time.Since(h.startTime).Seconds(),
	}
	h.mu.RUnlock()
	if arb != nil {
		resp["channels"] = arb.Channels()
		resp["mode"] = arb.Mode()
		resp["leases"] = arb.Leases()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type frame struct {
	T       int64    `json:"t"`
	FrameID uint64   `json:"frame_id"`
	Colors  []string `json:"colors"`
}

func (h *Hub) broadcastFrame(rgb []byte) {
	h.mu.Lock()
	h.frameID++
	f := frame{T: time.Now().UnixNano(), FrameID: h.frameID}
	h.mu.Unlock()

	f.Colors = make([]string, 0, len(rgb)/3)
	for i := 0; i+2 < len(rgb); i += 3 {
		f.Colors = append(f.Colors, ledcolor.RGB(rgb[i], rgb[i+1], rgb[i+2]).Hex())
	}
	b, _ := json.Marshal(f)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (h *Hub) pushDiag(e arbiter.Event) {
	b, _ := json.Marshal(e)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.diagClients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

func (h *Hub) closeClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
	}
	for c := range h.diagClients {
		c.Close()
	}
}
