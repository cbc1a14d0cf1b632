// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	applog "spectrum/internal/log"
)

const writeWait = 2 * time.Second

// SpectrumMessage is the JSON frame sent for every spectrum.
type SpectrumMessage struct {
	Type string    `json:"type"` // Always "spectrum".
	Seq  uint64    `json:"seq"`
	Size int       `json:"size"`
	Bins []float64 `json:"bins"` // Centered log-power, lowest frequency first.
}

// WebSocketOptions configures a WebSocketTransport.
type WebSocketOptions struct {
	Address     string        // Listen address; ":0" picks a free port.
	Path        string        // Upgrade endpoint.
	MinInterval time.Duration // Spectra arriving faster than this are dropped.
	BufferSize  int           // Broadcast queue length; a full queue drops frames.
}

// WebSocketTransport broadcasts spectra and events as JSON to every
// connected client.
//
// Thread Safety:
//   - Send is called from the assembler goroutine and never blocks on the
//     network: messages are queued and written by a broadcast goroutine.
//   - Clients are tracked under a mutex.
type WebSocketTransport struct {
	opts      WebSocketOptions
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	listener  net.Listener
	server    *http.Server
	wg        sync.WaitGroup
	closeOnce sync.Once

	lastSend atomic.Int64 // UnixNano of the last queued spectrum.
	seq      atomic.Uint64
	dropped  atomic.Uint64
	closed   atomic.Bool
}

// NewWebSocketTransport listens on opts.Address and starts serving.
func NewWebSocketTransport(opts WebSocketOptions) (*WebSocketTransport, error) {
	if opts.Path == "" {
		opts.Path = "/ws"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 8
	}

	listener, err := net.Listen("tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", opts.Address, err)
	}

	wst := &WebSocketTransport{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Viewers are served from anywhere.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, opts.BufferSize),
		done:      make(chan struct{}),
		listener:  listener,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(opts.Path, wst.handleWebSocket)
	wst.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	wst.wg.Add(2)
	go func() {
		defer wst.wg.Done()
		applog.Infof("WebSocketTransport: Serving on %s%s", listener.Addr(), opts.Path)
		if err := wst.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	return wst, nil
}

// Addr returns the address the server listens on.
func (wst *WebSocketTransport) Addr() net.Addr {
	return wst.listener.Addr()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Dropped returns the number of spectra dropped by rate limiting or a
// full queue.
func (wst *WebSocketTransport) Dropped() uint64 {
	return wst.dropped.Load()
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	if wst.closed.Load() {
		wst.clientsMu.Unlock()
		conn.Close()
		return
	}
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client %s connected, total: %d", conn.RemoteAddr(), total)

	// Clients never send; a read error means the client went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	if ok {
		conn.Close()
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends queued messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case msg := <-wst.broadcast:
			wst.writeAll(msg)
		case <-wst.done:
			return
		}
	}
}

// writeAll writes msg to a snapshot of the clients. The lock is not held
// while writing, so a slow client delays only the broadcast goroutine and
// never connects, disconnects or Clients.
func (wst *WebSocketTransport) writeAll(msg any) {
	wst.clientsMu.Lock()
	clients := make([]*websocket.Conn, 0, len(wst.clients))
	for client := range wst.clients {
		clients = append(clients, client)
	}
	wst.clientsMu.Unlock()

	for _, client := range clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(msg); err != nil {
			applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
			wst.removeClient(client)
		}
	}
}

// Send queues the spectrum for broadcast. Frames arriving within
// MinInterval of the previous one, or while the queue is full, are dropped.
func (wst *WebSocketTransport) Send(spectrum []float64) error {
	if wst.closed.Load() {
		return ErrClosed
	}

	now := time.Now().UnixNano()
	if last := wst.lastSend.Load(); last != 0 && time.Duration(now-last) < wst.opts.MinInterval {
		wst.dropped.Add(1)
		return nil
	}
	wst.lastSend.Store(now)

	bins := make([]float64, len(spectrum))
	copy(bins, spectrum)
	msg := SpectrumMessage{
		Type: "spectrum",
		Seq:  wst.seq.Add(1),
		Size: len(bins),
		Bins: bins,
	}
	return wst.enqueue(msg)
}

// Publish queues an arbitrary event for broadcast without rate limiting.
func (wst *WebSocketTransport) Publish(event any) error {
	if wst.closed.Load() {
		return ErrClosed
	}
	return wst.enqueue(event)
}

func (wst *WebSocketTransport) enqueue(msg any) error {
	select {
	case wst.broadcast <- msg:
	default:
		// Channel full, drop message
		wst.dropped.Add(1)
	}
	return nil
}

// Close shuts down the WebSocket server and disconnects all clients.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Infof("WebSocketTransport: Closing server")
		wst.closed.Store(true)
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		err = wst.server.Close()
		wst.wg.Wait()
	})
	return err
}

// Ensure WebSocketTransport satisfies the interfaces at compile time.
var (
	_ Transport      = (*WebSocketTransport)(nil)
	_ EventPublisher = (*WebSocketTransport)(nil)
)
