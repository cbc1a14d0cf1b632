// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startWebSocket(t *testing.T, minInterval time.Duration) (*WebSocketTransport, *websocket.Conn) {
	t.Helper()
	wst, err := NewWebSocketTransport(WebSocketOptions{
		Address:     "127.0.0.1:0",
		Path:        "/ws",
		MinInterval: minInterval,
		BufferSize:  4,
	})
	if err != nil {
		t.Fatalf("NewWebSocketTransport error: %v", err)
	}
	t.Cleanup(func() { _ = wst.Close() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return wst, conn
}

func TestWebSocketSendSpectrum(t *testing.T) {
	wst, conn := startWebSocket(t, 0)

	spectrum := []float64{-100, -3.5, -100, -60}
	if err := wst.Send(spectrum); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	// The transport copies; changing the caller's buffer must not leak.
	spectrum[1] = 0

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg SpectrumMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if msg.Type != "spectrum" || msg.Seq != 1 || msg.Size != 4 {
		t.Errorf("message header = %+v", msg)
	}
	if len(msg.Bins) != 4 || msg.Bins[1] != -3.5 {
		t.Errorf("bins = %v", msg.Bins)
	}
}

func TestWebSocketPublish(t *testing.T) {
	wst, conn := startWebSocket(t, 0)

	type event struct {
		Type  string  `json:"type"`
		Value float64 `json:"value"`
	}
	if err := wst.Publish(event{Type: "band_power", Value: -12}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if got.Type != "band_power" || got.Value != -12 {
		t.Errorf("event = %+v", got)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	wst, _ := startWebSocket(t, time.Hour)

	for range 5 {
		if err := wst.Send([]float64{1}); err != nil {
			t.Fatalf("Send error: %v", err)
		}
	}
	if wst.Dropped() != 4 {
		t.Errorf("Dropped = %d, want 4", wst.Dropped())
	}
}

func TestWebSocketClose(t *testing.T) {
	wst, conn := startWebSocket(t, 0)
	if err := wst.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if err := wst.Send([]float64{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close error = %v, want ErrClosed", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("client connection survived Close")
	}
}

func TestWebSocketStalledClient(t *testing.T) {
	// The registered client never reads, so its socket buffers fill and
	// the broadcast goroutine ends up blocked in a write.
	wst, _ := startWebSocket(t, 0)

	spectrum := make([]float64, 16384)
	for i := range spectrum {
		spectrum[i] = -123.456789 - float64(i)
	}
	for range 200 {
		_ = wst.Send(spectrum)
		time.Sleep(2 * time.Millisecond)
	}

	start := time.Now()
	if n := wst.Clients(); n != 1 {
		t.Errorf("Clients = %d, want 1", n)
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	for wst.Clients() < 2 {
		if time.Since(start) > writeWait/2 {
			t.Fatal("client registration waited on a stalled write")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
