// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "spectrum/internal/log"
	"spectrum/internal/transport"
)

const (
	// HeaderSize is the fixed part of a spectrum packet.
	HeaderSize = 4 + 8 + 2 + 2 + 2

	// MaxPayload is the largest IPv4 UDP payload.
	MaxPayload = 65507

	// MaxBinsPerPacket bounds the slice of a spectrum carried by one packet.
	MaxBinsPerPacket = 8192
)

var (
	// ErrShortPacket is returned by DecodePacket for truncated input.
	ErrShortPacket = errors.New("short spectrum packet")
	// ErrBadPacket is returned by DecodePacket for inconsistent headers.
	ErrBadPacket = errors.New("malformed spectrum packet")
)

// UDPPublisher keeps the most recent spectrum handed to Send and, on every
// tick, packs it into a binary packet and sends it through a UDPSender.
// Spectra arriving between ticks replace each other; a tick without a new
// spectrum sends nothing.
type UDPPublisher struct {
	sender   *UDPSender    // The underlying UDP sender instance.
	interval time.Duration // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	snapMu sync.Mutex // Protects latest and fresh.
	latest []float64  // Copy of the last spectrum received.
	fresh  bool       // latest has not been sent yet.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.

	// Reused by the publisher goroutine only.
	snapshot     []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Target: %s)", interval, sender.Target())

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send stores a copy of spectrum for the next tick. It never touches the
// network, so the assembler goroutine is not slowed down by it.
func (p *UDPPublisher) Send(spectrum []float64) error {
	p.snapMu.Lock()
	defer p.snapMu.Unlock()

	if cap(p.latest) < len(spectrum) {
		p.latest = make([]float64, len(spectrum))
	}
	p.latest = p.latest[:len(spectrum)]
	copy(p.latest, spectrum)
	p.fresh = true
	return nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies keep the goroutine off p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				applog.Debugf("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Stopped after %d packets.", p.sequenceNum)
	return nil
}

/*
UDP Packet Structure (BigEndian)

|<- 4 Bytes ->|<-- 8 Bytes -->|<- 2 Bytes ->|<- 2 Bytes ->|<- 2 Bytes ->|<- N * 4 Bytes ->|
+-------------+---------------+-------------+-------------+-------------+------------------+
|  Sequence   |   Timestamp   |  Bin Offset |  Total Bins |  Bin Count  |       Bins       |
|  (uint32)   | (int64, nanos)|  (uint16)   |  (uint16)   |  (uint16)   |  (N * float32)   |
+-------------+---------------+-------------+-------------+-------------+------------------+

Bins are the centered log-power spectrum, lowest frequency first. A
spectrum wider than MaxBinsPerPacket is split across several packets that
share the sequence number and timestamp; Bin Offset places each slice.
*/

// Packet is a decoded spectrum packet.
type Packet struct {
	Seq       uint32
	Timestamp time.Time
	Offset    int // Index of Bins[0] in the full spectrum.
	Total     int // Bins in the full spectrum.
	Bins      []float32
}

// EncodePacket writes one packet into buf after resetting it. bins is the
// slice of a total-bin spectrum starting at offset.
func EncodePacket(buf *bytes.Buffer, seq uint32, timestamp int64, offset, total int, bins []float32) error {
	if total > math.MaxUint16 || offset < 0 || offset+len(bins) > total {
		return fmt.Errorf("UDPPublisher: bins [%d, %d) of %d do not fit a packet", offset, offset+len(bins), total)
	}
	if HeaderSize+4*len(bins) > MaxPayload {
		return fmt.Errorf("UDPPublisher: %d bins exceed the %d byte UDP payload", len(bins), MaxPayload)
	}
	buf.Reset()

	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, [3]uint16{uint16(offset), uint16(total), uint16(len(bins))})
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, bins)
	}
	return err
}

// DecodePacket parses a packet produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}
	offset := int(binary.BigEndian.Uint16(data[12:14]))
	total := int(binary.BigEndian.Uint16(data[14:16]))
	count := int(binary.BigEndian.Uint16(data[16:18]))
	if len(data) < HeaderSize+4*count {
		return Packet{}, fmt.Errorf("%w: %d bytes for %d bins", ErrShortPacket, len(data), count)
	}
	if offset+count > total {
		return Packet{}, fmt.Errorf("%w: bins [%d, %d) outside a %d bin spectrum", ErrBadPacket, offset, offset+count, total)
	}

	pkt := Packet{
		Seq:       binary.BigEndian.Uint32(data[0:4]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(data[4:12]))),
		Offset:    offset,
		Total:     total,
		Bins:      make([]float32, count),
	}
	for i := range pkt.Bins {
		off := HeaderSize + 4*i
		pkt.Bins[i] = math.Float32frombits(binary.BigEndian.Uint32(data[off : off+4]))
	}
	return pkt, nil
}

// buildAndSendPacket runs on every tick: snapshot, convert, pack, send.
// Spectra wider than MaxBinsPerPacket go out as consecutive slices.
func (p *UDPPublisher) buildAndSendPacket() {
	p.snapMu.Lock()
	if !p.fresh {
		p.snapMu.Unlock()
		return
	}
	p.snapshot = append(p.snapshot[:0], p.latest...)
	p.fresh = false
	p.snapMu.Unlock()

	if cap(p.f32Buffer) < len(p.snapshot) {
		p.f32Buffer = make([]float32, len(p.snapshot))
	}
	p.f32Buffer = p.f32Buffer[:len(p.snapshot)]
	for i, v := range p.snapshot {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	now := time.Now().UnixNano()
	total := len(p.f32Buffer)
	for offset := 0; offset < total; offset += MaxBinsPerPacket {
		end := min(offset+MaxBinsPerPacket, total)
		if err := EncodePacket(p.packetBuffer, p.sequenceNum, now, offset, total, p.f32Buffer[offset:end]); err != nil {
			applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
			return
		}

		// The sender logs its own failures.
		if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
			return
		}
		applog.Debugf("UDPPublisher: Sent packet %d bins [%d, %d) (%d bytes)", p.sequenceNum, offset, end, p.packetBuffer.Len())
	}
}

// Close stops the publisher goroutine and closes the sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

// Ensure UDPPublisher satisfies the transport interface at compile time.
var _ transport.Transport = (*UDPPublisher)(nil)
