package transport

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const MEM_QUEUE_LEN = 64

// DropFunc decides whether an in-flight packet is lost.
type DropFunc func(to Endpoint, packet Packet) bool

// Hub is an in-process network of buffered channels.
type Hub struct {
	mu    sync.Mutex
	boxes map[Endpoint]chan Packet
	drop  DropFunc
}

func NewHub() *Hub {
	return &Hub{boxes: make(map[Endpoint]chan Packet)}
}

// SetDrop installs a loss function; nil delivers everything.
func (h *Hub) SetDrop(drop DropFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop = drop
}

func (h *Hub) Open(endpoint Endpoint) (Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.boxes[endpoint]; exists {
		return nil, fmt.Errorf("%w: %v", ErrEndpointInUse, endpoint)
	}
	box := make(chan Packet, MEM_QUEUE_LEN)
	h.boxes[endpoint] = box
	return &MemConn{hub: h, endpoint: endpoint, box: box, done: make(chan struct{})}, nil
}

func (h *Hub) Close() error {
	return nil
}

func (h *Hub) route(to Endpoint, packet Packet) (chan Packet, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	box, ok := h.boxes[to]
	if !ok {
		return nil, false
	}
	if h.drop != nil && h.drop(to, packet) {
		return nil, false
	}
	return box, true
}

func (h *Hub) release(endpoint Endpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.boxes, endpoint)
}

type MemConn struct {
	hub      *Hub
	endpoint Endpoint
	box      chan Packet

	closeOnce sync.Once
	done      chan struct{}
}

func (m *MemConn) Endpoint() Endpoint {
	return m.endpoint
}

// Send delivers a copy of payload. Unknown endpoints and dropped packets
// are lost silently, as on a datagram socket.
func (m *MemConn) Send(ctx context.Context, to Endpoint, payload []byte) error {
	select {
	case <-m.done:
		return ErrClosed
	default:
	}

	data := make([]byte, len(payload))
	copy(data, payload)
	packet := Packet{From: m.endpoint, Data: data}

	box, ok := m.hub.route(to, packet)
	if !ok {
		Log.Trace().Msgf("Packet %v -> %v lost", m.endpoint, to)
		return nil
	}

	select {
	case box <- packet:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemConn) Receive(ctx context.Context, timeout time.Duration) (Packet, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case packet := <-m.box:
		return packet, nil
	case <-m.done:
		return Packet{}, ErrClosed
	case <-ctx.Done():
		return Packet{}, ctx.Err()
	case <-expired:
		return Packet{}, ErrTimeout
	}
}

func (m *MemConn) Close() error {
	m.closeOnce.Do(func() {
		m.hub.release(m.endpoint)
		close(m.done)
	})
	return nil
}
