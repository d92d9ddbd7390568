// Package transport moves fixed-size datagrams between the floor source, the
// scheduler and the elevators. Delivery is unreliable and unordered across
// senders; nothing is retransmitted.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
)

var Log = logger.GetLogger()

var (
	ErrTimeout         = errors.New("transport: receive timed out")
	ErrClosed          = errors.New("transport: connection closed")
	ErrEndpointInUse   = errors.New("transport: endpoint already open")
	ErrInvalidEndpoint = errors.New("transport: invalid endpoint")
)

// Endpoint addresses one component. On UDP it is the port number.
type Endpoint uint16

func (e Endpoint) String() string {
	return strconv.Itoa(int(e))
}

func (e Endpoint) Address(host string) string {
	return fmt.Sprintf("%s:%d", host, e)
}

func ParseEndpoint(s string) (Endpoint, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEndpoint, s)
	}
	return Endpoint(n), nil
}

type Packet struct {
	From Endpoint
	Data []byte
}

type Conn interface {
	Endpoint() Endpoint
	Send(ctx context.Context, to Endpoint, payload []byte) error
	// Receive blocks for the next packet. A timeout of 0 waits until ctx
	// is done; otherwise expiry returns ErrTimeout.
	Receive(ctx context.Context, timeout time.Duration) (Packet, error)
	Close() error
}

// Network opens endpoints on one medium.
type Network interface {
	Open(endpoint Endpoint) (Conn, error)
	Close() error
}
