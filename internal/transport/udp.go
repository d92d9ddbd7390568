package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
)

const DEFAULT_HOST = "127.0.0.1"

// UDPNetwork binds every endpoint as a port on Host.
type UDPNetwork struct {
	Host string
}

func (n UDPNetwork) Open(endpoint Endpoint) (Conn, error) {
	return ListenUDP(n.Host, endpoint)
}

func (n UDPNetwork) Close() error {
	return nil
}

type UDPConn struct {
	endpoint Endpoint
	host     string
	conn     *net.UDPConn
	buffer   []byte //sized to one wire record
}

func ListenUDP(host string, endpoint Endpoint) (*UDPConn, error) {
	if host == "" {
		host = DEFAULT_HOST
	}
	udpAddress, err := net.ResolveUDPAddr("udp", endpoint.Address(host))
	if err != nil {
		return nil, fmt.Errorf("error resolving UDP Address: %w", err)
	}

	conn, err := net.ListenUDP("udp", udpAddress)
	if err != nil {
		return nil, fmt.Errorf("error creating UDP Socket: %w", err)
	}

	Log.Debug().Msgf("Listening on %v", udpAddress)

	return &UDPConn{
		endpoint: endpoint,
		host:     host,
		conn:     conn,
		buffer:   make([]byte, elevconsts.BUFFER_LEN),
	}, nil
}

func (u *UDPConn) Endpoint() Endpoint {
	return u.endpoint
}

// Send writes from the bound socket so the receiver sees our port as the
// source.
func (u *UDPConn) Send(ctx context.Context, to Endpoint, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	udpAddress, err := net.ResolveUDPAddr("udp", to.Address(u.host))
	if err != nil {
		return fmt.Errorf("error resolving UDP Address: %w", err)
	}
	if _, err := u.conn.WriteToUDP(payload, udpAddress); err != nil {
		return fmt.Errorf("error writing to UDP Socket: %w", err)
	}
	return nil
}

func (u *UDPConn) Receive(ctx context.Context, timeout time.Duration) (Packet, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := u.conn.SetReadDeadline(deadline); err != nil {
		return Packet{}, fmt.Errorf("error setting read deadline: %w", err)
	}

	//unblock the read when ctx ends
	stop := context.AfterFunc(ctx, func() {
		u.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	n, from, err := u.conn.ReadFromUDP(u.buffer)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Packet{}, ctxErr
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return Packet{}, ErrTimeout
		}
		if errors.Is(err, net.ErrClosed) {
			return Packet{}, ErrClosed
		}
		return Packet{}, fmt.Errorf("error reading UDP message: %w", err)
	}

	data := make([]byte, n)
	copy(data, u.buffer[:n])
	return Packet{From: Endpoint(from.Port), Data: data}, nil
}

func (u *UDPConn) Close() error {
	return u.conn.Close()
}
