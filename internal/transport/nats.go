package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SUBJECT_PREFIX = "elevsim.endpoint."
	HEADER_FROM    = "Elevsim-From"
)

// NATSConfig holds the broker connection settings.
type NATSConfig struct {
	URL            string
	Name           string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

func Subject(endpoint Endpoint) string {
	return SUBJECT_PREFIX + endpoint.String()
}

// NATSNetwork shares one broker connection between all endpoints of a
// process; each endpoint is a subject.
type NATSNetwork struct {
	conn *nats.Conn
}

func DialNATS(cfg NATSConfig) (*NATSNetwork, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				Log.Warn().Msgf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			Log.Info().Msgf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSNetwork{conn: conn}, nil
}

func (n *NATSNetwork) Open(endpoint Endpoint) (Conn, error) {
	sub, err := n.conn.SubscribeSync(Subject(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return &NATSConn{endpoint: endpoint, conn: n.conn, sub: sub}, nil
}

func (n *NATSNetwork) Close() error {
	n.conn.Close()
	return nil
}

type NATSConn struct {
	endpoint Endpoint
	conn     *nats.Conn
	sub      *nats.Subscription
}

func (c *NATSConn) Endpoint() Endpoint {
	return c.endpoint
}

func (c *NATSConn) Send(ctx context.Context, to Endpoint, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := NewMessage(c.endpoint, to, payload)
	if err := c.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Subject, err)
	}
	return nil
}

func (c *NATSConn) Receive(ctx context.Context, timeout time.Duration) (Packet, error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		msg, err := c.sub.NextMsgWithContext(waitCtx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Packet{}, ctxErr
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return Packet{}, ErrTimeout
			}
			if errors.Is(err, nats.ErrBadSubscription) || errors.Is(err, nats.ErrConnectionClosed) {
				return Packet{}, ErrClosed
			}
			return Packet{}, fmt.Errorf("failed to receive on %s: %w", c.sub.Subject, err)
		}

		packet, err := PacketFromMessage(msg)
		if err != nil {
			Log.Debug().Msgf("Dropping message on %s: %v", msg.Subject, err)
			continue
		}
		return packet, nil
	}
}

func (c *NATSConn) Close() error {
	if err := c.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

// NewMessage addresses payload to the subject of to, stamping the sender.
func NewMessage(from, to Endpoint, payload []byte) *nats.Msg {
	msg := nats.NewMsg(Subject(to))
	msg.Header.Set(HEADER_FROM, from.String())
	msg.Data = payload
	return msg
}

func PacketFromMessage(msg *nats.Msg) (Packet, error) {
	from, err := ParseEndpoint(msg.Header.Get(HEADER_FROM))
	if err != nil {
		return Packet{}, fmt.Errorf("missing sender: %w", err)
	}
	return Packet{From: from, Data: msg.Data}, nil
}
