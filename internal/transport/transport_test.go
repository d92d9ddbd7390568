package transport

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
)

func init() {
	logger.GetLoggerConfigured(zerolog.Disabled)
}

func TestUDPLoopback(t *testing.T) {
	network := UDPNetwork{Host: DEFAULT_HOST}

	sender, err := network.Open(39101)
	if err != nil {
		t.Fatalf("Error opening sender: %v", err)
	}
	defer sender.Close()

	receiver, err := network.Open(39102)
	if err != nil {
		t.Fatalf("Error opening receiver: %v", err)
	}
	defer receiver.Close()

	ctx := context.Background()
	payload := []byte("14:05:15.2 2 Up 4")
	if err := sender.Send(ctx, receiver.Endpoint(), payload); err != nil {
		t.Fatalf("Error sending: %v", err)
	}

	packet, err := receiver.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("Timed out waiting for packet: %v", err)
	}
	if packet.From != sender.Endpoint() {
		t.Errorf("Wrong sender = %v, expected %v", packet.From, sender.Endpoint())
	}
	if string(packet.Data) != string(payload) {
		t.Errorf("Wrong payload = %q, expected %q", packet.Data, payload)
	}
}

func TestUDPReceiveTimeoutAndCancel(t *testing.T) {
	conn, err := ListenUDP("", 39103)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Receive(context.Background(), 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = conn.Receive(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemHub(t *testing.T) {
	ctx := context.Background()

	t.Run("should deliver with the sender endpoint", func(t *testing.T) {
		hub := NewHub()
		a, err := hub.Open(1)
		require.NoError(t, err)
		b, err := hub.Open(2)
		require.NoError(t, err)

		payload := []byte{1, 2, 3}
		require.NoError(t, a.Send(ctx, 2, payload))
		payload[0] = 9

		packet, err := b.Receive(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, Endpoint(1), packet.From)
		assert.Equal(t, []byte{1, 2, 3}, packet.Data, "payload is copied on send")
	})

	t.Run("should time out on an empty box", func(t *testing.T) {
		hub := NewHub()
		a, err := hub.Open(1)
		require.NoError(t, err)

		_, err = a.Receive(ctx, 5*time.Millisecond)
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("should lose packets to unknown or dropped endpoints", func(t *testing.T) {
		hub := NewHub()
		a, _ := hub.Open(1)
		b, _ := hub.Open(2)

		assert.NoError(t, a.Send(ctx, 77, []byte{1}))

		hub.SetDrop(func(to Endpoint, packet Packet) bool { return packet.Data[0] == 0 })
		require.NoError(t, a.Send(ctx, 2, []byte{0}))
		require.NoError(t, a.Send(ctx, 2, []byte{1}))

		packet, err := b.Receive(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, []byte{1}, packet.Data)
		_, err = b.Receive(ctx, 5*time.Millisecond)
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("should refuse a second open and free the endpoint on close", func(t *testing.T) {
		hub := NewHub()
		a, err := hub.Open(1)
		require.NoError(t, err)

		_, err = hub.Open(1)
		assert.ErrorIs(t, err, ErrEndpointInUse)

		require.NoError(t, a.Close())
		_, err = a.Receive(ctx, 0)
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, a.Send(ctx, 1, nil), ErrClosed)

		_, err = hub.Open(1)
		assert.NoError(t, err)
	})
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "127.0.0.1:2002", Endpoint(2002).Address("127.0.0.1"))

	e, err := ParseEndpoint("2010")
	require.NoError(t, err)
	assert.Equal(t, Endpoint(2010), e)

	for _, bad := range []string{"", "0", "70000", "abc"} {
		_, err := ParseEndpoint(bad)
		assert.ErrorIs(t, err, ErrInvalidEndpoint, bad)
	}
}

func TestNATSMessageMapping(t *testing.T) {
	msg := NewMessage(2001, 2002, []byte("payload"))
	assert.Equal(t, "elevsim.endpoint.2002", msg.Subject)
	assert.Equal(t, "2001", msg.Header.Get(HEADER_FROM))

	packet, err := PacketFromMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, Endpoint(2001), packet.From)
	assert.Equal(t, []byte("payload"), packet.Data)

	_, err = PacketFromMessage(nats.NewMsg(Subject(2002)))
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
}

func TestDialNATSUnreachable(t *testing.T) {
	_, err := DialNATS(NATSConfig{
		URL:            "nats://127.0.0.1:1",
		Name:           "elevsim-test",
		ConnectTimeout: 100 * time.Millisecond,
	})
	assert.Error(t, err)
}
