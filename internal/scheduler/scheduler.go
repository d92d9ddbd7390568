// Package scheduler relays requests between the floor source and the
// elevators: new requests get an elevator assigned and are forwarded to
// it, and elevator statuses go back to the floor source untouched.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/request"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/transport"
)

var Log = logger.GetLogger()

type Config struct {
	Floor     transport.Endpoint
	Elevators []transport.Endpoint //indexed by elevator id
}

type Stats struct {
	ToElevators  uint64
	ToFloor      uint64
	Dropped      uint64
	DecodeErrors uint64
}

type Scheduler struct {
	conn      transport.Conn
	floor     transport.Endpoint
	elevators []transport.Endpoint
	selector  Selector
	state     elevconsts.SchedulerState

	toElevators  atomic.Uint64
	toFloor      atomic.Uint64
	dropped      atomic.Uint64
	decodeErrors atomic.Uint64
}

// New builds a scheduler; a nil selector always picks elevator 0.
func New(cfg Config, conn transport.Conn, selector Selector) *Scheduler {
	if selector == nil {
		selector = FixedSelector{Elevator: 0}
	}
	return &Scheduler{
		conn:      conn,
		floor:     cfg.Floor,
		elevators: cfg.Elevators,
		selector:  selector,
		state:     elevconsts.SchedulerIdle,
	}
}

// State is only meaningful between steps.
func (s *Scheduler) State() elevconsts.SchedulerState {
	return s.state
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		ToElevators:  s.toElevators.Load(),
		ToFloor:      s.toFloor.Load(),
		Dropped:      s.dropped.Load(),
		DecodeErrors: s.decodeErrors.Load(),
	}
}

// Run relays messages until ctx ends or the transport fails.
func (s *Scheduler) Run(ctx context.Context) error {
	Log.Info().Msgf("Scheduler started on endpoint %v serving %d elevator(s)", s.conn.Endpoint(), len(s.elevators))
	for {
		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Step waits for one message and routes it by sender.
func (s *Scheduler) Step(ctx context.Context) error {
	s.state = elevconsts.SchedulerIdle
	packet, err := s.conn.Receive(ctx, 0)
	if err != nil {
		return fmt.Errorf("scheduler receive: %w", err)
	}

	s.state = elevconsts.SchedulerThinking
	defer func() { s.state = elevconsts.SchedulerIdle }()

	switch {
	case packet.From == s.floor:
		return s.forwardToElevator(ctx, packet)
	case s.isElevator(packet.From):
		return s.forwardToFloor(ctx, packet)
	default:
		Log.Debug().Msgf("Scheduler dropped message from unknown endpoint %v", packet.From)
		s.dropped.Add(1)
		return nil
	}
}

func (s *Scheduler) isElevator(endpoint transport.Endpoint) bool {
	for _, e := range s.elevators {
		if e == endpoint {
			return true
		}
	}
	return false
}

func (s *Scheduler) forwardToElevator(ctx context.Context, packet transport.Packet) error {
	req, err := request.Decode(packet.Data)
	if err != nil {
		Log.Error().Msgf("Scheduler could not decode floor message: %v", err)
		s.decodeErrors.Add(1)
		return nil
	}

	index := s.selector.Select(req, len(s.elevators))
	if index < 0 || index >= len(s.elevators) {
		Log.Error().Msgf("Scheduler has no elevator #%d for %v", index, req)
		s.dropped.Add(1)
		return nil
	}
	req.SetElevator(index)

	buf, err := request.Encode(req)
	if err != nil {
		Log.Error().Msgf("Scheduler could not encode %v: %v", req, err)
		s.dropped.Add(1)
		return nil
	}
	if err := s.conn.Send(ctx, s.elevators[index], buf); err != nil {
		return fmt.Errorf("scheduler send to elevator %d: %w", index, err)
	}

	s.toElevators.Add(1)
	Log.Info().Int("elevator", index).Msgf("Scheduler forwarded floor message: %v", req)
	return nil
}

func (s *Scheduler) forwardToFloor(ctx context.Context, packet transport.Packet) error {
	if observer, ok := s.selector.(Observer); ok {
		if status, err := request.Decode(packet.Data); err == nil {
			observer.Observe(status)
		}
	}

	if err := s.conn.Send(ctx, s.floor, packet.Data); err != nil {
		return fmt.Errorf("scheduler send to floor: %w", err)
	}

	s.toFloor.Add(1)
	Log.Debug().Msgf("Scheduler forwarded elevator message from %v", packet.From)
	return nil
}
