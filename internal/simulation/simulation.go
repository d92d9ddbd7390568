// Package simulation wires the scheduler, the elevators and the floor source
// onto one network and runs whichever of them this process hosts.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/config"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevator"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/fault"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/floor"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/request"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/scheduler"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/transport"
)

var Log = logger.GetLogger()

const (
	ROLE_ALL       = "all"
	ROLE_SCHEDULER = "scheduler"
	ROLE_ELEVATOR  = "elevator"
	ROLE_FLOOR     = "floor"

	NATS_RECONNECT_WAIT  = time.Second
	NATS_MAX_RECONNECTS  = 60
	NATS_CONNECT_TIMEOUT = 10 * time.Second
	NATS_CONNECTION_NAME = "elevsim-"
)

type Options struct {
	Role       string
	ElevatorID int               //only for ROLE_ELEVATOR
	Requests   []request.Request //workload for the floor source
	// Faults supplies each elevator's fault source; nil draws from a PCG
	// seeded with the configured fault seed plus the elevator id.
	Faults func(id int) fault.Source
}

type Simulation struct {
	cfg     config.Config
	network transport.Network
	conns   []transport.Conn

	scheduler *scheduler.Scheduler
	elevators []*elevator.Elevator
	floor     *floor.Source
}

// OpenNetwork connects the medium named by cfg.Transport.
func OpenNetwork(cfg config.Config) (transport.Network, error) {
	switch cfg.Transport {
	case config.TRANSPORT_UDP:
		return transport.UDPNetwork{Host: cfg.Host}, nil
	case config.TRANSPORT_NATS:
		return transport.DialNATS(transport.NATSConfig{
			URL:            cfg.NATSURL,
			Name:           NATS_CONNECTION_NAME + cfg.Name,
			ReconnectWait:  NATS_RECONNECT_WAIT,
			MaxReconnects:  NATS_MAX_RECONNECTS,
			ConnectTimeout: NATS_CONNECT_TIMEOUT,
		})
	case config.TRANSPORT_MEM:
		return transport.NewHub(), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", config.ErrInvalid, cfg.Transport)
	}
}

// New opens the endpoints of every component the role hosts. The network
// stays owned by the caller.
func New(cfg config.Config, network transport.Network, opts Options) (*Simulation, error) {
	s := &Simulation{cfg: cfg, network: network}
	if opts.Faults == nil {
		opts.Faults = seededFaults(cfg.FaultSeed)
	}

	var err error
	switch opts.Role {
	case ROLE_ALL:
		err = errors.Join(s.addScheduler(), s.addElevators(opts), s.addFloor(opts.Requests))
	case ROLE_SCHEDULER:
		err = s.addScheduler()
	case ROLE_ELEVATOR:
		if opts.ElevatorID < 0 || opts.ElevatorID >= cfg.ElevatorCount {
			err = fmt.Errorf("%w: elevator %d not in 0-%d", config.ErrInvalid, opts.ElevatorID, cfg.ElevatorCount-1)
			break
		}
		err = s.addElevator(opts.ElevatorID, opts.Faults(opts.ElevatorID))
	case ROLE_FLOOR:
		err = s.addFloor(opts.Requests)
	default:
		err = fmt.Errorf("%w: unknown role %q", config.ErrInvalid, opts.Role)
	}

	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func seededFaults(seed uint64) func(int) fault.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return func(id int) fault.Source {
		return fault.NewRandom(seed + uint64(id))
	}
}

func (s *Simulation) open(endpoint transport.Endpoint) (transport.Conn, error) {
	conn, err := s.network.Open(endpoint)
	if err != nil {
		return nil, fmt.Errorf("open endpoint %v: %w", endpoint, err)
	}
	s.conns = append(s.conns, conn)
	return conn, nil
}

func (s *Simulation) addScheduler() error {
	conn, err := s.open(s.cfg.SchedulerEndpoint())
	if err != nil {
		return err
	}
	selector, err := scheduler.NewSelector(s.cfg.Selector)
	if err != nil {
		return err
	}
	s.scheduler = scheduler.New(scheduler.Config{
		Floor:     s.cfg.FloorEndpoint(),
		Elevators: s.cfg.ElevatorEndpoints(),
	}, conn, selector)
	return nil
}

func (s *Simulation) addElevators(opts Options) error {
	for id := 0; id < s.cfg.ElevatorCount; id++ {
		if err := s.addElevator(id, opts.Faults(id)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) addElevator(id int, faults fault.Source) error {
	conn, err := s.open(s.cfg.ElevatorEndpoint(id))
	if err != nil {
		return err
	}
	s.elevators = append(s.elevators, elevator.New(elevator.Config{
		ID:              id,
		Scheduler:       s.cfg.SchedulerEndpoint(),
		FloorTravelTime: s.cfg.FloorTravelTime,
		DoorDelay:       s.cfg.DoorDelay,
		IdlePollTimeout: s.cfg.IdlePollTimeout,
	}, conn, faults))
	return nil
}

func (s *Simulation) addFloor(requests []request.Request) error {
	conn, err := s.open(s.cfg.FloorEndpoint())
	if err != nil {
		return err
	}
	s.floor = floor.New(floor.Config{
		Scheduler:      s.cfg.SchedulerEndpoint(),
		SubmitInterval: s.cfg.SubmitInterval,
		StatusTimeout:  s.cfg.StatusTimeout,
		PollInterval:   s.cfg.IdlePollTimeout,
	}, conn, requests)
	return nil
}

func (s *Simulation) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

func (s *Simulation) Elevators() []*elevator.Elevator {
	return s.elevators
}

// Run blocks until ctx ends. When this process hosts the floor source, the
// whole simulation also stops once the floor source is done.
func (s *Simulation) Run(ctx context.Context) (floor.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var report floor.Report
	group, groupCtx := errgroup.WithContext(runCtx)

	if s.scheduler != nil {
		group.Go(func() error {
			return s.scheduler.Run(groupCtx)
		})
	}
	for _, e := range s.elevators {
		group.Go(func() error {
			return e.Run(groupCtx)
		})
	}
	if s.floor != nil {
		group.Go(func() error {
			defer cancel()
			var err error
			report, err = s.floor.Run(groupCtx)
			return err
		})
	}

	err := group.Wait()
	if s.scheduler != nil {
		stats := s.scheduler.Stats()
		Log.Info().Msgf("Scheduler forwarded %d request(s) and %d status(es), dropped %d, %d undecodable",
			stats.ToElevators, stats.ToFloor, stats.Dropped, stats.DecodeErrors)
	}
	return report, err
}

// Close releases the endpoints opened by New.
func (s *Simulation) Close() error {
	var errs []error
	for _, conn := range s.conns {
		errs = append(errs, conn.Close())
	}
	s.conns = nil
	return errors.Join(errs...)
}
