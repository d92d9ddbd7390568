// Package floor is the floor side of the simulation: it replays a workload
// of ride requests to the scheduler and follows them until every one has
// completed or been stranded by a fault.
package floor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/fault"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/request"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/transport"
)

var Log = logger.GetLogger()

// ErrStalled is returned when requests are still outstanding but nothing
// has been heard for the status timeout.
var ErrStalled = errors.New("floor: no status before timeout")

type Config struct {
	Scheduler      transport.Endpoint
	SubmitInterval time.Duration //pause between requests
	StatusTimeout  time.Duration //0 waits forever
	PollInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Scheduler:    elevconsts.SCHEDULER_PORT,
		PollInterval: elevconsts.IDLE_POLL_TIMEOUT,
	}
}

type Report struct {
	Submitted       int
	Completed       int
	Faulted         int
	Outstanding     int
	LocationUpdates int
}

type Source struct {
	conn           transport.Conn
	scheduler      transport.Endpoint
	submitInterval time.Duration
	statusTimeout  time.Duration
	pollInterval   time.Duration
	requests       []request.Request

	mu          sync.Mutex
	outstanding map[uuid.UUID]request.Request
	report      Report
	lastStatus  time.Time
}

// LoadFile parses a workload file. Ids are stamped later by New.
func LoadFile(path string) ([]request.Request, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workload: %w", err)
	}
	defer file.Close()

	requests, err := request.ParseWorkload(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return requests, nil
}

func New(cfg Config, conn transport.Conn, requests []request.Request) *Source {
	stamped := make([]request.Request, len(requests))
	for i, req := range requests {
		if req.ID == uuid.Nil {
			req.ID = uuid.New()
		}
		stamped[i] = req
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = elevconsts.IDLE_POLL_TIMEOUT
	}
	return &Source{
		conn:           conn,
		scheduler:      cfg.Scheduler,
		submitInterval: cfg.SubmitInterval,
		statusTimeout:  cfg.StatusTimeout,
		pollInterval:   cfg.PollInterval,
		requests:       stamped,
		outstanding:    make(map[uuid.UUID]request.Request),
	}
}

func (s *Source) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	report := s.report
	report.Outstanding = len(s.outstanding)
	return report
}

// Run submits the workload while listening for statuses. It returns once
// every request has completed or faulted, or when ctx ends.
func (s *Source) Run(ctx context.Context) (Report, error) {
	Log.Info().Msgf("Floor source submitting %d request(s) to %v", len(s.requests), s.scheduler)

	submitted := make(chan struct{})
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer close(submitted)
		return s.submit(groupCtx)
	})
	group.Go(func() error {
		return s.listen(groupCtx, submitted)
	})

	err := group.Wait()
	if ctx.Err() != nil {
		err = nil
	}

	report := s.Report()
	Log.Info().Msgf("Floor source done: %d completed, %d faulted, %d outstanding", report.Completed, report.Faulted, report.Outstanding)
	return report, err
}

func (s *Source) submit(ctx context.Context) error {
	for i, req := range s.requests {
		if i > 0 {
			if err := fault.Sleep(ctx, s.submitInterval); err != nil {
				return err
			}
		}

		buf, err := request.Encode(req)
		if err != nil {
			return fmt.Errorf("encode %v: %w", req, err)
		}

		s.mu.Lock()
		s.outstanding[req.ID] = req
		s.report.Submitted++
		s.mu.Unlock()

		if err := s.conn.Send(ctx, s.scheduler, buf); err != nil {
			return fmt.Errorf("submit %v: %w", req, err)
		}
		Log.Info().Msgf("Floor sent request: %v", req)
	}

	s.mu.Lock()
	s.lastStatus = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Source) listen(ctx context.Context, submitted <-chan struct{}) error {
	for {
		if s.finished(submitted) {
			return nil
		}

		packet, err := s.conn.Receive(ctx, s.pollInterval)
		if errors.Is(err, transport.ErrTimeout) {
			select {
			case <-submitted:
				if err := s.checkStalled(); err != nil {
					return err
				}
			default:
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("floor receive: %w", err)
		}

		status, err := request.Decode(packet.Data)
		if err != nil {
			Log.Error().Msgf("Floor could not decode status from %v: %v", packet.From, err)
			continue
		}
		s.handleStatus(status)
	}
}

func (s *Source) finished(submitted <-chan struct{}) bool {
	select {
	case <-submitted:
	default:
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outstanding) == 0
}

func (s *Source) checkStalled() error {
	if s.statusTimeout <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outstanding) == 0 || time.Since(s.lastStatus) < s.statusTimeout {
		return nil
	}
	return fmt.Errorf("%w: %d request(s) outstanding after %v", ErrStalled, len(s.outstanding), s.statusTimeout)
}

func (s *Source) handleStatus(status request.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStatus = time.Now()

	if status.Location {
		s.report.LocationUpdates++
		Log.Info().Int("elevator", status.Elevator).Msgf("%v", status)
		return
	}

	if _, ok := s.outstanding[status.ID]; !ok {
		Log.Debug().Msgf("Floor ignoring status for unknown request %v", status.ID)
		return
	}

	switch {
	case status.TimerFault:
		delete(s.outstanding, status.ID)
		s.report.Faulted++
		Log.Error().Int("elevator", status.Elevator).Msgf("Request stranded by timer fault: %v", status)
	case status.Complete:
		delete(s.outstanding, status.ID)
		s.report.Completed++
		Log.Info().Int("elevator", status.Elevator).Msgf("Request complete: %v", status)
	default:
		Log.Debug().Msgf("Floor ignoring status: %v", status)
	}
}
