package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/config"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevutils"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/floor"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/request"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/simulation"
)

var Logger = logger.GetLogger()

func main() {
	args := elevutils.ProcessCmdArgs()
	if err := run(args); err != nil {
		Logger.Error().Msgf("Elevator Simulator failed: %v", err)
		os.Exit(1)
	}
}

func run(args elevutils.CmdArgs) error {
	cfg, err := config.Load(args.ConfigPath, args.EnvPath)
	if err != nil {
		return err
	}
	if args.Workload != "" {
		cfg.Workload = args.Workload
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.GetLoggerConfigured(level)

	Logger.Info().Msgf("Starting Elevator Simulator %q (version %s, role %s, %s transport)", cfg.Name, elevutils.GetGitHash(), args.Role, cfg.Transport)

	var requests []request.Request
	if args.Role == simulation.ROLE_ALL || args.Role == simulation.ROLE_FLOOR {
		requests, err = floor.LoadFile(cfg.Workload)
		if err != nil {
			return err
		}
	}

	network, err := simulation.OpenNetwork(cfg)
	if err != nil {
		return err
	}
	defer network.Close()

	sim, err := simulation.New(cfg, network, simulation.Options{
		Role:       args.Role,
		ElevatorID: args.ElevatorID,
		Requests:   requests,
	})
	if err != nil {
		return err
	}
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	go func() {
		select {
		case sig := <-quit:
			Logger.Warn().Msgf("Received %v, shutting down...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := sim.Run(ctx)
	if err != nil {
		return err
	}

	if args.Role == simulation.ROLE_ALL || args.Role == simulation.ROLE_FLOOR {
		Logger.Info().Msgf("Requests: %d submitted, %d completed, %d stranded by faults, %d outstanding",
			report.Submitted, report.Completed, report.Faulted, report.Outstanding)
	}
	Logger.Info().Msg("Elevator Simulator stopped")
	return nil
}
