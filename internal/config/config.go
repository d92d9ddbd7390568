// Package config loads the simulator settings: defaults, then an optional
// YAML file, then ELEVSIM_* variables from the environment or a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/xyproto/randomstring"
	"gopkg.in/yaml.v3"

	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/elevconsts"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/logger"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/scheduler"
	"github.com/SajaFawagreh/Real-Time-Elevator-Simulator/internal/transport"
)

var Log = logger.GetLogger()

const (
	ENV_PREFIX             = "ELEVSIM_"
	IDENTIFIER_DEFAULT_LEN = 10

	TRANSPORT_UDP  = "udp"
	TRANSPORT_NATS = "nats"
	TRANSPORT_MEM  = "mem"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Name      string `yaml:"name"`
	Host      string `yaml:"host"`
	Transport string `yaml:"transport"`
	NATSURL   string `yaml:"nats_url"`

	SchedulerPort    uint16 `yaml:"scheduler_port"`
	FloorPort        uint16 `yaml:"floor_port"`
	ElevatorBasePort uint16 `yaml:"elevator_base_port"`
	ElevatorCount    int    `yaml:"elevator_count"`
	Selector         string `yaml:"selector"`

	FloorTravelTime time.Duration `yaml:"floor_travel_time"`
	DoorDelay       time.Duration `yaml:"door_delay"`
	IdlePollTimeout time.Duration `yaml:"idle_poll_timeout"`
	SubmitInterval  time.Duration `yaml:"submit_interval"`
	StatusTimeout   time.Duration `yaml:"status_timeout"`

	Workload  string `yaml:"workload"`
	LogLevel  string `yaml:"log_level"`
	FaultSeed uint64 `yaml:"fault_seed"` //0 seeds from the clock
}

func Default() Config {
	return Config{
		Host:             transport.DEFAULT_HOST,
		Transport:        TRANSPORT_UDP,
		NATSURL:          "nats://localhost:4222",
		SchedulerPort:    elevconsts.SCHEDULER_PORT,
		FloorPort:        elevconsts.FLOOR_PORT,
		ElevatorBasePort: elevconsts.ELEVATOR_BASE_PORT,
		ElevatorCount:    1,
		Selector:         scheduler.SELECTOR_FIXED,
		FloorTravelTime:  elevconsts.FLOOR_TRAVEL_TIME,
		DoorDelay:        elevconsts.DOOR_DELAY,
		IdlePollTimeout:  elevconsts.IDLE_POLL_TIMEOUT,
		StatusTimeout:    30 * time.Second,
		Workload:         "testdata.txt",
		LogLevel:         "info",
	}
}

// Load builds the config from defaults, the YAML file at path and the
// environment, with a .env file at envPath filling variables the process
// does not set. Empty paths are skipped.
func Load(path, envPath string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	dotenv := map[string]string{}
	if envPath != "" {
		var err error
		dotenv, err = godotenv.Read(envPath)
		if err != nil {
			return cfg, fmt.Errorf("error loading %s: %w", envPath, err)
		}
	}

	lookup := func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return dotenv[key]
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}

	if cfg.Name == "" {
		cfg.Name = randomstring.EnglishFrequencyString(IDENTIFIER_DEFAULT_LEN)
		Log.Warn().Msgf("No simulator name provided, generated random name \"%v\"", cfg.Name)
	}

	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("error decoding config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) string) error {
	env := envReader{lookup: lookup}

	env.setString("NAME", &c.Name)
	env.setString("HOST", &c.Host)
	env.setString("TRANSPORT", &c.Transport)
	env.setString("NATS_URL", &c.NATSURL)
	env.setPort("SCHEDULER_PORT", &c.SchedulerPort)
	env.setPort("FLOOR_PORT", &c.FloorPort)
	env.setPort("ELEVATOR_BASE_PORT", &c.ElevatorBasePort)
	env.setInt("ELEVATOR_COUNT", &c.ElevatorCount)
	env.setString("SELECTOR", &c.Selector)
	env.setDuration("FLOOR_TRAVEL_TIME", &c.FloorTravelTime)
	env.setDuration("DOOR_DELAY", &c.DoorDelay)
	env.setDuration("IDLE_POLL_TIMEOUT", &c.IdlePollTimeout)
	env.setDuration("SUBMIT_INTERVAL", &c.SubmitInterval)
	env.setDuration("STATUS_TIMEOUT", &c.StatusTimeout)
	env.setString("WORKLOAD", &c.Workload)
	env.setString("LOG_LEVEL", &c.LogLevel)
	env.setUint64("FAULT_SEED", &c.FaultSeed)

	return errors.Join(env.errs...)
}

func (c Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.Transport {
	case TRANSPORT_UDP, TRANSPORT_MEM:
	case TRANSPORT_NATS:
		if c.NATSURL == "" {
			invalid("nats transport needs nats_url")
		}
	default:
		invalid("unknown transport %q", c.Transport)
	}

	if c.ElevatorCount < 1 {
		invalid("elevator_count must be at least 1, got %d", c.ElevatorCount)
	}
	if c.SchedulerPort == 0 || c.FloorPort == 0 || c.ElevatorBasePort == 0 {
		invalid("ports must be set")
	}
	if c.SchedulerPort == c.FloorPort {
		invalid("scheduler_port and floor_port are both %d", c.SchedulerPort)
	}
	last := int(c.ElevatorBasePort) + c.ElevatorCount - 1
	if last > 65535 {
		invalid("elevator ports run past 65535")
	}
	for _, port := range []uint16{c.SchedulerPort, c.FloorPort} {
		if int(port) >= int(c.ElevatorBasePort) && int(port) <= last {
			invalid("port %d overlaps the elevator ports %d-%d", port, c.ElevatorBasePort, last)
		}
	}

	if _, err := scheduler.NewSelector(c.Selector); err != nil {
		invalid("%v", err)
	}
	if c.FloorTravelTime < 0 || c.DoorDelay < 0 || c.SubmitInterval < 0 || c.StatusTimeout < 0 {
		invalid("durations must not be negative")
	}
	if c.IdlePollTimeout <= 0 {
		invalid("idle_poll_timeout must be positive")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		invalid("%v", err)
	}

	return errors.Join(errs...)
}

func (c Config) SchedulerEndpoint() transport.Endpoint {
	return transport.Endpoint(c.SchedulerPort)
}

func (c Config) FloorEndpoint() transport.Endpoint {
	return transport.Endpoint(c.FloorPort)
}

func (c Config) ElevatorEndpoint(id int) transport.Endpoint {
	return transport.Endpoint(int(c.ElevatorBasePort) + id)
}

func (c Config) ElevatorEndpoints() []transport.Endpoint {
	endpoints := make([]transport.Endpoint, c.ElevatorCount)
	for i := range endpoints {
		endpoints[i] = c.ElevatorEndpoint(i)
	}
	return endpoints
}

// envReader collects parse failures so every bad variable is reported.
type envReader struct {
	lookup func(string) string
	errs   []error
}

func (r *envReader) get(key string) (string, string, bool) {
	name := ENV_PREFIX + key
	val := r.lookup(name)
	return name, val, val != ""
}

func (r *envReader) fail(name, val string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, name, val, err))
}

func (r *envReader) setString(key string, dst *string) {
	if _, val, ok := r.get(key); ok {
		*dst = val
	}
}

func (r *envReader) setInt(key string, dst *int) {
	name, val, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = n
}

func (r *envReader) setPort(key string, dst *uint16) {
	name, val, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(val, 10, 16)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = uint16(n)
}

func (r *envReader) setUint64(key string, dst *uint64) {
	name, val, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = n
}

func (r *envReader) setDuration(key string, dst *time.Duration) {
	name, val, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		r.fail(name, val, err)
		return
	}
	*dst = d
}
