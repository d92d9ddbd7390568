package elevutils

import (
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:generate sh -c "printf %s $(git rev-parse HEAD) > githash.txt"
//go:embed githash.txt
var gitHash string

func GetGitHash() string {
	return strings.TrimSpace(gitHash)
}

type CmdArgs struct {
	ConfigPath string
	EnvPath    string
	Role       string
	ElevatorID int
	Workload   string //overrides the configured workload when set
}

// ProcessCmdArgs parses os.Args and exits on -help and -version.
func ProcessCmdArgs() CmdArgs {
	args, exit, err := ParseCmdArgs(os.Args[0], os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if exit {
		os.Exit(0)
	}
	return args
}

// ParseCmdArgs reports exit when the arguments only asked for help or the
// version, which it has already printed to out.
func ParseCmdArgs(name string, arguments []string, out io.Writer) (CmdArgs, bool, error) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(out)

	help := flags.Bool("help", false, "Show Help Window")
	version := flags.Bool("version", false, "Show Version")
	configPath := flags.String("config", "", "Path to a YAML config file. Defaults to built-in settings")
	envPath := flags.String("env", "", "Path to a .env file with ELEVSIM_* variables")
	role := flags.String("role", "all", "Components to run: all, scheduler, elevator or floor")
	elevatorID := flags.Int("elevator", 0, "Elevator id to run with -role elevator. Defaults to 0")
	workload := flags.String("workload", "", "Workload file for the floor source. Overrides the config")

	if err := flags.Parse(arguments); err != nil {
		return CmdArgs{}, false, err
	}

	if *version {
		fmt.Fprintln(out, "Version:", GetGitHash())
		return CmdArgs{}, true, nil
	}

	if *help {
		fmt.Fprintln(out, "Usage: ./elevsim [OPTIONS]")
		fmt.Fprintln(out, "Real-Time Elevator Simulator")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Workload lines read \"H:M:S.f origin Up|Down destination\", e.g. \"14:05:15.2 2 Up 4\".")
		return CmdArgs{}, true, nil
	}

	switch *role {
	case "all", "scheduler", "elevator", "floor":
	default:
		return CmdArgs{}, false, fmt.Errorf("unknown role %q", *role)
	}
	if *elevatorID < 0 {
		return CmdArgs{}, false, fmt.Errorf("elevator id must not be negative")
	}

	return CmdArgs{
		ConfigPath: *configPath,
		EnvPath:    *envPath,
		Role:       *role,
		ElevatorID: *elevatorID,
		Workload:   *workload,
	}, false, nil
}
