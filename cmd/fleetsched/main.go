// Command fleetsched is the single binary housing every client-facing
// tool this module implements, matching the real project's pattern of
// one binary with a command map (mirroring hashicorp/nomad's top-level
// main.go + command/commands.go split): qdel, pbs_rdel and schedctl are
// registered here as cli.Command factories rather than shipped as
// separate binaries.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dispatchco/fleetsched/cmd/pbsrdel"
	"github.com/dispatchco/fleetsched/cmd/qdel"
	"github.com/dispatchco/fleetsched/cmd/schedctl"
	"github.com/dispatchco/fleetsched/fabric"
	"github.com/dispatchco/fleetsched/scheduler"
	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
)

// version is overridden at link time with -ldflags "-X main.version=...",
// the same mechanism Nomad stamps its release version with.
var version = "dev"

func main() {
	os.Exit(realMain())
}

func realMain() int {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "fleetsched",
		Level: hclog.LevelFromString(os.Getenv("FLEETSCHED_LOG_LEVEL")),
	})

	ui := &cli.BasicUi{
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
		Reader:      os.Stdin,
	}

	c := cli.NewCLI("fleetsched", version)
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"qdel": func() (cli.Command, error) {
			return &qdel.Command{UI: ui, Dial: dialFunc(logger)}, nil
		},
		"pbs_rdel": func() (cli.Command, error) {
			return &pbsrdel.Command{UI: ui, Dial: dialFunc(logger)}, nil
		},
		"schedctl": func() (cli.Command, error) {
			return &schedctl.Command{UI: ui, Logger: logger, Load: loadUniverse}, nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitStatus
}

// dialFunc builds the Dial callback qdel/pbs_rdel need to resolve a job
// or reservation's owning server into a live Handle. Server addresses
// come from FLEETSCHED_SERVERS (comma-separated host:port list). A
// requested server string that parses as host:port is added to that list;
// one that does not parse is ignored. SetServers shuffles the combined
// list, so the requested server is not necessarily the one tried first.
func dialFunc(logger hclog.Logger) func(server string) (*fabric.Handle, error) {
	return func(server string) (*fabric.Handle, error) {
		servers, err := parseServerList(os.Getenv("FLEETSCHED_SERVERS"))
		if err != nil {
			return nil, err
		}
		if len(servers) == 0 {
			return nil, fmt.Errorf("FLEETSCHED_SERVERS is not set")
		}

		manager := fabric.NewManager(logger, nil, nil)
		manager.SetServers(servers)

		var legacy *fabric.LegacyDialer
		if len(servers) == 2 {
			probe := func(s *fabric.Server) error {
				c, err := fabric.Dial(s)
				if err != nil {
					return err
				}
				return c.Close()
			}
			legacy = fabric.NewLegacyDialer(servers[0], servers[1], os.TempDir(), os.Getenv("USER"), probe)
		}

		handle := fabric.NewHandle(logger, manager, legacy)
		if server != "" {
			if s, err := fabric.ParseServer(server); err == nil {
				manager.SetServers(append([]*fabric.Server{s}, servers...))
			}
		}
		return handle, nil
	}
}

func parseServerList(raw string) ([]*fabric.Server, error) {
	if raw == "" {
		return nil, nil
	}
	var servers []*fabric.Server
	for _, hostport := range strings.Split(raw, ",") {
		hostport = strings.TrimSpace(hostport)
		if hostport == "" {
			continue
		}
		s, err := fabric.ParseServer(hostport)
		if err != nil {
			return nil, fmt.Errorf("FLEETSCHED_SERVERS: %w", err)
		}
		servers = append(servers, s)
	}
	return servers, nil
}

// loadUniverse reads the scheduler state schedctl evaluates from the
// snapshot file named by FLEETSCHED_SNAPSHOT, the same msgpack format
// WriteSnapshot produces.
func loadUniverse() (*scheduler.Universe, error) {
	path := os.Getenv("FLEETSCHED_SNAPSHOT")
	if path == "" {
		return nil, fmt.Errorf("FLEETSCHED_SNAPSHOT is not set")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return scheduler.ReadSnapshot(f)
}
