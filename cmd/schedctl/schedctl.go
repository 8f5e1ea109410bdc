// Package schedctl implements a control tool for triggering scheduler
// cycles, grounded on pbs_sched_utils.cpp's sched_cmd dispatch (the
// -c/-r-style scheduler control options offered around
// SCH_SCHEDULE_NULL/SCH_SCHEDULE_AJOB/SCH_SCHEDULE_RESTART_CYCLE).
package schedctl

import (
	"flag"
	"fmt"

	"github.com/dispatchco/fleetsched/scheduler"
	"github.com/hashicorp/go-hclog"
)

// Command runs one scheduling cycle command against a Universe and
// reports the outcome.
type Command struct {
	UI     UI
	Logger hclog.Logger
	// Load builds the Universe to schedule against (e.g. by querying a
	// live server, or loading a saved snapshot for dry runs).
	Load func() (*scheduler.Universe, error)
}

// UI is the minimal output surface this command needs; satisfied by
// github.com/hashicorp/cli.Ui, kept narrow here so tests can supply a
// trivial fake without depending on that package.
type UI interface {
	Output(string)
	Error(string)
}

func (c *Command) Help() string {
	return "Usage: schedctl [-restart] [-job ID]\n\n" +
		"Triggers a scheduling cycle: the full queue by default, or a\n" +
		"single job with -job, or a forced restart with -restart."
}

func (c *Command) Synopsis() string {
	return "Trigger a scheduler cycle"
}

func (c *Command) Run(args []string) int {
	var jobArg string
	var restart bool

	flags := flag.NewFlagSet("schedctl", flag.ContinueOnError)
	flags.Usage = func() { c.UI.Error(c.Help()) }
	flags.StringVar(&jobArg, "job", "", "restrict the cycle to a single job")
	flags.BoolVar(&restart, "restart", false, "discard in-progress cycle state and restart")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	u, err := c.Load()
	if err != nil {
		c.UI.Error(fmt.Sprintf("schedctl: %v", err))
		return 1
	}

	req := scheduler.CycleRequest{Cmd: scheduler.CmdScheduleNull}
	switch {
	case jobArg != "":
		req = scheduler.CycleRequest{Cmd: scheduler.CmdScheduleJob, JobArg: jobArg}
	case restart:
		req = scheduler.CycleRequest{Cmd: scheduler.CmdRestartCycle}
	}

	logger := c.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	result, err := scheduler.Dispatch(logger, u, req)
	if err != nil {
		c.UI.Error(fmt.Sprintf("schedctl: %v", err))
		return 1
	}

	c.UI.Output(fmt.Sprintf("cycle complete: ran %d, backfilled %d, took %s",
		result.JobsRun, result.JobsBackfilled, result.Duration))
	if result.Err != nil {
		c.UI.Error(fmt.Sprintf("schedctl: cycle reported errors: %v", result.Err))
		return 1
	}
	return 0
}
