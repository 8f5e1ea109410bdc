package scheduler

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Command identifies what triggered a scheduling cycle, grounded on
// pbs_sched_utils.cpp's sched_cmd dispatch table (SCH_SCHEDULE_NULL,
// SCH_SCHEDULE_AJOB, SCH_SCHEDULE_RESTART_CYCLE, SCH_CONFIGURE, ...).
type Command uint8

const (
	// CmdScheduleNull is a periodic/idle-triggered cycle: consider the
	// whole queue from scratch.
	CmdScheduleNull Command = iota
	// CmdScheduleJob restricts the cycle to evaluating a single named
	// job (e.g. in response to qrun), matching SCH_SCHEDULE_AJOB.
	CmdScheduleJob
	// CmdRestartCycle discards any in-progress cycle state and starts
	// over, matching SCH_SCHEDULE_RESTART_CYCLE.
	CmdRestartCycle
	// CmdConfigure reloads scheduler configuration without running a
	// cycle, matching SCH_CONFIGURE.
	CmdConfigure
	// CmdTerminate ends the scheduler process, matching SCH_QUIT-style
	// commands.
	CmdTerminate
)

// CycleRequest is one dispatched command plus its optional job-name
// argument (only meaningful for CmdScheduleJob).
type CycleRequest struct {
	Cmd    Command
	JobArg string
}

// CycleResult summarizes one cycle's outcome: how many jobs were started,
// how many were given calendar reservations, and how long the cycle ran.
type CycleResult struct {
	JobsRun       int
	JobsBackfilled int
	Duration      time.Duration
	Err           error
}

// Dispatch executes req against u, the way pbs_sched_utils.cpp's command
// loop routes each sched_cmd to its handler. CmdConfigure and
// CmdTerminate never run a scheduling cycle; both scheduling commands
// fall through to RunCycle, restricted to a single job for
// CmdScheduleJob.
func Dispatch(logger hclog.Logger, u *Universe, req CycleRequest) (CycleResult, error) {
	switch req.Cmd {
	case CmdConfigure:
		return CycleResult{}, nil
	case CmdTerminate:
		return CycleResult{}, errCycleAborted
	case CmdScheduleJob:
		j := findJobByName(u, req.JobArg)
		if j == nil {
			return CycleResult{}, fmt.Errorf("scheduler: unknown job %q", req.JobArg)
		}
		return RunCycle(logger, u, []string{j.Name}), nil
	case CmdRestartCycle, CmdScheduleNull:
		return RunCycle(logger, u, nil), nil
	default:
		return CycleResult{}, fmt.Errorf("scheduler: unrecognized command %d", req.Cmd)
	}
}

func findJobByName(u *Universe, name string) *Job {
	for _, j := range u.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}
