// Package scheduler implements the decision engine: the Job/Node/
// Reservation universe, the calendar-based backfill simulator, and the
// cycle driver that ties them together into the classic FIFO-with-
// backfill scheduling loop.
package scheduler

import "errors"

// errNoFeasiblePlacement mirrors is_ok_to_run returning no nspec: the
// request cannot run against the current universe, now or ever, within
// the information the cycle has.
var errNoFeasiblePlacement = errors.New("scheduler: no feasible placement")

// errCalendarExhausted mirrors TIMED_NOEVENT: the simulator ran out of
// future events to advance to before a placement could be found.
var errCalendarExhausted = errors.New("scheduler: calendar exhausted before placement found")

// errCycleAborted mirrors a cycle driver command (e.g. SCHED_CMD_TERM)
// interrupting an in-progress scheduling cycle.
var errCycleAborted = errors.New("scheduler: cycle aborted")
