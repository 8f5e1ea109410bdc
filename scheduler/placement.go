package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// IsOkToRun decides whether job could start at u.Calendar.CurrentTime and
// run to completion without oversubscribing any consumable resource,
// given both the universe's current state and everything already
// committed in the calendar for the job's prospective run window.
// Grounded on is_ok_to_run's role in calc_run_time: it is re-evaluated
// every time simulate_events produces a state change, and a nil/false
// result there is what drives the simulation to advance to the next
// event instead of placing the job.
//
// This is a deliberately simplified node-selection pass: rather than the
// original's full select-spec chunk matching, it sums available capacity
// across schedulable nodes. Per-node chunk placement (one chunk bound to
// one node) is out of scope for what this function needs to answer for
// backfill timing purposes; AssignNodes below does the actual binding
// once a start time has been chosen.
func IsOkToRun(u *Universe, job *Job) bool {
	start := job.Start
	if start.IsZero() {
		start = u.Calendar.CurrentTime
	}
	end := start.Add(job.Duration)

	// Each resource request's feasibility depends only on that resource's
	// own SimulateResmin bottleneck, so the per-request checks fan out
	// independently; g.Wait returns once every check has finished,
	// reporting the first failure if any.
	g, _ := errgroup.WithContext(context.Background())
	for _, req := range job.Resources {
		req := req
		if req.Def.Unbounded {
			continue
		}
		g.Go(func() error {
			total := 0.0
			for _, n := range u.Nodes {
				if n.Schedulable() {
					total += n.Resources.Available(req.Def)
				}
			}
			// A Running job holds its requests until an END event for it
			// has been simulated past.
			for _, j := range u.Jobs {
				if j != job && j.State == JobRunning {
					total -= j.Request(req.Def)
				}
			}
			committed := SimulateResmin(u, ResourceList{{Def: req.Def, Amount: total}}, end, nil, job)
			bottleneck := committed.Find(req.Def)
			remaining := total
			if bottleneck != nil {
				remaining = total - bottleneck.Assigned
			}
			if remaining < req.Amount {
				return errNoFeasiblePlacement
			}
			return nil
		})
	}
	return g.Wait() == nil
}

// AssignNodes returns the name of the first node in u.Nodes for which
// Node.Fits reports that it can hold all of job's resource requests, or
// nil when no single node can; requests are not split across nodes. It is only
// called once IsOkToRun has confirmed a feasible window, mirroring the
// original's ns (nspec list) being produced by the same is_ok_to_run call
// that decided feasibility.
func AssignNodes(u *Universe, job *Job) []string {
	var chosen []string
	for _, n := range u.Nodes {
		if n.Fits(job.Resources) {
			chosen = append(chosen, n.Name)
			if len(chosen) >= 1 {
				break
			}
		}
	}
	return chosen
}

// nextEventFuzzyStep is the default SimNextEvent offset used when no
// policy override is configured: events within this step after the next
// event are applied in the same advance, and the simulated clock stops at
// the time of the last event applied.
const nextEventFuzzyStep = time.Second
