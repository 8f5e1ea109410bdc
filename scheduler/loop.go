package scheduler

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// RunCycle walks the job ordering cascade once, attempting to place each
// candidate job: run it immediately if feasible, otherwise try
// preemption, otherwise (when eligible) give it a calendar reservation
// via the backfill pass. Grounded on main_sched_loop's per-iteration
// structure directly: next_job -> is_ok_to_run -> (run | preempt | skip),
// with the calendar-reservation (top job) pass folded in as
// should_backfill_with_job decides per candidate rather than as a
// separate phase, matching how the original interleaves both within the
// same loop body.
//
// restrictTo, when non-empty, limits consideration to those job names
// (used for a single-job SCH_SCHEDULE_AJOB cycle); nil/empty means
// consider the whole queue.
func RunCycle(logger hclog.Logger, u *Universe, restrictTo []string) CycleResult {
	start := time.Now()
	logger = logger.Named("scheduler.cycle")

	var only map[string]bool
	if len(restrictTo) > 0 {
		only = make(map[string]bool, len(restrictTo))
		for _, n := range restrictTo {
			only[n] = true
		}
	}
	// A single-job cycle (qrun) marks its target so next_job's cascade
	// picks it ahead of every other tier, matching the real QRUN
	// semantics rather than just filtering it out of consideration.
	if len(restrictTo) == 1 {
		if j := findJobByName(u, restrictTo[0]); j != nil {
			j.QRUNTarget = true
			defer func() { j.QRUNTarget = false }()
		}
	}

	for _, j := range u.Jobs {
		j.CanNotRun = false
	}

	considered := make(map[string]bool)
	var errs *multierror.Error
	result := CycleResult{}
	topJobs := 0

	for {
		job := NextJob(u, considered)
		if job == nil {
			break
		}
		if only != nil && !only[job.Name] {
			considered[job.Name] = true
			continue
		}
		considered[job.Name] = true

		logger.Debug("considering job", "job", job.Name)

		job.Start = u.ServerTime
		if IsOkToRun(u, job) {
			job.AssignedNodes = AssignNodes(u, job)
			job.State = JobRunning
			job.Accrue = AccrueRunning
			job.End = job.Start.Add(job.Duration)
			u.Calendar.Add(&Event{Time: job.End, Type: EventEnd, Ptr: job})
			result.JobsRun++
			continue
		}

		if u.Policy.PreemptionEnabled {
			if victims := FindAndPreemptJobs(u, job); victims != nil {
				ApplyPreemption(u, victims)
				delete(considered, job.Name) // retry this job next pass
				continue
			}
		}

		if ShouldBackfillWithJob(u, job, topJobs) {
			if err := AddJobToCalendar(u, job); err != nil {
				errs = multierror.Append(errs, err)
			} else {
				topJobs++
				result.JobsBackfilled++
			}
		}
	}

	result.Duration = time.Since(start)
	result.Err = errs.ErrorOrNil()
	return result
}
