package scheduler

import (
	"fmt"
	"time"
)

// CalcRunTime estimates when job could start, simulating forward through
// the calendar until IsOkToRun succeeds or the calendar is exhausted.
// Grounded on calc_run_time directly: the do/while loop alternates
// between checking feasibility at the current simulated time and, when
// infeasible, advancing the simulated clock to the next event (applying
// with it any others within the fuzzy step after it) and trying again.
//
// Per §4.4.4, this lookahead never runs against the live universe:
// SimulateEvents mutates whatever Job/Reservation states it walks past
// (perform sets them Running/Finished as it advances the simulated
// clock), so probing on u directly would permanently corrupt real jobs
// as a side effect of a hypothetical future. CalcRunTime therefore
// clones u, simulates entirely on the clone, and copies back only the
// timing result (Start/End/EstStartTime) onto the real job — the clone
// and every state change made to it are discarded when this function
// returns. job must already be present in u.Jobs (calc_run_time is
// always called with a resresv already pulled off the live queue), so
// its clone can be found by rank with resource-definition pointer
// identity intact.
func CalcRunTime(u *Universe, job *Job) (time.Time, error) {
	if job == nil {
		return time.Time{}, fmt.Errorf("scheduler: nil job: %w", errNoFeasiblePlacement)
	}

	clone, err := u.Clone()
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduler: %s: cloning universe: %w", job.Name, err)
	}
	simJob := clone.FindJob(job.Rank)
	if simJob == nil {
		return time.Time{}, fmt.Errorf("scheduler: %s: not present in universe: %w", job.Name, errNoFeasiblePlacement)
	}

	eventTime := clone.ServerTime
	fuzzy := clone.Policy.BackfillFuzzyTime
	if fuzzy == 0 {
		fuzzy = nextEventFuzzyStep
	}

	for {
		simJob.Start = eventTime
		if IsOkToRun(clone, simJob) {
			break
		}

		var result SimResult
		eventTime, result = SimulateEvents(clone, SimNextEvent, time.Time{}, fuzzy)
		if result.Error {
			return time.Time{}, fmt.Errorf("scheduler: %s: simulation error: %w", job.Name, errNoFeasiblePlacement)
		}
		if result.NoEvent {
			return time.Time{}, fmt.Errorf("scheduler: %s: %w", job.Name, errCalendarExhausted)
		}
	}

	job.Start = eventTime
	job.End = eventTime.Add(job.Duration)
	job.EstStartTime = eventTime
	return eventTime, nil
}

// AddJobToCalendar reserves job's place in the calendar once CalcRunTime
// has found a start time, inserting its RUN and END events so later
// CalcRunTime calls for other jobs see it as a committed future
// consumer, matching add_job_to_calendar's pairing of create_event +
// add_event for both boundaries.
func AddJobToCalendar(u *Universe, job *Job) error {
	start, err := CalcRunTime(u, job)
	if err != nil {
		return err
	}
	u.Calendar.Add(&Event{Time: start, Type: EventRun, Ptr: job})
	u.Calendar.Add(&Event{Time: job.End, Type: EventEnd, Ptr: job})
	if job.Accrue == AccrueInitial {
		job.Accrue = AccrueEligible
	}
	return nil
}

// ShouldBackfillWithJob decides whether job is eligible to be given a
// calendar reservation during this cycle's backfill pass, grounded on
// should_backfill_with_job: only the configured number of top jobs get a
// calendar slot, and only when backfilling is enabled at all.
func ShouldBackfillWithJob(u *Universe, job *Job, topJobsSoFar int) bool {
	if !u.Policy.BackfillEnabled {
		return false
	}
	if topJobsSoFar >= u.Policy.NumTopJobs {
		return false
	}
	return job.IsCandidate()
}
