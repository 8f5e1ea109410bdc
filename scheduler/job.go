package scheduler

import "time"

// JobState mirrors the original's job states relevant to scheduling
// decisions: Queued jobs are candidates, Running ones occupy resources,
// Exiting/Finished ones are winding down or gone. Held/Waiting jobs are
// not schedulable but are kept in the universe for reporting.
type JobState uint8

const (
	JobQueued JobState = iota
	JobRunning
	JobExiting
	JobFinished
	JobHeld
	JobWaiting
)

func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobRunning:
		return "running"
	case JobExiting:
		return "exiting"
	case JobFinished:
		return "finished"
	case JobHeld:
		return "held"
	case JobWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// AccrueType tracks eligible-time accounting for fairshare/limits,
// mirroring the original's accrue type: a job starts as Initial, a queued job accrues
// either as ineligible (can never run as submitted) or eligible (blocked
// only by current load), and a running job accrues run time.
type AccrueType uint8

const (
	AccrueInitial AccrueType = iota
	AccrueIneligible
	AccrueEligible
	AccrueRunning
)

// Job is one schedulable unit: a single job, or one materialized subjob
// of a job array. Array subjobs share the parent's ArrayID and are
// created on demand by Universe.MaterializeSubjob.
type Job struct {
	Name     string
	Rank     int // stable submission-order tiebreaker, assigned at intake
	Queue    string
	State    JobState
	Priority int

	ArrayID    string // "" for a non-array job
	SubjobIdx  int
	Materialized bool

	Resources []ResourceRequest
	Duration  time.Duration

	SubmitTime time.Time
	Eligible   time.Time // time the job first became run-eligible
	Accrue     AccrueType

	// Start/End are set once a placement (real or simulated) is known;
	// they are the fields calc_run_time populates on resresv.
	Start time.Time
	End   time.Time

	// EstStartTime is the scheduler's best current guess, exposed to
	// qstat -T the way the original surfaces est_start_time; it can be
	// revised cycle to cycle without being a commitment the way Start is
	// once a job actually begins running.
	EstStartTime time.Time

	// AssignedNodes is the node selection the scheduler committed to.
	AssignedNodes []string

	Preemptible bool

	// QRUNTarget marks the single job a CmdScheduleJob cycle was asked to
	// consider (qrun), placing it ahead of every other tier in next_job's
	// cascade.
	QRUNTarget bool
	// InRunningReservation marks a job belonging to a reservation whose
	// window is currently active; such jobs run ahead of ordinary queued
	// work so a confirmed reservation's occupants aren't starved by the
	// rest of the system.
	InRunningReservation bool
	// ExpressClass marks a job submitted to an express queue: it
	// preempts ordinary running jobs and is ordered ahead of them.
	ExpressClass bool
	// PreemptedAwaitingResume marks a job FindAndPreemptJobs pushed back
	// to Queued that is entitled to resume ahead of jobs that never ran,
	// per enforce_prmptd_job_resumption.
	PreemptedAwaitingResume bool
	// Starving marks a job that has waited longer than the configured
	// starve_threshold; it jumps the normal ordering so eligibility
	// doesn't depend solely on priority and fairshare.
	Starving bool
	// Suspended marks a running job parked mid-execution (the
	// JOB_SUBSTATE_SUSPEND analogue); it is still a State of JobRunning
	// but is reconsidered for resumption below starving jobs.
	Suspended bool

	// CanNotRun is a per-cycle flag set by strict_fifo/strict_ordering/
	// starvation rules: it excludes j from this cycle's consideration
	// without the permanence of CanNeverRun. Cleared at the start of
	// each cycle.
	CanNotRun bool
	// CanNeverRun is set once is_ok_to_run reports status NEVER_RUN; it
	// is sticky across cycles until the job's request or the cluster
	// shape changes enough that a future is_ok_to_run reevaluates it.
	CanNeverRun bool
}

// IsCandidate reports whether j should be considered by the ordering
// cascade at all this cycle: queued (and not transiently or permanently
// excluded), or a running job parked as Suspended/PreemptedAwaitingResume
// and therefore still needing a scheduling decision.
func (j *Job) IsCandidate() bool {
	if j.CanNeverRun || j.CanNotRun {
		return false
	}
	switch j.State {
	case JobQueued:
		return true
	case JobRunning:
		return j.Suspended || j.PreemptedAwaitingResume
	default:
		return false
	}
}

// Request returns the amount of def that j requests, or 0 if it requests
// none. Only the first entry naming def is read: a job names each
// resource at most once, chunked/array jobs' per-chunk amounts being
// represented here as a flat already-aggregated list.
func (j *Job) Request(def *ResourceDef) float64 {
	for _, r := range j.Resources {
		if r.Def == def {
			return r.Amount
		}
	}
	return 0
}
