package scheduler

import (
	"strconv"
	"time"

	"github.com/mitchellh/copystructure"
)

// Policy holds the scheduling policy knobs a cycle consults: whether
// backfilling is enabled, how many top jobs get calendar reservations,
// and the fuzzy time step CalcRunTime passes to SimulateEvents as its
// next-event offset (zero selects nextEventFuzzyStep).
type Policy struct {
	BackfillEnabled   bool
	NumTopJobs        int
	BackfillFuzzyTime time.Duration
	PreemptionEnabled bool

	// Discipline selects how tier (g) ("normal jobs") of next_job's
	// cascade orders work among queues; the empty string is flat,
	// system-wide ordering.
	Discipline SchedulingDiscipline
	// QueueOrder gives queue-priority order for the by_queue and
	// round_robin disciplines. Queues not listed sort after listed ones,
	// in the order they're first encountered among candidates.
	QueueOrder []string
}

// SchedulingDiscipline selects how normal-tier jobs are drawn across
// multiple queues, grounded on sched_config's by_queue/round_robin/fair
// share discipline switch.
type SchedulingDiscipline string

const (
	DisciplineFlat       SchedulingDiscipline = ""
	DisciplineByQueue    SchedulingDiscipline = "by_queue"
	DisciplineRoundRobin SchedulingDiscipline = "round_robin"
)

// Universe is the whole PBS world a scheduling cycle reasons about: every
// queued/running job, every node, every reservation, and the calendar of
// future events derived from them. It is cloned before backfill
// simulation mutates it, the way the original snapshots server_info
// before simulate_events runs, so the live cycle's state is never
// disturbed by a hypothetical future.
type Universe struct {
	ServerTime time.Time
	Policy     *Policy

	Jobs         []*Job
	Nodes        []*Node
	Reservations []*Reservation
	ResourceDefs map[string]*ResourceDef

	Calendar *Calendar

	// rrQueue tracks which queue round_robin discipline should draw from
	// next, advanced each time pickRoundRobin hands out a job.
	rrQueue int
}

// FindJob returns the job with the given rank, or nil.
func (u *Universe) FindJob(rank int) *Job {
	for _, j := range u.Jobs {
		if j.Rank == rank {
			return j
		}
	}
	return nil
}

// FindReservation returns the reservation with the given rank, or nil.
func (u *Universe) FindReservation(rank int) *Reservation {
	for _, r := range u.Reservations {
		if r.Rank == rank {
			return r
		}
	}
	return nil
}

// Clone deep-copies the universe for backfill/what-if simulation via
// copystructure, then re-resolves every Calendar event's EventPtr to the
// corresponding *Job/*Reservation in the clone by rank: copystructure
// walks the object graph structurally, so a Job reachable both from
// Universe.Jobs and from a Calendar Event gets copied twice as two
// distinct pointers unless that's corrected afterward, grounded on the
// spec's "pointer graphs" note in §9 that identity across Jobs/Calendar
// must be preserved through a clone.
func (u *Universe) Clone() (*Universe, error) {
	raw, err := copystructure.Copy(u)
	if err != nil {
		return nil, err
	}
	clone := raw.(*Universe)
	if u.Calendar != nil && clone.Calendar != nil {
		// copystructure skips unexported fields, so the event list and
		// cursor are copied here; each copied Event still points into u
		// until reresolveEventPointers rebinds it.
		clone.Calendar.events = make([]*Event, len(u.Calendar.events))
		for i, e := range u.Calendar.events {
			ev := *e
			clone.Calendar.events[i] = &ev
		}
		clone.Calendar.cursor = u.Calendar.cursor
	}
	clone.rrQueue = u.rrQueue
	clone.reresolveEventPointers()
	return clone, nil
}

func (clone *Universe) reresolveEventPointers() {
	if clone.Calendar == nil {
		return
	}
	for _, e := range clone.Calendar.Events() {
		switch e.Ptr.(type) {
		case *Job:
			if j := clone.FindJob(e.Ptr.eventRank()); j != nil {
				e.Ptr = j
			}
		case *Reservation:
			if r := clone.FindReservation(e.Ptr.eventRank()); r != nil {
				e.Ptr = r
			}
		}
	}
}

// MaterializeSubjob produces the concrete Job for one index of an array
// job the first time it's needed, moving an Initial accrue type to
// Eligible, and appends it to u.Jobs; a later call for the same index
// returns that Job. RunCycle and AddJobToCalendar do not call it: they
// place the Job they are given as it is.
func (u *Universe) MaterializeSubjob(parent *Job, idx int) *Job {
	for _, j := range u.Jobs {
		if j.ArrayID == parent.Name && j.SubjobIdx == idx {
			return j
		}
	}
	sub := *parent
	sub.Name = parent.Name + "[" + strconv.Itoa(idx) + "]"
	sub.ArrayID = parent.Name
	sub.SubjobIdx = idx
	sub.Materialized = true
	sub.Rank = nextRank(u)
	if sub.Accrue == AccrueInitial {
		sub.Accrue = AccrueEligible
	}
	u.Jobs = append(u.Jobs, &sub)
	return &sub
}

func nextRank(u *Universe) int {
	max := 0
	for _, j := range u.Jobs {
		if j.Rank > max {
			max = j.Rank
		}
	}
	for _, r := range u.Reservations {
		if r.Rank > max {
			max = r.Rank
		}
	}
	return max + 1
}
