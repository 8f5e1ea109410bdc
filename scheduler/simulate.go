package scheduler

import "time"

// SimulateCmd selects how far SimulateEvents should advance the
// simulated clock, grounded on simulate.c's schd_simulate_cmd enum.
type SimulateCmd uint8

const (
	SimNone SimulateCmd = iota
	// SimNextEvent advances to the next calendar event plus an optional
	// fuzzy offset (policy.BackfillFuzzyTime), matching SIM_NEXT_EVENT.
	SimNextEvent
	// SimTime advances straight to a caller-given absolute time,
	// matching SIM_TIME.
	SimTime
)

// SimResult reports what happened during a SimulateEvents call: whether
// any events fired, of what kinds, or whether the simulation ran out of
// calendar (no more events) or hit an unrecoverable error.
type SimResult struct {
	Fired     EventMask
	NoEvent   bool
	Error     bool
}

// perform applies e's effect to u: a RUN event transitions its job/
// reservation into the running state and marks its resources consumed; an
// END event reverses that. Returns false on an inconsistency (the event's
// target vanished from the universe), matching perform_event's failure
// return.
func perform(u *Universe, e *Event) bool {
	switch ptr := e.Ptr.(type) {
	case *Job:
		switch e.Type {
		case EventRun:
			ptr.State = JobRunning
			ptr.Accrue = AccrueRunning
		case EventEnd:
			ptr.State = JobFinished
		}
		return true
	case *Reservation:
		switch e.Type {
		case EventRun:
			ptr.State = ReservationRunning
		case EventEnd:
			ptr.State = ReservationFinished
		}
		return true
	default:
		return false
	}
}

// SimulateEvents advances u's calendar according to cmd/arg, applying
// every event up to and including the target time, and reports which
// event kinds fired. Grounded on simulate_events directly, including its
// early-exit cases (no calendar, disabled leading event skipped via one
// forced advance, SIM_NONE being a no-op).
func SimulateEvents(u *Universe, cmd SimulateCmd, targetTime time.Time, nextEventOffset time.Duration) (time.Time, SimResult) {
	if u.Calendar == nil {
		return u.ServerTime, SimResult{NoEvent: true}
	}
	if cmd == SimNone {
		return u.Calendar.CurrentTime, SimResult{NoEvent: true}
	}

	event := u.Calendar.NextEvent(false)
	if event == nil {
		return u.Calendar.CurrentTime, SimResult{NoEvent: true}
	}
	if event.Disabled {
		event = u.Calendar.NextEvent(true)
	}
	if event == nil {
		return u.Calendar.CurrentTime, SimResult{NoEvent: true}
	}

	curSimTime := u.Calendar.CurrentTime

	var eventTime time.Time
	switch cmd {
	case SimNextEvent:
		eventTime = event.Time.Add(nextEventOffset)
	case SimTime:
		eventTime = targetTime
	}

	var fired EventMask
	for event != nil && !event.Time.After(eventTime) {
		curSimTime = event.Time
		u.Calendar.CurrentTime = curSimTime
		if !perform(u, event) {
			return curSimTime, SimResult{Error: true}
		}
		fired |= event.Type.mask()
		event = u.Calendar.NextEvent(true)
	}

	if cmd == SimTime {
		curSimTime = eventTime
		u.Calendar.CurrentTime = eventTime
	}

	return curSimTime, SimResult{Fired: fired}
}

// SimulateResmin computes, for each consumable resource in reslist, the
// running maximum amount that will be assigned between now and end across
// every RUN/END event in the calendar (excluding the exclude reservation/
// job, if any, and restricted to the ranks in include when non-nil) — i.e. the tightest
// future bottleneck a new placement must respect. Grounded on
// simulate_resmin directly, including its fast path: when no RUN event
// exists before end, nothing can ever reduce availability, so the input
// list is returned unchanged.
func SimulateResmin(u *Universe, reslist ResourceList, end time.Time, include map[int]bool, exclude EventPtr) ResourceList {
	if len(reslist) == 0 {
		return reslist
	}
	if u.Calendar == nil {
		return reslist
	}
	if !u.Calendar.ExistsRunEvent(end) {
		return reslist
	}

	running := reslist.Clone()
	resmin := reslist.Clone()

	u.Calendar.Walk(end, MaskRun|MaskEnd, func(e *Event) {
		if include != nil && !include[e.Ptr.eventRank()] {
			return
		}
		if exclude != nil && e.Ptr == exclude {
			return
		}
		reqs := requestsOf(e.Ptr)
		for _, req := range reqs {
			cur := running.FindOrAlloc(req.Def)
			if e.Type == EventRun {
				cur.Assigned += req.Amount
			} else {
				cur.Assigned -= req.Amount
			}
			min := resmin.FindOrAlloc(req.Def)
			if cur.Assigned > min.Assigned {
				min.Assigned = cur.Assigned
			}
		}
	})

	return resmin
}

func requestsOf(ptr EventPtr) []ResourceRequest {
	switch v := ptr.(type) {
	case *Job:
		return v.Resources
	case *Reservation:
		return v.Resources
	default:
		return nil
	}
}
