package scheduler

import (
	"sort"
	"time"
)

// Calendar is the sorted list of future timed events a Universe's
// simulation walks through, grounded on simulate.c's event_list/
// timed_event chain. Events at the same instant break ties with END
// before RUN: a job ending at exactly the moment another starts must
// release its resources before the starting job can claim them, matching
// the ordering simulate.c relies on implicitly by inserting END events
// ahead of RUN events at equal timestamps.
type Calendar struct {
	CurrentTime time.Time
	events      []*Event
	cursor      int
}

// NewCalendar returns an empty calendar positioned at now.
func NewCalendar(now time.Time) *Calendar {
	return &Calendar{CurrentTime: now}
}

func eventLess(a, b *Event) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	if a.Type != b.Type {
		return a.Type == EventEnd
	}
	return a.Ptr.eventRank() < b.Ptr.eventRank()
}

// Add inserts e into the calendar in sorted order, matching add_event.
func (c *Calendar) Add(e *Event) {
	i := sort.Search(len(c.events), func(i int) bool { return eventLess(e, c.events[i]) })
	c.events = append(c.events, nil)
	copy(c.events[i+1:], c.events[i:])
	c.events[i] = e
	if i < c.cursor {
		c.cursor++
	}
}

// NextEvent returns the next not-yet-passed, non-disabled event without
// advancing the cursor when advance is false, matching next_event's
// DONT_ADVANCE/ADVANCE modes.
func (c *Calendar) NextEvent(advance bool) *Event {
	idx := c.cursor
	for idx < len(c.events) && c.events[idx].Disabled {
		idx++
	}
	if idx >= len(c.events) {
		return nil
	}
	if advance {
		c.cursor = idx + 1
		for c.cursor < len(c.events) && c.events[c.cursor].Disabled {
			c.cursor++
		}
	}
	return c.events[idx]
}

// ExistsRunEvent reports whether a RUN event exists at or before end,
// matching exists_run_event — used by simulate_resmin as a fast no-op
// check when nothing can reduce available resources in the window.
func (c *Calendar) ExistsRunEvent(end time.Time) bool {
	for _, e := range c.events[c.cursor:] {
		if e.Disabled {
			continue
		}
		if !end.IsZero() && e.Time.After(end) {
			break
		}
		if e.Type == EventRun {
			return true
		}
	}
	return false
}

// Walk invokes fn for each non-disabled event from the cursor onward
// whose type is in mask, stopping (without calling fn) once an event's
// time reaches end (when end is non-zero), matching the find_init_timed_
// event/find_next_timed_event walk simulate_resmin performs.
func (c *Calendar) Walk(end time.Time, mask EventMask, fn func(*Event)) {
	for _, e := range c.events[c.cursor:] {
		if e.Disabled {
			continue
		}
		if !end.IsZero() && !e.Time.Before(end) {
			break
		}
		if e.Type.mask()&mask == 0 {
			continue
		}
		fn(e)
	}
}

// Events returns the full underlying event list, for tests and
// diagnostics.
func (c *Calendar) Events() []*Event {
	return c.events
}
