package scheduler

import "sort"

// NextJob returns the next job to consider this cycle, or nil when none
// remain. It implements next_job's fixed priority cascade directly:
// (a) the QRUN target, once; (b) jobs inside a running reservation;
// (c) express-class jobs; (d) preempted jobs awaiting resume;
// (e) starving jobs; (f) suspended jobs; (g) everything else, ordered by
// the configured discipline. The first non-empty tier wins outright —
// a single low-priority express job is still picked before every normal
// job, no matter how high their priority.
func NextJob(u *Universe, considered map[string]bool) *Job {
	candidates := make([]*Job, 0, len(u.Jobs))
	for _, j := range u.Jobs {
		if j.IsCandidate() && !considered[j.Name] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	tiers := []func(*Job) bool{
		func(j *Job) bool { return j.QRUNTarget },
		func(j *Job) bool { return j.InRunningReservation },
		func(j *Job) bool { return j.ExpressClass },
		func(j *Job) bool { return j.PreemptedAwaitingResume },
		func(j *Job) bool { return j.Starving },
		func(j *Job) bool { return j.Suspended },
	}
	for _, match := range tiers {
		if j := bestOf(filterJobs(candidates, match)); j != nil {
			return j
		}
	}

	return pickNormal(u, candidates)
}

func filterJobs(jobs []*Job, match func(*Job) bool) []*Job {
	out := make([]*Job, 0, len(jobs))
	for _, j := range jobs {
		if match(j) {
			out = append(out, j)
		}
	}
	return out
}

// bestOf returns the highest-ordered job of tier by jobOrderLess, or nil
// for an empty tier.
func bestOf(tier []*Job) *Job {
	if len(tier) == 0 {
		return nil
	}
	sort.SliceStable(tier, func(i, k int) bool {
		return jobOrderLess(tier[i], tier[k])
	})
	return tier[0]
}

// pickNormal orders tier (g) according to the configured discipline:
// round_robin walks queues in turn, by_queue exhausts one queue before
// moving to the next, and flat (the default) is a single system-wide
// sort, matching main_sched_loop's three normal-job disciplines.
func pickNormal(u *Universe, candidates []*Job) *Job {
	switch u.Policy.discipline() {
	case DisciplineByQueue:
		return pickByQueue(u, candidates)
	case DisciplineRoundRobin:
		return pickRoundRobin(u, candidates)
	default:
		return bestOf(candidates)
	}
}

func (p *Policy) discipline() SchedulingDiscipline {
	if p == nil {
		return DisciplineFlat
	}
	return p.Discipline
}

// queueOrder returns the queue priority order to walk: the configured
// QueueOrder first, then any queue seen among candidates but not
// explicitly listed, in first-seen order.
func queueOrder(u *Universe, candidates []*Job) []string {
	var configured []string
	if u.Policy != nil {
		configured = u.Policy.QueueOrder
	}
	seen := make(map[string]bool, len(configured))
	order := append([]string(nil), configured...)
	for _, q := range order {
		seen[q] = true
	}
	for _, j := range candidates {
		if !seen[j.Queue] {
			seen[j.Queue] = true
			order = append(order, j.Queue)
		}
	}
	return order
}

func pickByQueue(u *Universe, candidates []*Job) *Job {
	for _, q := range queueOrder(u, candidates) {
		tier := filterJobs(candidates, func(j *Job) bool { return j.Queue == q })
		if best := bestOf(tier); best != nil {
			return best
		}
	}
	return bestOf(candidates)
}

func pickRoundRobin(u *Universe, candidates []*Job) *Job {
	order := queueOrder(u, candidates)
	if len(order) == 0 {
		return bestOf(candidates)
	}
	for i := 0; i < len(order); i++ {
		idx := (u.rrQueue + i) % len(order)
		tier := filterJobs(candidates, func(j *Job) bool { return j.Queue == order[idx] })
		if best := bestOf(tier); best != nil {
			u.rrQueue = (idx + 1) % len(order)
			return best
		}
	}
	return bestOf(candidates)
}

// jobOrderLess is the tiebreak within any single tier: higher Priority
// first, then AccrueEligible jobs ahead of AccrueIneligible ones (a job
// that's only blocked by current load is worth trying again before one
// that structurally cannot run), then earliest SubmitTime, then Rank as
// a final stable tiebreaker.
func jobOrderLess(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	ae, be := a.Accrue == AccrueEligible, b.Accrue == AccrueEligible
	if ae != be {
		return ae
	}
	if !a.SubmitTime.Equal(b.SubmitTime) {
		return a.SubmitTime.Before(b.SubmitTime)
	}
	return a.Rank < b.Rank
}
