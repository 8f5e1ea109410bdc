package scheduler

import (
	"sort"

	"github.com/hashicorp/go-set/v3"
)

// PreemptLevel orders how willingly a running job gives up its resources:
// only a job flagged Preemptible by its queue's preemption policy
// (PreemptLevelNormal) is a preemption candidate, candidates are tried
// lowest priority first, and a PreemptLevelNone job is never preempted. Grounded on fifo.c's preempt_count/preempt_level
// bucketing (sinfo->preempt_count[preempt_level(...)]), collapsed here to
// the two buckets this scheduler's Job model actually tracks.
type PreemptLevel uint8

const (
	PreemptLevelNormal PreemptLevel = iota
	PreemptLevelNone
)

func preemptLevel(j *Job) PreemptLevel {
	if j.Preemptible {
		return PreemptLevelNormal
	}
	return PreemptLevelNone
}

// FindAndPreemptJobs looks for a set of currently running jobs whose
// combined freed resources would let needy run: Preemptible running jobs
// are added in ascending priority order until their combined requests
// cover every one of needy's requests. The set is not minimized, and
// resources that are already free are not counted. It returns the set of
// job names chosen for preemption, or nil if all candidates together do
// not suffice. Grounded on
// find_and_preempt_jobs's role in fifo.c's main scheduling loop: called
// only after a normal placement attempt for needy has already failed.
func FindAndPreemptJobs(u *Universe, needy *Job) *set.Set[string] {
	if !u.Policy.PreemptionEnabled {
		return nil
	}

	candidates := make([]*Job, 0, len(u.Jobs))
	for _, j := range u.Jobs {
		if j.State == JobRunning && preemptLevel(j) == PreemptLevelNormal {
			candidates = append(candidates, j)
		}
	}
	sort.SliceStable(candidates, func(i, k int) bool {
		return candidates[i].Priority < candidates[k].Priority
	})

	victims := set.New[string](0)
	freed := ResourceList{}

	for _, c := range candidates {
		for _, req := range needy.Resources {
			fr := freed.FindOrAlloc(req.Def)
			fr.Amount += c.Request(req.Def)
		}
		victims.Insert(c.Name)

		if satisfiesAll(freed, needy.Resources) {
			return victims
		}
	}
	return nil
}

func satisfiesAll(freed ResourceList, reqs []ResourceRequest) bool {
	for _, req := range reqs {
		fr := freed.Find(req.Def)
		if fr == nil || fr.Amount < req.Amount {
			return false
		}
	}
	return true
}

// ApplyPreemption transitions every job named in victims to Queued
// (matching the original requeueing a preempted job rather than deleting
// it) and clears its node assignment, making its resources immediately
// available for the next placement attempt this cycle.
func ApplyPreemption(u *Universe, victims *set.Set[string]) {
	if victims == nil {
		return
	}
	for _, j := range u.Jobs {
		if victims.Contains(j.Name) {
			j.State = JobQueued
			j.AssignedNodes = nil
			j.Accrue = AccrueEligible
			j.PreemptedAwaitingResume = true
		}
	}
}
