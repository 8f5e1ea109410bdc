package scheduler

import (
	"testing"
	"time"

	"github.com/shoenig/test/must"
)

func TestCalcRunTime_ImmediatelyFeasible(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u, ncpus := oneNodeUniverse(now, 8)
	u.Calendar.CurrentTime = now
	job := &Job{Name: "j", Rank: 1, Resources: []ResourceRequest{{Def: ncpus, Amount: 4}}, Duration: time.Hour}
	u.Jobs = []*Job{job}

	start, err := CalcRunTime(u, job)
	must.NoError(t, err)
	must.Eq(t, now, start)
}

func TestCalcRunTime_WaitsForRunningJobToEnd(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u, ncpus := oneNodeUniverse(now, 4)
	u.Calendar.CurrentTime = now

	running := &Job{Name: "running", Rank: 1, State: JobRunning, Resources: []ResourceRequest{{Def: ncpus, Amount: 4}}, Start: now, End: now.Add(time.Hour)}
	u.Jobs = []*Job{running}
	u.Calendar.Add(&Event{Time: running.End, Type: EventEnd, Ptr: running})

	job := &Job{Name: "waiting", Rank: 2, Resources: []ResourceRequest{{Def: ncpus, Amount: 4}}, Duration: 30 * time.Minute}
	u.Jobs = append(u.Jobs, job)
	start, err := CalcRunTime(u, job)
	must.NoError(t, err)
	must.True(t, start.Equal(running.End) || start.After(running.End))
	must.Eq(t, JobRunning, running.State)
}

func TestAddJobToCalendar_InsertsRunAndEndEvents(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u, ncpus := oneNodeUniverse(now, 8)
	u.Calendar.CurrentTime = now
	job := &Job{Name: "j", Rank: 1, Resources: []ResourceRequest{{Def: ncpus, Amount: 4}}, Duration: time.Hour, Accrue: AccrueInitial}
	u.Jobs = []*Job{job}

	err := AddJobToCalendar(u, job)
	must.NoError(t, err)
	must.Eq(t, 2, len(u.Calendar.Events()))
	must.Eq(t, AccrueEligible, job.Accrue)
}

// TestCalcRunTime_DoesNotMutateLiveUniverse guards against the simulation
// loop running directly on u: stepping past a running job's end event to
// find room for a backfill candidate must never flip that job's real
// State/Accrue to their post-END values, and must never advance u's own
// calendar clock, since all of that belongs to a clone discarded when
// CalcRunTime returns.
func TestCalcRunTime_DoesNotMutateLiveUniverse(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u, ncpus := oneNodeUniverse(now, 4)
	u.Calendar.CurrentTime = now

	running := &Job{Name: "running", Rank: 1, State: JobRunning, Accrue: AccrueRunning, Resources: []ResourceRequest{{Def: ncpus, Amount: 4}}, Start: now, End: now.Add(time.Hour)}
	u.Jobs = []*Job{running}
	u.Calendar.Add(&Event{Time: running.End, Type: EventEnd, Ptr: running})

	job := &Job{Name: "waiting", Rank: 2, Resources: []ResourceRequest{{Def: ncpus, Amount: 4}}, Duration: 30 * time.Minute}
	u.Jobs = append(u.Jobs, job)

	_, err := CalcRunTime(u, job)
	must.NoError(t, err)

	must.Eq(t, JobRunning, running.State)
	must.Eq(t, AccrueRunning, running.Accrue)
	must.Eq(t, now, u.Calendar.CurrentTime)
	must.Eq(t, 1, len(u.Calendar.Events()))
}

func TestShouldBackfillWithJob_RespectsTopJobsLimit(t *testing.T) {
	u := &Universe{Policy: &Policy{BackfillEnabled: true, NumTopJobs: 1}}
	job := &Job{Name: "j", State: JobQueued}

	must.True(t, ShouldBackfillWithJob(u, job, 0))
	must.False(t, ShouldBackfillWithJob(u, job, 1))
}

func TestShouldBackfillWithJob_DisabledPolicy(t *testing.T) {
	u := &Universe{Policy: &Policy{BackfillEnabled: false, NumTopJobs: 5}}
	job := &Job{Name: "j", State: JobQueued}
	must.False(t, ShouldBackfillWithJob(u, job, 0))
}
