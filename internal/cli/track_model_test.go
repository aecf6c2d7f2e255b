package cli

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/teatest"
	"github.com/alexanderramin/tally/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrackDriver(t *testing.T, f *cliFixture, task string, categoryID *string) *teatest.Driver {
	t.Helper()
	d := teatest.New(t, newTrackModel(context.Background(), f.app, task, categoryID), teatest.WithSize(120, 40))
	d.DrainInit()
	return d
}

func (f *cliFixture) tick(d *teatest.Driver, step time.Duration) {
	f.clock.Advance(step)
	d.Send(tickMsg(f.clock.Now()))
}

func TestTrackModel_EmptyState(t *testing.T) {
	f := testApp(t)
	d := newTrackDriver(t, f, "", nil)

	assert.True(t, d.ViewContains("No timers", "$0.00"))
}

func TestTrackModel_StartFromInput(t *testing.T) {
	f := testApp(t)
	c := f.category(t, "Consulting", 6000)
	d := newTrackDriver(t, f, "", nil)

	d.Press("n")
	d.Type("write-report")
	d.Press("tab")
	assert.True(t, d.ViewContains("Consulting", "$60.00/h"), "tab selects the first category")
	d.Press("enter")

	snap := f.app.Tracking.Snapshot()
	require.Len(t, snap.Timers, 1)
	assert.Equal(t, "write-report", snap.Timers[0].TaskID)
	require.NotNil(t, snap.Timers[0].CategoryID)
	assert.Equal(t, c.ID, *snap.Timers[0].CategoryID)

	f.tick(d, 30*time.Minute)
	assert.True(t, d.ViewContains("write-report", "Running", "0:30:00", "$30.00"))
}

func TestTrackModel_TabCyclesBackToNoCategory(t *testing.T) {
	f := testApp(t)
	f.category(t, "Consulting", 6000)
	d := newTrackDriver(t, f, "", nil)

	d.Press("n", "tab", "tab")
	assert.True(t, d.ViewContains("no category"))
}

func TestTrackModel_EscCancelsInput(t *testing.T) {
	f := testApp(t)
	d := newTrackDriver(t, f, "", nil)

	d.Press("n")
	d.Type("draft")
	d.Press("esc")
	d.Press("enter")

	assert.Empty(t, f.app.Tracking.Snapshot().Timers)
	assert.False(t, d.Quitting)
}

func TestTrackModel_PauseResumeStop(t *testing.T) {
	f := testApp(t)
	c := f.category(t, "Consulting", 6000)
	d := newTrackDriver(t, f, "write-report", &c.ID)

	f.tick(d, time.Hour)
	d.Press(" ")
	assert.True(t, d.ViewContains("Paused"))

	f.tick(d, time.Hour)
	assert.True(t, d.ViewContains("1:00:00"), "paused time does not accrue")

	d.Press(" ")
	assert.True(t, d.ViewContains("Running"))

	d.Press("s")
	assert.True(t, d.ViewContains("Stopped write-report: 1h, $60.00"))

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.app.Tracking.Flush(flushCtx))

	l, err := f.app.Ledger.Get(context.Background(), testutil.TestUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), l.CurrentBalanceCents)
}

func TestTrackModel_ConcurrentTimersAndSelection(t *testing.T) {
	f := testApp(t)
	d := newTrackDriver(t, f, "alpha", nil)

	d.Press("n")
	d.Type("beta")
	d.Press("enter")
	require.Len(t, f.app.Tracking.Snapshot().Timers, 2)

	// Timers are ordered by task; move to beta and pause only it.
	d.Press("down", " ")

	views := map[string]domain.TimerState{}
	for _, v := range f.app.Tracking.Snapshot().Timers {
		views[v.TaskID] = v.State
	}
	assert.Equal(t, domain.TimerRunning, views["alpha"])
	assert.Equal(t, domain.TimerPaused, views["beta"])
}

func TestTrackModel_DiscardDropsTimer(t *testing.T) {
	f := testApp(t)
	d := newTrackDriver(t, f, "scratch", nil)
	f.tick(d, 5*time.Minute)

	d.Press("x")
	assert.True(t, d.ViewContains("Discarded scratch"))
	assert.Empty(t, f.app.Tracking.Snapshot().Timers)
}

func TestTrackModel_DuplicateStartAndStopAreHarmless(t *testing.T) {
	f := testApp(t)
	d := newTrackDriver(t, f, "alpha", nil)

	d.Press("n")
	d.Type("alpha")
	d.Press("enter")

	// A second start on a live timer is a no-op, not an error.
	assert.Len(t, f.app.Tracking.Snapshot().Timers, 1)

	d.Press("s")
	d.Press("s")
	assert.False(t, d.Quitting)
}

func TestTrackModel_RecoveryBannerResume(t *testing.T) {
	f := testApp(t)
	c := f.category(t, "Consulting", 6000)
	rec := seedOrphan(t, f, "crashed", c, 1800)
	d := newTrackDriver(t, f, "", nil)

	assert.True(t, d.ViewContains("Unfinished session", "crashed", "30m saved"))

	d.Press("r")
	assert.False(t, d.ViewContains("Unfinished session"))
	assert.True(t, d.ViewContains("crashed", "Paused", "0:30:00"))

	st := f.app.Tracking.SyncStatus("crashed")
	assert.Equal(t, rec.ID, st.SessionID, "resumed timer keeps writing to the recovered record")
}

func TestTrackModel_RecoveryBannerFinalizeAndLater(t *testing.T) {
	f := testApp(t)
	c := f.category(t, "Consulting", 6000)
	seedOrphan(t, f, "first", c, 3600)
	seedOrphan(t, f, "second", c, 600)
	d := newTrackDriver(t, f, "", nil)

	assert.True(t, d.ViewContains("2 left"))
	d.Press("f")
	assert.True(t, d.ViewContains("Finalized"))
	assert.True(t, d.ViewContains("1 left"))

	d.Press("l")
	assert.False(t, d.ViewContains("Unfinished session"))
	assert.True(t, d.ViewContains("tally recover"))

	active, err := f.app.Sessions.ListActive(context.Background(), testutil.TestUserID)
	require.NoError(t, err)
	assert.Len(t, active, 1, "the skipped session stays for a later run")
}

func TestTrackModel_QuitPausesRunningTimers(t *testing.T) {
	f := testApp(t)
	d := newTrackDriver(t, f, "alpha", nil)
	f.tick(d, 10*time.Minute)

	d.Press("q")
	require.True(t, d.Quitting)

	snap := f.app.Tracking.Snapshot()
	require.Len(t, snap.Timers, 1)
	assert.Equal(t, domain.TimerPaused, snap.Timers[0].State)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.app.Tracking.Flush(flushCtx))

	active, err := f.app.Sessions.ListActive(context.Background(), testutil.TestUserID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(600), active[0].DurationSeconds, "quitting checkpoints the exact duration")
}

func TestTrackModel_QuitKeyTypedIntoInput(t *testing.T) {
	f := testApp(t)
	d := newTrackDriver(t, f, "", nil)

	d.Press("n")
	d.Type("quarterly")
	assert.False(t, d.Quitting)

	d.Press("ctrl+c")
	assert.True(t, d.Quitting)
}
