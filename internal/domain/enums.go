package domain

type TimerState string

const (
	TimerIdle    TimerState = "idle"
	TimerRunning TimerState = "running"
	TimerPaused  TimerState = "paused"
	TimerStopped TimerState = "stopped"
)

// Live reports whether a timer in this state is still accruing or can resume.
func (s TimerState) Live() bool {
	return s == TimerRunning || s == TimerPaused
}

type SyncState string

const (
	SyncSynced  SyncState = "synced"
	SyncPending SyncState = "pending"
	SyncFailed  SyncState = "failed"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// AllPeriods lists reporting periods from narrowest to widest.
var AllPeriods = []Period{PeriodToday, PeriodWeek, PeriodMonth, PeriodTotal}

// ValidPeriods is the canonical set of accepted period strings.
var ValidPeriods = map[string]bool{
	"today": true, "week": true, "month": true, "total": true,
}
