package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tally/internal/cli/formatter"
	"github.com/alexanderramin/tally/internal/domain"
	"github.com/alexanderramin/tally/internal/tracker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tickMsg drives the live display and the autosave cadence.
type tickMsg time.Time

type categoriesLoadedMsg struct {
	categories []*domain.Category
	err        error
}

type recoveredMsg struct {
	orphans []*domain.TrackedSession
	err     error
}

// timerResultMsg reports the outcome of a timer operation.
type timerResultMsg struct {
	notice string
	err    error
}

// orphanResolvedMsg reports a resume or finalize of a recovered session.
type orphanResolvedMsg struct {
	sessionID string
	notice    string
	err       error
}

type trackKeyMap struct {
	New      key.Binding
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Stop     key.Binding
	Reset    key.Binding
	Quit     key.Binding
	Submit   key.Binding
	Category key.Binding
	Cancel   key.Binding
	Resume   key.Binding
	Finalize key.Binding
	Later    key.Binding
}

func defaultTrackKeys() trackKeyMap {
	return trackKeyMap{
		New:      key.NewBinding(key.WithKeys("n", "/"), key.WithHelp("n", "new timer")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:   key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause/resume")),
		Stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Reset:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "discard")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		Category: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "category")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Resume:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		Finalize: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "finalize")),
		Later:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "later")),
	}
}

// trackHelp adapts the key map to help.KeyMap for the current mode.
type trackHelp struct {
	short []key.Binding
}

func (h trackHelp) ShortHelp() []key.Binding  { return h.short }
func (h trackHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h.short} }

// trackModel is the live multi-timer screen. Timer operations go straight
// to the tracking service; persistence runs behind it and only surfaces
// through the per-timer sync indicator.
type trackModel struct {
	ctx      context.Context
	app      *App
	keys     trackKeyMap
	help     help.Model
	input    textinput.Model
	entering bool

	categories  []*domain.Category
	categoryIdx int // -1 means no category

	snap     tracker.Snapshot
	cursor   int
	orphans  []*domain.TrackedSession
	notice   string
	isError  bool
	width    int
	quitting bool

	initialTask     string
	initialCategory *string
}

func newTrackModel(ctx context.Context, app *App, task string, categoryID *string) trackModel {
	ti := textinput.New()
	ti.Placeholder = "task name"
	ti.CharLimit = 120
	ti.Prompt = "› "

	return trackModel{
		ctx:             ctx,
		app:             app,
		keys:            defaultTrackKeys(),
		help:            help.New(),
		input:           ti,
		categoryIdx:     -1,
		snap:            app.Tracking.Snapshot(),
		initialTask:     task,
		initialCategory: categoryID,
	}
}

func (m trackModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadCategories(), m.recover(), m.tick()}
	if m.initialTask != "" {
		cmds = append(cmds, m.start(m.initialTask, m.initialCategory))
	}
	return tea.Batch(cmds...)
}

func (m trackModel) tick() tea.Cmd {
	return tea.Tick(m.app.tickInterval(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m trackModel) loadCategories() tea.Cmd {
	return func() tea.Msg {
		cats, err := m.app.Categories.List(m.ctx, m.app.UserID)
		return categoriesLoadedMsg{categories: cats, err: err}
	}
}

func (m trackModel) recover() tea.Cmd {
	return func() tea.Msg {
		orphans, err := m.app.Tracking.Recover(m.ctx)
		if errors.Is(err, domain.ErrAmbiguousRecovery) {
			err = nil
		}
		return recoveredMsg{orphans: orphans, err: err}
	}
}

func (m trackModel) start(task string, categoryID *string) tea.Cmd {
	return func() tea.Msg {
		v, err := m.app.Tracking.StartTimer(m.ctx, task, categoryID)
		if err != nil {
			return timerResultMsg{err: err}
		}
		return timerResultMsg{notice: fmt.Sprintf("Tracking %s at %s", v.TaskID, formatter.Rate(m.app.Currency, v.HourlyRateCents))}
	}
}

func (m trackModel) op(task string, fn func(context.Context, string) (string, error)) tea.Cmd {
	return func() tea.Msg {
		notice, err := fn(m.ctx, task)
		return timerResultMsg{notice: notice, err: err}
	}
}

func (m trackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		m.snap = m.app.Tracking.Tick()
		m.clampCursor()
		return m, m.tick()

	case categoriesLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.categories = msg.categories
		return m, nil

	case recoveredMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.orphans = msg.orphans
		return m, nil

	case timerResultMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setNotice(msg.notice)
		}
		m.snap = m.app.Tracking.Snapshot()
		m.clampCursor()
		return m, nil

	case orphanResolvedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.dropOrphan(msg.sessionID)
		m.setNotice(msg.notice)
		m.snap = m.app.Tracking.Snapshot()
		return m, nil

	case tea.KeyMsg:
		if m.entering {
			return m.updateInput(msg)
		}
		if len(m.orphans) > 0 {
			if next, cmd, handled := m.updateRecovery(msg); handled {
				return next, cmd
			}
		}
		return m.updateList(msg)
	}

	if m.entering {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m trackModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.entering = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	case key.Matches(msg, m.keys.Category):
		m.categoryIdx++
		if m.categoryIdx >= len(m.categories) {
			m.categoryIdx = -1
		}
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		task := strings.TrimSpace(m.input.Value())
		if task == "" {
			return m, nil
		}
		m.entering = false
		m.input.Blur()
		m.input.SetValue("")
		return m, m.start(task, m.selectedCategoryID())
	case msg.Type == tea.KeyCtrlC:
		return m.quit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m trackModel) updateRecovery(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	o := m.orphans[0]
	switch {
	case key.Matches(msg, m.keys.Resume):
		return m, func() tea.Msg {
			v, err := m.app.Tracking.ResumeRecovered(m.ctx, o.ID)
			return orphanResolvedMsg{
				sessionID: o.ID,
				notice:    fmt.Sprintf("Recovered %s (paused at %s)", v.TaskID, formatter.Clock(v.Elapsed)),
				err:       err,
			}
		}, true
	case key.Matches(msg, m.keys.Finalize):
		return m, func() tea.Msg {
			rec, err := m.app.Tracking.FinalizeRecovered(m.ctx, o.ID)
			if err != nil {
				return orphanResolvedMsg{sessionID: o.ID, err: err}
			}
			return orphanResolvedMsg{
				sessionID: o.ID,
				notice:    fmt.Sprintf("Finalized %s: %s", rec.TaskID, m.app.money(rec.EarningsCents)),
			}
		}, true
	case key.Matches(msg, m.keys.Later):
		m.dropOrphan(o.ID)
		m.setNotice(fmt.Sprintf("Left %s for later (tally recover)", o.TaskID))
		return m, nil, true
	}
	return m, nil, false
}

func (m trackModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.New):
		m.entering = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Timers)-1 {
			m.cursor++
		}
		return m, nil
	}

	v, ok := m.selected()
	if !ok {
		return m, nil
	}
	tracking := m.app.Tracking
	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m, m.op(v.TaskID, func(ctx context.Context, task string) (string, error) {
			if v.State == domain.TimerPaused {
				_, err := tracking.ResumeTimer(ctx, task)
				return "Resumed " + task, err
			}
			_, err := tracking.PauseTimer(ctx, task)
			return "Paused " + task, err
		})
	case key.Matches(msg, m.keys.Stop):
		return m, m.op(v.TaskID, func(ctx context.Context, task string) (string, error) {
			res, err := tracking.StopTimer(ctx, task)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Stopped %s: %s, %s", task,
				formatter.FormatSeconds(res.DurationSeconds), m.app.money(res.EarningsCents)), nil
		})
	case key.Matches(msg, m.keys.Reset):
		return m, m.op(v.TaskID, func(ctx context.Context, task string) (string, error) {
			return "Discarded " + task, tracking.ResetTimer(ctx, task)
		})
	}
	return m, nil
}

// quit pauses running timers so their final duration is checkpointed; the
// next run offers them for recovery.
func (m trackModel) quit() (tea.Model, tea.Cmd) {
	for _, v := range m.snap.Timers {
		if v.State == domain.TimerRunning {
			if _, err := m.app.Tracking.PauseTimer(m.ctx, v.TaskID); err != nil {
				m.setError(err)
			}
		}
	}
	m.quitting = true
	return m, tea.Quit
}

func (m trackModel) selected() (tracker.TimerView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Timers) {
		return tracker.TimerView{}, false
	}
	return m.snap.Timers[m.cursor], true
}

func (m trackModel) selectedCategoryID() *string {
	if m.categoryIdx < 0 || m.categoryIdx >= len(m.categories) {
		return nil
	}
	id := m.categories[m.categoryIdx].ID
	return &id
}

func (m *trackModel) clampCursor() {
	if m.cursor >= len(m.snap.Timers) {
		m.cursor = len(m.snap.Timers) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *trackModel) dropOrphan(id string) {
	kept := m.orphans[:0]
	for _, o := range m.orphans {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	m.orphans = kept
}

func (m *trackModel) setNotice(s string) {
	m.notice = s
	m.isError = false
}

func (m *trackModel) setError(err error) {
	m.notice = err.Error()
	m.isError = true
}

func (m trackModel) categoryName(id *string) string {
	if id == nil {
		return formatter.Dim("–")
	}
	for _, c := range m.categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return formatter.Dim("–")
}

func (m trackModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	header := fmt.Sprintf("%s  %s live  ·  %d running",
		formatter.StyleHeader.Render("TALLY"),
		formatter.Bold(m.app.money(m.snap.TotalEarningsCents)),
		m.snap.TotalActiveTimers)
	b.WriteString(header + "\n\n")

	if len(m.orphans) > 0 {
		o := m.orphans[0]
		banner := fmt.Sprintf("Unfinished session %s · %s saved %s ago · %s",
			formatter.Bold(o.TaskID),
			formatter.FormatSeconds(o.DurationSeconds),
			formatter.FormatSeconds(int64(m.app.now().Sub(o.UpdatedAt)/time.Second)),
			formatter.Dim(fmt.Sprintf("r resume · f finalize · l later (%d left)", len(m.orphans))))
		b.WriteString(formatter.StyleYellow.Render("! ") + banner + "\n\n")
	}

	if len(m.snap.Timers) == 0 {
		b.WriteString(formatter.Dim("No timers. Press n to start one.") + "\n")
	} else {
		b.WriteString(m.timerTable())
	}
	b.WriteString("\n")

	if m.entering {
		cat := formatter.Dim("no category")
		if id := m.selectedCategoryID(); id != nil {
			c := m.categories[m.categoryIdx]
			cat = c.Name + " " + formatter.Rate(m.app.Currency, c.HourlyRateCents)
		}
		b.WriteString(m.input.View() + "  " + cat + "\n")
	}

	if m.notice != "" {
		style := formatter.StyleDim
		if m.isError {
			style = formatter.StyleRed
		}
		b.WriteString(style.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + m.help.View(trackHelp{short: m.shortHelp()}))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m trackModel) timerTable() string {
	rows := make([][]string, 0, len(m.snap.Timers))
	for i, v := range m.snap.Timers {
		cursor := "  "
		if i == m.cursor {
			cursor = formatter.StyleHeader.Render("▸ ")
		}
		st := m.app.Tracking.SyncStatus(v.TaskID)
		rows = append(rows, []string{
			cursor + v.TaskID,
			formatter.TimerStateLabel(v.State),
			formatter.Clock(v.Elapsed),
			m.app.money(v.EarningsCents),
			m.categoryName(v.CategoryID),
			formatter.SyncIndicator(st.State, st.Attempts),
		})
	}
	return formatter.Table{
		Headers: []string{"  TASK", "STATE", "ELAPSED", "EARNED", "CATEGORY", "SYNC"},
		Rows:    rows,
		Right:   map[int]bool{2: true, 3: true},
	}.Render()
}

func (m trackModel) shortHelp() []key.Binding {
	k := m.keys
	if m.entering {
		return []key.Binding{k.Submit, k.Category, k.Cancel}
	}
	bindings := []key.Binding{k.New, k.Toggle, k.Stop, k.Reset, k.Up, k.Down, k.Quit}
	if len(m.orphans) > 0 {
		bindings = append([]key.Binding{k.Resume, k.Finalize, k.Later}, bindings...)
	}
	return bindings
}
