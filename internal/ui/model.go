// Package ui is the interactive terminal front end.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cwbudde/echotrace/internal/report"
	"github.com/cwbudde/echotrace/sonar"
)

// Chirp retuning step in Hz.
const tuneStep = 500.0

// Controller is the part of the transport the UI drives.
type Controller interface {
	Start() error
	Stop() error
	Running() bool
	Reconfigure(f0, f1 float64) error
	Params() sonar.Params
	Stats() sonar.TransportStats
}

// shared holds state referenced by every copy of the value-receiver model.
type shared struct {
	ctrl    Controller
	history *report.History
	last    *sonar.Measurement
	periods uint64
}

// Model is the root Bubble Tea model.
type Model struct {
	width  int
	height int

	status    string
	statusErr bool
	exportDir string
	now       func() time.Time

	shared *shared
}

// Option configures a Model.
type Option func(*Model)

// WithExportDir sets where CSV files and snapshots are written.
func WithExportDir(dir string) Option {
	return func(m *Model) {
		m.exportDir = dir
	}
}

// WithClock replaces time.Now for export file names.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

// New creates a model driving ctrl and recording into history.
func New(ctrl Controller, history *report.History, opts ...Option) Model {
	m := Model{
		status:    "stopped, press s to start",
		exportDir: ".",
		now:       time.Now,
		shared: &shared{
			ctrl:    ctrl,
			history: history,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case MeasurementMsg:
		meas := sonar.Measurement(msg)
		m.shared.last = &meas
		m.shared.periods++
		m.shared.history.Add(meas.Time, meas.Result)
		return m, nil

	case StatusMsg:
		m.setStatus(string(msg), false)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if err := m.shared.ctrl.Stop(); err != nil {
			m.setStatus(err.Error(), true)
		}
		return m, tea.Quit

	case "s", "S", " ":
		m.toggle()

	case "e", "E":
		path, err := report.SaveCSV(m.exportDir, m.shared.history, m.now())
		if err != nil {
			m.setStatus(err.Error(), true)
		} else {
			m.setStatus("exported "+path, false)
		}

	case "p", "P":
		path, err := report.SaveSnapshot(m.exportDir, m.snapshot(), m.now())
		if err != nil {
			m.setStatus(err.Error(), true)
		} else {
			m.setStatus("saved "+path, false)
		}

	case "[":
		m.retune(-tuneStep, 0)
	case "]":
		m.retune(tuneStep, 0)
	case "{":
		m.retune(0, -tuneStep)
	case "}":
		m.retune(0, tuneStep)
	}

	return m, nil
}

func (m *Model) toggle() {
	ctrl := m.shared.ctrl
	if ctrl.Running() {
		if err := ctrl.Stop(); err != nil {
			m.setStatus(err.Error(), true)
			return
		}
		m.setStatus("stopped", false)
		return
	}
	if err := ctrl.Start(); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus("listening", false)
}

func (m *Model) retune(df0, df1 float64) {
	p := m.shared.ctrl.Params()
	f0, f1 := p.StartFreq+df0, p.EndFreq+df1
	if err := m.shared.ctrl.Reconfigure(f0, f1); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("chirp %.0f-%.0f Hz", f0, f1), false)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) snapshot() report.Snapshot {
	s := report.Snapshot{
		Time:        m.now(),
		DirectIndex: -1,
		EchoIndex:   -1,
		Distances:   m.shared.history.Distances(),
		HistorySize: m.shared.history.Cap(),
	}
	if last := m.shared.last; last != nil {
		s.Correlation = last.Result.Magnitude
		s.DirectIndex = last.Result.DirectIndex
		s.EchoIndex = last.Result.EchoIndex
	}
	return s
}

// DistanceText formats the latest distance the way the header shows it.
func DistanceText(meas *sonar.Measurement) string {
	if meas == nil || meas.Result.NoEcho() {
		return "Distance: --"
	}
	return fmt.Sprintf("Distance: %.1f cm", meas.Result.Distance*100)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing EchoTrace..."
	}

	inner := max(m.width-6, 10)
	ctrl := m.shared.ctrl
	p := ctrl.Params()

	state := StyleStopped.Render("[STOPPED]")
	if ctrl.Running() {
		state = StyleRunning.Render("[RUNNING]")
	}
	title := StyleTitleBar.Width(m.width).Render(
		fmt.Sprintf("EchoTrace  %s  chirp %.0f-%.0f Hz, %.0f ms every %.0f ms",
			state, p.StartFreq, p.EndFreq, p.Duration*1000, p.Interval*1000))

	distance := StyleDistance.Render(DistanceText(m.shared.last))

	var corr string
	if last := m.shared.last; last != nil && len(last.Result.Magnitude) > 0 {
		env := Envelope(last.Result.Magnitude, inner)
		corr = StyleCorrelation.Render(Sparkline(env, 0, last.Result.Peak))
	}
	corrPanel := StylePanel.Width(inner + 2).Render(
		StylePanelTitle.Render("correlation") + "\n" + corr)

	trend := StyleTrend.Render(Sparkline(Envelope(m.shared.history.Distances(), inner), 0, 2))
	trendPanel := StylePanel.Width(inner + 2).Render(
		StylePanelTitle.Render("distance trend, 0-2 m") + "\n" + trend)

	st := ctrl.Stats()
	statusText := m.status
	if m.statusErr {
		statusText = StyleError.Render(statusText)
	}
	statusBar := StyleStatusBar.Width(m.width).Render(fmt.Sprintf(
		"%s  |  periods %d  blocks %d  dropped %d", statusText, m.shared.periods, st.Pushed, st.Dropped))

	help := StyleHelp.Render("s start/stop  e export csv  p snapshot  [ ] start freq  { } end freq  q quit")

	return strings.Join([]string{
		title,
		distance,
		corrPanel,
		trendPanel,
		statusBar,
		help,
	}, "\n")
}

// Status returns the current status line text.
func (m Model) Status() string {
	return m.status
}

var _ tea.Model = Model{}
