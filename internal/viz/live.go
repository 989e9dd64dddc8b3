package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/brazilnut/internal/control"
	"github.com/san-kum/brazilnut/internal/experiment"
	"github.com/san-kum/brazilnut/internal/sim"
)

const (
	width           = 40
	height          = 20
	historyCapacity = 600
	recentEvents    = 6
	maxStepsFrame   = 1 << 16
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(52)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// eventLog is shared between model copies; the controller holds a pointer
// to it as an observer.
type eventLog struct {
	events []control.Event
}

func (l *eventLog) OnTransition(e control.Event) {
	l.events = append(l.events, e)
	if len(l.events) > recentEvents {
		l.events = l.events[1:]
	}
}

// Model steps an experiment a batch of steps per frame and renders it.
type Model struct {
	exp           *experiment.Experiment
	sim           *sim.Simulator
	cfg           sim.Config
	stepsPerFrame int
	totalSteps    int
	done          int
	last          sim.Sample
	positions     []float64
	velocities    []float64
	log           *eventLog
	section       *Section
	canvas        *Canvas
	running       bool
	showHelp      bool
	err           error
}

// NewModel prepares exp for stepping. stepsPerFrame <= 0 picks a rate that
// plays the whole run in about twenty seconds.
func NewModel(exp *experiment.Experiment, stepsPerFrame int) (Model, error) {
	cfg := exp.SimConfig()
	s := exp.GetSimulator()
	if err := s.Init(cfg); err != nil {
		return Model{}, err
	}

	total := int(cfg.Duration / cfg.Dt)
	if stepsPerFrame <= 0 {
		stepsPerFrame = total/(20*60) + 1
	}

	log := &eventLog{}
	exp.AddTransitionObserver(log)

	canvas := NewCanvas(width, height)
	return Model{
		exp:           exp,
		sim:           s,
		cfg:           cfg,
		stepsPerFrame: stepsPerFrame,
		totalSteps:    total,
		positions:     make([]float64, 0, historyCapacity),
		velocities:    make([]float64, 0, historyCapacity),
		log:           log,
		section:       NewSection(canvas, exp.Scene().Bounds),
		canvas:        canvas,
		running:       true,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Finished() bool     { return m.done >= m.totalSteps }
func (m Model) Last() sim.Sample   { return m.last }
func (m Model) StepsPerFrame() int { return m.stepsPerFrame }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.restart()
		case "+", "=":
			if m.stepsPerFrame < maxStepsFrame {
				m.stepsPerFrame *= 2
			}
		case "-", "_":
			if m.stepsPerFrame > 1 {
				m.stepsPerFrame /= 2
			}
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && !m.Finished() {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.stepsPerFrame && m.done < m.totalSteps; i++ {
		m.last = m.sim.StepOnce()
		m.done++
	}

	m.positions = append(m.positions, m.last.FloorPosition)
	m.velocities = append(m.velocities, m.last.FloorVelocity)
	if len(m.positions) > historyCapacity {
		m.positions = m.positions[1:]
		m.velocities = m.velocities[1:]
	}
}

func (m *Model) restart() {
	if err := m.sim.Init(m.cfg); err != nil {
		m.err = err
		return
	}
	m.done = 0
	m.last = sim.Sample{}
	m.positions = m.positions[:0]
	m.velocities = m.velocities[:0]
	m.log.events = nil
	m.running = true
}

// View renders the TUI interface.
func (m Model) View() string {
	m.section.Draw(m.exp.Scene())
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(HeaderStyle.Render(strings.ToUpper(m.exp.Config().Name)) + "\n")

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.err != nil:
		status = SparkLow.Render("ERROR " + m.err.Error())
	case m.Finished():
		status = StatusPaused.Render("DONE")
	case !m.running:
		status = StatusPaused.Render("PAUSED")
	}
	s.WriteString(status + "  " + PhaseBadge(m.last.Phase) + "\n\n")

	progress := float64(m.done) / float64(m.totalSteps)
	s.WriteString(ProgressBar(progress, 30) + fmt.Sprintf(" %3.0f%%\n\n", progress*100))

	ctrl := m.exp.Controller()
	row := func(label, value string) {
		s.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.4fs / %.1fs", m.last.Time, m.cfg.Duration))
	row("Flow", fmt.Sprintf("%g", m.last.FlowRate))
	row("Floor v", fmt.Sprintf("%+.3f", m.last.FloorVelocity))
	row("Floor z", fmt.Sprintf("%.4f", m.last.FloorPosition))
	row("Kicks", fmt.Sprintf("%d", m.last.Kicks))
	row("Threshold", fmt.Sprintf("%.4f", ctrl.Threshold()))
	row("Inserted", fmt.Sprintf("%d", m.last.Inserted))
	row("Speed", fmt.Sprintf("%d steps/frame", m.stepsPerFrame))

	if chart := PlotSeries(m.positions, "floor z", 5, 40); chart != "" {
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(SparklineChart(m.velocities, 40) + "\n\n")

	for _, e := range m.log.events {
		s.WriteString(Subtle.Render(fmt.Sprintf("t=%-10.4f %-13s v=%+.2f", e.Time, e.Kind, e.Velocity)) + "\n")
	}

	s.WriteString(helpStyle.Render(Separator(40) + "\nSP:Pause R:Restart Q:Quit\n+/-:Speed T:Theme ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		return KeyHint.Render(`
  Space  pause / resume
  R      restart from t=0
  +/-    double / halve steps per frame
  T      cycle themes
  Q      quit
`) + "\n" + mainView
	}
	return mainView
}

// Run starts the live view in the alternate screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
