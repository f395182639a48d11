package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/bluedrive/pkg/drive"
	"github.com/gwillem/bluedrive/pkg/hbridge"
	"github.com/gwillem/bluedrive/pkg/rig"
	"github.com/gwillem/bluedrive/pkg/throttle"
)

type DriveCommand struct {
	Config   string `long:"config" description:"Config file (default bluedrive.json)"`
	Hz       int    `long:"hz" description:"Control loop frequency (overrides config)"`
	Reversed bool   `long:"reversed" description:"Swap forward and backward pin combinations"`
	DryRun   bool   `long:"dry-run" description:"Record outputs in memory instead of driving the board"`
	Headless bool   `long:"headless" description:"Log to the configured output instead of showing the TUI"`
}

const (
	headerHeight = 2 // title + blank line
	statusHeight = 2 // status row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	outputSeries = "output"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type driveModel struct {
	ctrl     *drive.Controller
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	state    drive.State
	quitting bool
}

func (m *driveModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg drive.State
type logMsg string

func waitForState(ctrl *drive.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *drive.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *driveModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - statusHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *driveModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialDriveModel(ctrl *drive.Controller, maxMagnitude int) driveModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(float64(-maxMagnitude), float64(maxMagnitude)),
	)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	chart.SetDataSetStyles(outputSeries, runes.ThinLineStyle, style)

	return driveModel{
		ctrl:  ctrl,
		chart: &chart,
	}
}

func (m driveModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		m.state = drive.State(msg)
		m.chart.PushDataSet(outputSeries, float64(m.state.Command.Signed()))
		m.chart.DrawAll()
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m driveModel) View() string {
	if m.quitting {
		return "Drive stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("bluedrive"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Status
	sb.WriteString(renderStatus(m.state))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderStatus(s drive.State) string {
	cmd := s.Command
	dir := cmd.Direction.String()
	dirStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(directionColors[dir]))

	link := successStyle.Render("link up")
	if !s.Available {
		link = warnStyle.Render("link down")
	}

	return strings.Join([]string{
		dirStyle.Render(fmt.Sprintf("%-8s", dir)),
		fmt.Sprintf("raw %2d", cmd.Raw),
		fmt.Sprintf("throttle %+3d", cmd.Throttle),
		fmt.Sprintf("pwm %3d", cmd.Magnitude),
		link,
	}, "  ")
}

// loadDriveConfig loads the config file and applies command line overrides.
func (c *DriveCommand) loadDriveConfig() (*rig.Config, error) {
	cfg, err := rig.Load(c.Config)
	if errors.Is(err, rig.ErrNoConfig) {
		return nil, fmt.Errorf("no configuration found, run 'bluedrive setup' first")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.Reversed {
		cfg.Board.Reversed = true
	}
	if c.DryRun {
		cfg.Board.Backend = hbridge.BackendSim
	}
	if !c.Headless {
		// The TUI owns the terminal.
		switch strings.ToLower(cfg.Log.Output) {
		case "", "stderr", "stdout":
			cfg.Log.Output = "discard"
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Link.Port == "" {
		return nil, fmt.Errorf("no phone link port configured, run 'bluedrive setup' first")
	}
	return cfg, nil
}

func (c *DriveCommand) Execute(args []string) error {
	cfg, err := c.loadDriveConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, closeLog, err := rig.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer closeLog()

	link, err := throttle.OpenSerial(cfg.Link.Port, cfg.Link.BaudRate, cfg.Link.Protocol)
	if err != nil {
		log.Fatalf("Failed to open phone link: %v", err)
	}
	defer link.Close()

	bridge, err := hbridge.Open(cfg.Board)
	if err != nil {
		log.Fatalf("Failed to open motor board: %v", err)
	}
	defer bridge.Close()

	in := throttle.NewAdapter(link, throttle.AdapterConfig{
		Neutral:    cfg.NeutralOffset,
		StaleAfter: cfg.Link.StaleAfter(),
		Logger:     logger.With("component", "throttle"),
	})
	ctrl := drive.NewController(in, bridge, drive.Config{
		Scale:    cfg.Scale(),
		Hz:       cfg.Hz,
		Reversed: cfg.Board.Reversed,
		Logger:   logger.With("component", "drive"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if c.Headless {
		logger.Info("starting", "link", cfg.Link.Port, "backend", cfg.Board.Backend)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("controller stopped", "error", err)
		}
	}()

	p := tea.NewProgram(initialDriveModel(ctrl, cfg.MaxMagnitude), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("run tui: %w", err)
	}

	// Wait for the controller to brake before closing the board.
	cancel()
	<-done
	return nil
}
