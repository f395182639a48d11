package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/bluedrive/pkg/drive"
	"github.com/gwillem/bluedrive/pkg/hbridge"
	"github.com/gwillem/bluedrive/pkg/rig"
	"github.com/gwillem/bluedrive/pkg/throttle"
)

type SimulateCommand struct {
	Config   string `long:"config" description:"Config file (default bluedrive.json, defaults are used if missing)"`
	Reversed bool   `long:"reversed" description:"Swap forward and backward pin combinations"`

	Args struct {
		Values []string `positional-arg-name:"raw" description:"Raw throttle values 0-99, space or comma separated"`
	} `positional-args:"yes"`
}

// Readings exercised when no values are given.
var defaultSimulation = []int{49, 74, 99, 49, 24, 0}

func (c *SimulateCommand) Execute(args []string) error {
	values, err := parseValues(c.Args.Values)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		values = defaultSimulation
	}

	cfg, err := loadSimulationConfig(c.Config)
	if err != nil {
		return err
	}

	rows, err := simulate(values, cfg.Scale(), c.Reversed || cfg.Board.Reversed)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("bluedrive simulate"))
	fmt.Println(renderSimulation(rows))
	return nil
}

// loadSimulationConfig loads the rig config for its scale and wiring. A
// missing file means defaults; an unreadable or invalid one is an error.
func loadSimulationConfig(path string) (*rig.Config, error) {
	cfg, err := rig.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = rig.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Simulation never opens the board, so its port is not required.
	cfg.Board.Backend = hbridge.BackendSim
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type simRow struct {
	tick int
	cmd  drive.Command
	a, b bool
	pwm  uint8
}

// simulate runs one controller tick per value against a recorder.
func simulate(values []int, scale drive.Scale, reversed bool) ([]simRow, error) {
	rec := hbridge.NewRecorder()
	script := throttle.NewScript(values...)
	in := throttle.NewAdapter(script, throttle.AdapterConfig{Neutral: scale.Neutral, StaleAfter: -1})
	ctrl := drive.NewController(in, rec, drive.Config{Scale: scale, Reversed: reversed})

	rows := make([]simRow, 0, len(values))
	for i := range values {
		cmd, err := ctrl.Step()
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", i, err)
		}
		a, b, pwm := rec.Outputs()
		rows = append(rows, simRow{tick: i, cmd: cmd, a: a, b: b, pwm: pwm})
	}
	return rows, nil
}

func renderSimulation(rows []simRow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			strconv.Itoa(r.tick),
			strconv.Itoa(r.cmd.Raw),
			fmt.Sprintf("%+d", r.cmd.Throttle),
			r.cmd.Direction.String(),
			strconv.Itoa(int(r.cmd.Magnitude)),
			pinLevel(r.a),
			pinLevel(r.b),
			strconv.Itoa(int(r.pwm)),
		})
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Tick", "Raw", "Throttle", "Direction", "Magnitude", "IN1", "IN2", "PWM").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 3 && row >= 0 && row < len(rows) {
				color := directionColors[rows[row].cmd.Direction.String()]
				return cell.Foreground(lipgloss.Color(color))
			}
			return cell
		})

	return t.Render()
}

func pinLevel(v bool) string {
	if v {
		return "HIGH"
	}
	return "LOW"
}

// parseValues accepts "49 74 99" as separate args or "49,74,99".
func parseValues(args []string) ([]int, error) {
	var values []int
	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("raw value %q: %w", field, err)
			}
			if v < throttle.RawMin || v > throttle.RawMax {
				return nil, fmt.Errorf("raw value %d outside [%d, %d]", v, throttle.RawMin, throttle.RawMax)
			}
			values = append(values, v)
		}
	}
	return values, nil
}
