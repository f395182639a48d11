package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"go.bug.st/serial"

	"github.com/gwillem/bluedrive/pkg/hbridge"
	"github.com/gwillem/bluedrive/pkg/rig"
	"github.com/gwillem/bluedrive/pkg/throttle"
)

type SetupCommand struct {
	Config string `long:"config" description:"Config file to write (default bluedrive.json)"`
}

const (
	// How long to wait for the phone to send a throttle frame.
	linkWaitTimeout = 15 * time.Second
	// How long to watch a held throttle.
	frameGapWindow = 3 * time.Second
)

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("bluedrive setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := rig.Load(c.Config)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Println(warnStyle.Render(fmt.Sprintf("Ignoring existing config: %v", err)))
		}
		cfg = rig.Default()
	}

	ports := listPorts()

	// Step 1: phone link
	fmt.Println(subHeaderStyle.Render("━━━ Phone link ━━━"))
	fmt.Println()
	cfg.Link.Port = choosePort("Which port is the Bluetooth module on?", ports, cfg.Link.Port, "")
	checkLink(&cfg.Link, &cfg.NeutralOffset)

	// Step 2: motor board
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Motor board ━━━"))
	fmt.Println()
	chooseBoard(&cfg.Board, ports, cfg.Link.Port)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.SaveAs(c.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	path := c.Config
	if path == "" {
		path = rig.DefaultConfigFile
	}
	fmt.Printf("Configuration saved to %s\n", path)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("bluedrive drive"))

	return nil
}

func listPorts() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		os.Exit(1)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		fmt.Println("Make sure the Bluetooth module is connected and powered on.")
		os.Exit(1)
	}
	return ports
}

func choosePort(title string, ports []string, current, exclude string) string {
	var options []huh.Option[string]
	for _, p := range ports {
		if p == exclude {
			continue
		}
		options = append(options, huh.NewOption(p, p))
	}
	if len(options) == 0 {
		fmt.Println("No free serial port left.")
		os.Exit(1)
	}

	port := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(options...).
				Value(&port),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return port
}

// checkLink waits for the phone to send a drive frame, measures how often
// frames arrive while the throttle is held, and reads the resting value.
func checkLink(cfg *rig.LinkConfig, neutral *int) {
	link, err := throttle.OpenSerial(cfg.Port, cfg.BaudRate, cfg.Protocol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", cfg.Port, err)
		os.Exit(1)
	}
	defer link.Close()

	fmt.Printf("Connect the phone app and move the throttle (waiting %s)...\n", linkWaitTimeout)
	r, err := link.Wait(linkWaitTimeout)
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("No throttle received on %s: %v", cfg.Port, err)))
		if !confirm("Keep this port anyway?") {
			os.Exit(1)
		}
		return
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Received throttle %d", r.Value)))

	waitForUser("Hold the throttle still, then continue.")
	gap := frameGap(link, frameGapWindow)
	staleAfter := throttle.SuggestStaleAfter(gap)
	if gap >= frameGapWindow {
		fmt.Println(warnStyle.Render(fmt.Sprintf("The app sent nothing for %s while the throttle was held.", frameGapWindow)))
		fmt.Println("drive brakes when the link goes quiet, so a held throttle will stop the motor.")
	} else {
		fmt.Printf("Frames arrive at most %s apart.\n", gap.Round(time.Millisecond))
	}
	if current := cfg.StaleAfter(); staleAfter > current &&
		confirm(fmt.Sprintf("Brake after %s of silence instead of %s?", staleAfter, current)) {
		cfg.StaleAfterMS = int(staleAfter / time.Millisecond)
	}

	waitForUser("Release the throttle so it returns to rest.")
	r, err = link.Latest()
	if err != nil {
		return
	}
	if r.Value != *neutral && confirm(fmt.Sprintf("Throttle rests at %d. Use it as neutral instead of %d?", r.Value, *neutral)) {
		*neutral = r.Value
	}
}

// frameGap watches the link for window and returns the longest time between
// two frames.
func frameGap(link throttle.Transport, window time.Duration) time.Duration {
	start := time.Now()
	last := start
	var gap time.Duration
	var seen time.Time
	for now := start; now.Sub(start) < window; now = time.Now() {
		if r, err := link.Latest(); err == nil && r.At.After(seen) {
			seen = r.At
			gap = max(gap, now.Sub(last))
			last = now
		}
		time.Sleep(10 * time.Millisecond)
	}
	return max(gap, time.Since(last))
}

func chooseBoard(board *hbridge.Config, ports []string, linkPort string) {
	backend := board.Backend
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How is the H-bridge driven?").
				Options(
					huh.NewOption("Arduino running StandardFirmata", hbridge.BackendFirmata),
					huh.NewOption("Raspberry Pi GPIO", hbridge.BackendRPi),
					huh.NewOption("Simulated (no hardware)", hbridge.BackendSim),
				).
				Value(&backend),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	board.Backend = backend

	if backend == hbridge.BackendFirmata {
		board.Port = choosePort("Which port is the Arduino on?", ports, board.Port, linkPort)
	} else {
		board.Port = ""
	}

	pinA := strconv.Itoa(board.PinA)
	pinB := strconv.Itoa(board.PinB)
	enable := strconv.Itoa(board.Enable)
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("IN1 pin (direction A)").Value(&pinA).Validate(validatePin),
			huh.NewInput().Title("IN2 pin (direction B)").Value(&pinB).Validate(validatePin),
			huh.NewInput().Title("ENA pin (PWM)").Value(&enable).Validate(validatePin),
			huh.NewConfirm().Title("Is the motor wired in reverse?").Value(&board.Reversed),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	board.PinA, _ = strconv.Atoi(strings.TrimSpace(pinA))
	board.PinB, _ = strconv.Atoi(strings.TrimSpace(pinB))
	board.Enable, _ = strconv.Atoi(strings.TrimSpace(enable))
}

func validatePin(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func confirm(title string) bool {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return ok
}

func waitForUser(prompt string) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}
