package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Setup    SetupCommand    `command:"setup" description:"Pick the phone link and motor board, save the wiring"`
	Drive    DriveCommand    `command:"drive" alias:"run" description:"Drive the motor from the phone throttle"`
	Simulate SimulateCommand `command:"simulate" alias:"sim" description:"Run raw throttle values through the controller without hardware"`
	Ports    PortsCommand    `command:"ports" description:"List serial ports"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "bluedrive - Bluetooth throttle control for H-bridge DC motors"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
