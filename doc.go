// Package bluedrive drives a brushed DC motor through a two-wire H-bridge
// from a phone's Bluetooth throttle.
//
// A phone app sends throttle positions (0-99, 49 at rest) to an HM-10 style
// BLE serial module. bluedrive polls the latest position, decides a direction
// and an 8-bit pulse width, and writes the H-bridge direction pins and enable
// PWM through an Arduino running StandardFirmata or Raspberry Pi GPIO. When
// the phone link drops the motor is disabled.
//
// # Installation
//
//	go install github.com/gwillem/bluedrive/cmd/bluedrive@latest
//
// # Usage
//
// First, run setup to pick the serial ports and pins:
//
//	bluedrive setup
//
// Then start driving:
//
//	bluedrive drive
//
// To check the throttle mapping without hardware:
//
//	bluedrive simulate 49 74 99 49 24 0
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/bluedrive: CLI with setup, drive, simulate and ports commands
//   - pkg/throttle: Phone link, drive frame decoding, link-loss policy
//   - pkg/drive: Direction decision, pulse-width scale, control loop
//   - pkg/hbridge: Firmata, Raspberry Pi and in-memory H-bridge outputs
//   - pkg/rig: Configuration and logging
package bluedrive
