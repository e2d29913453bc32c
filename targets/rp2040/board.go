//go:build rp2040

package main

import (
	"machine"

	"paddle/core"
)

// Board wiring. Encoder phase B, home switch and goal sensor pins come
// from the controller configuration; everything else is fixed here.

// motorPins is the fixed wiring of one motor channel
type motorPins struct {
	phaseA machine.Pin    // Encoder phase A, rising edge interrupt
	event  core.Event     // Vector fired on a phase A edge
	pwm    machine.Pin    // Bridge enable (PWM)
	in1    uint8          // Bridge IN1; IN2 is the next pin
	ch     core.PWMChannel
}

var motors = [3]motorPins{
	{phaseA: machine.GPIO2, event: core.EvtEncoderX, pwm: machine.GPIO0, in1: 21, ch: 0},
	{phaseA: machine.GPIO4, event: core.EvtEncoderYLeft, pwm: machine.GPIO1, in1: 26, ch: 1},
	{phaseA: machine.GPIO6, event: core.EvtEncoderYRight, pwm: machine.GPIO28, in1: 8, ch: 2},
}

// MCP2515 on SPI0
const (
	canSCK machine.Pin = machine.GPIO18
	canSDO machine.Pin = machine.GPIO19
	canSDI machine.Pin = machine.GPIO16
	canCS  machine.Pin = machine.GPIO17
	canINT machine.Pin = machine.GPIO20

	canSPIFrequency = 4000000
)

// Bridges short the motor through the high side on brake
const brakeHigh = true
