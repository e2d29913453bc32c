package config

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Polarity names
const (
	PolarityBHighForward = "b_high_forward"
	PolarityBHighReverse = "b_high_reverse"
)

// Duty mode names
const (
	DutyCentered  = "centered"
	DutyMagnitude = "magnitude"
)

// LoadConfig parses a JSON configuration string and returns a PaddleConfig.
// Sections missing from the JSON are taken from DefaultPaddleConfig.
func LoadConfig(jsonData []byte) (*PaddleConfig, error) {
	config := DefaultPaddleConfig()

	err := json.Unmarshal(jsonData, config)
	if err != nil {
		return nil, err
	}

	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyDefaults fills in values that cannot legitimately be zero
func applyDefaults(config *PaddleConfig) {
	applyAxisDefaults(&config.X, "x")
	applyAxisDefaults(&config.YLeft, "y_left")
	applyAxisDefaults(&config.YRight, "y_right")

	if config.Y.MismatchLimit == 0 {
		config.Y.MismatchLimit = 200
	}
	if config.Overload.FloorMMPerS == 0 {
		config.Overload.FloorMMPerS = 5
	}
	if config.Overload.StrikeLimit == 0 {
		config.Overload.StrikeLimit = 25 // 250ms at the 10ms sub-rate
	}
	if config.Homing.Speed == 0 {
		config.Homing.Speed = 60
	}
	if config.Homing.TimeoutMS == 0 {
		config.Homing.TimeoutMS = 10000
	}
	if config.Speed.IntervalTicks == 0 {
		config.Speed.IntervalTicks = 10
	}
	if config.CAN.Bitrate == 0 {
		config.CAN.Bitrate = 125000
	}
	if config.CAN.StatusIntervalMS == 0 {
		config.CAN.StatusIntervalMS = 10
	}
	for _, g := range []*GoalSensorConfig{&config.Goal.Human, &config.Goal.Robot} {
		if g.Threshold == 0 {
			g.Threshold = 3
		}
		if g.LatchTicks == 0 {
			g.LatchTicks = 250
		}
	}
}

func applyAxisDefaults(axis *AxisConfig, name string) {
	if axis.Name == "" {
		axis.Name = name
	}
	if axis.Polarity == "" {
		axis.Polarity = PolarityBHighForward
	}
	if axis.PWMPeriod == 0 {
		axis.PWMPeriod = 100
	}
	if axis.MaxTicks == 0 {
		axis.MaxTicks = 0xFFFF
	}
	if axis.MaxSpeed == 0 {
		axis.MaxSpeed = 100
	}
	if axis.GainP == 0 {
		axis.GainP = 1
	}
	if axis.GainPFactor == 0 {
		axis.GainPFactor = 1
	}
	if axis.Deadband == 0 {
		axis.Deadband = 2
	}
	if axis.DutyMode == "" {
		axis.DutyMode = DutyCentered
	}
	if axis.DutyGain == 0 {
		axis.DutyGain = 50
	}
	if axis.DutyNeutral == 0 && axis.DutyMode == DutyCentered {
		axis.DutyNeutral = 50
	}
	if axis.TicksPerRev == 0 {
		axis.TicksPerRev = 1000
	}
	if axis.MMPerRev == 0 {
		axis.MMPerRev = 40
	}
}

// Validate rejects configurations the controller cannot run
func (c *PaddleConfig) Validate() error {
	for _, axis := range []*AxisConfig{&c.X, &c.YLeft, &c.YRight} {
		if err := axis.Validate(); err != nil {
			return err
		}
	}
	if c.Y.MismatchLimit <= 0 {
		return errors.New("y: mismatch_limit must be positive")
	}
	if c.Speed.IntervalTicks == 0 || c.Speed.IntervalTicks > 1000 {
		return errors.New("speed: interval_ticks must be within 1..1000")
	}
	for i, class := range c.Speed.Classes {
		if class > 100 {
			return errors.New("speed: class " + strconv.Itoa(i) + " exceeds 100")
		}
	}
	if c.Homing.Speed > 100 {
		return errors.New("homing: speed exceeds 100")
	}
	return nil
}

// Validate checks a single axis
func (a *AxisConfig) Validate() error {
	switch {
	case a.Polarity != PolarityBHighForward && a.Polarity != PolarityBHighReverse:
		return errors.New(a.Name + ": unknown polarity " + strconv.Quote(a.Polarity))
	case a.DutyMode != DutyCentered && a.DutyMode != DutyMagnitude:
		return errors.New(a.Name + ": unknown duty_mode " + strconv.Quote(a.DutyMode))
	case a.LimitSwitchPin < -1:
		return errors.New(a.Name + ": limit_switch_pin must be a pin or -1")
	case a.LimitSwitchPin >= 0 && uint32(a.LimitSwitchPin) == a.HomeSwitchPin:
		return errors.New(a.Name + ": limit_switch_pin shares the home switch pin")
	case a.LengthTicks == 0:
		return errors.New(a.Name + ": length_ticks must be set")
	case 2*a.BoundaryTicks >= a.LengthTicks:
		return errors.New(a.Name + ": boundary_ticks leaves no travel")
	case int64(a.LengthTicks) > int64(a.MaxTicks):
		return errors.New(a.Name + ": length_ticks exceeds max_ticks")
	case a.GainPFactor == 0:
		return errors.New(a.Name + ": gain_p_factor must not be zero")
	case a.TicksPerRev == 0 || a.MMPerRev == 0:
		return errors.New(a.Name + ": ticks_per_rev and mm_per_rev must be set")
	case a.MaxSpeed > 100:
		return errors.New(a.Name + ": max_speed exceeds 100")
	case a.IntegralLimit < 0:
		return errors.New(a.Name + ": integral_limit must not be negative")
	case a.Deadband < 0:
		return errors.New(a.Name + ": deadband must not be negative")
	case int(a.DutyNeutral)+int(a.DutyGain) > 100:
		return errors.New(a.Name + ": duty_neutral + duty_gain exceeds 100")
	case a.DutyMode == DutyCentered && a.DutyGain > a.DutyNeutral:
		return errors.New(a.Name + ": duty_gain exceeds duty_neutral")
	}
	return nil
}

// defaultAxis returns the tuning shared by all three motors
func defaultAxis(name string, channel uint8, phaseB, home uint32, lengthTicks uint32) AxisConfig {
	return AxisConfig{
		Name:           name,
		PWMChannel:     channel,
		PWMPeriod:      100,
		PhaseBPin:      phaseB,
		Polarity:       PolarityBHighForward,
		HomeSwitchPin:  home,
		HomeActiveHigh: true,
		LimitSwitchPin: -1,
		CaptureChannel: int(channel),

		LengthTicks:   lengthTicks,
		BoundaryTicks: 150,
		MaxTicks:      0xFFFF,
		InitialTicks:  100,

		Deadband:      2,
		MaxSpeed:      100,
		GainP:         5,
		GainPFactor:   1,
		IntegralLimit: 100,
		SlewRate:      5,

		DutyMode:    DutyCentered,
		DutyNeutral: 50,
		DutyGain:    50,

		TicksPerRev: 1000,
		MMPerRev:    40,
	}
}

// DefaultPaddleConfig returns the configuration of the table as built:
// one X motor and two coupled Y motors on 40mm-per-rev belts
func DefaultPaddleConfig() *PaddleConfig {
	x := defaultAxis("x", 0, 3, 10, 8000)
	x.TicksPerRev = 2000
	x.Polarity = PolarityBHighReverse
	x.LimitSwitchPin = 13
	x.GainP = 2
	x.SlowDownThresholdTicks = 400
	x.SlowDownSpeed = 200

	right := defaultAxis("y_right", 2, 7, 12, 4500)
	right.Polarity = PolarityBHighReverse

	return &PaddleConfig{
		X:      x,
		YLeft:  defaultAxis("y_left", 1, 5, 11, 4500),
		YRight: right,

		Y:        YConfig{MismatchLimit: 200},
		Overload: OverloadConfig{FloorMMPerS: 5, StrikeLimit: 25, ClearHoldoff: 100},
		Homing:   HomingConfig{Speed: 60, TimeoutMS: 10000},
		Speed:    SpeedConfig{IntervalTicks: 10, Classes: [4]uint8{40, 60, 80, 100}},
		CAN:      CANConfig{Bitrate: 125000, StatusIntervalMS: 10},
		Goal: GoalConfig{
			Human: GoalSensorConfig{Enabled: true, Pin: 14, BlockedHigh: true, Threshold: 3, LatchTicks: 250},
			Robot: GoalSensorConfig{Enabled: false, Pin: 15, BlockedHigh: true, Threshold: 3, LatchTicks: 250},
		},
		PaddleRadiusMM: 50,
	}
}
