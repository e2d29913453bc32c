package config

// AxisConfig describes one DC motor channel: H-bridge, encoder, home switch and tuning
type AxisConfig struct {
	Name string `json:"name"`

	// Wiring
	PWMChannel     uint8  `json:"pwm_channel"`
	PWMPeriod      uint16 `json:"pwm_period"`      // PWM period in timer counts
	PhaseBPin      uint32 `json:"phase_b_pin"`     // Encoder phase B, sampled on phase A edges
	Polarity       string `json:"polarity"`        // "b_high_forward" or "b_high_reverse"
	HomeSwitchPin  uint32 `json:"home_switch_pin"` // Home/limit switch input
	HomeActiveHigh bool   `json:"home_active_high"`
	LimitSwitchPin int    `json:"limit_switch_pin"` // Far-end limit switch, same active level as home, -1 disables
	CaptureChannel int    `json:"capture_channel"` // Edge capture channel, -1 disables period speed

	// Travel, in encoder ticks
	LengthTicks   uint32 `json:"length_ticks"`
	BoundaryTicks uint32 `json:"boundary_ticks"` // Soft limit inset from both ends
	MaxTicks      int32  `json:"max_ticks"`      // Decoder saturation limit
	InitialTicks  int32  `json:"initial_ticks"`  // Position assumed at power-up
	HomeTicks     int32  `json:"home_ticks"`     // Position assigned when the home switch asserts

	// Controller
	Deadband      int32 `json:"deadband"`
	MaxSpeed      uint8 `json:"max_speed"` // 0..100
	GainP         int32 `json:"gain_p"`
	GainPFactor   int32 `json:"gain_p_factor"`
	GainI         int32 `json:"gain_i"` // Divisor, 0 disables the integral term
	IntegralLimit int32 `json:"integral_limit"`
	SlewRate      uint8 `json:"slew_rate"` // Max speed increase per tick, 0 disables

	// Slow-down approaching the soft limits
	SlowDownThresholdTicks int32  `json:"slow_down_threshold_ticks"` // 0 disables
	SlowDownSpeed          uint16 `json:"slow_down_speed"`           // mm/s

	// Speed to duty mapping
	DutyMode    string `json:"duty_mode"` // "centered" or "magnitude"
	DutyNeutral uint8  `json:"duty_neutral"`
	DutyGain    uint8  `json:"duty_gain"`

	// Unit conversion
	TicksPerRev  uint32 `json:"ticks_per_rev"`
	MMPerRev     uint32 `json:"mm_per_rev"`
	HomeOffsetMM uint16 `json:"home_offset_mm"`
}

// YConfig holds settings for the coupled left/right Y motors
type YConfig struct {
	MismatchLimit int32 `json:"mismatch_limit"` // Max left/right divergence in ticks
}

// OverloadConfig holds stall detector settings shared by all motors
type OverloadConfig struct {
	FloorMMPerS  uint16 `json:"floor_mm_per_s"`
	StrikeLimit  uint16 `json:"strike_limit"`  // Consecutive evaluations below the floor
	ClearHoldoff uint16 `json:"clear_holdoff"` // Evaluations before a trip may be cleared
}

// HomingConfig holds homing sequencer settings
type HomingConfig struct {
	Speed     uint8  `json:"speed"`
	TimeoutMS uint32 `json:"timeout_ms"` // Per stage
}

// SpeedConfig holds speed estimation settings
type SpeedConfig struct {
	IntervalTicks uint32   `json:"interval_ticks"`
	Classes       [4]uint8 `json:"classes"` // Max speed per commanded speed class
}

// CANConfig holds CAN link settings
type CANConfig struct {
	Bitrate          uint32 `json:"bitrate"`
	StatusIntervalMS uint32 `json:"status_interval_ms"`
}

// GoalSensorConfig describes one goal IR beam sensor
type GoalSensorConfig struct {
	Enabled     bool   `json:"enabled"`
	Pin         uint32 `json:"pin"`
	BlockedHigh bool   `json:"blocked_high"`
	Threshold   uint8  `json:"threshold"` // Blocked samples out of the filter window
	LatchTicks  uint8  `json:"latch_ticks"`
}

// GoalConfig holds the goal sensors
type GoalConfig struct {
	Human GoalSensorConfig `json:"human"`
	Robot GoalSensorConfig `json:"robot"`
}

// PaddleConfig represents the complete controller configuration
type PaddleConfig struct {
	X      AxisConfig `json:"x"`
	YLeft  AxisConfig `json:"y_left"`
	YRight AxisConfig `json:"y_right"`

	Y        YConfig        `json:"y"`
	Overload OverloadConfig `json:"overload"`
	Homing   HomingConfig   `json:"homing"`
	Speed    SpeedConfig    `json:"speed"`
	CAN      CANConfig      `json:"can"`
	Goal     GoalConfig     `json:"goal"`

	PaddleRadiusMM uint16 `json:"paddle_radius_mm"`
}
