package core

// Direction is the commanded H-bridge state
type Direction uint8

const (
	Brake Direction = iota
	Forward
	Reverse
)

// String returns the direction name
func (d Direction) String() string {
	switch d {
	case Brake:
		return "brake"
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	}
	return "dir_" + itoa(int(d))
}

// DutyMap converts a speed (0..100) into a PWM duty cycle (0..100).
// Centered maps are used with centre-aligned sign-magnitude bridges where
// Neutral is standstill; otherwise Neutral is a minimum duty offset.
type DutyMap struct {
	Neutral  uint8
	Gain     uint8
	Centered bool
}

// Duty returns the duty cycle for dir at speed
func (m DutyMap) Duty(dir Direction, speed uint8) uint8 {
	scaled := uint8(uint16(speed) * uint16(m.Gain) / 100)
	if m.Centered {
		switch dir {
		case Forward:
			return m.Neutral + scaled
		case Reverse:
			return m.Neutral - scaled
		}
		return m.Neutral
	}
	if dir == Brake || speed == 0 {
		return 0
	}
	return m.Neutral + scaled
}

// Drive applies speed and direction requests to one H-bridge channel
type Drive struct {
	Map      DutyMap
	SlewRate uint8 // Max rise of the applied speed per tick, 0 disables

	Dir     Direction // Direction currently on the bridge
	Applied uint8     // Speed currently applied
	Duty    uint8     // Duty currently applied
}

// Apply requests dir at speed. A Forward<->Reverse change puts the bridge
// in Brake for this call; the new direction takes effect on the next one.
func (d *Drive) Apply(dir Direction, speed uint8) {
	if (d.Dir == Forward && dir == Reverse) || (d.Dir == Reverse && dir == Forward) {
		d.Brake()
		return
	}
	if dir == Brake {
		d.Brake()
		return
	}

	if d.SlewRate > 0 && int(speed) > int(d.Applied)+int(d.SlewRate) {
		d.Applied += d.SlewRate
	} else {
		d.Applied = speed
	}
	d.Dir = dir
	d.Duty = d.Map.Duty(dir, d.Applied)
}

// Brake stops the channel immediately
func (d *Drive) Brake() {
	d.Dir = Brake
	d.Applied = 0
	d.Duty = d.Map.Duty(Brake, 0)
}
