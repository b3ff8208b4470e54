package simradar

import (
	"math"
	"time"
)

// Loosely inspired by https://github.com/rolandturner/ground-simulator/blob/master/Simulator.js

const (
	// Maximum acceleration in degrees/second^2
	maxAccel = 30
	// Maximum velocity in degrees/second
	maxVel = 30
	// Acceleration due to drag when not driving
	dragAccel = 30
	// Position loop gain in 1/second
	posGain = 3
	// Discrete simulation step size
	stepSize = 25 * time.Millisecond

	minElevation = 0
	maxElevation = 90
)

// axis is the simulated state of one drive. Positions are unoffset.
type axis struct {
	pos, vel       float64
	cmdPos, cmdVel float64
	flags          string
}

// posServo returns a target velocity for a move from s to t. Azimuth moves
// take the short way round.
func posServo(s, t float64, wrap bool) float64 {
	delta := t - s
	if wrap {
		delta = math.Mod(delta+540, 360) - 180
	}
	return clamp(delta*posGain, -maxVel, maxVel)
}

// velServo accelerates s toward t within the acceleration limit.
func velServo(s, t float64, dt time.Duration) float64 {
	limit := maxAccel * dt.Seconds()
	return clamp(s+clamp(t-s, -limit, limit), -maxVel, maxVel)
}

// drag slows s toward zero.
func drag(s float64, dt time.Duration) float64 {
	a := math.Abs(s) - dragAccel*dt.Seconds()
	if a < 0 {
		return 0
	}
	return math.Copysign(a, s)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// step advances the axis by dt and returns the RCI-style status nibble:
// 1 coasting, 2 velocity mode, 6 position mode.
func (a *axis) step(dt time.Duration, wrap bool) int {
	st := 0
	cmdVel := a.cmdVel
	switch a.flags {
	case "POSITION":
		cmdVel = posServo(a.pos, a.cmdPos, wrap)
		st = 4
		fallthrough
	case "VELOCITY":
		st |= 2
		a.vel = velServo(a.vel, cmdVel, dt)
	default:
		st = 1
		a.vel = drag(a.vel, dt)
	}
	a.pos += a.vel * dt.Seconds()
	if wrap {
		a.pos = math.Mod(a.pos+360, 360)
	}
	return st
}
