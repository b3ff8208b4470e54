// Package rotator describes the controller operations a console can drive.
package rotator

type Rotator interface {
	Stop()
	SetAzimuthPosition(angle float64)
	SetElevationPosition(angle float64)
	SetAzimuthVelocity(angle float64)
	SetElevationVelocity(angle float64)
}

type Shutdowner interface {
	ExitShutdown()
}

type Offsetter interface {
	SetAzimuthOffset(offset float64)
	SetElevationOffset(offset float64)
}

type Writer interface {
	Write(register int, values ...uint16)
}

// Tracker follows a body from the server's list; body 0 stops tracking.
type Tracker interface {
	Track(body int)
}
