package rotator

import (
	"math"
	"time"
)

// equhor converts between azimuth/altitude and hour-angle/declination.
// Phi is the observer's latitude
// Arguments are in radians
// Algorithm from https://metacpan.org/dist/Astro-Montenbruck/source/lib/Astro/Montenbruck/CoCo.pm
func equhor(x, y, phi float64) (float64, float64) {
	sx, sy, sphi := math.Sin(x), math.Sin(y), math.Sin(phi)
	cx, cy, cphi := math.Cos(x), math.Cos(y), math.Cos(phi)

	sq := (sy * sphi) + (cy * cphi * cx)
	q := math.Asin(sq)

	cp := (sy - (sphi * sq)) / (cphi * math.Cos(q))
	// Rounding can push cp just outside [-1, 1].
	cp = math.Max(-1, math.Min(1, cp))
	p := math.Acos(cp)
	if sx > 0 {
		p = 2*math.Pi - p
	}
	return p, q
}

func deg2rad(x float64) float64 {
	return x * math.Pi / 180
}

func rad2deg(x float64) float64 {
	return x * 180 / math.Pi
}

func wrap360(x float64) float64 {
	return math.Mod(math.Mod(x, 360)+360, 360)
}

// LocalSiderealTime returns the local mean sidereal time in degrees for an
// east-positive longitude.
func LocalSiderealTime(t time.Time, longitude float64) float64 {
	jd := float64(t.UnixNano())/float64(24*time.Hour) + 2440587.5
	gmst := 280.46061837 + 360.98564736629*(jd-2451545.0)
	return wrap360(gmst + longitude)
}

// HorizontalToEquatorial converts a north-referenced, clockwise azimuth and
// elevation (degrees) seen from lat/lon at t into right ascension (hours) and
// declination (degrees).
func HorizontalToEquatorial(az, el, lat, lon float64, t time.Time) (ra, dec float64) {
	ha, d := equhor(deg2rad(az), deg2rad(el), deg2rad(lat))
	ra = wrap360(LocalSiderealTime(t, lon)-rad2deg(ha)) / 15
	return ra, rad2deg(d)
}
