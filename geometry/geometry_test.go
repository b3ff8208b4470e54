package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialTranslate(t *testing.T) {
	for _, test := range []struct {
		name  string
		click Point
		want  float64
	}{
		{"up", Point{500, 300}, 0},
		{"right", Point{700, 500}, 90},
		{"down", Point{500, 700}, 180},
		{"left", Point{300, 500}, 270},
		{"up right", Point{600, 400}, 45},
		{"up left", Point{400, 400}, 315},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := MapDial.Translate(test.click)
			require.True(t, got.HasAz)
			assert.False(t, got.HasEl)
			assert.InDelta(t, test.want, got.Az, 1e-9)
		})
	}
}

func TestDialRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, d := range []Dial{MapDial, CompactDial} {
		for i := 0; i < 10000; i++ {
			p := Point{r.Float64()*2000 - 500, r.Float64()*2000 - 500}
			az := d.Translate(p).Az
			if az < 0 || az >= 360 || math.Signbit(az) {
				t.Fatalf("%+v.Translate(%+v) = %v, outside [0, 360)", d, p, az)
			}
		}
	}
	// The origin itself has no direction but must still land in range.
	az := MapDial.Translate(MapDial.Origin).Az
	assert.True(t, az >= 0 && az < 360, "az at origin = %v", az)
}

func TestCompactDialUsesOwnOrigin(t *testing.T) {
	got := CompactDial.Translate(Point{10, 50})
	assert.InDelta(t, 0, got.Az, 1e-9)
	got = CompactDial.Translate(Point{50, 90})
	assert.InDelta(t, 90, got.Az, 1e-9)
}

func TestElevationDial(t *testing.T) {
	for _, test := range []struct {
		click Point
		want  float64
	}{
		{Point{110, 90}, 0},
		{Point{10, -10}, 90},
		{Point{110, -10}, 45},
		// Below the horizon is passed through, not clamped.
		{Point{110, 190}, -45},
	} {
		got := ElevationGauge.Translate(test.click)
		require.True(t, got.HasEl)
		assert.False(t, got.HasAz)
		assert.InDelta(t, test.want, got.El, 1e-9, "click %+v", test.click)
	}
}

func TestNormalize(t *testing.T) {
	for in, want := range map[float64]float64{
		0:      0,
		360:    0,
		720.5:  0.5,
		-90:    270,
		-360:   0,
		359.99: 359.99,
	} {
		assert.InDelta(t, want, Normalize(in), 1e-9, "Normalize(%v)", in)
	}
	assert.False(t, math.Signbit(Normalize(math.Copysign(0, -1))))
}

func TestPanoramaCentersCurrentAzimuth(t *testing.T) {
	p := NewPanorama()
	for _, az := range []float64{0, 12.5, 90, 180, 359.9} {
		p.Follow(az)
		assert.InDelta(t, 500, p.X(az), 1e-9, "az %v", az)
		got := p.Translate(Point{500, p.HorizonOffset})
		assert.InDelta(t, az, got.Az, 1e-9)
		assert.InDelta(t, 0, got.El, 1e-9)
	}
}

func TestPanoramaTranslate(t *testing.T) {
	p := NewPanorama()
	p.Follow(100)
	// Shift = 500 - 1560 = -1060
	require.InDelta(t, -1060, p.Shift, 1e-9)

	got := p.Translate(Point{500 + 15.6*20, 320 - 15.6*30})
	assert.InDelta(t, 120, got.Az, 1e-9)
	assert.InDelta(t, 30, got.El, 1e-9)

	p.Follow(5)
	got = p.Translate(Point{0, 400})
	assert.InDelta(t, Normalize(5-500/15.6), got.Az, 1e-9)
	assert.Less(t, got.El, 0.0)
	assert.InDelta(t, 400, p.Y(got.El), 1e-9)
}

func TestPanoramaTicks(t *testing.T) {
	p := NewPanorama()
	p.Follow(180)
	ticks := p.Ticks()
	require.NotEmpty(t, ticks)
	for _, tick := range ticks {
		assert.True(t, tick.X >= 0 && tick.X <= p.Width, "tick %+v outside viewport", tick)
		assert.Zero(t, math.Mod(tick.Az, 10))
		assert.Equal(t, math.Mod(tick.Az, 30) == 0, tick.Major, "tick %+v", tick)
	}
	// 1000px at 15.6px/° spans about 64°, so 6 or 7 ticks.
	assert.True(t, len(ticks) == 6 || len(ticks) == 7, "got %d ticks", len(ticks))

	p.Follow(0)
	var sawZero bool
	for _, tick := range p.Ticks() {
		if tick.Az == 0 {
			sawZero = true
			assert.True(t, tick.Major)
			assert.InDelta(t, 500, tick.X, 1e-9)
		}
	}
	assert.True(t, sawZero)
}

func TestSurfaceKinds(t *testing.T) {
	for _, test := range []struct {
		s    Surface
		want Kind
	}{
		{MapDial, KindDial},
		{ElevationGauge, KindElevationDial},
		{NewPanorama(), KindPanorama},
	} {
		assert.Equal(t, test.want, test.s.Kind())
	}
	assert.Equal(t, "panorama", KindPanorama.String())
}
