package skymap

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/w1xm/rci_console/rotator"
	"github.com/w1xm/rci_console/status"
)

// fake returns az/15 and el so tests can see which fields were used.
var fake = ConverterFunc(func(az, el, lat, lon float64, t time.Time) (float64, float64) {
	return az / 15, el
})

func TestPointers(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	base := status.Snapshot{
		"Latitude":     42.36,
		"Longitude":    -71.09,
		"AzPos":        30.0,
		"ElPos":        10.0,
		"CommandAzPos": 45.0,
		"CommandElPos": 20.0,
	}
	for _, test := range []struct {
		name  string
		extra status.Snapshot
		want  []Pointer
	}{
		{
			name: "tracking velocity",
			extra: status.Snapshot{
				"CommandAzFlags": "VELOCITY",
				"CommandElFlags": "POSITION",
			},
			want: []Pointer{
				{Name: StatusPointer, RA: 2, Dec: 10, Visible: true},
				{Name: TargetPointer, RA: 3, Dec: 20},
			},
		},
		{
			name: "position hold",
			extra: status.Snapshot{
				"CommandAzFlags": "POSITION",
				"CommandElFlags": "POSITION",
			},
			want: []Pointer{
				{Name: StatusPointer, RA: 2, Dec: 10, Visible: true},
				{Name: TargetPointer, RA: 3, Dec: 20, Visible: true},
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := status.Snapshot{}
			for k, v := range base {
				s[k] = v
			}
			for k, v := range test.extra {
				s[k] = v
			}
			if diff := cmp.Diff(test.want, Pointers(s, fake, now)); diff != "" {
				t.Errorf("unexpected pointers: got(-)/want(+):\n%s", diff)
			}
		})
	}
}

func TestPointersWithoutSite(t *testing.T) {
	got := Pointers(status.Snapshot{"AzPos": 1.0, "ElPos": 2.0}, fake, time.Now())
	want := []Pointer{{Name: StatusPointer}, {Name: TargetPointer}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected pointers: got(-)/want(+):\n%s", diff)
	}
}

func TestMeanConverter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := status.Snapshot{
		"Latitude":  42.36,
		"Longitude": -71.09,
		"AzPos":     0.0,
		"ElPos":     90.0,
	}
	got := Pointers(s, nil, now)
	// The zenith sits at the local sidereal time and the site latitude.
	want := Pointer{
		Name:    StatusPointer,
		RA:      rotator.LocalSiderealTime(now, -71.09) / 15,
		Dec:     42.36,
		Visible: true,
	}
	approx := cmpopts.EquateApprox(0, 1e-6)
	if diff := cmp.Diff(want, got[0], approx); diff != "" {
		t.Errorf("unexpected zenith pointer: got(-)/want(+):\n%s", diff)
	}
	if math.IsNaN(got[1].RA) {
		t.Error("hidden target has NaN coordinates")
	}
}
