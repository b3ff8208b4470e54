package status

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	for _, test := range []struct {
		input   string
		want    Snapshot
		wantErr bool
	}{
		{`{"AzPos":1}`, Snapshot{"AzPos": 1.0}, false},
		{`{"CommandAzFlags":"POSITION","Status":[true,false]}`, Snapshot{"CommandAzFlags": "POSITION", "Status": []interface{}{true, false}}, false},
		{`{}`, Snapshot{}, false},
		{`[1,2]`, nil, true},
		{`"AzPos"`, nil, true},
		{`{"AzPos":`, nil, true},
	} {
		t.Run(test.input, func(t *testing.T) {
			got, err := Parse([]byte(test.input))
			if (err != nil) != test.wantErr {
				t.Fatalf("Parse error = %v, wantErr %v", err, test.wantErr)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected snapshot: got(-)/want(+):\n%s", diff)
			}
		})
	}
}

func TestSetReplacesWholeSnapshot(t *testing.T) {
	m := NewModel()
	for _, msg := range []string{`{"AzPos":1}`, `{"ElPos":2}`} {
		s, err := Parse([]byte(msg))
		if err != nil {
			t.Fatal(err)
		}
		m.Set(s)
	}
	if diff := cmp.Diff(Snapshot{"ElPos": 2.0}, m.Current()); diff != "" {
		t.Errorf("unexpected snapshot: got(-)/want(+):\n%s", diff)
	}
}

func TestCurrentBeforeFirstMessage(t *testing.T) {
	m := NewModel()
	if got := m.Current(); got == nil || len(got) != 0 {
		t.Errorf("Current() = %v, want empty snapshot", got)
	}
	if _, ok := m.Current().Float("AzPos"); ok {
		t.Error("absent field reported as present")
	}
}

func TestSubscribeOrder(t *testing.T) {
	m := NewModel()
	var got []float64
	cancel := m.Subscribe(func(s Snapshot) {
		az, _ := s.Float("AzPos")
		got = append(got, az)
	})
	m.Set(Snapshot{"AzPos": 1.0})
	m.Set(Snapshot{"AzPos": 2.0})
	cancel()
	m.Set(Snapshot{"AzPos": 3.0})
	if diff := cmp.Diff([]float64{1, 2}, got); diff != "" {
		t.Errorf("unexpected notifications: got(-)/want(+):\n%s", diff)
	}
}

func TestWatcherNext(t *testing.T) {
	m := NewModel()
	w := m.Watch()
	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Set(Snapshot{"ElPos": 5.0})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := w.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if el, _ := s.Float("ElPos"); el != 5 {
		t.Errorf("ElPos = %v, want 5", el)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := w.Next(ctx); err != context.DeadlineExceeded {
		t.Errorf("Next with no update = %v, want deadline exceeded", err)
	}
}

func TestAccessors(t *testing.T) {
	s, err := Parse([]byte(`{
		"CommandAzFlags": "POSITION",
		"CommandElFlags": "POSITION",
		"ShutdownError": 12,
		"Authorized": true,
		"Bodies": ["NONE", "Sun"],
		"Status": [true, false, true]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if !s.PositionHold() {
		t.Error("PositionHold() = false, want true")
	}
	if !s.Authorized() {
		t.Error("Authorized() = false, want true")
	}
	if code, desc := s.Shutdown(); code != 12 || desc != "Elevation position out of range" {
		t.Errorf("Shutdown() = %d, %q", code, desc)
	}
	if diff := cmp.Diff([]string{"NONE", "Sun"}, s.Strings("Bodies")); diff != "" {
		t.Errorf("Bodies: got(-)/want(+):\n%s", diff)
	}
	if got := FormatBits(s.Bools("Status")); got != "101" {
		t.Errorf("FormatBits = %q, want 101", got)
	}

	s["CommandElFlags"] = "VELOCITY"
	if s.PositionHold() {
		t.Error("PositionHold() with velocity elevation = true")
	}
}

func TestShutdownFault(t *testing.T) {
	for code, want := range map[int]string{
		0:  "None",
		6:  "Upper Elevation limit",
		11: "Elevation overvelocity",
		12: "Elevation position out of range",
	} {
		if got, ok := ShutdownFault(code); !ok || got != want {
			t.Errorf("ShutdownFault(%d) = %q, %v; want %q", code, got, ok, want)
		}
	}
	for _, code := range []int{-1, 13} {
		if _, ok := ShutdownFault(code); ok {
			t.Errorf("ShutdownFault(%d) reported known", code)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := FormatDegrees(1234.5, true); got != "1234.50" {
		t.Errorf("FormatDegrees = %q", got)
	}
	if got := FormatDegrees(0, false); got != "" {
		t.Errorf("FormatDegrees(missing) = %q", got)
	}
	if got := FormatHex([]interface{}{10.0, 255.0}); got != "[a, ff]" {
		t.Errorf("FormatHex = %q", got)
	}
}
