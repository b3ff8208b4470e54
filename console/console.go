// Package console is the operator console's view-model. It owns the session
// to the radar server and routes telemetry to the widgets and widget input
// back out as commands.
package console

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/w1xm/rci_console/client"
	"github.com/w1xm/rci_console/command"
	"github.com/w1xm/rci_console/config"
	"github.com/w1xm/rci_console/geometry"
	"github.com/w1xm/rci_console/knob"
	"github.com/w1xm/rci_console/skymap"
	"github.com/w1xm/rci_console/status"
)

var (
	ErrUnknownSurface = errors.New("unknown surface")
	ErrUnknownKnob    = errors.New("unknown knob")
)

// Surface names accepted by Click.
const (
	SurfaceMap       = "map"
	SurfaceCompact   = "compact"
	SurfaceElevation = "elevation"
	SurfacePanorama  = "panorama"
)

// session is the part of client.Conn the console uses.
type session interface {
	command.Sender
	Reconnect(credential string)
	State() client.State
	Close()
}

type boundKnob struct {
	cfg    config.KnobConfig
	editor *knob.Editor
}

type Console struct {
	sess  session
	model *status.Model
	cmds  *command.Dispatcher
	conv  skymap.Converter
	unsub func()

	// mu guards the widgets; knob editors are not safe for concurrent use.
	mu       sync.Mutex
	knobs    map[string]*boundKnob
	surfaces map[string]geometry.Surface
	panorama *geometry.Panorama
}

// New connects to cfg.Server and returns a console bound to that session.
func New(ctx context.Context, cfg *config.Config) (*Console, error) {
	password, err := cfg.Server.Password()
	if err != nil {
		return nil, err
	}
	model := status.NewModel()
	opts := client.Options{
		TLS:           cfg.Server.TLS,
		ClientName:    cfg.Server.ClientName,
		HighRes:       cfg.Server.HighRes,
		Throttle:      cfg.Server.Throttle,
		RetryInterval: cfg.Server.RetryInterval,
		StateCallback: func(s client.State) {
			log.Printf("connection %s", s)
		},
	}
	conn := client.Connect(ctx, cfg.Server.Host, password, opts, model.Set)
	return build(cfg, conn, model), nil
}

func build(cfg *config.Config, sess session, model *status.Model) *Console {
	sc := cfg.Surfaces
	c := &Console{
		sess:  sess,
		model: model,
		cmds:  command.NewDispatcher(sess),
		conv:  skymap.Mean,
		knobs: make(map[string]*boundKnob),
		panorama: &geometry.Panorama{
			PixelsPerDegree: sc.Panorama.PixelsPerDegree,
			HorizonOffset:   sc.Panorama.HorizonOffset,
			Width:           sc.Panorama.Width,
		},
	}
	c.panorama.Follow(0)
	c.surfaces = map[string]geometry.Surface{
		SurfaceMap:       geometry.Dial{Origin: sc.MapDial},
		SurfaceCompact:   geometry.Dial{Origin: sc.CompactDial},
		SurfaceElevation: geometry.ElevationDial{Origin: sc.ElevationGauge},
		SurfacePanorama:  c.panorama,
	}
	for _, kc := range cfg.Knobs {
		bk := &boundKnob{cfg: kc, editor: knob.New(kc.Config)}
		bk.editor.OnChange = c.knobSender(kc)
		c.knobs[kc.Name] = bk
	}
	c.unsub = model.Subscribe(c.onStatus)
	return c
}

func (c *Console) knobSender(kc config.KnobConfig) func(float64) {
	switch kc.Command {
	case "set_azimuth_position":
		return c.cmds.SetAzimuthPosition
	case "set_elevation_position":
		return c.cmds.SetElevationPosition
	case "set_azimuth_velocity":
		return c.cmds.SetAzimuthVelocity
	case "set_elevation_velocity":
		return c.cmds.SetElevationVelocity
	case "set_azimuth_offset":
		return c.cmds.SetAzimuthOffset
	case "set_elevation_offset":
		return c.cmds.SetElevationOffset
	}
	return nil
}

func (c *Console) onStatus(s status.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	authorized := s.Authorized()
	for _, k := range c.knobs {
		k.editor.SetActive(authorized)
		if k.cfg.Field == "" {
			continue
		}
		if v, ok := s.Float(k.cfg.Field); ok {
			k.editor.SetExternal(v)
		}
	}
	if az, ok := s.Float("AzPos"); ok {
		c.panorama.Follow(az)
	}
}

// Status is the latest telemetry snapshot.
func (c *Console) Status() status.Snapshot {
	return c.model.Current()
}

// Watch follows telemetry updates.
func (c *Console) Watch() *status.Watcher {
	return c.model.Watch()
}

func (c *Console) ConnectionState() client.State {
	return c.sess.State()
}

// Commands is the console's dispatcher for direct operator commands.
func (c *Console) Commands() *command.Dispatcher {
	return c.cmds
}

// Send transmits an already-built command.
func (c *Console) Send(cmd command.Command) {
	c.sess.Send(cmd)
}

// Click translates a pointer click on a surface into a move. A surface that
// only yields one axis moves only that axis.
func (c *Console) Click(surface string, p geometry.Point) (geometry.Angles, error) {
	c.mu.Lock()
	s, ok := c.surfaces[surface]
	var a geometry.Angles
	if ok {
		a = s.Translate(p)
	}
	c.mu.Unlock()
	if !ok {
		return a, fmt.Errorf("%w %q", ErrUnknownSurface, surface)
	}
	switch {
	case a.HasAz && a.HasEl:
		c.cmds.Goto(a.Az, a.El)
	case a.HasAz:
		c.cmds.SetAzimuthPosition(a.Az)
	case a.HasEl:
		c.cmds.SetElevationPosition(a.El)
	}
	return a, nil
}

// Login reopens the session with a new credential.
func (c *Console) Login(password string) {
	c.sess.Reconnect(password)
}

func (c *Console) Track(body int) { c.cmds.Track(body) }
func (c *Console) Stop()          { c.cmds.Stop() }
func (c *Console) StopHard()      { c.cmds.StopHard() }
func (c *Console) ExitShutdown()  { c.cmds.ExitShutdown() }

// Pointers places the actual and commanded positions on the sky at t.
func (c *Console) Pointers(t time.Time) []skymap.Pointer {
	return skymap.Pointers(c.model.Current(), c.conv, t)
}

// Close ends the session. The console must not be used afterwards.
func (c *Console) Close() {
	c.unsub()
	c.sess.Close()
}

// KnobNames lists the configured knobs in name order.
func (c *Console) KnobNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.knobs))
	for name := range c.knobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
