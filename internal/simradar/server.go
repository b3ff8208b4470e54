// Package simradar is an in-process stand-in for the radar server. It speaks
// the same WebSocket protocol at /api/ws and drives a simulated mount, so the
// console can be exercised without hardware.
package simradar

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/w1xm/rci_console/command"
)

const numBands = 4

type Band struct {
	CommandTX bool
	CommandRX bool
	TX        bool
}

type SequencerStatus struct {
	Error bool
	Bands []Band
}

type AuthorizedClient struct {
	RemoteAddr string
	Name       string
}

// Status is what the server reports; field names are the wire keys.
type Status struct {
	SequenceNumber int

	AzPos, ElPos                   float64
	AzVel, ElVel                   float64
	CommandAzPos, CommandElPos     float64
	CommandAzVel, CommandElVel     float64
	CommandAzFlags, CommandElFlags string
	Status, CommandStatus          [48]bool
	ElevationLower, ElevationUpper bool
	Simulator                      bool
	ShutdownError                  int
	WriteRegisters                 [11]uint16
	Moving                         bool

	Sequencer           SequencerStatus
	CommandTrackingBody int
	Bodies              []string
	// Authorized is true if the receiving connection may mutate state.
	Authorized          bool
	AuthorizedClients   []AuthorizedClient
	Latitude, Longitude float64
}

func (s Status) clone() Status {
	s.Bodies = append([]string{}, s.Bodies...)
	s.AuthorizedClients = append([]AuthorizedClient{}, s.AuthorizedClients...)
	s.Sequencer.Bands = append([]Band{}, s.Sequencer.Bands...)
	return s
}

type Options struct {
	// Passwords accepted as the WebSocket sub-protocol.
	Passwords []string
	// TrustLocal authorizes every loopback connection.
	TrustLocal          bool
	Latitude, Longitude float64
	// Period is the minimum spacing of status messages on normal sessions;
	// 25ms if zero.
	Period time.Duration
}

type Server struct {
	opts Options

	mu       sync.Mutex
	az, el   axis
	azOffset float64
	elOffset float64
	status   Status
	changed  chan struct{}
}

func New(opts Options) *Server {
	if opts.Period <= 0 {
		opts.Period = 25 * time.Millisecond
	}
	s := &Server{
		opts:    opts,
		changed: make(chan struct{}),
		az:      axis{flags: "NONE"},
		el:      axis{flags: "NONE"},
		status: Status{
			Simulator: true,
			Latitude:  opts.Latitude,
			Longitude: opts.Longitude,
			Sequencer: SequencerStatus{Bands: make([]Band, numBands)},
			Bodies: []string{
				"NONE",
				"Sun", "Moon", "Mercury", "Venus", "Mars", "Jupiter",
				"Saturn", "Uranus", "Neptune", "Pluto",
				"Polaris", "Vega", "Cygnus A",
			},
		},
	}
	s.publishLocked()
	return s
}

// Status returns a copy of the current status.
func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.clone()
}

// Run advances the simulation until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	t := time.NewTicker(stepSize)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		s.step(stepSize)
	}
}

func (s *Server) step(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	azStatus := s.az.step(dt, true)
	elStatus := s.el.step(dt, false)
	s.status.ElevationLower = s.el.pos <= minElevation
	s.status.ElevationUpper = s.el.pos >= maxElevation
	if s.status.ElevationLower || s.status.ElevationUpper {
		s.el.pos = clamp(s.el.pos, minElevation, maxElevation)
		s.el.vel = 0
	}
	s.status.Status = statusBits(uint64(azStatus | elStatus<<8))
	s.publishLocked()
}

// statusBits unpacks the status inputs, least significant bit first.
func statusBits(reg uint64) [48]bool {
	var bits [48]bool
	for i := range bits {
		bits[i] = (reg>>uint(i))&1 == 1
	}
	return bits
}

// commandBits unpacks the command status from write registers 5 onwards,
// eight bits per register.
func commandBits(regs [11]uint16) [48]bool {
	var bits [48]bool
	for i := range bits {
		bits[i] = (regs[5+i/8]>>(uint(i)%8))&1 == 1
	}
	return bits
}

func addAngle(angle, offset float64) float64 {
	return math.Mod(math.Mod(angle+offset, 360)+360, 360)
}

// publishLocked copies the axes into the status and wakes every session.
func (s *Server) publishLocked() {
	st := &s.status
	st.AzPos = addAngle(s.az.pos, s.azOffset)
	st.ElPos = s.el.pos + s.elOffset
	st.AzVel, st.ElVel = s.az.vel, s.el.vel
	st.CommandAzPos = addAngle(s.az.cmdPos, s.azOffset)
	st.CommandElPos = s.el.cmdPos + s.elOffset
	st.CommandAzVel, st.CommandElVel = s.az.cmdVel, s.el.cmdVel
	st.CommandAzFlags, st.CommandElFlags = s.az.flags, s.el.flags
	st.Moving = math.Abs(s.az.vel) > 0.01 || math.Abs(s.el.vel) > 0.01
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Server) setPosition(a *axis, pos float64) {
	a.cmdPos = pos
	a.flags = "POSITION"
}

func (s *Server) setVelocity(a *axis, vel float64) {
	a.cmdVel = vel
	a.flags = "VELOCITY"
}

func clampAngle(x float64) float64 {
	return math.Mod(math.Mod(x, 360)+360, 360)
}

// Apply executes an authorized command.
func (s *Server) Apply(c command.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.publishLocked()

	// Any motion command cancels body tracking.
	switch c.(type) {
	case command.SetAzimuthPosition, command.SetElevationPosition,
		command.SetAzimuthVelocity, command.SetElevationVelocity,
		command.Stop, command.StopHard:
		s.status.CommandTrackingBody = 0
	}

	switch c := c.(type) {
	case command.Track:
		if c.Body < 0 || c.Body >= len(s.status.Bodies) {
			log.Printf("track: no body %d", c.Body)
			return
		}
		s.status.CommandTrackingBody = c.Body
	case command.Write:
		for i, v := range c.Values {
			if r := c.Register + i; r >= 0 && r < len(s.status.WriteRegisters) {
				s.status.WriteRegisters[r] = v
			}
		}
		s.status.CommandStatus = commandBits(s.status.WriteRegisters)
	case command.SetAzimuthPosition:
		s.setPosition(&s.az, addAngle(clampAngle(c.Position), -s.azOffset))
	case command.SetElevationPosition:
		// step holds elevation inside the mount limits.
		s.setPosition(&s.el, c.Position-s.elOffset)
	case command.SetAzimuthVelocity:
		s.setVelocity(&s.az, c.Velocity)
	case command.SetElevationVelocity:
		s.setVelocity(&s.el, c.Velocity)
	case command.Stop:
		s.az.flags, s.el.flags = "NONE", "NONE"
	case command.StopHard:
		s.setVelocity(&s.az, 0)
		s.setVelocity(&s.el, 0)
	case command.ExitShutdown:
		s.status.ShutdownError = 0
	case command.SetAzimuthOffset:
		// Keep the commanded position in the offset frame.
		if s.az.flags == "POSITION" {
			s.az.cmdPos = addAngle(s.az.cmdPos, s.azOffset-c.Position)
		}
		s.azOffset = c.Position
	case command.SetElevationOffset:
		if s.el.flags == "POSITION" {
			s.el.cmdPos += s.elOffset - c.Position
		}
		s.elOffset = c.Position
	case command.AddStar:
		s.status.Bodies = append(s.status.Bodies, c.Star.StarName)
	case command.SetBandTX:
		if b := s.band(c.Band); b != nil {
			b.CommandTX = c.Enabled
			b.TX = c.Enabled && b.CommandRX
		}
	case command.SetBandRX:
		if b := s.band(c.Band); b != nil {
			b.CommandTX, b.TX = false, false
			b.CommandRX = c.Enabled
		}
	default:
		log.Printf("unknown command: %+v", c)
	}
}

func (s *Server) band(i int) *Band {
	if i < 0 || i >= len(s.status.Sequencer.Bands) {
		log.Printf("no band %d", i)
		return nil
	}
	return &s.status.Sequencer.Bands[i]
}

// SetShutdown forces a shutdown error, as the controller does on a fault.
func (s *Server) SetShutdown(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.ShutdownError = code
	s.az.flags, s.el.flags = "NONE", "NONE"
	s.publishLocked()
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.statusHandler)
	r.HandleFunc("/api/ws", s.socketHandler)
	return r
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(s.Status())
	if err != nil {
		log.Print(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func isLocal(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	switch host {
	case "127.0.0.1", "::1":
		return true
	}
	return false
}

func (s *Server) isAuth(r *http.Request) (string, bool) {
	protocols := websocket.Subprotocols(r)
	if len(protocols) < 1 {
		return "", false
	}
	for _, p := range s.opts.Passwords {
		if p == protocols[0] {
			return p, true
		}
	}
	return "", false
}

func (s *Server) addClient(c AuthorizedClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.AuthorizedClients = append(s.status.AuthorizedClients, c)
	s.publishLocked()
}

func (s *Server) removeClient(c AuthorizedClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c2 := range s.status.AuthorizedClients {
		if c2 == c {
			s.status.AuthorizedClients = append(s.status.AuthorizedClients[:i], s.status.AuthorizedClients[i+1:]...)
			break
		}
	}
	s.publishLocked()
}

// ackWindow is how many unacknowledged messages a throttled session may have
// outstanding.
const ackWindow = 5

func (s *Server) socketHandler(w http.ResponseWriter, r *http.Request) {
	var headers http.Header
	password, auth := s.isAuth(r)
	if auth {
		headers = http.Header{"Sec-WebSocket-Protocol": []string{password}}
	}
	clientName := r.FormValue("client")
	highres := r.FormValue("highres") != ""
	throttle := r.FormValue("throttle") != ""

	conn, err := upgrader.Upgrade(w, r, headers)
	if err != nil {
		log.Println(err)
		return
	}
	defer conn.Close()

	auth = auth || (s.opts.TrustLocal && isLocal(r))
	log.Printf("new client %q from %q, highres: %v throttle: %v auth: %v", clientName, r.RemoteAddr, highres, throttle, auth)

	client := AuthorizedClient{RemoteAddr: r.RemoteAddr, Name: clientName}
	if auth {
		s.addClient(client)
		defer s.removeClient(client)
	}

	acks := make(chan int, 16)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			c, err := command.Unmarshal(data)
			if err != nil {
				log.Printf("parsing json: %v", err)
				continue
			}
			if ack, ok := c.(command.Ack); ok {
				select {
				case acks <- ack.Seq:
				default:
				}
				continue
			}
			if !auth {
				log.Printf("unauthenticated connection tried to %s", c.Name())
				continue
			}
			s.Apply(c)
		}
	})
	g.Go(func() error {
		defer conn.Close()
		seq, acked := 0, -1
		for {
			s.mu.Lock()
			st := s.status.clone()
			changed := s.changed
			s.mu.Unlock()

			st.SequenceNumber = seq
			st.Authorized = auth
			data, err := json.Marshal(st)
			if err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
			seq++

			for throttle && seq-acked > ackWindow {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case a := <-acks:
					acked = max(acked, a)
				}
			}
			if !highres {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(s.opts.Period):
				}
			}
		wait:
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-changed:
					break wait
				case a := <-acks:
					acked = max(acked, a)
				}
			}
		}
	})
	if err := g.Wait(); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Printf("client %q: %v", clientName, err)
	}
}
