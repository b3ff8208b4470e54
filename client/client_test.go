package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/w1xm/rci_console/command"
	"github.com/w1xm/rci_console/status"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// session is one accepted server-side connection.
type session struct {
	conn      *websocket.Conn
	protocols []string
	query     string
	recv      chan []byte
	closed    chan error
}

type testServer struct {
	*httptest.Server
	sessions chan *session
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{sessions: make(chan *session, 8)}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ws" {
			http.NotFound(w, r)
			return
		}
		protocols := websocket.Subprotocols(r)
		var headers http.Header
		if len(protocols) > 0 {
			headers = http.Header{"Sec-WebSocket-Protocol": []string{protocols[0]}}
		}
		conn, err := upgrader.Upgrade(w, r, headers)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		s := &session{
			conn:      conn,
			protocols: protocols,
			query:     r.URL.RawQuery,
			recv:      make(chan []byte, 16),
			closed:    make(chan error, 1),
		}
		ts.sessions <- s
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				s.closed <- err
				return
			}
			s.recv <- data
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) host() string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func (ts *testServer) accept(t *testing.T) *session {
	t.Helper()
	select {
	case s := <-ts.sessions:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for connection")
	}
	return nil
}

func (s *session) send(t *testing.T, msg string) {
	t.Helper()
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func (s *session) next(t *testing.T) string {
	t.Helper()
	select {
	case data := <-s.recv:
		return string(data)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return ""
}

type stateLog struct {
	mu     sync.Mutex
	states []State
	ch     chan State
}

func newStateLog() *stateLog {
	return &stateLog{ch: make(chan State, 64)}
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
	l.ch <- s
}

func (l *stateLog) waitFor(t *testing.T, want State) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s := <-l.ch:
			if s == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func (l *stateLog) snapshot() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func connect(t *testing.T, ts *testServer, credential string, opts Options, cb StatusCallback) (*Conn, *stateLog) {
	t.Helper()
	states := newStateLog()
	opts.StateCallback = states.record
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 10 * time.Millisecond
	}
	c := Connect(context.Background(), ts.host(), credential, opts, cb)
	t.Cleanup(c.Close)
	return c, states
}

func TestSnapshotsReplaceModel(t *testing.T) {
	ts := newTestServer(t)
	model := status.NewModel()
	w := model.Watch()
	connect(t, ts, "", Options{}, model.Set)
	s := ts.accept(t)

	s.send(t, `{"AzPos":1}`)
	s.send(t, `{"ElPos":2}`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		snap, err := w.Next(ctx)
		if err != nil {
			t.Fatalf("waiting for status: %v", err)
		}
		if snap.Has("ElPos") {
			break
		}
	}
	if diff := cmp.Diff(status.Snapshot{"ElPos": 2.0}, model.Current()); diff != "" {
		t.Errorf("unexpected snapshot: got(-)/want(+):\n%s", diff)
	}
}

func TestMalformedPayloadKeepsChannel(t *testing.T) {
	ts := newTestServer(t)
	got := make(chan status.Snapshot, 4)
	c, _ := connect(t, ts, "", Options{}, func(s status.Snapshot) { got <- s })
	s := ts.accept(t)

	s.send(t, `not json`)
	s.send(t, `[1,2,3]`)
	s.send(t, `{"AzPos":3}`)
	select {
	case snap := <-got:
		if diff := cmp.Diff(status.Snapshot{"AzPos": 3.0}, snap); diff != "" {
			t.Errorf("unexpected snapshot: got(-)/want(+):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after malformed payloads")
	}
	if st := c.State(); st != Open {
		t.Errorf("State() = %v, want open", st)
	}
	select {
	case <-ts.sessions:
		t.Error("malformed payload caused a reconnect")
	default:
	}
}

func TestSendSerializesCommand(t *testing.T) {
	ts := newTestServer(t)
	c, states := connect(t, ts, "", Options{}, nil)
	s := ts.accept(t)
	states.waitFor(t, Open)

	c.Send(command.SetAzimuthVelocity{Velocity: 2.5})
	c.Send(command.Stop{})
	c.Send(command.Write{Register: 3, Values: []uint16{1, 2}})
	for _, want := range []string{
		`{"command":"set_azimuth_velocity","velocity":2.5}`,
		`{"command":"stop"}`,
		`{"command":"write","register":3,"values":[1,2]}`,
	} {
		if got := s.next(t); got != want {
			t.Errorf("server received %s, want %s", got, want)
		}
	}
}

func TestSendWhileDisconnectedDrops(t *testing.T) {
	// Nothing listens here; dials fail and the conn keeps retrying.
	c := Connect(context.Background(), "127.0.0.1:1", "", Options{RetryInterval: 10 * time.Millisecond}, nil)
	defer c.Close()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			c.Send(command.Stop{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked while disconnected")
	}
}

func TestCredentialAndQuery(t *testing.T) {
	ts := newTestServer(t)
	connect(t, ts, "hunter2", Options{ClientName: "console", HighRes: true}, nil)
	s := ts.accept(t)
	if diff := cmp.Diff([]string{"hunter2"}, s.protocols); diff != "" {
		t.Errorf("unexpected subprotocols: got(-)/want(+):\n%s", diff)
	}
	if s.query != "client=console&highres=1" {
		t.Errorf("query = %q", s.query)
	}
}

func TestAnonymousHasNoSubprotocol(t *testing.T) {
	ts := newTestServer(t)
	connect(t, ts, "", Options{}, nil)
	if s := ts.accept(t); len(s.protocols) != 0 {
		t.Errorf("anonymous session offered %v", s.protocols)
	}
}

func TestReconnectClosesOldChannelFirst(t *testing.T) {
	ts := newTestServer(t)
	c, states := connect(t, ts, "old", Options{}, nil)
	first := ts.accept(t)
	states.waitFor(t, Open)

	c.Reconnect("new")
	second := ts.accept(t)
	states.waitFor(t, Open)

	select {
	case err := <-first.closed:
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Errorf("old channel closed with %v, want normal closure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("old channel was not closed")
	}
	if diff := cmp.Diff([]string{"new"}, second.protocols); diff != "" {
		t.Errorf("unexpected subprotocols: got(-)/want(+):\n%s", diff)
	}

	// The old channel must be reported closed before the new one connects.
	// Conns start out Connecting, so the first transition is to Open.
	want := []State{Open, ClosedNormal, Connecting, Open}
	if diff := cmp.Diff(want, states.snapshot()); diff != "" {
		t.Errorf("unexpected state sequence: got(-)/want(+):\n%s", diff)
	}

	// Commands go to the new channel only.
	c.Send(command.ExitShutdown{})
	if got := second.next(t); got != `{"command":"exit_shutdown"}` {
		t.Errorf("new channel received %s", got)
	}
}

func TestAbnormalCloseRetries(t *testing.T) {
	ts := newTestServer(t)
	_, states := connect(t, ts, "", Options{}, nil)
	first := ts.accept(t)
	// Drop the TCP connection without a close frame.
	first.conn.UnderlyingConn().Close()

	states.waitFor(t, ClosedRetrying)
	second := ts.accept(t)
	second.send(t, `{"AzPos":1}`)
	states.waitFor(t, Open)
}

func TestServerNormalCloseStops(t *testing.T) {
	ts := newTestServer(t)
	c, states := connect(t, ts, "", Options{}, nil)
	s := ts.accept(t)
	states.waitFor(t, Open)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	states.waitFor(t, ClosedNormal)
	select {
	case <-ts.sessions:
		t.Error("client reconnected after a normal closure")
	case <-time.After(100 * time.Millisecond):
	}
	if st := c.State(); st != ClosedNormal {
		t.Errorf("State() = %v, want closed", st)
	}
}

func TestThrottleAcks(t *testing.T) {
	ts := newTestServer(t)
	connect(t, ts, "", Options{Throttle: true}, nil)
	s := ts.accept(t)
	if !strings.Contains(s.query, "throttle=1") {
		t.Errorf("query %q lacks throttle", s.query)
	}
	s.send(t, `{"SequenceNumber":7,"AzPos":1}`)
	if got := s.next(t); got != `{"command":"ack","seq":7}` {
		t.Errorf("server received %s, want ack", got)
	}
}

func TestURL(t *testing.T) {
	for _, test := range []struct {
		opts Options
		want string
	}{
		{Options{}, "ws://radar:8502/api/ws"},
		{Options{TLS: true}, "wss://radar:8502/api/ws"},
		{Options{ClientName: "my console", Throttle: true}, "ws://radar:8502/api/ws?client=my+console&throttle=1"},
	} {
		c := &Conn{host: "radar:8502", opts: test.opts}
		if got := c.URL(); got != test.want {
			t.Errorf("URL() = %q, want %q", got, test.want)
		}
	}
}
