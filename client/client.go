// Package client keeps the console's WebSocket session to the radar server.
//
// A Conn dials ws://<host>/api/ws, reconnects after abnormal closures, hands
// every inbound status snapshot to a callback, and sends commands
// fire-and-forget. Commands sent while the channel is not open are dropped.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/w1xm/rci_console/command"
	"github.com/w1xm/rci_console/metrics"
	"github.com/w1xm/rci_console/status"
)

type State int

const (
	Connecting State = iota
	Open
	// ClosedNormal is a clean shutdown; no reconnect follows.
	ClosedNormal
	// ClosedRetrying follows an abnormal closure or failed dial.
	ClosedRetrying
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case ClosedNormal:
		return "closed"
	case ClosedRetrying:
		return "retrying"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type StatusCallback func(s status.Snapshot)

type Options struct {
	// TLS selects wss://.
	TLS bool
	// ClientName is reported to the server in the client query parameter.
	ClientName string
	// HighRes asks the server not to rate-limit status updates.
	HighRes bool
	// Throttle asks the server to wait for acks; every snapshot carrying a
	// SequenceNumber is acknowledged.
	Throttle bool
	// RetryInterval is the minimum time between dial attempts; 1s if zero.
	RetryInterval time.Duration
	// StateCallback is called on every state change.
	StateCallback func(State)
	Dialer        *websocket.Dialer
}

// sendBuffer bounds the frames waiting for the session writer.
const sendBuffer = 16

type Conn struct {
	ctx            context.Context
	host           string
	opts           Options
	statusCallback StatusCallback
	limiter        *rate.Limiter

	// lifeMu serializes Reconnect and Close.
	lifeMu sync.Mutex

	mu     sync.Mutex
	state  State
	out    chan []byte
	cancel context.CancelFunc
	done   chan struct{}
}

// Connect starts a session in the background and returns immediately. A
// non-empty credential is offered as the WebSocket sub-protocol.
func Connect(ctx context.Context, host, credential string, opts Options, statusCallback StatusCallback) *Conn {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	c := &Conn{
		ctx:            ctx,
		host:           host,
		opts:           opts,
		statusCallback: statusCallback,
		limiter:        rate.NewLimiter(rate.Every(opts.RetryInterval), 1),
	}
	c.start(credential)
	return c
}

// URL is the endpoint the session dials.
func (c *Conn) URL() string {
	u := url.URL{Scheme: "ws", Host: c.host, Path: "/api/ws"}
	if c.opts.TLS {
		u.Scheme = "wss"
	}
	q := url.Values{}
	if c.opts.ClientName != "" {
		q.Set("client", c.opts.ClientName)
	}
	if c.opts.HighRes {
		q.Set("highres", "1")
	}
	if c.opts.Throttle {
		q.Set("throttle", "1")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if !changed {
		return
	}
	metrics.ConnectionState.Set(float64(s))
	if c.opts.StateCallback != nil {
		c.opts.StateCallback(s)
	}
}

// Send queues c for the open channel without blocking. The command is dropped
// if the channel is not open or the writer is saturated.
func (c *Conn) Send(cmd command.Command) {
	data, err := command.Marshal(cmd)
	if err != nil {
		log.Printf("encoding command: %v", err)
		return
	}
	c.mu.Lock()
	out := c.out
	c.mu.Unlock()
	if !trySend(out, data) {
		log.Printf("dropping %s: channel not open", cmd.Name())
		metrics.CommandsDropped.WithLabelValues(cmd.Name()).Inc()
		return
	}
	metrics.CommandsSent.WithLabelValues(cmd.Name()).Inc()
}

func trySend(out chan []byte, data []byte) bool {
	if out == nil {
		return false
	}
	select {
	case out <- data:
		return true
	default:
		return false
	}
}

// Reconnect closes the current channel with a normal closure, waits for it to
// finish, and then opens a new one with credential.
func (c *Conn) Reconnect(credential string) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	c.stop()
	c.start(credential)
}

// Close shuts the session down cleanly. It does not reconnect.
func (c *Conn) Close() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	c.stop()
	c.setState(ClosedNormal)
}

func (c *Conn) start(credential string) {
	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()
	go func() {
		defer close(done)
		c.reconnectLoop(ctx, credential)
	}()
}

func (c *Conn) stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// reconnectLoop owns credential for the lifetime of one session.
func (c *Conn) reconnectLoop(ctx context.Context, credential string) {
	defer c.setState(ClosedNormal)
	for {
		c.setState(Connecting)
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		ws, err := c.dial(ctx, credential)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.Dials.WithLabelValues("error").Inc()
			log.Printf("opening %q: %v", c.URL(), err)
			c.setState(ClosedRetrying)
			continue
		}
		metrics.Dials.WithLabelValues("ok").Inc()
		log.Printf("opened %q", c.URL())
		err = c.watch(ctx, ws)
		if ctx.Err() != nil {
			return
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			log.Printf("server closed %q", c.URL())
			return
		}
		log.Printf("watching %q: %v", c.URL(), err)
		c.setState(ClosedRetrying)
	}
}

func (c *Conn) dial(ctx context.Context, credential string) (*websocket.Conn, error) {
	d := *websocket.DefaultDialer
	if c.opts.Dialer != nil {
		d = *c.opts.Dialer
	}
	if credential != "" {
		d.Subprotocols = []string{credential}
	}
	ws, resp, err := d.DialContext(ctx, c.URL(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%s: %w", resp.Status, err)
		}
		return nil, err
	}
	return ws, nil
}

var errCanceled = errors.New("session canceled")

// watch runs one open channel until it fails, the server closes it, or ctx is
// canceled. It returns the reader's error.
func (c *Conn) watch(ctx context.Context, ws *websocket.Conn) error {
	out := make(chan []byte, sendBuffer)
	c.mu.Lock()
	c.out = out
	c.mu.Unlock()
	c.setState(Open)
	defer func() {
		c.mu.Lock()
		c.out = nil
		c.mu.Unlock()
	}()

	var readErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Wait for the session to end, then close the connection.
		<-gctx.Done()
		if ctx.Err() != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil && err != websocket.ErrCloseSent {
				log.Printf("closing %q: %v", c.URL(), err)
			}
		}
		return ws.Close()
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case data := <-out:
				if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
					return err
				}
			}
		}
	})
	g.Go(func() error {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				readErr = err
				if ctx.Err() != nil {
					return errCanceled
				}
				return err
			}
			c.handle(out, data)
		}
	})
	g.Wait()
	return readErr
}

func (c *Conn) handle(out chan []byte, data []byte) {
	snap, err := status.Parse(data)
	if err != nil {
		log.Printf("parsing status: %v", err)
		metrics.MalformedPayloads.Inc()
		return
	}
	metrics.SnapshotsReceived.Inc()
	if c.opts.Throttle {
		if seq, ok := snap.Int("SequenceNumber"); ok {
			ack, _ := command.Marshal(command.Ack{Seq: seq})
			trySend(out, ack)
		}
	}
	if c.statusCallback != nil {
		c.statusCallback(snap)
	}
}
