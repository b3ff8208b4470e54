// Package rotctld serves the hamlib rotctld text protocol so that tracking
// programs can steer the antenna through the console session.
package rotctld

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/w1xm/rci_console/rotator"
	"github.com/w1xm/rci_console/status"
)

// hamlib error codes
const (
	rprtOK     = 0
	rprtEINVAL = -22
)

type Server struct {
	r      rotator.Rotator
	status func() status.Snapshot
}

// New returns a server that moves r and reports positions from status.
func New(r rotator.Rotator, status func() status.Snapshot) *Server {
	return &Server{r: r, status: status}
}

// Listen accepts rotctld connections on addr until ctx is done.
func (s *Server) Listen(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing rotctld socket")
		ln.Close()
	}()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				log.Printf("failed to accept: %v", err)
				continue
			}
			go s.Handle(conn)
		}
	}()
	return ln.Addr(), nil
}

// Handle serves one client until it disconnects.
func (s *Server) Handle(conn io.ReadWriteCloser) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		// Two forms of command: single character, or "+\" followed by command name.
		cmd := scanner.Text()
		var args []string
		var extended bool
		if len(cmd) == 0 {
			continue
		} else if len(cmd) > 2 && cmd[0:2] == `+\` {
			extended = true
			parts := strings.Fields(cmd)
			cmd = parts[0][2:]
			args = parts[1:]
			fmt.Fprintf(conn, "%s:\n", cmd)
		} else {
			// Space after command is optional.
			if len(cmd) > 1 {
				args = strings.Fields(cmd[1:])
			}
			cmd = string(cmd[0])
		}
		rprt := rprtEINVAL
		switch cmd {
		case "1", "dump_caps":
			fmt.Fprint(conn, caps)
			rprt = rprtOK
		case "S", "stop":
			extended = true // always print RPRT
			s.r.Stop()
			rprt = rprtOK
		case "P", "set_pos":
			extended = true // always print RPRT
			rprt = s.setPos(args)
		case "M", "move":
			extended = true // always print RPRT
			rprt = s.move(args)
		case "p", "get_pos":
			rprt = s.getPos(conn, extended)
		}
		if extended || rprt != rprtOK {
			fmt.Fprintf(conn, "RPRT %d\n", rprt)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("reading rotctld command: %v", err)
	}
}

const caps = `Model name: RCI
Mfg name: Sigmet
Rot type: Az-El
Min Azimuth: -180.00
Max Azimuth: 180.00
Min Elevation: 0.00
Max Elevation: 90.00
Can set Position: Y
Can get Position: Y
Can Stop: Y
Can Park: N
Can Reset: N
Can Move: Y
Can get Info: N
`

func (s *Server) setPos(args []string) int {
	if len(args) != 2 {
		return rprtEINVAL
	}
	az, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return rprtEINVAL
	}
	el, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return rprtEINVAL
	}
	if az < 0 {
		az += 360
	}
	s.r.SetAzimuthPosition(az)
	s.r.SetElevationPosition(el)
	return rprtOK
}

func (s *Server) move(args []string) int {
	if len(args) != 2 {
		return rprtEINVAL
	}
	dir, err := strconv.Atoi(args[0])
	if err != nil {
		return rprtEINVAL
	}
	// Speed is 0-100. We divide by 10 to get deg/sec.
	speed, err := strconv.Atoi(args[1])
	if err != nil {
		return rprtEINVAL
	}
	switch dir {
	case 2: // Up
		s.r.SetElevationVelocity(float64(speed) / 10)
	case 4: // Down
		s.r.SetElevationVelocity(-float64(speed) / 10)
	case 8: // Left
		s.r.SetAzimuthVelocity(-float64(speed) / 10)
	case 16: // Right
		s.r.SetAzimuthVelocity(float64(speed) / 10)
	default:
		return rprtEINVAL
	}
	return rprtOK
}

func (s *Server) getPos(w io.Writer, extended bool) int {
	snap := s.status()
	az, okAz := snap.Float("AzPos")
	el, okEl := snap.Float("ElPos")
	if !okAz || !okEl {
		return rprtEINVAL
	}
	if az > 180 {
		az -= 360
	}
	if extended {
		fmt.Fprintf(w, "Azimuth: %.6f\nElevation: %.6f\n", az, el)
	} else {
		fmt.Fprintf(w, "%.6f\n%.6f\n", az, el)
	}
	return rprtOK
}
