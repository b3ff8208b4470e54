// Command rci_console runs the operator console against a radar server and
// exposes it over HTTP for a browser front end.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/w1xm/rci_console/config"
	"github.com/w1xm/rci_console/console"
	"github.com/w1xm/rci_console/internal/simradar"
	"github.com/w1xm/rci_console/rotctld"
)

var (
	configFile   = flag.String("config", "", "YAML configuration file")
	addr         = flag.String("addr", "", "address to serve the console on (overrides listen)")
	server       = flag.String("server", "", "radar server host:port (overrides server.host)")
	passwordFile = flag.String("password_file", "", "file containing the server password")
	simulate     = flag.Bool("simulate", false, "run against an in-process simulated radar")
	rotctldAddr  = flag.String("rotctld", "", "address to serve the hamlib rotctld protocol on")
	latitude     = flag.Float64("latitude", 42.360326, "simulated site latitude")
	longitude    = flag.Float64("longitude", -71.089324, "simulated site longitude")
)

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return nil, err
		}
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *server != "" {
		cfg.Server.Host = *server
	}
	if *passwordFile != "" {
		cfg.Server.PasswordFile = *passwordFile
	}
	return cfg, config.Validate(cfg)
}

// startSimulator serves a simulated radar on a loopback port and points cfg
// at it.
func startSimulator(ctx context.Context, cfg *config.Config) error {
	sim := simradar.New(simradar.Options{
		TrustLocal: true,
		Latitude:   *latitude,
		Longitude:  *longitude,
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: sim.Handler()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("simulator: %v", err)
		}
	}()
	go sim.Run(ctx)
	cfg.Server.Host = ln.Addr().String()
	cfg.Server.TLS = false
	log.Printf("simulated radar on %s", cfg.Server.Host)
	return nil
}

func main() {
	flag.Parse()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if *simulate {
		if err := startSimulator(ctx, cfg); err != nil {
			log.Fatal(err)
		}
	}

	c, err := console.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	if *rotctldAddr != "" {
		rs := rotctld.New(c.Commands(), c.Status)
		if _, err := rs.Listen(ctx, *rotctldAddr); err != nil {
			log.Fatal(err)
		}
	}

	srv := &http.Server{
		Handler:      newRouter(c),
		Addr:         cfg.Listen,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Printf("serving console on %s", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
