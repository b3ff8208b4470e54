// Command radar_logger records every status snapshot from the radar server
// into InfluxDB.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"

	"github.com/w1xm/rci_console/client"
	"github.com/w1xm/rci_console/config"
	"github.com/w1xm/rci_console/status"
)

var (
	configFile = flag.String("config", "", "YAML configuration file")
	server     = flag.String("server", "", "radar server host:port (overrides server.host)")
)

func main() {
	flag.Parse()
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	if *server != "" {
		cfg.Server.Host = *server
	}
	if v := os.Getenv("INFLUX_SERVER"); v != "" {
		cfg.Influx.URL = v
	}
	if v := os.Getenv("INFLUX_TOKEN"); v != "" {
		cfg.Influx.Token = v
	}
	password, err := cfg.Server.Password()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Create client
	influx := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
	defer influx.Close()
	// Get non-blocking write client
	writeApi := influx.WriteApi(cfg.Influx.Org, cfg.Influx.Bucket)
	defer writeApi.Close()
	// Get errors channel
	errorsCh := writeApi.Errors()
	// Create go proc for reading and logging errors
	go func() {
		for err := range errorsCh {
			log.Printf("write error: %v", err)
		}
	}()

	conn := client.Connect(ctx, cfg.Server.Host, password, client.Options{
		TLS:           cfg.Server.TLS,
		ClientName:    "radar_logger",
		RetryInterval: cfg.Server.RetryInterval,
	}, func(s status.Snapshot) {
		logStatus(writeApi, s, time.Now())
	})
	<-ctx.Done()
	conn.Close()
	writeApi.Flush()
}

func logStatus(writeApi api.WriteApi, s status.Snapshot, t time.Time) {
	p := influxdb2.NewPoint("radar.status", nil, flatten(s), t)
	// write asynchronously
	writeApi.WritePoint(p)
}

// flatten turns nested objects and arrays into dotted field names, e.g.
// Sequencer.Bands.0.TX.
func flatten(s status.Snapshot) map[string]interface{} {
	fields := make(map[string]interface{})
	flattenStatus(fields, map[string]interface{}(s), "")
	return fields
}

func flattenStatus(fields map[string]interface{}, status interface{}, prefix string) {
	switch status := status.(type) {
	case map[string]interface{}:
		for k, v := range status {
			flattenStatus(fields, v, prefix+"."+k)
		}
	case []interface{}:
		for k, v := range status {
			flattenStatus(fields, v, fmt.Sprintf("%s.%d", prefix, k))
		}
	case nil:
	default:
		if prefix != "" {
			fields[prefix[1:]] = status
		}
	}
}
