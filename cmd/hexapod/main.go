// Hexapod - behaviour controller for a six-legged walker
//
// Runs the fixed-period control loop, the touch-driven behaviour machine
// and, optionally, the web dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-hexapod/internal/config"
	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/internal/rt"
	"github.com/teslashibe/go-hexapod/pkg/hexapod"
	"github.com/teslashibe/go-hexapod/pkg/robot"
	"github.com/teslashibe/go-hexapod/pkg/servolink"
	"github.com/teslashibe/go-hexapod/pkg/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}

	log.InitWithOptions(cfg.Log.Options())

	if err := rt.LockMemory(); err != nil {
		log.Warn("memory locking unavailable", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	buf := &robot.CommandBuffer{}
	engine := robot.NewSimEngine(buf)

	hw, closeHW, err := openDriver(cfg, buf)
	if err != nil {
		return err
	}
	defer closeHW()

	var dash *web.Server
	publish := func(s hexapod.Snapshot) {
		if dash != nil {
			dash.PublishSnapshot(s)
		}
	}

	bot, err := hexapod.New(ctx, cfg, hw, engine, hexapod.WithSnapshotHook(publish))
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer bot.Shutdown()

	if cfg.Web.Enabled {
		dash = web.NewServer(cfg.Web.Addr, bot)
		dash.StartAsync()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			if err := dash.Shutdown(sctx); err != nil {
				log.Warn("dashboard shutdown", "error", err)
			}
		}()
	}

	log.Info("hexapod starting",
		"driver", cfg.Driver.Kind,
		"frequency_hz", cfg.Control.FrequencyHz,
		"session", bot.SessionID())

	if err := bot.WakeUp(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("wake up failed: %w", err)
	}
	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	return nil
}

// openDriver builds the hardware driver the configuration asks for.
func openDriver(cfg *config.Config, buf *robot.CommandBuffer) (robot.Hardware, func(), error) {
	switch cfg.Driver.Kind {
	case config.DriverSerial:
		sc := cfg.Driver.Serial
		d, err := servolink.Open(sc.Port, servolink.PortOptions{
			BaudRate: sc.BaudRate,
			DataBits: sc.DataBits,
			StopBits: sc.StopBits,
			Parity:   sc.Parity,
		}, buf)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", sc.Port, err)
		}
		return d, func() {
			if err := d.Close(); err != nil {
				log.Warn("close serial port", "error", err)
			}
		}, nil
	default:
		return robot.NewSimHardware(buf), func() {}, nil
	}
}

// parseFlags loads the configuration and applies command line overrides.
func parseFlags() (*config.Config, error) {
	path := flag.String("config", "", "YAML config file (overrides HEXAPOD_CONFIG)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	driver := flag.String("driver", "", "Hardware driver: sim or serial")
	port := flag.String("port", "", "Serial port for the servo board")
	addr := flag.String("web", "", "Dashboard listen address")
	noWeb := flag.Bool("no-web", false, "Disable the dashboard")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		return nil, err
	}

	if *debug {
		cfg.Log.Level = "debug"
	}
	if *driver != "" {
		cfg.Driver.Kind = *driver
	}
	if *port != "" {
		cfg.Driver.Serial.Port = *port
	}
	if *addr != "" {
		cfg.Web.Addr = *addr
	}
	if *noWeb {
		cfg.Web.Enabled = false
	}
	return cfg, cfg.Validate()
}
