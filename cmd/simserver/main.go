// Command simserver runs the discrete-event engine's worked-example
// domain: a handful of orbiting satellites, paced by a real-time clock,
// with new satellites addable at runtime over an HTTP endpoint that
// feeds the server's external interruption channel.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/discretesim/clock"
	"github.com/signalsfoundry/discretesim/internal/logging"
	"github.com/signalsfoundry/discretesim/internal/observability"
	"github.com/signalsfoundry/discretesim/internal/tracing"
	"github.com/signalsfoundry/discretesim/satdemo"
	"github.com/signalsfoundry/discretesim/server"
	"github.com/signalsfoundry/discretesim/simtime"
)

// Config holds simserver's runtime configuration, loaded from flags
// with environment-variable defaults.
type Config struct {
	MetricsAddress   string
	LogLevel         string
	LogFormat        string
	Tick             time.Duration
	InitialSatellite string
	TLELine1         string
	TLELine2         string
}

func main() {
	cfg := loadConfig()
	log := logging.New(logging.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		AddSource: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var lis net.Listener
	if cfg.MetricsAddress != "" {
		var err error
		lis, err = net.Listen("tcp", cfg.MetricsAddress)
		if err != nil {
			log.Error(context.Background(), "failed to bind metrics address", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(context.Background(), "simserver exited with error", logging.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig() Config {
	defaultMetrics := envOrDefault("SIMCORE_METRICS_ADDRESS", ":9090")
	defaultLogLevel := envOrDefault("SIMCORE_LOG_LEVEL", "info")
	defaultLogFormat := envOrDefault("SIMCORE_LOG_FORMAT", "text")
	defaultTick := envDuration("SIMCORE_TICK", time.Second)
	defaultSatName := envOrDefault("SIMCORE_SATELLITE_NAME", "LEO-Sat-1")
	defaultTLE1 := envOrDefault("SIMCORE_TLE_LINE1",
		"1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990")
	defaultTLE2 := envOrDefault("SIMCORE_TLE_LINE2",
		"2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760")

	metricsAddr := flag.String("metrics-address", defaultMetrics, "HTTP address for Prometheus /metrics and the satellite-spawn endpoint (empty to disable)")
	logLevel := flag.String("log-level", defaultLogLevel, "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", defaultLogFormat, "Log format: text or json")
	tick := flag.Duration("tick", defaultTick, "Interval between a satellite's position updates")
	satName := flag.String("satellite-name", defaultSatName, "Name of the satellite seeded at startup")
	tle1 := flag.String("tle-line1", defaultTLE1, "TLE line 1 for the satellite seeded at startup")
	tle2 := flag.String("tle-line2", defaultTLE2, "TLE line 2 for the satellite seeded at startup")

	flag.Parse()

	if *tick <= 0 {
		*tick = time.Second
	}

	return Config{
		MetricsAddress:   *metricsAddr,
		LogLevel:         *logLevel,
		LogFormat:        *logFormat,
		Tick:             *tick,
		InitialSatellite: *satName,
		TLELine1:         *tle1,
		TLELine2:         *tle2,
	}
}

// run wires up the game, server loop, and (if lis is non-nil) the
// metrics/spawn HTTP endpoint bound to lis, then blocks on the server
// loop until ctx is cancelled. Accepting an already-bound listener
// rather than an address lets tests bind an ephemeral port.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	traceCfg := tracing.ConfigFromEnv()
	traceCfg.TickSeconds = cfg.Tick.Seconds()

	traceShutdown := func(context.Context) error { return nil }
	if shutdown, err := tracing.Init(ctx, traceCfg, log); err != nil {
		log.Warn(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
	} else {
		traceShutdown = shutdown
	}
	defer tracing.ShutdownWithTimeout(context.Background(), traceShutdown, log)

	collector, err := observability.NewCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics collector: %w", err)
	}

	spawn := make(chan satdemo.Interruption, 16)

	game := satdemo.New(time.Now().UTC(), cfg.Tick,
		satdemo.WithLogger(log),
		satdemo.WithMetrics(collector),
	)
	game.AddSatellite(cfg.InitialSatellite, cfg.TLELine1, cfg.TLELine2)

	var metricsSrv *http.Server
	if lis != nil {
		metricsSrv = serveHTTP(lis, collector, spawn, log)
	}

	c := clock.NewSimple(simtime.MustNew(0))
	c.Start(time.Now())

	srv := server.New[*satdemo.Game, satdemo.Interruption](
		game,
		server.NewChannelReceiver[satdemo.Interruption](spawn),
		c,
		server.WithLogger[*satdemo.Game, satdemo.Interruption, simtime.Time](log),
		server.WithMetrics[*satdemo.Game, satdemo.Interruption, simtime.Time](collector),
		server.WithTracing[*satdemo.Game, satdemo.Interruption, simtime.Time](true),
	)

	log.Info(ctx, "starting simserver",
		logging.String("satellite", cfg.InitialSatellite),
		logging.String("tick", cfg.Tick.String()),
	)

	srv.Run(ctx)

	log.Info(ctx, "simserver shutting down")
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// spawnRequest is the JSON body accepted by POST /spawn, the
// asynchronous external interruption source for this binary: each
// request is translated into a satdemo.SpawnSatellite interruption and
// handed to the running server over the same channel a non-HTTP
// producer (a message queue, a CLI, another service) could write to.
type spawnRequest struct {
	Name     string `json:"name"`
	TLELine1 string `json:"tle_line1"`
	TLELine2 string `json:"tle_line2"`
}

func serveHTTP(lis net.Listener, collector *observability.Collector, spawn chan<- satdemo.Interruption, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/spawn", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		var req spawnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.TLELine1 == "" || req.TLELine2 == "" {
			http.Error(w, "name, tle_line1, and tle_line2 are required", http.StatusBadRequest)
			return
		}
		select {
		case spawn <- satdemo.SpawnSatellite{Name: req.Name, TLELine1: req.TLELine1, TLELine2: req.TLELine2}:
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "interruption channel is full", http.StatusServiceUnavailable)
		}
	})

	srv := &http.Server{Handler: mux}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "HTTP server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving metrics and satellite-spawn endpoint", logging.String("addr", lis.Addr().String()))
	return srv
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
