// Package app wires the simulation core, tick loop, journal, logging router,
// and network surface into a runnable server process.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"guildmaster/server/internal/journal"
	"guildmaster/server/internal/maps"
	servernet "guildmaster/server/internal/net"
	"guildmaster/server/internal/net/ws"
	"guildmaster/server/internal/sim"
	"guildmaster/server/internal/telemetry"
	"guildmaster/server/logging"
	loggingsinks "guildmaster/server/logging/sinks"
	logsim "guildmaster/server/logging/simulation"
)

// Config carries the process-level settings, populated by the CLI.
type Config struct {
	Addr             string
	ClientDir        string
	RedisAddr        string
	JournalNamespace string
	KeyframeInterval int
	TickRate         int
	LogJSONPath      string
	Debug            bool
}

// DefaultConfig returns the settings used when no flags override them.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		TickRate:         sim.DefaultTickRate,
		KeyframeInterval: int(journal.DefaultKeyframeInterval),
	}
}

// Run boots the server and blocks until the context is cancelled or the
// listener fails.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = sim.DefaultTickRate
	}

	logrusLogger := logrus.New()
	logrusLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		logrusLogger.SetLevel(logrus.DebugLevel)
	}

	logCfg := logging.DefaultConfig()
	if cfg.Debug {
		logCfg.MinimumSeverity = logging.SeverityDebug
	}
	named := []logging.NamedSink{
		{Name: "console", Sink: loggingsinks.NewConsoleSink(os.Stdout, logCfg.Console)},
		{Name: "logrus", Sink: loggingsinks.NewLogrusSink(logrusLogger, logCfg.Logrus)},
	}
	if cfg.LogJSONPath != "" {
		file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json log %q: %w", cfg.LogJSONPath, err)
		}
		named = append(named, logging.NamedSink{
			Name: "json",
			Sink: loggingsinks.NewJSON(file, logCfg.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.ClockFunc(time.Now), logCfg, named)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			log.Printf("failed to close logging router: %v", cerr)
		}
	}()

	telLogger := telemetry.WrapLogger(log.New(os.Stdout, "", log.LstdFlags))
	metrics := telemetry.NewCounters()

	core := sim.NewCore(sim.Deps{Logger: telLogger, Metrics: metrics}, maps.DefaultRegistry())

	var store *journal.Store
	var recorder *journal.Recorder
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		store, err = journal.NewStore(&journal.Config{
			Client:    client,
			Metrics:   metrics,
			Namespace: cfg.JournalNamespace,
		})
		if err != nil {
			return fmt.Errorf("failed to construct journal store: %w", err)
		}
		recorder = journal.NewRecorder(store, uint64(cfg.KeyframeInterval), telLogger)
		telLogger.Printf("journal enabled redis=%s", cfg.RedisAddr)
	}

	// The hub is constructed after the loop, so the hooks close over the
	// variable rather than the value.
	var hub *servernet.Hub
	hooks := sim.LoopHooks{
		AfterStep: func(result sim.LoopStepResult) {
			if hub != nil {
				hub.Broadcast(result)
			}
			if recorder != nil {
				recorder.ObserveStep(result)
			}
			if result.Budget > 0 && result.Duration > result.Budget {
				logsim.TickBudgetOverrun(context.Background(), router, result.Snapshot.Tick, logsim.TickBudgetOverrunPayload{
					DurationMillis: result.Duration.Milliseconds(),
					BudgetMillis:   result.Budget.Milliseconds(),
					Ratio:          float64(result.Duration) / float64(result.Budget),
				})
			}
			publishGameplayEvents(router, result)
		},
		OnCommandDrop: func(reason string, cmd sim.Command) {
			logsim.CommandRejected(context.Background(), router, cmd.OriginTick, entityRef(cmd.Actor), logsim.CommandRejectedPayload{
				CommandType: string(cmd.Type),
				Reason:      reason,
			})
		},
	}

	loop := sim.NewLoop(core, sim.LoopConfig{
		TickRate:        cfg.TickRate,
		CatchupMaxTicks: 3,
		CommandCapacity: 256,
		PerActorLimit:   8,
		WarningStep:     64,
	}, hooks)

	hub, err = servernet.NewHub(servernet.HubConfig{
		Loop:    loop,
		Journal: store,
		Logger:  telLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to construct hub: %w", err)
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    telLogger,
		WS:        ws.NewHandler(hub, ws.HandlerConfig{Logger: telLogger}),
	})

	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	telLogger.Printf("server listening on %s", cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}
