package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bpawel10/skyless/internal/config"
	"github.com/bpawel10/skyless/internal/core/game"
	"github.com/bpawel10/skyless/internal/logging"
	"github.com/bpawel10/skyless/internal/persistence/indexdb"
	persistlog "github.com/bpawel10/skyless/internal/persistence/log"
	"github.com/bpawel10/skyless/internal/protocol"
	"github.com/bpawel10/skyless/internal/systems/defs"
	"github.com/bpawel10/skyless/internal/systems/mapgen"
	"github.com/bpawel10/skyless/internal/systems/movement"
	"github.com/bpawel10/skyless/internal/systems/network"
	"github.com/bpawel10/skyless/internal/systems/scripts"
	"github.com/bpawel10/skyless/internal/transport/ws"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/skyless.yaml", "path to config yaml")
		addr       = flag.String("addr", "", "http listen address (overrides config)")
	)
	flag.Parse()

	cfg, found, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !found {
		logger.WithField("path", *configPath).Info("config not found; using defaults")
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *logrus.Logger) error {
	var recorders game.MultiRecorder
	var idx *indexdb.SQLiteIndex
	if cfg.Journal.Enabled {
		j := persistlog.NewJournal(cfg.Journal.Dir)
		defer j.Close()
		recorders = append(recorders, j)
	}
	if cfg.Index.Enabled {
		var err error
		idx, err = indexdb.OpenSQLite(cfg.Index.Path)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		recorders = append(recorders, idx)
	}

	g := game.New(game.Config{
		CommandBuffer: cfg.Game.CommandBuffer,
		TaskBuffer:    cfg.Game.TaskBuffer,
		MaxDepth:      cfg.Game.MaxDepth,
	}, logger.WithField("component", "game"))
	if len(recorders) > 0 {
		g.SetRecorder(recorders)
	}

	mapCfg := mapgen.Config{Center: cfg.Map.Center, Range: cfg.Map.Range, Floor: cfg.Map.Floor}
	mapgen.Register(g, mapCfg)
	holding := mapCfg.HoldingTile()
	network.Register(g, network.Config{Spawn: mapCfg.CenterTile(), Holding: &holding})
	movement.Register(g, movement.Config{})
	scripts.Register(g, scripts.Config{TickEnabled: cfg.Tick.Enabled, TickInterval: cfg.Tick.Interval})

	validator, err := protocol.NewValidator()
	if err != nil {
		return fmt.Errorf("protocol schemas: %w", err)
	}
	wsSrv := ws.NewServer(ws.Config{
		ReadBufferSize:  cfg.Server.ReadBufferSize,
		WriteBufferSize: cfg.Server.WriteBufferSize,
		MaxQueue:        cfg.Server.MaxQueue,
	}, validator, logger.WithField("component", "ws"))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		if g.Stopped() {
			http.Error(rw, "stopped", http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		clients, _ := game.GameAttribute[defs.Clients](g.Attributes())

		fmt.Fprintf(rw, "# HELP skyless_clients Logged-in clients.\n")
		fmt.Fprintf(rw, "# TYPE skyless_clients gauge\n")
		fmt.Fprintf(rw, "skyless_clients %d\n", len(clients))

		if idx != nil {
			s := idx.Stats()
			fmt.Fprintf(rw, "# HELP skyless_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE skyless_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "skyless_index_queue_depth %d\n", s.QueueDepth)
			fmt.Fprintf(rw, "# HELP skyless_index_dropped_total Records dropped because the index queue was full.\n")
			fmt.Fprintf(rw, "# TYPE skyless_index_dropped_total counter\n")
			fmt.Fprintf(rw, "skyless_index_dropped_total %d\n", s.DropTotal)
			fmt.Fprintf(rw, "# HELP skyless_index_written_total Records written to the index.\n")
			fmt.Fprintf(rw, "# TYPE skyless_index_written_total counter\n")
			fmt.Fprintf(rw, "skyless_index_written_total %d\n", s.WrittenTotal)
		}
	})
	mux.HandleFunc(cfg.Server.WSPath, wsSrv.Handler())

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := g.Spawn(ctx, wsSrv.Listener()); err != nil {
		return fmt.Errorf("spawn listener: %w", err)
	}

	httpErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	gameErr := make(chan error, 1)
	go func() { gameErr <- g.Run(runCtx) }()

	var result error
	select {
	case err := <-gameErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			result = fmt.Errorf("game: %w", err)
		}
	case err, ok := <-httpErr:
		if ok && err != nil {
			result = fmt.Errorf("http: %w", err)
		}
		cancel()
		<-gameErr
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	g.Wait()
	return result
}
