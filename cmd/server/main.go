package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"crewline.ai/internal/persistence/indexdb"
	persistlog "crewline.ai/internal/persistence/log"
	"crewline.ai/internal/sim/catalogs"
	"crewline.ai/internal/sim/session"
	"crewline.ai/internal/sim/tuning"
	"crewline.ai/internal/transport/observer"
	"crewline.ai/internal/transport/ws"
)

func main() {
	cfg, err := parseConfig(os.Args[1:], nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			logger.Fatalf("log dir: %v", err)
		}
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
		})
	}

	cats, err := catalogs.Load(cfg.ConfigDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := tuning.Load(filepath.Join(cfg.ConfigDir, "tuning.yaml"))
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	gameDir := cfg.gameDir()
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		logger.Fatalf("game dir: %v", err)
	}

	// Optional read model; the save directory stays authoritative.
	var idx *indexdb.SQLiteIndex
	if !cfg.DisableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(gameDir, "index", "game.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	journal := persistlog.NewSessionLogger(gameDir)
	defer journal.Close()

	persistLogger := log.New(logger.Writer(), "[persist] ", log.LstdFlags|log.Lmicroseconds)
	persist := &gamePersister{
		gameDir: gameDir,
		saveDir: cfg.saveDir(),
		journal: journal,
		idx:     idx,
		log:     persistLogger,
	}

	ctx, cancel := signalContext()
	defer cancel()

	g, err := openGame(ctx, cfg, cats, tune, persist)
	if err != nil {
		logger.Fatalf("open game: %v", err)
	}
	t := g.ctl.Team()
	if g.resumed {
		logger.Printf("resumed game=%s manager=%q boat=%s session=%d races=%d",
			cfg.Game, t.Manager.Name, t.BoatType(), g.ctl.SessionCount(), len(g.ctl.RaceScores()))
	} else {
		logger.Printf("new game=%s manager=%q boat=%s seed=%d crew=%d",
			cfg.Game, t.Manager.Name, t.BoatType(), cfg.Seed, len(t.Active()))
	}

	wsLogger := log.New(logger.Writer(), "[ws] ", log.LstdFlags|log.Lmicroseconds)
	wsSrv := ws.NewServer(g.ctl, wsLogger)
	wsSrv.SetConfirmTimeout(cfg.ConfirmTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		var sessions, races, crewSize int
		wsSrv.Do(func(c *session.Controller) {
			sessions, races, crewSize = c.SessionCount(), len(c.RaceScores()), len(c.Team().Active())
		})
		fmt.Fprintf(rw, "# HELP crewline_session Sessions confirmed so far.\n")
		fmt.Fprintf(rw, "# TYPE crewline_session gauge\n")
		fmt.Fprintf(rw, "crewline_session{game=%q} %d\n", cfg.Game, sessions)
		fmt.Fprintf(rw, "# HELP crewline_races Races completed so far.\n")
		fmt.Fprintf(rw, "# TYPE crewline_races gauge\n")
		fmt.Fprintf(rw, "crewline_races{game=%q} %d\n", cfg.Game, races)
		fmt.Fprintf(rw, "# HELP crewline_crew Active crew members.\n")
		fmt.Fprintf(rw, "# TYPE crewline_crew gauge\n")
		fmt.Fprintf(rw, "crewline_crew{game=%q} %d\n", cfg.Game, crewSize)
		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# HELP crewline_index_queue_depth Read model writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE crewline_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "crewline_index_queue_depth{game=%q} %d\n", cfg.Game, st.QueueDepth)
			fmt.Fprintf(rw, "# HELP crewline_index_dropped_total Read model rows dropped under load.\n")
			fmt.Fprintf(rw, "# TYPE crewline_index_dropped_total counter\n")
			fmt.Fprintf(rw, "crewline_index_dropped_total{game=%q} %d\n", cfg.Game, st.DropTotal)
		}
	})
	if cfg.DebugHTTP {
		obs := observer.NewServer(wsSrv.Do, g.mind, logger)
		mux.HandleFunc("/debug/state", obs.Handler())
	} else {
		logger.Printf("debug endpoints disabled")
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Wait for the last confirmed line-up to reach disk.
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer closeCancel()
	var closeErr error
	wsSrv.Do(func(c *session.Controller) { closeErr = c.Close(closeCtx) })
	if closeErr != nil {
		logger.Printf("close game: %v", closeErr)
	}
	if idx != nil {
		if err := idx.Flush(closeCtx); err != nil {
			logger.Printf("index flush: %v", err)
		}
	}
	logger.Printf("stopped")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
