package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "scrounge.ai/internal/persistence/log"
	"scrounge.ai/internal/sim/catalogs"
	"scrounge.ai/internal/sim/session"
	"scrounge.ai/internal/sim/tuning"
	"scrounge.ai/internal/sim/world"
	"scrounge.ai/internal/telemetry"
	"scrounge.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "simulation seed")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		storeKind  = flag.String("store", "sqlite", "economy store backend: sqlite|snapshot")
		inputRate  = flag.Float64("input_rate", 120, "max client messages per second (0 disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	store, err := openStore(*dataDir, *storeKind)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if store.index != nil {
		if err := store.index.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index: upsert catalogs: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	sess, err := session.New(ctx, session.Config{Tuning: tune, Catalogs: cats, Seed: *seed}, store, logger)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}

	w := world.New(world.WorldConfig{
		Tuning:       tune,
		Catalogs:     cats,
		Seed:         *seed,
		Epoch:        time.Now().UTC(),
		TuningDigest: tune.Digest(),
	}, sess, logger)
	sess.SetSink(w)

	metricsOpts := telemetry.Options{Process: true}
	if store.index != nil {
		metricsOpts.IndexDrops = func() uint64 { return store.index.Stats().DropEventTotal }
	}
	metrics := telemetry.New(metricsOpts)
	w.SetMetrics(metrics)

	eventLog := persistlog.NewEventLogger(*dataDir)
	defer eventLog.Close()
	tee := persistlog.Tee{eventLog}
	if store.index != nil {
		tee = append(tee, store.index)
	}
	w.SetEventLogger(tee)

	sessDone := make(chan struct{})
	go func() {
		defer close(sessDone)
		if err := sess.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("session stopped: %v", err)
		}
	}()
	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := buildMux(w, metrics, ws.Options{InputRate: *inputRate}, logger)
	if envBool("SCROUNGE_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (SCROUNGE_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s store=%s", *addr, *storeKind)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	// Loggers and the store close only after both loops exit; Session.Run
	// flushes the economy on the way out.
	<-worldDone
	<-sessDone
}

func buildMux(w *world.World, metrics *telemetry.Metrics, opts ws.Options, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/v1/status", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(w.Status())
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger, opts).Handler())
	return mux
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

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
