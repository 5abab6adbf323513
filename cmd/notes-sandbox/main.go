package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/Ratio1/notes_sdk_go/internal/config"
	"github.com/Ratio1/notes_sdk_go/internal/devseed"
	"github.com/Ratio1/notes_sdk_go/internal/logger"
	"github.com/Ratio1/notes_sdk_go/internal/sandbox"
	"github.com/Ratio1/notes_sdk_go/internal/storage"
	notesmock "github.com/Ratio1/notes_sdk_go/pkg/notes/mock"
)

const apiURLEnv = "NOTES_API_URL"

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	seed := flag.String("seed", "", "path to JSON notes seed")
	dbPath := flag.String("db", "", "BoltDB file for persistent notes (in-memory when empty)")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New("notes-sandbox")

	failCfg, err := sandbox.ParseFailConfig(*fail)
	if err != nil {
		log.WithError(err).Fatal("parse fail flag")
	}

	store, closeStore, err := openStore(*dbPath, *seed, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := &http.Server{
		Addr: *addr,
		Handler: sandbox.New(store,
			sandbox.WithLogger(log),
			sandbox.WithLatency(*latency),
			sandbox.WithFailure(failCfg),
			sandbox.WithRegistry(reg),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", *addr).Info("notes-sandbox listening")
	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	fmt.Println()
	fmt.Println("export NOTES_RUNTIME_MODE=http")
	fmt.Printf("export %s=http://%s\n", apiURLEnv, host)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server failed")
	}
}

func openStore(dbPath, seedPath string, log *logrus.Entry) (sandbox.Store, func(), error) {
	var entries []devseed.NoteSeedEntry
	if seedPath != "" {
		var err error
		entries, err = devseed.LoadNotesSeed(seedPath)
		if err != nil {
			return nil, nil, err
		}
	}

	if dbPath == "" {
		m := notesmock.New()
		if err := m.Seed(entries); err != nil {
			return nil, nil, err
		}
		log.WithField("seeded", len(entries)).Info("using in-memory store")
		return m, func() {}, nil
	}

	bs, err := storage.NewBoltStore(dbPath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := bs.Close(); err != nil {
			log.WithError(err).Warn("close bolt store")
		}
	}
	existing, err := bs.List(context.Background())
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	// Seeds only populate a fresh database.
	if len(existing) == 0 && len(entries) > 0 {
		if err := bs.Seed(entries); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	log.WithFields(logrus.Fields{"db": dbPath, "notes": len(existing)}).Info("using bolt store")
	return bs, closeFn, nil
}
