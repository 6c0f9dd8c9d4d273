// Package main initializes and starts the NoteKeeper server, setting up
// configuration, logging, the ledger backend, services, handlers and,
// optionally, TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/priyanshu-verma600/notekeeper/internal/address"
	"github.com/priyanshu-verma600/notekeeper/internal/config"
	"github.com/priyanshu-verma600/notekeeper/internal/db"
	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
	"github.com/priyanshu-verma600/notekeeper/internal/logger"
	"github.com/priyanshu-verma600/notekeeper/internal/repository"
	"github.com/priyanshu-verma600/notekeeper/internal/server/handler/http"
	"github.com/priyanshu-verma600/notekeeper/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openLedger(ctx, options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init ledger", zap.String("driver", options.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zapLogger.Error("failed to close ledger", zap.Error(err))
		}
	}()

	noteService := service.NewNoteService(store, address.New(options.Namespace), zapLogger)
	noteHandler := &http.NoteHandler{NoteService: noteService}
	router := http.NewRouter(noteHandler, zapLogger, options.AuthMaxSkew.Duration)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if options.TLSCert != "" {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address), zap.String("store", options.StoreDriver))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address), zap.String("store", options.StoreDriver))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Error("server failed", zap.Error(err))
	}
}

// openLedger opens the configured ledger backend. SQL backends also get
// the zero-balance pruner, which stops with ctx.
func openLedger(ctx context.Context, options *config.Options, log *zap.Logger) (ledger.Store, error) {
	switch options.StoreDriver {
	case config.DriverLevelDB:
		ldb, err := db.InitLevelDB(options.StorePath)
		if err != nil {
			return nil, err
		}
		return repository.NewLevelDBLedger(ldb, options.Rent), nil
	case config.DriverPostgres:
		pg, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		db.StartBalancePruner(ctx, pg, options.PruneInterval.Duration, log)
		return repository.NewPostgresLedger(pg, options.Rent), nil
	case config.DriverSQLite:
		lite, err := db.InitSQLite(options.StorePath)
		if err != nil {
			return nil, err
		}
		db.StartBalancePruner(ctx, lite, options.PruneInterval.Duration, log)
		return repository.NewSQLiteLedger(lite, options.Rent), nil
	default:
		return repository.NewMemoryLedger(options.Rent), nil
	}
}
