// Package main initializes and starts the Shoebox card server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, metrics and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/shoebox/internal/config"
	"github.com/atinyakov/shoebox/internal/db"
	"github.com/atinyakov/shoebox/internal/logger"
	"github.com/atinyakov/shoebox/internal/metrics"
	"github.com/atinyakov/shoebox/internal/repository"
	"github.com/atinyakov/shoebox/internal/server/handler/http"
	"github.com/atinyakov/shoebox/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	cleanerInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartArchiveCleaner(ctx, postgresDB,
		cleanerInterval,
		time.Duration(options.ArchiveRetention),
		zapLogger,
	)

	collector := metrics.NewCollector("shoebox")
	cardService := service.NewCardService(repository.NewPostgresCardRepository(postgresDB))
	cardHandler := &http.CardHandler{CardService: cardService, Metrics: collector, Log: zapLogger}

	if options.JWTSecret == "" {
		zapLogger.Warn("no JWT secret configured; only client certificates can authenticate")
	}
	router := http.NewRouter(cardHandler, http.RouterConfig{
		JWTSecret:      []byte(options.JWTSecret),
		AllowedOrigins: options.AllowedOrigins,
		Metrics:        collector,
		Logger:         zapLogger,
	})

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if options.TLSEnabled() {
		server.TLSConfig, err = tlsConfig(options)
		if err != nil {
			zapLogger.Fatal("failed to configure TLS", zap.Error(err))
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server", zap.String("addr", options.Port), zap.Bool("tls", options.TLSEnabled()))
	if options.TLSEnabled() {
		err = server.ListenAndServeTLS("", "")
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

// tlsConfig loads the server key pair and, when configured, the CA used to
// verify optional client certificates.
func tlsConfig(options *config.Options) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load server cert/key: %w", err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if options.ClientCA == "" {
		return cfg, nil
	}

	caCert, err := os.ReadFile(options.ClientCA)
	if err != nil {
		return nil, fmt.Errorf("read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to append client CA to pool")
	}
	cfg.ClientAuth = tls.VerifyClientCertIfGiven
	cfg.ClientCAs = pool
	return cfg, nil
}
