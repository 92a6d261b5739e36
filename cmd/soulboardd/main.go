// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soulboard/ledger/pkg/events"
	"github.com/soulboard/ledger/pkg/ledger"
	"github.com/soulboard/ledger/pkg/log"
	"github.com/soulboard/ledger/pkg/marketplace"
	"github.com/soulboard/ledger/pkg/metric"
	"github.com/soulboard/ledger/pkg/storage"
)

var (
	// Node configuration flags
	dataDir  = flag.String("data-dir", "/tmp/soulboardd", "Data directory")
	dbType   = flag.String("db", "leveldb", "Record store backend: leveldb, memory")
	port     = flag.Int("port", 8000, "HTTP API port")
	logLevel = flag.String("log-level", "info", "Log level")

	// Version info
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	fmt.Printf("Soulboard Ledger Daemon (soulboardd) %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)

	logger := log.NewWithLevel(*logLevel)
	defer logger.Sync()

	store, err := storage.NewStorage(*dbType, *dataDir)
	if err != nil {
		fmt.Printf("Failed to open record store: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewBus(1024)
	metrics, err := metric.NewMetrics()
	if err != nil {
		fmt.Printf("Failed to create metrics: %v\n", err)
		os.Exit(1)
	}

	l := ledger.New(store, logger)
	market := marketplace.New(l, bus, metrics, nil, logger)
	if err := market.Load(); err != nil {
		fmt.Printf("Failed to load ledger state: %v\n", err)
		os.Exit(1)
	}

	srv := newServer(market, bus, metrics, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      srv.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("API server listening", "port", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}

	bus.Close()
	if err := l.Close(); err != nil {
		logger.Error("ledger close failed", "error", err)
	}

	logger.Info("shutdown complete")
}
