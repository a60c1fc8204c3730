package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goeen_log "github.com/eencloud/goeen/log"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/api"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/core"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/printing"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/settings"
	_ "github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/transport/escpos"
)

func main() {
	logger := goeen_log.NewContext(os.Stdout, "", goeen_log.LevelInfo).GetLogger("pedidos-pdv", goeen_log.LevelInfo)
	logger.Info("Starting Pedidos PDV service...")

	dataDir := core.GetDataDirectory()
	dbDir := filepath.Join(dataDir, "badger_db")
	store, err := core.NewStore(dbDir, logger)
	if err != nil {
		logger.Fatalf("Failed to create store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("Failed to close store: %v", err)
		}
	}()

	journal := core.NewReceiptJournal(filepath.Join(dataDir, "receipts"), 50, logger)
	settingsManager := settings.NewManager(logger, store)
	dispatcher := printing.NewDispatcher(logger, nil, nil)

	apiAddr := ":33480"
	if port := os.Getenv("PDV_SERVICE_PORT"); port != "" {
		apiAddr = ":" + port
	}

	server := api.NewServer(apiAddr, logger, settingsManager, store, dispatcher, journal)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("API Server failed: %v", err)
		}
	}()

	go func() {
		for range settingsManager.Changes() {
			cfg, err := settingsManager.PrinterConfig()
			if err != nil {
				logger.Warningf("Settings changed but printer config is invalid: %v", err)
				continue
			}
			logger.Infof("Settings changed, printer now %s via %s", cfg.Mode, dispatcher.SelectTransport(cfg))
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := server.Stop(ctx); err != nil {
		logger.Errorf("API Server stop failed: %v", err)
	}
	cancel()
	logger.Info("Pedidos PDV service stopped")
}
