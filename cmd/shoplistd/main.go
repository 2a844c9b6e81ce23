// Package main provides the shoplistd localhost daemon. Browser surfaces
// (popup, dashboard, content script) communicate via REST/WebSocket on
// localhost:8091.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"shoplist-core/internal/logging"
	"shoplist-core/internal/project"
	"shoplist-core/internal/store"
	"shoplist-core/internal/watch"
)

func main() {
	logging.Init(os.Stdout, logrus.InfoLevel)

	dataDir := os.Getenv("DB_PATH")
	if dataDir == "" {
		dataDir = "./data"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8091"
	}

	kv, err := store.OpenSQLite(dataDir)
	if err != nil {
		logging.Error("Failed to open store", err, map[string]interface{}{"data_dir": dataDir})
		os.Exit(1)
	}
	defer kv.Close()

	manager := project.NewManager(kv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Load(ctx); err != nil {
		logging.Error("Failed to load project state", err)
		os.Exit(1)
	}

	hub := NewWSHub(manager)

	watcher := watch.NewWatcher(manager.Inbox(), watch.DefaultInterval, func(count int) {
		hub.BroadcastInboxChanged(count)
	})
	watcher.Start(ctx)
	defer watcher.Stop()

	api := NewAPI(manager, hub)

	server := &http.Server{
		Addr:    "127.0.0.1:" + port,
		Handler: api.Routes(),
	}

	go func() {
		logging.Info("shoplistd listening", map[string]interface{}{"addr": server.Addr, "data_dir": dataDir})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Server failed", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Shutdown failed", err)
	}
	logging.Info("shoplistd stopped")
}
