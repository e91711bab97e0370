package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/config"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/db"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/middleware"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, cfg.Database.MigrationsDir); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	providers := middleware.InitAuth(cfg.OAuth)
	slog.Info("oauth providers configured", "providers", providers)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Session.Lifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	router := newRouter(newApp(database, sessionManager, cfg))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("server starting", "addr", cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
