package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tessa.org/db"
	"tessa.org/internal/config"
	"tessa.org/internal/github"
	"tessa.org/internal/httpapi"
	"tessa.org/internal/migrate"
	"tessa.org/internal/obs"
	"tessa.org/internal/session"
	"tessa.org/internal/skills"
	"tessa.org/internal/store/pg"
	"tessa.org/internal/users"
)

var version = "1.0.0"

const sessionSweepInterval = time.Hour

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("TESSA_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	database, err := pg.Open(cfg.StoreDSN())
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer database.Close()

	// The schema is applied at boot so the service never serves a stale
	// database.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrate.NewManager(database, db.Migrations()).Up(ctx); err != nil {
		cancel()
		log.Fatalf("apply schema: %v", err)
	}
	cancel()

	sessions := session.NewPGStore(database)
	api := httpapi.New(httpapi.Deps{
		Config:   &cfg,
		Provider: github.New(cfg.GithubClientID, cfg.GithubClientSecret, cfg.GithubRedirectURI),
		Sessions: sessions,
		Users:    users.NewPGStore(database),
		Catalog:  skills.NewPGStore(database),
		DB:       database,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tessa-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sweepDone := make(chan struct{})
	go sweepSessions(sessions, sweepDone)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	close(sweepDone)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}

// sweepSessions drops expired rows periodically so the sessions table does
// not grow without bound.
func sweepSessions(sessions session.Store, done <-chan struct{}) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := sessions.DeleteExpired(ctx)
			cancel()
			if err != nil {
				obs.LogEvent(map[string]any{
					"level": "warn",
					"msg":   "session_sweep_failed",
					"err":   err.Error(),
				})
				continue
			}
			if n > 0 {
				obs.LogEvent(map[string]any{
					"level":   "info",
					"msg":     "session_sweep_complete",
					"deleted": n,
				})
			}
		}
	}
}
