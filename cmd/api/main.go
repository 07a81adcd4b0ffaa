package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"usfconnect.africa/internal/activity"
	"usfconnect.africa/internal/directory"
	"usfconnect.africa/internal/httpapi"
	"usfconnect.africa/internal/obs"
	"usfconnect.africa/internal/stats"
	"usfconnect.africa/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments pass env directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		store    *pg.Store
		statsSvc *stats.Service
		dirSvc   *directory.Service
		feeds    activity.Source
		probe    httpapi.ReadyProbe
	)
	if dsn := os.Getenv("CONNECT_PG_DSN"); dsn != "" {
		var err error
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		probe.DB = store.DB()
		feeds = store

		statsSvc, err = stats.NewService(store)
		if err != nil {
			log.Fatalf("stats service: %v", err)
		}
		dirSvc, err = directory.NewService(store)
		if err != nil {
			log.Fatalf("directory service: %v", err)
		}
	} else {
		log.Println("CONNECT_PG_DSN not set; stats, activity and directory endpoints will return 503")
	}

	api := httpapi.New(probe, version, statsSvc, feeds, dirSvc)

	addr := os.Getenv("CONNECT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting connect-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if store != nil {
		_ = store.Close()
	}
	log.Println("Stopped")
}
