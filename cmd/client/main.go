// Package main runs the PhotoDrop sync client: poll the server for assets
// newer than the durable cursor, download them, and advance the cursor.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photodrop/internal/config"
	"photodrop/internal/sync"
)

func main() {
	once := flag.Bool("once", false, "run one sync cycle and exit")
	intervalHours := flag.Int("interval", 0, "override poll interval in hours")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.UsingPlaceholderSecret() {
		log.Printf("WARNING: using the development shared secret; set PHOTODROP_SECRET for production")
	}
	if *intervalHours > 0 {
		cfg.PollInterval = time.Duration(*intervalHours) * time.Hour
	}

	log.Printf("photodrop client starting: server=%s downloads=%s interval=%s",
		cfg.ServerURL, cfg.DownloadDir, cfg.PollInterval)

	client := sync.NewClient(cfg.ServerURL, cfg.SharedSecret, cfg.RequestTimeout)
	engine := sync.NewEngine(cfg, client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if _, err := engine.RunCycle(ctx); err != nil {
			log.Printf("sync failed: %v", err)
			os.Exit(1)
		}
		return
	}
	if err := engine.Run(ctx); err != nil {
		log.Printf("sync loop stopped: %v", err)
		os.Exit(1)
	}
}
