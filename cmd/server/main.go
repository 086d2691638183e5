// Package main runs the PhotoDrop server in dev mode: the media library is
// loaded from a directory into memory. Production deployments use the
// photodrop CLI's serve command, which backs the server with Postgres and
// object storage.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"photodrop/internal/config"
	"photodrop/internal/library"
	"photodrop/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// Fail closed: an empty or placeholder secret must never serve
	// authenticated routes.
	if err := cfg.ValidateServerSecret(); err != nil {
		log.Fatalf("refusing to start: %v", err)
	}

	var lib library.Library
	if cfg.MediaDir != "" {
		memLib, err := library.FromDirectory(cfg.MediaDir)
		if err != nil {
			log.Fatalf("scan media dir: %v", err)
		}
		lib = memLib
	} else {
		log.Printf("PHOTODROP_MEDIA_DIR not set, serving an empty library")
		lib = library.NewMemoryLibrary()
	}

	srv := server.New(cfg, lib)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
