// Package main is the photodrop operations CLI: serving the catalog-backed
// API, driving the sync client, ingesting media, and inspecting client state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"photodrop/internal/blobstore"
	"photodrop/internal/catalog"
	"photodrop/internal/config"
	"photodrop/internal/library"
	"photodrop/internal/server"
	"photodrop/internal/sync"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "photodrop: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photodrop",
		Short: "PhotoDrop media sync toolkit",
		Long: `PhotoDrop serves a private media catalog over HMAC-authenticated HTTP and
keeps a client directory in sync with it. Configuration comes from
PHOTODROP_* environment variables.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newSyncCmd(),
		newIngestCmd(),
		newCursorCmd(),
		newHealthCmd(),
	)
	return cmd
}

func newServeCmd() *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server against the Postgres catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateServerSecret(); err != nil {
				return err
			}
			var lib library.Library
			if memory {
				memLib, err := library.FromDirectory(cfg.MediaDir)
				if err != nil {
					return fmt.Errorf("scan media dir: %w", err)
				}
				lib = memLib
			} else {
				pool, err := catalog.Connect(ctx, cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("connect database: %w", err)
				}
				defer pool.Close()
				if err := catalog.EnsureSchema(ctx, pool); err != nil {
					return err
				}
				blobs, err := blobstore.New(cfg)
				if err != nil {
					return err
				}
				lib = library.NewCatalogLibrary(catalog.NewRepository(pool), blobs)
			}
			return server.New(cfg, lib).Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "Serve PHOTODROP_MEDIA_DIR from memory instead of the catalog")
	return cmd
}

func newSyncCmd() *cobra.Command {
	var once bool
	var intervalHours int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the sync client against the configured server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if intervalHours > 0 {
				cfg.PollInterval = time.Duration(intervalHours) * time.Hour
			}
			client := sync.NewClient(cfg.ServerURL, cfg.SharedSecret, cfg.RequestTimeout)
			engine := sync.NewEngine(cfg, client)
			if once {
				_, err := engine.RunCycle(cmd.Context())
				return err
			}
			return engine.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run one sync cycle and exit")
	cmd.Flags().IntVar(&intervalHours, "interval", 0, "Override poll interval in hours")
	return cmd
}

func newCursorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Inspect or reset the client sync cursor",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the persisted cursor",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				cursor, err := sync.LoadCursor(cfg.StateFile)
				if err != nil {
					return err
				}
				if cursor.IsZero() {
					fmt.Println("no cursor: next sync fetches everything")
					return nil
				}
				fmt.Printf("%s (%d)\n", cursor.Format(time.RFC3339), cursor.Unix())
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Delete the cursor so the next sync starts from scratch",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if err := os.Remove(cfg.StateFile); err != nil && !os.IsNotExist(err) {
					return err
				}
				fmt.Println("cursor reset")
				return nil
			},
		},
	)
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the configured server's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := sync.NewClient(cfg.ServerURL, cfg.SharedSecret, 10*time.Second)
			if err := client.Health(cmd.Context()); err != nil {
				return fmt.Errorf("server unhealthy: %w", err)
			}
			fmt.Println("OK")
			return nil
		},
	}
}
