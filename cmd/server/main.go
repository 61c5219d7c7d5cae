// Package main is the entry point for the Homeboard server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/awidyan/homeboard/internal/audit"
	"github.com/awidyan/homeboard/internal/backup"
	"github.com/awidyan/homeboard/internal/config"
	"github.com/awidyan/homeboard/internal/icons"
	"github.com/awidyan/homeboard/internal/router"
	"github.com/awidyan/homeboard/internal/store"
	"github.com/awidyan/homeboard/internal/version"
	"github.com/awidyan/homeboard/internal/watch"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		printVersion()
		os.Exit(0)
	}

	configPath := flag.String("config", "config.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Warning: Could not load config from %s: %v", *configPath, err)
		log.Println("Using default configuration...")
		cfg = config.Default()
	}

	auditSvc, err := audit.Open(cfg.Audit.DBPath)
	if err != nil {
		log.Fatalf("Failed to open audit database: %v", err)
	}
	defer func() {
		if err := auditSvc.Close(); err != nil {
			log.Printf("Error closing audit database: %v", err)
		}
	}()

	st := store.New(cfg.Storage.ConfigPath)
	backups := backup.New(cfg.Backup.Dir, st)
	iconCache := icons.New(cfg.Icons.CacheDir, cfg.Server.PathPrefix+"/icons/cache")

	hub := watch.NewHub()
	st.OnChange(hub.Notify)

	// Materialize the default document on first run so the first client
	// load never races backup creation.
	if _, _, err := st.Load(); err != nil {
		log.Printf("Warning: stored dashboard unreadable, clients will get defaults: %v", err)
	}

	r := router.New(cfg, st, backups, iconCache, hub, auditSvc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Homeboard %s starting on %s", version.Version, addr)
	log.Printf("Dashboard document: %s", cfg.Storage.ConfigPath)

	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func printVersion() {
	fmt.Printf("Homeboard %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}
