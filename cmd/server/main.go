package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"netpanel/internal/auth"
	"netpanel/internal/config"
	"netpanel/internal/handler"
	"netpanel/internal/hub"
	"netpanel/internal/metrics"
	"netpanel/internal/repository/sqlite"
	"netpanel/internal/service"
	"netpanel/internal/watcher"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Config file path (default: search standard locations)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting netpanel server...")

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if path != "" {
		log.Printf("Config loaded: %s", path)
	} else {
		log.Println("No config file found, using defaults")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	log.Printf("Config:\n%s", cfg.Summary())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize SQLite repository
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()
	log.Printf("Database opened: %s", cfg.Database.Path)

	reg := metrics.DefaultRegistry()

	// Initialize event bus
	eventBus := service.NewEventBus()
	eventBus.OnDrop(func(e service.Event) {
		reg.RecordEventDropped()
	})

	// Initialize SSE hub
	sseHub := hub.New().OnClientCount(reg.SetSSEClients)
	go sseHub.Run(ctx)

	// Connect event bus to SSE hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go func() {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(string(event.Type), event.Payload)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Initialize services
	networkSvc := service.NewNetworkService(repo, eventBus, reg)
	machineSvc := service.NewMachineService(repo, eventBus, reg)
	presetSvc := service.NewPresetService(cfg.Presets.Dir, machineSvc, eventBus, reg)

	if cfg.Inventory.Path != "" {
		if _, err := machineSvc.SeedFromFile(ctx, cfg.Inventory.Path, cfg.Inventory.Format); err != nil {
			log.Printf("Failed to seed inventory: %v", err)
		}
	}
	if err := presetSvc.Reload(); err != nil {
		log.Printf("Failed to load presets: %v", err)
	}
	log.Printf("Loaded %d presets from %s", len(presetSvc.List()), presetSvc.Dir())

	startWatchers(ctx, cfg, presetSvc, machineSvc)

	authMgr, err := newAuthManager(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to configure auth: %v", err)
	}

	router := handler.NewRouter(handler.Deps{
		Network:        networkSvc,
		Presets:        presetSvc,
		Machines:       machineSvc,
		Auth:           authMgr,
		Events:         sseHub,
		Metrics:        reg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// No write timeout: /events streams stay open
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Closing the hub ends the open event streams so Shutdown can finish
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// newAuthManager returns nil when no users are configured
func newAuthManager(cfg config.AuthConfig) (*auth.Manager, error) {
	if !cfg.Enabled() {
		log.Println("WARNING: no users configured, network endpoints are unauthenticated")
		return nil, nil
	}
	return auth.NewManager(cfg.Secret, cfg.TokenTTL.Duration(), cfg.Users)
}

func startWatchers(ctx context.Context, cfg *config.Config, presets *service.PresetService, machines *service.MachineService) {
	if cfg.Presets.Watch {
		w := watcher.New(cfg.Presets.Dir, func() {
			log.Printf("Preset directory changed, reloading %s", cfg.Presets.Dir)
			if err := presets.Reload(); err != nil {
				log.Printf("Failed to reload presets: %v", err)
			}
		}).WithExtensions(".yaml", ".yml", ".json")

		go func() {
			if err := w.Watch(ctx); err != nil {
				log.Printf("Preset watcher error: %v", err)
			}
		}()
		log.Printf("Watching presets: %s", cfg.Presets.Dir)
	}

	if cfg.Inventory.Watch && cfg.Inventory.Path != "" {
		w := watcher.New(cfg.Inventory.Path, func() {
			log.Printf("Inventory changed, reseeding from %s", cfg.Inventory.Path)
			if _, err := machines.SeedFromFile(ctx, cfg.Inventory.Path, cfg.Inventory.Format); err != nil {
				log.Printf("Failed to reseed inventory: %v", err)
			}
		})

		go func() {
			if err := w.Watch(ctx); err != nil {
				log.Printf("Inventory watcher error: %v", err)
			}
		}()
		log.Printf("Watching inventory: %s", cfg.Inventory.Path)
	}
}
