package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"compass/pkg/agentcmd"
	"compass/pkg/completion"
	"compass/pkg/config"
	"compass/pkg/journey"
	"compass/pkg/logx"
	"compass/pkg/metrics"
	"compass/pkg/persistence"
	"compass/pkg/progression"
	"compass/pkg/webui"
)

const shutdownTimeout = 10 * time.Second

// Service wires the compass components together for one process.
type Service struct {
	store     *persistence.Store
	catalog   *journey.Catalog
	tracker   *completion.Tracker
	engine    *progression.Engine
	router    *agentcmd.Router
	webServer *webui.Server
	logger    *logx.Logger
}

func main() {
	fmt.Println("compass boot")

	var workDir string
	var addr string
	var promptPassword bool
	flag.StringVar(&workDir, "workdir", "", "Working directory (default: current directory)")
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	flag.BoolVar(&promptPassword, "prompt-password", false, "Prompt for the secrets file password at startup")
	flag.Parse()

	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	if err := config.LoadConfig(workDir); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		log.Fatalf("Failed to read config: %v", err)
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	// Unlock the secrets file when present; credentials fall back to
	// environment variables otherwise.
	if config.SecretsFileExists(workDir) && promptPassword {
		if err := unlockSecrets(workDir); err != nil {
			log.Fatalf("Failed to unlock secrets: %v", err)
		}
	}

	service, err := NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer func() {
		if closeErr := service.store.Close(); closeErr != nil {
			service.logger.Error("Failed to close store: %v", closeErr)
		}
	}()

	// Generate an API password when none is configured, so the API is
	// never unintentionally open.
	if config.GetAPIPassword() == "" {
		password := generatePassword()
		config.SetSecret("COMPASS_PASSWORD", password)
		service.logger.Info("Generated API password: %s (user: compass)", password)
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           service.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		service.logger.Info("HTTP API listening on %s", addr)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", serveErr)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	service.logger.Info("Received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
		os.Exit(1)
	}

	service.logger.Info("Shutdown completed")
}

// NewService opens the database, resolves the stage catalog, and wires
// the progression components.
func NewService(cfg config.Config) (*Service, error) {
	logger := logx.NewLogger("compass")

	store, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	catalog, err := resolveCatalog(context.Background(), store, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	tracker := completion.NewTracker(store)
	engine := progression.NewEngine(catalog, tracker, store)

	recorder := metrics.NewPrometheusRecorder()
	engine.SetRecorder(recorder)

	router, err := agentcmd.NewRouter()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create command router: %w", err)
	}

	webServer := webui.NewServer(store, catalog, tracker, engine, router)
	webServer.SetRecorder(recorder)

	if cfg.Telemetry.PrometheusURL != "" {
		queryService, qsErr := metrics.NewQueryService(cfg.Telemetry.PrometheusURL)
		if qsErr != nil {
			logger.Warn("Metrics querying disabled: %v", qsErr)
		} else {
			webServer.SetQueryService(queryService)
		}
	}

	return &Service{
		store:     store,
		catalog:   catalog,
		tracker:   tracker,
		engine:    engine,
		router:    router,
		webServer: webServer,
		logger:    logger,
	}, nil
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()
	s.webServer.RegisterRoutes(mux)
	return mux
}

// resolveCatalog loads the stage catalog with fallback: database, then
// the configured YAML seed, then the built-in default. Whichever source
// wins is persisted so later runs read it from the database.
func resolveCatalog(ctx context.Context, store *persistence.Store, cfg config.Config, logger *logx.Logger) (*journey.Catalog, error) {
	catalog, err := store.LoadStageCatalog(ctx)
	if err == nil {
		logger.Info("Loaded stage catalog from database: %d stages", len(catalog.ListStages()))
		return catalog, nil
	}
	if !errors.Is(err, persistence.ErrCatalogEmpty) {
		return nil, fmt.Errorf("failed to load stage catalog: %w", err)
	}

	if cfg.Catalog.SeedPath != "" {
		catalog, err = journey.LoadCatalogFromYAML(cfg.Catalog.SeedPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog seed %s: %w", cfg.Catalog.SeedPath, err)
		}
		logger.Info("Seeded stage catalog from %s", cfg.Catalog.SeedPath)
	} else {
		catalog = journey.DefaultCatalog()
		logger.Info("Seeded built-in stage catalog")
	}

	if err := store.SeedStageCatalog(ctx, catalog); err != nil {
		return nil, fmt.Errorf("failed to persist stage catalog: %w", err)
	}
	return catalog, nil
}

// unlockSecrets prompts for the secrets password and loads the
// decrypted secrets into memory.
func unlockSecrets(workDir string) error {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return fmt.Errorf("cannot prompt for password: stdin is not a terminal")
	}

	fmt.Print("Enter secrets password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	secrets, err := config.DecryptSecretsFile(workDir, string(password))
	if err != nil {
		return err
	}
	config.SetDecryptedSecrets(secrets)
	return nil
}

func generatePassword() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
