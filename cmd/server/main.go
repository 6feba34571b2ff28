package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/go-studyhub/internal/api"
	"github.com/npezzotti/go-studyhub/internal/config"
	"github.com/npezzotti/go-studyhub/internal/database"
	"github.com/npezzotti/go-studyhub/internal/ratelimit"
	"github.com/npezzotti/go-studyhub/internal/server"
	"github.com/npezzotti/go-studyhub/internal/stats"
)

const (
	defaultSigningKey   = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="
	limiterCleanupEvery = 5 * time.Minute
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

// repository is the storage backend plus its lifecycle.
type repository interface {
	database.StudyHubRepository
	io.Closer
}

func openRepository(cfg *config.Config, logger *log.Logger) (repository, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		logger.Println("using sqlite database")
		return database.NewGormStudyHubRepository(cfg.DatabaseDSN)
	}

	repo, err := database.NewPgStudyHubRepository(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if cfg.Migrate {
		logger.Println("applying database migrations")
		if err := repo.Migrate(); err != nil {
			repo.Close()
			return nil, err
		}
	}

	return repo, nil
}

func main() {
	var (
		opts       config.Options
		configFile string
		origins    stringSliceFlag
	)

	flag.StringVar(&configFile, "config", "", "path to a TOML config file")
	flag.StringVar(&opts.Addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&opts.DBDriver, "db-driver", config.DriverPostgres, "database driver (postgres or sqlite)")
	flag.StringVar(&opts.DSN, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&opts.SigningKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&origins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.BoolVar(&opts.Migrate, "migrate", false, "apply database migrations on startup")
	flag.Float64Var(&opts.FormRate, "form-rate", 5, "form submissions allowed per client and minute")
	flag.IntVar(&opts.FormBurst, "form-burst", 3, "form submissions allowed in a burst")
	flag.Parse()

	opts.AllowedOrigins = origins

	logger := log.New(os.Stderr, "[studyhub] ", log.LstdFlags)

	if configFile != "" {
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

		if err := opts.ApplyFile(configFile, explicit); err != nil {
			logger.Fatal("config file:", err)
		}
	}

	cfg, err := config.NewConfig(opts)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := openRepository(cfg, logger)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, dbConn, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	limiter := ratelimit.NewLimiterStore(cfg.FormRate, cfg.FormBurst, limiterCleanupEvery)
	defer limiter.Stop()

	srv := api.NewStudyHubApp(mux, logger, chatServer, dbConn, limiter, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
