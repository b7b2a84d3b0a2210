package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	http_adapter "github.com/hsinyuh/go-credit-ledger/internal/app/core/adapter/in/http"
	memory_adapter "github.com/hsinyuh/go-credit-ledger/internal/app/core/adapter/out/memory"
	postgres_adapter "github.com/hsinyuh/go-credit-ledger/internal/app/core/adapter/out/postgres"
	"github.com/hsinyuh/go-credit-ledger/internal/app/core/domain"
	"github.com/hsinyuh/go-credit-ledger/internal/app/core/usecase"
	"github.com/hsinyuh/go-credit-ledger/pkg/postgres"
	"github.com/hsinyuh/go-credit-ledger/pkg/wal"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Mode    string `yaml:"mode"`    // gin mode: debug / release
	Backend string `yaml:"backend"` // postgres / memory
}

type WALConfig struct {
	Path string `yaml:"path"`
}

// SeedAccount 預先建立的帳戶 (帳戶集合固定，系統不提供開戶)
type SeedAccount struct {
	ID          int64 `yaml:"id"`
	CreditLimit int64 `yaml:"credit_limit"`
}

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Postgres postgres.Config `yaml:"postgres"`
	WAL      WALConfig       `yaml:"wal"`
	Seed     []SeedAccount   `yaml:"seed"`
}

func main() {
	// 1. 載入設定
	cfg := loadConfig()

	// 2. 依設定選擇 Ledger 後端
	var usedLedger usecase.Ledger
	switch cfg.Server.Backend {
	case BackendPostgres:
		dbClient, err := postgres.NewClient(cfg.Postgres)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer dbClient.Close()
		log.Println("Connected to PostgreSQL successfully")

		ledgerRepo := postgres_adapter.NewPostgresLedger(dbClient)
		if err := ledgerRepo.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
		if err := ledgerRepo.Seed(context.Background(), seedLimits(cfg.Seed)); err != nil {
			log.Fatalf("Failed to seed accounts: %v", err)
		}
		usedLedger = ledgerRepo
	case BackendMemory:
		walFile, err := wal.NewWAL(cfg.WAL.Path)
		if err != nil {
			log.Fatalf("Failed to init WAL: %v", err)
		}
		defer walFile.Close()

		accounts := make(map[int64]*domain.Account, len(cfg.Seed))
		for _, seed := range cfg.Seed {
			accounts[seed.ID] = domain.NewAccount(seed.ID, seed.CreditLimit)
		}
		mutexLedger, err := memory_adapter.NewMutexLedger(accounts, walFile)
		if err != nil {
			log.Fatalf("Failed to init MutexLedger: %v", err)
		}
		usedLedger = mutexLedger
	default:
		log.Fatalf("Invalid ledger backend: %q", cfg.Server.Backend)
	}
	log.Printf("Ledger backend: %s, %d seeded accounts", cfg.Server.Backend, len(cfg.Seed))

	// 3. 初始化 UseCase
	coreUseCase := usecase.NewCoreUseCase(usedLedger)

	// 4. 初始化 HTTP Adapter (Driving Adapter)
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	http_adapter.NewServer(coreUseCase).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	// 5. 啟動 HTTP Server
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("Server exited")
}

func loadConfig() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfgData, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	// 補全預設配置 (如果 yaml 沒寫)
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Backend == "" {
		cfg.Server.Backend = BackendPostgres
	}
	if cfg.WAL.Path == "" {
		cfg.WAL.Path = "wal.log"
	}
	if cfg.Postgres.MaxOpenConns == 0 {
		cfg.Postgres.MaxOpenConns = 100
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 10
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if len(cfg.Seed) == 0 {
		cfg.Seed = defaultSeed()
	}
	return cfg
}

// defaultSeed 經典的五個初始帳戶 (額度單位: 分)
func defaultSeed() []SeedAccount {
	return []SeedAccount{
		{ID: 1, CreditLimit: 100000},
		{ID: 2, CreditLimit: 80000},
		{ID: 3, CreditLimit: 1000000},
		{ID: 4, CreditLimit: 10000000},
		{ID: 5, CreditLimit: 500000},
	}
}

func seedLimits(seed []SeedAccount) map[int64]int64 {
	limits := make(map[int64]int64, len(seed))
	for _, account := range seed {
		limits[account.ID] = account.CreditLimit
	}
	return limits
}
