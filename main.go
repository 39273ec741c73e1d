package main

import (
	"log"
	"log/slog"

	"letmeask/internal/api"
	"letmeask/internal/auth"
	"letmeask/internal/logging"
	"letmeask/internal/models"
	"letmeask/internal/repository"
	"letmeask/internal/service"
	"letmeask/internal/storage"
	"letmeask/pkg/config"
)

func main() {
	// 載入應用程式配置
	// 從配置文件中讀取設置，如數據庫連接信息、OAuth 與服務器地址等
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	if err := cfg.Auth.Validate(); err != nil {
		log.Fatalf("Invalid auth config: %v", err)
	}

	// 初始化 repositories
	var repos *repository.Repositories
	switch cfg.Storage.Driver {
	case "memory":
		slog.Warn("using in-memory storage, rooms are lost on restart")
		repos = repository.NewMemoryRepositories()
	case "postgres", "":
		// 初始化資料庫連接
		db, err := storage.NewPostgresDB(cfg.DB)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		// 確保在程序結束時關閉數據庫連接
		defer db.Close()

		// 自動遷移資料庫結構
		if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.Question{}); err != nil {
			log.Fatalf("Failed to auto migrate database: %v", err)
		}
		repos = repository.NewRepositories(db)
	default:
		log.Fatalf("Unknown storage driver %q", cfg.Storage.Driver)
	}

	// 初始化 services
	services := service.NewServices(repos, slog.Default())

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	google := auth.NewGoogleProvider(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret, cfg.Auth.CallbackURL)

	// 設置 Gin 路由
	r := api.NewRouter(api.Dependencies{
		Services: services,
		Issuer:   issuer,
		OAuth:    google,
		Logger:   slog.Default(),
	})

	// 啟動伺服器
	slog.Info("server starting", "address", cfg.Server.Address, "storage", cfg.Storage.Driver)
	if err := r.Run(cfg.Server.Address); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
