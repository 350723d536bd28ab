package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/dkoleva/enterprise-accounts/internal/config"
	"github.com/dkoleva/enterprise-accounts/internal/database"
	"github.com/dkoleva/enterprise-accounts/internal/handler"
	"github.com/dkoleva/enterprise-accounts/internal/middleware"
	"github.com/dkoleva/enterprise-accounts/internal/queue"
	"github.com/dkoleva/enterprise-accounts/internal/repository"
	"github.com/dkoleva/enterprise-accounts/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis backs the response cache and the rate limiter. A nil client
	// disables both rather than failing startup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; cache and rate limiting disabled")
	}

	// Audit consumer runs for the life of the process and survives broker
	// restarts on its own.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	accounts := repository.NewAccountRepo(db)
	catalogs := map[string]*repository.CatalogRepo{
		"enterprise": repository.NewCatalogRepo(db, "enterprises"),
		"product":    repository.NewCatalogRepo(db, "products"),
		"service":    repository.NewCatalogRepo(db, "services"),
		"template":   repository.NewCatalogRepo(db, "templates"),
	}

	cacheCfg := config.LoadCacheConfig()

	authH := handler.NewAuthHandler(cfg, users, tokens)
	catalogH := handler.NewCatalogHandler(catalogs, accounts,
		middleware.NewCacheInvalidator(cacheCfg, rdb))
	accountH := handler.NewAccountHandler(accounts)

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterAPI(e, catalogH, accountH, cfg.JWTSecret,
		middleware.NewRedisCache(cacheCfg, rdb))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
