package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"spotkeeper/config"
	"spotkeeper/database"
	"spotkeeper/handlers"
	"spotkeeper/routes"
	"spotkeeper/services"
	"spotkeeper/store"
	"spotkeeper/utils"
)

func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	// 初始化資料庫
	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	lots := services.NewLotService(st)
	allocation := services.NewAllocationService(st)
	reports := services.NewReportService(st)
	users := services.NewUserService(st)
	audit := services.NewAuditService(st)

	// 確保預設管理員存在
	ensureAdminExists(cfg, users)

	gin.SetMode(cfg.GinMode)
	log.Printf("Gin mode set to %s", cfg.GinMode)

	h := &handlers.Handler{
		Lots:       lots,
		Allocation: allocation,
		Reports:    reports,
		Users:      users,
		JWTSecret:  []byte(cfg.JWTSecret),
		TokenTTL:   cfg.JWTExpirationHours,
	}
	router := routes.NewRouter(h, routes.NewRateLimiter(cfg.CheckInRatePerMinute))

	// 啟動定時任務
	c := cron.New()
	_, err = c.AddFunc(cfg.AuditSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		violations, err := audit.Run(ctx)
		if err != nil {
			log.Printf("Failed to run invariant audit: %v", err)
			return
		}
		log.Printf("Invariant audit finished: %d violations", len(violations))
	})
	if err != nil {
		log.Fatalf("Failed to schedule invariant audit cron job: %v", err)
	}
	c.Start()
	log.Println("Cron jobs started")

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	<-c.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}

// openStore 依 STORE_DRIVER 建立儲存層
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Println("Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath, cfg.GinMode)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return database.NewGormStore(db), nil
	case "mysql":
		db, err := database.OpenMySQL(cfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return database.NewGormStore(db), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// ensureAdminExists 檢查並創建預設管理員
func ensureAdminExists(cfg *config.Config, users *services.UserService) {
	if cfg.AdminPassword == "" {
		log.Println("ADMIN_PASSWORD not set, skipping default admin creation")
		return
	}
	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}
	created, err := users.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, hash)
	if err != nil {
		log.Fatalf("Failed to create default admin: %v", err)
	}
	if created {
		log.Printf("Default admin created: username=%s", cfg.AdminUsername)
	} else {
		log.Println("Admin already exists")
	}
}
