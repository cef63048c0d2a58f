package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"CRIMS-backend/internal/activity"
	"CRIMS-backend/internal/circulation"
	"CRIMS-backend/internal/inventory"
	"CRIMS-backend/internal/platform/auth"
	"CRIMS-backend/internal/platform/db"
	"CRIMS-backend/internal/platform/idem"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	log.Printf("[INFO] mode:%s\n", cfg.Mode)
	if cfg.Mode != "dev" && cfg.Mode != "release" {
		log.Fatal("config mode must be dev or release")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	policy, err := circulation.CreditPolicyFromConfig(cfg.CreditPolicy)
	if err != nil {
		log.Fatalf("[ERROR] invalid credit_policy: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		log.Printf("[INFO] idempotency guard enabled via redis %s", cfg.Redis.Addr)
	}

	var pub activity.Publisher
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		pub = activity.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer pub.Close()
		log.Printf("[INFO] activity fanout enabled on topic %s", cfg.Kafka.Topic)
	}

	activitySvc := activity.NewService(conn, pub)
	inventorySvc := inventory.NewService(conn, activitySvc)
	circulationSvc := circulation.NewService(conn, activitySvc, policy)
	authSvc := auth.NewService(conn, []byte(cfg.JWTSecret))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api/v1")

	protected := r.Group("/api/v1")
	protected.Use(auth.RequireAuth([]byte(cfg.JWTSecret)))
	protected.Use(idem.New(rdb).Middleware())

	admin := r.Group("/api/v1")
	admin.Use(auth.RequireAuth([]byte(cfg.JWTSecret)), auth.RequireRole("admin"))

	auth.RegisterRoutes(api, admin, authSvc)
	inventory.RegisterRoutes(protected, inventorySvc)
	circulation.RegisterRoutes(protected, circulationSvc)
	activity.RegisterRoutes(protected, activitySvc)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go runOverdueSweep(bgCtx, circulationSvc)
	go runArchivePurge(bgCtx, inventorySvc)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

// runOverdueSweep marks borrowed transactions past their expected return date
// as overdue, once at startup and then hourly.
func runOverdueSweep(ctx context.Context, svc *circulation.Service) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		if n, err := svc.SweepOverdue(ctx); err != nil {
			log.Printf("[WARN] overdue sweep failed: %v", err)
		} else if n > 0 {
			log.Printf("[INFO] overdue sweep: %d transaction(s) marked", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// runArchivePurge deletes archived items past the retention window, daily.
func runArchivePurge(ctx context.Context, svc *inventory.Service) {
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		if n, err := svc.PurgeArchived(ctx); err != nil {
			log.Printf("[WARN] archive purge failed: %v", err)
		} else if n > 0 {
			log.Printf("[INFO] archive purge: %d item(s) deleted", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
