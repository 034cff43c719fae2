// server/cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pizzeria-backoffice-api-server/config"
	"pizzeria-backoffice-api-server/internal/api/routes"
	"pizzeria-backoffice-api-server/internal/audit"
	"pizzeria-backoffice-api-server/internal/auth"
	"pizzeria-backoffice-api-server/internal/database"
	"pizzeria-backoffice-api-server/internal/drafting"
	"pizzeria-backoffice-api-server/internal/gemini"
	"pizzeria-backoffice-api-server/internal/inventory"
	"pizzeria-backoffice-api-server/internal/invoice"
	"pizzeria-backoffice-api-server/internal/logger"
	"pizzeria-backoffice-api-server/internal/negotiation"
	"pizzeria-backoffice-api-server/internal/quotation"
	"pizzeria-backoffice-api-server/internal/s3"
	"pizzeria-backoffice-api-server/internal/socket"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	logger.Init("pizzeria-backoffice-api", cfg.Server.Env, cfg.Log.Level)
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. MongoDB
	mongoClient, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal("mongo.connect_failed", zap.Error(err))
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	db := mongoClient.Database(cfg.Mongo.DBName)

	if err := database.EnsureIndexes(ctx, db, log); err != nil {
		log.Fatal("mongo.index_failed", zap.Error(err))
	}
	if err := database.SeedAdmin(ctx, db, cfg.Admin, log); err != nil {
		log.Fatal("mongo.seed_failed", zap.Error(err))
	}

	quotationStore := store.NewMongoQuotationStore(db)
	auditStore := store.NewMongoAuditStore(db)

	// 3. Redis: cache lịch sử giá và bản làm việc của kho. Không có Redis
	// thì chạy với cache tắt và bản làm việc trong bộ nhớ.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn("redis.unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// 4. Gemini, S3, websocket hub
	ai := gemini.NewClient(cfg.Gemini, nil, log.Named("gemini"))
	if cfg.Gemini.APIKey == "" {
		log.Warn("gemini.not_configured", zap.String("effect", "template emails and manual review only"))
	}

	var images invoice.ImageStore
	if cfg.S3.Bucket != "" {
		uploader, err := s3.NewUploader(cfg.S3)
		if err != nil {
			log.Warn("s3.unavailable", zap.Error(err))
		} else {
			images = uploader
		}
	}

	hub := socket.NewHub(log.Named("socket"))

	// 5. Services
	auditQueue := audit.NewQueue(auditStore, cfg.Workflow.AuditQueueSize, log.Named("audit"))
	drafter := drafting.NewDrafter(ai, cfg.Workflow.CompanyName, log.Named("drafting"))
	priceCache := negotiation.NewPriceCache(rdb, quotationStore, cfg.Negotiation.CacheTTL, cfg.Negotiation.HistoryLimit, log.Named("negotiation"))

	quotations := quotation.NewService(quotation.Deps{
		Store:       quotationStore,
		Audit:       auditQueue,
		AuditLog:    auditStore,
		Drafter:     drafter,
		AI:          ai,
		Notifier:    hub,
		PriceCache:  priceCache,
		ExpireAfter: cfg.Workflow.ExpireAfter,
		Logger:      log.Named("quotation"),
	})
	inv := inventory.NewService(inventory.Options{
		Redis:          rdb,
		Remote:         store.NewMongoInventoryStore(db),
		MirrorDebounce: cfg.Inventory.MirrorDebounce,
		WindowDays:     cfg.Inventory.ConsumptionWindowDays,
		Logger:         log.Named("inventory"),
	})

	issuer, err := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TokenTTL())
	if err != nil {
		log.Fatal("jwt.invalid_config", zap.Error(err))
	}

	// 6. Truyền tất cả các thành phần cần thiết vào router
	router := routes.SetupRouter(routes.Dependencies{
		Config:     cfg,
		Logger:     log.Named("http"),
		Issuer:     issuer,
		Users:      store.NewMongoUserStore(db),
		Suppliers:  store.NewMongoSupplierStore(db),
		Quotations: quotations,
		Negotiator: negotiation.NewAnalyzer(priceCache, drafter, cfg.Negotiation.MinSamples),
		Inventory:  inv,
		Scanner:    invoice.NewScanner(images, ai, inv, log.Named("invoice")),
		Hub:        hub,
	})

	go runExpirySweep(ctx, quotations, cfg.Workflow.ExpireSweep, log)

	// 7. Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server.starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server.failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server.shutdown_failed", zap.Error(err))
	}
	if err := inv.Flush(shutdownCtx); err != nil {
		log.Error("inventory.flush_failed", zap.Error(err))
	}
	if err := auditQueue.Close(shutdownCtx); err != nil {
		log.Error("audit.drain_failed", zap.Error(err))
	}
	log.Info("server.stopped")
}

// runExpirySweep định kỳ chuyển báo giá quá hạn sang expired.
func runExpirySweep(ctx context.Context, svc *quotation.Service, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ExpireStale(ctx)
			if err != nil {
				log.Warn("quotation.expire_sweep_failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("quotation.expired", zap.Int("count", n))
			}
		}
	}
}
