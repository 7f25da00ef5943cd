package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/davesep77/evolentra/internal/config"
	"github.com/davesep77/evolentra/internal/handler"
	"github.com/davesep77/evolentra/internal/middleware"
	"github.com/davesep77/evolentra/internal/pubsub"
	"github.com/davesep77/evolentra/internal/repository"
	"github.com/davesep77/evolentra/internal/service"
	"github.com/davesep77/evolentra/internal/ws"
	"github.com/davesep77/evolentra/pkg/auth"
	"github.com/davesep77/evolentra/pkg/db"
	"github.com/davesep77/evolentra/pkg/logger"
	"github.com/davesep77/evolentra/pkg/metrics"
)

func main() {
	log := logger.NewLogger("evolentra")
	log.Info("Starting Evolentra API...")

	if err := run(log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("Shutdown complete")
}

func run(log *logger.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewConnection(ctx, db.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: 5,
	})
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Database.ValidateSchema {
		if err := db.NewSchemaGuard(database).ValidateTables(ctx, db.LedgerTables()); err != nil {
			return fmt.Errorf("schema validation failed: %w", err)
		}
	}
	log.Info("Database connected and schema validated")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("api", registry)
	go m.CollectDBPoolStats(ctx, database, 15*time.Second)

	hub := ws.NewHub(log.WithField("component", "ws"))
	go hub.Run(ctx)

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if rdb, err = pubsub.NewRedisClient(ctx, cfg.Redis.URL); err != nil {
			return err
		}
		defer rdb.Close()
	}
	publisher, locks := eventPlumbing(ctx, log, cfg, rdb, hub)

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	store := repository.NewStore(database)
	deps := service.Deps{Store: store, Log: log, Publisher: publisher, Now: time.Now}
	rules := cfg.Rules

	binary := service.NewBinaryService(deps, rules)
	services := handler.Services{
		Users:       service.NewUserService(deps, rules, binary, tokens),
		Investments: service.NewInvestmentService(deps, rules, binary, m),
		Wallets:     service.NewWalletService(deps, service.NewStaticRates(rules)),
		Withdrawals: service.NewWithdrawalService(deps, rules, m),
		Binary:      binary,
		Scheduler:   service.NewRoiScheduler(deps, rules, locks, cfg.Redis.RunLockTTL, m),
	}

	throttle := middleware.NewThrottle(cfg.Server.ThrottleLimit, cfg.Server.ThrottleWindow)
	go throttle.Run(ctx, 5*time.Minute)

	router := handler.NewRouter(services, handler.RouterConfig{
		Log:            log,
		Metrics:        m,
		Tokens:         tokens,
		Throttle:       throttle,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Live:           ws.NewHandler(hub, cfg.Server.AllowedOrigins).Serve,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		DB:             database,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcServer, healthServer := newHealthServer(log, m)

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %s: %w", cfg.Server.GRPCPort, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.WithField("port", cfg.Server.HTTPPort).Info("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.WithField("port", cfg.Server.GRPCPort).Info("gRPC health server started")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go watchDatabase(ctx, database, healthServer)

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errCh:
		log.WithError(err).Error("server failed")
		stop()
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown did not complete")
	}
	grpcServer.GracefulStop()
	return nil
}

// eventPlumbing picks Redis for events and the ROI run lock when configured
// and falls back to in-process delivery otherwise.
func eventPlumbing(ctx context.Context, log *logger.Logger, cfg *config.Config, rdb *redis.Client, hub *ws.Hub) (pubsub.Publisher, repository.RunLockRepository) {
	if rdb == nil {
		log.Warn("REDIS_URL not set: events stay in process and the ROI run lock is local")
		return pubsub.NewLocalPublisher(hub.Deliver), repository.NewLocalRunLockRepository()
	}

	go func() {
		if err := pubsub.Subscribe(ctx, rdb, cfg.Redis.EventChannel, log.WithField("component", "pubsub"), hub.Deliver); err != nil {
			log.WithError(err).Error("ledger event subscription ended")
		}
	}()
	return pubsub.NewRedisPublisher(rdb, cfg.Redis.EventChannel), repository.NewRedisRunLockRepository(rdb)
}

func newHealthServer(log *logger.Logger, m *metrics.Metrics) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logger.UnaryServerInterceptor(log),
			metrics.UnaryServerInterceptor(m),
		),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	return grpcServer, healthServer
}

// watchDatabase mirrors database reachability into the gRPC health status.
func watchDatabase(ctx context.Context, database *sql.DB, hs *health.Server) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		status := healthpb.HealthCheckResponse_SERVING
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := database.PingContext(pingCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		cancel()
		hs.SetServingStatus("", status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
