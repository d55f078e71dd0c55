package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"booking-api/internal/auth"
	"booking-api/internal/config"
	"booking-api/internal/handler"
	"booking-api/internal/logger"
	"booking-api/internal/middleware"
	"booking-api/internal/service"
	"booking-api/internal/store"
	"booking-api/internal/store/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("storage", zap.Error(err))
	}
	defer closeStore()

	signer := auth.NewSigner(cfg.JWTSecret, cfg.AccessTokenTTL)
	accounts := service.NewAccounts(st, st, signer, cfg.RefreshTokenTTL)
	if n, err := accounts.PurgeExpiredTokens(ctx); err != nil {
		lg.Warn("purge refresh tokens", zap.Error(err))
	} else if n > 0 {
		lg.Info("purged expired refresh tokens", zap.Int64("count", n))
	}

	h := handler.New(service.NewAppointments(st), service.NewMessaging(st), accounts, st)
	rl := middleware.NewRateLimiter(ctx, cfg.AuthRateLimit, cfg.AuthRateBurst)

	var web http.Handler = h.Router(rl)
	web = middleware.RequestLog(lg)(web)
	web = handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.RequestIDHeader}),
	)(web)
	web = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(lg)),
		handlers.PrintRecoveryStack(cfg.Env != "production"),
	)(web)

	// grpc health service
	hs := health.NewServer()
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(middleware.UnaryLogger(lg)))
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		lg.Fatal("listen", zap.Error(err))
	}
	go func() {
		lg.Info("grpc listening", zap.String("port", cfg.GRPCPort))
		if err := srv.Serve(lis); err != nil {
			lg.Error("grpc", zap.Error(err))
		}
	}()

	httpSrv := &http.Server{
		Addr:        ":" + cfg.WebPort,
		Handler:     web,
		ErrorLog:    zap.NewStdLog(lg),
		ConnContext: middleware.PeerContext,
	}
	go func() {
		lg.Info("http listening", zap.String("port", cfg.WebPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http", zap.Error(err))
			stop()
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	lg.Info("shutting down")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		srv.Stop()
	}
}

func openStore(ctx context.Context, cfg *config.Config, lg *zap.Logger) (service.Store, func(), error) {
	if cfg.StorageDriver == "memory" {
		lg.Warn("using in-memory storage; data is lost on exit")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(pool)
	if err := st.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	lg.Info("connected to postgres")

	// run migrations
	if script, err := os.ReadFile(cfg.MigrationsPath); err != nil {
		lg.Warn("migration file not found, skipping", zap.String("path", cfg.MigrationsPath), zap.Error(err))
	} else if err := st.Migrate(ctx, string(script)); err != nil {
		pool.Close()
		return nil, nil, err
	} else {
		lg.Info("migration applied", zap.String("path", cfg.MigrationsPath))
	}
	return st, pool.Close, nil
}
