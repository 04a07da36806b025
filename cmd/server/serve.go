package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/loanscore-backend/internal/adapter/grpc"
	"github.com/simaogato/loanscore-backend/internal/adapter/httpapi"
	"github.com/simaogato/loanscore-backend/internal/classifier"
	"github.com/simaogato/loanscore-backend/internal/usecase/dashboard"
	"github.com/simaogato/loanscore-backend/internal/usecase/history"
	"github.com/simaogato/loanscore-backend/internal/usecase/scoring"
)

const (
	shutdownTimeout   = 10 * time.Second
	limiterPruneEvery = time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC and HTTP servers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Setup history store
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	// 2. Load the classifier
	model := classifier.NewFileAdapter(cfg.ModelPath, cfg.ModelLoadTimeout, logger)
	if cfg.ModelEagerLoad {
		if err := model.Warm(ctx); err != nil {
			logger.Error("Model unavailable; submissions will be refused", zap.Error(err))
		} else {
			logger.Info("Model loaded", zap.String("model_version", model.Version()))
		}
	}

	// 3. Initialize Services (Use Cases)
	scoringService := scoring.NewScoringService(model, st.Repo, cfg.Policy, scoring.Options{
		StorageTimeout: cfg.StorageTimeout,
		MaxAttempts:    cfg.PersistMaxAttempts,
		RetryDelay:     cfg.PersistRetryDelay,
	}, logger)
	historyService := history.NewHistoryService(st.Repo)
	dashboardService := dashboard.NewDashboardService(st.Repo)

	// 4. gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.APIToken),
			grpcadapter.AdminInterceptor(cfg.AdminToken),
		),
	)
	grpcadapter.RegisterLoanScoringServiceServer(grpcServer, grpcadapter.NewServer(scoringService, historyService, dashboardService))
	reflection.Register(grpcServer)

	// 5. HTTP server
	limiter := httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	handler := httpapi.NewHandler(scoringService, historyService, dashboardService, httpapi.BuildInfo{
		Version:      version,
		ModelVersion: model.Version,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, httpapi.RouterConfig{AdminToken: cfg.AdminToken, RateLimiter: limiter}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(limiterPruneEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.Prune(limiterIdleAfter)
			}
		}
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
