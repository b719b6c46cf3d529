package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "github.com/mind-engage/savings-forecast/internal/api/http"
	auth "github.com/mind-engage/savings-forecast/internal/auth/middleware"
	"github.com/mind-engage/savings-forecast/internal/config"
	"github.com/mind-engage/savings-forecast/internal/db"
	"github.com/mind-engage/savings-forecast/internal/logging"
	"github.com/mind-engage/savings-forecast/internal/model"
	"github.com/mind-engage/savings-forecast/internal/predict"
	"github.com/mind-engage/savings-forecast/internal/profile"
	"github.com/mind-engage/savings-forecast/internal/requestlog"
	"github.com/mind-engage/savings-forecast/internal/storage"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	// --- Model artifacts (fatal) ---
	bundle, err := loadModel(cfg.ModelDir)
	if err != nil {
		logger.Fatal("error loading model or preprocessor", zap.Error(err))
	}
	logger.Info("model and preprocessor loaded",
		zap.String("dir", cfg.ModelDir),
		zap.Time("trained_at", bundle.TrainedAt),
		zap.Int("features", len(bundle.Preprocessor.InputColumns)))

	policy, err := predict.NewPolicy(cfg.ShaperPolicy, logger)
	if err != nil {
		logger.Fatal("shaper policy", zap.Error(err))
	}
	pipeOpts := []predict.Option{predict.WithLogger(logger)}

	// --- Prediction cache (optional) ---
	if cfg.RedisAddr != "" {
		cache := predict.NewRedisCache(cfg.RedisAddr, cfg.CacheTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := cache.Ping(ctx)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, prediction cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			cache.Close()
		} else {
			defer cache.Close()
			salt := bundle.TrainedAt.Format(time.RFC3339Nano)
			pipeOpts = append(pipeOpts, predict.WithCache(cache, salt))
		}
	}
	pipeline := predict.NewPipelineFromBundle(bundle, policy, pipeOpts...)

	// --- Request log (optional) ---
	var requests *requestlog.Repo
	if cfg.RequestLog {
		dbh, err := openDB(cfg)
		if err != nil {
			logger.Warn("request log disabled", zap.String("driver", cfg.DBDriver), zap.Error(err))
		} else {
			defer dbh.Close()
			requests = requestlog.NewRepo(dbh)
		}
	}

	r := newRouter(deps{
		cfg:       cfg,
		predictor: pipeline,
		info: api.ModelInfo{
			Features:  pipeline.FeatureNames(),
			Targets:   profile.TargetColumns(),
			Policy:    pipeline.PolicyName(),
			TrainedAt: bundle.TrainedAt,
		},
		requests: requests,
		authSvc:  auth.NewAuthService(cfg.AuthHMACSecret),
		logger:   logger,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("mode", string(cfg.Mode)), zap.String("policy", policy.Name()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("server failed", zap.Error(err))
		return
	case <-quit:
		logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func loadModel(dir string) (*model.Bundle, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	store, err := storage.NewFSStore(dir)
	if err != nil {
		return nil, err
	}
	return model.LoadBundle(store)
}

func openDB(cfg config.Config) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
}
