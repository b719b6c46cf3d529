package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/mind-engage/savings-forecast/internal/api/http"
	auth "github.com/mind-engage/savings-forecast/internal/auth/middleware"
	"github.com/mind-engage/savings-forecast/internal/config"
	"github.com/mind-engage/savings-forecast/internal/logging"
	"github.com/mind-engage/savings-forecast/internal/rbac"
	"github.com/mind-engage/savings-forecast/internal/requestlog"
)

type deps struct {
	cfg       config.Config
	predictor api.Predictor
	info      api.ModelInfo
	requests  *requestlog.Repo // nil when the request log is off
	authSvc   *auth.AuthService
	logger    *zap.Logger
}

func newRouter(d deps) chi.Router {
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(d.logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(d.authSvc, auth.Credentials{
			User:     d.cfg.AdminUser,
			PassHash: d.cfg.AdminPassHash,
		}))
	}

	opts := api.PredictOptions{
		VerboseErrors: d.cfg.ErrorDetail == config.ErrorDetailVerbose,
		Logger:        d.logger,
	}
	if d.requests != nil {
		opts.Log = d.requests
	}
	checker := rbac.NewChecker(nil)
	predictHandler := api.PredictHandler(d.predictor, opts)
	modelHandler := api.ModelInfoHandler(d.info)
	if d.cfg.RequireAuth {
		r.With(auth.JWTMiddleware(d.authSvc), checker.Require(rbac.PermPredict)).Post("/predict", predictHandler)
		r.With(auth.JWTMiddleware(d.authSvc), checker.Require(rbac.PermModelRead)).Get("/model", modelHandler)
	} else {
		r.With(auth.OptionalJWT(d.authSvc)).Post("/predict", predictHandler)
		r.Get("/model", modelHandler)
	}

	if d.requests != nil {
		r.With(auth.JWTMiddleware(d.authSvc), checker.Require(rbac.PermPredictionsRead)).
			Get("/predictions", api.RecentPredictionsHandler(d.requests))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	// artifacts are loaded before the router exists
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}
