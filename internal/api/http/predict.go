package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	authmw "github.com/mind-engage/savings-forecast/internal/auth/middleware"
	"github.com/mind-engage/savings-forecast/internal/predict"
	"github.com/mind-engage/savings-forecast/internal/profile"
	"github.com/mind-engage/savings-forecast/internal/requestlog"
)

// Handlers only; routes are mounted in cmd/predictd.

const (
	maxBodyBytes   = 1 << 20
	genericFailure = "Error processing prediction request."
)

type Predictor interface {
	Predict(ctx context.Context, fields map[string]any) (predict.Result, error)
	FeatureNames() []string
	PolicyName() string
}

// RequestLog records accepted profiles and their outcome.
type RequestLog interface {
	Append(ctx context.Context, subject, profileJSON string) (string, error)
	Complete(ctx context.Context, id, resultJSON string) error
	Fail(ctx context.Context, id, msg string) error
}

type PredictOptions struct {
	VerboseErrors bool
	Log           RequestLog // optional
	Logger        *zap.Logger
}

// POST /predict
func PredictHandler(p Predictor, opts PredictOptions) nethttp.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, err := io.ReadAll(nethttp.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *nethttp.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, nethttp.StatusRequestEntityTooLarge, map[string]any{"detail": "request body too large"})
				return
			}
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"detail": "could not read request body"})
			return
		}
		up, err := profile.Decode(body)
		if err != nil {
			var verr *profile.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, nethttp.StatusUnprocessableEntity, map[string]any{"detail": verr.Fields})
				return
			}
			writeJSON(w, nethttp.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
			return
		}

		ctx := r.Context()
		fields := up.Fields()
		logger.Debug("prediction request", zap.Any("input", fields))

		var entryID string
		if opts.Log != nil {
			id, err := opts.Log.Append(ctx, authmw.SubjectFromContext(ctx), string(body))
			if err != nil {
				logger.Warn("request log append failed", zap.Error(err))
			}
			entryID = id
		}

		res, err := p.Predict(ctx, fields)
		if err != nil {
			logger.Error("prediction failed", zap.Error(err))
			if entryID != "" {
				if lerr := opts.Log.Fail(ctx, entryID, err.Error()); lerr != nil {
					logger.Warn("request log update failed", zap.Error(lerr))
				}
			}
			detail := genericFailure
			if opts.VerboseErrors {
				detail = "Internal Server Error: " + err.Error()
			}
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"detail": detail})
			return
		}

		out := map[string]any{"predictions": res.Object()}
		if entryID != "" {
			if b, err := json.Marshal(res.Object()); err == nil {
				if lerr := opts.Log.Complete(ctx, entryID, string(b)); lerr != nil {
					logger.Warn("request log update failed", zap.Error(lerr))
				}
			}
		}
		logger.Debug("prediction result", zap.Float64("total", res.Total))
		writeJSON(w, nethttp.StatusOK, out)
	}
}

// ModelInfo describes the loaded artifacts.
type ModelInfo struct {
	Features  []string  `json:"features"`
	Targets   []string  `json:"targets"`
	Policy    string    `json:"shaper_policy"`
	TrainedAt time.Time `json:"trained_at"`
}

// GET /model
func ModelInfoHandler(info ModelInfo) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, info)
	}
}

type RecentLister interface {
	Recent(ctx context.Context, subject string, limit int) ([]requestlog.Entry, error)
}

// GET /predictions?limit=
func RecentPredictionsHandler(repo RecentLister) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		limit := 50
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		entries, err := repo.Recent(r.Context(), "", limit)
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"detail": "db error"})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"items": entries})
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
