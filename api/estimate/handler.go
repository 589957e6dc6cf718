// Package estimate exposes the range estimators over HTTP.
package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/evrange/core/estimator"
	"github.com/kilianp07/evrange/core/factory"
	"github.com/kilianp07/evrange/core/history"
	"github.com/kilianp07/evrange/core/model"
)

const (
	basePath     = "/api/estimate/"
	maxBodyBytes = 1 << 20
)

// Service is the subset of the application used by the handlers.
type Service interface {
	Estimate(ctx context.Context, req model.EstimateRequest) (model.Estimate, error)
	History(ctx context.Context, q history.Query) ([]history.Record, error)
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Register mounts every estimate route on mux. History requests must carry
// "Bearer <token>" when token is non-empty.
func Register(mux *http.ServeMux, svc Service, token string) {
	mux.Handle(basePath+"history", NewHistoryHandler(svc, token))
	mux.Handle(basePath+"defaults", NewDefaultsHandler())
	mux.Handle(basePath+"models", NewModelsHandler())
	mux.Handle(basePath, NewEstimateHandler(svc))
}

// NewEstimateHandler serves POST /api/estimate/{model}. The body is a JSON
// object of model parameters.
func NewEstimateHandler(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.Trim(strings.TrimPrefix(r.URL.Path, basePath), "/")
		if name == "" || strings.Contains(name, "/") {
			http.NotFound(w, r)
			return
		}
		var params map[string]any
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&params); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("body must be a JSON object: %v", err)})
			return
		}
		est, err := svc.Estimate(r.Context(), model.EstimateRequest{
			RequestID: r.Header.Get("X-Request-ID"),
			Model:     name,
			Params:    params,
			VehicleID: r.URL.Query().Get("vehicle_id"),
			Source:    model.SourceHTTP,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, est)
	})
}

// NewHistoryHandler serves GET /api/estimate/history with optional model,
// vehicle_id, start, end (RFC3339) and limit filters.
func NewHistoryHandler(svc Service, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		records, err := svc.History(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []history.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	})
}

// NewDefaultsHandler serves GET /api/estimate/defaults?capacity=, returning
// the consumption and terrain factor assumed for that battery size.
func NewDefaultsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		c, err := strconv.ParseFloat(r.URL.Query().Get("capacity"), 64)
		if err == nil {
			err = estimator.CheckCapacity(c)
		}
		if err != nil {
			reason := "must be a number"
			var verr *estimator.ValidationError
			if errors.As(err, &verr) {
				reason = verr.Reason
			}
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "capacity " + reason, Field: "capacity"})
			return
		}
		writeJSON(w, http.StatusOK, estimator.DeriveDefaults(c))
	})
}

// NewModelsHandler serves GET /api/estimate/models.
func NewModelsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		type entry struct {
			Name string             `json:"name"`
			Unit model.DistanceUnit `json:"unit"`
		}
		var out []entry
		for _, n := range estimator.Names() {
			e, err := estimator.New(n)
			if err != nil {
				continue
			}
			out = append(out, entry{Name: n, Unit: e.Unit()})
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func parseQuery(r *http.Request) (history.Query, error) {
	v := r.URL.Query()
	q := history.Query{Model: v.Get("model"), VehicleID: v.Get("vehicle_id")}
	for key, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
		if s := v.Get(key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return q, fmt.Errorf("%s must be RFC3339: %w", key, err)
			}
			*dst = t
		}
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *estimator.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, factory.ErrUnknownType):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
