// Package api serves density rankings and the classified choropleth over
// HTTP for an external map renderer.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/treedensity/treedensity-cli/internal/choropleth"
	"github.com/treedensity/treedensity-cli/internal/dataset"
	"github.com/treedensity/treedensity-cli/internal/density"
	"github.com/treedensity/treedensity-cli/internal/geodata"
	"github.com/treedensity/treedensity-cli/internal/model"
)

// Options configures the HTTP API.
type Options struct {
	// TopN is used when /rankings/top has no n parameter.
	TopN           int
	AllowedOrigins []string
}

// Server holds one loaded dataset and answers queries against it.
type Server struct {
	data     *dataset.Dataset
	analyzer *density.Analyzer
	scale    *choropleth.QuantileScale
	opts     Options
}

// NewServer creates a Server. scale may be nil when the dataset has no
// usable densities.
func NewServer(data *dataset.Dataset, analyzer *density.Analyzer, scale *choropleth.QuantileScale, opts Options) *Server {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{data: data, analyzer: analyzer, scale: scale, opts: opts}
}

// Routes returns the router with all endpoints mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/municipalities", s.handleMunicipalities)
	r.Route("/rankings", func(r chi.Router) {
		r.Get("/max", s.handleMax)
		r.Get("/top", s.handleTop)
	})
	r.Get("/summary", s.handleSummary)
	r.Get("/choropleth.geojson", s.handleChoropleth)
	r.Get("/classes", s.handleClasses)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("component", "api"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps analyzer errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case eris.Is(err, density.ErrEmptyInput):
		return http.StatusConflict
	case eris.Is(err, density.ErrInvalidArea):
		return http.StatusUnprocessableEntity
	case eris.Is(err, density.ErrNegativeN):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// municipalityView is a record with its derived density; Density is null
// when the area is unusable.
type municipalityView struct {
	model.Municipality
	Density *float64 `json:"density"`
}

func (s *Server) handleMunicipalities(w http.ResponseWriter, _ *http.Request) {
	out := make([]municipalityView, len(s.data.Records))
	for i, m := range s.data.Records {
		out[i] = municipalityView{Municipality: m}
		if d, ok := m.Density(); ok {
			out[i].Density = &d
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMax(w http.ResponseWriter, _ *http.Request) {
	best, err := s.analyzer.MaxDensity(s.data.Records)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, best)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n := s.opts.TopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "n must be an integer")
			return
		}
		n = v
	}
	top, err := s.analyzer.TopNByDensity(s.data.Records, n)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	sum, err := density.Summarize(s.data.Records)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleChoropleth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	if err := geodata.EncodeChoropleth(w, s.data.Features, s.scale); err != nil {
		zap.L().Error("api: encode choropleth", zap.Error(err))
	}
}

func (s *Server) handleClasses(w http.ResponseWriter, _ *http.Request) {
	breaks := []choropleth.Break{}
	if s.scale != nil {
		breaks = s.scale.Breaks()
	}
	writeJSON(w, http.StatusOK, breaks)
}
