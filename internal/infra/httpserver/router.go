package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appanalysis "github.com/bryanwahyu/fileguard/internal/application/analysis"
	domain "github.com/bryanwahyu/fileguard/internal/domain/analysis"
	"github.com/bryanwahyu/fileguard/internal/middleware"
)

type Options struct {
	ServiceName    string
	MaxUploadBytes int64
	AllowedOrigins []string
	Logger         zerolog.Logger
	// Metrics defaults to a fresh registry when nil
	Metrics *middleware.Metrics
}

type Router struct {
	analysisSvc *appanalysis.Service
	maxUpload   int64
	log         zerolog.Logger
	metrics     *middleware.Metrics
}

func NewRouter(analysisSvc *appanalysis.Service, opts Options) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := &Router{
		analysisSvc: analysisSvc,
		maxUpload:   opts.MaxUploadBytes,
		log:         opts.Logger,
		metrics:     opts.Metrics,
	}
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.AccessLog(opts.Logger))
	mux.Use(opts.Metrics.Middleware)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.ServiceName))
	mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	mux.Post("/analyze", r.wrap(r.handleAnalyze))
	mux.Post("/analyze/object", r.wrap(r.handleAnalyzeObject))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap translates handler errors into the JSON error envelope.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			r.metrics.ObserveAnalysis("success")
			return
		}

		kind := domain.KindOf(err)
		r.metrics.ObserveAnalysis(kind.String())

		status := http.StatusInternalServerError
		ev := r.log.Error()
		if kind == domain.BadRequest {
			status = http.StatusBadRequest
			ev = r.log.Warn()
		}
		ev.Err(err).
			Str("request_id", middleware.GetRequestID(req.Context())).
			Str("kind", kind.String()).
			Str("path", req.URL.Path).
			Msg("analysis failed")

		writeError(w, status, err.Error())
	}
}

// POST /analyze
// multipart/form-data with a "file" part; responds {"analysis": "<model text>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	file, err := readUpload(w, req, r.maxUpload)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := r.analysisSvc.Analyze(req.Context(), file)
	if err != nil {
		return err
	}

	r.log.Info().
		Str("request_id", middleware.GetRequestID(req.Context())).
		Str("filename", middleware.SanitizeString(file.Filename)).
		Str("media_type", file.EffectiveMediaType()).
		Int("size", file.Size()).
		Dur("latency", time.Since(start)).
		Msg("file analyzed")

	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /analyze/object
// Body: {"key": "<object key>"}
// The object is read from the configured bucket and analyzed like an upload.
func (r *Router) handleAnalyzeObject(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, 64<<10)).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.BadRequestf("request body is empty")
		}
		return domain.BadRequestf("invalid JSON body: %v", err)
	}
	if err := middleware.ValidateObjectKey(body.Key); err != nil {
		return domain.BadRequestf("%v", err)
	}

	start := time.Now()
	res, err := r.analysisSvc.AnalyzeObject(req.Context(), body.Key)
	if err != nil {
		return err
	}

	r.log.Info().
		Str("request_id", middleware.GetRequestID(req.Context())).
		Str("key", body.Key).
		Dur("latency", time.Since(start)).
		Msg("object analyzed")

	writeJSON(w, http.StatusOK, res)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	// model text is relayed as-is, no < style escaping
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
