package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
	"github.com/bhackerb/PeakForm-C/internal/cache"
	"github.com/bhackerb/PeakForm-C/internal/coach"
	"github.com/bhackerb/PeakForm-C/internal/pipeline"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/telemetry/metrics"
	"github.com/bhackerb/PeakForm-C/internal/telemetry/tracing"
	"github.com/bhackerb/PeakForm-C/internal/window"
	"github.com/bhackerb/PeakForm-C/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	formNutrition = "nutrition"
	formActivity  = "activity"
	formWeek      = "week"
	formInterview = "interview"

	renderJSON   = "json"
	renderDigest = "digest"
)

var errBadRequest = errors.New("bad request")

type Handler struct {
	metricsManager *metrics.Manager
	responseCache  cache.Cache
	completer      coach.Completer
	policy         analysis.Policy
	keywords       table.Keywords
	maxUploadBytes int64
	versionInfo    string
	now            func() time.Time
}

type HandlerParams struct {
	MetricsManager *metrics.Manager
	ResponseCache  cache.Cache
	// Completer is nil when no LLM is configured; coach routes answer 503.
	Completer      coach.Completer
	Policy         analysis.Policy
	Keywords       table.Keywords
	MaxUploadBytes int64
	VersionInfo    string
	Now            func() time.Time
}

func NewHandler(params HandlerParams) *Handler {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		metricsManager: params.MetricsManager,
		responseCache:  params.ResponseCache,
		completer:      params.Completer,
		policy:         params.Policy.Merge(analysis.DefaultPolicy()),
		keywords:       params.Keywords,
		maxUploadBytes: params.MaxUploadBytes,
		versionInfo:    params.VersionInfo,
		now:            now,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/health", handler.handleHealth).Methods("GET").Name("health")
	r.HandleFunc("/analysis", handler.handleAnalysis).Methods("POST", "OPTIONS").Name("analysis")
	r.HandleFunc("/analysis/digest", handler.handleDigest).Methods("POST", "OPTIONS").Name("analysis-digest")
	r.HandleFunc("/coach/analysis", handler.handleCoachAnalysis).Methods("POST", "OPTIONS").Name("coach-analysis")
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Coach   bool   `json:"coach"`
}

func (handler *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, healthResponse{
		Status:  "ok",
		Version: handler.versionInfo,
		Coach:   handler.completer != nil,
	}, http.StatusOK)
}

func (handler *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	handler.serveAnalysis(w, r, renderJSON, pkg.ContentType.JSON, func(res *pipeline.Result) ([]byte, error) {
		return json.Marshal(res)
	})
}

func (handler *Handler) handleDigest(w http.ResponseWriter, r *http.Request) {
	handler.serveAnalysis(w, r, renderDigest, pkg.ContentType.Text, func(res *pipeline.Result) ([]byte, error) {
		return []byte(coach.Digest(res)), nil
	})
}

// serveAnalysis answers identical uploads for the same window from the
// response cache.
func (handler *Handler) serveAnalysis(
	w http.ResponseWriter,
	r *http.Request,
	render string,
	contentType string,
	renderFn func(*pipeline.Result) ([]byte, error),
) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analysis")
	defer span.End()
	span.SetAttributes(attribute.String("render", render))

	req, err := handler.readRequest(r)
	if err != nil {
		handler.writeError(w, err)
		return
	}

	win, err := window.Resolve(req.week, handler.now())
	if err != nil {
		handler.recordOutcome(err)
		handler.writeError(w, err)
		return
	}

	key := cache.Key(
		[]byte(render),
		[]byte(win.Start.Format(pkg.DateLayout)),
		req.uploads.Nutrition,
		req.uploads.Activity,
	)
	if body, found := handler.responseCache.Get(key); found {
		log.Debugf("analysis %s for %s served from cache", render, win)
		handler.metricsManager.CounterCacheHits.Inc()
		w.Header().Set("X-Cache", "hit")
		pkg.WriteResponseBytesOK(w, contentType, body)
		return
	}

	res, err := handler.runAnalysis(ctx, req, win)
	if err != nil {
		handler.writeError(w, err)
		return
	}

	body, err := renderFn(res)
	if err != nil {
		log.Errorf("render analysis %s: %s", render, err)
		pkg.WriteError(w, "failed to render analysis", http.StatusInternalServerError)
		return
	}
	if !handler.responseCache.Set(key, body) {
		log.Debugf("analysis %s for %s not cached (%d bytes)", render, win, len(body))
	}
	span.SetAttributes(attribute.Int("response_bytes", len(body)))

	w.Header().Set("X-Cache", "miss")
	pkg.WriteResponseBytesOK(w, contentType, body)
}

func (handler *Handler) handleCoachAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.coachAnalysis")
	defer span.End()

	if handler.completer == nil {
		pkg.WriteError(w, "coach is not configured", http.StatusServiceUnavailable)
		return
	}

	req, err := handler.readRequest(r)
	if err != nil {
		handler.writeError(w, err)
		return
	}

	iv := coach.NewInterview()
	if raw := strings.TrimSpace(req.interview); raw != "" {
		if err := json.Unmarshal([]byte(raw), &iv); err != nil {
			handler.writeError(w, fmt.Errorf("%w: interview is not valid JSON: %s", errBadRequest, err))
			return
		}
	}
	if err := iv.Validate(); err != nil {
		handler.writeError(w, err)
		return
	}

	win, err := window.Resolve(req.week, handler.now())
	if err != nil {
		handler.recordOutcome(err)
		handler.writeError(w, err)
		return
	}

	res, err := handler.runAnalysis(ctx, req, win)
	if err != nil {
		handler.writeError(w, err)
		return
	}

	session := coach.NewSession(handler.completer, res, coach.WithObserver(handler.observeCompletion))
	if err := session.Start(); err != nil {
		handler.writeError(w, err)
		return
	}
	text, err := session.SubmitInterview(ctx, iv)
	if err != nil {
		log.Errorf("coach analysis for %s: %s", win, err)
		pkg.WriteError(w, "coach analysis failed", http.StatusBadGateway)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.Markdown, []byte(text))
}

type analysisRequest struct {
	uploads   pipeline.Uploads
	week      string
	interview string
}

func (handler *Handler) readRequest(r *http.Request) (*analysisRequest, error) {
	if err := r.ParseMultipartForm(handler.maxUploadBytes); err != nil {
		return nil, fmt.Errorf("%w: parse multipart form: %s", errBadRequest, err)
	}

	nutritionData, err := formFile(r, formNutrition)
	if err != nil {
		return nil, err
	}
	if len(nutritionData) == 0 {
		return nil, fmt.Errorf("%w: missing %s upload", errBadRequest, formNutrition)
	}
	activityData, err := formFile(r, formActivity)
	if err != nil {
		return nil, err
	}

	return &analysisRequest{
		uploads: pipeline.Uploads{
			Nutrition: nutritionData,
			Activity:  activityData,
			Keywords:  handler.keywords,
		},
		week:      r.FormValue(formWeek),
		interview: r.FormValue(formInterview),
	}, nil
}

// formFile returns nil when the part is absent.
func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s upload: %s", errBadRequest, field, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("close %s upload: %s", field, err)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s upload: %s", errBadRequest, field, err)
	}
	return data, nil
}

func (handler *Handler) runAnalysis(ctx context.Context, req *analysisRequest, w window.Window) (_ *pipeline.Result, err error) {
	begin := time.Now()
	defer func() {
		handler.metricsManager.HistAnalysisDuration.Observe(time.Since(begin).Seconds())
		handler.recordOutcome(err)
	}()

	srcs, err := pipeline.LoadUploads(ctx, req.uploads)
	if err != nil {
		return nil, fmt.Errorf("load uploads: %w", err)
	}

	res := pipeline.Run(ctx, pipeline.Input{
		Nutrition:  srcs.Nutrition,
		Activities: srcs.Activities,
		Window:     w,
		Policy:     handler.policy,
	})

	handler.metricsManager.CounterCoverageWarnings.Add(float64(len(res.Coverage)))
	for _, s := range res.Signals {
		handler.metricsManager.CounterSignals.WithLabelValues(string(s.Category)).Inc()
	}
	return res, nil
}

func (handler *Handler) recordOutcome(err error) {
	handler.metricsManager.CounterAnalysisRuns.WithLabelValues(outcome(err)).Inc()
}

func (handler *Handler) observeCompletion(phase string, took time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	handler.metricsManager.CounterLLMCalls.WithLabelValues(phase, status).Inc()
	handler.metricsManager.HistLLMCallDuration.Observe(took.Seconds())
}

func outcome(err error) string {
	var weekErr *window.InvalidWeekError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &weekErr):
		return metrics.OutcomeInvalidWeek
	case errors.Is(err, table.ErrSourceFormat):
		return metrics.OutcomeSourceError
	default:
		return metrics.OutcomeError
	}
}

func statusCode(err error) int {
	var (
		weekErr       *window.InvalidWeekError
		validationErr *coach.ValidationError
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, table.ErrSourceFormat),
		errors.As(err, &weekErr),
		errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, coach.ErrWrongPhase):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (handler *Handler) writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		log.Errorf("analysis request: %s", err)
		pkg.WriteError(w, "internal error", code)
		return
	}
	log.Debugf("analysis request rejected: %s", err)
	pkg.WriteError(w, err.Error(), code)
}
