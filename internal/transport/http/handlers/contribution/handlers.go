package contributionhandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sicalc/internal/domain/contribution"
	"sicalc/internal/exporter"
	"sicalc/internal/importer"
	"sicalc/internal/platform/jobs"
	"sicalc/internal/platform/metrics"
	"sicalc/internal/requestctx"
	"sicalc/internal/transport/http/api"
	"sicalc/internal/transport/http/middleware"
	"sicalc/internal/transport/http/shared"
)

const (
	defaultResultsLimit = 100
	maxResultsLimit     = 1000
	recentRunsLimit     = 50
	defaultUploadBytes  = 10 << 20
)

type Handler struct {
	Service          *contribution.Service
	Runs             *jobs.Recorder
	Metrics          *metrics.Collector
	DefaultOverwrite bool
	MaxUploadBytes   int64
	PDFFontPath      string
	Now              func() time.Time
}

func NewHandler(service *contribution.Service, runs *jobs.Recorder, collector *metrics.Collector) *Handler {
	return &Handler{
		Service:          service,
		Runs:             runs,
		Metrics:          collector,
		DefaultOverwrite: true,
		MaxUploadBytes:   defaultUploadBytes,
		Now:              time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/uploads", func(r chi.Router) {
		r.Post("/cities", h.handleUploadCities)
		r.Post("/salaries", h.handleUploadSalaries)
	})
	r.Get("/cities", h.handleListCities)
	r.Post("/calculate", h.handleCalculate)
	r.Get("/results", h.handleListResults)
	r.Get("/results/export", h.handleExportWorkbook)
	r.Get("/results/export.pdf", h.handleExportPDF)
	r.Get("/runs", h.handleListRuns)
}

type countResponse struct {
	Count int `json:"count"`
}

type calculatePayload struct {
	City        string `json:"city"`
	IsOverwrite *bool  `json:"isOverwrite"`
}

type resultsPage struct {
	Items  []contribution.ResultRecord `json:"items"`
	Total  int                         `json:"total"`
	Limit  int                         `json:"limit"`
	Offset int                         `json:"offset"`
}

func (h *Handler) handleUploadCities(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, func(file io.Reader, name string) (int, error) {
		rules, err := importer.ParseCities(file, name)
		if err != nil {
			return 0, err
		}
		return h.Service.ReplaceCityRules(r.Context(), rules)
	})
}

func (h *Handler) handleUploadSalaries(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, func(file io.Reader, name string) (int, error) {
		salaries, err := importer.ParseSalaries(file, name)
		if err != nil {
			return 0, err
		}
		return h.Service.ReplaceSalaries(r.Context(), salaries)
	})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, store func(io.Reader, string) (int, error)) {
	requestID := middleware.GetRequestID(r.Context())
	if err := r.ParseMultipartForm(h.maxUploadBytes()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "uploaded file is too large", requestID)
			return
		}
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "file", Reason: "multipart upload with a file field is required"}})
		return
	}
	defer r.MultipartForm.RemoveAll()
	file, header, err := r.FormFile("file")
	if err != nil {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "file", Reason: "is required"}})
		return
	}
	defer file.Close()

	count, err := store(file, header.Filename)
	var verr *importer.ValidationError
	switch {
	case err == nil:
		h.Metrics.RecordUpload()
		api.Success(w, countResponse{Count: count}, requestID)
	case errors.As(err, &verr):
		api.FailWithDetails(w, http.StatusBadRequest, "validation_error", verr.Error(),
			map[string]any{"row": verr.Row, "field": verr.Field, "reason": verr.Reason}, requestID)
	case errors.Is(err, importer.ErrEmptySheet):
		api.Fail(w, http.StatusBadRequest, "empty_sheet", "file has no data rows", requestID)
	case errors.Is(err, importer.ErrUnsupportedFormat):
		api.Fail(w, http.StatusBadRequest, "unsupported_format", err.Error(), requestID)
	case errors.Is(err, contribution.ErrInvalidRule):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, importer.ErrUnreadable):
		api.Fail(w, http.StatusBadRequest, "invalid_file", "file could not be read", requestID)
	default:
		requestctx.Logger(r.Context()).Error("upload failed", "path", r.URL.Path, "file", header.Filename, "err", err)
		api.Fail(w, http.StatusInternalServerError, "upload_failed", "upload failed, retry later", requestID)
	}
}

func (h *Handler) handleListCities(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	cities, err := h.Service.ListCities(r.Context())
	if err != nil {
		requestctx.Logger(r.Context()).Error("list cities failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load cities", requestID)
		return
	}
	if cities == nil {
		cities = []contribution.CityOption{}
	}
	api.Success(w, cities, requestID)
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload calculatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}
	v := shared.NewValidator()
	v.Required("city", payload.City, "is required")
	if v.Reject(w, requestID) {
		return
	}

	overwrite := h.DefaultOverwrite
	if payload.IsOverwrite != nil {
		overwrite = *payload.IsOverwrite
	}

	summary, err := h.Service.Calculate(r.Context(), contribution.CalculateRequest{City: payload.City, Overwrite: overwrite})
	h.Metrics.RecordCalculation(summary.Count, err)
	switch {
	case err == nil:
		api.Success(w, summary, requestID)
	case errors.Is(err, contribution.ErrCityNotFound):
		api.Fail(w, http.StatusNotFound, "city_not_found", "city standard not found", requestID)
	case errors.Is(err, contribution.ErrNoSalaryData):
		api.Fail(w, http.StatusBadRequest, "no_salary_data", "no salary data, upload first", requestID)
	default:
		requestctx.Logger(r.Context()).Error("calculation failed", "city", payload.City, "overwrite", overwrite, "runId", summary.RunID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "calculation_failed", "calculation failed, retry later", requestID)
	}
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, defaultResultsLimit, maxResultsLimit)
	filter := contribution.ResultFilter{City: r.URL.Query().Get("city"), Limit: page.Limit, Offset: page.Offset}

	results, total, err := h.Service.ListResults(r.Context(), filter)
	if err != nil {
		requestctx.Logger(r.Context()).Error("list results failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load results", requestID)
		return
	}
	if results == nil {
		results = []contribution.ResultRecord{}
	}
	api.Success(w, resultsPage{Items: results, Total: total, Limit: page.Limit, Offset: page.Offset}, requestID)
}

func (h *Handler) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, exporter.WorkbookFilename(h.now()),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		exporter.WriteResultsWorkbook)
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	h.export(w, r, "社保计算结果_"+now.Format("2006-01-02")+".pdf", "application/pdf",
		func(out io.Writer, results []contribution.ResultRecord) error {
			return exporter.WriteResultsPDF(out, results, exporter.PDFOptions{FontPath: h.PDFFontPath, GeneratedAt: now})
		})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, filename, contentType string, render func(io.Writer, []contribution.ResultRecord) error) {
	requestID := middleware.GetRequestID(r.Context())
	results, _, err := h.Service.ListResults(r.Context(), contribution.ResultFilter{City: r.URL.Query().Get("city")})
	if err != nil {
		requestctx.Logger(r.Context()).Error("export load failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "export failed, retry later", requestID)
		return
	}

	var buf bytes.Buffer
	err = render(&buf, results)
	if errors.Is(err, exporter.ErrNoResults) {
		api.Fail(w, http.StatusBadRequest, "no_data", "no data to export", requestID)
		return
	}
	if err != nil {
		requestctx.Logger(r.Context()).Error("export render failed", "file", filename, "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "export failed, retry later", requestID)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if _, err := buf.WriteTo(w); err != nil {
		requestctx.Logger(r.Context()).Warn("export write failed", "err", err)
	}
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	runs, err := h.Runs.Recent(r.Context(), recentRunsLimit)
	if err != nil {
		requestctx.Logger(r.Context()).Error("list runs failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load runs", requestID)
		return
	}
	if runs == nil {
		runs = []jobs.Run{}
	}
	api.Success(w, runs, requestID)
}

func (h *Handler) maxUploadBytes() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return defaultUploadBytes
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
