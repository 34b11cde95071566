// Package chi exposes the knowledge base over HTTP: document ingestion,
// question answering and operational endpoints.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askinvoice/internal/domain"
	askuc "github.com/kailas-cloud/askinvoice/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/askinvoice/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/askinvoice/internal/usecase/ingest"
)

// maxUploadBytes bounds one ingestion request body.
const maxUploadBytes = 64 << 20

// errorCode is the machine-readable error identifier in error responses.
type errorCode string

const (
	codeBadRequest              errorCode = "bad_request"
	codeUnauthorized            errorCode = "unauthorized"
	codeEmbeddingProviderError  errorCode = "embedding_provider_error"
	codeCompletionProviderError errorCode = "completion_provider_error"
	codePersistenceError        errorCode = "persistence_error"
	codeInternalError           errorCode = "internal_error"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	ingest        *ingestuc.Service
	ask           *askuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	ask *askuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest: ingest,
		ask:    ask,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrCompletionProvider, http.StatusBadGateway, codeCompletionProviderError),
		sentinelHandler(domain.ErrPersistence, http.StatusInternalServerError, codePersistenceError),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chirouter.Router) {
	r.Route("/api/v1", func(r chirouter.Router) {
		r.Get("/documents", s.ListDocuments)
		r.Post("/documents", s.IngestDocuments)
		r.Delete("/documents", s.ClearDocuments)
		r.Post("/ask", s.Ask)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// documentsResponse is the body of GET /api/v1/documents.
type documentsResponse struct {
	Documents []string `json:"documents"`
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	names, err := s.ingest.ListDocuments()
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, documentsResponse{Documents: names})
}

// IngestDocuments handles POST /api/v1/documents. Files are uploaded as the
// multipart field "files"; already-known names are skipped, not re-indexed.
func (s *Server) IngestDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "no files uploaded (use multipart field \"files\")")
		return
	}

	files := make([]ingestuc.File, 0, len(headers))
	for _, h := range headers {
		data, err := readMultipartFile(h)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "read file "+h.Filename+": "+err.Error())
			return
		}
		files = append(files, ingestuc.File{Name: h.Filename, Data: data})
	}

	status, err := s.ingest.Ingest(r.Context(), files)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func readMultipartFile(h *multipart.FileHeader) ([]byte, error) {
	f, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

// ClearDocuments handles DELETE /api/v1/documents.
func (s *Server) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Clear(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// askRequest is the body of POST /api/v1/ask.
type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	answer, err := s.ask.Ask(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentOpen,
		domain.ErrEmptyIndex,
		domain.ErrEmbeddingProvider,
		domain.ErrCompletionProvider,
		domain.ErrPersistence,
		domain.ErrVectorDimMismatch,
		domain.ErrInvalidMetadata,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
