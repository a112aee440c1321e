package server

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sync"

	"github.com/vperiodt/mulehunter/internal/ingest"
	"github.com/vperiodt/mulehunter/internal/pipeline"
	"github.com/vperiodt/mulehunter/internal/wire"
)

// APIHandlers exposes the HTTP surface of the analysis pipeline.
type APIHandlers struct {
	logger   *slog.Logger
	pipeline *pipeline.Pipeline

	mu   sync.Mutex
	last *wire.AnalysisResult
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, p *pipeline.Pipeline) *APIHandlers {
	return &APIHandlers{logger: logger, pipeline: p}
}

func (h *APIHandlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	csvBytes, err := readCSVBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result, err := h.pipeline.Run(r.Context(), csvBytes)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	response := wire.FromModel(result)
	h.mu.Lock()
	h.last = &response
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, response)
}

// handleLastAnalysis serves the cached result of the most recent /analyze
// call for this process, adapted from the reference implementation's
// global "last download" singleton (see Design Notes §9).
func (h *APIHandlers) handleLastAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	h.mu.Lock()
	last := h.last
	h.mu.Unlock()

	if last == nil {
		writeError(w, http.StatusNotFound, "no_analysis", "no analysis has been run in this process yet")
		return
	}
	respondJSON(w, http.StatusOK, last)
}

func (h *APIHandlers) writePipelineError(w http.ResponseWriter, err error) {
	var schemaErr *ingest.SchemaError
	var tooManyErr *ingest.TooManyTransactionsError
	var emptyErr *ingest.EmptyBatchError
	var internalErr *pipeline.InternalError

	switch {
	case errors.As(err, &schemaErr):
		writeError(w, http.StatusBadRequest, "schema_error", schemaErr.Error())
	case errors.As(err, &tooManyErr):
		writeError(w, http.StatusBadRequest, "too_many_transactions", tooManyErr.Error())
	case errors.As(err, &emptyErr):
		writeError(w, http.StatusBadRequest, "empty_batch", emptyErr.Error())
	case errors.As(err, &internalErr):
		h.logger.Error("internal pipeline failure", "component", internalErr.Component, "run_id", internalErr.RunID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", internalErr.Error())
	default:
		h.logger.Error("unclassified pipeline failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// readCSVBody accepts either a raw text/csv body or a multipart form upload
// under the "file" field, mirroring the upload flexibility of the reference
// implementation's HTTP layer without carrying it into the core pipeline.
func readCSVBody(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, errors.New("missing \"file\" field in multipart form")
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(body) == 0 {
		return nil, errors.New("empty request body")
	}
	return body, nil
}

