package api

import (
	"errors"
	"net/http"

	"github.com/ppiankov/covenant/internal/document"
	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/llm"
	"github.com/ppiankov/covenant/internal/logging"
	"github.com/ppiankov/covenant/internal/pipeline"
	"github.com/ppiankov/covenant/internal/store"
	"go.uber.org/zap"
)

// stageRequest marks errors caught before the pipeline runs
const stageRequest = "request"

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Excerpt string `json:"excerpt,omitempty"`
}

// statusFor maps a pipeline error onto an HTTP status and stage name
func statusFor(err error) (int, string) {
	stage := "internal"
	var se *pipeline.StageError
	if errors.As(err, &se) {
		stage = string(se.Stage)
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, stage
	case errors.Is(err, store.ErrContentHashMismatch):
		return http.StatusConflict, stage
	case errors.Is(err, document.ErrUnsupportedFormat), errors.Is(err, llm.ErrUploadUnsupported):
		return http.StatusUnsupportedMediaType, stage
	case errors.Is(err, document.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, stage
	}

	switch pipeline.Stage(stage) {
	case pipeline.StageDocument:
		return http.StatusBadRequest, stage
	case pipeline.StageExtraction, pipeline.StageValidation:
		return http.StatusUnprocessableEntity, stage
	case pipeline.StageLLM, pipeline.StageBackground:
		return http.StatusBadGateway, stage
	default:
		return http.StatusInternalServerError, stage
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, stage := statusFor(err)

	var excerpt string
	var ee *extract.ExtractionError
	if errors.As(err, &ee) {
		excerpt = ee.Excerpt
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("stage", stage),
			logging.Err(err),
		)
	}
	writeError(w, status, stage, err.Error(), excerpt)
}

func writeError(w http.ResponseWriter, status int, stage, message, excerpt string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Stage: stage, Message: message, Excerpt: excerpt}})
}
