// Package api exposes the assessment pipeline over HTTP
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ppiankov/covenant/internal/model"
	"go.uber.org/zap"
)

// Service is the pipeline surface the handlers need
type Service interface {
	Ingest(ctx context.Context, name string, data []byte) (*model.IngestResult, error)
	IngestURL(ctx context.Context, rawURL string) (*model.IngestResult, error)
	UpdateSeller(ctx context.Context, id, seller string) (*model.ContractRecord, error)
	Rescore(ctx context.Context, id string) (*model.ContractRecord, error)
	Get(ctx context.Context, id string) (*model.ContractRecord, error)
	List(ctx context.Context) ([]model.ContractSummary, error)
	Delete(ctx context.Context, id string) error
}

// uploadField is the multipart form field carrying the contract
const uploadField = "file"

// multipartOverhead is allowed on top of the upload limit for form framing
const multipartOverhead = 1 << 20

// Server serves the contract API
type Server struct {
	svc      Service
	maxBytes int64
	logger   *zap.Logger
}

// New creates a server. maxUploadBytes bounds the request body of uploads,
// 0 leaves it unbounded.
func New(svc Service, maxUploadBytes int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, maxBytes: maxUploadBytes, logger: logger.Named("api")}
}

// Routes returns the router with every endpoint mounted
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1/contracts", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Post("/fetch", s.handleFetch)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Put("/seller", s.handleUpdateSeller)
			r.Post("/rescore", s.handleRescore)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type duplicateResponse struct {
	Duplicate  bool                  `json:"duplicate"`
	ContractID string                `json:"contract_id"`
	Record     *model.ContractRecord `json:"record"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, stageRequest, "upload exceeds size limit", "")
			return
		}
		writeError(w, http.StatusBadRequest, stageRequest, err.Error(), "")
		return
	}

	res, err := s.svc.Ingest(r.Context(), name, data)
	s.writeIngest(w, r, res, err)
}

type fetchRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, stageRequest, "body must be {\"url\": \"...\"}", "")
		return
	}

	res, err := s.svc.IngestURL(r.Context(), req.URL)
	s.writeIngest(w, r, res, err)
}

// writeIngest answers 201 with a new record, 200 for a duplicate
func (s *Server) writeIngest(w http.ResponseWriter, r *http.Request, res *model.IngestResult, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, duplicateResponse{
			Duplicate:  true,
			ContractID: res.Record.ID,
			Record:     res.Record,
		})
		return
	}
	writeJSON(w, http.StatusCreated, res.Record)
}

// readUpload buffers the whole body first so an oversized request is
// reported as such rather than as a malformed form
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	body := r.Body
	if s.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxBytes+multipartOverhead)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return "", nil, fmt.Errorf("multipart field %q is required", uploadField)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, data, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sellerRequest struct {
	SellerCompany string `json:"seller_company"`
}

func (s *Server) handleUpdateSeller(w http.ResponseWriter, r *http.Request) {
	var req sellerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, stageRequest, "invalid JSON body: "+err.Error(), "")
		return
	}

	rec, err := s.svc.UpdateSeller(r.Context(), chi.URLParam(r, "id"), req.SellerCompany)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRescore(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Rescore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
