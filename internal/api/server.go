package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"reportrag/internal/config"
	"reportrag/internal/ingest"
	"reportrag/internal/logging"
	"reportrag/internal/models"
	"reportrag/internal/router"
	"reportrag/internal/storage"
	"reportrag/internal/telemetry"
	"reportrag/internal/util"
	"reportrag/internal/workflows"
)

const maxUploadBytes = 128 << 20

// StatsSource is satisfied by *storage.CompletionAuditRepo.
type StatsSource interface {
	ProviderStats(ctx context.Context) ([]storage.ProviderStat, error)
}

type Options struct {
	// Stats is nil when Postgres is not configured.
	Stats StatsSource
	// Temporal is nil when no Temporal address is configured; batch scoring
	// is then unavailable.
	Temporal tclient.Client
}

type Server struct {
	cfg      config.Config
	router   *router.Router
	stats    StatsSource
	temporal tclient.Client
	logger   *zap.Logger
}

func NewServer(cfg config.Config, rt *router.Router, opts Options, logger *zap.Logger) *Server {
	logger = logging.OrNop(logger)
	return &Server{
		cfg:      cfg,
		router:   rt,
		stats:    opts.Stats,
		temporal: opts.Temporal,
		logger:   logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(telemetry.Middleware)
	r.Use(accessLog(s.logger))
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleStatus)
	})
	r.Post("/priority", s.handlePriority)
	r.Post("/ask", s.handleAsk)
	r.Post("/explore/start", s.handleStartExplore)

	r.Route("/score", func(r chi.Router) {
		r.Post("/", s.handleScore)
		r.Post("/batch", s.handleScoreBatch)
		r.Get("/batch/{batchID}", s.handleScoreBatchProgress)
	})
	r.Get("/providers/stats", s.handleProviderStats)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, errors.New("not found"))
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.router.Status())
}

// handleUpload stores the uploaded files under a fresh upload directory and
// replaces the session's documents with them plus the reference library.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		if single, ok := firstSingleFile(r.MultipartForm.File); ok {
			files = append(files, single)
		}
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, errors.New("no files provided"))
		return
	}

	uploadID := uuid.NewString()
	inDir := filepath.Join(s.cfg.DataOutRoot, "uploads", uploadID)
	if err := util.EnsureDir(inDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	type uploadResult struct {
		Filename   string `json:"filename"`
		DocumentID string `json:"document_id"`
	}
	out := make([]uploadResult, 0, len(files))
	skipped := make([]string, 0)
	userPaths := make([]string, 0, len(files))

	for _, fh := range files {
		if !models.IsSupported(fh.Filename) {
			skipped = append(skipped, filepath.Base(fh.Filename))
			continue
		}
		docID, savedPath, err := saveUploadedFile(inDir, fh)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		userPaths = append(userPaths, savedPath)
		out = append(out, uploadResult{Filename: filepath.Base(savedPath), DocumentID: docID})
	}
	if len(userPaths) == 0 {
		writeErr(w, http.StatusBadRequest, errors.New("no supported files provided"))
		return
	}

	var referencePaths []string
	if r.FormValue("include_reference") != "false" {
		refs, err := ingest.ListSupported(s.cfg.ReferenceDir)
		if err != nil {
			s.logger.Warn("reference library unavailable", zap.String("dir", s.cfg.ReferenceDir), zap.Error(err))
		}
		referencePaths = refs
	}

	all := append(append([]string{}, referencePaths...), userPaths...)
	vectorize := ingest.ShouldVectorize(all, s.cfg.VectorizeMaxFiles, s.cfg.VectorizeMaxBytes)
	if !s.router.LoadDocuments(r.Context(), userPaths, referencePaths, vectorize) {
		writeErr(w, http.StatusUnprocessableEntity, models.ErrDocumentsNotLoaded)
		return
	}

	// Uploaded files lead the analysis context unless the form names a subset.
	priority := userPaths
	if names := r.MultipartForm.Value["priority"]; len(names) > 0 {
		priority = matchSessionFiles(userPaths, names)
	}
	s.router.SetPriorityFiles(priority)

	writeJSON(w, http.StatusOK, map[string]any{
		"upload_id": uploadID,
		"uploaded":  out,
		"skipped":   skipped,
		"status":    s.router.Status(),
	})
}

type priorityRequest struct {
	Files []string `json:"files"`
}

func (s *Server) handlePriority(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	matched := matchSessionFiles(s.router.Status().UserFiles, req.Files)
	if len(req.Files) > 0 && len(matched) == 0 {
		writeErr(w, http.StatusNotFound, errors.New("priority files not uploaded"))
		return
	}
	s.router.SetPriorityFiles(matched)
	writeJSON(w, http.StatusOK, s.router.Status())
}

type askRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeErr(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	decision := s.router.Decide(req.Query, mode)
	res := s.router.Route(r.Context(), req.Query, mode)
	writeJSON(w, http.StatusOK, map[string]any{
		"route":  decision.Kind,
		"result": res,
	})
}

func (s *Server) handleStartExplore(w http.ResponseWriter, r *http.Request) {
	if err := s.router.StartExplore(r.Context()); err != nil {
		if errors.Is(err, models.ErrNoUserDocuments) {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.router.Status())
}

type scoreRequest struct {
	File string `json:"file"`
}

// handleScore scores one uploaded file, named by path or base name.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	matched := matchSessionFiles(s.router.Status().UserFiles, []string{req.File})
	if len(matched) == 0 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("file %q not uploaded", req.File))
		return
	}
	writeJSON(w, http.StatusOK, s.router.ScoreDocument(r.Context(), matched[0]))
}

type scoreBatchRequest struct {
	InputDir string   `json:"input_dir"`
	Paths    []string `json:"paths"`
}

// handleScoreBatch starts a durable scoring run. With an empty body it
// scores the session's uploaded files.
func (s *Server) handleScoreBatch(w http.ResponseWriter, r *http.Request) {
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, errors.New("batch scoring requires temporal"))
		return
	}
	var req scoreBatchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}
	if req.InputDir == "" && len(req.Paths) == 0 {
		req.Paths = s.router.Status().UserFiles
	}
	if req.InputDir == "" && len(req.Paths) == 0 {
		writeErr(w, http.StatusConflict, models.ErrNoUserDocuments)
		return
	}

	batchID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "score-" + batchID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.ScoreBatchWorkflow, workflows.ScoreBatchInput{
		BatchID:  batchID,
		InputDir: req.InputDir,
		Paths:    req.Paths,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"batch_id": batchID, "workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleScoreBatchProgress(w http.ResponseWriter, r *http.Request) {
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, errors.New("batch scoring requires temporal"))
		return
	}
	batchID := chi.URLParam(r, "batchID")
	resp, err := s.temporal.QueryWorkflow(r.Context(), "score-"+batchID, "", workflows.QueryGetProgress)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	var prog workflows.ScoreBatchProgress
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleProviderStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeErr(w, http.StatusServiceUnavailable, errors.New("provider stats require postgres"))
		return
	}
	stats, err := s.stats.ProviderStats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": stats})
}

// matchSessionFiles resolves names against files by full path or base name,
// keeping the order of names.
func matchSessionFiles(files, names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		for _, f := range files {
			if f == name || filepath.Base(f) == name {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (docID, path string, err error) {
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	h := sha256.New()
	if _, err = io.Copy(io.MultiWriter(tmp, h), src); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	finalPath := util.SafeJoin(dstDir, fh.Filename)
	if err = tmp.Close(); err != nil {
		return "", "", fmt.Errorf("close upload: %w", err)
	}
	if err = os.Rename(tmp.Name(), finalPath); err != nil {
		return "", "", fmt.Errorf("atomic move upload: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), finalPath, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}
