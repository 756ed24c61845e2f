package web

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadscreen/internal/config"
	"leadscreen/internal/pipeline"
	"leadscreen/internal/suppression"
)

// Server is the upload surface: a single form that takes a lead list,
// screens it and answers with the annotated workbook as a download.
// Uploaded inputs and generated outputs are temp artifacts; both are
// removed once the response is written.
type Server struct {
	svc *pipeline.Service
	cfg config.Config
	log *zap.Logger
}

func NewServer(svc *pipeline.Service, cfg config.Config, log *zap.Logger) *Server {
	return &Server{svc: svc, cfg: cfg, log: log}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTemplate.Execute(w, map[string]any{
		"ClientScope":   s.cfg.ClientScope,
		"RecencyMonths": s.cfg.RecencyMonths,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("leadFile")
	if err != nil {
		http.Error(w, "missing leadFile upload field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	opts := s.svc.DefaultOptions()
	if v := strings.TrimSpace(r.FormValue("clientCode")); v != "" {
		opts.ClientScope = v
	}
	if v := strings.TrimSpace(r.FormValue("recencyMonths")); v != "" {
		months, err := strconv.Atoi(v)
		if err != nil || months < 0 {
			http.Error(w, "recencyMonths must be a non-negative integer", http.StatusBadRequest)
			return
		}
		opts.RecencyMonths = months
	}

	inputPath, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.log.Error("saving upload failed", zap.Error(err))
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	defer os.Remove(inputPath)

	var summary pipeline.RunSummary
	if strings.EqualFold(filepath.Ext(inputPath), ".csv") {
		summary, err = s.svc.CheckCSVFile(r.Context(), inputPath, opts)
	} else {
		summary, err = s.svc.CheckWorkbookFile(r.Context(), inputPath, opts)
	}
	if err != nil {
		s.writeCheckError(w, err)
		return
	}
	defer os.Remove(summary.OutputPath)

	s.log.Info("upload screened",
		zap.String("file", header.Filename),
		zap.Int("checked", summary.Checked),
		zap.Int("matched", summary.Matched),
		zap.Int("skipped", summary.Skipped),
	)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(summary.OutputPath)))
	http.ServeFile(w, r, summary.OutputPath)
}

// writeCheckError maps the screening error taxonomy onto HTTP statuses:
// bad inputs are the caller's fault, a dead suppression store is not.
func (s *Server) writeCheckError(w http.ResponseWriter, err error) {
	var missing *pipeline.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		http.Error(w, missing.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, pipeline.ErrMalformedInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, suppression.ErrStoreUnavailable):
		s.log.Error("suppression store unavailable", zap.Error(err))
		http.Error(w, "suppression store unavailable", http.StatusBadGateway)
	default:
		s.log.Error("screening failed", zap.Error(err))
		http.Error(w, "screening failed", http.StatusInternalServerError)
	}
}

func (s *Server) saveUpload(src io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	ext := filepath.Ext(originalName)
	name := uuid.NewString() + ext
	path := filepath.Join(s.cfg.UploadDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Lead List Screening</title>
</head>
<body>
  <h1>Lead List Screening</h1>
  <form action="/upload" method="post" enctype="multipart/form-data">
    <p>
      <label>Lead list (.xlsx or .csv): <input type="file" name="leadFile" accept=".xlsx,.csv" required></label>
    </p>
    <p>
      <label>Client code: <input type="text" name="clientCode" value="{{.ClientScope}}"></label>
    </p>
    <p>
      <label>Recency window (months): <input type="number" name="recencyMonths" min="0" value="{{.RecencyMonths}}"></label>
    </p>
    <p><button type="submit">Check against suppression list</button></p>
  </form>
</body>
</html>
`))
