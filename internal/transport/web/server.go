// Package web is the interactive host: a small chi-served UI that lets a
// reviewer fetch a filing, annotate the rendered PDF and publish the result.
// It only triggers pipeline operations and displays their outcomes; all
// behavior lives in the usecase layer.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/polbb/annotations/internal/domain"
	"github.com/polbb/annotations/internal/logger"
	"github.com/polbb/annotations/internal/usecase/session"
)

// Server holds the host's dependencies and per-browser session state.
type Server struct {
	pipeline     *session.Service
	sessions     *sessionStore
	reuploadFlow bool
	uploadDir    string
	logger       *zap.Logger
}

// NewServer creates the host.
func NewServer(pipeline *session.Service, reuploadFlow bool, uploadDir string, logger *zap.Logger) *Server {
	return &Server{
		pipeline:     pipeline,
		sessions:     newSessionStore(),
		reuploadFlow: reuploadFlow,
		uploadDir:    uploadDir,
		logger:       logger,
	}
}

// Routes mounts all handlers on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	r.Post("/fetch", s.handleFetch)
	r.Get("/document", s.handleDownload)
	if s.reuploadFlow {
		r.Post("/document", s.handleUpload)
	}
	r.Post("/publish", s.handlePublish)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// log returns the request-scoped logger when the middleware installed one,
// so request ids carry through to handler log lines.
func (s *Server) log(r *http.Request) *zap.Logger {
	return logger.FromContextOr(r.Context(), s.logger)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.sessions.get(w, r)
	s.render(w, view{
		Identifier:   sess.Identifier,
		HasDocument:  sess.DocumentPath != "",
		ReuploadFlow: s.reuploadFlow,
	})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	identifier := strings.TrimSpace(r.FormValue("identifier"))
	if identifier == "" {
		s.render(w, view{Error: "Enter a company number first.", ReuploadFlow: s.reuploadFlow})
		return
	}

	sess, err := s.pipeline.FetchAndConvert(r.Context(), identifier)
	if err != nil {
		s.log(r).Warn("fetch and convert failed",
			zap.String("identifier", identifier),
			zap.Error(err),
		)
		s.render(w, view{
			Identifier:   identifier,
			Error:        userMessage(err),
			ReuploadFlow: s.reuploadFlow,
		})
		return
	}
	s.sessions.put(w, r, sess)

	s.render(w, view{
		Identifier:   sess.Identifier,
		HasDocument:  true,
		ReuploadFlow: s.reuploadFlow,
		Message:      "PDF successfully generated. Download it below to annotate.",
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(w, r)
	if !ok || sess.DocumentPath == "" {
		http.Error(w, "no document in session", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", sess.Identifier+".pdf"))
	http.ServeFile(w, r, sess.DocumentPath)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(w, r)
	if !ok || sess.Identifier == "" {
		s.render(w, view{Error: "Fetch a document first.", ReuploadFlow: s.reuploadFlow})
		return
	}

	file, _, err := r.FormFile("document")
	if err != nil {
		s.render(w, s.errorView(sess, "Choose an annotated PDF to upload."))
		return
	}
	defer file.Close()

	localPath := filepath.Join(s.uploadDir, sess.Identifier+"-annotated.pdf")
	dst, err := os.Create(localPath)
	if err != nil {
		s.log(r).Error("failed to create upload target", zap.Error(err))
		s.render(w, s.errorView(sess, "Could not save the uploaded document."))
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		s.log(r).Error("failed to save upload", zap.Error(err))
		s.render(w, s.errorView(sess, "Could not save the uploaded document."))
		return
	}

	sess = s.pipeline.AttachDocument(sess, localPath)
	s.sessions.put(w, r, sess)

	s.render(w, view{
		Identifier:   sess.Identifier,
		HasDocument:  true,
		ReuploadFlow: s.reuploadFlow,
		Message:      "Annotated document received.",
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(w, r)
	if !ok || sess.DocumentPath == "" {
		s.render(w, view{Error: "Fetch a document first.", ReuploadFlow: s.reuploadFlow})
		return
	}

	key, batch, err := s.pipeline.Publish(r.Context(), sess)
	if err != nil {
		s.log(r).Warn("publish failed",
			zap.String("identifier", sess.Identifier),
			zap.Error(err),
		)
		s.render(w, s.errorView(sess, userMessage(err)))
		return
	}

	// Show the reviewer what was stored.
	var batchJSON string
	if data, merr := json.MarshalIndent(batch, "", "    "); merr == nil {
		batchJSON = string(data)
	}

	s.render(w, view{
		Identifier:   sess.Identifier,
		HasDocument:  true,
		ReuploadFlow: s.reuploadFlow,
		Message:      "Annotations successfully uploaded.",
		StorageKey:   key,
		BatchJSON:    batchJSON,
	})
}

func (s *Server) errorView(sess session.Session, msg string) view {
	return view{
		Identifier:   sess.Identifier,
		HasDocument:  sess.DocumentPath != "",
		ReuploadFlow: s.reuploadFlow,
		Error:        msg,
	}
}

// userMessage turns a pipeline error into a message safe to show a reviewer.
// Every error in the taxonomy gets a visible notice; nothing is swallowed.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "No filing found for that company number."
	case errors.Is(err, domain.ErrAccessDenied):
		return "Access to the document store was denied."
	case errors.Is(err, domain.ErrTransport):
		return "The document store is unreachable. Try again."
	case errors.Is(err, domain.ErrConversion):
		return "The filing could not be rendered to PDF."
	case errors.Is(err, domain.ErrUnreadableDocument):
		return "The annotated document could not be read."
	case errors.Is(err, domain.ErrEmptyBatch):
		return "No annotations found in the document; nothing was published."
	case errors.Is(err, domain.ErrNoDocument):
		return "Fetch and convert a filing before publishing."
	default:
		return "Something went wrong. Check the logs."
	}
}
