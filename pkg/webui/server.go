// Package webui provides the HTTP resource layer and dashboard for the
// project-management server.
package webui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"projecthub/pkg/assistant"
	"projecthub/pkg/config"
	"projecthub/pkg/logx"
	"projecthub/pkg/metrics"
	"projecthub/pkg/persistence"
)

//go:embed web/templates/*.html
var templateFS embed.FS

//go:embed web/static
var staticFS embed.FS

// Server represents the dashboard HTTP server. It holds the store handle it
// was constructed with; there is no process-wide store.
type Server struct {
	store       *persistence.Store
	assistant   *assistant.Service
	recorder    *metrics.PrometheusRecorder
	logger      *logx.Logger
	templates   *template.Template
	uploadsDir  string
	chatEnabled bool
}

// NewServer creates a new dashboard server over the given store.
func NewServer(store *persistence.Store, cfg *config.Config) *Server {
	// Templates are embedded at compile time; a parse failure is a build defect.
	templates, err := template.ParseFS(templateFS, "web/templates/*.html")
	if err != nil {
		panic(fmt.Sprintf("Failed to parse embedded templates: %v", err))
	}

	return &Server{
		store:       store,
		assistant:   assistant.NewService(store),
		recorder:    metrics.NewPrometheusRecorder(),
		logger:      logx.NewLogger("webui"),
		templates:   templates,
		uploadsDir:  cfg.UploadsDir,
		chatEnabled: cfg.Chat.Enabled,
	}
}

// RegisterRoutes sets up HTTP routes for the API and dashboard.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/", s.measured("/", http.HandlerFunc(s.handleDashboard)))

	staticSubFS, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(fmt.Sprintf("Failed to access embedded static files: %v", err))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSubFS))))

	// Uploaded blobs are served straight from the uploads directory.
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsDir))))

	mux.Handle("/api/tasks", s.measured("/api/tasks", http.HandlerFunc(s.handleTasks)))
	mux.Handle("/api/documents", s.measured("/api/documents", http.HandlerFunc(s.handleDocuments)))
	mux.Handle("/api/documents/upload", s.measured("/api/documents/upload", http.HandlerFunc(s.handleDocumentUpload)))
	mux.Handle("/api/requirements", s.measured("/api/requirements", http.HandlerFunc(s.handleRequirements)))
	mux.Handle("/api/requirements/archive", s.measured("/api/requirements/archive", http.HandlerFunc(s.handleRequirementArchive)))
	mux.Handle("/api/milestones", s.measured("/api/milestones", http.HandlerFunc(s.handleMilestones)))
	mux.Handle("/api/projects", s.measured("/api/projects", http.HandlerFunc(s.handleProjects)))
	mux.Handle("/api/users", s.measured("/api/users", http.HandlerFunc(s.handleUsers)))
	mux.Handle("/api/activity", s.measured("/api/activity", http.HandlerFunc(s.handleActivity)))
	mux.Handle("/api/chat", s.measured("/api/chat", http.HandlerFunc(s.handleChat)))
	mux.Handle("/api/logs", s.measured("/api/logs", http.HandlerFunc(s.handleLogs)))

	mux.Handle("/metrics", s.recorder.Handler())
}

func (s *Server) measured(route string, next http.Handler) http.Handler {
	return s.recorder.Middleware(route, next)
}

// handleDashboard renders the board page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	data := map[string]any{
		"Columns":     persistence.ValidTaskStatuses(),
		"ChatEnabled": s.chatEnabled,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.Error("Failed to render dashboard: %v", err)
	}
}
