// Package web serves the browser studio: the embedded static UI, the JSON
// API driving one controller per browser session, and the stored media files.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"motion-typo-studio/internal/session"
	"motion-typo-studio/internal/store"
)

//go:embed static
var staticFS embed.FS

const (
	sessionCookie  = "mts_session"
	maxUploadBytes = 25 << 20
)

type Options struct {
	Store    *store.Store
	Sessions *session.Store
	// RunCtx outlives individual requests; generation sequences run on it so
	// closing the tab mid-run does not cancel the pipeline.
	RunCtx context.Context
	// GalleryLimit caps the carousel feed.
	GalleryLimit int
	Logger       *slog.Logger
}

type Server struct {
	store        *store.Store
	sessions     *session.Store
	runCtx       context.Context
	galleryLimit int
	logger       *slog.Logger
}

func New(opts Options) *Server {
	runCtx := opts.RunCtx
	if runCtx == nil {
		runCtx = context.Background()
	}

	galleryLimit := opts.GalleryLimit
	if galleryLimit <= 0 {
		galleryLimit = 12
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		store:        opts.Store,
		sessions:     opts.Sessions,
		runCtx:       runCtx,
		galleryLimit: galleryLimit,
		logger:       logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", s.withSession(s.handleState))
	mux.HandleFunc("/api/generate", s.withSession(s.handleGenerate))
	mux.HandleFunc("/api/reset", s.withSession(s.handleReset))
	mux.HandleFunc("/api/primary", s.withSession(s.handlePrimary))
	mux.HandleFunc("/api/screen", s.withSession(s.handleScreen))
	mux.HandleFunc("/api/style/suggest", s.withSession(s.handleStyleSuggest))
	mux.HandleFunc("/api/key", s.withSession(s.handleKey))
	mux.HandleFunc("/api/share", s.withSession(s.handleShare))
	mux.HandleFunc("/api/styles", s.handleStyles)
	mux.HandleFunc("/api/gallery", s.handleGallery)
	mux.HandleFunc("/api/profile", s.handleProfile)

	mux.Handle("/media/", http.StripPrefix("/media/",
		http.FileServer(http.Dir(s.store.MediaDir()))))

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticSub)))

	return withLogging(mux, s.logger)
}

// withSession resolves the browser's session from the cookie, minting a
// fresh id when the cookie is absent or malformed.
func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			id = strings.TrimSpace(cookie.Value)
		}
		if uuid.Validate(id) != nil {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next(w, r, s.sessions.Get(id))
	}
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
