// internal/httpserver/server.go
//
// HTTP server wiring for the Liaison API.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     body size cap, per-IP rate limiting).
//   - Public endpoints: "/", "/health", POST /auth/register, POST /auth/login.
//   - Bearer-token endpoints: /auth/*, /posts/*, /comments/*, /likes/*.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled.
//   - Ownership-gated routes (PUT/DELETE on posts and comments) stack the
//     requireOwner middleware on top of requireAuth.

package httpserver

import (
	"database/sql"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Server bundles the router and the DB handle.
type Server struct {
	r  *chi.Mux
	db *sql.DB
}

// New constructs a Server, installs middleware, and registers routes.
func New(db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), db: db}

	limiter := newIPLimiter(envInt("RATE_LIMIT_MAX", 100),
		time.Duration(envInt("RATE_LIMIT_WINDOW_MIN", 15))*time.Minute)

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS
	s.r.Use(maxBody(1 << 20))                // cap request bodies at 1 MiB
	s.r.Use(limiter.middleware)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"liaison-api","endpoints":["/health","/auth/*","/posts/*","/comments/*","/likes/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.mountAuth()
	s.mountPosts()
	s.mountComments()
	s.mountLikes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found: "+r.URL.Path)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- routes --------------------------------------

func (s *Server) mountAuth() {
	s.r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth())
			r.Get("/", s.handleListUsers)
			r.Get("/profile", s.handleGetProfile)
			r.Get("/profile/{id}", s.handleGetProfile)
			r.Put("/profile", s.handleUpdateProfile)
		})
	})
}

func (s *Server) mountPosts() {
	s.r.Route("/posts", func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Post("/", s.handleCreatePost)
		r.Get("/", s.handleFeed)
		r.Get("/{id}", s.handleGetPost)
		r.Get("/user/{userId}", s.handleUserPosts)

		r.Group(func(r chi.Router) {
			r.Use(s.requireOwner("post"))
			r.Put("/{id}", s.handleUpdatePost)
			r.Delete("/{id}", s.handleDeletePost)
		})
	})
}

func (s *Server) mountComments() {
	s.r.Route("/comments", func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Post("/", s.handleCreateComment)
		r.Get("/post/{postId}", s.handlePostComments)
		r.Get("/user/{userId}", s.handleUserComments)
		r.Get("/{id}", s.handleGetComment)

		r.Group(func(r chi.Router) {
			r.Use(s.requireOwner("comment"))
			r.Put("/{id}", s.handleUpdateComment)
			r.Delete("/{id}", s.handleDeleteComment)
		})
	})
}

func (s *Server) mountLikes() {
	s.r.Route("/likes", func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Post("/post", s.handleTogglePostLike)
		r.Post("/comment", s.handleToggleCommentLike)
		r.Get("/post/{postId}", s.handlePostLikers)
		r.Get("/comment/{commentId}", s.handleCommentLikers)
		r.Get("/user/{userId}/posts", s.handleLikedPosts)
	})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:4200.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:4200"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maxBody caps the size of request bodies.
func maxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt returns the integer value of k or def if unset/invalid.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
