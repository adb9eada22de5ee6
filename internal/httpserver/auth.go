// internal/httpserver/auth.go
//
// JWT issuing/verification, bcrypt password handling, and the two request
// gates: requireAuth (valid bearer token, user still exists) and
// requireOwner (resource belongs to the authenticated user).

package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// authUser is placed into request context by requireAuth.
type authUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

func currentUser(r *http.Request) *authUser {
	u, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return u
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
	return string(b), err
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func jwtSecret() []byte {
	return []byte(getEnv("JWT_SECRET", "dev_secret_change_me"))
}

// signJWT creates an HS256 token bound to the user's id/username/email with a
// configurable expiry (JWT_EXPIRES_HOURS; default 24).
func signJWT(id int64, username, email string) (string, error) {
	hours := envInt("JWT_EXPIRES_HOURS", 24)
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId":   id,
		"username": username,
		"email":    email,
		"iat":      now.Unix(),
		"exp":      now.Add(time.Duration(hours) * time.Hour).Unix(),
	})
	return t.SignedString(jwtSecret())
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// requireAuth enforces a valid JWT and injects authUser into request context.
// The user row is re-fetched so tokens for deleted accounts stop working.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "access token required")
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return jwtSecret(), nil
			})
			if err != nil || !token.Valid {
				if errors.Is(err, jwt.ErrTokenExpired) {
					writeError(w, http.StatusUnauthorized, "token_expired", "your session has expired, please log in again")
					return
				}
				writeError(w, http.StatusUnauthorized, "invalid_token", "the provided token is not valid")
				return
			}
			id, _ := claims["userId"].(float64)
			if id <= 0 {
				writeError(w, http.StatusUnauthorized, "invalid_token", "the provided token is not valid")
				return
			}
			// Ensure the user still exists.
			u := &authUser{}
			err = s.db.QueryRowContext(r.Context(),
				`SELECT id, username, email, first_name, last_name FROM users WHERE id=?`, int64(id),
			).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "the token refers to a user that no longer exists")
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireOwner loads the resource named by the {id} URL parameter and rejects
// the request unless it belongs to the authenticated user. kind is "post" or
// "comment"; must be stacked after requireAuth.
func (s *Server) requireOwner(kind string) func(http.Handler) http.Handler {
	var query string
	switch kind {
	case "post":
		query = `SELECT user_id FROM posts WHERE id=?`
	case "comment":
		query = `SELECT user_id FROM comments WHERE id=?`
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			me := currentUser(r)
			if me == nil || query == "" {
				writeInternal(w)
				return
			}
			id, ok := pathID(chi.URLParam(r, "id"))
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_input", "invalid "+kind+" id")
				return
			}
			var ownerID int64
			err := s.db.QueryRowContext(r.Context(), query, id).Scan(&ownerID)
			if err == sql.ErrNoRows {
				writeError(w, http.StatusNotFound, "not_found", kind+" not found")
				return
			}
			if err != nil {
				writeInternal(w)
				return
			}
			if ownerID != me.ID {
				writeError(w, http.StatusForbidden, "forbidden", "you can only modify your own "+kind+"s")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
