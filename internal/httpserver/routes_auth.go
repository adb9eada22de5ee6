// internal/httpserver/routes_auth.go
//
// Account endpoints: registration, login, profile read/update, user search.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// userProfile is the full user projection returned by auth endpoints.
// The password hash never leaves the database layer.
type userProfile struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email,omitempty"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Bio        *string `json:"bio"`
	AvatarURL  *string `json:"avatarUrl"`
	CreatedAt  string  `json:"createdAt,omitempty"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
	PostsCount *int    `json:"postsCount,omitempty"`
}

type registerReq struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Bio       *string `json:"bio"`
}

func validUsername(u string) bool {
	if len(u) < 3 || len(u) > 50 {
		return false
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func nameLenOK(s string) bool {
	n := len(strings.TrimSpace(s))
	return n >= 2 && n <= 50
}

func (req *registerReq) validate() []fieldError {
	var errs []fieldError
	if !validUsername(req.Username) {
		errs = append(errs, fieldError{"username", "username must be 3-50 chars: letters, numbers, underscore only"})
	}
	if !emailRe.MatchString(req.Email) {
		errs = append(errs, fieldError{"email", "invalid email format"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, fieldError{"password", "password must contain at least 6 characters"})
	}
	if !nameLenOK(req.FirstName) {
		errs = append(errs, fieldError{"firstName", "first name must be 2-50 characters"})
	}
	if !nameLenOK(req.LastName) {
		errs = append(errs, fieldError{"lastName", "last name must be 2-50 characters"})
	}
	if req.Bio != nil && len(*req.Bio) > 500 {
		errs = append(errs, fieldError{"bio", "bio cannot exceed 500 characters"})
	}
	return errs
}

// handleRegister creates an account, hashes the password, and issues a token.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if errs := req.validate(); len(errs) > 0 {
		writeInvalid(w, errs)
		return
	}

	var exists int64
	err := s.db.QueryRowContext(r.Context(),
		`SELECT id FROM users WHERE email = ? OR username = ?`, req.Email, req.Username,
	).Scan(&exists)
	if err == nil {
		writeError(w, http.StatusConflict, "conflict", "an account with this email or username already exists")
		return
	}
	if err != sql.ErrNoRows {
		log.Error().Err(err).Msg("check existing user")
		writeInternal(w)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("hash password")
		writeInternal(w)
		return
	}

	res, err := s.db.ExecContext(r.Context(),
		`INSERT INTO users (username, email, password_hash, first_name, last_name, bio, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))`,
		req.Username, req.Email, hash, req.FirstName, req.LastName, req.Bio)
	if err != nil {
		// Backstop for racing registrations hitting the UNIQUE constraints.
		if se, ok := err.(sqlite3.Error); ok && se.Code == sqlite3.ErrConstraint {
			writeError(w, http.StatusConflict, "conflict", "an account with this email or username already exists")
			return
		}
		log.Error().Err(err).Msg("insert user")
		writeInternal(w)
		return
	}
	id, err := res.LastInsertId()
	if err != nil {
		writeInternal(w)
		return
	}

	token, err := signJWT(id, req.Username, req.Email)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "account created",
		"user": userProfile{
			ID:        id,
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Bio:       req.Bio,
		},
		"token": token,
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin verifies credentials and issues a token. A missing account and
// a wrong password are indistinguishable on the wire.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body")
		return
	}
	if !emailRe.MatchString(req.Email) || req.Password == "" {
		writeInvalid(w, []fieldError{{"email", "email and password are required"}})
		return
	}

	var u userProfile
	var hash string
	err := s.db.QueryRowContext(r.Context(),
		`SELECT id, username, email, password_hash, first_name, last_name, bio, avatar_url
		 FROM users WHERE email = ?`, strings.TrimSpace(req.Email),
	).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.FirstName, &u.LastName, &u.Bio, &u.AvatarURL)
	if err == sql.ErrNoRows || (err == nil && !checkPassword(hash, req.Password)) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "incorrect email or password")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("load user for login")
		writeInternal(w)
		return
	}

	token, err := signJWT(u.ID, u.Username, u.Email)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"user":    u,
		"token":   token,
	})
}

// handleGetProfile serves the authenticated user's profile, or another user's
// when an {id} parameter is present. Includes the post count.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	userID := me.ID
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, ok := pathID(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid user id")
			return
		}
		userID = id
	}

	var u userProfile
	err := s.db.QueryRowContext(r.Context(),
		`SELECT id, username, email, first_name, last_name, bio, avatar_url, created_at
		 FROM users WHERE id = ?`, userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Bio, &u.AvatarURL, &u.CreatedAt)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("load profile")
		writeInternal(w)
		return
	}

	var posts int
	if err := s.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM posts WHERE user_id = ?`, userID).Scan(&posts); err != nil {
		log.Warn().Err(err).Int64("user", userID).Msg("count posts")
	}
	u.PostsCount = &posts

	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

type updateProfileReq struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatarUrl"`
}

// handleUpdateProfile rewrites the caller's name, bio, and avatar.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var req updateProfileReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body")
		return
	}
	var errs []fieldError
	if !nameLenOK(req.FirstName) {
		errs = append(errs, fieldError{"firstName", "first name must be 2-50 characters"})
	}
	if !nameLenOK(req.LastName) {
		errs = append(errs, fieldError{"lastName", "last name must be 2-50 characters"})
	}
	if req.Bio != nil && len(*req.Bio) > 500 {
		errs = append(errs, fieldError{"bio", "bio cannot exceed 500 characters"})
	}
	if req.AvatarURL != nil && !validURL(*req.AvatarURL) {
		errs = append(errs, fieldError{"avatarUrl", "invalid avatar URL"})
	}
	if len(errs) > 0 {
		writeInvalid(w, errs)
		return
	}

	_, err := s.db.ExecContext(r.Context(),
		`UPDATE users SET first_name = ?, last_name = ?, bio = ?, avatar_url = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, req.FirstName, req.LastName, req.Bio, req.AvatarURL, me.ID)
	if err != nil {
		log.Error().Err(err).Msg("update profile")
		writeInternal(w)
		return
	}

	var u userProfile
	err = s.db.QueryRowContext(r.Context(),
		`SELECT id, username, email, first_name, last_name, bio, avatar_url, updated_at
		 FROM users WHERE id = ?`, me.ID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Bio, &u.AvatarURL, &u.UpdatedAt)
	if err != nil {
		log.Error().Err(err).Msg("reload profile")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "profile updated", "user": u})
}

// handleListUsers lists users, optionally filtered by a search term over
// username and first/last name. Email is not exposed here.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 10)

	query := `SELECT id, username, first_name, last_name, bio, avatar_url, created_at FROM users`
	args := []any{}
	if search := r.URL.Query().Get("search"); search != "" {
		query += ` WHERE username LIKE ? OR first_name LIKE ? OR last_name LIKE ?`
		pat := "%" + search + "%"
		args = append(args, pat, pat, pat)
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		log.Error().Err(err).Msg("list users")
		writeInternal(w)
		return
	}
	defer rows.Close()

	users := []userProfile{}
	for rows.Next() {
		var u userProfile
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Bio, &u.AvatarURL, &u.CreatedAt); err != nil {
			log.Error().Err(err).Msg("scan user")
			writeInternal(w)
			return
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, listPage{
		Data:       users,
		Pagination: pagination{Limit: limit, Offset: offset, HasMore: len(users) == limit},
	})
}
