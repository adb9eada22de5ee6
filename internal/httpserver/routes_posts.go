// internal/httpserver/routes_posts.go
//
// Post endpoints: create, feed, single, per-user listing, owner update/delete.
// Deletion cascades comment-likes, post-likes, and comments inside one
// transaction before removing the post itself.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type postReq struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"imageUrl"`
}

func (req *postReq) validate() []fieldError {
	var errs []fieldError
	content := strings.TrimSpace(req.Content)
	if len(content) < 1 || len(content) > 2000 {
		errs = append(errs, fieldError{"content", "content must contain between 1 and 2000 characters"})
	}
	if req.ImageURL != nil && !validURL(*req.ImageURL) {
		errs = append(errs, fieldError{"imageUrl", "invalid image URL"})
	}
	return errs
}

// handleCreatePost inserts a post and returns it with author fields and
// zero-initialized counts.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var req postReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeInvalid(w, errs)
		return
	}

	res, err := s.db.ExecContext(r.Context(),
		`INSERT INTO posts (user_id, content, image_url) VALUES (?, ?, ?)`,
		me.ID, req.Content, req.ImageURL)
	if err != nil {
		log.Error().Err(err).Msg("insert post")
		writeInternal(w)
		return
	}
	id, err := res.LastInsertId()
	if err != nil {
		writeInternal(w)
		return
	}

	post, err := scanPost(s.db.QueryRowContext(r.Context(),
		postSelect+` WHERE p.id = ? GROUP BY p.id`, me.ID, id))
	if err != nil {
		log.Error().Err(err).Int64("post", id).Msg("reload created post")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "post created", "post": post})
}

// handleFeed serves the reverse-chronological feed with viewer-relative like
// state and aggregate counts.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	limit, offset := pageParams(r, 10)

	rows, err := s.db.QueryContext(r.Context(),
		postSelect+` GROUP BY p.id ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		me.ID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("query feed")
		writeInternal(w)
		return
	}
	defer rows.Close()

	posts := []postView{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			log.Error().Err(err).Msg("scan post")
			writeInternal(w)
			return
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, listPage{
		Data:       posts,
		Pagination: pagination{Limit: limit, Offset: offset, HasMore: len(posts) == limit},
	})
}

// handleGetPost serves one post in the same shape as a feed row.
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	id, ok := pathID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid post id")
		return
	}

	post, err := scanPost(s.db.QueryRowContext(r.Context(),
		postSelect+` WHERE p.id = ? GROUP BY p.id`, me.ID, id))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "not_found", "post not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("post", id).Msg("load post")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

// handleUserPosts serves the feed filtered to one author.
func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	userID, ok := pathID(chi.URLParam(r, "userId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid user id")
		return
	}
	limit, offset := pageParams(r, 10)

	rows, err := s.db.QueryContext(r.Context(),
		postSelect+` WHERE p.user_id = ? GROUP BY p.id ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		me.ID, userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("query user posts")
		writeInternal(w)
		return
	}
	defer rows.Close()

	posts := []postView{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			log.Error().Err(err).Msg("scan post")
			writeInternal(w)
			return
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, listPage{
		Data:       posts,
		Pagination: pagination{Limit: limit, Offset: offset, HasMore: len(posts) == limit},
	})
}

// handleUpdatePost rewrites content/image of an owned post.
// requireOwner has already validated the id and ownership.
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	id, _ := pathID(chi.URLParam(r, "id"))
	var req postReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeInvalid(w, errs)
		return
	}

	_, err := s.db.ExecContext(r.Context(),
		`UPDATE posts SET content = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		req.Content, req.ImageURL, id)
	if err != nil {
		log.Error().Err(err).Int64("post", id).Msg("update post")
		writeInternal(w)
		return
	}

	post, err := scanPost(s.db.QueryRowContext(r.Context(),
		postSelect+` WHERE p.id = ? GROUP BY p.id`, me.ID, id))
	if err != nil {
		log.Error().Err(err).Int64("post", id).Msg("reload updated post")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "post updated", "post": post})
}

// handleDeletePost removes an owned post and everything hanging off it.
// The explicit cascade keeps the behavior independent of the foreign_keys
// pragma; FK ON DELETE CASCADE in the schema is a backstop.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(chi.URLParam(r, "id"))

	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		writeInternal(w)
		return
	}
	defer func() { _ = tx.Rollback() }()

	steps := []string{
		`DELETE FROM likes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = ?)`,
		`DELETE FROM likes WHERE post_id = ?`,
		`DELETE FROM comments WHERE post_id = ?`,
		`DELETE FROM posts WHERE id = ?`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(r.Context(), q, id); err != nil {
			log.Error().Err(err).Int64("post", id).Msg("cascade delete post")
			writeInternal(w)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "post deleted"})
}
