// internal/httpserver/routes_comments.go
//
// Comment endpoints: create under a post, per-post and per-user listings,
// single read, owner update/delete.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type createCommentReq struct {
	PostID  int64  `json:"postId"`
	Content string `json:"content"`
}

func validCommentContent(content string) bool {
	n := len(strings.TrimSpace(content))
	return n >= 1 && len(content) <= 500
}

// postExists reports whether a post row is present.
func (s *Server) postExists(r *http.Request, id int64) (bool, error) {
	var found int64
	err := s.db.QueryRowContext(r.Context(), `SELECT id FROM posts WHERE id = ?`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// handleCreateComment inserts a comment under an existing post.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var req createCommentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body")
		return
	}
	var errs []fieldError
	if req.PostID <= 0 {
		errs = append(errs, fieldError{"postId", "invalid post id"})
	}
	if !validCommentContent(req.Content) {
		errs = append(errs, fieldError{"content", "content must contain between 1 and 500 characters"})
	}
	if len(errs) > 0 {
		writeInvalid(w, errs)
		return
	}

	ok, err := s.postExists(r, req.PostID)
	if err != nil {
		log.Error().Err(err).Msg("check post")
		writeInternal(w)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "post not found")
		return
	}

	res, err := s.db.ExecContext(r.Context(),
		`INSERT INTO comments (post_id, user_id, content) VALUES (?, ?, ?)`,
		req.PostID, me.ID, req.Content)
	if err != nil {
		log.Error().Err(err).Msg("insert comment")
		writeInternal(w)
		return
	}
	id, err := res.LastInsertId()
	if err != nil {
		writeInternal(w)
		return
	}

	comment, err := scanComment(s.db.QueryRowContext(r.Context(),
		commentSelect+` WHERE c.id = ? GROUP BY c.id`, me.ID, id))
	if err != nil {
		log.Error().Err(err).Int64("comment", id).Msg("reload created comment")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "comment created", "comment": comment})
}

// handlePostComments lists a post's comments oldest-first.
func (s *Server) handlePostComments(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	postID, ok := pathID(chi.URLParam(r, "postId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid post id")
		return
	}
	limit, offset := pageParams(r, 20)

	exists, err := s.postExists(r, postID)
	if err != nil {
		writeInternal(w)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "post not found")
		return
	}

	rows, err := s.db.QueryContext(r.Context(),
		commentSelect+` WHERE c.post_id = ? GROUP BY c.id ORDER BY c.created_at ASC, c.id ASC LIMIT ? OFFSET ?`,
		me.ID, postID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("query post comments")
		writeInternal(w)
		return
	}
	defer rows.Close()

	comments := []commentView{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			log.Error().Err(err).Msg("scan comment")
			writeInternal(w)
			return
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, listPage{
		Data:       comments,
		Pagination: pagination{Limit: limit, Offset: offset, HasMore: len(comments) == limit},
	})
}

// handleUserComments lists a user's comments newest-first, each carrying a
// truncated preview of the parent post.
func (s *Server) handleUserComments(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	userID, ok := pathID(chi.URLParam(r, "userId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid user id")
		return
	}
	limit, offset := pageParams(r, 10)

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, c.updated_at,
		       u.username, u.first_name, u.last_name, u.avatar_url,
		       p.content AS post_content,
		       COUNT(DISTINCT l.id) AS likes_count,
		       CASE WHEN ul.id IS NOT NULL THEN 1 ELSE 0 END AS is_liked
		FROM comments c
		JOIN users u ON c.user_id = u.id
		JOIN posts p ON c.post_id = p.id
		LEFT JOIN likes l ON c.id = l.comment_id
		LEFT JOIN likes ul ON c.id = ul.comment_id AND ul.user_id = ?
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ? OFFSET ?`,
		me.ID, userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("query user comments")
		writeInternal(w)
		return
	}
	defer rows.Close()

	comments := []commentView{}
	for rows.Next() {
		var c commentView
		var avatar sql.NullString
		var postContent string
		var liked int
		if err := rows.Scan(&c.ID, &c.PostID, &c.User.ID, &c.Content, &c.CreatedAt, &c.UpdatedAt,
			&c.User.Username, &c.User.FirstName, &c.User.LastName, &avatar,
			&postContent, &c.LikesCount, &liked); err != nil {
			log.Error().Err(err).Msg("scan comment")
			writeInternal(w)
			return
		}
		if avatar.Valid {
			c.User.AvatarURL = &avatar.String
		}
		c.IsLiked = liked == 1
		c.PostContent = truncate(postContent, 100)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, listPage{
		Data:       comments,
		Pagination: pagination{Limit: limit, Offset: offset, HasMore: len(comments) == limit},
	})
}

// handleGetComment serves a single comment.
func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	id, ok := pathID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid comment id")
		return
	}

	comment, err := scanComment(s.db.QueryRowContext(r.Context(),
		commentSelect+` WHERE c.id = ? GROUP BY c.id`, me.ID, id))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "not_found", "comment not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("comment", id).Msg("load comment")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"comment": comment})
}

type updateCommentReq struct {
	Content string `json:"content"`
}

// handleUpdateComment rewrites an owned comment's content.
func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	id, _ := pathID(chi.URLParam(r, "id"))
	var req updateCommentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "malformed JSON body")
		return
	}
	if !validCommentContent(req.Content) {
		writeInvalid(w, []fieldError{{"content", "content must contain between 1 and 500 characters"}})
		return
	}

	_, err := s.db.ExecContext(r.Context(),
		`UPDATE comments SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		req.Content, id)
	if err != nil {
		log.Error().Err(err).Int64("comment", id).Msg("update comment")
		writeInternal(w)
		return
	}

	comment, err := scanComment(s.db.QueryRowContext(r.Context(),
		commentSelect+` WHERE c.id = ? GROUP BY c.id`, me.ID, id))
	if err != nil {
		log.Error().Err(err).Int64("comment", id).Msg("reload updated comment")
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "comment updated", "comment": comment})
}

// handleDeleteComment removes an owned comment and its likes transactionally.
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(chi.URLParam(r, "id"))

	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		writeInternal(w)
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(r.Context(), `DELETE FROM likes WHERE comment_id = ?`, id); err != nil {
		log.Error().Err(err).Int64("comment", id).Msg("delete comment likes")
		writeInternal(w)
		return
	}
	if _, err := tx.ExecContext(r.Context(), `DELETE FROM comments WHERE id = ?`, id); err != nil {
		log.Error().Err(err).Int64("comment", id).Msg("delete comment")
		writeInternal(w)
		return
	}
	if err := tx.Commit(); err != nil {
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "comment deleted"})
}
