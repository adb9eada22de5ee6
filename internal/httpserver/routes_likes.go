// internal/httpserver/routes_likes.go
//
// Like endpoints. Toggling runs the check-then-act pair inside a transaction
// so two identical concurrent requests serialize instead of tripping the
// UNIQUE constraint.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// likeRow is one entry of a likers listing.
type likeRow struct {
	CreatedAt string `json:"createdAt"`
	User      author `json:"user"`
}

// toggleLike flips the (user, target) like row for the given column
// ("post_id" or "comment_id") and returns the new state and total.
func (s *Server) toggleLike(r *http.Request, column string, targetID, userID int64) (isLiked bool, count int, err error) {
	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		return false, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var likeID int64
	err = tx.QueryRowContext(r.Context(),
		`SELECT id FROM likes WHERE user_id = ? AND `+column+` = ?`, userID, targetID,
	).Scan(&likeID)
	switch {
	case err == nil:
		if _, err = tx.ExecContext(r.Context(), `DELETE FROM likes WHERE id = ?`, likeID); err != nil {
			return false, 0, err
		}
		isLiked = false
	case err == sql.ErrNoRows:
		if _, err = tx.ExecContext(r.Context(),
			`INSERT INTO likes (user_id, `+column+`) VALUES (?, ?)`, userID, targetID); err != nil {
			return false, 0, err
		}
		isLiked = true
	default:
		return false, 0, err
	}

	if err = tx.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM likes WHERE `+column+` = ?`, targetID,
	).Scan(&count); err != nil {
		return false, 0, err
	}
	return isLiked, count, tx.Commit()
}

type postLikeReq struct {
	PostID int64 `json:"postId"`
}

// handleTogglePostLike likes or unlikes a post for the caller.
func (s *Server) handleTogglePostLike(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var req postLikeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PostID <= 0 {
		writeInvalid(w, []fieldError{{"postId", "invalid post id"}})
		return
	}

	exists, err := s.postExists(r, req.PostID)
	if err != nil {
		writeInternal(w)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "post not found")
		return
	}

	isLiked, count, err := s.toggleLike(r, "post_id", req.PostID, me.ID)
	if err != nil {
		log.Error().Err(err).Int64("post", req.PostID).Msg("toggle post like")
		writeInternal(w)
		return
	}

	msg := "like removed"
	if isLiked {
		msg = "like added"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "isLiked": isLiked, "likesCount": count})
}

type commentLikeReq struct {
	CommentID int64 `json:"commentId"`
}

// commentExists reports whether a comment row is present.
func (s *Server) commentExists(r *http.Request, id int64) (bool, error) {
	var found int64
	err := s.db.QueryRowContext(r.Context(), `SELECT id FROM comments WHERE id = ?`, id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// handleToggleCommentLike likes or unlikes a comment for the caller.
func (s *Server) handleToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	var req commentLikeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CommentID <= 0 {
		writeInvalid(w, []fieldError{{"commentId", "invalid comment id"}})
		return
	}

	exists, err := s.commentExists(r, req.CommentID)
	if err != nil {
		writeInternal(w)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "comment not found")
		return
	}

	isLiked, count, err := s.toggleLike(r, "comment_id", req.CommentID, me.ID)
	if err != nil {
		log.Error().Err(err).Int64("comment", req.CommentID).Msg("toggle comment like")
		writeInternal(w)
		return
	}

	msg := "like removed"
	if isLiked {
		msg = "like added"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "isLiked": isLiked, "likesCount": count})
}

// listLikers serves the newest-first liker list for one target column.
func (s *Server) listLikers(w http.ResponseWriter, r *http.Request, column string, targetID int64) {
	limit, offset := pageParams(r, 20)

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT l.created_at, u.id, u.username, u.first_name, u.last_name, u.avatar_url
		FROM likes l
		JOIN users u ON l.user_id = u.id
		WHERE l.`+column+` = ?
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ? OFFSET ?`, targetID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("query likers")
		writeInternal(w)
		return
	}
	defer rows.Close()

	likes := []likeRow{}
	for rows.Next() {
		var lk likeRow
		var avatar sql.NullString
		if err := rows.Scan(&lk.CreatedAt, &lk.User.ID, &lk.User.Username,
			&lk.User.FirstName, &lk.User.LastName, &avatar); err != nil {
			log.Error().Err(err).Msg("scan liker")
			writeInternal(w)
			return
		}
		if avatar.Valid {
			lk.User.AvatarURL = &avatar.String
		}
		likes = append(likes, lk)
	}
	if err := rows.Err(); err != nil {
		writeInternal(w)
		return
	}

	var total int
	if err := s.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM likes WHERE `+column+` = ?`, targetID).Scan(&total); err != nil {
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, listPage{
		Data:       likes,
		TotalCount: &total,
		Pagination: pagination{Limit: limit, Offset: offset, HasMore: len(likes) == limit},
	})
}

// handlePostLikers lists who liked a post.
func (s *Server) handlePostLikers(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathID(chi.URLParam(r, "postId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid post id")
		return
	}
	exists, err := s.postExists(r, postID)
	if err != nil {
		writeInternal(w)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "post not found")
		return
	}
	s.listLikers(w, r, "post_id", postID)
}

// handleCommentLikers lists who liked a comment.
func (s *Server) handleCommentLikers(w http.ResponseWriter, r *http.Request) {
	commentID, ok := pathID(chi.URLParam(r, "commentId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid comment id")
		return
	}
	exists, err := s.commentExists(r, commentID)
	if err != nil {
		writeInternal(w)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "comment not found")
		return
	}
	s.listLikers(w, r, "comment_id", commentID)
}

// handleLikedPosts lists the posts a user has liked, newest-liked-first, in
// feed row shape plus the likedAt timestamp.
func (s *Server) handleLikedPosts(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	userID, ok := pathID(chi.URLParam(r, "userId"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid user id")
		return
	}
	limit, offset := pageParams(r, 10)

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT p.id, p.user_id, p.content, p.image_url, p.created_at, p.updated_at,
		       u.username, u.first_name, u.last_name, u.avatar_url,
		       l.created_at AS liked_at,
		       COUNT(DISTINCT pl.id) AS likes_count,
		       COUNT(DISTINCT c.id) AS comments_count,
		       CASE WHEN ul.id IS NOT NULL THEN 1 ELSE 0 END AS is_liked
		FROM likes l
		JOIN posts p ON l.post_id = p.id
		JOIN users u ON p.user_id = u.id
		LEFT JOIN likes pl ON p.id = pl.post_id
		LEFT JOIN comments c ON p.id = c.post_id
		LEFT JOIN likes ul ON p.id = ul.post_id AND ul.user_id = ?
		WHERE l.user_id = ? AND l.post_id IS NOT NULL
		GROUP BY p.id, l.id
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ? OFFSET ?`,
		me.ID, userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("query liked posts")
		writeInternal(w)
		return
	}
	defer rows.Close()

	posts := []postView{}
	for rows.Next() {
		var p postView
		var image, avatar sql.NullString
		var liked int
		if err := rows.Scan(&p.ID, &p.User.ID, &p.Content, &image, &p.CreatedAt, &p.UpdatedAt,
			&p.User.Username, &p.User.FirstName, &p.User.LastName, &avatar,
			&p.LikedAt, &p.LikesCount, &p.CommentsCount, &liked); err != nil {
			log.Error().Err(err).Msg("scan liked post")
			writeInternal(w)
			return
		}
		if image.Valid {
			p.ImageURL = &image.String
		}
		if avatar.Valid {
			p.User.AvatarURL = &avatar.String
		}
		p.IsLiked = liked == 1
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
