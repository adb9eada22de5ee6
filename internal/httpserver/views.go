package httpserver

import "database/sql"

// author is the user projection embedded in posts, comments, and liker lists.
type author struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	AvatarURL *string `json:"avatarUrl"`
}

// postView is the wire shape of a post, joined with its author and aggregate
// counts. isLiked is relative to the requesting user. likedAt is only set on
// liked-posts listings.
type postView struct {
	ID            int64   `json:"id"`
	Content       string  `json:"content"`
	ImageURL      *string `json:"imageUrl"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
	LikedAt       string  `json:"likedAt,omitempty"`
	LikesCount    int     `json:"likesCount"`
	CommentsCount int     `json:"commentsCount"`
	IsLiked       bool    `json:"isLiked"`
	User          author  `json:"user"`
}

// commentView is the wire shape of a comment. postContent is only set on
// per-user listings, as a truncated preview of the parent post.
type commentView struct {
	ID          int64  `json:"id"`
	PostID      int64  `json:"postId"`
	Content     string `json:"content"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	LikesCount  int    `json:"likesCount"`
	IsLiked     bool   `json:"isLiked"`
	PostContent string `json:"postContent,omitempty"`
	User        author `json:"user"`
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// postSelect joins a post with its author, aggregate counts, and the
// viewer-relative like flag. First bind parameter is the viewing user's id;
// callers append WHERE/ORDER/LIMIT clauses and their parameters.
const postSelect = `
	SELECT p.id, p.user_id, p.content, p.image_url, p.created_at, p.updated_at,
	       u.username, u.first_name, u.last_name, u.avatar_url,
	       COUNT(DISTINCT l.id) AS likes_count,
	       COUNT(DISTINCT c.id) AS comments_count,
	       CASE WHEN ul.id IS NOT NULL THEN 1 ELSE 0 END AS is_liked
	FROM posts p
	JOIN users u ON p.user_id = u.id
	LEFT JOIN likes l ON p.id = l.post_id
	LEFT JOIN comments c ON p.id = c.post_id
	LEFT JOIN likes ul ON p.id = ul.post_id AND ul.user_id = ?`

// scanPost reads one postSelect row.
func scanPost(row rowScanner) (postView, error) {
	var p postView
	var image, avatar sql.NullString
	var liked int
	err := row.Scan(&p.ID, &p.User.ID, &p.Content, &image, &p.CreatedAt, &p.UpdatedAt,
		&p.User.Username, &p.User.FirstName, &p.User.LastName, &avatar,
		&p.LikesCount, &p.CommentsCount, &liked)
	if err != nil {
		return p, err
	}
	if image.Valid {
		p.ImageURL = &image.String
	}
	if avatar.Valid {
		p.User.AvatarURL = &avatar.String
	}
	p.IsLiked = liked == 1
	return p, nil
}

// commentSelect mirrors postSelect at comment scope.
const commentSelect = `
	SELECT c.id, c.post_id, c.user_id, c.content, c.created_at, c.updated_at,
	       u.username, u.first_name, u.last_name, u.avatar_url,
	       COUNT(DISTINCT l.id) AS likes_count,
	       CASE WHEN ul.id IS NOT NULL THEN 1 ELSE 0 END AS is_liked
	FROM comments c
	JOIN users u ON c.user_id = u.id
	LEFT JOIN likes l ON c.id = l.comment_id
	LEFT JOIN likes ul ON c.id = ul.comment_id AND ul.user_id = ?`

// scanComment reads one commentSelect row.
func scanComment(row rowScanner) (commentView, error) {
	var c commentView
	var avatar sql.NullString
	var liked int
	err := row.Scan(&c.ID, &c.PostID, &c.User.ID, &c.Content, &c.CreatedAt, &c.UpdatedAt,
		&c.User.Username, &c.User.FirstName, &c.User.LastName, &avatar,
		&c.LikesCount, &liked)
	if err != nil {
		return c, err
	}
	if avatar.Valid {
		c.User.AvatarURL = &avatar.String
	}
	c.IsLiked = liked == 1
	return c, nil
}

// truncate shortens s to max runes with an ellipsis marker.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
