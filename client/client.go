// client/client.go
//
// Go client for the Liaison API. One method per endpoint; the Session carries
// the bearer token and the logged-in user, and is attached to every request.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Session holds the authentication state produced by Register/Login.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Client talks to one Liaison server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Session Session
}

// New returns a client for baseURL using http.DefaultClient.
func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: http.DefaultClient}
}

// APIError is a decoded error envelope from the server.
type APIError struct {
	Status  int
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Kind, e.Message)
}

// User mirrors the server's user projection.
type User struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Bio        *string `json:"bio"`
	AvatarURL  *string `json:"avatarUrl"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
	PostsCount *int    `json:"postsCount"`
}

// Post mirrors a feed row.
type Post struct {
	ID            int64   `json:"id"`
	Content       string  `json:"content"`
	ImageURL      *string `json:"imageUrl"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
	LikedAt       string  `json:"likedAt"`
	LikesCount    int     `json:"likesCount"`
	CommentsCount int     `json:"commentsCount"`
	IsLiked       bool    `json:"isLiked"`
	User          User    `json:"user"`
}

// Comment mirrors a comment row.
type Comment struct {
	ID          int64  `json:"id"`
	PostID      int64  `json:"postId"`
	Content     string `json:"content"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	LikesCount  int    `json:"likesCount"`
	IsLiked     bool   `json:"isLiked"`
	PostContent string `json:"postContent"`
	User        User   `json:"user"`
}

// Like is one entry of a likers listing.
type Like struct {
	CreatedAt string `json:"createdAt"`
	User      User   `json:"user"`
}

// Pagination echoes the server's paging window.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// Page wraps a paginated listing.
type Page[T any] struct {
	Data       []T        `json:"data"`
	TotalCount *int       `json:"totalCount"`
	Pagination Pagination `json:"pagination"`
}

// LikeResult is the outcome of a toggle call.
type LikeResult struct {
	IsLiked    bool `json:"isLiked"`
	LikesCount int  `json:"likesCount"`
}

// do issues one request, attaching the session token when present, and
// decodes either the success payload into out or the error envelope.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Session.Token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		apiErr := &APIError{Status: res.StatusCode}
		if err := json.NewDecoder(res.Body).Decode(apiErr); err != nil {
			apiErr.Kind = "unknown"
			apiErr.Message = res.Status
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func pageQuery(limit, offset int) string {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ------------------------------- auth --------------------------------------

// RegisterReq carries the registration form.
type RegisterReq struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Bio       *string `json:"bio,omitempty"`
}

type authRes struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Register creates an account and stores the resulting session.
func (c *Client) Register(ctx context.Context, req RegisterReq) (*User, error) {
	var res authRes
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &res); err != nil {
		return nil, err
	}
	c.Session = Session{Token: res.Token, User: res.User}
	return res.User, nil
}

// Login authenticates and stores the resulting session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var res authRes
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.Session = Session{Token: res.Token, User: res.User}
	return res.User, nil
}

// Logout drops the stored session.
func (c *Client) Logout() { c.Session = Session{} }

// Profile fetches the current user's profile, or another user's when id > 0.
func (c *Client) Profile(ctx context.Context, id int64) (*User, error) {
	path := "/auth/profile"
	if id > 0 {
		path += "/" + strconv.FormatInt(id, 10)
	}
	var res struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

// UpdateProfileReq carries the profile edit form.
type UpdateProfileReq struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// UpdateProfile rewrites the current user's profile.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileReq) (*User, error) {
	var res struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/auth/profile", req, &res); err != nil {
		return nil, err
	}
	if c.Session.User != nil && res.User != nil {
		c.Session.User = res.User
	}
	return res.User, nil
}

// SearchUsers lists users matching search (empty lists everyone).
func (c *Client) SearchUsers(ctx context.Context, search string, limit, offset int) (*Page[User], error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/auth"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page Page[User]
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ------------------------------- posts -------------------------------------

type postRes struct {
	Post *Post `json:"post"`
}

// CreatePost publishes a post.
func (c *Client) CreatePost(ctx context.Context, content string, imageURL *string) (*Post, error) {
	var res postRes
	body := map[string]any{"content": content, "imageUrl": imageURL}
	if err := c.do(ctx, http.MethodPost, "/posts", body, &res); err != nil {
		return nil, err
	}
	return res.Post, nil
}

// Feed fetches the newest-first post feed.
func (c *Client) Feed(ctx context.Context, limit, offset int) (*Page[Post], error) {
	var page Page[Post]
	if err := c.do(ctx, http.MethodGet, "/posts"+pageQuery(limit, offset), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Post fetches one post.
func (c *Client) Post(ctx context.Context, id int64) (*Post, error) {
	var res postRes
	if err := c.do(ctx, http.MethodGet, "/posts/"+strconv.FormatInt(id, 10), nil, &res); err != nil {
		return nil, err
	}
	return res.Post, nil
}

// UserPosts fetches one author's posts.
func (c *Client) UserPosts(ctx context.Context, userID int64, limit, offset int) (*Page[Post], error) {
	var page Page[Post]
	path := "/posts/user/" + strconv.FormatInt(userID, 10) + pageQuery(limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdatePost rewrites an owned post.
func (c *Client) UpdatePost(ctx context.Context, id int64, content string, imageURL *string) (*Post, error) {
	var res postRes
	body := map[string]any{"content": content, "imageUrl": imageURL}
	if err := c.do(ctx, http.MethodPut, "/posts/"+strconv.FormatInt(id, 10), body, &res); err != nil {
		return nil, err
	}
	return res.Post, nil
}

// DeletePost removes an owned post and its comments/likes.
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+strconv.FormatInt(id, 10), nil, nil)
}

// ------------------------------ comments -----------------------------------

type commentRes struct {
	Comment *Comment `json:"comment"`
}

// CreateComment adds a comment under a post.
func (c *Client) CreateComment(ctx context.Context, postID int64, content string) (*Comment, error) {
	var res commentRes
	body := map[string]any{"postId": postID, "content": content}
	if err := c.do(ctx, http.MethodPost, "/comments", body, &res); err != nil {
		return nil, err
	}
	return res.Comment, nil
}

// PostComments fetches a post's comments oldest-first.
func (c *Client) PostComments(ctx context.Context, postID int64, limit, offset int) (*Page[Comment], error) {
	var page Page[Comment]
	path := "/comments/post/" + strconv.FormatInt(postID, 10) + pageQuery(limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UserComments fetches one user's comments with post previews.
func (c *Client) UserComments(ctx context.Context, userID int64, limit, offset int) (*Page[Comment], error) {
	var page Page[Comment]
	path := "/comments/user/" + strconv.FormatInt(userID, 10) + pageQuery(limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Comment fetches one comment.
func (c *Client) Comment(ctx context.Context, id int64) (*Comment, error) {
	var res commentRes
	if err := c.do(ctx, http.MethodGet, "/comments/"+strconv.FormatInt(id, 10), nil, &res); err != nil {
		return nil, err
	}
	return res.Comment, nil
}

// UpdateComment rewrites an owned comment.
func (c *Client) UpdateComment(ctx context.Context, id int64, content string) (*Comment, error) {
	var res commentRes
	body := map[string]any{"content": content}
	if err := c.do(ctx, http.MethodPut, "/comments/"+strconv.FormatInt(id, 10), body, &res); err != nil {
		return nil, err
	}
	return res.Comment, nil
}

// DeleteComment removes an owned comment.
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/comments/"+strconv.FormatInt(id, 10), nil, nil)
}

// ------------------------------- likes -------------------------------------

// TogglePostLike flips the caller's like on a post.
func (c *Client) TogglePostLike(ctx context.Context, postID int64) (*LikeResult, error) {
	var res LikeResult
	if err := c.do(ctx, http.MethodPost, "/likes/post", map[string]int64{"postId": postID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ToggleCommentLike flips the caller's like on a comment.
func (c *Client) ToggleCommentLike(ctx context.Context, commentID int64) (*LikeResult, error) {
	var res LikeResult
	if err := c.do(ctx, http.MethodPost, "/likes/comment", map[string]int64{"commentId": commentID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PostLikers lists who liked a post.
func (c *Client) PostLikers(ctx context.Context, postID int64, limit, offset int) (*Page[Like], error) {
	var page Page[Like]
	path := "/likes/post/" + strconv.FormatInt(postID, 10) + pageQuery(limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CommentLikers lists who liked a comment.
func (c *Client) CommentLikers(ctx context.Context, commentID int64, limit, offset int) (*Page[Like], error) {
	var page Page[Like]
	path := "/likes/comment/" + strconv.FormatInt(commentID, 10) + pageQuery(limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// LikedPosts lists the posts a user has liked.
func (c *Client) LikedPosts(ctx context.Context, userID int64, limit, offset int) (*Page[Post], error) {
	var page Page[Post]
	path := "/likes/user/" + strconv.FormatInt(userID, 10) + "/posts" + pageQuery(limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
