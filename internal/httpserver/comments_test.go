package httpserver

import (
	"net/http"
	"strings"
	"testing"
)

func TestCreateCommentOnMissingPost(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "alice")
	rr := doReq(t, s, http.MethodPost, "/comments", token, map[string]any{
		"postId": 9999, "content": "into the void",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("comment on missing post: got %d, want 404", rr.Code)
	}
}

func TestCommentValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "alice")
	postID := createPost(t, s, token, "a post")

	if rr := doReq(t, s, http.MethodPost, "/comments", token, map[string]any{
		"postId": postID, "content": "",
	}); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty comment: got %d, want 400", rr.Code)
	}
	if rr := doReq(t, s, http.MethodPost, "/comments", token, map[string]any{
		"postId": postID, "content": strings.Repeat("a", 501),
	}); rr.Code != http.StatusBadRequest {
		t.Fatalf("over-long comment: got %d, want 400", rr.Code)
	}
}

func TestPostCommentsOldestFirst(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "alice")
	postID := createPost(t, s, token, "a post")
	createComment(t, s, token, postID, "first")
	createComment(t, s, token, postID, "second")

	rr := doReq(t, s, http.MethodGet, "/comments/post/"+itoa(postID), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list comments: got %d", rr.Code)
	}
	var page struct {
		Data []struct {
			Content    string `json:"content"`
			LikesCount int    `json:"likesCount"`
		} `json:"data"`
	}
	decode(t, rr, &page)
	if len(page.Data) != 2 || page.Data[0].Content != "first" {
		t.Fatalf("comments not oldest-first: %+v", page.Data)
	}
	if page.Data[0].LikesCount != 0 {
		t.Fatalf("new comment likes: %+v", page.Data[0])
	}

	// Comment count shows up on the post.
	rr = doReq(t, s, http.MethodGet, "/posts/"+itoa(postID), token, nil)
	var res struct {
		Post struct {
			CommentsCount int `json:"commentsCount"`
		} `json:"post"`
	}
	decode(t, rr, &res)
	if res.Post.CommentsCount != 2 {
		t.Fatalf("commentsCount: got %d, want 2", res.Post.CommentsCount)
	}
}

func TestUserCommentsCarryPostPreview(t *testing.T) {
	s := newTestServer(t)
	token, id := registerUser(t, s, "alice")
	long := strings.Repeat("x", 150)
	postID := createPost(t, s, token, long)
	createComment(t, s, token, postID, "mine")

	rr := doReq(t, s, http.MethodGet, "/comments/user/"+itoa(id), token, nil)
	var page struct {
		Data []struct {
			PostContent string `json:"postContent"`
		} `json:"data"`
	}
	decode(t, rr, &page)
	if len(page.Data) != 1 {
		t.Fatalf("user comments: %+v", page.Data)
	}
	want := strings.Repeat("x", 100) + "..."
	if page.Data[0].PostContent != want {
		t.Fatalf("post preview: got %q", page.Data[0].PostContent)
	}
}

func TestCommentOwnership(t *testing.T) {
	s := newTestServer(t)
	owner, _ := registerUser(t, s, "owner")
	other, _ := registerUser(t, s, "other")
	postID := createPost(t, s, owner, "a post")
	commentID := createComment(t, s, owner, postID, "original")
	path := "/comments/" + itoa(commentID)

	if rr := doReq(t, s, http.MethodPut, path, other, map[string]any{"content": "hijack"}); rr.Code != http.StatusForbidden {
		t.Fatalf("non-owner update: got %d, want 403", rr.Code)
	}
	if rr := doReq(t, s, http.MethodDelete, path, other, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete: got %d, want 403", rr.Code)
	}

	rr := doReq(t, s, http.MethodPut, path, owner, map[string]any{"content": "edited"})
	if rr.Code != http.StatusOK {
		t.Fatalf("owner update: got %d, body %s", rr.Code, rr.Body.String())
	}
	var res struct {
		Comment struct {
			Content string `json:"content"`
		} `json:"comment"`
	}
	decode(t, rr, &res)
	if res.Comment.Content != "edited" {
		t.Fatalf("comment not updated: %+v", res.Comment)
	}

	if rr := doReq(t, s, http.MethodDelete, path, owner, nil); rr.Code != http.StatusOK {
		t.Fatalf("owner delete: got %d", rr.Code)
	}
	if rr := doReq(t, s, http.MethodGet, path, owner, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted comment: got %d, want 404", rr.Code)
	}
}
