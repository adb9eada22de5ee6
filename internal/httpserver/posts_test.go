package httpserver

import (
	"net/http"
	"testing"
)

func TestCreatePostAndFeedOrder(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "alice")

	rr := doReq(t, s, http.MethodPost, "/posts", token, map[string]any{"content": "hello"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Post struct {
			ID            int64 `json:"id"`
			LikesCount    int   `json:"likesCount"`
			CommentsCount int   `json:"commentsCount"`
		} `json:"post"`
	}
	decode(t, rr, &created)
	if created.Post.LikesCount != 0 || created.Post.CommentsCount != 0 {
		t.Fatalf("new post counts: %+v", created.Post)
	}

	second := createPost(t, s, token, "newest")

	rr = doReq(t, s, http.MethodGet, "/posts", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("feed: got %d", rr.Code)
	}
	var page struct {
		Data []struct {
			ID      int64  `json:"id"`
			Content string `json:"content"`
		} `json:"data"`
		Pagination struct {
			Limit   int  `json:"limit"`
			HasMore bool `json:"hasMore"`
		} `json:"pagination"`
	}
	decode(t, rr, &page)
	if len(page.Data) != 2 {
		t.Fatalf("feed length: got %d", len(page.Data))
	}
	if page.Data[0].ID != second || page.Data[0].Content != "newest" {
		t.Fatalf("feed not newest-first: %+v", page.Data)
	}
	if page.Pagination.Limit != 10 || page.Pagination.HasMore {
		t.Fatalf("pagination: %+v", page.Pagination)
	}
}

func TestFeedPagination(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "pager")
	for i := 0; i < 3; i++ {
		createPost(t, s, token, "post")
	}

	rr := doReq(t, s, http.MethodGet, "/posts?limit=2", token, nil)
	var page struct {
		Data       []any `json:"data"`
		Pagination struct {
			HasMore bool `json:"hasMore"`
			Offset  int  `json:"offset"`
		} `json:"pagination"`
	}
	decode(t, rr, &page)
	if len(page.Data) != 2 || !page.Pagination.HasMore {
		t.Fatalf("first page: %d rows, hasMore=%v", len(page.Data), page.Pagination.HasMore)
	}

	rr = doReq(t, s, http.MethodGet, "/posts?limit=2&offset=2", token, nil)
	decode(t, rr, &page)
	if len(page.Data) != 1 || page.Pagination.HasMore {
		t.Fatalf("second page: %d rows, hasMore=%v", len(page.Data), page.Pagination.HasMore)
	}
}

func TestPostValidation(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "val")

	if rr := doReq(t, s, http.MethodPost, "/posts", token, map[string]any{"content": ""}); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty content: got %d, want 400", rr.Code)
	}
	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	if rr := doReq(t, s, http.MethodPost, "/posts", token, map[string]any{"content": string(long)}); rr.Code != http.StatusBadRequest {
		t.Fatalf("over-long content: got %d, want 400", rr.Code)
	}
	if rr := doReq(t, s, http.MethodPost, "/posts", token, map[string]any{"content": "ok", "imageUrl": "not a url"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad image url: got %d, want 400", rr.Code)
	}
}

func TestPostOwnership(t *testing.T) {
	s := newTestServer(t)
	owner, _ := registerUser(t, s, "owner")
	other, _ := registerUser(t, s, "other")
	postID := createPost(t, s, owner, "mine")

	path := "/posts/" + itoa(postID)

	if rr := doReq(t, s, http.MethodPut, path, other, map[string]any{"content": "stolen"}); rr.Code != http.StatusForbidden {
		t.Fatalf("non-owner update: got %d, want 403", rr.Code)
	}
	if rr := doReq(t, s, http.MethodDelete, path, other, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete: got %d, want 403", rr.Code)
	}

	rr := doReq(t, s, http.MethodPut, path, owner, map[string]any{"content": "edited"})
	if rr.Code != http.StatusOK {
		t.Fatalf("owner update: got %d, body %s", rr.Code, rr.Body.String())
	}
	rr = doReq(t, s, http.MethodGet, path, other, nil)
	var res struct {
		Post struct {
			Content string `json:"content"`
		} `json:"post"`
	}
	decode(t, rr, &res)
	if res.Post.Content != "edited" {
		t.Fatalf("update not visible: %+v", res.Post)
	}
}

func TestDeletePostCascades(t *testing.T) {
	s := newTestServer(t)
	owner, _ := registerUser(t, s, "owner")
	fan, _ := registerUser(t, s, "fan")
	postID := createPost(t, s, owner, "doomed")
	commentID := createComment(t, s, fan, postID, "nice")

	// Like the post and the comment.
	doReq(t, s, http.MethodPost, "/likes/post", fan, map[string]int64{"postId": postID})
	doReq(t, s, http.MethodPost, "/likes/comment", owner, map[string]int64{"commentId": commentID})

	if rr := doReq(t, s, http.MethodDelete, "/posts/"+itoa(postID), owner, nil); rr.Code != http.StatusOK {
		t.Fatalf("delete: got %d, body %s", rr.Code, rr.Body.String())
	}

	if rr := doReq(t, s, http.MethodGet, "/posts/"+itoa(postID), owner, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("deleted post: got %d, want 404", rr.Code)
	}
	// Post lookup precedes the comment listing, so the deleted post 404s.
	if rr := doReq(t, s, http.MethodGet, "/comments/post/"+itoa(postID), owner, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("comments of deleted post: got %d, want 404", rr.Code)
	}
	if rr := doReq(t, s, http.MethodGet, "/comments/"+itoa(commentID), owner, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("cascaded comment: got %d, want 404", rr.Code)
	}

	// No like rows survive.
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM likes`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("like rows left after cascade: %d", n)
	}
}

func TestUserPostsFiltered(t *testing.T) {
	s := newTestServer(t)
	a, aid := registerUser(t, s, "authora")
	b, _ := registerUser(t, s, "authorb")
	createPost(t, s, a, "from a")
	createPost(t, s, b, "from b")

	rr := doReq(t, s, http.MethodGet, "/posts/user/"+itoa(aid), b, nil)
	var page struct {
		Data []struct {
			Content string `json:"content"`
			User    struct {
				Username string `json:"username"`
			} `json:"user"`
		} `json:"data"`
	}
	decode(t, rr, &page)
	if len(page.Data) != 1 || page.Data[0].User.Username != "authora" {
		t.Fatalf("user posts: %+v", page.Data)
	}
}

func TestGetMissingPost(t *testing.T) {
	s := newTestServer(t)
	token, _ := registerUser(t, s, "ghost")
	if rr := doReq(t, s, http.MethodGet, "/posts/9999", token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing post: got %d, want 404", rr.Code)
	}
}
