package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mcharpentier/liaison/internal/database"
)

const testSecret = "test_secret"

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)

	db, err := database.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

// doReq runs one request through the full router.
func doReq(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

// registerUser creates an account through the API and returns its token and id.
func registerUser(t *testing.T, s *Server, username string) (token string, id int64) {
	t.Helper()
	rr := doReq(t, s, http.MethodPost, "/auth/register", "", map[string]any{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "secret1",
		"firstName": "Test",
		"lastName":  "User",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: got %d, body %s", username, rr.Code, rr.Body.String())
	}
	var res struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	decode(t, rr, &res)
	return res.Token, res.User.ID
}

// createPost publishes a post and returns its id.
func createPost(t *testing.T, s *Server, token, content string) int64 {
	t.Helper()
	rr := doReq(t, s, http.MethodPost, "/posts", token, map[string]any{"content": content})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create post: got %d, body %s", rr.Code, rr.Body.String())
	}
	var res struct {
		Post struct {
			ID int64 `json:"id"`
		} `json:"post"`
	}
	decode(t, rr, &res)
	return res.Post.ID
}

// createComment adds a comment and returns its id.
func createComment(t *testing.T, s *Server, token string, postID int64, content string) int64 {
	t.Helper()
	rr := doReq(t, s, http.MethodPost, "/comments", token, map[string]any{
		"postId": postID, "content": content,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create comment: got %d, body %s", rr.Code, rr.Body.String())
	}
	var res struct {
		Comment struct {
			ID int64 `json:"id"`
		} `json:"comment"`
	}
	decode(t, rr, &res)
	return res.Comment.ID
}
