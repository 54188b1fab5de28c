package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			_ = json.NewEncoder(w).Encode(AuthResponse{Success: false, Detail: "bad credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: req.Author, Path: "/"})
		_ = json.NewEncoder(w).Encode(AuthResponse{Success: true})
	})
	mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AuthResponse{Success: false, Detail: "author taken"})
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		var resp SessionResponse
		if c, err := r.Cookie("session"); err == nil {
			resp.Author = c.Value
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Detail: "no file"})
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if len(data) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Detail: "empty file"})
			return
		}
		_ = json.NewEncoder(w).Encode(UploadResponse{ImageRef: "/img/" + hdr.Filename})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	ts := newTestAPI(t)
	c := NewClient(ts.URL)

	sess, err := c.Session(t.Context())
	require.NoError(t, err)
	assert.Empty(t, sess.Author)

	resp, err := c.Login(t.Context(), LoginRequest{Author: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	sess, err = c.Session(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Author)
}

func TestLoginRejected(t *testing.T) {
	ts := newTestAPI(t)
	c := NewClient(ts.URL)

	resp, err := c.Login(t.Context(), LoginRequest{Author: "alice", Password: "wrong"})
	require.ErrorIs(t, err, ErrRejected)
	require.NotNil(t, resp)
	assert.Equal(t, "bad credentials", resp.Detail)
}

func TestSignupRejected(t *testing.T) {
	ts := newTestAPI(t)
	c := NewClient(ts.URL)

	_, err := c.Signup(t.Context(), SignupRequest{Author: "alice", Password: "x"})
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "author taken")
}

func TestUpload(t *testing.T) {
	ts := newTestAPI(t)
	c := NewClient(ts.URL)

	resp, err := c.Upload(t.Context(), "cat.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/img/cat.png", resp.ImageRef)
}

func TestUploadErrorDetail(t *testing.T) {
	ts := newTestAPI(t)
	c := NewClient(ts.URL)

	_, err := c.Upload(t.Context(), "empty.png", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
	assert.Contains(t, err.Error(), "400")
}

func newFailingAPI(t *testing.T, status int, detail string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Detail: detail})
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func TestServerErrorDetailReachesCaller(t *testing.T) {
	ts, hits := newFailingAPI(t, http.StatusInternalServerError, "disk full")
	c := NewClient(ts.URL)

	_, err := c.Upload(t.Context(), "cat.png", strings.NewReader("png-bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(1), hits.Load(), "upload must not be re-sent")
}

func TestPostsAreNotRetried(t *testing.T) {
	ts, hits := newFailingAPI(t, http.StatusServiceUnavailable, "try later")
	c := NewClient(ts.URL)

	_, err := c.Login(t.Context(), LoginRequest{Author: "alice", Password: "secret"})
	require.ErrorContains(t, err, "try later")
	_, err = c.Signup(t.Context(), SignupRequest{Author: "alice", Password: "secret"})
	require.ErrorContains(t, err, "try later")
	assert.Equal(t, int32(2), hits.Load())
}

func TestSessionIsRetried(t *testing.T) {
	ts, hits := newFailingAPI(t, http.StatusServiceUnavailable, "warming up")
	c := NewClient(ts.URL)

	_, err := c.Session(t.Context())
	require.ErrorContains(t, err, "warming up")
	assert.Equal(t, int32(3), hits.Load())
}
