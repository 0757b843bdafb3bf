package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	c := New("demo", "key", "secret")
	c.APIBase = srv.URL
	c.HTTP = srv.Client()
	return c
}

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret")
	got := c.sign(map[string]string{"timestamp": "100", "folder": "MES-AA/Profile", "api_key": "key"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=MES-AA/Profile&timestamp=100secret")))
	assert.Equal(t, want, got)
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "MES-AA/Profile/abc", r.FormValue("folder"))
		assert.Equal(t, "photo1", r.FormValue("public_id"))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.NotEmpty(t, r.FormValue("signature"))
		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "me.jpg", hdr.Filename)
		_, _ = w.Write([]byte(`{"public_id":"MES-AA/Profile/abc/photo1","secure_url":"https://res.example/abc.jpg","width":300,"height":300}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).Upload(context.Background(), []byte("jpeg"), "me.jpg", UploadOptions{Folder: "MES-AA/Profile/abc", PublicID: "photo1"})
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/abc.jpg", res.SecureURL)
	assert.Equal(t, 300, res.Width)
}

func TestUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Upload(context.Background(), []byte("x"), "x.png", UploadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCreateFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/demo/folders/MES-AA/Events/Annual-Meet-2026", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv).CreateFolder(context.Background(), "MES-AA/Events/Annual-Meet-2026"))
}

func TestListFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/resources/image/upload", r.URL.Path)
		assert.Equal(t, "MES-AA/Gallery/", r.URL.Query().Get("prefix"))
		assert.Equal(t, "100", r.URL.Query().Get("max_results"))
		_, _ = w.Write([]byte(`{"resources":[{"asset_id":"a1","public_id":"MES-AA/Gallery/one","secure_url":"https://res.example/one.jpg","width":800,"height":600}]}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).ListFolder(context.Background(), "MES-AA/Gallery", 100)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a1", res[0].AssetID)
	assert.Equal(t, 800, res[0].Width)
}

func TestListFolderEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv).ListFolder(context.Background(), "MES-AA/Events/None", 100)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}
