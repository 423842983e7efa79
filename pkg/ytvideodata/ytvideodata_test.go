package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVideoID(t *testing.T) {
	cases := map[string]string{
		"dQw4w9WgXcQ":                                  "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":  "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                 "dQw4w9WgXcQ",
		"https://youtube.com/shorts/dQw4w9WgXcQ":       "dQw4w9WgXcQ",
		"https://music.youtube.com/watch?v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
	}
	for in, want := range cases {
		got, ok := ParseVideoID(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "short", "https://example.com/watch?v=dQw4w9WgXcQ", "https://youtu.be/"} {
		_, ok := ParseVideoID(in)
		assert.False(t, ok, in)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := New(srv.Client())
	c.oembedURL = srv.URL + "/oembed"
	c.pageURL = srv.URL + "/page/"
	return c
}

func TestGetWithEmbed(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oembed", r.URL.Path)
		w.Write([]byte(`{"title":"Song","author_name":"Band","thumbnail_url":"https://img/1.jpg"}`))
	}))

	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, &VideoData{Title: "Song", AuthorName: "Band", ThumbnailUrl: "https://img/1.jpg"}, data)
}

func TestGetFallsBackToPage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oembed" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.True(t, strings.HasPrefix(r.URL.Path, "/page/"))
		w.Write([]byte(`<html><head><title>Hidden Song - YouTube</title></head>
			<body><span><link itemprop="name" content="Hidden Band"></span></body></html>`))
	}))

	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Hidden Song", data.Title)
	assert.Equal(t, "Hidden Band", data.AuthorName)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", data.ThumbnailUrl)
}

func TestGetNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	_, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestScanPageUsesOpenGraphImage(t *testing.T) {
	data := scanPage(strings.NewReader(`<!doctype html><html><head>
		<title>
			Live Set - YouTube
		</title>
		<meta property="og:image" content="https://i.ytimg.com/vi/x/maxres.jpg"/>
		</head><body></body></html>`))

	assert.Equal(t, "Live Set", data.Title)
	assert.Equal(t, "https://i.ytimg.com/vi/x/maxres.jpg", data.ThumbnailUrl)
	assert.Empty(t, data.AuthorName)
}
