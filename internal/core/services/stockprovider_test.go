package services_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genshorts/genshorts/internal/core/services"
)

func TestMockProviderSearchReturnsOneClipPerPlaceholder(t *testing.T) {
	provider := services.NewMockProvider([]string{"a.mp4", "b.mp4"})
	clips, err := provider.Search(context.Background(), "coffee", false)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	assert.Equal(t, "mock-coffee-0", clips[0].ID)
	assert.Equal(t, "mock-coffee-1", clips[1].ID)
}

func TestMockProviderSearchEmptyPlaceholdersReturnsNil(t *testing.T) {
	provider := services.NewMockProvider(nil)
	clips, err := provider.Search(context.Background(), "coffee", false)
	require.NoError(t, err)
	assert.Nil(t, clips)
}

func TestMockProviderFetchCopiesPlaceholder(t *testing.T) {
	src := filepath.Join(t.TempDir(), "stub.mp4")
	require.NoError(t, os.WriteFile(src, []byte("stub-bytes"), 0o644))

	provider := services.NewMockProvider([]string{src})
	clips, err := provider.Search(context.Background(), "coffee", false)
	require.NoError(t, err)
	require.Len(t, clips, 1)

	dest := filepath.Join(t.TempDir(), "out.mp4")
	require.NoError(t, provider.Fetch(context.Background(), clips[0], dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "stub-bytes", string(data))
}

func TestPexelsProviderSearchParsesPortraitFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "coffee", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"videos":[{"id":42,"duration":8,"video_files":[
			{"link":"https://example.invalid/landscape.mp4","width":1920,"height":1080},
			{"link":"https://example.invalid/portrait-small.mp4","width":480,"height":854},
			{"link":"https://example.invalid/portrait-large.mp4","width":1080,"height":1920}
		]}]}`)
	}))
	defer srv.Close()

	provider := services.NewPexelsProvider("test-key", srv.URL)
	clips, err := provider.Search(context.Background(), "coffee", false)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, "pexels-42", clips[0].ID)
	assert.Equal(t, "https://example.invalid/portrait-large.mp4", clips[0].DownloadURL)
	assert.Equal(t, 8000, clips[0].DurationMs)
}

func TestPexelsProviderSearchFallbackUsesGenericQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, `{"videos":[]}`)
	}))
	defer srv.Close()

	provider := services.NewPexelsProvider("test-key", srv.URL)
	_, err := provider.Search(context.Background(), "coffee", true)
	require.NoError(t, err)
	assert.NotEqual(t, "coffee", gotQuery)
	assert.Contains(t, []string{"abstract background", "city timelapse", "nature landscape", "close up texture"}, gotQuery)
}

func TestPexelsProviderSearchErrorRedactsAuthorizationHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprintf(w, `{"authorization":"%s"}`, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	provider := services.NewPexelsProvider("super-secret-key", srv.URL)
	_, err := provider.Search(context.Background(), "coffee", false)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret-key")
}
