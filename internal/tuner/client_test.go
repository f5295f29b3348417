package tuner

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingURL(t *testing.T) {
	assert.Equal(t, "http://10.0.0.1/channellist.lua?select=json", ListingURL("10.0.0.1"))
	assert.Equal(t, "http://octonet:8080/channellist.lua?select=json", ListingURL("octonet:8080"))
}

func TestClient_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channellist.lua", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("select"))
		w.Write([]byte(`{"GroupList":[]}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Timeout: time.Second})
	address := strings.TrimPrefix(srv.URL, "http://")

	body, err := client.Open(context.Background(), ListingURL(address))
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, `{"GroupList":[]}`, string(data))
}

func TestClient_OpenFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such page", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{Timeout: time.Second})

	t.Run("NotFound", func(t *testing.T) {
		_, err := client.Open(context.Background(), srv.URL+"/missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("Unreachable", func(t *testing.T) {
		_, err := client.Open(context.Background(), "http://127.0.0.1:1/channellist.lua")
		assert.Error(t, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.Open(ctx, srv.URL)
		assert.Error(t, err)
	})
}
