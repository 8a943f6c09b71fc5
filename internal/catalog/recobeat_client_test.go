package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarTracksChunksSeedsAndDeduplicates(t *testing.T) {
	var requests [][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query()["seed_tracks"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"id":"track-shared","name":"Shared","artists":["A"]}]}`))
	}))
	defer server.Close()

	client := NewRecoBeatClient(server.URL)
	seeds := []string{"s1", "s2", "s3", "s4", "s5"}

	tracks, err := client.SimilarTracks(context.Background(), seeds, nil, 10)
	require.NoError(t, err)

	assert.Len(t, tracks, 1, "duplicate track-shared across chunks should be deduplicated")
	assert.Equal(t, 2, len(requests), "5 seeds chunked by 3 should issue 2 requests")
}

func TestSimilarTracksReturnsNilForEmptySeeds(t *testing.T) {
	client := NewRecoBeatClient("https://example.invalid")
	tracks, err := client.SimilarTracks(context.Background(), nil, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, tracks)
}

func TestSimilarTracksPropagatesErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewRecoBeatClient(server.URL)
	_, err := client.SimilarTracks(context.Background(), []string{"s1"}, nil, 10)
	assert.Error(t, err)
}
