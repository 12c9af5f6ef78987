package location

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingguard/internal/api"
	"pingguard/internal/geo"
	"pingguard/internal/models"
	"pingguard/internal/session"
	"pingguard/pkg/logger"
)

func newTestTracker(t *testing.T, src geo.Source, handler http.Handler) (*Tracker, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL, session.NewStore(""), 5*time.Second, logger.Nop())
	geoSvc := geo.NewService(src, geo.Options{Timeout: time.Second}, logger.Nop())
	return NewTracker(client, geoSvc, 5*time.Minute, nil, logger.Nop()), &calls
}

func TestCaptureOncePostsRoundedFix(t *testing.T) {
	var body map[string]float64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
	})
	src := geo.FixedSource{Lat: 37.56678901, Lng: 126.97812345, Set: true}

	tracker, _ := newTestTracker(t, src, handler)
	pos, err := tracker.CaptureOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 37.566789, body["latitude"])
	assert.Equal(t, 126.978123, body["longitude"])

	last, ok := tracker.LastFix()
	assert.True(t, ok)
	assert.Equal(t, pos, last)
}

func TestFailedFixRecordsNothing(t *testing.T) {
	tracker, calls := newTestTracker(t, nil, http.NotFoundHandler())

	_, err := tracker.CaptureOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(0), calls.Load())

	_, ok := tracker.LastFix()
	assert.False(t, ok)
}

func TestHistorySortedNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.Location{
			{Latitude: 1, Longitude: 1, Timestamp: base},
			{Latitude: 3, Longitude: 3, Timestamp: base.Add(2 * time.Hour)},
			{Latitude: 2, Longitude: 2, Timestamp: base.Add(1 * time.Hour)},
		})
	})

	tracker, _ := newTestTracker(t, nil, handler)
	locations, err := tracker.History(context.Background())
	require.NoError(t, err)
	require.Len(t, locations, 3)
	assert.Equal(t, 3.0, locations[0].Latitude)
	assert.Equal(t, 2.0, locations[1].Latitude)
	assert.Equal(t, 1.0, locations[2].Latitude)
}
