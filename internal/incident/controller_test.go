package incident

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pingguard/internal/api"
	"pingguard/internal/geo"
	"pingguard/internal/models"
	"pingguard/internal/session"
	"pingguard/pkg/errors"
	"pingguard/pkg/logger"
)

type stubDialog struct {
	answer bool
	asked  int
}

func (d *stubDialog) Confirm(string) bool {
	d.asked++
	return d.answer
}

type brokenSource struct{}

func (brokenSource) RequestPosition(_ geo.Options, _ func(geo.Position), failure func(error)) {
	go failure(fmt.Errorf("gps error"))
}

// recordingServer serves the report endpoints and remembers which were hit.
type recordingServer struct {
	mu      sync.Mutex
	hits    []string
	reports []models.EmergencyReport
}

func (s *recordingServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits = append(s.hits, r.Method+" "+r.URL.Path)
		s.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/emergency-reports":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(models.EmergencyReport{ID: 99, Status: models.StatusPending})
		case r.Method == http.MethodGet && r.URL.Path == "/emergency-reports/my":
			json.NewEncoder(w).Encode(s.reports)
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/status"):
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/emergency-reports/"):
			json.NewEncoder(w).Encode(s.reports[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (s *recordingServer) hitCount(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		if strings.HasPrefix(h, prefix) {
			n++
		}
	}
	return n
}

func newTestController(t *testing.T, srv *recordingServer, dialog *stubDialog, src geo.Source, policy TransitionPolicy) *Controller {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	client := api.NewClient(ts.URL, session.NewStore(""), 5*time.Second, logger.Nop())
	geoSvc := geo.NewService(src, geo.Options{Timeout: time.Second}, logger.Nop())
	return NewController(client, geoSvc, dialog, policy, nil, logger.Nop())
}

func TestSubmitSOSCreatesAndRefreshes(t *testing.T) {
	srv := &recordingServer{reports: []models.EmergencyReport{{ID: 99, Status: models.StatusPending, CreatedAt: time.Now()}}}
	dialog := &stubDialog{answer: true}
	src := geo.FixedSource{Lat: 37.5665, Lng: 126.978, Set: true}

	ctrl := newTestController(t, srv, dialog, src, nil)
	view, err := ctrl.SubmitSOS(context.Background())
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, 1, view.Len())
	assert.Equal(t, 1, srv.hitCount("POST /emergency-reports"))
	assert.Equal(t, 1, srv.hitCount("GET /emergency-reports/my"), "success refreshes from the server")
}

func TestSubmitSOSDeclinedMakesNoCall(t *testing.T) {
	srv := &recordingServer{}
	dialog := &stubDialog{answer: false}
	src := geo.FixedSource{Lat: 1, Lng: 1, Set: true}

	ctrl := newTestController(t, srv, dialog, src, nil)
	view, err := ctrl.SubmitSOS(context.Background())
	require.NoError(t, err)
	assert.Nil(t, view)
	assert.Equal(t, 0, srv.hitCount("POST"))
}

func TestSubmitSOSWithoutFixNeverCallsEndpoint(t *testing.T) {
	srv := &recordingServer{}
	dialog := &stubDialog{answer: true}

	ctrl := newTestController(t, srv, dialog, brokenSource{}, nil)
	_, err := ctrl.SubmitSOS(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.KindLocation, errors.KindOf(err))
	assert.Equal(t, 0, srv.hitCount("POST"))

	// The guard is released: a second attempt reaches geolocation again
	// instead of reporting a submission in progress.
	_, err = ctrl.SubmitSOS(context.Background())
	assert.Equal(t, errors.KindLocation, errors.KindOf(err))
}

func TestSubmitSOSGuardRejectsConcurrentTrigger(t *testing.T) {
	srv := &recordingServer{}
	dialog := &stubDialog{answer: true}
	ctrl := newTestController(t, srv, dialog, geo.FixedSource{Lat: 1, Lng: 1, Set: true}, nil)

	ctrl.inFlight.Store(true)
	_, err := ctrl.SubmitSOS(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
}

func TestChangeStatusDeclinedMakesNoUpdateCall(t *testing.T) {
	srv := &recordingServer{reports: []models.EmergencyReport{{ID: 5, Status: models.StatusPending}}}
	dialog := &stubDialog{answer: false}

	ctrl := newTestController(t, srv, dialog, nil, nil)
	view, err := ctrl.ChangeStatus(context.Background(), 5, models.StatusResolved)
	require.NoError(t, err)
	assert.Nil(t, view)
	assert.Equal(t, 1, dialog.asked)
	assert.Equal(t, 0, srv.hitCount("PUT"))
}

func TestChangeStatusWritesThenRefreshes(t *testing.T) {
	srv := &recordingServer{reports: []models.EmergencyReport{{ID: 5, Status: models.StatusPending}}}
	dialog := &stubDialog{answer: true}

	ctrl := newTestController(t, srv, dialog, nil, nil)
	view, err := ctrl.ChangeStatus(context.Background(), 5, models.StatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, 1, srv.hitCount("PUT /emergency-reports/5/status"))
	assert.Equal(t, 1, srv.hitCount("GET /emergency-reports/my"))
}

func TestChangeStatusRejectsUnknownValue(t *testing.T) {
	srv := &recordingServer{reports: []models.EmergencyReport{{ID: 5, Status: models.StatusPending}}}
	ctrl := newTestController(t, srv, &stubDialog{answer: true}, nil, nil)

	_, err := ctrl.ChangeStatus(context.Background(), 5, "DONE")
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
	assert.Equal(t, 0, srv.hitCount("PUT"))
}

func TestReportRequiresID(t *testing.T) {
	ctrl := newTestController(t, &recordingServer{}, &stubDialog{}, nil, nil)

	_, err := ctrl.Report(context.Background(), 0)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestSequentialPolicy(t *testing.T) {
	p := SequentialTransition{}

	assert.NoError(t, p.Allowed(models.StatusPending, models.StatusInProgress))
	assert.NoError(t, p.Allowed(models.StatusInProgress, models.StatusResolved))
	assert.NoError(t, p.Allowed(models.StatusPending, models.StatusCancelled))
	assert.NoError(t, p.Allowed(models.StatusCancelled, models.StatusPending))
	assert.Error(t, p.Allowed(models.StatusPending, models.StatusResolved))
	assert.Error(t, p.Allowed(models.StatusResolved, models.StatusPending))
}

func TestAnyPolicy(t *testing.T) {
	p := AnyTransition{}

	assert.NoError(t, p.Allowed(models.StatusPending, models.StatusResolved))
	assert.NoError(t, p.Allowed(models.StatusCancelled, models.StatusInProgress))
	assert.Error(t, p.Allowed(models.StatusPending, "DONE"))
}
