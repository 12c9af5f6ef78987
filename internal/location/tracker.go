package location

import (
	"context"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"pingguard/internal/api"
	"pingguard/internal/geo"
	"pingguard/internal/models"
	"pingguard/pkg/metrics"
)

const lastFixKey = "last_fix"

// Tracker records the device position with the service and serves the
// location history. Periodic capture runs on its own schedule and only ever
// appends locations, so it needs no coordination with the incident or
// contact flows.
type Tracker struct {
	api     *api.Client
	geo     *geo.Service
	metrics *metrics.Metrics
	log     *zap.Logger

	// last holds the most recent successful fix for the dashboard summary,
	// expiring after one capture interval.
	last *gocache.Cache
}

func NewTracker(client *api.Client, geoSvc *geo.Service, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *Tracker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Tracker{
		api:     client,
		geo:     geoSvc,
		metrics: m,
		log:     log,
		last:    gocache.New(interval, 2*interval),
	}
}

// CaptureOnce resolves a fresh fix and records it with the service. A failed
// fix records nothing.
func (t *Tracker) CaptureOnce(ctx context.Context) (geo.Position, error) {
	pos, err := t.geo.CurrentPosition(ctx)
	if err != nil {
		t.observe(metrics.OutcomeError)
		return geo.Position{}, err
	}

	err = t.api.Post(ctx, "/locations", map[string]float64{
		"latitude":  pos.Latitude,
		"longitude": pos.Longitude,
	}, nil)
	if err != nil {
		t.observe(metrics.OutcomeError)
		return geo.Position{}, err
	}

	t.last.SetDefault(lastFixKey, pos)
	t.observe(metrics.OutcomeOK)
	t.log.Info("location recorded", zap.String("position", pos.String()))
	return pos, nil
}

// Run is the periodic capture job. Failures are logged and dropped; the next
// tick tries again.
func (t *Tracker) Run(ctx context.Context) {
	if _, err := t.CaptureOnce(ctx); err != nil {
		t.log.Warn("periodic location capture failed", zap.Error(err))
	}
}

// LastFix returns the most recent recorded position, if it is still fresh.
func (t *Tracker) LastFix() (geo.Position, bool) {
	v, ok := t.last.Get(lastFixKey)
	if !ok {
		return geo.Position{}, false
	}
	return v.(geo.Position), true
}

// History fetches the recorded locations, newest first.
func (t *Tracker) History(ctx context.Context) ([]models.Location, error) {
	locations := []models.Location{}
	if err := t.api.Get(ctx, "/locations/my", &locations); err != nil {
		return nil, err
	}
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].Timestamp.After(locations[j].Timestamp)
	})
	return locations, nil
}

func (t *Tracker) observe(outcome string) {
	if t.metrics != nil {
		t.metrics.ObserveCapture(outcome)
	}
}
