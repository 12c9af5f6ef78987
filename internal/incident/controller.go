package incident

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"pingguard/internal/api"
	"pingguard/internal/console"
	"pingguard/internal/geo"
	"pingguard/internal/models"
	"pingguard/pkg/errors"
	"pingguard/pkg/metrics"
)

// Placeholder description filed with every SOS report. The audio reference is
// attached later by the recording pipeline, never by this client.
const sosDescription = "Emergency rescue request - awaiting AI voice analysis"

// ErrBusy is returned when an SOS submission is already in flight. The
// trigger stays disabled for the duration of the call; this is mutual
// exclusion, not a queue.
var ErrBusy = errors.New("an SOS submission is already in progress")

// Controller drives the SOS lifecycle: submission, status changes, detail
// retrieval and the history snapshot. All mutations are write-then-refresh;
// nothing is updated optimistically.
type Controller struct {
	api     *api.Client
	geo     *geo.Service
	dialog  console.Dialog
	policy  TransitionPolicy
	metrics *metrics.Metrics
	log     *zap.Logger

	inFlight atomic.Bool
}

func NewController(client *api.Client, geoSvc *geo.Service, dialog console.Dialog, policy TransitionPolicy, m *metrics.Metrics, log *zap.Logger) *Controller {
	if policy == nil {
		policy = AnyTransition{}
	}
	return &Controller{api: client, geo: geoSvc, dialog: dialog, policy: policy, metrics: m, log: log}
}

type createReportRequest struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
	AudioURL    *string `json:"audioUrl"`
}

// SubmitSOS runs the full sequence: confirm, resolve a fresh position, create
// the report, then reload the recent view from the server. The creation
// endpoint is never called without a position fix. A declined confirmation
// returns (nil, nil).
func (c *Controller) SubmitSOS(ctx context.Context) (*HistoryView, error) {
	if !c.dialog.Confirm("Send an emergency rescue request? Your registered contacts will be notified with your current location.") {
		return nil, nil
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.inFlight.Store(false)

	pos, err := c.geo.CurrentPosition(ctx)
	if err != nil {
		c.observeSOS(metrics.OutcomeError)
		return nil, err
	}

	req := createReportRequest{
		Latitude:    pos.Latitude,
		Longitude:   pos.Longitude,
		Description: sosDescription,
		AudioURL:    nil,
	}
	var created models.EmergencyReport
	if err := c.api.Post(ctx, "/emergency-reports", req, &created); err != nil {
		c.observeSOS(metrics.OutcomeError)
		return nil, err
	}

	c.log.Info("sos report created",
		zap.Int64("id", created.ID),
		zap.String("position", pos.String()))
	c.observeSOS(metrics.OutcomeOK)

	// Reload from the server so id, createdAt and status are authoritative.
	return c.LoadHistory(ctx)
}

// ChangeStatus updates one report's status after a policy check and explicit
// confirmation, then reloads the history. Declining the confirmation issues
// no call and returns (nil, nil).
func (c *Controller) ChangeStatus(ctx context.Context, id int64, to models.Status) (*HistoryView, error) {
	report, err := c.Report(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.policy.Allowed(report.Status, to); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Change report %d from %s to %s?", id, report.Status.Label(), to.Label())
	if !c.dialog.Confirm(prompt) {
		return nil, nil
	}

	path := fmt.Sprintf("/emergency-reports/%d/status", id)
	if err := c.api.Put(ctx, path, map[string]models.Status{"status": to}, nil); err != nil {
		return nil, err
	}

	c.log.Info("report status changed",
		zap.Int64("id", id),
		zap.String("from", string(report.Status)),
		zap.String("to", string(to)))

	return c.LoadHistory(ctx)
}

// Report fetches one report. A missing id or failed fetch is a hard error;
// the detail view has no degraded state.
func (c *Controller) Report(ctx context.Context, id int64) (*models.EmergencyReport, error) {
	if id <= 0 {
		return nil, errors.Validation("report id is required")
	}
	var report models.EmergencyReport
	if err := c.api.Get(ctx, fmt.Sprintf("/emergency-reports/%d", id), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// LoadHistory fetches the full report set once and returns it as a snapshot
// for in-memory filtering.
func (c *Controller) LoadHistory(ctx context.Context) (*HistoryView, error) {
	reports := []models.EmergencyReport{}
	if err := c.api.Get(ctx, "/emergency-reports/my", &reports); err != nil {
		return nil, err
	}
	return NewHistoryView(reports), nil
}

// LoadRecent fetches the history and truncates to the newest limit entries.
func (c *Controller) LoadRecent(ctx context.Context, limit int) ([]models.EmergencyReport, int, error) {
	view, err := c.LoadHistory(ctx)
	if err != nil {
		return nil, 0, err
	}
	recent, total := view.Recent(limit)
	return recent, total, nil
}

func (c *Controller) observeSOS(outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveSOS(outcome)
	}
}
