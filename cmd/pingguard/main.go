package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"pingguard/internal/api"
	"pingguard/internal/auth"
	"pingguard/internal/console"
	"pingguard/internal/contact"
	"pingguard/internal/geo"
	"pingguard/internal/incident"
	"pingguard/internal/location"
	"pingguard/internal/models"
	"pingguard/internal/session"
	"pingguard/pkg/config"
	"pingguard/pkg/errors"
	"pingguard/pkg/logger"
	"pingguard/pkg/metrics"
	"pingguard/pkg/scheduler"
)

const usage = `pingguard - emergency alert client

Commands:
  login <username>                 authenticate and store the session
  signup <username> <name> <phone> register a new account
  logout                           clear the stored session
  me                               show the current account
  sos                              send an emergency rescue request
  recent                           show the 3 most recent reports
  history [STATUS]                 show reports, optionally filtered
  report <id>                      show one report in detail
  status <id> <STATUS>             change a report's status
  contacts list                    list emergency contacts
  contacts add <name> <phone> <relationship>
  contacts rm <id>                 delete a contact
  locations                        show the recorded location history
  capture                          record the current position once
  track                            record the position on a schedule
  stats                            show client call counters
`

type app struct {
	cfg       *config.Config
	log       *zap.Logger
	term      *console.Terminal
	session   *session.Store
	metrics   *metrics.Metrics
	auth      *auth.Service
	contacts  *contact.Registry
	incidents *incident.Controller
	tracker   *location.Tracker
}

func newApp() *app {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	term := console.NewTerminal(os.Stdin, os.Stdout)
	store := session.NewStore(cfg.SessionFile)
	m := metrics.New()

	client := api.NewClient(cfg.APIBaseURL, store, cfg.RequestTimeout, log,
		api.WithMetrics(m),
		api.WithExpiryHook(func() {
			term.Error("Your session has expired. Please log in again.")
		}),
	)

	var src geo.Source
	if cfg.GeoConfigured {
		src = geo.FixedSource{Lat: cfg.GeoLatitude, Lng: cfg.GeoLongitude, Set: true}
	}
	geoSvc := geo.NewService(src, geo.Options{
		HighAccuracy: true,
		Timeout:      cfg.GeoTimeout,
		MaximumAge:   0,
	}, log)

	policy := incident.PolicyByName(cfg.StatusPolicy)

	return &app{
		cfg:       cfg,
		log:       log,
		term:      term,
		session:   store,
		metrics:   m,
		auth:      auth.NewService(client, store, log),
		contacts:  contact.NewRegistry(client, term, log),
		incidents: incident.NewController(client, geoSvc, term, policy, m, log),
		tracker:   location.NewTracker(client, geoSvc, 0, m, log),
	}
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(1)
	}

	a := newApp()
	defer a.log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx, args); err != nil {
		if errors.KindOf(err) != errors.KindSessionExpired {
			a.term.Error(errors.GetMessage(err))
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	switch args[0] {
	case "login":
		return a.cmdLogin(ctx, args[1:])
	case "signup":
		return a.cmdSignup(ctx, args[1:])
	case "logout":
		return a.cmdLogout()
	case "me":
		return a.cmdMe(ctx)
	case "sos":
		return a.cmdSOS(ctx)
	case "recent":
		return a.cmdRecent(ctx)
	case "history":
		return a.cmdHistory(ctx, args[1:])
	case "report":
		return a.cmdReport(ctx, args[1:])
	case "status":
		return a.cmdStatus(ctx, args[1:])
	case "contacts":
		return a.cmdContacts(ctx, args[1:])
	case "locations":
		return a.cmdLocations(ctx)
	case "capture":
		return a.cmdCapture(ctx)
	case "track":
		return a.cmdTrack(ctx)
	case "stats":
		return a.cmdStats()
	default:
		fmt.Print(usage)
		return errors.Errorf("unknown command %q", args[0])
	}
}

func (a *app) readSecret(prompt string) string {
	fmt.Print(prompt)
	var value string
	fmt.Scanln(&value)
	return value
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: login <username>")
	}
	password := a.readSecret("Password: ")
	if err := a.auth.Login(ctx, args[0], password); err != nil {
		return err
	}
	a.term.Success("Logged in.")
	return nil
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: signup <username> <name> <phone>")
	}
	password := a.readSecret("Password: ")
	confirm := a.readSecret("Confirm password: ")
	err := a.auth.Signup(ctx, auth.SignupInput{
		Username:        args[0],
		Password:        password,
		ConfirmPassword: confirm,
		Name:            args[1],
		Phone:           args[2],
	})
	if err != nil {
		return err
	}
	a.term.Success("Account created. You can now log in.")
	return nil
}

func (a *app) cmdLogout() error {
	if !a.term.Confirm("Log out?") {
		return nil
	}
	if err := a.auth.Logout(); err != nil {
		return err
	}
	a.term.Success("Logged out.")
	return nil
}

func (a *app) cmdMe(ctx context.Context) error {
	user, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	a.term.Notice(fmt.Sprintf("%s (%s) %s", user.Name, user.Username, user.Phone))
	return nil
}

func (a *app) cmdSOS(ctx context.Context) error {
	view, err := a.incidents.SubmitSOS(ctx)
	if err != nil {
		return err
	}
	if view == nil {
		return nil
	}
	a.term.Success("Emergency rescue request sent. Your contacts have been notified.")
	a.printRecent(view)
	return nil
}

func (a *app) cmdRecent(ctx context.Context) error {
	view, err := a.incidents.LoadHistory(ctx)
	if err != nil {
		return err
	}
	a.printRecent(view)
	return nil
}

func (a *app) printRecent(view *incident.HistoryView) {
	recent, total := view.Recent(3)
	if total == 0 {
		a.term.Notice("No reports yet.")
		return
	}
	for _, r := range recent {
		a.printReportLine(r, 4)
	}
	if total > len(recent) {
		a.term.Notice(fmt.Sprintf("... and %d more. Run 'pingguard history' for the full list.", total-len(recent)))
	}
}

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	filter := models.StatusAll
	if len(args) == 1 {
		filter = models.Status(args[0])
		if filter != models.StatusAll && !filter.Valid() {
			return errors.Validationf("unknown status %q", args[0])
		}
	}
	view, err := a.incidents.LoadHistory(ctx)
	if err != nil {
		return err
	}
	reports := view.Filter(filter)
	if len(reports) == 0 {
		a.term.Notice("No matching reports.")
		return nil
	}
	for _, r := range reports {
		a.printReportLine(r, 6)
	}
	return nil
}

func (a *app) printReportLine(r models.EmergencyReport, precision int) {
	pos := geo.Position{Latitude: r.Latitude, Longitude: r.Longitude}
	coords := pos.String()
	if precision == 4 {
		coords = pos.Compact()
	}
	a.term.Notice(fmt.Sprintf("#%d  %s  [%s]  %s",
		r.ID, r.CreatedAt.Format("2006.01.02 15:04"), r.Status.Label(), coords))
}

func (a *app) cmdReport(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: report <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.Validation("report id must be a number")
	}
	report, err := a.incidents.Report(ctx, id)
	if err != nil {
		return err
	}
	pos := geo.Position{Latitude: report.Latitude, Longitude: report.Longitude}
	a.term.Notice(fmt.Sprintf("Report #%d  [%s]", report.ID, report.Status.Label()))
	a.term.Notice("Created: " + report.CreatedAt.Format("2006.01.02 15:04"))
	a.term.Notice("Position: " + pos.String())
	a.term.Notice("Map: " + geo.MapEmbedURL(pos))
	if report.Description != "" {
		a.term.Notice("Description: " + report.Description)
	}
	if report.AudioURL != "" {
		a.term.Notice("Audio: " + report.AudioURL)
	}
	if report.AIAnalysis != "" {
		a.term.Notice("AI analysis: " + report.AIAnalysis)
	}
	return nil
}

func (a *app) cmdStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: status <id> <PENDING|IN_PROGRESS|RESOLVED|CANCELLED>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.Validation("report id must be a number")
	}
	view, err := a.incidents.ChangeStatus(ctx, id, models.Status(args[1]))
	if err != nil {
		return err
	}
	if view == nil {
		return nil
	}
	a.term.Success("Status updated.")
	return nil
}

func (a *app) cmdContacts(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		contacts, err := a.contacts.List(ctx)
		if err != nil {
			return err
		}
		a.printContacts(contacts)
		return nil
	case "add":
		if len(args) != 4 {
			return errors.New("usage: contacts add <name> <phone> <relationship>")
		}
		contacts, err := a.contacts.Add(ctx, args[1], args[2], args[3])
		if err != nil {
			return err
		}
		a.term.Success("Contact added.")
		a.printContacts(contacts)
		return nil
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: contacts rm <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Validation("contact id must be a number")
		}
		contacts, err := a.contacts.Remove(ctx, id)
		if err != nil {
			return err
		}
		if contacts == nil {
			return nil
		}
		a.term.Success("Contact deleted.")
		a.printContacts(contacts)
		return nil
	default:
		return errors.Errorf("unknown contacts command %q", args[0])
	}
}

func (a *app) printContacts(contacts []models.EmergencyContact) {
	if len(contacts) == 0 {
		a.term.Notice("No emergency contacts registered.")
		return
	}
	for _, c := range contacts {
		a.term.Notice(fmt.Sprintf("#%d  %s  %s  (%s)", c.ID, c.Name, c.PhoneNumber, c.Relationship))
	}
}

func (a *app) cmdLocations(ctx context.Context) error {
	locations, err := a.tracker.History(ctx)
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		a.term.Notice("No locations recorded.")
		return nil
	}
	for _, l := range locations {
		pos := geo.Position{Latitude: l.Latitude, Longitude: l.Longitude}
		a.term.Notice(fmt.Sprintf("%s  %s", l.Timestamp.Format("2006.01.02 15:04"), pos.String()))
	}
	latest := geo.Position{Latitude: locations[0].Latitude, Longitude: locations[0].Longitude}
	a.term.Notice("Map: " + geo.MapEmbedURL(latest))
	return nil
}

func (a *app) cmdCapture(ctx context.Context) error {
	pos, err := a.tracker.CaptureOnce(ctx)
	if err != nil {
		return err
	}
	a.term.Success("Position recorded: " + pos.String())
	return nil
}

// cmdTrack runs the periodic capture loop until interrupted. One capture runs
// immediately; the rest follow the configured schedule.
func (a *app) cmdTrack(ctx context.Context) error {
	a.tracker.Run(ctx)

	cr := scheduler.NewCron(nil)
	if _, err := cr.Add(a.cfg.CaptureSchedule, scheduler.FuncJob(a.tracker.Run)); err != nil {
		return errors.Wrapf(err, "invalid capture schedule %q", a.cfg.CaptureSchedule)
	}
	cr.Start()
	defer cr.Stop()

	a.term.Notice(fmt.Sprintf("Tracking position (%s). Press Ctrl-C to stop.", a.cfg.CaptureSchedule))
	<-ctx.Done()
	return nil
}

func (a *app) cmdStats() error {
	snapshot, err := a.metrics.Snapshot()
	if err != nil {
		return err
	}
	if len(snapshot) == 0 {
		a.term.Notice("No activity recorded in this run.")
		return nil
	}
	for name, value := range snapshot {
		a.term.Notice(fmt.Sprintf("%s = %.0f", name, value))
	}
	return nil
}
