package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"MamaCare/authorization"
	"MamaCare/cache"
	"MamaCare/db"
	"MamaCare/metrics"
	"MamaCare/models"
	"MamaCare/notification"
	"MamaCare/role"
	"MamaCare/session"
	"MamaCare/util"

	"go.uber.org/zap"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Store         db.Store
	Cache         *cache.Cache
	Events        notification.Publisher
	Sender        notification.Sender
	Predictor     RiskPredictor
	Hub           *session.Hub
	Issuer        *authorization.Issuer
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	NurseCapacity int64
}

type Services struct {
	Auth          *AuthService
	Users         *UserService
	Assignments   *AssignmentService
	Reconcile     *ReconcileService
	Notifications *NotificationService
	Appointments  *AppointmentService
	Risk          *RiskService
	Reports       *ReportService
}

func New(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = notification.NopPublisher{}
	}
	if d.Sender == nil {
		d.Sender = notification.NewLogSender(d.Logger)
	}
	if d.Hub == nil {
		d.Hub = session.NewHub(0)
	}
	if d.NurseCapacity <= 0 {
		d.NurseCapacity = util.DefaultNurseCapacity
	}

	proj := &projector{store: d.Store, cache: d.Cache, log: d.Logger}
	notifications := &NotificationService{store: d.Store, sender: d.Sender, metrics: d.Metrics, log: d.Logger.Named("notifications")}
	assignments := &AssignmentService{
		store:    d.Store,
		proj:     proj,
		notifier: notifications,
		events:   d.Events,
		metrics:  d.Metrics,
		log:      d.Logger.Named("assignments"),
		capacity: d.NurseCapacity,
	}
	return &Services{
		Auth:          &AuthService{store: d.Store, proj: proj, issuer: d.Issuer, hub: d.Hub, log: d.Logger.Named("auth")},
		Users:         &UserService{store: d.Store, proj: proj, hub: d.Hub, log: d.Logger.Named("users")},
		Assignments:   assignments,
		Reconcile:     &ReconcileService{store: d.Store, proj: proj, metrics: d.Metrics, log: d.Logger.Named("reconcile")},
		Notifications: notifications,
		Appointments:  &AppointmentService{store: d.Store, notifier: notifications, events: d.Events, log: d.Logger.Named("appointments")},
		Risk:          &RiskService{store: d.Store, predictor: d.Predictor, log: d.Logger.Named("risk")},
		Reports:       &ReportService{assignments: assignments, capacity: d.NurseCapacity},
	}
}

type getter interface {
	Get(ctx context.Context, collection, id string) (db.Document, error)
}

func getUser(ctx context.Context, g getter, id string) (models.User, error) {
	doc, err := g.Get(ctx, util.UserCollection, id)
	if err != nil {
		return models.User{}, err
	}
	var u models.User
	if err := db.Decode(doc, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// getUserWithRole reads a user and reports NotFound with the given code
// when the document is missing or holds another role.
func getUserWithRole(ctx context.Context, g getter, id string, want role.Role, code, message string) (models.User, error) {
	u, err := getUser(ctx, g, id)
	if errors.Is(err, db.ErrNotFound) {
		return models.User{}, util.NotFound(code, message)
	}
	if err != nil {
		return models.User{}, err
	}
	if role.Parse(string(u.Role)) != want {
		return models.User{}, util.NotFound(code, message)
	}
	return u, nil
}

// classify keeps AppErrors and turns anything else coming out of the
// store into BackendUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *util.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return util.Unavailable(err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(util.KindOf(err))
}

// detached keeps request values but not its cancellation, for work that
// runs after a commit.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
