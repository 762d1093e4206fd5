package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SweepReasonDeadlineExceeded = "deadline_exceeded"
	SweepReasonDBLockTimeout    = "db_lock_timeout"
	SweepReasonUniqueViolation  = "unique_violation"
	SweepReasonLockHeld         = "lock_held"
	SweepReasonUnknown          = "unknown"
)

// Activity holds society activity counters on a dedicated registry so they can be pushed
// to a remote-write endpoint independently of the process metrics.
type Activity struct {
	registry *prometheus.Registry

	emails        *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	reminders     *prometheus.CounterVec
	sweepRuns     prometheus.Counter
	sweepDuration prometheus.Histogram
	sweepErrors   *prometheus.CounterVec
	sweepSkipped  *prometheus.CounterVec
}

func NewActivity(cfg Config) *Activity {
	registry := prometheus.NewRegistry()
	constLabels := constLabelsFor(cfg)

	a := &Activity{
		registry: registry,
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "humesociety_emails_total",
			Help:        "Templated emails by label and outcome.",
			ConstLabels: constLabels,
		}, []string{"label", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "humesociety_invitation_transitions_total",
			Help:        "Invitation status transitions by kind and target status.",
			ConstLabels: constLabels,
		}, []string{"kind", "to"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "humesociety_invitation_reminders_total",
			Help:        "Reminder emails sent by invitation kind and reminder type.",
			ConstLabels: constLabels,
		}, []string{"kind", "reminder"}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "humesociety_reminder_sweep_runs_total",
			Help:        "Reminder sweep runs.",
			ConstLabels: constLabels,
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "humesociety_reminder_sweep_duration_seconds",
			Help:        "Reminder sweep latency.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: constLabels,
		}),
		sweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "humesociety_reminder_sweep_errors_total",
			Help:        "Reminder sweep errors by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		sweepSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "humesociety_reminder_sweep_skipped_total",
			Help:        "Reminder sweep runs skipped, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
	}

	registry.MustRegister(
		a.emails,
		a.transitions,
		a.reminders,
		a.sweepRuns,
		a.sweepDuration,
		a.sweepErrors,
		a.sweepSkipped,
	)
	return a
}

// Registry exposes the activity registry for /metrics and the pusher.
func (a *Activity) Registry() *prometheus.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *Activity) IncEmail(label, outcome string) {
	if a == nil {
		return
	}
	a.emails.WithLabelValues(label, outcome).Inc()
}

func (a *Activity) IncTransition(kind, to string) {
	if a == nil {
		return
	}
	a.transitions.WithLabelValues(kind, to).Inc()
}

func (a *Activity) IncReminder(kind, reminder string) {
	if a == nil {
		return
	}
	a.reminders.WithLabelValues(kind, reminder).Inc()
}

func (a *Activity) ObserveSweep(d time.Duration, err error) {
	if a == nil {
		return
	}
	a.sweepRuns.Inc()
	a.sweepDuration.Observe(d.Seconds())
	if err != nil {
		a.sweepErrors.WithLabelValues(ClassifySweepError(err)).Inc()
	}
}

func (a *Activity) IncSweepSkipped(reason string) {
	if a == nil {
		return
	}
	a.sweepSkipped.WithLabelValues(reason).Inc()
}

// ClassifySweepError maps an error to a bounded reason label.
func ClassifySweepError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SweepReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return SweepReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return SweepReasonDBLockTimeout
		case "23505":
			return SweepReasonUniqueViolation
		}
	}
	return SweepReasonUnknown
}
