package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySweepError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SweepReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SweepReasonDBLockTimeout},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SweepReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SweepReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySweepError(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestActivityCounters(t *testing.T) {
	a := NewActivity(Config{ServiceName: "humesociety", Environment: "test"})

	a.IncEmail("review-invitation", "sent")
	a.IncEmail("review-invitation", "sent")
	a.IncEmail("review-invitation", "failed")
	a.ObserveSweep(time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(a.emails.WithLabelValues("review-invitation", "sent")); got != 2 {
		t.Fatalf("expected 2 sent, got %v", got)
	}
	if got := testutil.ToFloat64(a.sweepErrors.WithLabelValues(SweepReasonUnknown)); got != 1 {
		t.Fatalf("expected 1 sweep error, got %v", got)
	}

	families, err := a.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var emailFamily *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "humesociety_emails_total" {
			emailFamily = family
		}
	}
	if emailFamily == nil || len(emailFamily.GetMetric()) != 2 {
		t.Fatalf("expected two email series, got %+v", emailFamily)
	}
}
