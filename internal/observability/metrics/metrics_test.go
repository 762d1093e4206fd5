package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("kind", "review"),
		attribute.String("secret", "abc123"),
		attribute.String("outcome", "sent"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "secret" {
			t.Fatalf("expected secret to be dropped")
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordInvitationTransition(context.Background(), "review", "pending", "accepted")
	m.RecordEmailSend(context.Background(), "review-invitation", "sent")
	m.RecordRateLimitDenied(context.Background(), "/invitation")
	m.RecordBallotCast(context.Background())
}
