package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/config"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	"github.com/humesociety/humesociety-sub000/internal/email/repository"
	"github.com/humesociety/humesociety-sub000/internal/observability/metrics"
	emailprovider "github.com/humesociety/humesociety-sub000/internal/providers/email"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUsers struct {
	authdomain.Service
	users  []authdomain.User
	filter authdomain.UserFilter
}

func (f *fakeUsers) ListUsers(_ context.Context, filter authdomain.UserFilter) ([]authdomain.User, error) {
	f.filter = filter
	return f.users, nil
}

type testEnv struct {
	svc      emaildomain.Service
	provider *emailprovider.RecordingProvider
	users    *fakeUsers
	activity *metrics.Activity
}

func newTestService(t *testing.T, organisers ...string) testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&emaildomain.Template{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	society := config.DefaultSocietyConfig()
	society.Organisers = organisers

	env := testEnv{
		provider: emailprovider.NewRecordingProvider(),
		users:    &fakeUsers{},
		activity: metrics.NewActivity(metrics.Config{ServiceName: "humesociety"}),
	}
	env.svc = New(Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.New(dbConn),
		Provider: env.provider,
		Users:    env.users,
		Config:   config.Config{SiteURL: "https://humesociety.test", Email: config.EmailConfig{SMTPFrom: "web@humesociety.test"}},
		Society:  config.NewStaticSocietyConfigHolder(society),
		Clock:    clock.SystemClock{},
		Activity: env.activity,
	})
	return env
}

func saveTemplate(t *testing.T, svc emaildomain.Service, label, subject, body string) {
	t.Helper()
	_, err := svc.SaveTemplate(context.Background(), emaildomain.SaveTemplateRequest{
		Label:   label,
		Subject: subject,
		Body:    body,
	})
	require.NoError(t, err)
}

func TestSendRendersTemplate(t *testing.T) {
	env := newTestService(t)
	saveTemplate(t, env.svc, "review-invitation", "Review for {{ society }}", "<p>Dear {{ firstname }}, {{ link }} {{ missing }}</p>")

	id, err := env.svc.Send(context.Background(), "review-invitation",
		emaildomain.Recipient{Email: "ada@example.com", Firstname: "Ada"},
		map[string]string{"link": "https://humesociety.test/invitation/review/abc"},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := env.provider.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"ada@example.com"}, msgs[0].To)
	assert.Equal(t, "Review for Hume Society", msgs[0].Subject)
	assert.Equal(t, "<p>Dear Ada, https://humesociety.test/invitation/review/abc {{ missing }}</p>", msgs[0].HTML)
	assert.Equal(t, "web@humesociety.test", msgs[0].From)
	series, err := testutil.GatherAndCount(env.activity.Registry(), "humesociety_emails_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestSendMissingTemplateIsHardError(t *testing.T) {
	env := newTestService(t)

	_, err := env.svc.Send(context.Background(), "nope", emaildomain.Recipient{Email: "ada@example.com"}, nil)
	assert.ErrorIs(t, err, emaildomain.ErrTemplateNotFound)
	assert.Empty(t, env.provider.Messages())
}

func TestSendTransportFailureWrapsErrMailSend(t *testing.T) {
	env := newTestService(t)
	saveTemplate(t, env.svc, "review-invitation", "s", "b")
	env.provider.Fail = errors.New("relay down")

	_, err := env.svc.Send(context.Background(), "review-invitation", emaildomain.Recipient{Email: "ada@example.com"}, nil)
	assert.ErrorIs(t, err, emaildomain.ErrMailSend)
}

func TestSystemEmailFansOutToOrganisers(t *testing.T) {
	env := newTestService(t, "chair@humesociety.test", " ", "secretary@humesociety.test")
	saveTemplate(t, env.svc, "organiser-reply", "Reply: {{ kind }}", "{{ firstname }} replied")

	require.NoError(t, env.svc.SystemEmail(context.Background(), "organiser-reply", map[string]string{"kind": "review", "firstname": "Ada"}))

	msgs := env.provider.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"chair@humesociety.test", "secretary@humesociety.test"}, msgs[0].To)
	assert.Equal(t, "Reply: review", msgs[0].Subject)
}

func TestSystemEmailWithoutOrganisersFails(t *testing.T) {
	env := newTestService(t)
	saveTemplate(t, env.svc, "organiser-reply", "s", "b")

	err := env.svc.SystemEmail(context.Background(), "organiser-reply", nil)
	assert.ErrorIs(t, err, emaildomain.ErrNoOrganisers)
}

func TestSocietyEmailCountsFailures(t *testing.T) {
	env := newTestService(t)
	env.users.users = []authdomain.User{
		{ID: 1, Email: "a@example.com", Firstname: "A"},
		{ID: 2, Email: "b@example.com", Firstname: "B"},
	}

	result, err := env.svc.SocietyEmail(context.Background(), emaildomain.SocietyEmailRequest{
		Subject:  "News for {{ firstname }}",
		Body:     "<p>Hello {{ firstname }}</p>",
		Audience: emaildomain.AudienceMembers,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.NotNil(t, env.users.filter.GoodStandingAt)

	msgs := env.provider.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "News for A", msgs[0].Subject)
	assert.True(t, strings.Contains(msgs[1].HTML, "Hello B"))

	env.provider.Fail = errors.New("relay down")
	result, err = env.svc.SocietyEmail(context.Background(), emaildomain.SocietyEmailRequest{
		Subject:  "News",
		Audience: emaildomain.AudienceMailingList,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Sent)
	assert.Equal(t, 2, result.Failed)
	assert.True(t, env.users.filter.MailingList)
}

func TestSocietyEmailRejectsUnknownAudience(t *testing.T) {
	env := newTestService(t)
	_, err := env.svc.SocietyEmail(context.Background(), emaildomain.SocietyEmailRequest{Subject: "x", Audience: "friends"})
	assert.ErrorIs(t, err, emaildomain.ErrInvalidAudience)
}

func TestSaveTemplateUpserts(t *testing.T) {
	env := newTestService(t)
	saveTemplate(t, env.svc, "review-thanks", "v1", "b")
	saveTemplate(t, env.svc, "review-thanks", "v2", "b")

	tpl, err := env.svc.GetTemplate(context.Background(), "review-thanks")
	require.NoError(t, err)
	assert.Equal(t, "v2", tpl.Subject)

	items, err := env.svc.ListTemplates(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = env.svc.SaveTemplate(context.Background(), emaildomain.SaveTemplateRequest{Label: "Bad Label!", Subject: "x"})
	assert.ErrorIs(t, err, emaildomain.ErrInvalidLabel)
}
