package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	authrepository "github.com/humesociety/humesociety-sub000/internal/auth/repository"
	authservice "github.com/humesociety/humesociety-sub000/internal/auth/service"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/conference/domain"
	"github.com/humesociety/humesociety-sub000/internal/conference/repository"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	"github.com/humesociety/humesociety-sub000/internal/email/emailtest"
	emailprovider "github.com/humesociety/humesociety-sub000/internal/providers/email"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	svc   domain.Service
	users authdomain.Service
	mail  *emailprovider.RecordingProvider
	clock *clock.FakeClock
	store storage.Store
}

func newTestService(t *testing.T) testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&emaildomain.Template{},
		&domain.Conference{},
		&domain.Submission{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	userRepo, sessionRepo := authrepository.New(dbConn)
	users := authservice.New(zap.NewNop(), userRepo, sessionRepo, node, clk)
	mailSvc, mail := emailtest.New(t, dbConn, node, users, clk)
	emailtest.SeedTemplates(t, mailSvc,
		LabelSubmissionReceived,
		LabelSubmissionAcceptance,
		LabelSubmissionRejection,
		LabelOrganiserConfirmation,
	)

	store := storage.New(afero.NewMemMapFs(), nil)
	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
		Email: mailSvc,
		Users: users,
		Store: store,
	})
	return testEnv{svc: svc, users: users, mail: mail, clock: clk, store: store}
}

func (env testEnv) register(t *testing.T, email string) *authdomain.User {
	t.Helper()
	user, err := env.users.Register(context.Background(), authdomain.RegisterRequest{
		Email:     email,
		Password:  "correct-password",
		Firstname: "Annette",
		Lastname:  "Baier",
	})
	require.NoError(t, err)
	return user
}

func (env testEnv) conference(t *testing.T, number int, end time.Time, open bool, deadline *time.Time) *domain.Conference {
	t.Helper()
	c, err := env.svc.CreateConference(context.Background(), domain.ConferenceRequest{
		Number:    number,
		Year:      end.Year(),
		Town:      "Edinburgh",
		Country:   "Scotland",
		StartDate: end.AddDate(0, 0, -4),
		EndDate:   end,
		Deadline:  deadline,
		Open:      open,
	})
	require.NoError(t, err)
	return c
}

func (env testEnv) submit(t *testing.T, user *authdomain.User) *domain.Submission {
	t.Helper()
	sub, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		UserID:   user.ID,
		Title:    "Of Miracles",
		Authors:  "A. Baier",
		Keywords: "testimony",
		Filename: "../miracles.pdf",
		File:     strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	return sub
}

func TestCurrentConferenceIsSoonestUpcoming(t *testing.T) {
	env := newTestService(t)
	now := env.clock.Now()

	_, err := env.svc.CurrentConference(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoCurrentConference)

	env.conference(t, 50, now.AddDate(0, -2, 0), false, nil)
	env.conference(t, 53, now.AddDate(1, 0, 0), false, nil)
	env.conference(t, 52, now.AddDate(0, 3, 0), false, nil)
	env.conference(t, 51, now.AddDate(0, 3, 0), false, nil)

	current, err := env.svc.CurrentConference(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 51, current.Number)

	env.clock.Advance(120 * 24 * time.Hour)
	current, err = env.svc.CurrentConference(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 53, current.Number)
}

func TestCreateConferenceRejectsDuplicateNumber(t *testing.T) {
	env := newTestService(t)
	end := env.clock.Now().AddDate(0, 2, 0)
	env.conference(t, 52, end, true, nil)

	_, err := env.svc.CreateConference(context.Background(), domain.ConferenceRequest{
		Number: 52, Year: 2026, StartDate: end.AddDate(0, 0, -3), EndDate: end,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateNumber)

	_, err = env.svc.CreateConference(context.Background(), domain.ConferenceRequest{
		Number: 54, Year: 2026, StartDate: end, EndDate: end.AddDate(0, 0, -1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDates)
}

func TestSubmitRequiresOpenConferenceBeforeDeadline(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "annette@example.com")
	deadline := env.clock.Now().AddDate(0, 0, 10)
	conference := env.conference(t, 52, env.clock.Now().AddDate(0, 3, 0), true, &deadline)

	sub := env.submit(t, user)
	assert.Equal(t, domain.SubmissionPending, sub.Status)
	assert.Equal(t, conference.ID, sub.ConferenceID)
	assert.Equal(t, "conferences/52/submissions/"+sub.ID.String()+"-miracles.pdf", sub.Filename)

	exists, err := env.store.Exists(context.Background(), sub.Filename)
	require.NoError(t, err)
	assert.True(t, exists)

	msgs := env.mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"annette@example.com"}, msgs[0].To)

	env.clock.Advance(11 * 24 * time.Hour)
	_, err = env.svc.Submit(context.Background(), domain.SubmitRequest{
		UserID: user.ID, Title: "Late", Authors: "A", Filename: "late.pdf", File: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrSubmissionsClosed)
}

func TestSubmitKeepsSubmissionWhenMailFails(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "annette@example.com")
	env.conference(t, 52, env.clock.Now().AddDate(0, 3, 0), true, nil)
	env.mail.Fail = errors.New("relay down")

	sub, err := env.svc.Submit(context.Background(), domain.SubmitRequest{
		UserID: user.ID, Title: "Of Miracles", Authors: "A", Filename: "m.pdf", File: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, emaildomain.ErrMailSend)
	require.NotNil(t, sub)

	stored, err := env.svc.GetSubmission(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Of Miracles", stored.Title)
}

func TestDecisionEmailIsSentOnce(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "annette@example.com")
	env.conference(t, 52, env.clock.Now().AddDate(0, 3, 0), true, nil)
	sub := env.submit(t, user)
	env.mail.Reset()

	_, err := env.svc.SendDecisionEmail(context.Background(), sub.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition, "undecided submission")

	decided, err := env.svc.RecordDecision(context.Background(), sub.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionAccepted, decided.Status)
	assert.False(t, decided.DecisionEmailed)

	emailed, err := env.svc.SendDecisionEmail(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.True(t, emailed.DecisionEmailed)

	_, err = env.svc.SendDecisionEmail(context.Background(), sub.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = env.svc.RecordDecision(context.Background(), sub.ID, false)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	msgs := env.mail.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Subject, LabelSubmissionAcceptance))
}

func TestDecisionEmailFailureLeavesFlagUnset(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "annette@example.com")
	env.conference(t, 52, env.clock.Now().AddDate(0, 3, 0), true, nil)
	sub := env.submit(t, user)
	_, err := env.svc.RecordDecision(context.Background(), sub.ID, false)
	require.NoError(t, err)

	env.mail.Fail = errors.New("relay down")
	_, err = env.svc.SendDecisionEmail(context.Background(), sub.ID)
	assert.ErrorIs(t, err, emaildomain.ErrMailSend)

	stored, err := env.svc.GetSubmission(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.False(t, stored.DecisionEmailed)

	env.mail.Fail = nil
	_, err = env.svc.SendDecisionEmail(context.Background(), sub.ID)
	require.NoError(t, err)
}

func TestConcurrentDecisionEmailsSendOnce(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "annette@example.com")
	env.conference(t, 52, env.clock.Now().AddDate(0, 3, 0), true, nil)
	sub := env.submit(t, user)
	_, err := env.svc.RecordDecision(context.Background(), sub.ID, true)
	require.NoError(t, err)
	env.mail.Reset()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.SendDecisionEmail(context.Background(), sub.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, env.mail.Messages(), 1)
}

func TestConfirmAndUploadFinal(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "annette@example.com")
	other := env.register(t, "other@example.com")
	env.conference(t, 52, env.clock.Now().AddDate(0, 3, 0), true, nil)
	sub := env.submit(t, user)

	_, err := env.svc.Confirm(context.Background(), sub.ID, user.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = env.svc.RecordDecision(context.Background(), sub.ID, true)
	require.NoError(t, err)
	_, err = env.svc.SendDecisionEmail(context.Background(), sub.ID)
	require.NoError(t, err)

	_, err = env.svc.UploadFinal(context.Background(), sub.ID, user.ID, "final.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition, "unconfirmed")

	_, err = env.svc.Confirm(context.Background(), sub.ID, other.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	env.mail.Reset()
	confirmed, err := env.svc.Confirm(context.Background(), sub.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Confirmed)
	msgs := env.mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{emailtest.Organiser}, msgs[0].To)

	_, err = env.svc.Confirm(context.Background(), sub.ID, user.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	final, err := env.svc.UploadFinal(context.Background(), sub.ID, user.ID, "final.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "conferences/52/finals/"+sub.ID.String()+"-final.pdf", final.FinalFilename)
}

func TestListSubmissionsFilters(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "annette@example.com")
	env.conference(t, 52, env.clock.Now().AddDate(0, 3, 0), true, nil)
	first := env.submit(t, user)
	env.submit(t, user)
	_, err := env.svc.RecordDecision(context.Background(), first.ID, true)
	require.NoError(t, err)

	accepted, err := env.svc.ListSubmissions(context.Background(), domain.SubmissionFilter{Status: domain.SubmissionAccepted})
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, first.ID, accepted[0].ID)

	_, err = env.svc.ListSubmissions(context.Background(), domain.SubmissionFilter{Status: "maybe"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestConferenceVars(t *testing.T) {
	c := domain.Conference{Number: 52, Year: 2026, Town: "Edinburgh"}
	vars := c.Vars()
	assert.Equal(t, "Hume Society 52nd Conference", vars["conference"])
	assert.Equal(t, "52", vars["conference_number"])
	assert.Equal(t, "Hume Society 11th Conference", domain.Conference{Number: 11}.Title())
	assert.Equal(t, "Hume Society 41st Conference", domain.Conference{Number: 41}.Title())
}
