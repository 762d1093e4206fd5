package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	authrepository "github.com/humesociety/humesociety-sub000/internal/auth/repository"
	authservice "github.com/humesociety/humesociety-sub000/internal/auth/service"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/humesociety/humesociety-sub000/internal/membership/domain"
	"github.com/humesociety/humesociety-sub000/internal/membership/repository"
	"github.com/humesociety/humesociety-sub000/internal/providers/pdf"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	svc   domain.Service
	users authdomain.Service
	clock *clock.FakeClock
}

func newTestService(t *testing.T) testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}, &domain.DuesPayment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	userRepo, sessionRepo := authrepository.New(dbConn)
	users := authservice.New(zap.NewNop(), userRepo, sessionRepo, node, clk)

	svc := New(Params{
		DB:      dbConn,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    repository.Provide(),
		Clock:   clk,
		Users:   users,
		Society: config.NewStaticSocietyConfigHolder(config.DefaultSocietyConfig()),
		PDF:     pdf.New(),
		Config:  config.Config{Email: config.EmailConfig{SMTPFrom: "web@humesociety.test"}},
	})
	return testEnv{svc: svc, users: users, clock: clk}
}

func (env testEnv) register(t *testing.T, email string) *authdomain.User {
	t.Helper()
	user, err := env.users.Register(context.Background(), authdomain.RegisterRequest{
		Email:     email,
		Password:  "correct-password",
		Firstname: "Don",
		Lastname:  "Garrett",
	})
	require.NoError(t, err)
	return user
}

func TestRecordDuesPaymentExtendsStanding(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "don@example.com")
	ctx := context.Background()
	now := env.clock.Now()

	res, err := env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "regular", Reference: "PAY-1"})
	require.NoError(t, err)
	require.NotNil(t, res.Member.DuesPaidUntil)
	assert.Equal(t, now.AddDate(1, 0, 0), *res.Member.DuesPaidUntil)
	assert.True(t, res.Member.InGoodStanding(now))
	assert.Equal(t, int64(5000), res.Payment.Amount)

	// A second payment stacks on the existing paid-until date.
	res, err = env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "regular-3", Reference: "PAY-2"})
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(4, 0, 0), *res.Member.DuesPaidUntil)

	stored, err := env.users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DuesPaidUntil)
	assert.True(t, stored.DuesPaidUntil.Equal(now.AddDate(4, 0, 0)))
}

func TestRecordDuesPaymentAfterLapseStartsFromNow(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "don@example.com")
	ctx := context.Background()

	_, err := env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "student", Reference: "PAY-1"})
	require.NoError(t, err)

	env.clock.Advance(400 * 24 * time.Hour)
	now := env.clock.Now()
	res, err := env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "student", Reference: "PAY-2"})
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(1, 0, 0), *res.Member.DuesPaidUntil)
}

func TestRecordDuesPaymentIsIdempotentOnReference(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "don@example.com")
	ctx := context.Background()

	_, err := env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "regular", Reference: "PAY-1"})
	require.NoError(t, err)
	_, err = env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "regular", Reference: " PAY-1 "})
	assert.ErrorIs(t, err, domain.ErrDuplicatePayment)

	stored, err := env.users.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, env.clock.Now().AddDate(1, 0, 0), stored.DuesPaidUntil.UTC())

	payments, err := env.svc.ListPayments(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestRecordDuesPaymentValidation(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "don@example.com")
	ctx := context.Background()

	_, err := env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "platinum", Reference: "PAY-1"})
	assert.ErrorIs(t, err, domain.ErrUnknownPlan)
	_, err = env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "regular", Reference: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
	_, err = env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: snowflake.ID(7), Plan: "regular", Reference: "PAY-1"})
	assert.ErrorIs(t, err, authdomain.ErrUserNotFound)
}

func TestLifetimePlanAndGoodStandingList(t *testing.T) {
	env := newTestService(t)
	lifetime := env.register(t, "lifetime@example.com")
	env.register(t, "lapsed@example.com")
	ctx := context.Background()

	res, err := env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: lifetime.ID, Plan: "lifetime", Reference: "PAY-L"})
	require.NoError(t, err)
	assert.True(t, res.Member.LifetimeMember)

	members, err := env.svc.ListMembers(ctx, true)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, lifetime.ID, members[0].ID)

	all, err := env.svc.ListMembers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReceiptIsRestrictedToOwner(t *testing.T) {
	env := newTestService(t)
	user := env.register(t, "don@example.com")
	other := env.register(t, "other@example.com")
	ctx := context.Background()

	res, err := env.svc.RecordDuesPayment(ctx, domain.RecordPaymentRequest{UserID: user.ID, Plan: "regular", Reference: "PAY-1"})
	require.NoError(t, err)

	r, err := env.svc.Receipt(ctx, res.Payment.ID, &user.ID)
	require.NoError(t, err)
	doc, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))

	_, err = env.svc.Receipt(ctx, res.Payment.ID, &other.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)

	_, err = env.svc.Receipt(ctx, res.Payment.ID, nil)
	assert.NoError(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "USD 50.00", domain.FormatAmount(5000, "USD"))
	assert.Equal(t, "GBP 0.05", domain.FormatAmount(5, "GBP"))
	assert.Equal(t, "EUR -1.50", domain.FormatAmount(-150, "EUR"))
}
