package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/config"
	invitationdomain "github.com/humesociety/humesociety-sub000/internal/invitation/domain"
	obsmetrics "github.com/humesociety/humesociety-sub000/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvitations struct {
	invitationdomain.Service

	mu      sync.Mutex
	due     []invitationdomain.Invitation
	failing map[snowflake.ID]bool
	filter  invitationdomain.DueFilter
	sent    []snowflake.ID
}

func (f *fakeInvitations) DueForReminder(_ context.Context, filter invitationdomain.DueFilter) ([]invitationdomain.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
	return f.due, nil
}

func (f *fakeInvitations) SendReminder(_ context.Context, id snowflake.ID, reminder invitationdomain.ReminderKind) (*invitationdomain.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reminder != invitationdomain.ReminderInvitation {
		return nil, invitationdomain.ErrInvalidReminderKind
	}
	if f.failing[id] {
		return nil, errors.New("smtp: 451 try again later")
	}
	f.sent = append(f.sent, id)
	return &invitationdomain.Invitation{ID: id}, nil
}

type recordingPusher struct {
	pushes int
}

func (p *recordingPusher) Push(context.Context, prometheus.Gatherer) error {
	p.pushes++
	return nil
}

func newSweeper(invitations *fakeInvitations, policy config.ReminderPolicy) (*Sweeper, *obsmetrics.Activity, *recordingPusher) {
	society := config.DefaultSocietyConfig()
	society.Reminders = policy
	activity := obsmetrics.NewActivity(obsmetrics.Config{})
	pusher := &recordingPusher{}
	sweeper := New(Params{
		Log:         zap.NewNop(),
		Society:     config.NewStaticSocietyConfigHolder(society),
		Invitations: invitations,
		Clock:       clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)),
		Activity:    activity,
		Pusher:      pusher,
	})
	return sweeper, activity, pusher
}

func TestRunOnceRemindsDueInvitations(t *testing.T) {
	invitations := &fakeInvitations{
		due: []invitationdomain.Invitation{
			{ID: 1, Kind: invitationdomain.KindReview},
			{ID: 2, Kind: invitationdomain.KindChair},
		},
	}
	sweeper, activity, pusher := newSweeper(invitations, config.ReminderPolicy{AfterDays: 7, Max: 3})

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Candidates: 2, Sent: 2}, result)
	assert.Equal(t, []snowflake.ID{1, 2}, invitations.sent)

	window := time.Date(2026, 3, 25, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, window, invitations.filter.CreatedBefore)
	assert.Equal(t, window, invitations.filter.RemindedBefore)
	assert.Equal(t, 3, invitations.filter.MaxReminders)

	assert.Equal(t, 1, pusher.pushes)
	count, err := testutil.GatherAndCount(activity.Registry(), "humesociety_reminder_sweep_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	invitations := &fakeInvitations{
		due: []invitationdomain.Invitation{
			{ID: 1, Kind: invitationdomain.KindReview},
			{ID: 2, Kind: invitationdomain.KindReview},
			{ID: 3, Kind: invitationdomain.KindPaper},
		},
		failing: map[snowflake.ID]bool{2: true},
	}
	sweeper, activity, _ := newSweeper(invitations, config.ReminderPolicy{AfterDays: 7, Max: 3})

	result, err := sweeper.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, Result{Candidates: 3, Sent: 2, Failed: 1}, result)
	assert.Equal(t, []snowflake.ID{1, 3}, invitations.sent)

	count, err := testutil.GatherAndCount(activity.Registry(), "humesociety_reminder_sweep_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunOnceSkipsWhenRemindersDisabled(t *testing.T) {
	invitations := &fakeInvitations{due: []invitationdomain.Invitation{{ID: 1}}}
	sweeper, _, pusher := newSweeper(invitations, config.ReminderPolicy{AfterDays: 7, Max: 0})

	result, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "disabled", result.Skipped)
	assert.Empty(t, invitations.sent)
	assert.Equal(t, 0, pusher.pushes)
}

func TestNewAppliesDefaults(t *testing.T) {
	sweeper := New(Params{Log: zap.NewNop(), Config: config.Config{}})
	assert.Equal(t, time.Hour, sweeper.interval)
	assert.Equal(t, sweepTimeout, sweeper.lockTTL)

	sweeper = New(Params{Log: zap.NewNop(), Config: config.Config{Reminder: config.ReminderConfig{IntervalMinutes: 15, LockTTLSeconds: 60}}})
	assert.Equal(t, 15*time.Minute, sweeper.interval)
	assert.Equal(t, time.Minute, sweeper.lockTTL)
}
