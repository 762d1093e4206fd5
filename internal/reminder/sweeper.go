package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/config"
	invitationdomain "github.com/humesociety/humesociety-sub000/internal/invitation/domain"
	"github.com/humesociety/humesociety-sub000/internal/metricspush"
	obscontext "github.com/humesociety/humesociety-sub000/internal/observability/context"
	obslogger "github.com/humesociety/humesociety-sub000/internal/observability/logger"
	obsmetrics "github.com/humesociety/humesociety-sub000/internal/observability/metrics"
	"github.com/humesociety/humesociety-sub000/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	LockKey          = "reminder:sweep"
	defaultBatchSize = 100
	sweepTimeout     = 5 * time.Minute
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Config      config.Config
	Society     *config.SocietyConfigHolder
	Invitations invitationdomain.Service
	Clock       clock.Clock
	Locker      *ratelimit.Locker    `optional:"true"`
	Activity    *obsmetrics.Activity `optional:"true"`
	Pusher      metricspush.Pusher   `optional:"true"`
}

// Sweeper sends invitation reminders for invitations left pending past the configured window.
type Sweeper struct {
	log         *zap.Logger
	society     *config.SocietyConfigHolder
	invitations invitationdomain.Service
	clock       clock.Clock
	locker      *ratelimit.Locker
	activity    *obsmetrics.Activity
	pusher      metricspush.Pusher
	interval    time.Duration
	lockTTL     time.Duration
	batchSize   int
}

// Result summarises one sweep run.
type Result struct {
	Candidates int
	Sent       int
	Failed     int
	Skipped    string
}

func New(p Params) *Sweeper {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	interval := time.Duration(p.Config.Reminder.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	lockTTL := time.Duration(p.Config.Reminder.LockTTLSeconds) * time.Second
	if lockTTL <= 0 {
		lockTTL = sweepTimeout
	}
	return &Sweeper{
		log:         p.Log.Named("reminder.sweep"),
		society:     p.Society,
		invitations: p.Invitations,
		clock:       clk,
		locker:      p.Locker,
		activity:    p.Activity,
		pusher:      p.Pusher,
		interval:    interval,
		lockTTL:     lockTTL,
		batchSize:   defaultBatchSize,
	}
}

func (s *Sweeper) RunOnce(parent context.Context) (Result, error) {
	ctx, cancel := context.WithTimeout(parent, sweepTimeout)
	defer cancel()
	ctx = obscontext.WithActor(ctx, "system", "reminder")
	log := obslogger.WithContext(ctx, s.log)

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, LockKey, s.lockTTL)
		if err != nil {
			s.activity.ObserveSweep(0, err)
			return Result{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			s.activity.IncSweepSkipped(obsmetrics.SweepReasonLockHeld)
			log.Debug("sweep skipped, lock held elsewhere")
			return Result{Skipped: obsmetrics.SweepReasonLockHeld}, nil
		}
		defer func() {
			if err := s.locker.Release(context.Background(), LockKey, token); err != nil {
				log.Warn("release sweep lock failed", zap.Error(err))
			}
		}()
	}

	policy := s.society.Get().Reminders
	if policy.Max <= 0 {
		s.activity.IncSweepSkipped("disabled")
		return Result{Skipped: "disabled"}, nil
	}

	start := s.clock.Now()
	result, err := s.sweep(ctx, policy, start)
	s.activity.ObserveSweep(s.clock.Now().Sub(start), err)
	s.push(ctx, log)

	log.Info("reminder sweep finished",
		zap.Int("candidates", result.Candidates),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, err
}

func (s *Sweeper) sweep(ctx context.Context, policy config.ReminderPolicy, now time.Time) (Result, error) {
	window := now.AddDate(0, 0, -policy.AfterDays)
	due, err := s.invitations.DueForReminder(ctx, invitationdomain.DueFilter{
		CreatedBefore:  window,
		RemindedBefore: window,
		MaxReminders:   policy.Max,
		Limit:          s.batchSize,
	})
	if err != nil {
		return Result{}, err
	}

	result := Result{Candidates: len(due)}
	var errs error
	for _, inv := range due {
		if ctx.Err() != nil {
			return result, errors.Join(errs, ctx.Err())
		}
		if _, err := s.invitations.SendReminder(ctx, inv.ID, invitationdomain.ReminderInvitation); err != nil {
			result.Failed++
			errs = errors.Join(errs, fmt.Errorf("invitation %s: %w", inv.ID, err))
			obslogger.WithInvitation(obslogger.WithContext(ctx, s.log), string(inv.Kind), inv.ID.String()).
				Warn("reminder failed", zap.Error(err))
			continue
		}
		result.Sent++
	}
	return result, errs
}

func (s *Sweeper) push(ctx context.Context, log *zap.Logger) {
	if s.pusher == nil || s.activity == nil {
		return
	}
	if err := s.pusher.Push(ctx, s.activity.Registry()); err != nil {
		log.Warn("metrics push failed", zap.Error(err))
	}
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("reminder sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
