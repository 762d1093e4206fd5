package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/humesociety/humesociety-sub000/internal/audit/domain"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/humesociety/humesociety-sub000/internal/membership/domain"
	"github.com/humesociety/humesociety-sub000/internal/observability/logger"
	"github.com/humesociety/humesociety-sub000/internal/providers/pdf"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2 January 2006"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Clock    clock.Clock
	Users    authdomain.Service
	Society  *config.SocietyConfigHolder
	PDF      pdf.Provider
	Config   config.Config
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	users    authdomain.Service
	society  *config.SocietyConfigHolder
	pdf      pdf.Provider
	from     string
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("membership.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		users:    p.Users,
		society:  p.Society,
		pdf:      p.PDF,
		from:     p.Config.Email.SMTPFrom,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Plans(ctx context.Context) []config.DuesPlan {
	plans := s.society.Get().Dues.Plans
	out := make([]config.DuesPlan, len(plans))
	copy(out, plans)
	return out
}

func (s *Service) RecordDuesPayment(ctx context.Context, req domain.RecordPaymentRequest) (*domain.RecordPaymentResult, error) {
	plan, ok := s.society.Get().Plan(req.Plan)
	if !ok {
		return nil, domain.ErrUnknownPlan
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, domain.ErrInvalidReference
	}

	now := s.clock.Now()
	var (
		payment *domain.DuesPayment
		member  *authdomain.User
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.repo.LockMember(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		paidUntil, lifetime := extendStanding(user, plan, now)
		payment = &domain.DuesPayment{
			ID:        s.genID.Generate(),
			UserID:    user.ID,
			Plan:      plan.Name,
			Years:     plan.Years,
			Lifetime:  plan.Lifetime,
			Amount:    plan.Amount,
			Currency:  plan.Currency,
			Reference: reference,
			PaidAt:    now,
			PaidUntil: paidUntil,
			CreatedAt: now,
		}
		if err := s.repo.CreatePayment(ctx, tx, payment); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicatePayment
			}
			return err
		}
		if err := s.repo.UpdateStanding(ctx, tx, user.ID, paidUntil, lifetime, now); err != nil {
			return err
		}

		user.DuesPaidUntil = paidUntil
		user.LifetimeMember = lifetime
		user.UpdatedAt = now
		member = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("dues payment recorded",
		zap.String("user_id", member.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("plan", plan.Name),
	)
	if s.auditSvc != nil {
		targetID := member.ID.String()
		_ = s.auditSvc.AuditLog(ctx, "", nil, "dues.recorded", "user", &targetID, map[string]any{
			"plan":      plan.Name,
			"reference": reference,
		})
	}
	return &domain.RecordPaymentResult{Payment: payment, Member: member}, nil
}

// extendStanding adds the plan's years to whichever is later, now or the current paid-until date.
func extendStanding(user *authdomain.User, plan config.DuesPlan, now time.Time) (*time.Time, bool) {
	if plan.Lifetime {
		return user.DuesPaidUntil, true
	}
	base := now
	if user.DuesPaidUntil != nil && user.DuesPaidUntil.After(now) {
		base = *user.DuesPaidUntil
	}
	until := base.AddDate(plan.Years, 0, 0).UTC()
	return &until, user.LifetimeMember
}

func (s *Service) ListPayments(ctx context.Context, userID snowflake.ID) ([]domain.DuesPayment, error) {
	return s.repo.ListPayments(ctx, s.db, userID)
}

func (s *Service) Receipt(ctx context.Context, paymentID snowflake.ID, owner *snowflake.ID) (io.Reader, error) {
	payment, err := s.repo.FindPayment(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if owner != nil && payment.UserID != *owner {
		return nil, domain.ErrPaymentNotFound
	}

	user, err := s.users.GetUser(ctx, payment.UserID)
	if err != nil && !errors.Is(err, authdomain.ErrUserNotFound) {
		return nil, err
	}

	description := fmt.Sprintf("Membership dues (%s, %d year)", payment.Plan, payment.Years)
	if payment.Years != 1 {
		description = fmt.Sprintf("Membership dues (%s, %d years)", payment.Plan, payment.Years)
	}
	if payment.Lifetime {
		description = "Lifetime membership"
	}

	data := pdf.ReceiptData{
		Society:       s.society.Get().Name,
		SocietyEmail:  s.from,
		ReceiptNumber: payment.ReceiptNumber(),
		DatePaid:      payment.PaidAt.Format(dateLayout),
		Reference:     payment.Reference,
		Description:   description,
		Amount:        payment.FormattedAmount(),
	}
	if user != nil {
		data.MemberName = user.FullName()
		data.MemberEmail = user.Email
	}
	if payment.PaidUntil != nil && !payment.Lifetime {
		data.PaidUntil = payment.PaidUntil.Format(dateLayout)
	}
	return s.pdf.GenerateReceipt(ctx, data)
}

func (s *Service) ListMembers(ctx context.Context, goodStandingOnly bool) ([]authdomain.User, error) {
	filter := authdomain.UserFilter{}
	if goodStandingOnly {
		now := s.clock.Now()
		filter.GoodStandingAt = &now
	}
	return s.users.ListUsers(ctx, filter)
}
