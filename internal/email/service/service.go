package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/config"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	"github.com/humesociety/humesociety-sub000/internal/observability/logger"
	"github.com/humesociety/humesociety-sub000/internal/observability/metrics"
	emailprovider "github.com/humesociety/humesociety-sub000/internal/providers/email"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var labelPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     emaildomain.Repository
	Provider emailprovider.Provider
	Users    authdomain.Service
	Config   config.Config
	Society  *config.SocietyConfigHolder
	Clock    clock.Clock
	Metrics  *metrics.Metrics  `optional:"true"`
	Activity *metrics.Activity `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	repo     emaildomain.Repository
	provider emailprovider.Provider
	users    authdomain.Service
	siteURL  string
	from     string
	society  *config.SocietyConfigHolder
	clock    clock.Clock
	metrics  *metrics.Metrics
	activity *metrics.Activity
}

func New(p Params) emaildomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("email.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		provider: p.Provider,
		users:    p.Users,
		siteURL:  p.Config.SiteURL,
		from:     p.Config.Email.SMTPFrom,
		society:  p.Society,
		clock:    clk,
		metrics:  p.Metrics,
		activity: p.Activity,
	}
}

func (s *Service) Send(ctx context.Context, label string, to emaildomain.Recipient, vars map[string]string) (string, error) {
	tpl, err := s.repo.FindByLabel(ctx, label)
	if err != nil {
		if errors.Is(err, emaildomain.ErrTemplateNotFound) {
			logger.WithContext(ctx, s.log).Error("email template missing", zap.String("label", label))
			return "", fmt.Errorf("%w: %s", emaildomain.ErrTemplateNotFound, label)
		}
		return "", err
	}

	address := strings.TrimSpace(to.Email)
	if address == "" {
		return "", emaildomain.ErrInvalidRecipient
	}

	merged := emaildomain.MergeVars(s.siteVars(), to.Vars(), vars)
	return s.deliver(ctx, label, tpl.Sender, []string{address}, emaildomain.Render(tpl.Subject, merged), emaildomain.Render(tpl.Body, merged))
}

func (s *Service) SystemEmail(ctx context.Context, label string, vars map[string]string) error {
	organisers := s.organisers()
	if len(organisers) == 0 {
		logger.WithContext(ctx, s.log).Error("no organiser addresses configured", zap.String("label", label))
		return emaildomain.ErrNoOrganisers
	}

	tpl, err := s.repo.FindByLabel(ctx, label)
	if err != nil {
		if errors.Is(err, emaildomain.ErrTemplateNotFound) {
			logger.WithContext(ctx, s.log).Error("email template missing", zap.String("label", label))
			return fmt.Errorf("%w: %s", emaildomain.ErrTemplateNotFound, label)
		}
		return err
	}

	merged := emaildomain.MergeVars(s.siteVars(), vars)
	_, err = s.deliver(ctx, label, tpl.Sender, organisers, emaildomain.Render(tpl.Subject, merged), emaildomain.Render(tpl.Body, merged))
	return err
}

func (s *Service) SocietyEmail(ctx context.Context, req emaildomain.SocietyEmailRequest) (*emaildomain.SocietyEmailResult, error) {
	if !req.Audience.Valid() {
		return nil, emaildomain.ErrInvalidAudience
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, emaildomain.ErrEmptySubject
	}

	filter := authdomain.UserFilter{}
	switch req.Audience {
	case emaildomain.AudienceMembers:
		now := s.clock.Now()
		filter.GoodStandingAt = &now
	case emaildomain.AudienceMailingList:
		filter.MailingList = true
	}

	users, err := s.users.ListUsers(ctx, filter)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx, s.log)
	result := &emaildomain.SocietyEmailResult{}
	site := s.siteVars()
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		merged := emaildomain.MergeVars(site, user.Vars())
		_, err := s.deliver(ctx, "society-email", req.Sender, []string{user.Email},
			emaildomain.Render(req.Subject, merged),
			emaildomain.Render(req.Body, merged),
		)
		if err != nil {
			result.Failed++
			log.Warn("society email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
			continue
		}
		result.Sent++
	}

	log.Info("society email sent",
		zap.String("audience", string(req.Audience)),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) ListTemplates(ctx context.Context) ([]emaildomain.Template, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetTemplate(ctx context.Context, label string) (*emaildomain.Template, error) {
	return s.repo.FindByLabel(ctx, strings.TrimSpace(label))
}

func (s *Service) SaveTemplate(ctx context.Context, req emaildomain.SaveTemplateRequest) (*emaildomain.Template, error) {
	label := strings.ToLower(strings.TrimSpace(req.Label))
	if !labelPattern.MatchString(label) {
		return nil, emaildomain.ErrInvalidLabel
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, emaildomain.ErrEmptySubject
	}

	now := s.clock.Now()
	tpl := &emaildomain.Template{
		ID:          s.genID.Generate(),
		Label:       label,
		Description: strings.TrimSpace(req.Description),
		Sender:      strings.TrimSpace(req.Sender),
		Subject:     req.Subject,
		Body:        req.Body,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, tpl); err != nil {
		return nil, err
	}
	return s.repo.FindByLabel(ctx, label)
}

func (s *Service) deliver(ctx context.Context, label, sender string, to []string, subject, body string) (string, error) {
	msg := emailprovider.Message{
		ID:      ulid.Make().String(),
		From:    sender,
		To:      to,
		Subject: subject,
		HTML:    body,
	}
	if strings.TrimSpace(msg.From) == "" {
		msg.From = s.from
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("label", label),
		zap.String("message_id", msg.ID),
		zap.String("provider", s.provider.Name()),
	)
	if err := s.provider.Send(ctx, msg); err != nil {
		s.record(ctx, label, emaildomain.OutcomeFailed)
		log.Warn("email send failed", zap.Error(err))
		return "", fmt.Errorf("%w: %s: %v", emaildomain.ErrMailSend, label, err)
	}

	s.record(ctx, label, emaildomain.OutcomeSent)
	log.Info("email sent", zap.Int("recipients", len(to)))
	return msg.ID, nil
}

func (s *Service) record(ctx context.Context, label, outcome string) {
	s.metrics.RecordEmailSend(ctx, label, outcome)
	s.activity.IncEmail(label, outcome)
}

func (s *Service) siteVars() map[string]string {
	name := "Hume Society"
	if s.society != nil {
		if cfg := s.society.Get(); cfg.Name != "" {
			name = cfg.Name
		}
	}
	return map[string]string{
		"site_url": s.siteURL,
		"society":  name,
	}
}

func (s *Service) organisers() []string {
	if s.society == nil {
		return nil
	}
	var out []string
	for _, addr := range s.society.Get().Organisers {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
