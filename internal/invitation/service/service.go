package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/humesociety/humesociety-sub000/internal/audit/domain"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	conferencedomain "github.com/humesociety/humesociety-sub000/internal/conference/domain"
	"github.com/humesociety/humesociety-sub000/internal/config"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	"github.com/humesociety/humesociety-sub000/internal/invitation/domain"
	"github.com/humesociety/humesociety-sub000/internal/observability/logger"
	"github.com/humesociety/humesociety-sub000/internal/observability/metrics"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	LabelOrganiserReply      = "organiser-reply"
	LabelOrganiserSubmission = "organiser-submission"

	secretBytes       = 32
	maxSecretAttempts = 5
	maxRevokeAttempts = 3
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Clock       clock.Clock
	Config      config.Config
	Email       emaildomain.Service
	Users       authdomain.Service
	Conferences conferencedomain.Service
	Store       storage.Store       `optional:"true"`
	Metrics     *metrics.Metrics    `optional:"true"`
	Activity    *metrics.Activity   `optional:"true"`
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	clock       clock.Clock
	siteURL     string
	email       emaildomain.Service
	users       authdomain.Service
	conferences conferencedomain.Service
	store       storage.Store
	metrics     *metrics.Metrics
	activity    *metrics.Activity
	auditSvc    auditdomain.Service

	newSecret func() (string, error)
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invitation.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		clock:       clk,
		siteURL:     strings.TrimRight(p.Config.SiteURL, "/"),
		email:       p.Email,
		users:       p.Users,
		conferences: p.Conferences,
		store:       p.Store,
		metrics:     p.Metrics,
		activity:    p.Activity,
		auditSvc:    p.AuditSvc,
		newSecret:   generateSecret,
	}
}

func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Invitation, error) {
	if !req.Kind.Valid() {
		return nil, domain.ErrUnknownKind
	}

	inv := &domain.Invitation{
		Kind:   req.Kind,
		Status: domain.StatusPending,
	}
	if req.Kind.BelongsToSubmission() {
		if req.SubmissionID == nil {
			return nil, domain.ErrParentRequired
		}
		sub, err := s.conferences.GetSubmission(ctx, *req.SubmissionID)
		if err != nil {
			return nil, err
		}
		submissionID := sub.ID
		inv.SubmissionID = &submissionID
		inv.ConferenceID = sub.ConferenceID
	} else {
		if req.ConferenceID == nil {
			return nil, domain.ErrParentRequired
		}
		conference, err := s.conferences.GetConference(ctx, *req.ConferenceID)
		if err != nil {
			return nil, err
		}
		inv.ConferenceID = conference.ID
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	inv.UserID = user.ID

	if err := s.insertWithFreshSecret(ctx, inv); err != nil {
		return nil, err
	}

	log := logger.WithInvitation(logger.WithContext(ctx, s.log), string(inv.Kind), inv.ID.String())
	log.Info("invitation created", zap.String("user_id", user.ID.String()))
	s.recordTransition(ctx, inv.Kind, "", domain.StatusPending)

	err = s.sendInvitation(ctx, inv, user)
	if err != nil {
		log.Warn("invitation email not sent", zap.Error(err))
	}
	s.emitAudit(ctx, "invitation.created", inv, map[string]any{
		"user_id":    user.ID.String(),
		"email_sent": err == nil,
	})
	return inv, err
}

func (s *Service) sendInvitation(ctx context.Context, inv *domain.Invitation, user *authdomain.User) error {
	vars, err := s.vars(ctx, inv, user)
	if err != nil {
		return err
	}
	_, err = s.email.Send(ctx, inv.Kind.Label("invitation"), recipient(user), vars)
	return err
}

func (s *Service) insertWithFreshSecret(ctx context.Context, inv *domain.Invitation) error {
	for attempt := 1; attempt <= maxSecretAttempts; attempt++ {
		secret, err := s.newSecret()
		if err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		now := s.clock.Now()
		inv.ID = s.genID.Generate()
		inv.Secret = secret
		inv.CreatedAt = now
		inv.UpdatedAt = now

		err = s.repo.Create(ctx, s.db, inv)
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		logger.WithContext(ctx, s.log).Warn("invitation secret collision",
			zap.String("invitation_kind", string(inv.Kind)),
			zap.Int("attempt", attempt),
		)
	}
	return domain.ErrSecretCollision
}

func (s *Service) RecordReply(ctx context.Context, kind, secret string, accepted bool) (*domain.Invitation, error) {
	inv, err := s.GetBySecret(ctx, kind, secret)
	if err != nil {
		return nil, err
	}

	ev, reply := domain.EventDecline, "declined"
	if accepted {
		ev, reply = domain.EventAccept, "accepted"
	}
	from := inv.Status
	to, err := inv.Kind.Transition(from, ev)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ok, err := s.repo.TransitionIf(ctx, s.db, inv.ID, from, map[string]any{
		"status":     to,
		"replied_at": now,
		"updated_at": now,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidStateTransition
	}
	inv.Status = to
	inv.RepliedAt = &now
	inv.UpdatedAt = now

	log := logger.WithInvitation(logger.WithContext(ctx, s.log), string(inv.Kind), inv.ID.String())
	log.Info("invitation reply recorded", zap.String("status", string(to)))
	s.recordTransition(ctx, inv.Kind, from, to)

	vars, err := s.vars(ctx, inv, s.invitee(ctx, inv))
	if err != nil {
		return inv, err
	}
	vars["reply"] = reply
	if err := s.email.SystemEmail(ctx, LabelOrganiserReply, vars); err != nil {
		log.Warn("reply notification not sent", zap.Error(err))
		return inv, err
	}
	return inv, nil
}

func (s *Service) RecordSubmission(ctx context.Context, kind, secret string, req domain.SubmissionRequest) (*domain.Invitation, error) {
	inv, err := s.GetBySecret(ctx, kind, secret)
	if err != nil {
		return nil, err
	}
	from := inv.Status
	to, err := inv.Kind.Transition(from, domain.EventSubmit)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" && req.File == nil {
		return nil, domain.ErrContentRequired
	}

	var path string
	if req.File != nil {
		path, err = s.storeFile(ctx, inv, req)
		if err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	ok, err := s.repo.TransitionIf(ctx, s.db, inv.ID, from, map[string]any{
		"status":       to,
		"title":        strings.TrimSpace(req.Title),
		"content":      content,
		"filename":     path,
		"submitted_at": now,
		"updated_at":   now,
	})
	if err != nil {
		s.discardFile(ctx, path)
		return nil, err
	}
	if !ok {
		s.discardFile(ctx, path)
		return nil, domain.ErrInvalidStateTransition
	}
	inv.Status = to
	inv.Title = strings.TrimSpace(req.Title)
	inv.Content = content
	inv.Filename = path
	inv.SubmittedAt = &now
	inv.UpdatedAt = now

	log := logger.WithInvitation(logger.WithContext(ctx, s.log), string(inv.Kind), inv.ID.String())
	log.Info("invitation submission recorded")
	s.recordTransition(ctx, inv.Kind, from, to)

	user := s.invitee(ctx, inv)
	vars, err := s.vars(ctx, inv, user)
	if err != nil {
		return inv, err
	}

	var mailErr error
	if err := s.email.SystemEmail(ctx, LabelOrganiserSubmission, vars); err != nil {
		log.Warn("submission notification not sent", zap.Error(err))
		mailErr = err
	}
	if user != nil {
		if _, err := s.email.Send(ctx, inv.Kind.Label("thanks"), recipient(user), vars); err != nil {
			log.Warn("thank-you email not sent", zap.Error(err))
			if mailErr == nil {
				mailErr = err
			}
		}
	}
	return inv, mailErr
}

func (s *Service) storeFile(ctx context.Context, inv *domain.Invitation, req domain.SubmissionRequest) (string, error) {
	if s.store == nil {
		return "", storage.ErrInvalidPath
	}
	name, err := storage.SanitizeFilename(req.Filename)
	if err != nil {
		return "", err
	}
	conference, err := s.conferences.GetConference(ctx, inv.ConferenceID)
	if err != nil {
		return "", err
	}
	path, err := storage.Join("conferences", strconv.Itoa(conference.Number), "invitations", string(inv.Kind), inv.ID.String()+"-"+name)
	if err != nil {
		return "", err
	}
	if err := s.store.Save(ctx, path, req.File); err != nil {
		return "", fmt.Errorf("store invitation file: %w", err)
	}
	return path, nil
}

// discardFile removes an upload whose submission was not recorded.
func (s *Service) discardFile(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.store.Remove(ctx, path); err != nil {
		logger.WithContext(ctx, s.log).Warn("orphaned invitation file not removed", zap.String("path", path), zap.Error(err))
	}
}

func (s *Service) Revoke(ctx context.Context, id snowflake.ID) (*domain.Invitation, error) {
	var inv *domain.Invitation
	for attempt := 0; ; attempt++ {
		if attempt == maxRevokeAttempts {
			return nil, domain.ErrInvalidStateTransition
		}
		current, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		// The delete is conditional on the status we read so the cancellation decision matches what was removed.
		ok, err := s.repo.DeleteIf(ctx, s.db, id, current.Status)
		if err != nil {
			return nil, err
		}
		if ok {
			inv = current
			break
		}
	}

	log := logger.WithInvitation(logger.WithContext(ctx, s.log), string(inv.Kind), inv.ID.String())
	log.Info("invitation revoked", zap.String("status", string(inv.Status)))
	s.recordTransition(ctx, inv.Kind, inv.Status, "revoked")
	s.emitAudit(ctx, "invitation.revoked", inv, map[string]any{"status": string(inv.Status)})

	if inv.Status != domain.StatusPending && inv.Status != domain.StatusAccepted {
		return inv, nil
	}
	user := s.invitee(ctx, inv)
	if user == nil {
		log.Warn("cancellation skipped, invitee no longer exists")
		return inv, nil
	}
	vars, err := s.vars(ctx, inv, user)
	if err != nil {
		return inv, err
	}
	if _, err := s.email.Send(ctx, inv.Kind.Label("cancellation"), recipient(user), vars); err != nil {
		log.Warn("cancellation email not sent", zap.Error(err))
		return inv, err
	}
	return inv, nil
}

func (s *Service) SendReminder(ctx context.Context, id snowflake.ID, reminder domain.ReminderKind) (*domain.Invitation, error) {
	inv, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	var label, column string
	switch reminder {
	case domain.ReminderInvitation:
		if inv.Status != domain.StatusPending {
			return nil, domain.ErrInvalidStateTransition
		}
		label, column = inv.Kind.Label("reminder"), "invitation_reminders"
	case domain.ReminderSubmission:
		if inv.Status != domain.StatusAccepted || !inv.Kind.AcceptsSubmission() {
			return nil, domain.ErrInvalidStateTransition
		}
		label, column = inv.Kind.Label("submission-reminder"), "submission_reminders"
	default:
		return nil, domain.ErrInvalidReminderKind
	}

	log := logger.WithInvitation(logger.WithContext(ctx, s.log), string(inv.Kind), inv.ID.String())
	user, err := s.users.GetUser(ctx, inv.UserID)
	if err != nil {
		s.deferReminder(ctx, log, inv, reminder)
		return nil, err
	}
	vars, err := s.vars(ctx, inv, user)
	if err != nil {
		s.deferReminder(ctx, log, inv, reminder)
		return nil, err
	}

	if _, err := s.email.Send(ctx, label, recipient(user), vars); err != nil {
		log.Warn("reminder not sent", zap.String("reminder", string(reminder)), zap.Error(err))
		s.deferReminder(ctx, log, inv, reminder)
		return nil, err
	}

	ok, err := s.repo.IncrementReminder(ctx, s.db, inv.ID, column, inv.Status, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn("reminder sent but invitation changed state before the counter update", zap.String("reminder", string(reminder)))
	} else {
		s.activity.IncReminder(string(inv.Kind), string(reminder))
		log.Info("reminder sent", zap.String("reminder", string(reminder)))
	}
	return s.repo.FindByID(ctx, s.db, inv.ID)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Invitation, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) GetBySecret(ctx context.Context, kind, secret string) (*domain.Invitation, error) {
	k, err := domain.ParseKind(kind)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindBySecret(ctx, s.db, k, secret)
}

func (s *Service) Details(ctx context.Context, inv *domain.Invitation) (*domain.Details, error) {
	conference, err := s.conferences.GetConference(ctx, inv.ConferenceID)
	if err != nil {
		return nil, err
	}
	details := &domain.Details{
		Invitation: inv,
		Conference: conference,
		Invitee:    s.invitee(ctx, inv),
	}
	if inv.SubmissionID != nil {
		sub, err := s.conferences.GetSubmission(ctx, *inv.SubmissionID)
		if err != nil {
			return nil, err
		}
		details.Submission = sub
	}
	return details, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Invitation, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.ErrUnknownKind
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.List(ctx, s.db, filter)
}

// deferReminder stamps last_reminded_at after a failed invitation reminder so the sweep retries it
// one window later instead of on every pass. The counter is left alone.
func (s *Service) deferReminder(ctx context.Context, log *zap.Logger, inv *domain.Invitation, reminder domain.ReminderKind) {
	if reminder != domain.ReminderInvitation {
		return
	}
	now := s.clock.Now()
	if _, err := s.repo.TransitionIf(ctx, s.db, inv.ID, inv.Status, map[string]any{
		"last_reminded_at": now,
		"updated_at":       now,
	}); err != nil {
		log.Warn("reminder deferral not recorded", zap.Error(err))
	}
}

func (s *Service) DueForReminder(ctx context.Context, filter domain.DueFilter) ([]domain.Invitation, error) {
	return s.repo.DueForReminder(ctx, s.db, filter)
}

// invitee returns nil when the invited user has been deleted.
func (s *Service) invitee(ctx context.Context, inv *domain.Invitation) *authdomain.User {
	user, err := s.users.GetUser(ctx, inv.UserID)
	if err != nil {
		if !errors.Is(err, authdomain.ErrUserNotFound) {
			logger.WithInvitation(logger.WithContext(ctx, s.log), string(inv.Kind), inv.ID.String()).
				Warn("invitee lookup failed", zap.Error(err))
		}
		return nil
	}
	return user
}

func (s *Service) vars(ctx context.Context, inv *domain.Invitation, user *authdomain.User) (map[string]string, error) {
	details, err := s.Details(ctx, inv)
	if err != nil {
		return nil, err
	}
	sets := []map[string]string{details.Conference.Vars()}
	if details.Submission != nil {
		sets = append(sets, details.Submission.Vars())
	}
	if user != nil {
		sets = append(sets, user.Vars())
	}
	sets = append(sets, map[string]string{
		"kind": string(inv.Kind),
		"link": s.link(inv),
	})
	return emaildomain.MergeVars(sets...), nil
}

func (s *Service) link(inv *domain.Invitation) string {
	return s.siteURL + "/invitation/" + string(inv.Kind) + "/" + inv.Secret
}

func (s *Service) recordTransition(ctx context.Context, kind domain.Kind, from, to domain.Status) {
	s.metrics.RecordInvitationTransition(ctx, string(kind), string(from), string(to))
	s.activity.IncTransition(string(kind), string(to))
}

func (s *Service) emitAudit(ctx context.Context, action string, inv *domain.Invitation, metadata map[string]any) {
	if s.auditSvc == nil || inv == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["kind"] = string(inv.Kind)
	targetID := inv.ID.String()
	_ = s.auditSvc.AuditLog(ctx, "", nil, action, "invitation", &targetID, metadata)
}

func recipient(u *authdomain.User) emaildomain.Recipient {
	return emaildomain.Recipient{Email: u.Email, Firstname: u.Firstname, Lastname: u.Lastname}
}
