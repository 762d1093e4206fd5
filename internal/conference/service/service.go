package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/conference/domain"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	"github.com/humesociety/humesociety-sub000/internal/observability/logger"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	LabelSubmissionReceived    = "submission-received"
	LabelSubmissionAcceptance  = "submission-acceptance"
	LabelSubmissionRejection   = "submission-rejection"
	LabelOrganiserConfirmation = "organiser-confirmation"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
	Email emaildomain.Service
	Users authdomain.Service
	Store storage.Store
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
	email emaildomain.Service
	users authdomain.Service
	store storage.Store
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("conference.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
		email: p.Email,
		users: p.Users,
		store: p.Store,
	}
}

func (s *Service) CurrentConference(ctx context.Context) (*domain.Conference, error) {
	return s.repo.CurrentConference(ctx, s.db, s.clock.Now())
}

func (s *Service) CreateConference(ctx context.Context, req domain.ConferenceRequest) (*domain.Conference, error) {
	if err := validateConference(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	c := &domain.Conference{
		ID:        s.genID.Generate(),
		CreatedAt: now,
	}
	applyConference(c, req, now)

	if err := s.repo.CreateConference(ctx, s.db, c); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateNumber
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) UpdateConference(ctx context.Context, id snowflake.ID, req domain.ConferenceRequest) (*domain.Conference, error) {
	if err := validateConference(req); err != nil {
		return nil, err
	}

	c, err := s.repo.FindConference(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	applyConference(c, req, s.clock.Now())

	if err := s.repo.SaveConference(ctx, s.db, c); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateNumber
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) GetConference(ctx context.Context, id snowflake.ID) (*domain.Conference, error) {
	return s.repo.FindConference(ctx, s.db, id)
}

func (s *Service) ListConferences(ctx context.Context) ([]domain.Conference, error) {
	return s.repo.ListConferences(ctx, s.db)
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Submission, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	authors := strings.TrimSpace(req.Authors)
	if authors == "" {
		return nil, domain.ErrInvalidAuthors
	}
	if req.File == nil {
		return nil, domain.ErrFileRequired
	}
	filename, err := storage.SanitizeFilename(req.Filename)
	if err != nil {
		return nil, err
	}

	conference, err := s.CurrentConference(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !conference.AcceptingSubmissions(now) {
		return nil, domain.ErrSubmissionsClosed
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	sub := &domain.Submission{
		ID:           s.genID.Generate(),
		ConferenceID: conference.ID,
		UserID:       user.ID,
		Title:        title,
		Authors:      authors,
		Abstract:     strings.TrimSpace(req.Abstract),
		Keywords:     strings.TrimSpace(req.Keywords),
		Status:       domain.SubmissionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	path, err := storage.Join("conferences", strconv.Itoa(conference.Number), "submissions", sub.ID.String()+"-"+filename)
	if err != nil {
		return nil, err
	}
	sub.Filename = path

	if err := s.store.Save(ctx, path, req.File); err != nil {
		return nil, fmt.Errorf("store submission file: %w", err)
	}
	if err := s.repo.CreateSubmission(ctx, s.db, sub); err != nil {
		_ = s.store.Remove(ctx, path)
		return nil, err
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("submission_id", sub.ID.String()))
	log.Info("submission created", zap.Int("conference", conference.Number))

	if _, err := s.email.Send(ctx, LabelSubmissionReceived, recipient(user), emaildomain.MergeVars(conference.Vars(), sub.Vars())); err != nil {
		log.Warn("submission acknowledgement not sent", zap.Error(err))
		return sub, err
	}
	return sub, nil
}

func (s *Service) RecordDecision(ctx context.Context, id snowflake.ID, accepted bool) (*domain.Submission, error) {
	status := domain.SubmissionRejected
	if accepted {
		status = domain.SubmissionAccepted
	}

	if _, err := s.repo.FindSubmission(ctx, s.db, id); err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateSubmissionIf(ctx, s.db, id,
		map[string]any{"decision_emailed": false},
		map[string]any{"status": status, "updated_at": s.clock.Now()},
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidStateTransition
	}

	logger.WithContext(ctx, s.log).Info("submission decision recorded",
		zap.String("submission_id", id.String()),
		zap.String("status", string(status)),
	)
	return s.repo.FindSubmission(ctx, s.db, id)
}

func (s *Service) SendDecisionEmail(ctx context.Context, id snowflake.ID) (*domain.Submission, error) {
	sub, err := s.repo.FindSubmission(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if sub.DecisionEmailed {
		return nil, domain.ErrInvalidStateTransition
	}

	var label string
	switch sub.Status {
	case domain.SubmissionAccepted:
		label = LabelSubmissionAcceptance
	case domain.SubmissionRejected:
		label = LabelSubmissionRejection
	default:
		return nil, domain.ErrInvalidStateTransition
	}

	conference, err := s.repo.FindConference(ctx, s.db, sub.ConferenceID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}

	// Claim the flag first so a concurrent sender loses before any email goes out.
	ok, err := s.repo.UpdateSubmissionIf(ctx, s.db, id,
		map[string]any{"decision_emailed": false, "status": sub.Status},
		map[string]any{"decision_emailed": true, "updated_at": s.clock.Now()},
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidStateTransition
	}

	if _, err := s.email.Send(ctx, label, recipient(user), emaildomain.MergeVars(conference.Vars(), sub.Vars())); err != nil {
		if _, rollbackErr := s.repo.UpdateSubmissionIf(ctx, s.db, id,
			map[string]any{"decision_emailed": true},
			map[string]any{"decision_emailed": false, "updated_at": s.clock.Now()},
		); rollbackErr != nil {
			logger.WithContext(ctx, s.log).Error("failed to release decision flag", zap.String("submission_id", id.String()), zap.Error(rollbackErr))
		}
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("decision emailed", zap.String("submission_id", id.String()), zap.String("label", label))
	return s.repo.FindSubmission(ctx, s.db, id)
}

func (s *Service) Confirm(ctx context.Context, id, userID snowflake.ID) (*domain.Submission, error) {
	sub, err := s.ownedSubmission(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubmissionAccepted || !sub.DecisionEmailed || sub.Confirmed {
		return nil, domain.ErrInvalidStateTransition
	}

	ok, err := s.repo.UpdateSubmissionIf(ctx, s.db, id,
		map[string]any{"status": domain.SubmissionAccepted, "decision_emailed": true, "confirmed": false},
		map[string]any{"confirmed": true, "updated_at": s.clock.Now()},
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidStateTransition
	}
	sub.Confirmed = true

	conference, err := s.repo.FindConference(ctx, s.db, sub.ConferenceID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	vars := emaildomain.MergeVars(conference.Vars(), sub.Vars(), user.Vars())
	if err := s.email.SystemEmail(ctx, LabelOrganiserConfirmation, vars); err != nil {
		logger.WithContext(ctx, s.log).Warn("confirmation notice not sent", zap.String("submission_id", id.String()), zap.Error(err))
		return sub, err
	}
	return sub, nil
}

func (s *Service) UploadFinal(ctx context.Context, id, userID snowflake.ID, filename string, file io.Reader) (*domain.Submission, error) {
	if file == nil {
		return nil, domain.ErrFileRequired
	}
	name, err := storage.SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	sub, err := s.ownedSubmission(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubmissionAccepted || !sub.Confirmed {
		return nil, domain.ErrInvalidStateTransition
	}

	conference, err := s.repo.FindConference(ctx, s.db, sub.ConferenceID)
	if err != nil {
		return nil, err
	}
	path, err := storage.Join("conferences", strconv.Itoa(conference.Number), "finals", sub.ID.String()+"-"+name)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, path, file); err != nil {
		return nil, fmt.Errorf("store final paper: %w", err)
	}

	if _, err := s.repo.UpdateSubmissionIf(ctx, s.db, id,
		map[string]any{"status": domain.SubmissionAccepted},
		map[string]any{"final_filename": path, "updated_at": s.clock.Now()},
	); err != nil {
		return nil, err
	}
	sub.FinalFilename = path
	return sub, nil
}

func (s *Service) GetSubmission(ctx context.Context, id snowflake.ID) (*domain.Submission, error) {
	return s.repo.FindSubmission(ctx, s.db, id)
}

func (s *Service) ListSubmissions(ctx context.Context, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.ListSubmissions(ctx, s.db, filter)
}

func (s *Service) ownedSubmission(ctx context.Context, id, userID snowflake.ID) (*domain.Submission, error) {
	sub, err := s.repo.FindSubmission(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return sub, nil
}

func validateConference(req domain.ConferenceRequest) error {
	if req.Number <= 0 || req.Year <= 0 {
		return domain.ErrInvalidNumber
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() || req.EndDate.Before(req.StartDate) {
		return domain.ErrInvalidDates
	}
	return nil
}

func applyConference(c *domain.Conference, req domain.ConferenceRequest, now time.Time) {
	c.Number = req.Number
	c.Year = req.Year
	c.Town = strings.TrimSpace(req.Town)
	c.Country = strings.TrimSpace(req.Country)
	c.Institution = strings.TrimSpace(req.Institution)
	c.StartDate = req.StartDate.UTC()
	c.EndDate = req.EndDate.UTC()
	c.Deadline = nil
	if req.Deadline != nil {
		deadline := req.Deadline.UTC()
		c.Deadline = &deadline
	}
	c.Open = req.Open
	c.PapersVisible = req.PapersVisible
	c.UpdatedAt = now
}

func recipient(u *authdomain.User) emaildomain.Recipient {
	return emaildomain.Recipient{Email: u.Email, Firstname: u.Firstname, Lastname: u.Lastname}
}
