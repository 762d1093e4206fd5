package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/humesociety/humesociety-sub000/internal/audit/domain"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/election/domain"
	"github.com/humesociety/humesociety-sub000/internal/observability/logger"
	"github.com/humesociety/humesociety-sub000/internal/observability/metrics"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Clock    clock.Clock
	Users    authdomain.Service
	Metrics  *metrics.Metrics    `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	users    authdomain.Service
	metrics  *metrics.Metrics
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("election.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		users:    p.Users,
		metrics:  p.Metrics,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) CreateElection(ctx context.Context, req domain.ElectionRequest) (*domain.Election, error) {
	title := strings.TrimSpace(req.Title)
	if req.Year <= 0 || req.Positions <= 0 || title == "" {
		return nil, domain.ErrInvalidElection
	}
	now := s.clock.Now()
	election := &domain.Election{
		ID:        s.genID.Generate(),
		Year:      req.Year,
		Title:     title,
		Positions: req.Positions,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateElection(ctx, s.db, election); err != nil {
		return nil, err
	}
	s.emitAudit(ctx, "election.created", election.ID, map[string]any{"year": election.Year})
	return election, nil
}

func (s *Service) GetElection(ctx context.Context, id snowflake.ID) (*domain.Election, error) {
	return s.repo.FindElection(ctx, s.db, id)
}

func (s *Service) ListElections(ctx context.Context) ([]domain.Election, error) {
	return s.repo.ListElections(ctx, s.db)
}

func (s *Service) OpenElection(ctx context.Context, id snowflake.ID) (*domain.Election, error) {
	return s.setOpen(ctx, id, true, "election.opened")
}

func (s *Service) CloseElection(ctx context.Context, id snowflake.ID) (*domain.Election, error) {
	return s.setOpen(ctx, id, false, "election.closed")
}

func (s *Service) setOpen(ctx context.Context, id snowflake.ID, open bool, action string) (*domain.Election, error) {
	if _, err := s.repo.FindElection(ctx, s.db, id); err != nil {
		return nil, err
	}
	ok, err := s.repo.SetOpen(ctx, s.db, id, open, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrElectionClosed
	}
	s.emitAudit(ctx, action, id, nil)
	return s.repo.FindElection(ctx, s.db, id)
}

func (s *Service) AddCandidate(ctx context.Context, req domain.CandidateRequest) (*domain.Candidate, error) {
	election, err := s.repo.FindElection(ctx, s.db, req.ElectionID)
	if err != nil {
		return nil, err
	}
	if election.Closed() {
		return nil, domain.ErrElectionClosed
	}
	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	candidate := &domain.Candidate{
		ID:          s.genID.Generate(),
		ElectionID:  election.ID,
		UserID:      user.ID,
		Name:        user.FullName(),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CreateCandidate(ctx, s.db, candidate); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCandidate
		}
		return nil, err
	}
	return candidate, nil
}

func (s *Service) RemoveCandidate(ctx context.Context, electionID, candidateID snowflake.ID) error {
	election, err := s.repo.FindElection(ctx, s.db, electionID)
	if err != nil {
		return err
	}
	if election.Open || election.Closed() {
		return domain.ErrElectionClosed
	}
	ok, err := s.repo.DeleteCandidate(ctx, s.db, electionID, candidateID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrCandidateNotFound
	}
	return nil
}

func (s *Service) ListCandidates(ctx context.Context, electionID snowflake.ID) ([]domain.Candidate, error) {
	if _, err := s.repo.FindElection(ctx, s.db, electionID); err != nil {
		return nil, err
	}
	return s.repo.ListCandidates(ctx, s.db, electionID, false)
}

func (s *Service) CastVote(ctx context.Context, req domain.CastVoteRequest) error {
	choices, err := distinct(req.CandidateIDs)
	if err != nil {
		return err
	}
	user, err := s.users.GetUser(ctx, req.UserID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if !user.InGoodStanding(now) {
		return domain.ErrNotInGoodStanding
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		election, err := s.repo.FindElection(ctx, tx, req.ElectionID)
		if err != nil {
			return err
		}
		if !election.Open {
			return domain.ErrElectionNotOpen
		}
		if len(choices) > election.Positions {
			return domain.ErrInvalidBallot
		}
		count, err := s.repo.CountCandidates(ctx, tx, election.ID, choices)
		if err != nil {
			return err
		}
		if count != int64(len(choices)) {
			return domain.ErrInvalidBallot
		}

		if err := s.repo.CreateBallot(ctx, tx, &domain.Ballot{
			ID:         s.genID.Generate(),
			ElectionID: election.ID,
			UserID:     user.ID,
			CastAt:     now,
		}); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyVoted
			}
			return err
		}
		return s.repo.IncrementVotes(ctx, tx, choices)
	})
	if err != nil {
		return err
	}

	logger.WithContext(ctx, s.log).Info("ballot cast",
		zap.String("election_id", req.ElectionID.String()),
		zap.Int("choices", len(choices)),
	)
	if s.metrics != nil {
		s.metrics.RecordBallotCast(ctx)
	}
	s.emitAudit(ctx, "election.ballot_cast", req.ElectionID, nil)
	return nil
}

func (s *Service) HasVoted(ctx context.Context, electionID, userID snowflake.ID) (bool, error) {
	return s.repo.HasBallot(ctx, s.db, electionID, userID)
}

func (s *Service) Results(ctx context.Context, electionID snowflake.ID) (*domain.Results, error) {
	election, err := s.repo.FindElection(ctx, s.db, electionID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.repo.ListCandidates(ctx, s.db, electionID, true)
	if err != nil {
		return nil, err
	}
	ballots, err := s.repo.CountBallots(ctx, s.db, electionID)
	if err != nil {
		return nil, err
	}
	return &domain.Results{Election: *election, Ballots: ballots, Candidates: candidates}, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, electionID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := electionID.String()
	_ = s.auditSvc.AuditLog(ctx, "", nil, action, "election", &targetID, metadata)
}

func distinct(ids []snowflake.ID) ([]snowflake.ID, error) {
	if len(ids) == 0 {
		return nil, domain.ErrInvalidBallot
	}
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return nil, domain.ErrInvalidBallot
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
