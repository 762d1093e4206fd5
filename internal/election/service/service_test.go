package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	authrepository "github.com/humesociety/humesociety-sub000/internal/auth/repository"
	authservice "github.com/humesociety/humesociety-sub000/internal/auth/service"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/election/domain"
	"github.com/humesociety/humesociety-sub000/internal/election/repository"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   domain.Service
	users authdomain.Service
	db    *gorm.DB
	clock *clock.FakeClock
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
		&domain.Election{},
		&domain.Candidate{},
		&domain.Ballot{},
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

	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
		Users: users,
	})
	return testEnv{svc: svc, users: users, db: dbConn, clock: clk}
}

func (env testEnv) member(t *testing.T, email, lastname string, paid bool) *authdomain.User {
	t.Helper()
	user, err := env.users.Register(context.Background(), authdomain.RegisterRequest{
		Email:     email,
		Password:  "correct-password",
		Firstname: "Member",
		Lastname:  lastname,
	})
	require.NoError(t, err)
	if paid {
		until := env.clock.Now().AddDate(1, 0, 0)
		require.NoError(t, env.db.Model(&authdomain.User{}).Where("id = ?", user.ID).Update("dues_paid_until", until).Error)
	}
	return user
}

type ballotFixture struct {
	election   *domain.Election
	candidates []*domain.Candidate
}

func (env testEnv) openElection(t *testing.T, positions int) ballotFixture {
	t.Helper()
	ctx := context.Background()

	election, err := env.svc.CreateElection(ctx, domain.ElectionRequest{Year: 2026, Title: "Executive Committee", Positions: positions})
	require.NoError(t, err)

	var candidates []*domain.Candidate
	for i, name := range []string{"Ashley", "Baier", "Cottrell"} {
		user := env.member(t, name+"@example.com", name, true)
		candidate, err := env.svc.AddCandidate(ctx, domain.CandidateRequest{ElectionID: election.ID, UserID: user.ID, Description: "statement " + string(rune('A'+i))})
		require.NoError(t, err)
		candidates = append(candidates, candidate)
	}

	election, err = env.svc.OpenElection(ctx, election.ID)
	require.NoError(t, err)
	require.True(t, election.Open)
	return ballotFixture{election: election, candidates: candidates}
}

func TestCastVoteCountsAndOrdersResults(t *testing.T) {
	env := newTestService(t)
	fixture := env.openElection(t, 2)
	ctx := context.Background()

	first := env.member(t, "first@example.com", "First", true)
	second := env.member(t, "second@example.com", "Second", true)

	require.NoError(t, env.svc.CastVote(ctx, domain.CastVoteRequest{
		ElectionID:   fixture.election.ID,
		UserID:       first.ID,
		CandidateIDs: []snowflake.ID{fixture.candidates[2].ID, fixture.candidates[1].ID},
	}))
	require.NoError(t, env.svc.CastVote(ctx, domain.CastVoteRequest{
		ElectionID:   fixture.election.ID,
		UserID:       second.ID,
		CandidateIDs: []snowflake.ID{fixture.candidates[2].ID},
	}))

	voted, err := env.svc.HasVoted(ctx, fixture.election.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, voted)

	results, err := env.svc.Results(ctx, fixture.election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), results.Ballots)
	require.Len(t, results.Candidates, 3)
	assert.Equal(t, fixture.candidates[2].ID, results.Candidates[0].ID)
	assert.Equal(t, 2, results.Candidates[0].Votes)
	assert.Equal(t, fixture.candidates[1].ID, results.Candidates[1].ID)
	assert.Equal(t, 1, results.Candidates[1].Votes)
	assert.Equal(t, 0, results.Candidates[2].Votes)
}

func TestSecondBallotRejected(t *testing.T) {
	env := newTestService(t)
	fixture := env.openElection(t, 1)
	ctx := context.Background()
	voter := env.member(t, "voter@example.com", "Voter", true)

	req := domain.CastVoteRequest{ElectionID: fixture.election.ID, UserID: voter.ID, CandidateIDs: []snowflake.ID{fixture.candidates[0].ID}}
	require.NoError(t, env.svc.CastVote(ctx, req))

	req.CandidateIDs = []snowflake.ID{fixture.candidates[1].ID}
	assert.ErrorIs(t, env.svc.CastVote(ctx, req), domain.ErrAlreadyVoted)

	results, err := env.svc.Results(ctx, fixture.election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results.Ballots)
	for _, candidate := range results.Candidates {
		if candidate.ID == fixture.candidates[1].ID {
			assert.Equal(t, 0, candidate.Votes)
		}
	}
}

func TestConcurrentBallotsCountOnce(t *testing.T) {
	env := newTestService(t)
	fixture := env.openElection(t, 1)
	voter := env.member(t, "voter@example.com", "Voter", true)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.svc.CastVote(context.Background(), domain.CastVoteRequest{
				ElectionID:   fixture.election.ID,
				UserID:       voter.ID,
				CandidateIDs: []snowflake.ID{fixture.candidates[0].ID},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	results, err := env.svc.Results(context.Background(), fixture.election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), results.Ballots)
}

func TestCastVoteValidatesBallot(t *testing.T) {
	env := newTestService(t)
	fixture := env.openElection(t, 2)
	ctx := context.Background()
	voter := env.member(t, "voter@example.com", "Voter", true)
	lapsed := env.member(t, "lapsed@example.com", "Lapsed", false)

	other, err := env.svc.CreateElection(ctx, domain.ElectionRequest{Year: 2026, Title: "Nominating Committee", Positions: 1})
	require.NoError(t, err)
	outsider, err := env.svc.AddCandidate(ctx, domain.CandidateRequest{ElectionID: other.ID, UserID: voter.ID})
	require.NoError(t, err)

	cases := []struct {
		name   string
		userID snowflake.ID
		ids    []snowflake.ID
		want   error
	}{
		{"empty", voter.ID, nil, domain.ErrInvalidBallot},
		{"too many", voter.ID, []snowflake.ID{fixture.candidates[0].ID, fixture.candidates[1].ID, fixture.candidates[2].ID}, domain.ErrInvalidBallot},
		{"repeated", voter.ID, []snowflake.ID{fixture.candidates[0].ID, fixture.candidates[0].ID}, domain.ErrInvalidBallot},
		{"other election", voter.ID, []snowflake.ID{outsider.ID}, domain.ErrInvalidBallot},
		{"lapsed member", lapsed.ID, []snowflake.ID{fixture.candidates[0].ID}, domain.ErrNotInGoodStanding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := env.svc.CastVote(ctx, domain.CastVoteRequest{ElectionID: fixture.election.ID, UserID: tc.userID, CandidateIDs: tc.ids})
			assert.ErrorIs(t, err, tc.want)
		})
	}

	voted, err := env.svc.HasVoted(ctx, fixture.election.ID, voter.ID)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestClosedElectionRejectsVotesAndReopen(t *testing.T) {
	env := newTestService(t)
	fixture := env.openElection(t, 1)
	ctx := context.Background()
	voter := env.member(t, "voter@example.com", "Voter", true)

	closed, err := env.svc.CloseElection(ctx, fixture.election.ID)
	require.NoError(t, err)
	assert.False(t, closed.Open)
	assert.True(t, closed.Closed())

	err = env.svc.CastVote(ctx, domain.CastVoteRequest{ElectionID: fixture.election.ID, UserID: voter.ID, CandidateIDs: []snowflake.ID{fixture.candidates[0].ID}})
	assert.ErrorIs(t, err, domain.ErrElectionNotOpen)

	_, err = env.svc.OpenElection(ctx, fixture.election.ID)
	assert.ErrorIs(t, err, domain.ErrElectionClosed)
}

func TestCandidateManagement(t *testing.T) {
	env := newTestService(t)
	ctx := context.Background()

	election, err := env.svc.CreateElection(ctx, domain.ElectionRequest{Year: 2026, Title: "Executive Committee", Positions: 1})
	require.NoError(t, err)
	user := env.member(t, "cand@example.com", "Candidate", true)

	candidate, err := env.svc.AddCandidate(ctx, domain.CandidateRequest{ElectionID: election.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.Equal(t, "Member Candidate", candidate.Name)

	_, err = env.svc.AddCandidate(ctx, domain.CandidateRequest{ElectionID: election.ID, UserID: user.ID})
	assert.ErrorIs(t, err, domain.ErrDuplicateCandidate)

	require.NoError(t, env.svc.RemoveCandidate(ctx, election.ID, candidate.ID))
	assert.ErrorIs(t, env.svc.RemoveCandidate(ctx, election.ID, candidate.ID), domain.ErrCandidateNotFound)

	_, err = env.svc.CreateElection(ctx, domain.ElectionRequest{Year: 2026, Title: "x", Positions: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidElection)
	_, err = env.svc.GetElection(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)
}
