package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateElection(ctx context.Context, req ElectionRequest) (*Election, error)
	GetElection(ctx context.Context, id snowflake.ID) (*Election, error)
	ListElections(ctx context.Context) ([]Election, error)
	OpenElection(ctx context.Context, id snowflake.ID) (*Election, error)
	CloseElection(ctx context.Context, id snowflake.ID) (*Election, error)

	AddCandidate(ctx context.Context, req CandidateRequest) (*Candidate, error)
	RemoveCandidate(ctx context.Context, electionID, candidateID snowflake.ID) error
	ListCandidates(ctx context.Context, electionID snowflake.ID) ([]Candidate, error)

	// CastVote records one ballot per member and increments the chosen candidates' votes.
	CastVote(ctx context.Context, req CastVoteRequest) error
	HasVoted(ctx context.Context, electionID, userID snowflake.ID) (bool, error)
	Results(ctx context.Context, electionID snowflake.ID) (*Results, error)
}

type ElectionRequest struct {
	Year      int
	Title     string
	Positions int
}

type CandidateRequest struct {
	ElectionID  snowflake.ID
	UserID      snowflake.ID
	Description string
}

type CastVoteRequest struct {
	ElectionID   snowflake.ID
	UserID       snowflake.ID
	CandidateIDs []snowflake.ID
}

type Results struct {
	Election   Election    `json:"election"`
	Ballots    int64       `json:"ballots"`
	Candidates []Candidate `json:"candidates"`
}
