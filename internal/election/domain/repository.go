package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	CreateElection(ctx context.Context, db *gorm.DB, election *Election) error
	FindElection(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Election, error)
	ListElections(ctx context.Context, db *gorm.DB) ([]Election, error)
	// SetOpen updates the open flag unless the election has been closed.
	SetOpen(ctx context.Context, db *gorm.DB, id snowflake.ID, open bool, at time.Time) (bool, error)

	CreateCandidate(ctx context.Context, db *gorm.DB, candidate *Candidate) error
	DeleteCandidate(ctx context.Context, db *gorm.DB, electionID, candidateID snowflake.ID) (bool, error)
	ListCandidates(ctx context.Context, db *gorm.DB, electionID snowflake.ID, byVotes bool) ([]Candidate, error)
	CountCandidates(ctx context.Context, db *gorm.DB, electionID snowflake.ID, ids []snowflake.ID) (int64, error)
	IncrementVotes(ctx context.Context, db *gorm.DB, ids []snowflake.ID) error

	CreateBallot(ctx context.Context, db *gorm.DB, ballot *Ballot) error
	HasBallot(ctx context.Context, db *gorm.DB, electionID, userID snowflake.ID) (bool, error)
	CountBallots(ctx context.Context, db *gorm.DB, electionID snowflake.ID) (int64, error)
}
