package domain

import "errors"

var (
	ErrElectionNotFound   = errors.New("election_not_found")
	ErrCandidateNotFound  = errors.New("candidate_not_found")
	ErrInvalidElection    = errors.New("invalid_election")
	ErrElectionNotOpen    = errors.New("election_not_open")
	ErrElectionClosed     = errors.New("election_closed")
	ErrDuplicateCandidate = errors.New("duplicate_candidate")
	ErrNotInGoodStanding  = errors.New("not_in_good_standing")
	ErrInvalidBallot      = errors.New("invalid_ballot")
	ErrAlreadyVoted       = errors.New("already_voted")
)
