package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	electiondomain "github.com/humesociety/humesociety-sub000/internal/election/domain"
)

type electionRequest struct {
	Year      int    `json:"year"`
	Title     string `json:"title"`
	Positions int    `json:"positions"`
}

type candidateRequest struct {
	UserID      string `json:"user_id"`
	Description string `json:"description"`
}

type voteRequest struct {
	CandidateIDs []string `json:"candidate_ids"`
}

func (s *Server) ListElections(c *gin.Context) {
	items, err := s.electionSvc.ListElections(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// GetElectionBallot shows an election with its candidates and whether the member already voted.
// Vote counts are withheld until the election closes.
func (s *Server) GetElectionBallot(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	election, err := s.electionSvc.GetElection(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	candidates, err := s.electionSvc.ListCandidates(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !election.Closed() {
		for i := range candidates {
			candidates[i].Votes = 0
		}
	}
	voted, err := s.electionSvc.HasVoted(ctx, id, user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       election,
		"candidates": candidates,
		"voted":      voted,
	})
}

func (s *Server) CastVote(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	choices := make([]snowflake.ID, 0, len(req.CandidateIDs))
	for _, raw := range req.CandidateIDs {
		candidateID, err := parseOptionalSnowflakeID(raw)
		if err != nil || candidateID == nil {
			AbortWithError(c, electiondomain.ErrInvalidBallot)
			return
		}
		choices = append(choices, *candidateID)
	}

	if err := s.electionSvc.CastVote(c.Request.Context(), electiondomain.CastVoteRequest{
		ElectionID:   id,
		UserID:       user.ID,
		CandidateIDs: choices,
	}); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) CreateElection(c *gin.Context) {
	var req electionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	election, err := s.electionSvc.CreateElection(c.Request.Context(), electiondomain.ElectionRequest{
		Year:      req.Year,
		Title:     req.Title,
		Positions: req.Positions,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": election})
}

func (s *Server) OpenElection(c *gin.Context) {
	s.setElectionOpen(c, true)
}

func (s *Server) CloseElection(c *gin.Context) {
	s.setElectionOpen(c, false)
}

func (s *Server) setElectionOpen(c *gin.Context, open bool) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var election *electiondomain.Election
	if open {
		election, err = s.electionSvc.OpenElection(c.Request.Context(), id)
	} else {
		election, err = s.electionSvc.CloseElection(c.Request.Context(), id)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": election})
}

func (s *Server) AddCandidate(c *gin.Context) {
	electionID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req candidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := parseOptionalSnowflakeID(req.UserID)
	if err != nil || userID == nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
		return
	}

	candidate, err := s.electionSvc.AddCandidate(c.Request.Context(), electiondomain.CandidateRequest{
		ElectionID:  electionID,
		UserID:      *userID,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": candidate})
}

func (s *Server) RemoveCandidate(c *gin.Context) {
	electionID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	candidateID, err := pathID(c, "candidateId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.electionSvc.RemoveCandidate(c.Request.Context(), electionID, candidateID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ElectionResults(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	results, err := s.electionSvc.Results(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}
