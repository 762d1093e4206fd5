package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invitationdomain "github.com/humesociety/humesociety-sub000/internal/invitation/domain"
)

type invitationSubmitRequest struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
}

type createInvitationRequest struct {
	Kind         string `json:"kind"`
	UserID       string `json:"user_id"`
	SubmissionID string `json:"submission_id"`
	ConferenceID string `json:"conference_id"`
}

type remindInvitationRequest struct {
	Reminder string `json:"reminder"`
}

type listInvitationsQuery struct {
	ConferenceID string `form:"conference_id"`
	SubmissionID string `form:"submission_id"`
	UserID       string `form:"user_id"`
	Kind         string `form:"kind"`
	Status       string `form:"status"`
}

func (s *Server) ShowInvitation(c *gin.Context) {
	ctx := c.Request.Context()
	inv, err := s.invitationSvc.GetBySecret(ctx, c.Param("kind"), c.Param("secret"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	details, err := s.invitationSvc.Details(ctx, inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": details})
}

// ReplyInvitation records accept or decline. A repeated reply is a 409 and sends nothing.
func (s *Server) ReplyInvitation(c *gin.Context) {
	var accepted bool
	switch strings.ToLower(strings.TrimSpace(c.Param("reply"))) {
	case "accept":
		accepted = true
	case "decline":
		accepted = false
	default:
		AbortWithError(c, ErrNotFound)
		return
	}

	inv, err := s.invitationSvc.RecordReply(c.Request.Context(), c.Param("kind"), c.Param("secret"), accepted)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (s *Server) SubmitInvitation(c *gin.Context) {
	var req invitationSubmitRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	submission := invitationdomain.SubmissionRequest{
		Title:   req.Title,
		Content: req.Content,
	}
	if header, err := c.FormFile("file"); err == nil {
		file, err := header.Open()
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		defer file.Close()
		submission.Filename = header.Filename
		submission.File = file
	}

	inv, err := s.invitationSvc.RecordSubmission(c.Request.Context(), c.Param("kind"), c.Param("secret"), submission)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (s *Server) ListInvitations(c *gin.Context) {
	var query listInvitationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var filter invitationdomain.ListFilter
	var err error
	if filter.ConferenceID, err = parseOptionalSnowflakeID(query.ConferenceID); err != nil {
		AbortWithError(c, newValidationError("conference_id", "invalid_conference_id", "invalid conference_id"))
		return
	}
	if filter.SubmissionID, err = parseOptionalSnowflakeID(query.SubmissionID); err != nil {
		AbortWithError(c, newValidationError("submission_id", "invalid_submission_id", "invalid submission_id"))
		return
	}
	if filter.UserID, err = parseOptionalSnowflakeID(query.UserID); err != nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
		return
	}
	if raw := strings.TrimSpace(query.Kind); raw != "" {
		kind, err := invitationdomain.ParseKind(raw)
		if err != nil {
			AbortWithError(c, newValidationError("kind", "invalid_kind", "invalid kind"))
			return
		}
		filter.Kind = kind
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := invitationdomain.Status(strings.ToLower(raw))
		if !status.Valid() {
			AbortWithError(c, invitationdomain.ErrInvalidStatus)
			return
		}
		filter.Status = status
	}

	items, err := s.invitationSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetInvitation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	inv, err := s.invitationSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	details, err := s.invitationSvc.Details(c.Request.Context(), inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": details})
}

// CreateInvitation answers 201 even when the invitation email fails; email_sent tells the organiser to remind.
func (s *Server) CreateInvitation(c *gin.Context) {
	var req createInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	kind, err := invitationdomain.ParseKind(req.Kind)
	if err != nil {
		AbortWithError(c, newValidationError("kind", "invalid_kind", "invalid kind"))
		return
	}
	userID, err := parseOptionalSnowflakeID(req.UserID)
	if err != nil || userID == nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user_id"))
		return
	}
	submissionID, err := parseOptionalSnowflakeID(req.SubmissionID)
	if err != nil {
		AbortWithError(c, newValidationError("submission_id", "invalid_submission_id", "invalid submission_id"))
		return
	}
	conferenceID, err := parseOptionalSnowflakeID(req.ConferenceID)
	if err != nil {
		AbortWithError(c, newValidationError("conference_id", "invalid_conference_id", "invalid conference_id"))
		return
	}

	inv, err := s.invitationSvc.Create(c.Request.Context(), invitationdomain.CreateRequest{
		Kind:         kind,
		UserID:       *userID,
		SubmissionID: submissionID,
		ConferenceID: conferenceID,
	})
	if err != nil && (inv == nil || !mailFailed(err)) {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": inv, "email_sent": err == nil})
}

func (s *Server) RevokeInvitation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	inv, err := s.invitationSvc.Revoke(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (s *Server) RemindInvitation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req remindInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		AbortWithError(c, invalidRequestError())
		return
	}
	reminder := invitationdomain.ReminderInvitation
	if raw := strings.TrimSpace(req.Reminder); raw != "" {
		reminder = invitationdomain.ReminderKind(strings.ToLower(raw))
	}

	inv, err := s.invitationSvc.SendReminder(c.Request.Context(), id, reminder)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inv})
}
