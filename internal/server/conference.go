package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	conferencedomain "github.com/humesociety/humesociety-sub000/internal/conference/domain"
)

type conferenceRequest struct {
	Number        int     `json:"number"`
	Year          int     `json:"year"`
	Town          string  `json:"town"`
	Country       string  `json:"country"`
	Institution   string  `json:"institution"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	Deadline      *string `json:"deadline"`
	Open          bool    `json:"open"`
	PapersVisible bool    `json:"papers_visible"`
}

type submitRequest struct {
	Title    string `form:"title"`
	Authors  string `form:"authors"`
	Abstract string `form:"abstract"`
	Keywords string `form:"keywords"`
}

type decisionRequest struct {
	Accepted *bool `json:"accepted"`
}

type listSubmissionsQuery struct {
	ConferenceID string `form:"conference_id"`
	Status       string `form:"status"`
}

func (s *Server) GetCurrentConference(c *gin.Context) {
	conference, err := s.conferenceSvc.CurrentConference(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conference})
}

func (s *Server) ListConferences(c *gin.Context) {
	items, err := s.conferenceSvc.ListConferences(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetConference(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	conference, err := s.conferenceSvc.GetConference(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": conference})
}

func (s *Server) CreateConference(c *gin.Context) {
	req, err := bindConferenceRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	conference, err := s.conferenceSvc.CreateConference(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	conferenceID := conference.ID.String()
	s.audit(c, "conference.created", "conference", &conferenceID, map[string]any{"number": conference.Number})
	c.JSON(http.StatusCreated, gin.H{"data": conference})
}

func (s *Server) UpdateConference(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	req, err := bindConferenceRequest(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	conference, err := s.conferenceSvc.UpdateConference(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	conferenceID := conference.ID.String()
	s.audit(c, "conference.updated", "conference", &conferenceID, nil)
	c.JSON(http.StatusOK, gin.H{"data": conference})
}

func bindConferenceRequest(c *gin.Context) (conferencedomain.ConferenceRequest, error) {
	var req conferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return conferencedomain.ConferenceRequest{}, invalidRequestError()
	}

	start, err := parseOptionalTime(req.StartDate, false)
	if err != nil || start == nil {
		return conferencedomain.ConferenceRequest{}, newValidationError("start_date", "invalid_start_date", "invalid start_date")
	}
	end, err := parseOptionalTime(req.EndDate, true)
	if err != nil || end == nil {
		return conferencedomain.ConferenceRequest{}, newValidationError("end_date", "invalid_end_date", "invalid end_date")
	}
	var deadline *time.Time
	if req.Deadline != nil {
		deadline, err = parseOptionalTime(*req.Deadline, true)
		if err != nil {
			return conferencedomain.ConferenceRequest{}, newValidationError("deadline", "invalid_deadline", "invalid deadline")
		}
	}

	return conferencedomain.ConferenceRequest{
		Number:        req.Number,
		Year:          req.Year,
		Town:          req.Town,
		Country:       req.Country,
		Institution:   req.Institution,
		StartDate:     *start,
		EndDate:       *end,
		Deadline:      deadline,
		Open:          req.Open,
		PapersVisible: req.PapersVisible,
	}, nil
}

func (s *Server) ListSubmissions(c *gin.Context) {
	var query listSubmissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var filter conferencedomain.SubmissionFilter
	conferenceID, err := parseOptionalSnowflakeID(query.ConferenceID)
	if err != nil {
		AbortWithError(c, newValidationError("conference_id", "invalid_conference_id", "invalid conference_id"))
		return
	}
	if conferenceID == nil {
		current, err := s.conferenceSvc.CurrentConference(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		conferenceID = &current.ID
	}
	filter.ConferenceID = conferenceID
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := conferencedomain.SubmissionStatus(strings.ToLower(raw))
		if !status.Valid() {
			AbortWithError(c, conferencedomain.ErrInvalidStatus)
			return
		}
		filter.Status = status
	}

	items, err := s.conferenceSvc.ListSubmissions(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetSubmission(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sub, err := s.conferenceSvc.GetSubmission(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) RecordDecision(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Accepted == nil {
		AbortWithError(c, newValidationError("accepted", "required", "accepted is required"))
		return
	}

	sub, err := s.conferenceSvc.RecordDecision(c.Request.Context(), id, *req.Accepted)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	subID := sub.ID.String()
	s.audit(c, "submission.decided", "submission", &subID, map[string]any{"status": string(sub.Status)})
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) SendDecisionEmail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	sub, err := s.conferenceSvc.SendDecisionEmail(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	subID := sub.ID.String()
	s.audit(c, "submission.decision_emailed", "submission", &subID, map[string]any{"status": string(sub.Status)})
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) ListMySubmissions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	items, err := s.conferenceSvc.ListSubmissions(c.Request.Context(), conferencedomain.SubmissionFilter{UserID: &user.ID})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

// Submit answers 201 once the submission is stored, whether or not the acknowledgement was mailed.
func (s *Server) Submit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, conferencedomain.ErrFileRequired)
		return
	}
	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	sub, err := s.conferenceSvc.Submit(c.Request.Context(), conferencedomain.SubmitRequest{
		UserID:   user.ID,
		Title:    req.Title,
		Authors:  req.Authors,
		Abstract: req.Abstract,
		Keywords: req.Keywords,
		Filename: header.Filename,
		File:     file,
	})
	if err != nil && (sub == nil || !mailFailed(err)) {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": sub, "email_sent": err == nil})
}

func (s *Server) ConfirmSubmission(c *gin.Context) {
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
	sub, err := s.conferenceSvc.Confirm(c.Request.Context(), id, user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (s *Server) UploadFinal(c *gin.Context) {
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
	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, conferencedomain.ErrFileRequired)
		return
	}
	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	sub, err := s.conferenceSvc.UploadFinal(c.Request.Context(), id, user.ID, header.Filename, file)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}
