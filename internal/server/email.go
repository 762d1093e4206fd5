package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
)

type saveTemplateRequest struct {
	Description string `json:"description"`
	Sender      string `json:"sender"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

type societyEmailRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Sender   string `json:"sender"`
	Audience string `json:"audience"`
}

func (s *Server) ListEmailTemplates(c *gin.Context) {
	items, err := s.emailSvc.ListTemplates(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetEmailTemplate(c *gin.Context) {
	tpl, err := s.emailSvc.GetTemplate(c.Request.Context(), c.Param("label"))
	if err != nil {
		// Looking a template up is not a send; a missing one is an ordinary 404 here.
		if errors.Is(err, emaildomain.ErrTemplateNotFound) {
			err = ErrNotFound
		}
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tpl})
}

func (s *Server) SaveEmailTemplate(c *gin.Context) {
	var req saveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tpl, err := s.emailSvc.SaveTemplate(c.Request.Context(), emaildomain.SaveTemplateRequest{
		Label:       c.Param("label"),
		Description: req.Description,
		Sender:      req.Sender,
		Subject:     req.Subject,
		Body:        req.Body,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "email_template.saved", "email_template", &tpl.Label, nil)
	c.JSON(http.StatusOK, gin.H{"data": tpl})
}

func (s *Server) SendSocietyEmail(c *gin.Context) {
	var req societyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.emailSvc.SocietyEmail(c.Request.Context(), emaildomain.SocietyEmailRequest{
		Subject:  req.Subject,
		Body:     req.Body,
		Sender:   req.Sender,
		Audience: emaildomain.Audience(strings.ToLower(strings.TrimSpace(req.Audience))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "society_email.sent", "society_email", nil, map[string]any{
		"audience": req.Audience,
		"sent":     result.Sent,
		"failed":   result.Failed,
	})
	c.JSON(http.StatusOK, gin.H{"data": result})
}
