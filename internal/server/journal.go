package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	journaldomain "github.com/humesociety/humesociety-sub000/internal/journal/domain"
)

type issueRequest struct {
	Volume    int    `json:"volume"`
	Number    int    `json:"number"`
	Year      int    `json:"year"`
	Month     string `json:"month"`
	Editors   string `json:"editors"`
	Published bool   `json:"published"`
}

type articleRequest struct {
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	Position  int    `json:"position"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
	Slug      string `json:"slug"`
}

func (r issueRequest) toDomain() journaldomain.IssueRequest {
	return journaldomain.IssueRequest{
		Volume:    r.Volume,
		Number:    r.Number,
		Year:      r.Year,
		Month:     r.Month,
		Editors:   r.Editors,
		Published: r.Published,
	}
}

func (r articleRequest) toDomain() journaldomain.ArticleRequest {
	return journaldomain.ArticleRequest{
		Title:     r.Title,
		Authors:   r.Authors,
		Position:  r.Position,
		StartPage: r.StartPage,
		EndPage:   r.EndPage,
		Slug:      r.Slug,
	}
}

func (s *Server) ListPublishedIssues(c *gin.Context) {
	s.listIssues(c, true)
}

func (s *Server) ListAllIssues(c *gin.Context) {
	s.listIssues(c, false)
}

func (s *Server) listIssues(c *gin.Context, publishedOnly bool) {
	issues, err := s.journalSvc.ListIssues(c.Request.Context(), publishedOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": issues})
}

func (s *Server) CreateIssue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	issue, err := s.journalSvc.CreateIssue(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	issueID := issue.ID.String()
	s.audit(c, "issue.created", "issue", &issueID, nil)
	c.JSON(http.StatusCreated, gin.H{"data": issue})
}

func (s *Server) UpdateIssue(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	issue, err := s.journalSvc.UpdateIssue(c.Request.Context(), id, req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": issue})
}

func (s *Server) DeleteIssue(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.journalSvc.DeleteIssue(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	issueID := id.String()
	s.audit(c, "issue.deleted", "issue", &issueID, nil)
	c.Status(http.StatusNoContent)
}

func (s *Server) CreateArticle(c *gin.Context) {
	issueID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	article, err := s.journalSvc.CreateArticle(c.Request.Context(), issueID, req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": article})
}

func (s *Server) UpdateArticle(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	article, err := s.journalSvc.UpdateArticle(c.Request.Context(), id, req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": article})
}

func (s *Server) DeleteArticle(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.journalSvc.DeleteArticle(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) UploadArticle(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, journaldomain.ErrFileRequired)
		return
	}
	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()

	article, err := s.journalSvc.UploadArticle(c.Request.Context(), id, file)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": article})
}
