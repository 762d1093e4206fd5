package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pagedomain "github.com/humesociety/humesociety-sub000/internal/page/domain"
)

type pageRequest struct {
	Section  string `json:"section"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Position int    `json:"position"`
}

func (r pageRequest) toDomain() pagedomain.PageRequest {
	return pagedomain.PageRequest{
		Section:  r.Section,
		Slug:     r.Slug,
		Title:    r.Title,
		Content:  r.Content,
		Position: r.Position,
	}
}

// ListSectionPages returns the section's pages in order, rendered with the current site variables.
func (s *Server) ListSectionPages(c *gin.Context) {
	ctx := c.Request.Context()
	pages, err := s.pageSvc.ListSection(ctx, c.Param("section"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	rendered := make([]*pagedomain.Rendered, 0, len(pages))
	for i := range pages {
		out, err := s.pageSvc.Render(ctx, &pages[i])
		if err != nil {
			AbortWithError(c, err)
			return
		}
		rendered = append(rendered, out)
	}
	c.JSON(http.StatusOK, gin.H{"data": rendered})
}

func (s *Server) GetPage(c *gin.Context) {
	ctx := c.Request.Context()
	page, err := s.pageSvc.Get(ctx, c.Param("section"), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	rendered, err := s.pageSvc.Render(ctx, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rendered})
}

func (s *Server) CreatePage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	page, err := s.pageSvc.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageID := page.ID.String()
	s.audit(c, "page.created", "page", &pageID, map[string]any{"section": page.Section, "slug": page.Slug})
	c.JSON(http.StatusCreated, gin.H{"data": page})
}

func (s *Server) UpdatePage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	page, err := s.pageSvc.Update(c.Request.Context(), id, req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page})
}

func (s *Server) DeletePage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := s.pageSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	pageID := id.String()
	s.audit(c, "page.deleted", "page", &pageID, nil)
	c.Status(http.StatusNoContent)
}
