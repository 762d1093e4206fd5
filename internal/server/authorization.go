package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
)

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeActionWithContext(c *gin.Context, object string, action string) error {
	user, ok := currentUser(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), subject(user), strings.TrimSpace(object), strings.TrimSpace(action))
}

func subject(user *authdomain.User) string {
	return fmt.Sprintf("user:%s", user.ID.String())
}
