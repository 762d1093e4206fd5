package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	obscontext "github.com/humesociety/humesociety-sub000/internal/observability/context"
	"github.com/humesociety/humesociety-sub000/internal/observability/logger"
	"go.uber.org/zap"
)

const contextUserKey = "current_user"

// AuthRequired resolves the session cookie to a user and puts it on the request.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		user, err := s.authsvc.GetUser(c.Request.Context(), session.UserID)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextUserKey, user)
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "user", user.ID.String()))
		c.Next()
	}
}

func currentUser(c *gin.Context) (*authdomain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*authdomain.User)
	return user, ok && user != nil
}

// SecretLinkRateLimit throttles the unauthenticated invitation links per client IP.
// A Redis failure lets the request through.
func (s *Server) SecretLinkRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.secretLinkLimiter == nil || !s.secretLinkLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := s.secretLinkLimiter.Allow(ctx, c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("secret link rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if result != nil && !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(ctx, c.FullPath())
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
