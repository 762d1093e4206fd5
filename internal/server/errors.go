package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/humesociety/humesociety-sub000/internal/audit/domain"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/authorization"
	conferencedomain "github.com/humesociety/humesociety-sub000/internal/conference/domain"
	electiondomain "github.com/humesociety/humesociety-sub000/internal/election/domain"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	invitationdomain "github.com/humesociety/humesociety-sub000/internal/invitation/domain"
	journaldomain "github.com/humesociety/humesociety-sub000/internal/journal/domain"
	membershipdomain "github.com/humesociety/humesociety-sub000/internal/membership/domain"
	"github.com/humesociety/humesociety-sub000/internal/observability/logger"
	pagedomain "github.com/humesociety/humesociety-sub000/internal/page/domain"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("request failed",
				zap.String("error_type", payload.Type),
				zap.Error(lastErr.Err),
			)
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := ""
	if err != nil {
		code = err.Error()
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, conferencedomain.ErrInvalidStateTransition),
		errors.Is(err, invitationdomain.ErrInvalidStateTransition):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_state_transition",
			Message: "invalid state transition",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, emaildomain.ErrTemplateNotFound):
		return http.StatusInternalServerError, errorPayload{
			Type:    "template_missing",
			Message: "email template missing",
		}
	case errors.Is(err, emaildomain.ErrMailSend),
		errors.Is(err, emaildomain.ErrNoOrganisers):
		return http.StatusBadGateway, errorPayload{
			Type:    "mail_send_error",
			Message: "email could not be sent",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var validationErrors = []error{
	ErrInvalidRequest,
	authdomain.ErrInvalidPassword,
	authdomain.ErrInvalidEmail,
	authdomain.ErrInvalidRole,
	conferencedomain.ErrInvalidNumber,
	conferencedomain.ErrInvalidDates,
	conferencedomain.ErrInvalidTitle,
	conferencedomain.ErrInvalidAuthors,
	conferencedomain.ErrInvalidStatus,
	conferencedomain.ErrFileRequired,
	invitationdomain.ErrParentRequired,
	invitationdomain.ErrInvalidReminderKind,
	invitationdomain.ErrContentRequired,
	invitationdomain.ErrInvalidStatus,
	emaildomain.ErrInvalidAudience,
	emaildomain.ErrInvalidLabel,
	emaildomain.ErrInvalidRecipient,
	emaildomain.ErrEmptySubject,
	membershipdomain.ErrUnknownPlan,
	membershipdomain.ErrInvalidReference,
	journaldomain.ErrInvalidIssue,
	journaldomain.ErrInvalidArticle,
	journaldomain.ErrInvalidPages,
	journaldomain.ErrFileRequired,
	pagedomain.ErrInvalidSection,
	pagedomain.ErrInvalidTitle,
	electiondomain.ErrInvalidElection,
	electiondomain.ErrInvalidBallot,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	storage.ErrInvalidFilename,
	storage.ErrInvalidPath,
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, conferencedomain.ErrNotOwner),
		errors.Is(err, electiondomain.ErrNotInGoodStanding):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrUserExists),
		errors.Is(err, conferencedomain.ErrDuplicateNumber),
		errors.Is(err, conferencedomain.ErrSubmissionsClosed),
		errors.Is(err, invitationdomain.ErrSecretCollision),
		errors.Is(err, membershipdomain.ErrDuplicatePayment),
		errors.Is(err, journaldomain.ErrDuplicateIssue),
		errors.Is(err, pagedomain.ErrDuplicateSlug),
		errors.Is(err, electiondomain.ErrDuplicateCandidate),
		errors.Is(err, electiondomain.ErrAlreadyVoted),
		errors.Is(err, electiondomain.ErrElectionNotOpen),
		errors.Is(err, electiondomain.ErrElectionClosed):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	if errors.Is(err, ErrConflict) {
		return "conflict"
	}
	return strings.ReplaceAll(err.Error(), "_", " ")
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, conferencedomain.ErrNotFound),
		errors.Is(err, conferencedomain.ErrNoCurrentConference),
		errors.Is(err, invitationdomain.ErrNotFound),
		errors.Is(err, invitationdomain.ErrUnknownKind),
		errors.Is(err, membershipdomain.ErrPaymentNotFound),
		errors.Is(err, journaldomain.ErrIssueNotFound),
		errors.Is(err, journaldomain.ErrArticleNotFound),
		errors.Is(err, pagedomain.ErrNotFound),
		errors.Is(err, electiondomain.ErrElectionNotFound),
		errors.Is(err, electiondomain.ErrCandidateNotFound),
		errors.Is(err, storage.ErrFileNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasSuffix(code, "_required") {
		return strings.TrimSuffix(code, "_required")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "empty_subject":
		return "subject is required"
	default:
		if strings.HasSuffix(code, "_required") {
			return strings.ReplaceAll(code, "_", " ")
		}
		return "invalid value"
	}
}

// mailFailed reports whether err is only a failed notification after the change was stored.
func mailFailed(err error) bool {
	return errors.Is(err, emaildomain.ErrMailSend) || errors.Is(err, emaildomain.ErrNoOrganisers)
}
