package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	membershipdomain "github.com/humesociety/humesociety-sub000/internal/membership/domain"
)

type duesPlanView struct {
	Name      string `json:"name"`
	Years     int    `json:"years"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
	Lifetime  bool   `json:"lifetime"`
}

type recordPaymentRequest struct {
	Plan      string `json:"plan"`
	Reference string `json:"reference"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type listUsersQuery struct {
	Role        string `form:"role"`
	MailingList bool   `form:"mailing_list"`
}

// memberView is the directory entry other members see; contact details beyond email stay private.
type memberView struct {
	ID          string `json:"id"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Email       string `json:"email"`
	Institution string `json:"institution"`
	Country     string `json:"country"`
}

func (s *Server) ListDuesPlans(c *gin.Context) {
	plans := s.membershipSvc.Plans(c.Request.Context())
	views := make([]duesPlanView, 0, len(plans))
	for _, plan := range plans {
		views = append(views, duesPlanView{
			Name:      plan.Name,
			Years:     plan.Years,
			Amount:    plan.Amount,
			Currency:  plan.Currency,
			Formatted: membershipdomain.FormatAmount(plan.Amount, plan.Currency),
			Lifetime:  plan.Lifetime,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) ListUsers(c *gin.Context) {
	var query listUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := authdomain.UserFilter{MailingList: query.MailingList}
	if raw := strings.TrimSpace(query.Role); raw != "" {
		role, ok := authdomain.ParseRole(raw)
		if !ok {
			AbortWithError(c, authdomain.ErrInvalidRole)
			return
		}
		filter.Role = role
	}

	users, err := s.authsvc.ListUsers(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

// ListMembers is the member directory: members in good standing only, open to members who are themselves in good standing.
func (s *Server) ListMembers(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if user.Role != authdomain.RoleAdmin && !user.InGoodStanding(s.clock.Now()) {
		AbortWithError(c, ErrForbidden)
		return
	}

	members, err := s.membershipSvc.ListMembers(c.Request.Context(), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	views := make([]memberView, 0, len(members))
	for _, member := range members {
		views = append(views, memberView{
			ID:          member.ID.String(),
			Firstname:   member.Firstname,
			Lastname:    member.Lastname,
			Email:       member.Email,
			Institution: member.Institution,
			Country:     member.Country,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) SetUserRole(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	role, ok := authdomain.ParseRole(req.Role)
	if !ok {
		AbortWithError(c, authdomain.ErrInvalidRole)
		return
	}
	if err := s.authsvc.SetRole(c.Request.Context(), id, role); err != nil {
		AbortWithError(c, err)
		return
	}

	userID := id.String()
	s.audit(c, "user.role_changed", "user", &userID, map[string]any{"role": string(role)})
	c.Status(http.StatusNoContent)
}

func (s *Server) ListMyPayments(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	payments, err := s.membershipSvc.ListPayments(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments})
}

func (s *Server) RecordDuesPayment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.membershipSvc.RecordDuesPayment(c.Request.Context(), membershipdomain.RecordPaymentRequest{
		UserID:    user.ID,
		Plan:      req.Plan,
		Reference: req.Reference,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

// DownloadReceipt streams the PDF receipt. Admins may fetch any member's receipt.
func (s *Server) DownloadReceipt(c *gin.Context) {
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

	var owner *snowflake.ID
	if user.Role != authdomain.RoleAdmin {
		owner = &user.ID
	}
	receipt, err := s.membershipSvc.Receipt(c.Request.Context(), id, owner)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, -1, "application/pdf", receipt, map[string]string{
		"Content-Disposition": `attachment; filename="receipt-` + id.String() + `.pdf"`,
	})
}
