package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/humesociety/humesociety-sub000/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectMemberDirectory = "member_directory"
	ObjectUser            = "user"
	ObjectDues            = "dues"
	ObjectSubmission      = "submission"
	ObjectConference      = "conference"
	ObjectInvitation      = "invitation"
	ObjectEmailTemplate   = "email_template"
	ObjectSocietyEmail    = "society_email"
	ObjectIssue           = "issue"
	ObjectPage            = "page"
	ObjectElection        = "election"
	ObjectBallot          = "ballot"
	ObjectAuditLog        = "audit_log"
)

const (
	ActionMemberDirectoryView = "member_directory.view"

	ActionUserView   = "user.view"
	ActionUserManage = "user.manage"

	ActionDuesPay     = "dues.pay"
	ActionDuesReceipt = "dues.receipt"

	ActionSubmissionCreate  = "submission.create"
	ActionSubmissionConfirm = "submission.confirm"
	ActionSubmissionDecide  = "submission.decide"

	ActionConferenceManage    = "conference.manage"
	ActionInvitationManage    = "invitation.manage"
	ActionEmailTemplateManage = "email_template.manage"
	ActionSocietyEmailSend    = "society_email.send"

	ActionIssueManage = "issue.manage"
	ActionPageManage  = "page.manage"

	ActionElectionManage = "election.manage"
	ActionBallotCast     = "ballot.cast"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer persists policies in the casbin_rule table through the gorm adapter.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	return NewEnforcerWithAdapter(adapter)
}

func NewEnforcerWithAdapter(adapter persist.Adapter) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor)
	if err != nil {
		s.auditDecision(ctx, "authorization.denied", actorType, actorID, object, action)
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("denied",
			zap.String("actor", actorType),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDecision(ctx, "authorization.denied", actorType, actorID, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditDecision(ctx, "authorization.granted", actorType, actorID, object, action)
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", "system", nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		userIDStr := userID.String()
		role, err := s.roleForUser(ctx, userID)
		if err != nil {
			return actor, "", "user", &userIDStr, err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), "user", &userIDStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM users
		 WHERE id = ?
		 LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps exactly one role link per subject so role changes take effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDecision(ctx context.Context, auditAction string, actorType string, actorID *string, object string, action string) {
	if s.auditSvc == nil || actorType == "" {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, actorType, actorID, auditAction, "authorization", &targetID, map[string]any{
		"object":  object,
		"action":  action,
		"subject": actorSubject(actorType, actorID),
	})
}

func actorSubject(actorType string, actorID *string) string {
	switch actorType {
	case "system":
		return "system"
	case "user":
		if actorID != nil && strings.TrimSpace(*actorID) != "" {
			return fmt.Sprintf("user:%s", strings.TrimSpace(*actorID))
		}
	}
	return ""
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionSocietyEmailSend, ActionUserManage, ActionElectionManage:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	roles := [][]string{
		{"role:organiser", "role:member"},
		{"role:editor", "role:member"},
		{"role:admin", "role:organiser"},
		{"role:admin", "role:editor"},
		{"role:system", "role:organiser"},
	}
	for _, link := range roles {
		if _, err := enforcer.AddGroupingPolicy(link); err != nil {
			return err
		}
	}

	policies := [][]string{
		// Members
		{"role:member", ObjectMemberDirectory, ActionMemberDirectoryView},
		{"role:member", ObjectDues, ActionDuesPay},
		{"role:member", ObjectDues, ActionDuesReceipt},
		{"role:member", ObjectSubmission, ActionSubmissionCreate},
		{"role:member", ObjectSubmission, ActionSubmissionConfirm},
		{"role:member", ObjectBallot, ActionBallotCast},

		// Conference organisers
		{"role:organiser", ObjectConference, ActionConferenceManage},
		{"role:organiser", ObjectSubmission, ActionSubmissionDecide},
		{"role:organiser", ObjectInvitation, ActionInvitationManage},
		{"role:organiser", ObjectEmailTemplate, ActionEmailTemplateManage},
		{"role:organiser", ObjectUser, ActionUserView},

		// Journal and site editors
		{"role:editor", ObjectIssue, ActionIssueManage},
		{"role:editor", ObjectPage, ActionPageManage},

		// Admins
		{"role:admin", ObjectSocietyEmail, ActionSocietyEmailSend},
		{"role:admin", ObjectUser, ActionUserManage},
		{"role:admin", ObjectElection, ActionElectionManage},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
