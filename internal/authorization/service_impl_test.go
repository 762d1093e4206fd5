package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	enforcer, err := NewEnforcerWithAdapter(fileadapter.NewAdapter(""))
	if err != nil {
		t.Fatalf("failed to build enforcer: %v", err)
	}
	return NewService(Params{DB: dbConn, Log: zap.NewNop(), Enforcer: enforcer}), dbConn
}

func seedUser(t *testing.T, dbConn *gorm.DB, id int64, role authdomain.Role) string {
	t.Helper()
	user := authdomain.User{
		ID:       snowflake.ID(id),
		Username: "user" + snowflake.ID(id).String(),
		Email:    snowflake.ID(id).String() + "@example.com",
		Role:     role,
	}
	require.NoError(t, dbConn.Create(&user).Error)
	return "user:" + user.ID.String()
}

func TestRoleHierarchy(t *testing.T) {
	svc, dbConn := newTestService(t)
	ctx := context.Background()

	member := seedUser(t, dbConn, 1, authdomain.RoleMember)
	organiser := seedUser(t, dbConn, 2, authdomain.RoleOrganiser)
	editor := seedUser(t, dbConn, 3, authdomain.RoleEditor)
	admin := seedUser(t, dbConn, 4, authdomain.RoleAdmin)

	cases := []struct {
		actor  string
		object string
		action string
		want   error
	}{
		{member, ObjectBallot, ActionBallotCast, nil},
		{member, ObjectInvitation, ActionInvitationManage, ErrForbidden},
		{organiser, ObjectInvitation, ActionInvitationManage, nil},
		{organiser, ObjectDues, ActionDuesPay, nil},
		{organiser, ObjectPage, ActionPageManage, ErrForbidden},
		{editor, ObjectIssue, ActionIssueManage, nil},
		{editor, ObjectSubmission, ActionSubmissionDecide, ErrForbidden},
		{admin, ObjectInvitation, ActionInvitationManage, nil},
		{admin, ObjectPage, ActionPageManage, nil},
		{admin, ObjectAuditLog, ActionAuditLogView, nil},
		{"system", ObjectInvitation, ActionInvitationManage, nil},
		{"system", ObjectAuditLog, ActionAuditLogView, ErrForbidden},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.actor, tc.object, tc.action)
		if tc.want == nil {
			assert.NoError(t, err, "%s %s", tc.actor, tc.action)
		} else {
			assert.ErrorIs(t, err, tc.want, "%s %s", tc.actor, tc.action)
		}
	}
}

func TestRoleChangeTakesEffect(t *testing.T) {
	svc, dbConn := newTestService(t)
	ctx := context.Background()
	actor := seedUser(t, dbConn, 7, authdomain.RoleAdmin)

	require.NoError(t, svc.Authorize(ctx, actor, ObjectElection, ActionElectionManage))

	require.NoError(t, dbConn.Model(&authdomain.User{}).Where("id = ?", 7).Update("role", authdomain.RoleMember).Error)
	assert.ErrorIs(t, svc.Authorize(ctx, actor, ObjectElection, ActionElectionManage), ErrForbidden)
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "", ObjectPage, ActionPageManage), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:1", ObjectPage, ActionPageManage), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:abc", ObjectPage, ActionPageManage), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "system", "", ActionPageManage), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "system", ObjectPage, " "), ErrInvalidAction)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:99", ObjectPage, ActionPageManage), ErrForbidden)
}
