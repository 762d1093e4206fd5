package migration

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	authrepository "github.com/humesociety/humesociety-sub000/internal/auth/repository"
	authservice "github.com/humesociety/humesociety-sub000/internal/auth/service"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/config"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAutoMigrateSeedsDefaultTemplates(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, Apply(conn, "sqlite"))

	var count int64
	require.NoError(t, conn.Model(&emaildomain.Template{}).Count(&count).Error)
	assert.Equal(t, int64(24), count)

	var tpl emaildomain.Template
	require.NoError(t, conn.Where("label = ?", "review-invitation").First(&tpl).Error)
	assert.Contains(t, tpl.Body, "{{ link }}")
	assert.Contains(t, tpl.Subject, "{{ conference }}")

	var chair int64
	require.NoError(t, conn.Model(&emaildomain.Template{}).Where("label = ?", "chair-submission-reminder").Count(&chair).Error)
	assert.Zero(t, chair)
}

func TestAutoMigrateKeepsEditedTemplates(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))

	require.NoError(t, conn.Model(&emaildomain.Template{}).
		Where("label = ?", "paper-thanks").
		Update("subject", "Edited").Error)

	require.NoError(t, AutoMigrate(conn))

	var tpl emaildomain.Template
	require.NoError(t, conn.Where("label = ?", "paper-thanks").First(&tpl).Error)
	assert.Equal(t, "Edited", tpl.Subject)
}

func TestApplyRequiresConnection(t *testing.T) {
	assert.Error(t, Apply(nil, "sqlite"))
	assert.Error(t, RunMigrations(nil))
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	userRepo, sessionRepo := authrepository.New(conn)
	users := authservice.New(zap.NewNop(), userRepo, sessionRepo, node, clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)))

	var cfg config.Config
	require.NoError(t, EnsureBootstrapAdmin(context.Background(), cfg, users, zap.NewNop()))
	var total int64
	require.NoError(t, conn.Model(&authdomain.User{}).Count(&total).Error)
	assert.Zero(t, total)

	cfg.Bootstrap = config.BootstrapConfig{AdminEmail: "admin@example.com", AdminPassword: "bootstrap-password"}
	require.NoError(t, EnsureBootstrapAdmin(context.Background(), cfg, users, zap.NewNop()))
	require.NoError(t, EnsureBootstrapAdmin(context.Background(), cfg, users, zap.NewNop()))

	admin, err := users.FindByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, authdomain.RoleAdmin, admin.Role)
}
