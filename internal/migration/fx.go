package migration

import (
	"context"

	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, users authdomain.Service, log *zap.Logger) error {
		if err := Apply(conn, cfg.DBType); err != nil {
			return err
		}
		return EnsureBootstrapAdmin(context.Background(), cfg, users, log)
	}),
)

// EnsureBootstrapAdmin creates or promotes the configured administrator. It is a no-op without an email.
func EnsureBootstrapAdmin(ctx context.Context, cfg config.Config, users authdomain.Service, log *zap.Logger) error {
	if cfg.Bootstrap.AdminEmail == "" {
		return nil
	}
	admin, err := users.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
	if err != nil {
		return err
	}
	log.Info("bootstrap admin ensured", zap.String("user_id", admin.ID.String()))
	return nil
}
