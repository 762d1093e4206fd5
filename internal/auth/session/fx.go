package session

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("auth.session",
	fx.Provide(NewManager),
	fx.Invoke(logCookieScope),
)

func logCookieScope(m *Manager, log *zap.Logger) {
	fields := []zap.Field{
		zap.String("cookie", m.CookieName()),
		zap.String("path", m.Path()),
		zap.Bool("secure", m.Secure()),
	}
	if !m.Secure() {
		log.Warn("member session cookie is not marked secure", fields...)
		return
	}
	log.Info("member session cookie configured", fields...)
}
