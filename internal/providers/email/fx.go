package email

import (
	"fmt"

	"github.com/humesociety/humesociety-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig selects the transport named by EMAIL_PROVIDER.
func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	var (
		provider Provider
		err      error
	)
	switch cfg.Email.Provider {
	case "smtp":
		provider, err = NewSMTP(SMTPConfig{
			Host:          cfg.Email.SMTPHost,
			Port:          cfg.Email.SMTPPort,
			Username:      cfg.Email.SMTPUsername,
			Password:      cfg.Email.SMTPPassword,
			From:          cfg.Email.SMTPFrom,
			SkipTLSVerify: cfg.Email.SMTPSkipTLSVerify,
		})
	case "sendgrid":
		provider, err = NewSendGrid(cfg.Email.SendGridAPIKey, cfg.Email.SMTPFrom)
	case "", "noop":
		provider = NewRecordingProvider()
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Email.Provider)
	}
	if err != nil {
		return nil, err
	}

	log.Info("email transport configured", zap.String("provider", provider.Name()))
	return provider, nil
}
