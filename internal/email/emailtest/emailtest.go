// Package emailtest wires the email service against in-memory storage for tests in other packages.
package emailtest

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/humesociety/humesociety-sub000/internal/auth/domain"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/config"
	emaildomain "github.com/humesociety/humesociety-sub000/internal/email/domain"
	"github.com/humesociety/humesociety-sub000/internal/email/repository"
	"github.com/humesociety/humesociety-sub000/internal/email/service"
	emailprovider "github.com/humesociety/humesociety-sub000/internal/providers/email"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Organiser is the notification address used by New.
const Organiser = "organisers@humesociety.org"

// New builds an email service that records messages instead of sending them.
// The templates table must already be migrated on conn.
func New(t *testing.T, conn *gorm.DB, node *snowflake.Node, users authdomain.Service, clk clock.Clock) (emaildomain.Service, *emailprovider.RecordingProvider) {
	t.Helper()

	society := config.DefaultSocietyConfig()
	society.Organisers = []string{Organiser}

	provider := emailprovider.NewRecordingProvider()
	svc := service.New(service.Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.New(conn),
		Provider: provider,
		Users:    users,
		Config:   config.Config{SiteURL: "https://humesociety.test", Email: config.EmailConfig{SMTPFrom: "web@humesociety.test"}},
		Society:  config.NewStaticSocietyConfigHolder(society),
		Clock:    clk,
	})
	return svc, provider
}

// SeedTemplates stores a minimal template for each label.
func SeedTemplates(t *testing.T, svc emaildomain.Service, labels ...string) {
	t.Helper()
	for _, label := range labels {
		_, err := svc.SaveTemplate(context.Background(), emaildomain.SaveTemplateRequest{
			Label:   label,
			Subject: label + " {{ title }}",
			Body:    "<p>" + label + " for {{ firstname }}: {{ link }}</p>",
		})
		if err != nil {
			t.Fatalf("failed to seed template %s: %v", label, err)
		}
	}
}
