package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/humesociety/humesociety-sub000/internal/audit"
	"github.com/humesociety/humesociety-sub000/internal/auth"
	"github.com/humesociety/humesociety-sub000/internal/authorization"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/conference"
	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/humesociety/humesociety-sub000/internal/election"
	"github.com/humesociety/humesociety-sub000/internal/email"
	"github.com/humesociety/humesociety-sub000/internal/invitation"
	"github.com/humesociety/humesociety-sub000/internal/journal"
	"github.com/humesociety/humesociety-sub000/internal/membership"
	"github.com/humesociety/humesociety-sub000/internal/metricspush"
	"github.com/humesociety/humesociety-sub000/internal/migration"
	"github.com/humesociety/humesociety-sub000/internal/observability"
	"github.com/humesociety/humesociety-sub000/internal/page"
	"github.com/humesociety/humesociety-sub000/internal/providers"
	"github.com/humesociety/humesociety-sub000/internal/ratelimit"
	"github.com/humesociety/humesociety-sub000/internal/reminder"
	"github.com/humesociety/humesociety-sub000/internal/server"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domains
		auth.Module,
		authorization.Module,
		audit.Module,
		providers.Module,
		email.Module,
		storage.Module,
		conference.Module,
		invitation.Module,
		membership.Module,
		journal.Module,
		page.Module,
		election.Module,
		ratelimit.Module,
		metricspush.Module,

		// Schema and seed data before anything serves traffic
		migration.Module,

		server.Module,
		reminder.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
