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
	"github.com/humesociety/humesociety-sub000/internal/observability"
	"github.com/humesociety/humesociety-sub000/internal/page"
	"github.com/humesociety/humesociety-sub000/internal/providers"
	"github.com/humesociety/humesociety-sub000/internal/ratelimit"
	"github.com/humesociety/humesociety-sub000/internal/server"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"go.uber.org/fx"
)

// The API process serves HTTP only. Reminders run in apps/scheduler.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

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

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
