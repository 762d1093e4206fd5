package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/humesociety/humesociety-sub000/internal/audit"
	"github.com/humesociety/humesociety-sub000/internal/auth"
	"github.com/humesociety/humesociety-sub000/internal/clock"
	"github.com/humesociety/humesociety-sub000/internal/conference"
	"github.com/humesociety/humesociety-sub000/internal/config"
	"github.com/humesociety/humesociety-sub000/internal/email"
	"github.com/humesociety/humesociety-sub000/internal/invitation"
	"github.com/humesociety/humesociety-sub000/internal/metricspush"
	"github.com/humesociety/humesociety-sub000/internal/observability"
	"github.com/humesociety/humesociety-sub000/internal/providers"
	"github.com/humesociety/humesociety-sub000/internal/ratelimit"
	"github.com/humesociety/humesociety-sub000/internal/reminder"
	"github.com/humesociety/humesociety-sub000/internal/storage"
	"github.com/humesociety/humesociety-sub000/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the reminder sweep
		auth.Module,
		audit.Module,
		providers.Module,
		email.Module,
		storage.Module,
		conference.Module,
		invitation.Module,
		ratelimit.Module,
		metricspush.Module,

		// No server module!
		reminder.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(3)
	if err != nil {
		panic(err)
	}
	return node
}
