package auth

import (
	"github.com/humesociety/humesociety-sub000/internal/auth/repository"
	"github.com/humesociety/humesociety-sub000/internal/auth/service"
	"github.com/humesociety/humesociety-sub000/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
)
