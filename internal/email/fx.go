package email

import (
	"github.com/humesociety/humesociety-sub000/internal/email/repository"
	"github.com/humesociety/humesociety-sub000/internal/email/service"
	"go.uber.org/fx"
)

var Module = fx.Module("email.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
