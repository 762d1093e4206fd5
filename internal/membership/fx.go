package membership

import (
	"github.com/humesociety/humesociety-sub000/internal/membership/repository"
	"github.com/humesociety/humesociety-sub000/internal/membership/service"
	"go.uber.org/fx"
)

var Module = fx.Module("membership.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
