package invitation

import (
	"github.com/humesociety/humesociety-sub000/internal/invitation/repository"
	"github.com/humesociety/humesociety-sub000/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
