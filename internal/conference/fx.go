package conference

import (
	"github.com/humesociety/humesociety-sub000/internal/conference/repository"
	"github.com/humesociety/humesociety-sub000/internal/conference/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conference.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
