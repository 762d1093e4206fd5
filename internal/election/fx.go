package election

import (
	"github.com/humesociety/humesociety-sub000/internal/election/repository"
	"github.com/humesociety/humesociety-sub000/internal/election/service"
	"go.uber.org/fx"
)

var Module = fx.Module("election.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
