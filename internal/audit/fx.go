package audit

import (
	"github.com/humesociety/humesociety-sub000/internal/audit/repository"
	"github.com/humesociety/humesociety-sub000/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
