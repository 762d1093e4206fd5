package page

import (
	"github.com/humesociety/humesociety-sub000/internal/page/domain"
	"github.com/humesociety/humesociety-sub000/internal/page/service"
	"github.com/humesociety/humesociety-sub000/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("page.service",
	fx.Provide(repository.ProvideStore[domain.Page]),
	fx.Provide(service.New),
)
