package journal

import (
	"github.com/humesociety/humesociety-sub000/internal/journal/domain"
	"github.com/humesociety/humesociety-sub000/internal/journal/service"
	"github.com/humesociety/humesociety-sub000/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("journal.service",
	fx.Provide(repository.ProvideStore[domain.Issue]),
	fx.Provide(repository.ProvideStore[domain.Article]),
	fx.Provide(service.New),
)
