package creditpack

import (
	"github.com/lumapix/lumapix/internal/creditpack/repository"
	"github.com/lumapix/lumapix/internal/creditpack/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditpack.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
