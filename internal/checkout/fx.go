package checkout

import (
	"github.com/lumapix/lumapix/internal/checkout/repository"
	"github.com/lumapix/lumapix/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
