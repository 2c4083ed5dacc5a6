package subscription

import (
	"github.com/lumapix/lumapix/internal/subscription/repository"
	"github.com/lumapix/lumapix/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
