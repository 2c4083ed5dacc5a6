package ledger

import (
	"github.com/lumapix/lumapix/internal/ledger/repository"
	"github.com/lumapix/lumapix/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
