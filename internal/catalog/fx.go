package catalog

import (
	"github.com/lumapix/lumapix/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("catalog",
	fx.Provide(func(cfg config.Config, log *zap.Logger) (*Holder, error) {
		return NewHolder(cfg.CatalogPath, log.Named("catalog"))
	}),
	fx.Invoke(logReadiness),
)

func logReadiness(holder *Holder, log *zap.Logger) {
	if missing := holder.Current().Validate(); len(missing) > 0 {
		log.Named("catalog").Warn("catalog entries missing stripe price references",
			zap.Strings("entries", missing))
	}
}
