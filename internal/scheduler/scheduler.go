package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lumapix/lumapix/internal/clock"
	creditpackdomain "github.com/lumapix/lumapix/internal/creditpack/domain"
)

var ErrInvalidConfig = errors.New("scheduler dependencies are incomplete")

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Config Config `optional:"true"`
}

// Scheduler periodically deactivates credit packs whose validity window has
// passed. Expiry is otherwise only observed lazily at read time, so the sweep
// keeps the denormalized is_active flag honest for reporting queries.
type Scheduler struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   Config
	clock clock.Clock
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:    p.DB,
		log:   p.Log.Named("scheduler"),
		cfg:   p.Config.withDefaults(),
		clock: p.Clock,
	}, nil
}

// RunOnce performs a single sweep and reports how many packs it deactivated.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	var total int64

	for {
		var ids []snowflake.ID
		err := s.db.WithContext(ctx).
			Model(&creditpackdomain.CreditPack{}).
			Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
			Limit(s.cfg.BatchSize).
			Pluck("id", &ids).Error
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}

		res := s.db.WithContext(ctx).
			Model(&creditpackdomain.CreditPack{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"is_active":  false,
				"updated_at": now,
			})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected

		if len(ids) < s.cfg.BatchSize {
			return total, nil
		}
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.RunOnce(ctx)
			if err != nil {
				s.log.Error("credit pack expiry sweep failed", zap.Error(err))
				continue
			}
			if swept > 0 {
				s.log.Info("deactivated expired credit packs", zap.Int64("count", swept))
			}
		}
	}
}
