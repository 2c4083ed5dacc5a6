package catalog

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultPlans is the built-in plan table, used when no catalog file exists.
func DefaultPlans() []PlanDefinition {
	return []PlanDefinition{
		{ID: "basic", Name: "Basic", MonthlyCredits: 100, PriceCents: 999, StripePriceID: "price_basic_monthly"},
		{ID: "pro", Name: "Pro", MonthlyCredits: 300, PriceCents: 1999, StripePriceID: "price_pro_monthly"},
		{ID: "studio", Name: "Studio", MonthlyCredits: 1000, PriceCents: 4999, StripePriceID: "price_studio_monthly"},
	}
}

// DefaultPacks is the built-in credit-pack table.
func DefaultPacks() []CreditPackDefinition {
	return []CreditPackDefinition{
		{ID: "starter", Name: "Starter Pack", Credits: 100, PriceCents: 499, ValidityDays: intPtr(90), StripePriceID: "price_pack_starter"},
		{ID: "plus", Name: "Plus Pack", Credits: 500, PriceCents: 1999, ValidityDays: intPtr(180), DiscountPercent: 10, StripePriceID: "price_pack_plus"},
		{ID: "mega", Name: "Mega Pack", Credits: 1500, PriceCents: 4999, ValidityDays: nil, DiscountPercent: 20, StripePriceID: "price_pack_mega"},
	}
}

func intPtr(v int) *int { return &v }

type fileCatalog struct {
	Plans []PlanDefinition       `mapstructure:"plans"`
	Packs []CreditPackDefinition `mapstructure:"packs"`
}

// Holder serves the current catalog snapshot and swaps it atomically when the
// catalog file changes on disk.
type Holder struct {
	current atomic.Value // holds *Catalog
}

// NewHolder loads the catalog from catalog.yml under searchPath, falling back
// to the built-in defaults, and watches the file for changes.
func NewHolder(searchPath string, log *zap.Logger) (*Holder, error) {
	v := viper.New()
	v.SetConfigName("catalog")
	v.SetConfigType("yml")
	if strings.TrimSpace(searchPath) != "" {
		v.AddConfigPath(searchPath)
	}
	v.AddConfigPath(".")

	holder := &Holder{}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		holder.current.Store(New(DefaultPlans(), DefaultPacks()))
		return holder, nil
	}

	cat, err := decode(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cat)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decode(v)
		if err != nil {
			log.Warn("invalid catalog file ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("catalog reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Current returns the active catalog snapshot.
func (h *Holder) Current() *Catalog {
	return h.current.Load().(*Catalog)
}

func decode(v *viper.Viper) (*Catalog, error) {
	var file fileCatalog
	if err := v.Unmarshal(&file); err != nil {
		return nil, err
	}
	if len(file.Plans) == 0 {
		file.Plans = DefaultPlans()
	}
	if len(file.Packs) == 0 {
		file.Packs = DefaultPacks()
	}
	if err := validateDefinitions(file.Plans, file.Packs); err != nil {
		return nil, err
	}
	return New(file.Plans, file.Packs), nil
}

func validateDefinitions(plans []PlanDefinition, packs []CreditPackDefinition) error {
	seen := map[string]struct{}{}
	for _, p := range plans {
		if strings.TrimSpace(p.ID) == "" {
			return errors.New("plan with empty id")
		}
		if _, dup := seen["plan:"+p.ID]; dup {
			return errors.New("duplicate plan id " + p.ID)
		}
		seen["plan:"+p.ID] = struct{}{}
		if p.MonthlyCredits <= 0 || p.PriceCents < 0 {
			return errors.New("invalid plan " + p.ID)
		}
	}
	for _, p := range packs {
		if strings.TrimSpace(p.ID) == "" {
			return errors.New("pack with empty id")
		}
		if _, dup := seen["pack:"+p.ID]; dup {
			return errors.New("duplicate pack id " + p.ID)
		}
		seen["pack:"+p.ID] = struct{}{}
		if p.Credits <= 0 || p.PriceCents < 0 {
			return errors.New("invalid pack " + p.ID)
		}
		if p.ValidityDays != nil && *p.ValidityDays <= 0 {
			return errors.New("invalid validity for pack " + p.ID)
		}
	}
	return nil
}
