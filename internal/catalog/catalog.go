// Package catalog holds the static plan and credit-pack tables. The catalog
// is an immutable snapshot built once from configuration and passed by
// reference into every handler; it is never mutated at runtime.
package catalog

import (
	"fmt"
	"sort"
	"time"
)

// PlanDefinition describes a recurring subscription plan.
type PlanDefinition struct {
	ID             string `mapstructure:"id"`
	Name           string `mapstructure:"name"`
	MonthlyCredits int64  `mapstructure:"monthlyCredits"`
	// PriceCents is the plan price in minor currency units. Prices are
	// integers end to end; no floating point anywhere in billing.
	PriceCents    int64  `mapstructure:"priceCents"`
	StripePriceID string `mapstructure:"stripePriceId"`
}

// CreditPackDefinition describes a one-off purchasable credit bundle.
type CreditPackDefinition struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Credits    int64  `mapstructure:"credits"`
	PriceCents int64  `mapstructure:"priceCents"`
	// ValidityDays is nil for packs that never expire.
	ValidityDays    *int   `mapstructure:"validityDays"`
	DiscountPercent int    `mapstructure:"discountPercent"`
	StripePriceID   string `mapstructure:"stripePriceId"`
}

// Catalog is the immutable plan/pack table handed to handlers.
type Catalog struct {
	plans map[string]PlanDefinition
	packs map[string]CreditPackDefinition
}

func New(plans []PlanDefinition, packs []CreditPackDefinition) *Catalog {
	c := &Catalog{
		plans: make(map[string]PlanDefinition, len(plans)),
		packs: make(map[string]CreditPackDefinition, len(packs)),
	}
	for _, p := range plans {
		c.plans[p.ID] = p
	}
	for _, p := range packs {
		c.packs[p.ID] = p
	}
	return c
}

// Plan returns the plan definition for id.
func (c *Catalog) Plan(id string) (PlanDefinition, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// Pack returns the credit pack definition for id.
func (c *Catalog) Pack(id string) (CreditPackDefinition, bool) {
	p, ok := c.packs[id]
	return p, ok
}

// Plans returns all plan definitions ordered by id.
func (c *Catalog) Plans() []PlanDefinition {
	out := make([]PlanDefinition, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Packs returns all pack definitions ordered by id.
func (c *Catalog) Packs() []CreditPackDefinition {
	out := make([]CreditPackDefinition, 0, len(c.packs))
	for _, p := range c.packs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate reports catalog entries that are missing their Stripe price
// reference. Operators run this as a readiness check before go-live.
func (c *Catalog) Validate() []string {
	var missing []string
	for _, p := range c.Plans() {
		if p.StripePriceID == "" {
			missing = append(missing, "plan:"+p.ID)
		}
	}
	for _, p := range c.Packs() {
		if p.StripePriceID == "" {
			missing = append(missing, "pack:"+p.ID)
		}
	}
	return missing
}

// FormatPrice renders minor currency units as a display string.
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// PackExpiry computes the expiry timestamp for a pack purchased at now.
// A nil validity means the pack never expires.
func PackExpiry(now time.Time, validityDays *int) *time.Time {
	if validityDays == nil {
		return nil
	}
	t := now.UTC().AddDate(0, 0, *validityDays)
	return &t
}
