package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumapix/lumapix/internal/catalog"
)

type planView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MonthlyCredits int64  `json:"monthlyCredits"`
	Price          string `json:"price"`
	PriceCents     int64  `json:"priceCents"`
}

type packView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Credits         int64  `json:"credits"`
	Price           string `json:"price"`
	PriceCents      int64  `json:"priceCents"`
	ValidityDays    *int   `json:"validityDays,omitempty"`
	DiscountPercent int    `json:"discountPercent,omitempty"`
}

// GetCatalog serves the current plan and pack definitions. The snapshot is
// immutable, so the response is consistent even while a reload is in flight.
func (s *Server) GetCatalog(c *gin.Context) {
	snapshot := s.catalogHolder.Current()

	plans := make([]planView, 0)
	for _, p := range snapshot.Plans() {
		plans = append(plans, planView{
			ID:             p.ID,
			Name:           p.Name,
			MonthlyCredits: p.MonthlyCredits,
			Price:          catalog.FormatPrice(p.PriceCents),
			PriceCents:     p.PriceCents,
		})
	}

	packs := make([]packView, 0)
	for _, p := range snapshot.Packs() {
		packs = append(packs, packView{
			ID:              p.ID,
			Name:            p.Name,
			Credits:         p.Credits,
			Price:           catalog.FormatPrice(p.PriceCents),
			PriceCents:      p.PriceCents,
			ValidityDays:    p.ValidityDays,
			DiscountPercent: p.DiscountPercent,
		})
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans, "packs": packs})
}
