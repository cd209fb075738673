// Package pricing holds the storefront's price and discount rules. Every
// page that shows a trip, course or package price goes through Display so the
// catalog, the quote endpoint and the invoice amount agree.
package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"topdivers/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultZeroLabel is shown instead of a price of zero.
const DefaultZeroLabel = "Contact us"

// PriceDisplay is the price a customer sees for a given party size.
type PriceDisplay struct {
	BasePrice  int64   `json:"base_price"`
	FinalPrice int64   `json:"final_price"`
	Discounted bool    `json:"discounted"`
	Percentage float64 `json:"discount_percentage,omitempty"`
	Savings    int64   `json:"savings,omitempty"`
	Hint       string  `json:"hint,omitempty"`
}

// Round matches JavaScript Math.round: halves go towards +Inf.
func Round(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// Display computes the displayed price of base for partySize people.
//
// A discount with neither always_available nor requires_min_people set is
// applied unconditionally. always_available wins over the minimum.
func Display(base float64, cfg models.DiscountConfig, partySize int) PriceDisplay {
	d := PriceDisplay{BasePrice: Round(base)}
	d.FinalPrice = d.BasePrice

	pct := clampPercentage(cfg.DiscountPercentage)
	if !cfg.HasDiscount || pct <= 0 {
		return d
	}

	if !cfg.AlwaysAvailable && cfg.RequiresMinPeople {
		minPeople := cfg.MinPeople
		if minPeople < 1 {
			minPeople = 1
		}
		if partySize < minPeople {
			d.Hint = fmt.Sprintf("Book %d+ people to save %s%%", minPeople, formatPercent(pct))
			return d
		}
	}

	d.FinalPrice = Round(base * (1 - pct/100))
	d.Discounted = true
	d.Percentage = pct
	d.Savings = d.BasePrice - d.FinalPrice
	return d
}

// Quote is a priced party for one activity.
type Quote struct {
	Activity   string       `json:"activity"`
	ActivityID int64        `json:"activity_id"`
	Adults     int          `json:"adults"`
	Children   int          `json:"children,omitempty"`
	UnitPrice  float64      `json:"unit_price"`
	ChildPrice float64      `json:"child_price,omitempty"`
	Subtotal   float64      `json:"subtotal"`
	Display    PriceDisplay `json:"display"`
}

// PartySize is the head count the group discount looks at.
func (q Quote) PartySize() int {
	return q.Adults + q.Children
}

// Amount is what gets submitted as the invoice amount.
func (q Quote) Amount() int64 {
	return q.Display.FinalPrice
}

// QuoteTrip prices adults and children for a trip. Children pay the adult
// price when the trip has no child price.
func QuoteTrip(t models.Trip, adults, children int) Quote {
	if adults < 0 {
		adults = 0
	}
	if children < 0 {
		children = 0
	}
	adultPrice := t.AdultPrice.Float()
	childPrice := adultPrice
	if t.ChildPrice != nil {
		childPrice = t.ChildPrice.Float()
	}
	subtotal := adultPrice*float64(adults) + childPrice*float64(children)
	return Quote{
		Activity:   models.ActivityTrip,
		ActivityID: t.ID,
		Adults:     adults,
		Children:   children,
		UnitPrice:  adultPrice,
		ChildPrice: childPrice,
		Subtotal:   subtotal,
		Display:    Display(subtotal, t.DiscountConfig, adults+children),
	}
}

// QuoteCourse prices a course enrollment for people participants.
func QuoteCourse(c models.Course, people int) Quote {
	if people < 0 {
		people = 0
	}
	subtotal := c.Price.Float() * float64(people)
	return Quote{
		Activity:   models.ActivityCourse,
		ActivityID: c.ID,
		Adults:     people,
		UnitPrice:  c.Price.Float(),
		Subtotal:   subtotal,
		Display:    Display(subtotal, c.DiscountConfig, people),
	}
}

// PreviewBreakdown estimates the checkout breakdown before the server
// confirms it: the group discount comes first, the promo percentage applies
// to what remains. The server's breakdown always replaces this one.
func PreviewBreakdown(base float64, cfg models.DiscountConfig, partySize int, promoPct float64, code string) models.DiscountBreakdown {
	group := Display(base, cfg, partySize)
	out := models.DiscountBreakdown{
		BasePrice:  models.Amount(group.BasePrice),
		FinalPrice: models.Amount(group.FinalPrice),
	}

	if group.Discounted {
		out.GroupDiscount = &models.GroupDiscount{
			Percentage:     group.Percentage,
			Amount:         models.Amount(group.Savings),
			AppliedBecause: appliedBecause(cfg, partySize),
		}
	}

	promoPct = clampPercentage(promoPct)
	code = strings.ToUpper(strings.TrimSpace(code))
	if promoPct > 0 && code != "" {
		promo := Round(float64(group.FinalPrice) * promoPct / 100)
		out.PromoDiscount = &models.PromoDiscount{
			Percentage: promoPct,
			Amount:     models.Amount(promo),
			Code:       code,
		}
		out.FinalPrice -= models.Amount(promo)
	}
	return out
}

func appliedBecause(cfg models.DiscountConfig, partySize int) string {
	switch {
	case cfg.AlwaysAvailable:
		return "always available"
	case cfg.RequiresMinPeople:
		return fmt.Sprintf("group of %d (minimum %d)", partySize, cfg.MinPeople)
	default:
		return "activity discount"
	}
}

// FormatPrice renders a rounded amount with thousands separators. A zero
// price renders zeroLabel, DefaultZeroLabel when empty.
func FormatPrice(amount float64, currency, zeroLabel string) string {
	if Round(amount) == 0 {
		if zeroLabel == "" {
			return DefaultZeroLabel
		}
		return zeroLabel
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d %s", Round(amount), strings.ToUpper(currency))
}

func clampPercentage(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
