package pricing

import (
	"testing"

	"topdivers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	assert.Equal(t, int64(3), Round(2.5))
	assert.Equal(t, int64(2), Round(2.49))
	assert.Equal(t, int64(-2), Round(-2.5))
	assert.Equal(t, int64(85), Round(100*(1-0.15)))
}

func TestDisplay_NoDiscount(t *testing.T) {
	cfg := models.DiscountConfig{HasDiscount: false, DiscountPercentage: 20, AlwaysAvailable: true}
	for _, party := range []int{0, 1, 5, 50} {
		d := Display(99.5, cfg, party)
		assert.Equal(t, int64(100), d.FinalPrice)
		assert.Equal(t, d.BasePrice, d.FinalPrice)
		assert.False(t, d.Discounted)
		assert.Empty(t, d.Hint)
	}
}

func TestDisplay_AlwaysAvailable(t *testing.T) {
	cfg := models.DiscountConfig{
		HasDiscount:        true,
		DiscountPercentage: 15,
		AlwaysAvailable:    true,
		RequiresMinPeople:  true,
		MinPeople:          10,
	}
	for _, party := range []int{1, 2, 10} {
		d := Display(1234, cfg, party)
		assert.True(t, d.Discounted)
		assert.Equal(t, Round(1234*(1-15.0/100)), d.FinalPrice)
		assert.Equal(t, int64(1049), d.FinalPrice)
		assert.Equal(t, int64(185), d.Savings)
	}
}

func TestDisplay_RequiresMinPeople(t *testing.T) {
	cfg := models.DiscountConfig{
		HasDiscount:        true,
		DiscountPercentage: 10,
		RequiresMinPeople:  true,
		MinPeople:          4,
	}

	tests := []struct {
		party      int
		discounted bool
		final      int64
	}{
		{1, false, 500},
		{3, false, 500},
		{4, true, 450},
		{8, true, 450},
	}
	for _, tt := range tests {
		d := Display(500, cfg, tt.party)
		assert.Equal(t, tt.discounted, d.Discounted, "party %d", tt.party)
		assert.Equal(t, tt.final, d.FinalPrice, "party %d", tt.party)
		if tt.discounted {
			assert.Empty(t, d.Hint)
		} else {
			assert.Equal(t, "Book 4+ people to save 10%", d.Hint)
		}
	}
}

func TestDisplay_EdgeCases(t *testing.T) {
	t.Run("NoFlagsAppliesDiscount", func(t *testing.T) {
		d := Display(200, models.DiscountConfig{HasDiscount: true, DiscountPercentage: 25}, 1)
		assert.True(t, d.Discounted)
		assert.Equal(t, int64(150), d.FinalPrice)
	})

	t.Run("ZeroPercentage", func(t *testing.T) {
		d := Display(200, models.DiscountConfig{HasDiscount: true, AlwaysAvailable: true}, 1)
		assert.False(t, d.Discounted)
		assert.Equal(t, int64(200), d.FinalPrice)
	})

	t.Run("PercentageClamped", func(t *testing.T) {
		d := Display(200, models.DiscountConfig{HasDiscount: true, DiscountPercentage: 150, AlwaysAvailable: true}, 1)
		assert.Equal(t, int64(0), d.FinalPrice)
	})

	t.Run("FractionalHint", func(t *testing.T) {
		d := Display(200, models.DiscountConfig{HasDiscount: true, DiscountPercentage: 12.5, RequiresMinPeople: true, MinPeople: 3}, 1)
		assert.Equal(t, "Book 3+ people to save 12.5%", d.Hint)
	})
}

func TestQuoteTrip(t *testing.T) {
	child := models.Amount(50)
	trip := models.Trip{
		ID:         7,
		AdultPrice: 100,
		ChildPrice: &child,
		DiscountConfig: models.DiscountConfig{
			HasDiscount:        true,
			DiscountPercentage: 10,
			RequiresMinPeople:  true,
			MinPeople:          3,
		},
	}

	q := QuoteTrip(trip, 2, 1)
	assert.Equal(t, 250.0, q.Subtotal)
	assert.Equal(t, 3, q.PartySize())
	assert.Equal(t, int64(225), q.Amount())
	assert.Equal(t, models.ActivityTrip, q.Activity)

	q = QuoteTrip(trip, 2, 0)
	assert.Equal(t, int64(200), q.Amount())
	assert.NotEmpty(t, q.Display.Hint)

	trip.ChildPrice = nil
	q = QuoteTrip(trip, 1, 1)
	assert.Equal(t, 200.0, q.Subtotal)
}

func TestQuoteCourse(t *testing.T) {
	course := models.Course{ID: 3, Price: 3333.3}
	q := QuoteCourse(course, 1)
	assert.Equal(t, int64(3333), q.Amount())
	assert.Equal(t, models.ActivityCourse, q.Activity)

	q = QuoteCourse(course, -2)
	assert.Equal(t, int64(0), q.Amount())
}

func TestPreviewBreakdown(t *testing.T) {
	cfg := models.DiscountConfig{HasDiscount: true, DiscountPercentage: 10, RequiresMinPeople: true, MinPeople: 2}

	b := PreviewBreakdown(1000, cfg, 2, 15, " summer ")
	require.NotNil(t, b.GroupDiscount)
	require.NotNil(t, b.PromoDiscount)
	assert.Equal(t, models.Amount(100), b.GroupDiscount.Amount)
	assert.Equal(t, "group of 2 (minimum 2)", b.GroupDiscount.AppliedBecause)
	assert.Equal(t, models.Amount(135), b.PromoDiscount.Amount)
	assert.Equal(t, "SUMMER", b.PromoDiscount.Code)
	assert.Equal(t, models.Amount(765), b.FinalPrice)
	assert.Equal(t, models.Amount(235), b.TotalDiscount())

	b = PreviewBreakdown(1000, cfg, 1, 0, "")
	assert.Nil(t, b.GroupDiscount)
	assert.Nil(t, b.PromoDiscount)
	assert.Equal(t, models.Amount(0), b.TotalDiscount())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,250 EGP", FormatPrice(1249.6, "", ""))
	assert.Equal(t, "99 USD", FormatPrice(99, "usd", ""))
	assert.Equal(t, DefaultZeroLabel, FormatPrice(0, "EGP", ""))
	assert.Equal(t, "Free", FormatPrice(0.2, "EGP", "Free"))
}
