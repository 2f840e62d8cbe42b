package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

func line(price int64, qty int) model.CartLine {
	return model.CartLine{
		ID:        uuid.New(),
		Quantity:  qty,
		UnitPrice: decimal.NewFromInt(price),
		ShopName:  "Edelweiss Flowers",
	}
}

func selectAll(lines []model.CartLine) map[uuid.UUID]struct{} {
	s := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		s[l.ID] = struct{}{}
	}
	return s
}

func TestApplyPromo(t *testing.T) {
	table := DefaultPromoTable()

	for _, code := range []string{"edelweiss2026", "EDELWEISS2026", "EdelWeiss2026"} {
		st := ApplyPromo(table, code)
		assert.True(t, st.Discount.Equal(decimal.NewFromInt(100)), "code %q", code)
		require.NotNil(t, st.Message)
		assert.Equal(t, MessageSuccess, st.Message.Kind)
		assert.Equal(t, MsgPromoApplied, st.Message.Text)
		assert.True(t, st.Applied())
	}

	for _, code := range []string{"EDELWEISS", "EDELWEISS2026 ", "", "SUMMER2026"} {
		st := ApplyPromo(table, code)
		assert.True(t, st.Discount.IsZero(), "code %q", code)
		require.NotNil(t, st.Message)
		assert.Equal(t, MessageError, st.Message.Kind)
		assert.Equal(t, MsgPromoInvalid, st.Message.Text)
		assert.False(t, st.Applied())
	}
}

func TestApplyPromo_CustomTable(t *testing.T) {
	table := PromoTable{"MOTHERSDAY": decimal.NewFromInt(250)}

	st := ApplyPromo(table, "mothersday")
	assert.True(t, st.Discount.Equal(decimal.NewFromInt(250)))

	st = ApplyPromo(table, DefaultPromoCode)
	assert.True(t, st.Discount.IsZero())
}

func TestComputeTotals_EmptySelection(t *testing.T) {
	lines := []model.CartLine{line(899, 1)}
	promo := ApplyPromo(DefaultPromoTable(), DefaultPromoCode)

	totals := ComputeTotals(lines, map[uuid.UUID]struct{}{}, promo, Fees{Shipping: DefaultShippingFee, Addon: decimal.NewFromInt(20)})

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.AddonFee.IsZero())
	assert.True(t, totals.Total.IsZero())
	assert.False(t, totals.CanCheckout())
}

func TestComputeTotals_Scenario(t *testing.T) {
	first := line(899, 1)
	second := line(1200, 2)
	lines := []model.CartLine{first, second}
	selected := selectAll(lines)

	totals := ComputeTotals(lines, selected, PromoState{}, DefaultFees())
	assert.Equal(t, "3299", totals.Subtotal.String())
	assert.Equal(t, "50", totals.Shipping.String())
	assert.Equal(t, "3349", totals.Total.String())
	assert.True(t, totals.CanCheckout())

	promo := ApplyPromo(DefaultPromoTable(), "EDELWEISS2026")
	totals = ComputeTotals(lines, selected, promo, DefaultFees())
	assert.Equal(t, "3249", totals.Total.String())

	delete(selected, second.ID)
	totals = ComputeTotals(lines, selected, promo, DefaultFees())
	assert.Equal(t, "899", totals.Subtotal.String())
	assert.Equal(t, "849", totals.Total.String())
}

func TestComputeTotals_DiscountClampedAtZero(t *testing.T) {
	lines := []model.CartLine{line(20, 1)}
	promo := ApplyPromo(DefaultPromoTable(), DefaultPromoCode)

	totals := ComputeTotals(lines, selectAll(lines), promo, DefaultFees())
	assert.True(t, totals.Total.IsZero())
	assert.Equal(t, "100", totals.Discount.String())
}

func TestComputeTotals_AddonFee(t *testing.T) {
	lines := []model.CartLine{line(500, 2)}
	fees := Fees{Shipping: DefaultShippingFee, Addon: decimal.NewFromInt(35)}

	totals := ComputeTotals(lines, selectAll(lines), PromoState{}, fees)
	assert.Equal(t, "1085", totals.Total.String())
	assert.Equal(t, "35", totals.AddonFee.String())
}

func TestComputeTotals_IgnoresUnknownSelectedIDs(t *testing.T) {
	lines := []model.CartLine{line(100, 1)}
	selected := map[uuid.UUID]struct{}{uuid.New(): {}}

	totals := ComputeTotals(lines, selected, PromoState{}, DefaultFees())
	assert.True(t, totals.Total.IsZero())
	assert.False(t, totals.CanCheckout())
}
