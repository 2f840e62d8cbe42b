package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

func buildLines(prices []int64, qtys []int, mask []bool) ([]model.CartLine, map[uuid.UUID]struct{}) {
	n := len(prices)
	if len(qtys) < n {
		n = len(qtys)
	}

	lines := make([]model.CartLine, 0, n)
	selected := make(map[uuid.UUID]struct{})
	for i := 0; i < n; i++ {
		l := model.CartLine{
			ID:        uuid.New(),
			Quantity:  qtys[i],
			UnitPrice: decimal.NewFromInt(prices[i]),
		}
		lines = append(lines, l)
		if i < len(mask) && mask[i] {
			selected[l.ID] = struct{}{}
		}
	}
	return lines, selected
}

// Подытог равен сумме price*qty по выбранным позициям.
func TestSubtotalIsSumOfSelectedLines(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("subtotal covers selected lines only", prop.ForAll(
		func(prices []int64, qtys []int, mask []bool) bool {
			lines, selected := buildLines(prices, qtys, mask)

			want := decimal.Zero
			for _, l := range lines {
				if _, ok := selected[l.ID]; ok {
					want = want.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
				}
			}

			got := ComputeTotals(lines, selected, PromoState{}, DefaultFees())
			return got.Subtotal.Equal(want)
		},
		gen.SliceOf(gen.Int64Range(0, 100000)),
		gen.SliceOf(gen.IntRange(1, 20)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// Итог никогда не отрицателен и равен max(0, subtotal+shipping+addon-discount).
func TestTotalNeverNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("total is clamped formula", prop.ForAll(
		func(prices []int64, qtys []int, mask []bool, discount int64, addon int64) bool {
			lines, selected := buildLines(prices, qtys, mask)
			promo := PromoState{Discount: decimal.NewFromInt(discount)}
			fees := Fees{Shipping: DefaultShippingFee, Addon: decimal.NewFromInt(addon)}

			got := ComputeTotals(lines, selected, promo, fees)
			if got.Total.IsNegative() {
				return false
			}
			if got.Selected == 0 {
				return got.Total.IsZero() && got.Shipping.IsZero()
			}

			want := got.Subtotal.Add(got.Shipping).Add(got.AddonFee).Sub(got.Discount)
			if want.IsNegative() {
				want = decimal.Zero
			}
			return got.Total.Equal(want)
		},
		gen.SliceOf(gen.Int64Range(0, 5000)),
		gen.SliceOf(gen.IntRange(1, 5)),
		gen.SliceOf(gen.Bool()),
		gen.Int64Range(0, 100000),
		gen.Int64Range(0, 500),
	))

	properties.TestingRun(t)
}

// Промокод сопоставляется без учёта регистра.
func TestPromoMatchingIgnoresCase(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)
	table := DefaultPromoTable()

	properties.Property("any casing of the known code applies the discount", prop.ForAll(
		func(mask []bool) bool {
			code := []byte(DefaultPromoCode)
			for i := range code {
				if i < len(mask) && mask[i] && code[i] >= 'A' && code[i] <= 'Z' {
					code[i] += 'a' - 'A'
				}
			}
			return ApplyPromo(table, string(code)).Discount.Equal(decimal.NewFromInt(100))
		},
		gen.SliceOfN(len(DefaultPromoCode), gen.Bool()),
	))

	properties.TestingRun(t)
}
