package cart

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/pricing"
)

type checkoutFeature struct {
	checkout *Checkout
	byName   map[string]uuid.UUID
}

func (f *checkoutFeature) reset() {
	f.checkout = NewCheckout()
	f.byName = make(map[string]uuid.UUID)
}

func (f *checkoutFeature) aCartWithTheLines(table *godog.Table) error {
	var lines []model.CartLine
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		price, err := strconv.ParseInt(row.Cells[2].Value, 10, 64)
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(row.Cells[3].Value)
		if err != nil {
			return err
		}
		l := model.CartLine{
			ID:        uuid.New(),
			Name:      row.Cells[0].Value,
			ShopName:  row.Cells[1].Value,
			UnitPrice: decimal.NewFromInt(price),
			Quantity:  qty,
		}
		f.byName[l.Name] = l.ID
		lines = append(lines, l)
	}
	f.checkout.Reload(lines)
	return nil
}

func (f *checkoutFeature) iApplyThePromoCode(code string) error {
	f.checkout.ApplyPromo(pricing.DefaultPromoTable(), code)
	return nil
}

func (f *checkoutFeature) iToggleTheLine(name string) error {
	id, ok := f.byName[name]
	if !ok {
		return fmt.Errorf("unknown line %q", name)
	}
	if !f.checkout.ToggleItem(id) {
		return fmt.Errorf("line %q is not loaded", name)
	}
	return nil
}

func (f *checkoutFeature) iRemoveTheLine(name string) error {
	id, ok := f.byName[name]
	if !ok {
		return fmt.Errorf("unknown line %q", name)
	}
	f.checkout.Remove(id)
	return nil
}

func (f *checkoutFeature) iToggleSelectAll() error {
	f.checkout.ToggleSelectAll()
	return nil
}

func (f *checkoutFeature) iToggleTheShop(shop string) error {
	f.checkout.ToggleShop(shop)
	return nil
}

func (f *checkoutFeature) totals() pricing.Totals {
	return f.checkout.Totals(pricing.DefaultFees())
}

func expectAmount(field string, got decimal.Decimal, want int64) error {
	if !got.Equal(decimal.NewFromInt(want)) {
		return fmt.Errorf("expected %s %d, got %s", field, want, got)
	}
	return nil
}

func (f *checkoutFeature) theSubtotalIs(want int64) error {
	return expectAmount("subtotal", f.totals().Subtotal, want)
}

func (f *checkoutFeature) theShippingIs(want int64) error {
	return expectAmount("shipping", f.totals().Shipping, want)
}

func (f *checkoutFeature) theTotalIs(want int64) error {
	return expectAmount("total", f.totals().Total, want)
}

func (f *checkoutFeature) thePromoMessageIs(text string) error {
	msg := f.checkout.Promo().Message
	if msg == nil || msg.Text != text {
		return fmt.Errorf("expected promo message %q, got %+v", text, msg)
	}
	return nil
}

func (f *checkoutFeature) linesAreSelected(n int) error {
	if got := len(f.checkout.Selection()); got != n {
		return fmt.Errorf("expected %d selected lines, got %d", n, got)
	}
	return nil
}

func (f *checkoutFeature) checkoutIsDisabled() error {
	if f.totals().CanCheckout() {
		return fmt.Errorf("expected checkout to be disabled")
	}
	return nil
}

func initializeCheckoutScenario(ctx *godog.ScenarioContext) {
	f := &checkoutFeature{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		f.reset()
		return ctx, nil
	})

	ctx.Step(`^a cart with the lines:$`, f.aCartWithTheLines)

	ctx.Step(`^I apply the promo code "([^"]*)"$`, f.iApplyThePromoCode)
	ctx.Step(`^I toggle the line "([^"]*)"$`, f.iToggleTheLine)
	ctx.Step(`^I remove the line "([^"]*)"$`, f.iRemoveTheLine)
	ctx.Step(`^I toggle select all$`, f.iToggleSelectAll)
	ctx.Step(`^I toggle the shop "([^"]*)"$`, f.iToggleTheShop)

	ctx.Step(`^the subtotal is (\d+)$`, f.theSubtotalIs)
	ctx.Step(`^the shipping is (\d+)$`, f.theShippingIs)
	ctx.Step(`^the total is (\d+)$`, f.theTotalIs)
	ctx.Step(`^the promo message is "([^"]*)"$`, f.thePromoMessageIs)
	ctx.Step(`^(\d+) lines? (?:is|are) selected$`, f.linesAreSelected)
	ctx.Step(`^checkout is disabled$`, f.checkoutIsDisabled)
}

func TestCheckoutFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeCheckoutScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
