// Package pricing рассчитывает итоги корзины и применяет промокоды.
package pricing

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

// DefaultShippingFee задаёт фиксированную стоимость доставки в песо.
var DefaultShippingFee = decimal.NewFromInt(50)

// DefaultPromoCode задаёт единственный промокод витрины.
const DefaultPromoCode = "EDELWEISS2026"

const (
	MsgPromoApplied = "Promo code applied!"
	MsgPromoInvalid = "Invalid promo code"
)

// MessageKind описывает тип сообщения о промокоде.
type MessageKind string

const (
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// Message содержит сообщение пользователю о результате применения промокода.
type Message struct {
	Text string      `json:"text"`
	Kind MessageKind `json:"type"`
}

// PromoState хранит последний введённый промокод и его скидку.
type PromoState struct {
	Code     string
	Discount decimal.Decimal
	Message  *Message
}

// Applied сообщает, действует ли скидка.
func (p PromoState) Applied() bool {
	return p.Discount.IsPositive()
}

// PromoTable сопоставляет промокоды (в верхнем регистре) фиксированным скидкам.
type PromoTable map[string]decimal.Decimal

// DefaultPromoTable возвращает таблицу промокодов витрины.
func DefaultPromoTable() PromoTable {
	return PromoTable{
		DefaultPromoCode: decimal.NewFromInt(100),
	}
}

// Lookup ищет промокод без учёта регистра.
func (t PromoTable) Lookup(code string) (decimal.Decimal, bool) {
	d, ok := t[strings.ToUpper(code)]
	return d, ok
}

// ApplyPromo проверяет промокод по таблице и возвращает новое состояние.
// Несовпавший код обнуляет скидку; повторное применение перезаписывает предыдущее.
func ApplyPromo(table PromoTable, code string) PromoState {
	if d, ok := table.Lookup(code); ok {
		return PromoState{
			Code:     code,
			Discount: d,
			Message:  &Message{Text: MsgPromoApplied, Kind: MessageSuccess},
		}
	}

	return PromoState{
		Code:     code,
		Discount: decimal.Zero,
		Message:  &Message{Text: MsgPromoInvalid, Kind: MessageError},
	}
}

// Totals содержит производные итоги заказа. Никогда не сохраняются.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	AddonFee decimal.Decimal `json:"addon_fee"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Selected int             `json:"selected_count"`
}

// CanCheckout сообщает, можно ли оформить заказ с такими итогами.
func (t Totals) CanCheckout() bool {
	return t.Selected > 0
}

// Fees задаёт сборы, добавляемые к выбранным позициям.
type Fees struct {
	Shipping decimal.Decimal
	Addon    decimal.Decimal
}

// DefaultFees возвращает сборы по умолчанию: доставка 50, без дополнительных сборов.
func DefaultFees() Fees {
	return Fees{Shipping: DefaultShippingFee, Addon: decimal.Zero}
}

// ComputeTotals рассчитывает итоги по выбранным позициям.
// Пустой выбор даёт нулевые подытог, доставку и итог.
func ComputeTotals(lines []model.CartLine, selected map[uuid.UUID]struct{}, promo PromoState, fees Fees) Totals {
	subtotal := decimal.Zero
	count := 0

	for _, l := range lines {
		if _, ok := selected[l.ID]; !ok {
			continue
		}
		subtotal = subtotal.Add(l.LineTotal())
		count++
	}

	if count == 0 {
		return Totals{
			Subtotal: decimal.Zero,
			Shipping: decimal.Zero,
			AddonFee: decimal.Zero,
			Discount: promo.Discount,
			Total:    decimal.Zero,
		}
	}

	total := subtotal.Add(fees.Shipping).Add(fees.Addon).Sub(promo.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Shipping: fees.Shipping,
		AddonFee: fees.Addon,
		Discount: promo.Discount,
		Total:    total,
		Selected: count,
	}
}
