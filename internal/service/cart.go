package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmeshcher/edelweiss-storefront/internal/cart"
	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/pricing"
	"github.com/mmeshcher/edelweiss-storefront/internal/repository"
	"github.com/mmeshcher/edelweiss-storefront/internal/validation"
)

// maxOrderNumberAttempts ограничивает число попыток подобрать свободный номер заказа.
const maxOrderNumberAttempts = 3

// CartView описывает корзину для отображения: позиции по магазинам, выбор, промокод и итоги.
type CartView struct {
	Groups   []cart.ShopGroup
	Selected []uuid.UUID
	Promo    pricing.PromoState
	Totals   pricing.Totals
}

func (s *Service) view(c *cart.Checkout) *CartView {
	lines := c.Lines()
	return &CartView{
		Groups:   cart.GroupByShop(lines),
		Selected: c.Selection().IDs(lines),
		Promo:    c.Promo(),
		Totals:   c.Totals(s.fees),
	}
}

// withCart загружает позиции из БД и выполняет fn над состоянием корзины пользователя.
// Запрос к БД выполняется вне блокировки реестра, поэтому снимок применяется с
// поколением, в котором началось чтение.
func (s *Service) withCart(ctx context.Context, userID uuid.UUID, fn func(c *cart.Checkout) error) (*CartView, error) {
	gen := s.carts.Generation(userID)
	lines, err := s.repo.CartLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	var v *CartView
	err = s.carts.With(userID, func(c *cart.Checkout) error {
		c.ReloadSnapshot(lines, gen)
		if fn != nil {
			if err := fn(c); err != nil {
				return err
			}
		}
		v = s.view(c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListProducts возвращает каталог.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// Cart возвращает корзину пользователя.
func (s *Service) Cart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	return s.withCart(ctx, userID, nil)
}

// AddToCart добавляет товар в корзину и выбирает его позицию.
func (s *Service) AddToCart(ctx context.Context, userID uuid.UUID, productID int64, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	lineID, err := s.repo.AddCartItem(ctx, userID, productID, quantity)
	if err != nil {
		return nil, err
	}

	return s.withCart(ctx, userID, func(c *cart.Checkout) error {
		if l, ok := c.Line(lineID); ok {
			c.Add(l)
		}
		return nil
	})
}

// UpdateQuantity меняет количество позиции. Количество меньше 1 игнорируется.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*CartView, error) {
	if quantity >= 1 {
		if err := s.repo.UpdateCartItemQuantity(ctx, userID, lineID, quantity); err != nil {
			return nil, err
		}
	}
	return s.withCart(ctx, userID, nil)
}

// RemoveFromCart удаляет позицию из корзины и из выбора.
func (s *Service) RemoveFromCart(ctx context.Context, userID, lineID uuid.UUID) (*CartView, error) {
	if err := s.repo.RemoveCartItem(ctx, userID, lineID); err != nil {
		return nil, err
	}
	return s.withCart(ctx, userID, func(c *cart.Checkout) error {
		c.Remove(lineID)
		return nil
	})
}

// ToggleItem переключает выбор позиции.
func (s *Service) ToggleItem(ctx context.Context, userID, lineID uuid.UUID) (*CartView, error) {
	return s.withCart(ctx, userID, func(c *cart.Checkout) error {
		if !c.ToggleItem(lineID) {
			return fmt.Errorf("cart item %s: %w", lineID, repository.ErrNotFound)
		}
		return nil
	})
}

// ToggleShop переключает выбор всех позиций магазина.
func (s *Service) ToggleShop(ctx context.Context, userID uuid.UUID, shopName string) (*CartView, error) {
	return s.withCart(ctx, userID, func(c *cart.Checkout) error {
		c.ToggleShop(shopName)
		return nil
	})
}

// ToggleSelectAll выбирает все позиции либо снимает выбор со всех.
func (s *Service) ToggleSelectAll(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	return s.withCart(ctx, userID, func(c *cart.Checkout) error {
		c.ToggleSelectAll()
		return nil
	})
}

// ApplyPromo применяет промокод к корзине. Неизвестный код обнуляет скидку.
func (s *Service) ApplyPromo(ctx context.Context, userID uuid.UUID, code string) (*CartView, error) {
	return s.withCart(ctx, userID, func(c *cart.Checkout) error {
		c.ApplyPromo(s.promos, code)
		return nil
	})
}

// Checkout оформляет заказ по выбранным позициям на адрес по умолчанию.
// Промокод перепроверяется по таблице, купленные позиции удаляются из корзины.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, method model.PaymentMethod) (*model.Order, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}

	gen := s.carts.Generation(userID)
	lines, err := s.repo.CartLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		selected []model.CartLine
		promo    pricing.PromoState
	)
	s.carts.Do(userID, func(c *cart.Checkout) {
		c.ReloadSnapshot(lines, gen)
		selected = c.SelectedLines()
		promo = c.Promo()
	})
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	addr, err := s.repo.DefaultAddress(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoDefaultAddress
		}
		return nil, err
	}

	if promo.Code != "" {
		promo = pricing.ApplyPromo(s.promos, promo.Code)
	}

	ids := make([]uuid.UUID, 0, len(selected))
	items := make([]model.OrderItem, 0, len(selected))
	for _, l := range selected {
		ids = append(ids, l.ID)
		items = append(items, model.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			ShopName:  l.ShopName,
		})
	}

	totals := pricing.ComputeTotals(selected, cart.NewSelection(ids...), promo, s.fees)

	order := &model.Order{
		UserID:        userID,
		AddressID:     addr.ID,
		PaymentMethod: method,
		Status:        model.OrderStatusPending,
		Subtotal:      totals.Subtotal,
		Shipping:      totals.Shipping,
		AddonFee:      totals.AddonFee,
		Discount:      totals.Discount,
		Total:         totals.Total,
		Items:         items,
	}
	if promo.Applied() {
		order.PromoCode = promo.Code
	}

	for attempt := 1; ; attempt++ {
		order.Number, err = validation.NewOrderNumber()
		if err != nil {
			return nil, fmt.Errorf("generate order number: %w", err)
		}

		err = s.repo.CreateOrder(ctx, order, ids)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrOrderNumberTaken) || attempt == maxOrderNumberAttempts {
			return nil, err
		}
	}

	s.carts.Do(userID, func(c *cart.Checkout) {
		for _, id := range ids {
			c.Remove(id)
		}
		c.ClearPromo()
	})

	return order, nil
}

// ListOrders возвращает заказы пользователя.
func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, userID)
}
