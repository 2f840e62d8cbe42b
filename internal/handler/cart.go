package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/pricing"
	"github.com/mmeshcher/edelweiss-storefront/internal/service"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

type productResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	ShopID      *uuid.UUID      `json:"shop_id,omitempty"`
	ShopName    string          `json:"shop_name"`
}

func newProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		ShopID:      p.ShopID,
		ShopName:    p.ShopName,
	}
}

// ListProducts возвращает каталог товаров.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.fail(w, err, "list products error")
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get product error", zap.Int64("productID", id))
		return
	}

	writeJSON(w, http.StatusOK, newProductResponse(*p))
}

type cartLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Selected  bool            `json:"selected"`
}

type shopGroupResponse struct {
	ShopName string             `json:"shop_name"`
	Lines    []cartLineResponse `json:"lines"`
}

type promoResponse struct {
	Code     string           `json:"code"`
	Discount decimal.Decimal  `json:"discount"`
	Applied  bool             `json:"applied"`
	Message  *pricing.Message `json:"message,omitempty"`
}

type cartResponse struct {
	Groups      []shopGroupResponse `json:"groups"`
	Promo       promoResponse       `json:"promo"`
	Totals      pricing.Totals      `json:"totals"`
	CanCheckout bool                `json:"can_checkout"`
}

func newCartResponse(v *service.CartView) cartResponse {
	selected := make(map[uuid.UUID]bool, len(v.Selected))
	for _, id := range v.Selected {
		selected[id] = true
	}

	groups := make([]shopGroupResponse, 0, len(v.Groups))
	for _, g := range v.Groups {
		lines := make([]cartLineResponse, 0, len(g.Lines))
		for _, l := range g.Lines {
			lines = append(lines, cartLineResponse{
				ID:        l.ID,
				ProductID: l.ProductID,
				Name:      l.Name,
				ImageURL:  l.ImageURL,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
				LineTotal: l.LineTotal(),
				Selected:  selected[l.ID],
			})
		}
		groups = append(groups, shopGroupResponse{ShopName: g.ShopName, Lines: lines})
	}

	return cartResponse{
		Groups: groups,
		Promo: promoResponse{
			Code:     v.Promo.Code,
			Discount: v.Promo.Discount,
			Applied:  v.Promo.Applied(),
			Message:  v.Promo.Message,
		},
		Totals:      v.Totals,
		CanCheckout: v.Totals.CanCheckout(),
	}
}

// cartAction выполняет операцию над корзиной текущего пользователя и отвечает её новым видом.
func (h *Handler) cartAction(w http.ResponseWriter, r *http.Request, op string, fn func(userID uuid.UUID) (*service.CartView, error)) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	view, err := fn(userID)
	if err != nil {
		h.fail(w, err, op+" error", zap.String("userID", userID.String()))
		return
	}

	writeJSON(w, http.StatusOK, newCartResponse(view))
}

// GetCart возвращает корзину, сгруппированную по магазинам, с выбором и итогами.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.cartAction(w, r, "get cart", func(userID uuid.UUID) (*service.CartView, error) {
		return h.service.Cart(r.Context(), userID)
	})
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AddToCart добавляет товар в корзину или увеличивает количество существующей позиции.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	h.cartAction(w, r, "add to cart", func(userID uuid.UUID) (*service.CartView, error) {
		return h.service.AddToCart(r.Context(), userID, req.ProductID, req.Quantity)
	})
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateQuantity меняет количество позиции. Значения меньше 1 игнорируются.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	lineID, ok := parseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.cartAction(w, r, "update quantity", func(userID uuid.UUID) (*service.CartView, error) {
		return h.service.UpdateQuantity(r.Context(), userID, lineID, req.Quantity)
	})
}

// RemoveFromCart удаляет позицию из корзины и из выбора.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	lineID, ok := parseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	h.cartAction(w, r, "remove from cart", func(userID uuid.UUID) (*service.CartView, error) {
		return h.service.RemoveFromCart(r.Context(), userID, lineID)
	})
}

// ToggleItem переключает выбор позиции.
func (h *Handler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	lineID, ok := parseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	h.cartAction(w, r, "toggle item", func(userID uuid.UUID) (*service.CartView, error) {
		return h.service.ToggleItem(r.Context(), userID, lineID)
	})
}

// ToggleShop переключает выбор всех позиций магазина.
func (h *Handler) ToggleShop(w http.ResponseWriter, r *http.Request) {
	shop := chi.URLParam(r, "shop")
	if unescaped, err := url.PathUnescape(shop); err == nil {
		shop = unescaped
	}

	h.cartAction(w, r, "toggle shop", func(userID uuid.UUID) (*service.CartView, error) {
		return h.service.ToggleShop(r.Context(), userID, shop)
	})
}

// ToggleSelectAll выбирает все позиции либо снимает выбор, если выбраны все.
func (h *Handler) ToggleSelectAll(w http.ResponseWriter, r *http.Request) {
	h.cartAction(w, r, "toggle select all", func(userID uuid.UUID) (*service.CartView, error) {
		return h.service.ToggleSelectAll(r.Context(), userID)
	})
}

type promoRequest struct {
	Code string `json:"code"`
}

// ApplyPromo применяет промокод. Неверный код не является ошибкой запроса:
// результат передаётся в сообщении промокода.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	h.cartAction(w, r, "apply promo", func(userID uuid.UUID) (*service.CartView, error) {
		return h.service.ApplyPromo(r.Context(), userID, req.Code)
	})
}

type checkoutRequest struct {
	PaymentMethod model.PaymentMethod `json:"payment_method"`
}

type orderItemResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ShopName  string          `json:"shop_name"`
}

type orderResponse struct {
	Number        string              `json:"number"`
	Status        string              `json:"status"`
	PaymentMethod string              `json:"payment_method"`
	PromoCode     string              `json:"promo_code,omitempty"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Shipping      decimal.Decimal     `json:"shipping"`
	AddonFee      decimal.Decimal     `json:"addon_fee"`
	Discount      decimal.Decimal     `json:"discount"`
	Total         decimal.Decimal     `json:"total"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     string              `json:"created_at"`
}

func newOrderResponse(o model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			ShopName:  it.ShopName,
		})
	}

	return orderResponse{
		Number:        o.Number,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		PromoCode:     o.PromoCode,
		Subtotal:      o.Subtotal,
		Shipping:      o.Shipping,
		AddonFee:      o.AddonFee,
		Discount:      o.Discount,
		Total:         o.Total,
		Items:         items,
		CreatedAt:     formatTime(o.CreatedAt),
	}
}

// Checkout оформляет заказ на выбранные позиции.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.Checkout(r.Context(), userID, req.PaymentMethod)
	if err != nil {
		h.fail(w, err, "checkout error", zap.String("userID", userID.String()))
		return
	}

	writeJSON(w, http.StatusCreated, newOrderResponse(*order))
}

// GetOrders возвращает заказы текущего пользователя.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "get orders error", zap.String("userID", userID.String()))
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}

	writeJSON(w, http.StatusOK, resp)
}
