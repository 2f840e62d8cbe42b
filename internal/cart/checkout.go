package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/pricing"
)

// Checkout хранит состояние корзины одного покупателя: позиции, выбор и промокод.
type Checkout struct {
	lines     []model.CartLine
	selection Selection
	promo     pricing.PromoState
	touched   time.Time

	// removed хранит поколение, в котором позиция удалена. Снимки из БД,
	// прочитанные до удаления, не должны возвращать её в корзину.
	removed    map[uuid.UUID]uint64
	generation uint64
}

// NewCheckout создаёт пустое состояние корзины.
func NewCheckout() *Checkout {
	return &Checkout{
		selection: make(Selection),
		removed:   make(map[uuid.UUID]uint64),
	}
}

// Generation возвращает номер последнего удаления позиции.
func (c *Checkout) Generation() uint64 {
	return c.generation
}

// Lines возвращает копию загруженных позиций.
func (c *Checkout) Lines() []model.CartLine {
	return append([]model.CartLine(nil), c.lines...)
}

// Selection возвращает копию текущего выбора.
func (c *Checkout) Selection() Selection {
	s := make(Selection, len(c.selection))
	for id := range c.selection {
		s[id] = struct{}{}
	}
	return s
}

// Promo возвращает состояние промокода.
func (c *Checkout) Promo() pricing.PromoState {
	return c.promo
}

// Reload заменяет позиции свежими данными и убирает из выбора исчезнувшие позиции.
// Первая загрузка выбирает все позиции.
func (c *Checkout) Reload(lines []model.CartLine) {
	c.ReloadSnapshot(lines, c.generation)
}

// ReloadSnapshot применяет снимок позиций, чтение которого началось в поколении gen.
// Удалённые позиции в снимок не попадают. Отметка об удалении снимается, когда
// снимок, прочитанный после удаления, уже не содержит позицию.
func (c *Checkout) ReloadSnapshot(lines []model.CartLine, gen uint64) {
	first := c.lines == nil
	c.lines = make([]model.CartLine, 0, len(lines))

	present := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		present[l.ID] = struct{}{}
		if _, gone := c.removed[l.ID]; gone {
			continue
		}
		c.lines = append(c.lines, l)
	}
	for id, at := range c.removed {
		if _, ok := present[id]; !ok && gen >= at {
			delete(c.removed, id)
		}
	}

	if first {
		for _, l := range c.lines {
			c.selection[l.ID] = struct{}{}
		}
		return
	}

	c.selection.Retain(c.lines)
}

// Add добавляет новую позицию и сразу выбирает её.
func (c *Checkout) Add(line model.CartLine) {
	delete(c.removed, line.ID)
	for i, l := range c.lines {
		if l.ID == line.ID {
			c.lines[i] = line
			c.selection[line.ID] = struct{}{}
			return
		}
	}
	c.lines = append(c.lines, line)
	c.selection[line.ID] = struct{}{}
}

// Remove удаляет позицию и её идентификатор из выбора.
func (c *Checkout) Remove(id uuid.UUID) {
	c.generation++
	c.removed[id] = c.generation

	kept := c.lines[:0]
	for _, l := range c.lines {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	c.lines = kept
	c.selection.Remove(id)
}

// SetQuantity меняет количество позиции. Значения меньше 1 игнорируются.
func (c *Checkout) SetQuantity(id uuid.UUID, qty int) bool {
	if qty < 1 {
		return false
	}
	for i := range c.lines {
		if c.lines[i].ID == id {
			c.lines[i].Quantity = qty
			return true
		}
	}
	return false
}

// Line возвращает позицию по идентификатору.
func (c *Checkout) Line(id uuid.UUID) (model.CartLine, bool) {
	for _, l := range c.lines {
		if l.ID == id {
			return l, true
		}
	}
	return model.CartLine{}, false
}

// ToggleItem переключает выбор позиции, если она загружена.
func (c *Checkout) ToggleItem(id uuid.UUID) bool {
	if _, ok := c.Line(id); !ok {
		return false
	}
	c.selection.ToggleItem(id)
	return true
}

// ToggleShop переключает выбор позиций магазина.
func (c *Checkout) ToggleShop(shopName string) {
	c.selection.ToggleShop(c.lines, shopName)
}

// ToggleSelectAll переключает выбор всех позиций.
func (c *Checkout) ToggleSelectAll() {
	c.selection.ToggleSelectAll(c.lines)
}

// ApplyPromo применяет промокод по таблице.
func (c *Checkout) ApplyPromo(table pricing.PromoTable, code string) pricing.PromoState {
	c.promo = pricing.ApplyPromo(table, code)
	return c.promo
}

// ClearPromo сбрасывает промокод.
func (c *Checkout) ClearPromo() {
	c.promo = pricing.PromoState{}
}

// SelectedLines возвращает выбранные позиции в порядке корзины.
func (c *Checkout) SelectedLines() []model.CartLine {
	var res []model.CartLine
	for _, l := range c.lines {
		if c.selection.Has(l.ID) {
			res = append(res, l)
		}
	}
	return res
}

// Totals пересчитывает итоги по текущему состоянию.
func (c *Checkout) Totals(fees pricing.Fees) pricing.Totals {
	return pricing.ComputeTotals(c.lines, c.selection, c.promo, fees)
}

// Registry хранит состояния корзин покупателей.
type Registry struct {
	mu     sync.Mutex
	states map[uuid.UUID]*Checkout
	now    func() time.Time
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		states: make(map[uuid.UUID]*Checkout),
		now:    time.Now,
	}
}

// Do выполняет fn над состоянием корзины пользователя под блокировкой реестра.
func (r *Registry) Do(userID uuid.UUID, fn func(c *Checkout)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.states[userID]
	if !ok {
		c = NewCheckout()
		r.states[userID] = c
	}
	c.touched = r.now()

	fn(c)
}

// With выполняет fn как Do и возвращает её ошибку.
func (r *Registry) With(userID uuid.UUID, fn func(c *Checkout) error) error {
	var err error
	r.Do(userID, func(c *Checkout) {
		err = fn(c)
	})
	return err
}

// Generation возвращает поколение корзины пользователя, 0 для незагруженной корзины.
// Снимок из БД, прочитанный после вызова, учитывает все удаления этого поколения.
func (r *Registry) Generation(userID uuid.UUID) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.states[userID]; ok {
		return c.generation
	}
	return 0
}

// Forget удаляет состояние корзины пользователя.
func (r *Registry) Forget(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
}

// Evict удаляет состояния, к которым не обращались дольше ttl, и возвращает их количество.
func (r *Registry) Evict(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-ttl)
	n := 0
	for id, c := range r.states {
		if c.touched.Before(cutoff) {
			delete(r.states, id)
			n++
		}
	}
	return n
}

// Len возвращает количество хранимых состояний.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
