// Package cart хранит состояние выбора позиций корзины для оформления заказа.
package cart

import (
	"github.com/google/uuid"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

// Selection задаёт множество идентификаторов позиций, участвующих в текущем итоге.
type Selection map[uuid.UUID]struct{}

// NewSelection создаёт выбор из указанных идентификаторов.
func NewSelection(ids ...uuid.UUID) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has сообщает, выбрана ли позиция.
func (s Selection) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// IDs возвращает выбранные идентификаторы в порядке позиций корзины.
func (s Selection) IDs(lines []model.CartLine) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for _, l := range lines {
		if s.Has(l.ID) {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// ToggleItem добавляет позицию, если её нет, и убирает, если она уже выбрана.
func (s Selection) ToggleItem(id uuid.UUID) {
	if s.Has(id) {
		delete(s, id)
		return
	}
	s[id] = struct{}{}
}

// ToggleShop снимает выбор со всех позиций магазина, если все они выбраны,
// иначе выбирает их все. Частичный выбор считается невыбранным.
func (s Selection) ToggleShop(lines []model.CartLine, shopName string) {
	var shopLines []uuid.UUID
	allSelected := true

	for _, l := range lines {
		if shopOf(l) != shopName {
			continue
		}
		shopLines = append(shopLines, l.ID)
		if !s.Has(l.ID) {
			allSelected = false
		}
	}

	if len(shopLines) == 0 {
		return
	}

	for _, id := range shopLines {
		if allSelected {
			delete(s, id)
		} else {
			s[id] = struct{}{}
		}
	}
}

// ToggleSelectAll очищает выбор, если выбраны все позиции, иначе выбирает все.
func (s Selection) ToggleSelectAll(lines []model.CartLine) {
	if len(s) == len(lines) {
		clear(s)
		return
	}

	clear(s)
	for _, l := range lines {
		s[l.ID] = struct{}{}
	}
}

// Remove убирает позицию из выбора.
func (s Selection) Remove(id uuid.UUID) {
	delete(s, id)
}

// Retain оставляет в выборе только идентификаторы загруженных позиций.
func (s Selection) Retain(lines []model.CartLine) {
	live := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		live[l.ID] = struct{}{}
	}
	for id := range s {
		if _, ok := live[id]; !ok {
			delete(s, id)
		}
	}
}

// ShopGroup объединяет позиции одного магазина.
type ShopGroup struct {
	ShopName string
	Lines    []model.CartLine
}

// GroupByShop разбивает позиции по магазинам, сохраняя порядок первого появления.
func GroupByShop(lines []model.CartLine) []ShopGroup {
	var groups []ShopGroup
	index := make(map[string]int)

	for _, l := range lines {
		name := shopOf(l)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, ShopGroup{ShopName: name})
		}
		groups[i].Lines = append(groups[i].Lines, l)
	}

	return groups
}

func shopOf(l model.CartLine) string {
	if l.ShopName == "" {
		return model.UnknownShop
	}
	return l.ShopName
}
