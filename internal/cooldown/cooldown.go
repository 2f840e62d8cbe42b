// Package cooldown ограничивает повторные действия по ключу на фиксированный интервал.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// Store резервирует ключ на время ttl.
type Store interface {
	// Acquire ставит ключ на паузу ttl. Если пауза уже действует, возвращает
	// оставшееся время и acquired=false.
	Acquire(ctx context.Context, key string, ttl time.Duration) (remaining time.Duration, acquired bool, err error)
	// Remaining возвращает оставшееся время паузы (0, если пауза не действует).
	Remaining(ctx context.Context, key string) (time.Duration, error)
	// Reset снимает паузу с ключа.
	Reset(ctx context.Context, key string) error
}

// MemoryStore хранит паузы в памяти процесса.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore создаёт хранилище пауз в памяти. Если now равен nil, используется time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

// Acquire реализует Store.
func (m *MemoryStore) Acquire(_ context.Context, key string, ttl time.Duration) (time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.entries[key]; ok && until.After(now) {
		return until.Sub(now), false, nil
	}

	m.entries[key] = now.Add(ttl)
	return ttl, true, nil
}

// Remaining реализует Store.
func (m *MemoryStore) Remaining(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.entries[key]
	if !ok {
		return 0, nil
	}

	now := m.now()
	if !until.After(now) {
		delete(m.entries, key)
		return 0, nil
	}
	return until.Sub(now), nil
}

// Reset реализует Store.
func (m *MemoryStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Sweep удаляет истёкшие паузы.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for k, until := range m.entries {
		if !until.After(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Seconds округляет оставшееся время вверх до целых секунд.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
