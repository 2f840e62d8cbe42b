// Package session хранит наблюдаемые сессии пользователей и рассылает уведомления об их изменении.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mmeshcher/edelweiss-storefront/internal/model"
)

// Event описывает тип изменения сессии.
type Event string

const (
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventUserUpdated      Event = "USER_UPDATED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

// Listener получает событие и снимок сессии (nil после выхода).
type Listener func(event Event, userID uuid.UUID, s *model.Session)

// Store хранит общий для процесса реестр сессий. Потребители читают снимки
// и подписываются на изменения, но не меняют сессии напрямую.
type Store struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]model.Session
	listeners map[uint64]Listener
	nextID    uint64
}

// NewStore создаёт пустой реестр сессий.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[uuid.UUID]model.Session),
		listeners: make(map[uint64]Listener),
	}
}

// Get возвращает снимок сессии пользователя.
func (s *Store) Get(userID uuid.UUID) (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Subscribe регистрирует слушателя и возвращает функцию отписки.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Publish сохраняет сессию (или удаляет её при выходе) и уведомляет слушателей.
func (s *Store) Publish(event Event, userID uuid.UUID, sess *model.Session) {
	s.mu.Lock()
	if event == EventSignedOut || sess == nil {
		delete(s.sessions, userID)
	} else {
		s.sessions[userID] = *sess
	}

	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	var snapshot *model.Session
	if event != EventSignedOut && sess != nil {
		cp := *sess
		snapshot = &cp
	}

	for _, l := range listeners {
		l(event, userID, snapshot)
	}
}

// Len возвращает количество активных сессий.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
