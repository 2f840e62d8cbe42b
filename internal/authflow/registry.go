package authflow

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/edelweiss-storefront/internal/cooldown"
)

// ErrFlowNotFound возвращается, если сценарий не найден или устарел.
var ErrFlowNotFound = errors.New("flow not found")

type flowEntry struct {
	flow    *Flow
	touched time.Time
}

type resetEntry struct {
	reset   *PasswordReset
	touched time.Time
}

// Registry хранит активные сценарии входа/регистрации и восстановления пароля.
// Сценарии адресуются непрозрачными идентификаторами, выданными клиенту; пауза
// повторной отправки по-прежнему общая для email.
type Registry struct {
	client    AuthClient
	cooldowns cooldown.Store
	now       func() time.Time

	mu     sync.Mutex
	flows  map[uuid.UUID]*flowEntry
	resets map[uuid.UUID]*resetEntry
}

// NewRegistry создаёт реестр сценариев. Если now не задан, используется time.Now.
func NewRegistry(client AuthClient, cooldowns cooldown.Store, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		client:    client,
		cooldowns: cooldowns,
		now:       now,
		flows:     make(map[uuid.UUID]*flowEntry),
		resets:    make(map[uuid.UUID]*resetEntry),
	}
}

// StartFlow создаёт новый сценарий входа/регистрации.
func (r *Registry) StartFlow() *Flow {
	f := NewFlow(r.client, r.cooldowns)

	r.mu.Lock()
	r.flows[f.ID()] = &flowEntry{flow: f, touched: r.now()}
	r.mu.Unlock()

	return f
}

// Flow возвращает сценарий входа/регистрации по идентификатору.
func (r *Registry) Flow(id uuid.UUID) (*Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	e.touched = r.now()
	return e.flow, nil
}

// FlowOrStart возвращает сценарий по идентификатору либо создаёт новый,
// если идентификатор не задан или сценарий устарел.
func (r *Registry) FlowOrStart(id uuid.UUID) *Flow {
	if id != uuid.Nil {
		if f, err := r.Flow(id); err == nil {
			return f
		}
	}
	return r.StartFlow()
}

// StartReset создаёт новый сценарий восстановления пароля.
func (r *Registry) StartReset() *PasswordReset {
	p := NewPasswordReset(uuid.New(), r.client)

	r.mu.Lock()
	r.resets[p.ID()] = &resetEntry{reset: p, touched: r.now()}
	r.mu.Unlock()

	return p
}

// Reset возвращает сценарий восстановления по идентификатору.
func (r *Registry) Reset(id uuid.UUID) (*PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.resets[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	e.touched = r.now()
	return e.reset, nil
}

// FinishReset удаляет сценарий восстановления.
func (r *Registry) FinishReset(id uuid.UUID) {
	r.mu.Lock()
	delete(r.resets, id)
	r.mu.Unlock()
}

// Evict удаляет сценарии, к которым не обращались дольше ttl, и возвращает их число.
func (r *Registry) Evict(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, e := range r.flows {
		if e.touched.Before(cutoff) {
			delete(r.flows, k)
			n++
		}
	}
	for k, e := range r.resets {
		if e.touched.Before(cutoff) {
			delete(r.resets, k)
			n++
		}
	}
	return n
}

// Len возвращает число активных сценариев.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows) + len(r.resets)
}
