// Package service реализует бизнес-логику витрины Edelweiss.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/edelweiss-storefront/internal/authflow"
	"github.com/mmeshcher/edelweiss-storefront/internal/cart"
	"github.com/mmeshcher/edelweiss-storefront/internal/cooldown"
	"github.com/mmeshcher/edelweiss-storefront/internal/gotrue"
	"github.com/mmeshcher/edelweiss-storefront/internal/model"
	"github.com/mmeshcher/edelweiss-storefront/internal/pricing"
	"github.com/mmeshcher/edelweiss-storefront/internal/session"
)

var (
	// ErrEmptySelection возвращается при оформлении заказа без выбранных позиций.
	ErrEmptySelection = errors.New("no items selected")
	// ErrNoDefaultAddress возвращается при оформлении заказа без адреса по умолчанию.
	ErrNoDefaultAddress = errors.New("default address required")
	// ErrInvalidPaymentMethod возвращается для неподдерживаемого способа оплаты.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	// ErrInvalidQuantity возвращается при добавлении товара с количеством меньше 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)

	CartLines(ctx context.Context, userID uuid.UUID) ([]model.CartLine, error)
	AddCartItem(ctx context.Context, userID uuid.UUID, productID int64, quantity int) (uuid.UUID, error)
	UpdateCartItemQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error
	RemoveCartItem(ctx context.Context, userID, lineID uuid.UUID) error

	ListAddresses(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	DefaultAddress(ctx context.Context, userID uuid.UUID) (*model.Address, error)
	AddAddress(ctx context.Context, a *model.Address) error
	UpdateAddress(ctx context.Context, a *model.Address) error
	DeleteAddress(ctx context.Context, userID, id uuid.UUID) error
	SetDefaultAddress(ctx context.Context, userID, id uuid.UUID) error

	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	UpsertProfile(ctx context.Context, p *model.Profile) error
	CreateShop(ctx context.Context, shop *model.Shop, ownerEmail string) error

	CreateOrder(ctx context.Context, o *model.Order, lineIDs []uuid.UUID) error
	ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
}

// AuthClient описывает контракт сервиса аутентификации, используемый сервисом.
type AuthClient interface {
	authflow.AuthClient
	GetUser(ctx context.Context, accessToken string) (*gotrue.User, error)
}

// sweeper реализуется хранилищами пауз, которым нужна периодическая очистка.
type sweeper interface {
	Sweep() int
}

// Deps перечисляет зависимости сервиса.
type Deps struct {
	Repo      Repository
	Auth      AuthClient
	Cooldowns cooldown.Store
	Sessions  *session.Store
	Promos    pricing.PromoTable
	Fees      pricing.Fees
	Logger    *zap.Logger
	Now       func() time.Time
}

// Service содержит бизнес-логику витрины.
type Service struct {
	repo      Repository
	auth      AuthClient
	cooldowns cooldown.Store
	sessions  *session.Store
	promos    pricing.PromoTable
	fees      pricing.Fees
	logger    *zap.Logger

	flows *authflow.Registry
	carts *cart.Registry

	unsubscribe func()
}

// NewService создаёт сервис. Незаданные зависимости заменяются значениями по умолчанию:
// хранилище пауз в памяти, пустой реестр сессий, таблица промокодов и сборы витрины.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Cooldowns == nil {
		d.Cooldowns = cooldown.NewMemoryStore(d.Now)
	}
	if d.Sessions == nil {
		d.Sessions = session.NewStore()
	}
	if d.Promos == nil {
		d.Promos = pricing.DefaultPromoTable()
	}
	if d.Fees == (pricing.Fees{}) {
		d.Fees = pricing.DefaultFees()
	}

	s := &Service{
		repo:      d.Repo,
		auth:      d.Auth,
		cooldowns: d.Cooldowns,
		sessions:  d.Sessions,
		promos:    d.Promos,
		fees:      d.Fees,
		logger:    d.Logger,
		flows:     authflow.NewRegistry(d.Auth, d.Cooldowns, d.Now),
		carts:     cart.NewRegistry(),
	}

	s.unsubscribe = s.sessions.Subscribe(func(event session.Event, userID uuid.UUID, _ *model.Session) {
		if event == session.EventSignedOut {
			s.carts.Forget(userID)
		}
	})

	return s
}

// Sessions возвращает общий реестр сессий.
func (s *Service) Sessions() *session.Store {
	return s.sessions
}

// Close отписывается от реестра сессий и закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// StartJanitor запускает фоновую очистку устаревших сценариев аутентификации,
// состояний корзин и истёкших пауз. Очистка прекращается с отменой ctx.
func (s *Service) StartJanitor(ctx context.Context, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ttl)
			}
		}
	}()
}

func (s *Service) sweep(ttl time.Duration) {
	flows := s.flows.Evict(ttl)
	carts := s.carts.Evict(ttl)

	var cooldowns int
	if sw, ok := s.cooldowns.(sweeper); ok {
		cooldowns = sw.Sweep()
	}

	if flows+carts+cooldowns > 0 {
		s.logger.Debug("janitor sweep",
			zap.Int("flows", flows),
			zap.Int("carts", carts),
			zap.Int("cooldowns", cooldowns),
		)
	}
}
