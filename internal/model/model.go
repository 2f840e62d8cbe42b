// Package model содержит доменные сущности витрины Edelweiss.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnknownShop подставляется вместо названия магазина, если товар не привязан к магазину.
const UnknownShop = "Unknown Shop"

// Role описывает роль пользователя в профиле.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleShopOwner Role = "shop_owner"
	RoleAdmin     Role = "admin"
)

// Gender описывает пол, указанный в профиле.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOthers Gender = "others"
)

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "cod"
	PaymentGCash PaymentMethod = "gcash"
)

// Valid сообщает, поддерживается ли способ оплаты.
func (p PaymentMethod) Valid() bool {
	return p == PaymentCOD || p == PaymentGCash
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Product описывает товар каталога.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	ShopID      *uuid.UUID
	ShopName    string
}

// CartLine описывает позицию корзины вместе с данными товара.
type CartLine struct {
	ID        uuid.UUID
	ProductID int64
	Name      string
	ImageURL  string
	Quantity  int
	UnitPrice decimal.Decimal
	ShopName  string
}

// LineTotal возвращает стоимость позиции.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Address описывает адрес доставки пользователя.
type Address struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ReceiverName    string
	Phone           string
	Region          string
	Province        string
	City            string
	Barangay        string
	PostalCode      string
	DetailedAddress string
	Label           string
	IsDefault       bool
	CreatedAt       time.Time
}

// Profile описывает профиль покупателя.
type Profile struct {
	ID        uuid.UUID
	Email     string
	Username  string
	FirstName string
	LastName  string
	Phone     string
	AvatarURL string
	Gender    Gender
	Birthdate string
	Role      Role
}

// Shop описывает магазин продавца.
type Shop struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	Name          string
	BusinessPhone string
	Description   string
	CreatedAt     time.Time
}

// OrderItem описывает позицию оформленного заказа.
type OrderItem struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	ShopName  string
}

// Order описывает оформленный заказ.
type Order struct {
	ID            uuid.UUID
	Number        string
	UserID        uuid.UUID
	AddressID     uuid.UUID
	PaymentMethod PaymentMethod
	Status        OrderStatus
	PromoCode     string
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	AddonFee      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	Items         []OrderItem
	CreatedAt     time.Time
}

// Session описывает сессию, выданную сервисом аутентификации.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       uuid.UUID
	Email        string
}
