package models

import "time"

// Order is a completed purchase. Rows are never updated after insert.
type Order struct {
	ID              uint        `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID          string      `gorm:"size:64;not null;index"    json:"userId"`
	PlacedAt        time.Time   `gorm:"not null;index"            json:"placedAt"`
	Subtotal        float64     `gorm:"not null"                  json:"subtotal"`
	Tax             float64     `gorm:"not null"                  json:"tax"`
	Total           float64     `gorm:"not null"                  json:"total"`
	ShippingAddress string      `gorm:"size:512;not null"         json:"shippingAddress"`
	Lines           []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
}

func (Order) TableName() string { return "orders" }

// OrderLine is one product of an order, priced as it was at purchase time.
type OrderLine struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	OrderID     uint    `gorm:"not null;index"            json:"orderId"`
	ProductID   string  `gorm:"size:64;not null"          json:"productId"`
	ProductName string  `gorm:"size:255;not null"         json:"productName"`
	Quantity    int     `gorm:"not null"                  json:"quantity"`
	UnitPrice   float64 `gorm:"not null"                  json:"unitPriceAtPurchase"`
}

func (OrderLine) TableName() string { return "order_lines" }
