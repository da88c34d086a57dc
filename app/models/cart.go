package models

import "time"

// CartLine is one product in the active cart. Name, price and image are
// snapshotted when the product is first added and never refreshed.
type CartLine struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	ProductID    string    `gorm:"size:64;not null;uniqueIndex" json:"productId"`
	ProductName  string    `gorm:"size:255;not null"          json:"productName"`
	Quantity     int       `gorm:"not null;check:quantity >= 1" json:"quantity"`
	UnitPrice    float64   `gorm:"not null"                   json:"unitPrice"`
	CollectionID string    `gorm:"size:64"                    json:"collectionId,omitempty"`
	ImageRef     string    `gorm:"size:512"                   json:"imageRef"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (CartLine) TableName() string { return "cart_lines" }

// LineTotal is quantity times the snapshotted unit price.
func (l CartLine) LineTotal() float64 {
	return float64(l.Quantity) * l.UnitPrice
}
