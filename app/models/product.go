package models

import "time"

// Product is a catalogue record as served by the remote product service.
// Stock is authoritative only when freshly fetched from that service.
type Product struct {
	ID           string  `json:"id"`
	CollectionID string  `json:"collectionId,omitempty"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	Unit         string  `json:"unit"`
	Stock        int     `json:"stock"`
	Description  string  `json:"description"`
	ImageURL     string  `json:"imageUrl"`
}

// ProductMirror is the local copy of a product kept for offline browsing.
// It is never consulted for stock decisions.
type ProductMirror struct {
	ID           string    `gorm:"primaryKey;size:64"        json:"id"`
	CollectionID string    `gorm:"size:64"                   json:"collectionId,omitempty"`
	Code         string    `gorm:"size:32;index"             json:"code"`
	Name         string    `gorm:"size:255;not null"         json:"name"`
	Category     string    `gorm:"size:100;index"            json:"category"`
	Price        float64   `gorm:"not null;default:0"        json:"price"`
	Unit         string    `gorm:"size:32"                   json:"unit"`
	Stock        int       `gorm:"not null;default:0"        json:"stock"`
	Description  string    `gorm:"type:text"                 json:"description"`
	ImageURL     string    `gorm:"size:512"                  json:"imageUrl"`
	SyncedAt     time.Time `gorm:"autoUpdateTime"            json:"syncedAt"`
}

func (ProductMirror) TableName() string { return "product_mirror" }

// MirrorOf copies a remote product into its mirror row.
func MirrorOf(p Product) ProductMirror {
	return ProductMirror{
		ID:           p.ID,
		CollectionID: p.CollectionID,
		Code:         p.Code,
		Name:         p.Name,
		Category:     p.Category,
		Price:        p.Price,
		Unit:         p.Unit,
		Stock:        p.Stock,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
	}
}

// Product converts the mirror row back to the catalogue shape.
func (m ProductMirror) Product() Product {
	return Product{
		ID:           m.ID,
		CollectionID: m.CollectionID,
		Code:         m.Code,
		Name:         m.Name,
		Category:     m.Category,
		Price:        m.Price,
		Unit:         m.Unit,
		Stock:        m.Stock,
		Description:  m.Description,
		ImageURL:     m.ImageURL,
	}
}
