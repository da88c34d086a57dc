package models

import "time"

// JournalStatus is the lifecycle of a checkout journal entry.
type JournalStatus string

const (
	JournalPending   JournalStatus = "pending"
	JournalCommitted JournalStatus = "committed"
	JournalFailed    JournalStatus = "failed"
	JournalAbandoned JournalStatus = "abandoned"
)

// StockDecrement records one stock write made against the product service.
type StockDecrement struct {
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	PreviousStock int    `json:"previousStock"`
	NewStock      int    `json:"newStock"`
}

// CheckoutJournal is written before remote stock is touched so that a
// checkout interrupted between the remote and local commits can be found
// and reconciled later.
type CheckoutJournal struct {
	ID         string        `gorm:"primaryKey;size:36"               json:"id"`
	UserID     string        `gorm:"size:64;not null;index"           json:"userId"`
	Status     JournalStatus `gorm:"size:16;not null;index"           json:"status"`
	Decrements string        `gorm:"type:text"                        json:"decrements"`
	OrderID    *uint         `json:"orderId,omitempty"`
	Reason     string        `gorm:"type:text"                        json:"reason,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func (CheckoutJournal) TableName() string { return "checkout_journal" }
