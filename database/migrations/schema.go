package migrations

import (
	"gorm.io/gorm"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/pkg/migration"
)

func init() {
	migration.Register("20260301000000_create_cart_lines_table", &CreateCartLinesTable{})
	migration.Register("20260301000001_create_orders_tables", &CreateOrdersTables{})
	migration.Register("20260301000002_create_product_mirror_table", &CreateProductMirrorTable{})
	migration.Register("20260315000000_create_checkout_journal_table", &CreateCheckoutJournalTable{})
}

// -------- cart_lines --------

type CreateCartLinesTable struct{}

func (m *CreateCartLinesTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.CartLine{})
}

func (m *CreateCartLinesTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("cart_lines")
}

// -------- orders + order_lines --------

type CreateOrdersTables struct{}

func (m *CreateOrdersTables) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Order{}, &models.OrderLine{})
}

func (m *CreateOrdersTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("order_lines", "orders")
}

// -------- product_mirror --------

type CreateProductMirrorTable struct{}

func (m *CreateProductMirrorTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.ProductMirror{})
}

func (m *CreateProductMirrorTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("product_mirror")
}

// -------- checkout_journal --------

type CreateCheckoutJournalTable struct{}

func (m *CreateCheckoutJournalTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.CheckoutJournal{})
}

func (m *CreateCheckoutJournalTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("checkout_journal")
}
