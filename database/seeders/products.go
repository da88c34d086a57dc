package seeders

import (
	"context"

	"gorm.io/gorm"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/app/repositories"
)

func init() {
	Register("products", SeedProducts)
}

// SampleProducts is the starter catalogue shown before the first sync.
var SampleProducts = []models.Product{
	{ID: "prod_1", Code: "FR001", Name: "Manzanas Fuji", Category: "Frutas Frescas", Price: 1200, Unit: "kilo", Stock: 150,
		Description: "Manzanas Fuji crujientes y dulces, cultivadas en el Valle del Maule."},
	{ID: "prod_2", Code: "VE001", Name: "Tomates Orgánicos", Category: "Verduras Orgánicas", Price: 2500, Unit: "kilo", Stock: 100,
		Description: "Tomates cultivados sin pesticidas ni fertilizantes químicos."},
	{ID: "prod_3", Code: "VE002", Name: "Espinacas Orgánicas", Category: "Verduras Orgánicas", Price: 1500, Unit: "atado", Stock: 80,
		Description: "Espinacas frescas, ideales para ensaladas y batidos."},
	{ID: "prod_4", Code: "LA001", Name: "Yogurt Natural", Category: "Productos Lácteos", Price: 1800, Unit: "unidad", Stock: 50,
		Description: "Yogurt cremoso elaborado con leche de vacas de libre pastoreo."},
	{ID: "prod_5", Code: "PO001", Name: "Miel de Abeja Orgánica", Category: "Productos Orgánicos", Price: 4500, Unit: "frasco", Stock: 60,
		Description: "Miel pura producida por apicultores locales."},
}

// SeedProducts upserts the sample catalogue into the offline mirror.
func SeedProducts(ctx context.Context, db *gorm.DB) error {
	return repositories.NewProductMirrorRepository(db).Upsert(ctx, SampleProducts)
}
