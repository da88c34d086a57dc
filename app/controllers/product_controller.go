package controllers

import (
	"net/http"

	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/pkg/response"
)

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(catalog *services.CatalogService) *ProductController {
	return &ProductController{catalog: catalog}
}

// Index lists products, filtered by ?category=.
func (c *ProductController) Index(w http.ResponseWriter, r *http.Request) {
	catalog, err := c.catalog.Products(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Success(w, catalog)
}

func (c *ProductController) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.catalog.Categories(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Success(w, categories)
}
