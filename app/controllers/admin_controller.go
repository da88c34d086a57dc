package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/pkg/response"
)

type AdminController struct {
	admin *services.AdminService
}

func NewAdminController(admin *services.AdminService) *AdminController {
	return &AdminController{admin: admin}
}

func (c *AdminController) Store(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	if !decode(w, r, &in) {
		return
	}
	p, err := c.admin.CreateProduct(r.Context(), in)
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Created(w, p)
}

func (c *AdminController) Update(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	if !decode(w, r, &in) {
		return
	}
	p, err := c.admin.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Success(w, p)
}

func (c *AdminController) Destroy(w http.ResponseWriter, r *http.Request) {
	if err := c.admin.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		renderError(w, r, err)
		return
	}
	response.NoContent(w)
}
