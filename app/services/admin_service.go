package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/pocketbase"
	"github.com/huertohogar/huerto/pkg/validate"
)

// ProductAdmin writes products on the remote service.
type ProductAdmin interface {
	CreateProduct(ctx context.Context, fields map[string]interface{}) (models.Product, error)
	UpdateProduct(ctx context.Context, id string, fields map[string]interface{}) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ProductInput is the editable part of a product.
type ProductInput struct {
	Code        string  `json:"code"        validate:"required,max=32"`
	Name        string  `json:"name"        validate:"required,max=255"`
	Category    string  `json:"category"    validate:"required"`
	Price       float64 `json:"price"       validate:"gt=0"`
	Unit        string  `json:"unit"        validate:"required"`
	Stock       int     `json:"stock"       validate:"gte=0"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
}

func (in ProductInput) fields() map[string]interface{} {
	return map[string]interface{}{
		"code":        in.Code,
		"name":        in.Name,
		"category":    in.Category,
		"price":       in.Price,
		"unit":        in.Unit,
		"stock":       in.Stock,
		"description": in.Description,
		"imageUrl":    in.ImageURL,
	}
}

// AdminError carries a human-readable summary of a failed admin action.
type AdminError struct {
	Action string
	Err    error
}

func (e *AdminError) Error() string {
	var he *pocketbase.HTTPError
	if errors.As(e.Err, &he) {
		return "Error " + he.Error()
	}
	return fmt.Sprintf("Error al %s el producto: %v", e.Action, e.Err)
}

func (e *AdminError) Unwrap() error { return e.Err }

// AdminService manages the product catalogue.
type AdminService struct {
	remote  ProductAdmin
	catalog *CatalogService
	mirror  ProductMirror
}

func NewAdminService(remote ProductAdmin, catalog *CatalogService, mirror ProductMirror) *AdminService {
	return &AdminService{remote: remote, catalog: catalog, mirror: mirror}
}

// CreateProduct validates in and creates the product.
func (s *AdminService) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	if errs := validate.Struct(in); errs != nil {
		return models.Product{}, errs
	}
	p, err := s.remote.CreateProduct(ctx, in.fields())
	if err != nil {
		return models.Product{}, &AdminError{Action: "crear", Err: err}
	}
	s.changed(ctx, &p, "")
	return p, nil
}

// UpdateProduct validates in and replaces the product's editable fields.
func (s *AdminService) UpdateProduct(ctx context.Context, id string, in ProductInput) (models.Product, error) {
	if errs := validate.Struct(in); errs != nil {
		return models.Product{}, errs
	}
	p, err := s.remote.UpdateProduct(ctx, id, in.fields())
	if err != nil {
		return models.Product{}, &AdminError{Action: "actualizar", Err: err}
	}
	s.changed(ctx, &p, "")
	return p, nil
}

// DeleteProduct removes the product.
func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.remote.DeleteProduct(ctx, id); err != nil {
		return &AdminError{Action: "eliminar", Err: err}
	}
	s.changed(ctx, nil, id)
	return nil
}

func (s *AdminService) changed(ctx context.Context, p *models.Product, deletedID string) {
	s.catalog.Invalidate(ctx)

	var err error
	if p != nil {
		err = s.mirror.Upsert(ctx, []models.Product{*p})
	} else {
		err = s.mirror.Delete(ctx, deletedID)
	}
	if err != nil {
		logger.WithCtx(ctx).Warn("admin: mirror not updated", "error", err)
	}
}
