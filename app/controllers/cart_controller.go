package controllers

import (
	"net/http"
	"time"

	"github.com/huertohogar/huerto/app/pricing"
	"github.com/huertohogar/huerto/app/repositories"
	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/pkg/response"
	"github.com/huertohogar/huerto/pkg/sse"
)

// StreamHeartbeat is the idle interval between SSE keep-alive comments.
var StreamHeartbeat = 15 * time.Second

type CartController struct {
	cart    *repositories.CartRepository
	catalog *services.CatalogService
}

func NewCartController(cart *repositories.CartRepository, catalog *services.CatalogService) *CartController {
	return &CartController{cart: cart, catalog: catalog}
}

type addToCartInput struct {
	ProductID string `json:"productId" validate:"required"`
}

func (c *CartController) Index(w http.ResponseWriter, r *http.Request) {
	lines, err := c.cart.Lines(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Success(w, lines)
}

// Summary prices the current cart.
func (c *CartController) Summary(w http.ResponseWriter, r *http.Request) {
	lines, err := c.cart.Lines(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Success(w, pricing.Summarize(lines))
}

// Stream pushes the cart contents on every change.
func (c *CartController) Stream(w http.ResponseWriter, r *http.Request) {
	updates, err := c.cart.ObserveLines(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	stream := sse.New(w, r)
	if stream == nil {
		return
	}
	_ = sse.Pump(r.Context(), stream, "cart", updates, StreamHeartbeat)
}

// Add fetches the product from the remote service and adds one unit.
func (c *CartController) Add(w http.ResponseWriter, r *http.Request) {
	var in addToCartInput
	if !decode(w, r, &in) {
		return
	}

	p, err := c.catalog.Product(r.Context(), in.ProductID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	line, err := c.cart.AddToCart(r.Context(), p)
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Created(w, line)
}

func (c *CartController) Increase(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}
	if err := c.cart.IncreaseQuantity(r.Context(), id); err != nil {
		renderError(w, r, err)
		return
	}
	c.Index(w, r)
}

func (c *CartController) Decrease(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}
	if err := c.cart.DecreaseQuantity(r.Context(), id); err != nil {
		renderError(w, r, err)
		return
	}
	c.Index(w, r)
}

func (c *CartController) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := lineID(w, r)
	if !ok {
		return
	}
	if err := c.cart.RemoveLine(r.Context(), id); err != nil {
		renderError(w, r, err)
		return
	}
	response.NoContent(w)
}
