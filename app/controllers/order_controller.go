package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/huertohogar/huerto/app/repositories"
	"github.com/huertohogar/huerto/pkg/response"
	"github.com/huertohogar/huerto/pkg/sse"
)

type OrderController struct {
	orders *repositories.OrderRepository
}

func NewOrderController(orders *repositories.OrderRepository) *OrderController {
	return &OrderController{orders: orders}
}

// Index lists a user's orders, newest first.
func (c *OrderController) Index(w http.ResponseWriter, r *http.Request) {
	orders, err := c.orders.OrdersForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Success(w, orders)
}

// Stream pushes the user's order history whenever an order is recorded.
func (c *OrderController) Stream(w http.ResponseWriter, r *http.Request) {
	updates, err := c.orders.ObserveOrdersForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	stream := sse.New(w, r)
	if stream == nil {
		return
	}
	_ = sse.Pump(r.Context(), stream, "orders", updates, StreamHeartbeat)
}
