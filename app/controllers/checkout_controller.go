package controllers

import (
	"net/http"

	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/pkg/response"
)

type CheckoutController struct {
	checkout *services.CheckoutService
}

func NewCheckoutController(checkout *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkout: checkout}
}

type checkoutInput struct {
	UserID          string `json:"userId"          validate:"required"`
	ShippingAddress string `json:"shippingAddress" validate:"required"`
}

// Store runs the checkout. An empty cart answers 204.
func (c *CheckoutController) Store(w http.ResponseWriter, r *http.Request) {
	var in checkoutInput
	if !decode(w, r, &in) {
		return
	}

	order, err := c.checkout.Checkout(r.Context(), in.UserID, in.ShippingAddress)
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Created(w, order)
}

func (c *CheckoutController) State(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, c.checkout.State())
}

// Reset acknowledges a finished checkout.
func (c *CheckoutController) Reset(w http.ResponseWriter, _ *http.Request) {
	c.checkout.Reset()
	response.Success(w, c.checkout.State())
}
