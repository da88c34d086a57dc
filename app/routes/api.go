package routes

import (
	"github.com/huertohogar/huerto/app/controllers"
	"github.com/huertohogar/huerto/pkg/metrics"
	"github.com/huertohogar/huerto/pkg/middleware"
	"github.com/huertohogar/huerto/pkg/router"
)

// Controllers groups every controller the API mounts.
type Controllers struct {
	Products *controllers.ProductController
	Admin    *controllers.AdminController
	Accounts *controllers.AccountController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Orders   *controllers.OrderController

	// AdminKey guards the admin group. Empty leaves it open.
	AdminKey string
}

func RegisterAPI(r *router.Router, c Controllers) {
	r.Get("/metrics", "metrics", metrics.Handler())

	api := r.Group("/api")

	api.Get("/products", "products.index", c.Products.Index)
	api.Get("/products/categories", "products.categories", c.Products.Categories)

	admin := api.Group("/admin", middleware.AdminKey(c.AdminKey))
	admin.Post("/products", "admin.products.store", c.Admin.Store)
	admin.Patch("/products/{id}", "admin.products.update", c.Admin.Update)
	admin.Delete("/products/{id}", "admin.products.destroy", c.Admin.Destroy)

	api.Post("/auth/login", "auth.login", c.Accounts.Login)
	api.Post("/auth/register", "auth.register", c.Accounts.Register)
	api.Patch("/users/{id}", "users.update", c.Accounts.UpdateProfile)

	cart := api.Group("/cart")
	cart.Get("/", "cart.index", c.Cart.Index)
	cart.Get("/summary", "cart.summary", c.Cart.Summary)
	cart.Get("/stream", "cart.stream", c.Cart.Stream)
	cart.Post("/items", "cart.add", c.Cart.Add)
	cart.Post("/items/{id}/increase", "cart.increase", c.Cart.Increase)
	cart.Post("/items/{id}/decrease", "cart.decrease", c.Cart.Decrease)
	cart.Delete("/items/{id}", "cart.remove", c.Cart.Remove)

	api.Post("/checkout", "checkout.store", c.Checkout.Store)
	api.Get("/checkout/state", "checkout.state", c.Checkout.State)
	api.Post("/checkout/reset", "checkout.reset", c.Checkout.Reset)

	api.Get("/users/{id}/orders", "orders.index", c.Orders.Index)
	api.Get("/users/{id}/orders/stream", "orders.stream", c.Orders.Stream)
}
