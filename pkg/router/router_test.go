package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huertohogar/huerto/pkg/router"
)

func TestGroupsAndNamedRoutes(t *testing.T) {
	r := router.New()

	var order []string
	tag := func(name string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, req)
			})
		}
	}

	api := r.Group("/api/", tag("api"))
	cart := api.Group("cart", tag("cart"))
	cart.Delete("/items/{id}", "cart.remove", func(w http.ResponseWriter, req *http.Request) {
		order = append(order, "handler:"+chi.URLParam(req, "id"))
		w.WriteHeader(http.StatusNoContent)
	})
	api.Patch("/users/{id}", "users.update", func(w http.ResponseWriter, _ *http.Request) {})
	r.Get("/metrics", "", func(w http.ResponseWriter, _ *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/cart/items/7", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"api", "cart", "handler:7"}, order)

	url, err := r.URL("cart.remove", map[string]string{"id": "3"})
	require.NoError(t, err)
	assert.Equal(t, "/api/cart/items/3", url)

	_, err = r.URL("cart.remove", nil)
	assert.Error(t, err)
	_, err = r.URL("nope", nil)
	assert.Error(t, err)

	assert.Equal(t, []router.Route{
		{Method: http.MethodDelete, Path: "/api/cart/items/{id}", Name: "cart.remove"},
		{Method: http.MethodPatch, Path: "/api/users/{id}", Name: "users.update"},
		{Method: http.MethodGet, Path: "/metrics"},
	}, r.Routes())
}
