package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huertohogar/huerto/pkg/metrics"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/api/users/{id}/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", "/api/users/{id}/orders", "418"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/users/u1/orders", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/users/u2/orders", nil))

	after := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", "/api/users/{id}/orders", "418"))
	assert.Equal(t, before+2, after)
}

func TestRecordCheckout(t *testing.T) {
	before := testutil.ToFloat64(metrics.CheckoutTotal.WithLabelValues("success"))
	metrics.RecordCheckout("success", time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CheckoutTotal.WithLabelValues("success")))
}

func TestHandlerExposesShopMetrics(t *testing.T) {
	metrics.CartMutations.WithLabelValues("add").Inc()

	rec := httptest.NewRecorder()
	metrics.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "huerto_cart_mutations_total")
}
