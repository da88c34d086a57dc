package bind_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huertohogar/huerto/config"
	"github.com/huertohogar/huerto/pkg/bind"
)

type addItem struct {
	ProductID string `json:"productId" validate:"required"`
}

func post(body string) (*httptest.ResponseRecorder, *http.Request) {
	return httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(body))
}

func TestJSONDecodesValidBody(t *testing.T) {
	w, r := post(`{"productId":"prod_1"}`)
	var in addItem
	errs, err := bind.JSON(w, r, &in)
	require.NoError(t, err)
	assert.Nil(t, errs)
	assert.Equal(t, "prod_1", in.ProductID)
}

func TestJSONReportsValidationErrors(t *testing.T) {
	w, r := post(`{}`)
	var in addItem
	errs, err := bind.JSON(w, r, &in)
	require.NoError(t, err)
	assert.Equal(t, "El campo productId es obligatorio.", errs["productId"])
}

func TestJSONRejectsMalformedAndOversizedBodies(t *testing.T) {
	w, r := post(`{"productId":`)
	var in addItem
	_, err := bind.JSON(w, r, &in)
	assert.ErrorContains(t, err, "JSON inválido")

	config.Set("MAX_BODY_BYTES", "8")
	t.Cleanup(func() { config.Set("MAX_BODY_BYTES", "") })

	w, r = post(`{"productId":"prod_1"}`)
	_, err = bind.JSON(w, r, &in)
	assert.ErrorContains(t, err, "demasiado grande")
}
