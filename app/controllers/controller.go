// Package controllers adapts HTTP requests to the services and renders their
// results through pkg/response.
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/huertohogar/huerto/app/repositories"
	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/pkg/bind"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/pocketbase"
	"github.com/huertohogar/huerto/pkg/response"
	"github.com/huertohogar/huerto/pkg/validate"
)

// decode binds and validates a JSON body into dst. It answers 400 or 422 and
// returns false when the body is unusable.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	errs, err := bind.JSON(w, r, dst)
	if err != nil {
		response.BadRequest(w, err.Error())
		return false
	}
	if errs != nil {
		response.ValidationError(w, errs)
		return false
	}
	return true
}

// lineID parses the {id} path parameter of a cart line.
func lineID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		response.NotFound(w, "Línea no encontrada")
		return 0, false
	}
	return uint(id), true
}

// renderError maps a service error to its HTTP status.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs    validate.Errors
		stock    *services.InsufficientStockError
		commit   *services.CheckoutCommitError
		checkout *services.CheckoutError
		admin    *services.AdminError
		remote   *pocketbase.HTTPError
	)

	switch {
	case errors.As(err, &verrs):
		response.ValidationError(w, verrs)
	case errors.Is(err, services.ErrEmptyCart):
		response.NoContent(w)
	case errors.As(err, &stock):
		response.Error(w, http.StatusConflict, stock.Error())
	case errors.Is(err, repositories.ErrLineNotFound):
		response.NotFound(w, "Línea no encontrada")
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &commit), errors.As(err, &checkout):
		logger.WithCtx(r.Context()).Error("checkout failed", "error", err)
		response.Error(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &admin):
		if pocketbase.IsNotFound(err) {
			response.NotFound(w, admin.Error())
			return
		}
		response.Error(w, http.StatusBadGateway, admin.Error())
	case pocketbase.IsNotFound(err):
		response.NotFound(w, "")
	case errors.Is(err, pocketbase.ErrNetwork), errors.As(err, &remote):
		response.Error(w, http.StatusBadGateway, err.Error())
	default:
		logger.WithCtx(r.Context()).Error("request failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
