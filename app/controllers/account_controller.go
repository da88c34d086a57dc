package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/pkg/response"
)

type AccountController struct {
	accounts *services.AccountService
}

func NewAccountController(accounts *services.AccountService) *AccountController {
	return &AccountController{accounts: accounts}
}

func (c *AccountController) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if !decode(w, r, &in) {
		return
	}
	res, err := c.accounts.Login(r.Context(), in)
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Success(w, res)
}

func (c *AccountController) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	user, err := c.accounts.Register(r.Context(), in)
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Created(w, user)
}

func (c *AccountController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if !decode(w, r, &in) {
		return
	}
	user, err := c.accounts.UpdateProfile(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		renderError(w, r, err)
		return
	}
	response.Success(w, user)
}
